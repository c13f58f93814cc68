package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

const snippetWidth = 80

// NewSearchCmd creates the search command
func NewSearchCmd(global *globalFlags) *cobra.Command {
	index := &indexFlags{}
	var question string
	var k int

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Show the best matching chunk per source without calling the LLM",
		Example: `  hrrag search --index-path ./vectorstore/index.bin --question "parental leave"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			assistant, err := newAssistant(cmd, global, index)
			if err != nil {
				return err
			}
			defer assistant.Close()

			results, err := assistant.Search(cmd.Context(), question, k)
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matching documents.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tSCORE\tSOURCE\tTEXT")
			for _, r := range results {
				fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n", r.Rank, r.Score, r.Record.Source, snippet(r.Record.Text, snippetWidth))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&question, "question", "", "Search query")
	cmd.Flags().IntVar(&k, "k", 0, "Number of nearest chunks to retrieve (0 uses query.top_k)")
	addIndexFlags(cmd, index)
	_ = cmd.MarkFlagRequired("question")

	return cmd
}

// snippet returns the first width runes of text on one line.
func snippet(text string, width int) string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) <= width {
		return string(runes)
	}
	return string(runes[:width-3]) + "..."
}
