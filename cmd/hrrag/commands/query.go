package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"github.com/siherrmann/hrrag/model"
	"github.com/spf13/cobra"
)

const (
	separatorWidth = 80
	answerWidth    = 100
)

// NewQueryCmd creates the query command
func NewQueryCmd(global *globalFlags) *cobra.Command {
	index := &indexFlags{}
	var question string
	var k int

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Answer a question from the indexed documents",
		Example: `  hrrag query --index-path ./vectorstore/index.bin --question "How many vacation days do I get?"
  USE_GROQ=1 hrrag query --index-path ./vectorstore/index.bin --question "Who approves remote work?" --k 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			assistant, err := newAssistant(cmd, global, index)
			if err != nil {
				return err
			}
			defer assistant.Close()

			answer, err := assistant.Retrieve(cmd.Context(), question, k)
			if err != nil {
				return err
			}

			printAnswer(cmd.OutOrStdout(), answer)
			return nil
		},
	}

	cmd.Flags().StringVar(&question, "question", "", "Question to answer")
	cmd.Flags().IntVar(&k, "k", 0, "Number of nearest chunks to retrieve (0 uses query.top_k)")
	addIndexFlags(cmd, index)
	_ = cmd.MarkFlagRequired("question")

	return cmd
}

// printAnswer writes the question, the wrapped answer and the cited sources.
func printAnswer(w io.Writer, answer *model.Answer) {
	separator := strings.Repeat("=", separatorWidth)

	fmt.Fprintln(w)
	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, "QUESTION:")
	fmt.Fprintln(w, answer.Question)
	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, "ANSWER:")
	fmt.Fprintln(w, wrap(answer.Text, answerWidth))
	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, "CITED SOURCES (filenames):")
	fmt.Fprintln(w, strings.Join(answer.Citations, ", "))
}

// wrap collapses whitespace and wraps text into lines of at most width columns.
// Words longer than width stay on their own line.
func wrap(text string, width int) string {
	return wordwrap.String(strings.Join(strings.Fields(text), " "), width)
}
