package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewIngestCmd creates the ingest command
func NewIngestCmd(global *globalFlags) *cobra.Command {
	index := &indexFlags{}
	var dataPath string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Build the index from a directory of HR documents",
		Long: `Walk the data directory, chunk every supported file, embed the chunks
and replace the persisted index. Unsupported files are skipped.`,
		Example: `  hrrag ingest --data-path ./data --index-path ./vectorstore/index.bin
  hrrag ingest --store postgres --data-path ./data`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			assistant, err := newAssistant(cmd, global, index)
			if err != nil {
				return err
			}
			defer assistant.Close()

			snapshot, err := assistant.Ingest(cmd.Context(), dataPath)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks (dimension %d, model %s, build %s)\n",
				snapshot.Len(), snapshot.Index.Dim(), snapshot.Model, snapshot.BuildID)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data-path", "", "Directory with the HR documents")
	addIndexFlags(cmd, index)
	_ = cmd.MarkFlagRequired("data-path")

	return cmd
}
