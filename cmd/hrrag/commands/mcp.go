package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/siherrmann/hrrag/mcp"
	"github.com/spf13/cobra"
)

// NewMCPCmd creates the mcp command
func NewMCPCmd(global *globalFlags) *cobra.Command {
	index := &indexFlags{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the HR assistant as MCP tools over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing the tools
ask_hr_assistant and search_hr_documents. Logs are written to stderr.`,
		Example: `  hrrag mcp --index-path ./vectorstore/index.bin

  # claude_desktop_config.json:
  # {"mcpServers": {"hr": {"command": "hrrag", "args": ["mcp", "--index-path", "/srv/hr/index.bin"]}}}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			assistant, err := newAssistant(cmd, global, index)
			if err != nil {
				return err
			}
			defer assistant.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := mcp.NewServer(assistant, versionInfo.Version, nil)

			serverErr := make(chan error, 1)
			go func() {
				serverErr <- mcpserver.ServeStdio(server)
			}()

			select {
			case <-ctx.Done():
				return nil
			case err := <-serverErr:
				if err != nil {
					return fmt.Errorf("mcp server: %w", err)
				}
				return nil
			}
		},
	}

	addIndexFlags(cmd, index)
	return cmd
}
