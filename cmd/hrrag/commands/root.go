package commands

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/siherrmann/hrrag"
	"github.com/siherrmann/hrrag/helper"
	"github.com/siherrmann/hrrag/model"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every command
type globalFlags struct {
	configPath string
	store      string
	embedder   string
	logLevel   string
}

// indexFlags locate the persisted index
type indexFlags struct {
	indexPath string
	metaPath  string
}

// NewRootCmd creates the hrrag command tree
func NewRootCmd() *cobra.Command {
	global := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "hrrag",
		Short: "Question answering over HR policies and data",
		Long: `hrrag indexes a directory of HR documents (Markdown, text, YAML and CSV)
and answers questions grounded in the indexed content, citing the source files.

Settings are read from an optional YAML file, then from the environment
(a .env file in the working directory is loaded first), then from flags.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&global.configPath, "config", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&global.store, "store", "", "Index store: file or postgres")
	cmd.PersistentFlags().StringVar(&global.embedder, "embedder", "", "Embedding backend: hugot, openai or hash")
	cmd.PersistentFlags().StringVar(&global.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	cmd.AddCommand(
		NewIngestCmd(global),
		NewQueryCmd(global),
		NewSearchCmd(global),
		NewMCPCmd(global),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig layers .env, the config file, the environment and the flags.
func loadConfig(global *globalFlags, index *indexFlags) (*model.Config, error) {
	_ = godotenv.Load()

	config, err := model.LoadConfig(global.configPath)
	if err != nil {
		return nil, err
	}

	if global.store != "" {
		config.Index.Store = global.store
	}
	if global.embedder != "" {
		config.Embedding.Backend = global.embedder
	}
	if global.logLevel != "" {
		config.Log.Level = global.logLevel
	}
	if index != nil {
		if index.indexPath != "" {
			config.Index.Path = index.indexPath
		}
		if index.metaPath != "" {
			config.Index.MetaPath = index.metaPath
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// newAssistant builds the assistant for a command. Logs go to stderr so stdout
// carries only command output.
func newAssistant(cmd *cobra.Command, global *globalFlags, index *indexFlags) (*hrrag.Assistant, error) {
	config, err := loadConfig(global, index)
	if err != nil {
		return nil, err
	}
	if config.Index.Store == model.StoreFile && config.Index.Path == "" {
		return nil, fmt.Errorf("%w: --index-path is required for the file store", model.ErrConfiguration)
	}

	logger := helper.NewLogger(cmd.ErrOrStderr(), config.Log.Level)
	assistant, err := hrrag.NewAssistant(config, hrrag.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	logger.Debug("Loaded configuration",
		slog.String("store", config.Index.Store),
		slog.String("embedder", config.Embedding.Backend),
		slog.String("llm", config.LLM.Provider),
	)
	return assistant, nil
}

func addIndexFlags(cmd *cobra.Command, index *indexFlags) {
	cmd.Flags().StringVar(&index.indexPath, "index-path", "", "Path of the index artifact (file store)")
	cmd.Flags().StringVar(&index.metaPath, "meta-path", "", "Path of the metadata artifact (default: <index-path>.meta.json)")
}
