package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/siherrmann/hrrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv keeps the developer's environment out of command tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"USE_GROQ", "GROQ_API_KEY", "GROQ_MODEL", "OPENAI_API_KEY", "HRRAG_LLM_PROVIDER", "HRRAG_INDEX_PATH", "HRRAG_STORE", "HRRAG_EMBEDDER", "HRRAG_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeCorpus(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"leave_policy.md": "# Annual Leave\n\nEmployees receive 20 vacation days per year.",
		"employees.csv":   "name,team\nAda,HR\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}
	return dir
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "hrrag", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	t.Run("Global flags are registered", func(t *testing.T) {
		for _, name := range []string{"config", "store", "embedder", "log-level"} {
			assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "Expected --%s flag", name)
		}
	})

	t.Run("Result count flags default to the configured top k", func(t *testing.T) {
		for _, name := range []string{"query", "search"} {
			sub, _, err := NewRootCmd().Find([]string{name})
			require.NoError(t, err)
			flag := sub.Flags().Lookup("k")
			require.NotNil(t, flag, "Expected %s to have a k flag", name)
			assert.Equal(t, "0", flag.DefValue, "Expected %s to leave k to the config by default", name)
		}
	})

	t.Run("Subcommands are registered", func(t *testing.T) {
		names := map[string]bool{}
		for _, sub := range cmd.Commands() {
			names[sub.Name()] = true
		}
		for _, name := range []string{"ingest", "query", "search", "mcp", "version"} {
			assert.True(t, names[name], "Expected %s subcommand", name)
		}
	})
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)

	t.Run("Flags override config and environment", func(t *testing.T) {
		t.Setenv("HRRAG_EMBEDDER", model.EmbeddingBackendOpenAI)

		config, err := loadConfig(
			&globalFlags{embedder: model.EmbeddingBackendHash, logLevel: "debug"},
			&indexFlags{indexPath: "/tmp/index.bin"},
		)
		require.NoError(t, err)
		assert.Equal(t, model.EmbeddingBackendHash, config.Embedding.Backend)
		assert.Equal(t, "debug", config.Log.Level)
		assert.Equal(t, "/tmp/index.bin", config.Index.Path)
	})

	t.Run("Config file is read", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hrrag.yaml")
		require.NoError(t, os.WriteFile(path, []byte("query:\n  top_k: 3\n  dedup: best_score\n"), 0600))

		config, err := loadConfig(&globalFlags{configPath: path}, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, config.Query.TopK)
		assert.Equal(t, model.DedupBestScore, config.Query.Dedup)
	})

	t.Run("Unknown store flag is a configuration error", func(t *testing.T) {
		_, err := loadConfig(&globalFlags{store: "s3"}, nil)
		assert.ErrorIs(t, err, model.ErrConfiguration)
	})
}

func TestIngestAndQueryCommands(t *testing.T) {
	clearEnv(t)
	indexPath := filepath.Join(t.TempDir(), "index.bin")

	t.Run("Query before ingest fails", func(t *testing.T) {
		_, _, err := run(t, "query", "--embedder", "hash", "--index-path", indexPath, "--question", "vacation?")
		assert.ErrorIs(t, err, model.ErrNotFound, "Expected a missing index to fail the command")
	})

	t.Run("Ingest writes both artifacts", func(t *testing.T) {
		stdout, _, err := run(t, "ingest", "--embedder", "hash", "--data-path", writeCorpus(t), "--index-path", indexPath)
		require.NoError(t, err)

		assert.Contains(t, stdout, "Indexed 2 chunks")
		assert.FileExists(t, indexPath)
		assert.FileExists(t, model.DefaultMetaPath(indexPath))
	})

	t.Run("Query prints question, sentinel answer and sources", func(t *testing.T) {
		stdout, stderr, err := run(t, "query", "--embedder", "hash", "--index-path", indexPath, "--question", "How many vacation days?")
		require.NoError(t, err, "Expected a missing LLM to produce a sentinel, not a failure")

		assert.Contains(t, stdout, "QUESTION:\nHow many vacation days?\n")
		assert.Contains(t, stdout, "ANSWER:\n"+model.LLMErrorMarker)
		assert.Contains(t, stdout, "CITED SOURCES (filenames):\n")
		assert.Contains(t, stdout, "leave_policy.md")
		assert.Contains(t, stderr, "ERROR:", "Expected the LLM failure to be logged on stderr")
	})

	t.Run("Search lists one row per source", func(t *testing.T) {
		stdout, _, err := run(t, "search", "--embedder", "hash", "--index-path", indexPath, "--question", "vacation days")
		require.NoError(t, err)

		assert.Contains(t, stdout, "RANK")
		assert.Contains(t, stdout, "leave_policy.md")
		assert.Contains(t, stdout, "employees.csv")
	})

	t.Run("Search without k uses the configured top k", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hrrag.yaml")
		require.NoError(t, os.WriteFile(path, []byte("query:\n  top_k: 1\n"), 0600))

		stdout, _, err := run(t, "search", "--embedder", "hash", "--config", path, "--index-path", indexPath, "--question", "vacation days")
		require.NoError(t, err)

		sources := 0
		for _, source := range []string{"leave_policy.md", "employees.csv"} {
			if strings.Contains(stdout, source) {
				sources++
			}
		}
		assert.Equal(t, 1, sources, "Expected top_k from the config file to limit the results")
	})

	t.Run("Query with a different embedder is rejected", func(t *testing.T) {
		_, _, err := run(t, "query", "--embedder", "hash", "--config", writeDimensionConfig(t, 32), "--index-path", indexPath, "--question", "vacation?")
		assert.ErrorIs(t, err, model.ErrConfiguration)
	})

	t.Run("Missing required flag fails", func(t *testing.T) {
		_, _, err := run(t, "ingest", "--index-path", indexPath)
		assert.Error(t, err)
	})
}

func writeDimensionConfig(t *testing.T, dim int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hrrag.yaml")
	content := []byte(fmt.Sprintf("embedding:\n  dimension: %d\n", dim))
	require.NoError(t, os.WriteFile(path, content, 0600))
	return path
}
