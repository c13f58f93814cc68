package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/siherrmann/hrrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir string, name string, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	loader, err := NewLoader(model.DefaultConfig().Chunking)
	require.NoError(t, err)
	return loader
}

func TestKindForPath(t *testing.T) {
	tests := map[string]model.ContentKind{
		"policy.md":       model.ContentKindProse,
		"README.MD":       model.ContentKindProse,
		"notes.txt":       model.ContentKindProse,
		"holidays.yaml":   model.ContentKindProse,
		"roles.yml":       model.ContentKindProse,
		"staff.csv":       model.ContentKindTable,
		"handbook.pdf":    model.ContentKindUnsupported,
		"no_extension":    model.ContentKindUnsupported,
		"data/report.CSV": model.ContentKindTable,
	}
	for path, kind := range tests {
		assert.Equal(t, kind, KindForPath(path), "Unexpected kind for %s", path)
	}
}

func TestNewLoader(t *testing.T) {
	t.Run("Invalid chunking configuration is rejected", func(t *testing.T) {
		config := model.DefaultConfig().Chunking
		config.RowMaxChars = 0

		_, err := NewLoader(config)

		assert.ErrorIs(t, err, model.ErrConfiguration)
	})
}

func TestLoaderChunks(t *testing.T) {
	dir := t.TempDir()
	loader := newTestLoader(t)

	t.Run("Markdown file uses the prose path with base name source", func(t *testing.T) {
		path := writeFile(t, dir, "policies/leave.md", "# Leave\nTwenty days.\n\n# Sick\nTen days.")

		chunks, err := loader.Load(path)

		require.NoError(t, err)
		require.Len(t, chunks, 2)
		for _, c := range chunks {
			assert.Equal(t, "leave.md", c.Source, "Expected directory to be stripped from source")
		}
	})

	t.Run("YAML is treated as raw text", func(t *testing.T) {
		path := writeFile(t, dir, "holidays.yaml", "holidays:\n  - date: 2024-12-25\n    name: Christmas\n")

		chunks, err := loader.Load(path)

		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "holidays:\n  - date: 2024-12-25\n    name: Christmas", chunks[0].Text)
		assert.Equal(t, model.ContentKindProse, chunks[0].Kind)
	})

	t.Run("CSV with three rows gives three table row chunks", func(t *testing.T) {
		path := writeFile(t, dir, "staff.csv", "name,team\nAda,HR\nGrace,Payroll\nLinus,IT\n")

		chunks, err := loader.Load(path)

		require.NoError(t, err)
		require.Len(t, chunks, 3)
		for i, c := range chunks {
			assert.True(t, strings.HasPrefix(c.Text, "TABLE ROW from staff.csv | "), "Expected table row prefix, got %q", c.Text)
			assert.Equal(t, "staff.csv", c.Source)
			assert.Equal(t, model.ContentKindTable, c.Kind)
			row, ok := c.Metadata.GetInt(model.MetadataRow)
			assert.True(t, ok)
			assert.Equal(t, i+1, row)
		}
		assert.Equal(t, "TABLE ROW from staff.csv | name: Ada | team: HR", chunks[0].Text)
	})

	t.Run("CSV quoting, BOM and short rows", func(t *testing.T) {
		path := writeFile(t, dir, "claims.csv", "\ufeffid,note,amount\n1,\"Taxi, airport\",42\n2,Hotel\n")

		chunks, err := loader.Load(path)

		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, "TABLE ROW from claims.csv | id: 1 | note: Taxi, airport | amount: 42", chunks[0].Text)
		assert.Equal(t, "TABLE ROW from claims.csv | id: 2 | note: Hotel | amount: ", chunks[1].Text)
	})

	t.Run("CSV row with more fields than header fails", func(t *testing.T) {
		path := writeFile(t, dir, "broken.csv", "a,b\n1,2,3\n")

		_, err := loader.Load(path)

		assert.ErrorIs(t, err, model.ErrIngestionIO)
	})

	t.Run("Header-only CSV yields no chunks", func(t *testing.T) {
		path := writeFile(t, dir, "empty.csv", "a,b\n")

		chunks, err := loader.Load(path)

		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("Max rows limits CSV rows", func(t *testing.T) {
		config := model.DefaultConfig().Chunking
		config.MaxRows = 2
		limited, err := NewLoader(config)
		require.NoError(t, err)
		path := writeFile(t, dir, "many.csv", "n\n1\n2\n3\n4\n")

		chunks, err := limited.Load(path)

		require.NoError(t, err)
		assert.Len(t, chunks, 2)
	})

	t.Run("Long CSV row is truncated", func(t *testing.T) {
		config := model.DefaultConfig().Chunking
		config.RowMaxChars = 30
		short, err := NewLoader(config)
		require.NoError(t, err)
		path := writeFile(t, dir, "wide.csv", "description\n"+strings.Repeat("x", 100)+"\n")

		chunks, err := short.Load(path)

		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.True(t, strings.HasSuffix(chunks[0].Text, " ..."))
		assert.Len(t, []rune(chunks[0].Text), 34)
	})

	t.Run("Unsupported extension yields an empty sequence", func(t *testing.T) {
		path := writeFile(t, dir, "handbook.pdf", "%PDF-1.4")

		chunks, err := loader.Load(path)

		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("Missing file is an ingestion io error", func(t *testing.T) {
		_, err := loader.Load(filepath.Join(dir, "missing.md"))
		assert.ErrorIs(t, err, model.ErrIngestionIO)

		_, err = loader.Load(filepath.Join(dir, "missing.csv"))
		assert.ErrorIs(t, err, model.ErrIngestionIO)
	})

	t.Run("Invalid UTF-8 is an ingestion io error", func(t *testing.T) {
		path := writeFile(t, dir, "latin1.txt", "caf\xe9")

		_, err := loader.Load(path)

		assert.ErrorIs(t, err, model.ErrIngestionIO)
	})

	t.Run("Sequence stops when the consumer stops", func(t *testing.T) {
		path := writeFile(t, dir, "rows.csv", "n\n1\n2\n3\n")

		count := 0
		for _, err := range loader.Chunks(path) {
			require.NoError(t, err)
			count++
			break
		}

		assert.Equal(t, 1, count)
	})
}
