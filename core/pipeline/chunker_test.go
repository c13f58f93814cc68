package pipeline

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/siherrmann/hrrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paragraph(word string, n int) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

func TestMarkdownChunker(t *testing.T) {
	t.Run("Two headings with short paragraphs give one chunk per section", func(t *testing.T) {
		chunker := MarkdownChunker(1200, 150)
		text := "# Annual Leave\nEmployees receive 20 days per year.\n\nUnused days expire in March.\n\n# Expenses\nSubmit receipts within 30 days.\n"

		chunks, err := chunker(text, "policies.md")

		require.NoError(t, err)
		require.Len(t, chunks, 2, "Expected exactly one chunk per heading section")
		assert.Equal(t, "Annual Leave\nEmployees receive 20 days per year.\n\nUnused days expire in March.", chunks[0].Text)
		assert.Equal(t, "Expenses\nSubmit receipts within 30 days.", chunks[1].Text)
		for _, c := range chunks {
			assert.Equal(t, "policies.md", c.Source)
			assert.Equal(t, model.ContentKindProse, c.Kind)
		}
		assert.Equal(t, "Annual Leave", chunks[0].Metadata.GetString(model.MetadataSection))
		assert.Equal(t, "Expenses", chunks[1].Metadata.GetString(model.MetadataSection))
	})

	t.Run("Text without headings is one section", func(t *testing.T) {
		chunks, err := MarkdownChunker(1200, 150)("First paragraph.\n\nSecond paragraph.", "notes.txt")

		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "First paragraph.\n\nSecond paragraph.", chunks[0].Text)
		assert.Empty(t, chunks[0].Metadata.GetString(model.MetadataSection))
	})

	t.Run("Text before the first heading is its own section", func(t *testing.T) {
		chunks, err := MarkdownChunker(1200, 150)("Intro line.\n## Benefits\nDental is covered.", "hr.md")

		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, "Intro line.", chunks[0].Text)
		assert.Equal(t, "Benefits\nDental is covered.", chunks[1].Text)
	})

	t.Run("Seven hashes and hashtags are not headings", func(t *testing.T) {
		chunks, err := MarkdownChunker(1200, 150)("####### not a heading\n#hashtag", "x.md")

		require.NoError(t, err)
		require.Len(t, chunks, 1)
	})

	t.Run("Empty and whitespace-only text yields no chunks", func(t *testing.T) {
		chunks, err := MarkdownChunker(1200, 150)(" \n\n \t\n# \n\n", "empty.md")

		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("Overflow starts a new chunk seeded with the overlap", func(t *testing.T) {
		maxChars, overlap := 100, 20
		p1 := paragraph("alpha", 10)   // 59 chars
		p2 := paragraph("beta", 10)    // 49 chars
		p3 := paragraph("gamma", 4)    // 23 chars
		text := p1 + "\n\n" + p2 + "\n\n" + p3

		chunks, err := MarkdownChunker(maxChars, overlap)(text, "long.md")

		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, p1, chunks[0].Text)
		assert.Equal(t, p1[len(p1)-overlap:]+"\n\n"+p2+"\n\n"+p3, chunks[1].Text)
	})

	t.Run("Oversized paragraph is emitted whole", func(t *testing.T) {
		big := paragraph("oversized", 30)
		text := "Short intro.\n\n" + big + "\n\nShort outro."

		chunks, err := MarkdownChunker(100, 20)(text, "big.md")

		require.NoError(t, err)
		found := false
		for _, c := range chunks {
			if c.Text == big {
				found = true
			}
			if utf8.RuneCountInString(c.Text) > 100 {
				assert.Equal(t, big, c.Text, "Expected only the single oversized paragraph to exceed max chars")
			}
		}
		assert.True(t, found, "Expected the oversized paragraph to be one chunk")
	})

	t.Run("Overlap seed is shortened when the next paragraph leaves less room", func(t *testing.T) {
		first := strings.Repeat("a", 40) + strings.Repeat("b", 20)
		second := strings.Repeat("c", 85)

		chunks, err := MarkdownChunker(100, 20)(first+"\n\n"+second, "short_seed.md")

		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, first, chunks[0].Text)
		assert.Equal(t, strings.Repeat("b", 13)+"\n\n"+second, chunks[1].Text, "Expected only 13 of the 20 overlap chars to fit")
		assert.Equal(t, 100, utf8.RuneCountInString(chunks[1].Text))
	})

	t.Run("Overlap seed is dropped when the next paragraph leaves no room", func(t *testing.T) {
		first := strings.Repeat("a", 60)
		second := strings.Repeat("c", 98)

		chunks, err := MarkdownChunker(100, 20)(first+"\n\n"+second, "no_seed.md")

		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, second, chunks[1].Text)
	})

	t.Run("Invalid parameters are configuration errors", func(t *testing.T) {
		for _, tt := range []struct{ max, overlap int }{{0, 0}, {-5, 0}, {100, -1}, {100, 100}} {
			_, err := MarkdownChunker(tt.max, tt.overlap)("text", "a.md")
			assert.ErrorIs(t, err, model.ErrConfiguration, "max %d overlap %d", tt.max, tt.overlap)
		}
	})
}

func TestMarkdownChunkerProperties(t *testing.T) {
	words := []string{"leave", "salary", "über", "approval", "naïve", "benefit", "日本", "policy"}
	var sb strings.Builder
	for s := 0; s < 4; s++ {
		sb.WriteString(fmt.Sprintf("# Section %d\n", s))
		for p := 0; p < 12; p++ {
			// at most 9 words of at most 8 characters, short enough for every seed to fit
			sb.WriteString(paragraph(words[(s+p)%len(words)], 2+(p*7+s*3)%8))
			sb.WriteString("\n\n")
		}
	}
	text := sb.String()

	for _, tt := range []struct{ max, overlap int }{{1200, 150}, {200, 40}, {120, 30}, {80, 0}} {
		chunks, err := MarkdownChunker(tt.max, tt.overlap)(text, "props.md")
		require.NoError(t, err)
		require.NotEmpty(t, chunks)

		for i, c := range chunks {
			n := utf8.RuneCountInString(c.Text)
			assert.NotEmpty(t, strings.TrimSpace(c.Text), "Expected non-empty chunk text")
			assert.LessOrEqual(t, n, tt.max, "Expected chunk %d to respect max chars %d", i, tt.max)

			if i+1 == len(chunks) || tt.overlap == 0 || n <= tt.overlap {
				continue
			}
			next := chunks[i+1]
			if next.Metadata.GetString(model.MetadataSection) != c.Metadata.GetString(model.MetadataSection) {
				continue
			}
			runes := []rune(c.Text)
			tail := string(runes[len(runes)-tt.overlap:])
			assert.True(t, strings.HasPrefix(next.Text, tail), "Expected chunk %d to start with the last %d chars of chunk %d", i+1, tt.overlap, i)
		}
	}
}

func TestTableRowChunk(t *testing.T) {
	t.Run("Short row is kept as is", func(t *testing.T) {
		c := TableRowChunk("TABLE ROW from a.csv | name: Ada", "a.csv", 1000)

		assert.Equal(t, "TABLE ROW from a.csv | name: Ada", c.Text)
		assert.Equal(t, "a.csv", c.Source)
		assert.Equal(t, model.ContentKindTable, c.Kind)
	})

	t.Run("Long row is truncated with ellipsis", func(t *testing.T) {
		row := strings.Repeat("é", 30)

		c := TableRowChunk(row, "a.csv", 10)

		assert.Equal(t, strings.Repeat("é", 10)+" ...", c.Text)
	})

	t.Run("Row of exactly max chars is not truncated", func(t *testing.T) {
		row := strings.Repeat("x", 10)

		assert.Equal(t, row, TableRowChunk(row, "a.csv", 10).Text)
	})
}
