package pipeline

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/siherrmann/hrrag/model"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// KindForPath classifies a file by its extension.
func KindForPath(path string) model.ContentKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt", ".yaml", ".yml":
		return model.ContentKindProse
	case ".csv":
		return model.ContentKindTable
	default:
		return model.ContentKindUnsupported
	}
}

// Loader turns one source file into chunks
type Loader struct {
	Chunker     ChunkFunc
	RowMaxChars int
	MaxRows     int // 0 reads every row
}

// NewLoader creates a loader from the chunking configuration
func NewLoader(config model.ChunkingConfig) (*Loader, error) {
	if config.RowMaxChars <= 0 {
		return nil, fmt.Errorf("%w: row max chars must be positive", model.ErrConfiguration)
	}
	if config.MaxChars <= 0 || config.Overlap < 0 || config.Overlap >= config.MaxChars {
		return nil, fmt.Errorf("%w: invalid max chars %d with overlap %d", model.ErrConfiguration, config.MaxChars, config.Overlap)
	}
	return &Loader{
		Chunker:     MarkdownChunker(config.MaxChars, config.Overlap),
		RowMaxChars: config.RowMaxChars,
		MaxRows:     config.MaxRows,
	}, nil
}

// Chunks returns the chunks of the file at path lazily. Unsupported kinds yield nothing.
// Read and parse failures are yielded once as ErrIngestionIO and end the sequence.
func (l *Loader) Chunks(path string) iter.Seq2[model.Chunk, error] {
	source := filepath.Base(path)

	switch KindForPath(path) {
	case model.ContentKindProse:
		return func(yield func(model.Chunk, error) bool) {
			text, err := readText(path)
			if err != nil {
				yield(model.Chunk{}, err)
				return
			}
			chunks, err := l.Chunker(text, source)
			if err != nil {
				yield(model.Chunk{}, err)
				return
			}
			for _, c := range chunks {
				if !yield(c, nil) {
					return
				}
			}
		}
	case model.ContentKindTable:
		return func(yield func(model.Chunk, error) bool) {
			l.tableRows(path, source, yield)
		}
	default:
		return func(yield func(model.Chunk, error) bool) {}
	}
}

// Load collects all chunks of the file at path.
func (l *Loader) Load(path string) ([]model.Chunk, error) {
	var chunks []model.Chunk
	for c, err := range l.Chunks(path) {
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

func (l *Loader) tableRows(path string, source string, yield func(model.Chunk, error) bool) {
	f, err := os.Open(path) // #nosec G304 -- corpus paths come from the directory walk
	if err != nil {
		yield(model.Chunk{}, fmt.Errorf("%w: open %s: %v", model.ErrIngestionIO, path, err))
		return
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1

	columns, err := r.Read()
	if errors.Is(err, io.EOF) {
		return
	}
	if err != nil {
		yield(model.Chunk{}, fmt.Errorf("%w: read header of %s: %v", model.ErrIngestionIO, path, err))
		return
	}

	for row := 1; l.MaxRows <= 0 || row <= l.MaxRows; row++ {
		values, err := r.Read()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			yield(model.Chunk{}, fmt.Errorf("%w: read row %d of %s: %v", model.ErrIngestionIO, row, path, err))
			return
		}
		if len(values) > len(columns) {
			yield(model.Chunk{}, fmt.Errorf("%w: row %d of %s has %d fields, header has %d", model.ErrIngestionIO, row, path, len(values), len(columns)))
			return
		}

		c := TableRowChunk(rowText(source, columns, values), source, l.RowMaxChars)
		c.Metadata = model.Metadata{model.MetadataRow: row}
		if !yield(c, nil) {
			return
		}
	}
}

// rowText renders a row as "TABLE ROW from <source> | col: value | ...", missing values render empty.
func rowText(source string, columns []string, values []string) string {
	var b strings.Builder
	b.WriteString("TABLE ROW from ")
	b.WriteString(source)
	for i, col := range columns {
		value := ""
		if i < len(values) {
			value = values[i]
		}
		b.WriteString(" | ")
		b.WriteString(col)
		b.WriteString(": ")
		b.WriteString(value)
	}
	return b.String()
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- corpus paths come from the directory walk
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", model.ErrIngestionIO, path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", model.ErrIngestionIO, path)
	}
	return string(data), nil
}
