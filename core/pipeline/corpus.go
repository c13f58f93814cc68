package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/siherrmann/hrrag/model"
)

// BuildCorpus walks root in lexical order and loads every supported file.
// Hidden files and directories are skipped, unsupported files are logged and skipped.
func (p *Pipeline) BuildCorpus(ctx context.Context, root string) ([]model.Chunk, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: corpus root %s: %v", model.ErrIngestionIO, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: corpus root %s is not a directory", model.ErrIngestionIO, root)
	}

	var chunks []model.Chunk
	files := 0

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%w: walk %s: %v", model.ErrIngestionIO, path, err)
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		kind := KindForPath(path)
		if kind == model.ContentKindUnsupported {
			p.log.Debug("Skipping unsupported file", slog.String("path", path))
			return nil
		}

		before := len(chunks)
		for c, err := range p.Loader.Chunks(path) {
			if err != nil {
				return err
			}
			chunks = append(chunks, c)
		}
		files++

		p.log.Debug("Loaded file",
			slog.String("path", path),
			slog.String("kind", string(kind)),
			slog.Int("chunks", len(chunks)-before),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.log.Info("Loaded corpus files", slog.Int("files", files), slog.Int("chunks", len(chunks)))

	return chunks, nil
}
