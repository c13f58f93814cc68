package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/siherrmann/hrrag/core/index"
	"github.com/siherrmann/hrrag/helper"
	"github.com/siherrmann/hrrag/model"
)

// ChunkFunc splits the text of one source file into chunks tagged with source
type ChunkFunc func(text string, source string) ([]model.Chunk, error)

// Embedder turns texts into fixed-dimension vectors.
// The same model must be used for ingestion and queries.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Pipeline combines loading, chunking and embedding into an ingestion run
type Pipeline struct {
	Loader    *Loader
	Embedder  Embedder
	BatchSize int
	log       *slog.Logger
}

// NewPipeline creates a new ingestion pipeline
func NewPipeline(loader *Loader, embedder Embedder, batchSize int, logger *slog.Logger) *Pipeline {
	if batchSize <= 0 {
		batchSize = 32
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		Loader:    loader,
		Embedder:  embedder,
		BatchSize: batchSize,
		log:       logger,
	}
}

// Ingest rebuilds the whole index from the files below root and saves it to store.
// Nothing is written unless every step succeeds.
func (p *Pipeline) Ingest(ctx context.Context, root string, store index.Store) (*index.Snapshot, error) {
	p.log.Info("Scanning corpus", slog.String("root", root))

	chunks, err := p.BuildCorpus(ctx, root)
	if err != nil {
		return nil, helper.NewError("build corpus", err)
	}

	p.log.Info("Built corpus", slog.Int("chunks", len(chunks)))

	snapshot, err := p.BuildSnapshot(ctx, chunks)
	if err != nil {
		return nil, helper.NewError("build snapshot", err)
	}

	if err := store.Save(ctx, snapshot); err != nil {
		return nil, helper.NewError("save snapshot", err)
	}

	return snapshot, nil
}

// BuildSnapshot embeds all chunks in batches, normalizes the vectors and indexes them in corpus order.
func (p *Pipeline) BuildSnapshot(ctx context.Context, chunks []model.Chunk) (*index.Snapshot, error) {
	if p.Embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", model.ErrConfiguration)
	}

	var flat *index.Flat
	for start := 0; start < len(chunks); start += p.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+p.BatchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		vectors, err := p.Embedder.Embed(ctx, texts)
		if err != nil {
			return nil, helper.NewError("embed chunks", err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
		}

		if flat == nil {
			flat = index.NewFlat(len(vectors[0]))
		}
		for _, v := range vectors {
			index.Normalize(v)
		}
		if err := flat.Add(vectors...); err != nil {
			return nil, helper.NewError("index vectors", err)
		}

		p.log.Debug("Embedded batch", slog.Int("done", end), slog.Int("total", len(chunks)))
	}

	if flat == nil {
		flat = index.NewFlat(0)
	}

	snapshot, err := index.NewSnapshot(p.Embedder.Model(), flat, chunks)
	if err != nil {
		return nil, err
	}

	p.log.Info("Built index",
		slog.String("build_id", snapshot.BuildID.String()),
		slog.String("model", snapshot.Model),
		slog.Int("vectors", flat.Len()),
		slog.Int("dimension", flat.Dim()),
	)

	return snapshot, nil
}
