package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/hrrag/helper"
	"github.com/siherrmann/hrrag/model"
)

// NewEmbedder builds the embedder selected by config.Backend.
// The returned close function releases backend resources and is never nil.
func NewEmbedder(config model.EmbeddingConfig) (Embedder, func() error, error) {
	noop := func() error { return nil }

	switch config.Backend {
	case model.EmbeddingBackendHugot:
		e, err := NewHugotEmbedder(config)
		if err != nil {
			return nil, noop, err
		}
		return e, e.Close, nil
	case model.EmbeddingBackendOpenAI:
		e, err := NewOpenAIEmbedder(config)
		if err != nil {
			return nil, noop, err
		}
		return e, noop, nil
	case model.EmbeddingBackendHash:
		e, err := NewHashEmbedder(config.Dimension)
		if err != nil {
			return nil, noop, err
		}
		return e, noop, nil
	default:
		return nil, noop, fmt.Errorf("%w: unknown embedding backend %q", model.ErrConfiguration, config.Backend)
	}
}

// HugotEmbedder runs a sentence transformer (all-MiniLM-L6-v2 by default,
// 384 dimensions) in a pure Go hugot session
type HugotEmbedder struct {
	model   string
	session *hugot.Session
	run     func(texts []string) ([][]float32, error)
	mu      sync.Mutex
}

// NewHugotEmbedder downloads the model if needed and starts the feature extraction pipeline.
func NewHugotEmbedder(config model.EmbeddingConfig) (*HugotEmbedder, error) {
	modelName := config.Model
	if modelName == "" {
		modelName = model.DefaultEmbeddingModel
	}

	// Prepare model (download if needed)
	modelPath, err := helper.PrepareModel(config.ModelDir, modelName, config.OnnxFilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: prepare embedding model: %v", model.ErrConfiguration, err)
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create hugot session: %v", model.ErrConfiguration, err)
	}

	pipelineConfig := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "hrrag-embedder",
	}
	sentencePipeline, err := hugot.NewPipeline(session, pipelineConfig)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("%w: failed to create sentence pipeline: %v (cleanup error: %v)", model.ErrConfiguration, err, destroyErr)
		}
		return nil, fmt.Errorf("%w: failed to create sentence pipeline: %v", model.ErrConfiguration, err)
	}

	return &HugotEmbedder{
		model:   modelName,
		session: session,
		run: func(texts []string) ([][]float32, error) {
			result, err := sentencePipeline.RunPipeline(texts)
			if err != nil {
				return nil, err
			}
			return result.Embeddings, nil
		},
	}, nil
}

// Embed embeds texts in one pipeline run. Calls are serialized.
func (e *HugotEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	embeddings, err := e.run(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d embeddings for %d texts", len(embeddings), len(texts))
	}
	return embeddings, nil
}

// Model returns the model name stored with every snapshot.
func (e *HugotEmbedder) Model() string {
	return e.model
}

// Close destroys the hugot session.
func (e *HugotEmbedder) Close() error {
	if e.session == nil {
		return nil
	}
	return e.session.Destroy()
}
