package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/siherrmann/hrrag/core/index"
	"github.com/siherrmann/hrrag/core/pipeline"
	"github.com/siherrmann/hrrag/helper"
	"github.com/siherrmann/hrrag/model"
)

// Generator is the LLM backend an answer is generated with
type Generator interface {
	Generate(ctx context.Context, system string, prompt string) (string, error)
}

// Engine answers questions from a persisted snapshot.
// It is safe for concurrent use, the loaded snapshot is never modified.
type Engine struct {
	store     index.Store
	embedder  pipeline.Embedder
	generator Generator
	strategy  Strategy
	config    model.QueryConfig
	log       *slog.Logger

	mu       sync.RWMutex
	snapshot *index.Snapshot
}

// NewEngine creates a new retrieval engine. generator may be nil, every answer then
// carries a configuration sentinel.
func NewEngine(store index.Store, embedder pipeline.Embedder, generator Generator, config model.QueryConfig, logger *slog.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: retrieval needs an index store", model.ErrConfiguration)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: retrieval needs an embedder", model.ErrConfiguration)
	}
	if config.TopK <= 0 {
		config.TopK = model.DefaultQueryConfig().TopK
	}
	strategy, err := NewStrategy(config.Dedup)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		store:     store,
		embedder:  embedder,
		generator: generator,
		strategy:  strategy,
		config:    config,
		log:       logger,
	}, nil
}

// Snapshot returns the snapshot currently in the store. The loaded snapshot is
// cached and only reloaded when the store reports a different build id.
// Failed loads are not cached. If the store cannot be checked or the new build
// cannot be loaded, the cached snapshot stays in use.
func (e *Engine) Snapshot(ctx context.Context) (*index.Snapshot, error) {
	e.mu.RLock()
	cached := e.snapshot
	e.mu.RUnlock()
	if cached == nil {
		return e.loadOnce(ctx, uuid.Nil)
	}

	current, err := e.store.Current(ctx)
	if err != nil {
		e.log.Warn("Could not check index for changes, using loaded index",
			slog.String("build_id", cached.BuildID.String()),
			slog.String("error", err.Error()),
		)
		return cached, nil
	}
	if current == cached.BuildID {
		return cached, nil
	}

	snapshot, err := e.loadOnce(ctx, cached.BuildID)
	if err != nil {
		e.log.Warn("Could not load changed index, using loaded index",
			slog.String("build_id", cached.BuildID.String()),
			slog.String("stored_build_id", current.String()),
			slog.String("error", err.Error()),
		)
		return cached, nil
	}
	return snapshot, nil
}

// loadOnce loads the stored snapshot unless another caller already replaced stale
// while waiting for the lock.
func (e *Engine) loadOnce(ctx context.Context, stale uuid.UUID) (*index.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snapshot != nil && e.snapshot.BuildID != stale {
		return e.snapshot, nil
	}

	snapshot, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	e.snapshot = snapshot
	return snapshot, nil
}

// Reload replaces the cached snapshot with the one currently in the store.
// The old snapshot stays in use if loading fails.
func (e *Engine) Reload(ctx context.Context) error {
	snapshot, err := e.load(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.snapshot = snapshot
	e.mu.Unlock()
	return nil
}

func (e *Engine) load(ctx context.Context) (*index.Snapshot, error) {
	snapshot, err := e.store.Load(ctx)
	if err != nil {
		return nil, helper.NewError("load index", err)
	}
	if err := snapshot.Validate(); err != nil {
		return nil, helper.NewError("validate index", err)
	}
	if snapshot.Len() > 0 && snapshot.Model != e.embedder.Model() {
		return nil, fmt.Errorf("%w: index was built with %q but queries use %q", model.ErrConfiguration, snapshot.Model, e.embedder.Model())
	}

	e.log.Info("Loaded index",
		slog.String("build_id", snapshot.BuildID.String()),
		slog.String("model", snapshot.Model),
		slog.Int("vectors", snapshot.Len()),
	)
	return snapshot, nil
}
