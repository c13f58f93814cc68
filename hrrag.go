package hrrag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/siherrmann/hrrag/core/index"
	"github.com/siherrmann/hrrag/core/llm"
	"github.com/siherrmann/hrrag/core/pipeline"
	"github.com/siherrmann/hrrag/core/retrieval"
	"github.com/siherrmann/hrrag/database"
	"github.com/siherrmann/hrrag/helper"
	"github.com/siherrmann/hrrag/model"
)

// Assistant wires the ingestion pipeline and the retrieval engine to one store
type Assistant struct {
	Config   *model.Config
	DB       *helper.Database // only set for the postgres store
	Store    index.Store
	Embedder pipeline.Embedder
	Pipeline *pipeline.Pipeline
	Engine   *retrieval.Engine
	// Logging
	log *slog.Logger

	closers []func() error
}

// Option replaces a collaborator the assistant would otherwise build from its config
type Option func(*options)

type options struct {
	logger    *slog.Logger
	embedder  pipeline.Embedder
	generator retrieval.Generator
	store     index.Store
}

// WithLogger sets the logger. By default logs go to stderr at config.Log.Level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithEmbedder uses embedder instead of the configured embedding backend.
func WithEmbedder(embedder pipeline.Embedder) Option {
	return func(o *options) { o.embedder = embedder }
}

// WithGenerator uses generator instead of the configured LLM provider.
func WithGenerator(generator retrieval.Generator) Option {
	return func(o *options) { o.generator = generator }
}

// WithStore uses store instead of the configured file or postgres store.
func WithStore(store index.Store) Option {
	return func(o *options) { o.store = store }
}

// NewAssistant creates an Assistant from config. A nil config uses model.DefaultConfig.
func NewAssistant(config *model.Config, opts ...Option) (*Assistant, error) {
	if config == nil {
		config = model.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = helper.NewLogger(os.Stderr, config.Log.Level)
	}

	a := &Assistant{
		Config: config,
		log:    o.logger,
	}

	if err := a.initStore(o.store); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.initEmbedder(o.embedder); err != nil {
		_ = a.Close()
		return nil, err
	}

	loader, err := pipeline.NewLoader(config.Chunking)
	if err != nil {
		_ = a.Close()
		return nil, helper.NewError("create loader", err)
	}
	a.Pipeline = pipeline.NewPipeline(loader, a.Embedder, config.Embedding.BatchSize, a.log)

	generator := o.generator
	if generator == nil {
		client, err := llm.NewClient(config.LLM)
		if err != nil {
			_ = a.Close()
			return nil, helper.NewError("create llm client", err)
		}
		if client != nil {
			generator = client
		}
	}

	a.Engine, err = retrieval.NewEngine(a.Store, a.Embedder, generator, config.Query, a.log)
	if err != nil {
		_ = a.Close()
		return nil, helper.NewError("create retrieval engine", err)
	}

	a.log.Info("Initialized assistant",
		slog.String("store", config.Index.Store),
		slog.String("embedder", a.Embedder.Model()),
		slog.String("llm", config.LLM.Provider),
	)
	return a, nil
}

func (a *Assistant) initStore(store index.Store) error {
	if store != nil {
		a.Store = store
		return nil
	}

	switch a.Config.Index.Store {
	case model.StoreFile:
		fileStore, err := index.NewFileStore(a.Config.Index.Path, a.Config.Index.MetaPath, a.log)
		if err != nil {
			return helper.NewError("create file store", err)
		}
		a.Store = fileStore
	case model.StorePostgres:
		dbConfig, err := helper.NewDatabaseConfiguration()
		if err != nil {
			return fmt.Errorf("%w: %v", model.ErrConfiguration, err)
		}
		db, err := helper.NewDatabase("hrrag", dbConfig, a.log)
		if err != nil {
			return helper.NewError("connect database", err)
		}
		a.DB = db
		a.closers = append(a.closers, db.Close)

		snapshots, err := database.NewSnapshotDBHandler(db, false)
		if err != nil {
			return helper.NewError("create snapshot handler", err)
		}
		a.Store = snapshots
	default:
		return fmt.Errorf("%w: unknown store %q", model.ErrConfiguration, a.Config.Index.Store)
	}
	return nil
}

func (a *Assistant) initEmbedder(embedder pipeline.Embedder) error {
	if embedder != nil {
		a.Embedder = embedder
		return nil
	}

	embedder, closeEmbedder, err := pipeline.NewEmbedder(a.Config.Embedding)
	if err != nil {
		return helper.NewError("create embedder", err)
	}
	a.Embedder = embedder
	a.closers = append(a.closers, closeEmbedder)
	return nil
}

// Ingest rebuilds the index from every supported file below dataPath and
// makes the new snapshot visible to later retrievals.
func (a *Assistant) Ingest(ctx context.Context, dataPath string) (*index.Snapshot, error) {
	snapshot, err := a.Pipeline.Ingest(ctx, dataPath, a.Store)
	if err != nil {
		return nil, err
	}

	if err := a.Engine.Reload(ctx); err != nil {
		return nil, helper.NewError("reload index", err)
	}

	a.log.Info("Ingested corpus",
		slog.String("build_id", snapshot.BuildID.String()),
		slog.Int("vectors", snapshot.Len()),
		slog.Int("dimension", snapshot.Index.Dim()),
	)
	return snapshot, nil
}

// Retrieve answers question from the k most similar sources. k <= 0 uses the configured top k.
func (a *Assistant) Retrieve(ctx context.Context, question string, k int) (*model.Answer, error) {
	return a.Engine.Retrieve(ctx, question, k)
}

// Search returns the deduplicated hits for question without generating an answer.
func (a *Assistant) Search(ctx context.Context, question string, k int) ([]*model.RetrievalResult, error) {
	return a.Engine.Search(ctx, question, k)
}

// Close releases the embedder and the database connection
func (a *Assistant) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
