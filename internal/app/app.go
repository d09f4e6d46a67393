// Package app wires configuration into the store, embedder and table of contents builder
// shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/idea-toc-server/internal/config"
	"github.com/bull/idea-toc-server/internal/embedding"
	"github.com/bull/idea-toc-server/internal/ideas"
	"github.com/bull/idea-toc-server/internal/originality"
	"github.com/bull/idea-toc-server/internal/storage"
	"github.com/bull/idea-toc-server/internal/toc"
)

// App holds the long-lived components of one process.
type App struct {
	Config   *config.Config
	Store    storage.Store
	Embedder *embedding.Embedder
	Ideas    *ideas.Service
	Cache    *toc.Cache
	Builder  *toc.Builder
	Logger   *slog.Logger
}

// New connects to the configured store and creates the rest of the components.
// The caller must Close the returned App.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	embedder, err := NewEmbedder(cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	cache := toc.NewCache(cfg.TOC.CachePath, logger)
	builder := toc.NewBuilder(toc.BuilderConfig{
		Source:      store,
		Cache:       cache,
		Scorer:      originality.NewScorer(originality.Config{}),
		Partitioner: toc.NewPartitioner(toc.NewTitler(logger), cfg.TOC.MaxDepth),
		MaxItems:    cfg.TOC.MaxItems,
		Logger:      logger,
	})

	return &App{
		Config:   cfg,
		Store:    store,
		Embedder: embedder,
		Ideas:    ideas.NewService(store, embedder, logger),
		Cache:    cache,
		Builder:  builder,
		Logger:   logger,
	}, nil
}

// Close releases the store connection.
func (a *App) Close() error {
	return a.Store.Close()
}

// OpenStore connects to the configured backend. The Qdrant collection is created when missing.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendPgVector:
		store, err := storage.NewPgVectorStore(ctx, storage.PgVectorConfig{
			ConnString: cfg.Store.DatabaseURL,
			Table:      cfg.Store.Collection,
			Dimension:  cfg.Embedding.Dimension,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		return store, nil

	case config.BackendQdrant:
		store, err := storage.NewQdrantStorage(storage.QdrantConfig{
			Host:       cfg.Store.QdrantHost,
			Port:       cfg.Store.QdrantPort,
			Collection: cfg.Store.Collection,
			Dimension:  cfg.Embedding.Dimension,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		if err := store.EnsureCollection(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to ensure collection: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalidConfig, cfg.Store.Backend)
}

// NewEmbedder creates the embedder for the configured provider.
func NewEmbedder(cfg *config.Config, logger *slog.Logger) (*embedding.Embedder, error) {
	var provider embedding.Provider
	var err error
	switch cfg.Embedding.Provider {
	case config.ProviderOllama:
		provider, err = embedding.NewOllamaProvider(cfg.Embedding.Model, cfg.Embedding.OllamaBaseURL)
	case config.ProviderOpenAI:
		provider, err = embedding.NewOpenAIProvider(cfg.Embedding.OpenAIAPIKey, cfg.Embedding.Model, cfg.Embedding.Dimension)
	default:
		err = fmt.Errorf("%w: unknown embedding provider %q", config.ErrInvalidConfig, cfg.Embedding.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}

	return embedding.NewEmbedder(provider, embedding.Config{
		BatchSize:         cfg.Embedding.BatchSize,
		RequestsPerSecond: cfg.Embedding.RateLimit,
		Dimension:         cfg.Embedding.Dimension,
		Logger:            logger,
	}), nil
}
