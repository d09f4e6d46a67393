package toc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bull/idea-toc-server/internal/storage"
)

// DefaultMaxItems caps how many ideas one build reads from the store.
const DefaultMaxItems = 500

// Source is the read side of the embedding store.
type Source interface {
	GetAll(ctx context.Context, maxItems int) (*storage.Corpus, error)
}

// Scorer assigns each embedding an originality score in [0, 1].
type Scorer interface {
	Score(embeddings [][]float32) ([]float64, error)
}

// BuilderConfig holds builder dependencies.
type BuilderConfig struct {
	Source      Source
	Cache       *Cache
	Scorer      Scorer
	Partitioner *Partitioner
	MaxItems    int // defaults to DefaultMaxItems
	Logger      *slog.Logger
}

// Builder turns the embedding store into a cached table of contents.
// It is the only part of the package that talks to the store or the cache.
type Builder struct {
	source      Source
	cache       *Cache
	scorer      Scorer
	partitioner *Partitioner
	maxItems    int
	logger      *slog.Logger

	// mu serializes builds so two rebuilds never race on the cache file.
	mu sync.Mutex
}

// NewBuilder creates a builder with the given dependencies.
func NewBuilder(cfg BuilderConfig) *Builder {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxItems := cfg.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &Builder{
		source:      cfg.Source,
		cache:       cfg.Cache,
		scorer:      cfg.Scorer,
		partitioner: cfg.Partitioner,
		maxItems:    maxItems,
		logger:      logger,
	}
}

// Build recomputes the tree from the store and overwrites the cache.
func (b *Builder) Build(ctx context.Context) (Tree, error) {
	return b.BuildWithLimit(ctx, b.maxItems)
}

// BuildWithLimit is Build reading at most maxItems ideas (<= 0 uses the configured cap).
// On any failure nothing is cached and the previous cache content is kept.
func (b *Builder) BuildWithLimit(ctx context.Context, maxItems int) (Tree, error) {
	if maxItems <= 0 {
		maxItems = b.maxItems
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	b.logger.Info("Starting TOC build", "max_items", maxItems)

	corpus, err := b.source.GetAll(ctx, maxItems)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	if corpus == nil {
		corpus = &storage.Corpus{}
	}
	if err := corpus.Validate(); err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	b.logger.Debug("Read corpus", "items", corpus.Len())

	scores, err := b.scorer.Score(corpus.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("score originality: %w", err)
	}

	docs := make([]Document, corpus.Len())
	for i := range docs {
		docs[i] = Document{
			ID:        corpus.IDs[i],
			Text:      corpus.Documents[i],
			Embedding: corpus.Embeddings[i],
		}
	}

	tree, err := b.partitioner.Partition(docs, scores, 1)
	if err != nil {
		return nil, fmt.Errorf("partition: %w", err)
	}

	if err := b.cache.Save(tree); err != nil {
		return nil, err
	}

	stats := tree.Stats()
	b.logger.Info("TOC build complete",
		"ideas", stats.Ideas,
		"headings", stats.Headings,
		"depth", stats.Depth,
		"duration", time.Since(start),
	)
	return tree, nil
}

// Cached returns the cached tree, building it on a cache miss. A cached tree is never
// considered stale; call Build after changing the corpus.
func (b *Builder) Cached(ctx context.Context) (Tree, error) {
	if tree, ok := b.cache.Load(); ok {
		return tree, nil
	}
	b.logger.Info("TOC cache miss, building")
	return b.Build(ctx)
}
