package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	// DefaultBatchSize keeps single requests well under provider token limits.
	DefaultBatchSize = 100

	// DefaultRequestsPerSecond paces batch requests to the provider.
	DefaultRequestsPerSecond = 5
)

// Config tunes an Embedder. Zero values take the defaults.
type Config struct {
	BatchSize         int
	RequestsPerSecond float64
	// Dimension, when positive, is checked against every returned vector.
	Dimension int
	Logger    *slog.Logger
}

// Embedder generates embeddings through a Provider.
// It batches requests, paces them with a rate limiter and retries rate limit and
// availability errors with exponential backoff.
type Embedder struct {
	provider   Provider
	batchSize  int
	dimension  int
	limiter    *rate.Limiter
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
}

// NewEmbedder creates an Embedder for the given provider.
func NewEmbedder(provider Provider, cfg Config) *Embedder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{
		provider:   provider,
		batchSize:  cfg.BatchSize,
		dimension:  cfg.Dimension,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		newBackOff: defaultBackOff,
		logger:     logger,
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// Dimension is the configured vector length, 0 when unchecked.
func (e *Embedder) Dimension() int {
	return e.dimension
}

// GenerateEmbeddings returns one embedding per text, in input order.
func (e *Embedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	all := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))

		embeddings, err := e.embedBatchWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		all = append(all, embeddings...)
	}

	return all, nil
}

// EmbedText embeds a single text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

func (e *Embedder) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32

	operation := func() error {
		if err := e.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		out, err := e.provider.Embed(ctx, texts)
		if err != nil {
			if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable) {
				e.logger.Warn("Embedding request failed, retrying",
					"provider", e.provider.Name(), "batch", len(texts), "error", err)
				return err
			}
			return backoff.Permanent(err)
		}

		if err := e.check(texts, out); err != nil {
			return backoff.Permanent(err)
		}
		embeddings = out
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(e.newBackOff(), ctx))
	return embeddings, err
}

func (e *Embedder) check(texts []string, embeddings [][]float32) error {
	if len(embeddings) != len(texts) {
		return fmt.Errorf("%w: sent %d texts, got %d vectors", ErrCountMismatch, len(texts), len(embeddings))
	}
	if e.dimension <= 0 {
		return nil
	}
	for i, v := range embeddings {
		if len(v) != e.dimension {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(v), e.dimension)
		}
	}
	return nil
}
