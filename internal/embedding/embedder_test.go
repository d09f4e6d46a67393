package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// fakeProvider returns vectors whose first component is the text length.
type fakeProvider struct {
	dimension int
	failures  []error
	batches   [][]string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.batches = append(f.batches, texts)
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = make([]float32, f.dimension)
		out[i][0] = float32(len(text))
	}
	return out, nil
}

func newTestEmbedder(p Provider, cfg Config) *Embedder {
	e := NewEmbedder(p, cfg)
	e.limiter = rate.NewLimiter(rate.Inf, 1)
	e.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3)
	}
	return e
}

func TestGenerateEmbeddings_Batches(t *testing.T) {
	provider := &fakeProvider{dimension: 4}
	e := newTestEmbedder(provider, Config{BatchSize: 2, Dimension: 4})

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	embeddings, err := e.GenerateEmbeddings(context.Background(), texts)
	require.NoError(t, err)

	require.Len(t, embeddings, 5)
	for i, v := range embeddings {
		assert.Equal(t, float32(len(texts[i])), v[0], "order is preserved")
	}
	assert.Len(t, provider.batches, 3)
	assert.Equal(t, []string{"eeeee"}, provider.batches[2])
}

func TestGenerateEmbeddings_Empty(t *testing.T) {
	provider := &fakeProvider{dimension: 4}
	e := newTestEmbedder(provider, Config{})

	embeddings, err := e.GenerateEmbeddings(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, embeddings)
	assert.Empty(t, provider.batches)
}

func TestGenerateEmbeddings_RetriesTransientErrors(t *testing.T) {
	provider := &fakeProvider{
		dimension: 2,
		failures: []error{
			fmt.Errorf("%w: slow down", ErrRateLimited),
			fmt.Errorf("%w: 503", ErrUnavailable),
		},
	}
	e := newTestEmbedder(provider, Config{})

	embeddings, err := e.GenerateEmbeddings(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Len(t, embeddings, 1)
	assert.Len(t, provider.batches, 3)
}

func TestGenerateEmbeddings_PermanentErrorNotRetried(t *testing.T) {
	provider := &fakeProvider{dimension: 2, failures: []error{errors.New("bad request")}}
	e := newTestEmbedder(provider, Config{})

	_, err := e.GenerateEmbeddings(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad request")
	assert.Len(t, provider.batches, 1)
}

func TestGenerateEmbeddings_GivesUpAfterRetries(t *testing.T) {
	provider := &fakeProvider{dimension: 2}
	for range 10 {
		provider.failures = append(provider.failures, ErrRateLimited)
	}
	e := newTestEmbedder(provider, Config{})

	_, err := e.GenerateEmbeddings(context.Background(), []string{"hello"})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Len(t, provider.batches, 4)
}

func TestGenerateEmbeddings_DimensionMismatch(t *testing.T) {
	e := newTestEmbedder(&fakeProvider{dimension: 3}, Config{Dimension: 8})

	_, err := e.GenerateEmbeddings(context.Background(), []string{"hello"})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestGenerateEmbeddings_CancelledContext(t *testing.T) {
	e := NewEmbedder(&fakeProvider{dimension: 2}, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.GenerateEmbeddings(ctx, []string{"hello"})
	assert.Error(t, err)
}

func TestEmbedText(t *testing.T) {
	e := newTestEmbedder(&fakeProvider{dimension: 2}, Config{Dimension: 2})

	v, err := e.EmbedText(context.Background(), "four")
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 0}, v)
	assert.Equal(t, 2, e.Dimension())
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider("", "", 0)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	p, err := NewOpenAIProvider("sk-test", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "openai/text-embedding-3-small", p.Name())
}

func TestToFloat32(t *testing.T) {
	assert.Equal(t, []float32{0.5, -1, 0}, toFloat32([]float64{0.5, -1, 0}))
}
