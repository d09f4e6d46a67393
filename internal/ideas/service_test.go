package ideas

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/idea-toc-server/internal/storage"
)

// memoryStore is an in-memory storage.Store ranking by dot product.
type memoryStore struct {
	ideas map[string]*storage.Idea
}

func newMemoryStore() *memoryStore {
	return &memoryStore{ideas: make(map[string]*storage.Idea)}
}

func (m *memoryStore) UpsertIdea(_ context.Context, idea *storage.Idea) error {
	m.ideas[idea.Title] = idea
	return nil
}

func (m *memoryStore) DeleteIdea(_ context.Context, title string) error {
	delete(m.ideas, title)
	return nil
}

func (m *memoryStore) GetIdea(_ context.Context, title string) (*storage.Idea, error) {
	idea, ok := m.ideas[title]
	if !ok {
		return nil, storage.ErrIdeaNotFound
	}
	return idea, nil
}

func (m *memoryStore) SearchSimilar(_ context.Context, embedding []float32, limit int) ([]string, error) {
	type scored struct {
		title string
		score float64
	}
	var all []scored
	for _, idea := range m.ideas {
		var dot float64
		for i := range embedding {
			dot += float64(embedding[i] * idea.Embedding[i])
		}
		all = append(all, scored{idea.Title, dot})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].title < all[j].title
	})
	var titles []string
	for i := 0; i < len(all) && i < limit; i++ {
		titles = append(titles, all[i].title)
	}
	return titles, nil
}

func (m *memoryStore) GetAll(context.Context, int) (*storage.Corpus, error) { return &storage.Corpus{}, nil }
func (m *memoryStore) Health(context.Context) error { return nil }
func (m *memoryStore) Close() error { return nil }

// keywordEmbedder maps texts onto three axes by keyword.
type keywordEmbedder struct {
	err   error
	texts []string
}

func (k *keywordEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	k.texts = append(k.texts, text)
	if k.err != nil {
		return nil, k.err
	}
	v := []float32{0.01, 0.01, 0.01}
	lower := strings.ToLower(text)
	for i, word := range []string{"solar", "bread", "guitar"} {
		v[i] += float32(strings.Count(lower, word))
	}
	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	for i := range v {
		v[i] /= float32(math.Sqrt(norm))
	}
	return v, nil
}

func newTestService() (*Service, *memoryStore, *keywordEmbedder) {
	store := newMemoryStore()
	embedder := &keywordEmbedder{}
	return NewService(store, embedder, nil), store, embedder
}

func TestAdd(t *testing.T) {
	svc, store, embedder := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "  Solar kites ", "Kites carrying solar film"))

	idea := store.ideas["Solar kites"]
	require.NotNil(t, idea)
	assert.Equal(t, "Solar kites\n\nKites carrying solar film", idea.Document)
	assert.Equal(t, []string{idea.Document}, embedder.texts, "the formatted text is embedded")

	err := svc.Add(ctx, "Solar kites", "again")
	assert.ErrorIs(t, err, ErrIdeaExists)

	assert.ErrorIs(t, svc.Add(ctx, "   ", "x"), ErrEmptyTitle)
}

func TestUpdate(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	err := svc.Update(ctx, "Missing", "content")
	assert.ErrorIs(t, err, storage.ErrIdeaNotFound)

	require.NoError(t, svc.Add(ctx, "Sourdough", "Bread with wild yeast"))
	require.NoError(t, svc.Update(ctx, "Sourdough", "Bread with a rye starter"))
	assert.Equal(t, "Sourdough\n\nBread with a rye starter", store.ideas["Sourdough"].Document)

	title, content, err := svc.Get(ctx, "Sourdough")
	require.NoError(t, err)
	assert.Equal(t, "Sourdough", title)
	assert.Equal(t, "Bread with a rye starter", content)
}

func TestPut(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, "Chords", "first"))
	require.NoError(t, svc.Put(ctx, "Chords", "second"))
	assert.Equal(t, "Chords\n\nsecond", store.ideas["Chords"].Document)
	assert.ErrorIs(t, svc.Put(ctx, "", "x"), ErrEmptyTitle)
}

func TestRemove(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "Chords", "Guitar chord drills"))
	require.NoError(t, svc.Remove(ctx, "Chords"))
	assert.Empty(t, store.ideas)

	assert.ErrorIs(t, svc.Remove(ctx, "Chords"), storage.ErrIdeaNotFound)
}

func TestEmbedFailureStoresNothing(t *testing.T) {
	svc, store, embedder := newTestService()
	embedder.err = errors.New("provider down")

	err := svc.Add(context.Background(), "Solar kites", "content")
	require.Error(t, err)
	assert.Empty(t, store.ideas)
}

func TestSimilar(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "Rooftop panels", "solar solar energy"))
	require.NoError(t, svc.Add(ctx, "Solar oven", "cooking with solar heat"))
	require.NoError(t, svc.Add(ctx, "Sourdough", "bread baking"))
	require.NoError(t, svc.Add(ctx, "Chords", "guitar practice"))

	titles, err := svc.Similar(ctx, "solar power", 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Rooftop panels", "Solar oven"}, titles)

	titles, err = svc.Similar(ctx, "anything", 0)
	require.NoError(t, err)
	assert.Len(t, titles, 4, "default n covers the whole small corpus")
}

func TestSimilarTo(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "Rooftop panels", "solar solar energy"))
	require.NoError(t, svc.Add(ctx, "Solar oven", "cooking with solar heat"))
	require.NoError(t, svc.Add(ctx, "Sourdough", "bread baking"))

	titles, err := svc.SimilarTo(ctx, "Solar oven", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rooftop panels"}, titles)

	_, err = svc.SimilarTo(ctx, "Missing", 1)
	assert.ErrorIs(t, err, storage.ErrIdeaNotFound)
}
