package toc

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/idea-toc-server/internal/storage"
)

var themes = []struct {
	words string
	axis  int
}{
	{"solar panels energy roof", 0},
	{"bread baking sourdough flour", 5},
	{"guitar chords melody practice", 10},
}

// themedDocs returns perTheme documents for each theme. Embeddings point along the theme's
// axis with a little reproducible noise, so clustering recovers the themes.
func themedDocs(perTheme int) ([]Document, []float64) {
	rng := rand.New(rand.NewPCG(11, 12))
	var docs []Document
	var scores []float64
	for ti, theme := range themes {
		for i := 0; i < perTheme; i++ {
			id := fmt.Sprintf("%s idea %d", theme.words[:5], i)
			emb := make([]float32, 16)
			emb[theme.axis] = 1
			for d := range emb {
				emb[d] += float32(rng.Float64() * 0.05)
			}
			docs = append(docs, Document{
				ID:        id,
				Text:      storage.FormatIdea(id, fmt.Sprintf("Notes about %s number %d", theme.words, i)),
				Embedding: emb,
			})
			scores = append(scores, float64(ti*perTheme+i)/float64(len(themes)*perTheme-1))
		}
	}
	return docs, scores
}

func newTestPartitioner() *Partitioner {
	return NewPartitioner(NewTitler(nil), DefaultMaxDepth)
}

func TestPartition_LeafCondition(t *testing.T) {
	p := newTestPartitioner()
	docs := []Document{
		{ID: "First", Text: storage.FormatIdea("First", "alpha body"), Embedding: []float32{1, 0}},
		{ID: "Second", Text: storage.FormatIdea("Second", "beta body"), Embedding: []float32{0, 1}},
	}

	tree, err := p.Partition(docs, []float64{0.126, 1}, 1)
	require.NoError(t, err)
	require.Len(t, tree, 2)

	first, ok := tree[0].(*Leaf)
	require.True(t, ok)
	assert.Equal(t, &Leaf{Title: "First", Text: "alpha body", ID: "First", Originality: "13%"}, first)

	second := tree[1].(*Leaf)
	assert.Equal(t, "Second", second.ID)
	assert.Equal(t, "100%", second.Originality)
}

func TestPartition_BeyondMaxDepthReturnsLeaves(t *testing.T) {
	p := newTestPartitioner()
	docs, scores := themedDocs(3)

	tree, err := p.Partition(docs, scores, DefaultMaxDepth+1)
	require.NoError(t, err)
	require.Len(t, tree, len(docs))
	for i, n := range tree {
		leaf, ok := n.(*Leaf)
		require.True(t, ok)
		assert.Equal(t, docs[i].ID, leaf.ID, "input order is preserved")
	}
}

func TestPartition_ThreeNearIdenticalDocuments(t *testing.T) {
	p := newTestPartitioner()
	docs := []Document{
		{ID: "a", Text: "a\n\nsame thing", Embedding: []float32{1, 0, 0}},
		{ID: "b", Text: "b\n\nsame thing", Embedding: []float32{1, 0.001, 0}},
		{ID: "c", Text: "c\n\nsame thing", Embedding: []float32{1, 0, 0.001}},
	}

	tree, err := p.Partition(docs, []float64{0, 0.5, 1}, 1)
	require.NoError(t, err)

	require.Len(t, tree, 2, "k = max(2, floor(sqrt(3))) = 2")
	for _, n := range tree {
		h, ok := n.(*Heading)
		require.True(t, ok)
		assert.Equal(t, 1, h.Level)
		assert.NotEmpty(t, h.Children)
	}
	assert.Len(t, tree.Leaves(), 3)
}

func TestPartition_Invariants(t *testing.T) {
	p := newTestPartitioner()
	docs, scores := themedDocs(10)

	tree, err := p.Partition(docs, scores, 1)
	require.NoError(t, err)

	// Every document appears exactly once.
	leaves := tree.Leaves()
	require.Len(t, leaves, len(docs))
	seen := make(map[string]int)
	for _, l := range leaves {
		seen[l.ID]++
	}
	for _, d := range docs {
		assert.Equal(t, 1, seen[d.ID], "document %q", d.ID)
	}

	var check func(nodes Tree, level int)
	check = func(nodes Tree, level int) {
		for _, n := range nodes {
			h, ok := n.(*Heading)
			if !ok {
				continue
			}
			assert.Equal(t, level, h.Level)
			assert.NotEmpty(t, h.Children)
			assert.NotEmpty(t, h.Title)
			check(h.Children, level+1)
		}
	}
	check(tree, 1)
	assert.LessOrEqual(t, tree.Stats().Depth, DefaultMaxDepth+1)
}

func TestPartition_SeparatesThemes(t *testing.T) {
	p := newTestPartitioner()
	docs, scores := themedDocs(4)

	// floor(sqrt(12)) = 3 clusters, one per theme.
	tree, err := p.Partition(docs, scores, 1)
	require.NoError(t, err)
	require.Len(t, tree, 3)

	for i, n := range tree {
		h := n.(*Heading)
		ids := h.Children.Leaves()
		require.Len(t, ids, 4)
		for _, l := range ids {
			assert.Contains(t, l.ID, themes[i].words[:5])
		}
	}

	// Mean of scores 0..3 out of 11 is 1.5/11 = 13.6%.
	assert.Equal(t, "14%", tree[0].(*Heading).Originality)
}

func TestPartition_Idempotent(t *testing.T) {
	p := newTestPartitioner()
	docs, scores := themedDocs(7)

	first, err := p.Partition(docs, scores, 1)
	require.NoError(t, err)
	second, err := p.Partition(docs, scores, 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPartition_LengthMismatch(t *testing.T) {
	p := newTestPartitioner()
	docs, _ := themedDocs(2)

	_, err := p.Partition(docs, []float64{0.1}, 1)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "0%", formatPercent(0))
	assert.Equal(t, "100%", formatPercent(1))
	assert.Equal(t, "50%", formatPercent(0.5))
	assert.Equal(t, "7%", formatPercent(0.066))
}
