package toc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/bull/idea-toc-server/internal/cluster"
	"github.com/bull/idea-toc-server/internal/storage"
)

// DefaultMaxDepth is the deepest heading level the partitioner creates.
const DefaultMaxDepth = 3

// Document is an idea as seen by the partitioner: its id, the formatted text that was
// embedded, and the embedding itself.
type Document struct {
	ID        string
	Text      string
	Embedding []float32
}

// Partitioner recursively clusters documents into headings and leaves.
// It holds no per-call state, so one instance can serve concurrent builds.
type Partitioner struct {
	titler   *Titler
	maxDepth int
}

// NewPartitioner creates a partitioner. maxDepth <= 0 uses DefaultMaxDepth.
func NewPartitioner(titler *Titler, maxDepth int) *Partitioner {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Partitioner{titler: titler, maxDepth: maxDepth}
}

// Partition builds the nodes for one level of the table of contents.
//
// Two documents or fewer, or a level past the maximum depth, yield one Leaf per document in
// input order. Otherwise the documents are split into max(2, floor(sqrt(n))) clusters by
// average-linkage cosine clustering, and each cluster becomes a Heading, emitted in
// ascending cluster-label order, whose children are partitioned at level+1.
func (p *Partitioner) Partition(docs []Document, originality []float64, level int) (Tree, error) {
	if len(docs) != len(originality) {
		return nil, fmt.Errorf("%w: %d documents, %d scores", ErrLengthMismatch, len(docs), len(originality))
	}

	if len(docs) <= 2 || level > p.maxDepth {
		return leaves(docs, originality), nil
	}

	k := max(2, int(math.Sqrt(float64(len(docs)))))
	vectors := make([][]float32, len(docs))
	for i, d := range docs {
		vectors[i] = d.Embedding
	}
	labels := cluster.Agglomerate(vectors, k)

	groups := make([][]int, k)
	for i, label := range labels {
		groups[label] = append(groups[label], i)
	}

	tree := make(Tree, 0, k)
	for _, members := range groups {
		if len(members) == 0 {
			continue
		}

		subDocs := make([]Document, len(members))
		subScores := make([]float64, len(members))
		texts := make([]string, len(members))
		for j, idx := range members {
			subDocs[j] = docs[idx]
			subScores[j] = originality[idx]
			texts[j] = docs[idx].Text
		}

		children, err := p.Partition(subDocs, subScores, level+1)
		if err != nil {
			return nil, err
		}

		tree = append(tree, &Heading{
			Title:       p.titler.Title(texts),
			Level:       level,
			Children:    children,
			Originality: formatPercent(stat.Mean(subScores, nil)),
		})
	}

	return tree, nil
}

func leaves(docs []Document, originality []float64) Tree {
	tree := make(Tree, len(docs))
	for i, d := range docs {
		tree[i] = &Leaf{
			Title:       d.ID,
			Text:        storage.UnformatIdea(d.ID, d.Text),
			ID:          d.ID,
			Originality: formatPercent(originality[i]),
		}
	}
	return tree
}
