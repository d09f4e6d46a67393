package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultCollection is the Qdrant collection (or Postgres table) holding idea embeddings.
const DefaultCollection = "ideas"

// DefaultVectorDimension matches text-embedding-3-small.
const DefaultVectorDimension = 1536

// Idea is one entry of the embedding store. Title doubles as the stable identifier.
type Idea struct {
	Title     string
	Document  string    // FormatIdea(title, content), the text that was embedded
	Embedding []float32 // Fixed-length vector for the document
}

// Corpus is a snapshot of the store: three parallel sequences in the same order.
type Corpus struct {
	IDs        []string
	Documents  []string
	Embeddings [][]float32
}

// Len returns the number of items in the snapshot.
func (c *Corpus) Len() int {
	return len(c.IDs)
}

// Validate checks that the three sequences line up.
func (c *Corpus) Validate() error {
	if len(c.Documents) != len(c.IDs) || len(c.Embeddings) != len(c.IDs) {
		return fmt.Errorf("%w: %d ids, %d documents, %d embeddings",
			ErrCorpusMismatch, len(c.IDs), len(c.Documents), len(c.Embeddings))
	}
	return nil
}

// Store is the embedding store contract shared by the Qdrant and pgvector backends.
type Store interface {
	UpsertIdea(ctx context.Context, idea *Idea) error
	DeleteIdea(ctx context.Context, title string) error
	GetIdea(ctx context.Context, title string) (*Idea, error)
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]string, error)
	GetAll(ctx context.Context, maxItems int) (*Corpus, error)
	Health(ctx context.Context) error
	Close() error
}

// FormatIdea builds the text stored and embedded for an idea.
func FormatIdea(title, content string) string {
	return title + "\n\n" + content
}

// UnformatIdea strips the id prefix FormatIdea added, returning the display body.
// Text without the prefix is returned trimmed but otherwise unchanged.
func UnformatIdea(id, text string) string {
	if id != "" {
		text = strings.TrimPrefix(text, id)
	}
	return strings.TrimSpace(text)
}

// PointID derives a stable UUID for an idea title. Qdrant only accepts UUID or integer ids.
func PointID(title string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(title)).String()
}
