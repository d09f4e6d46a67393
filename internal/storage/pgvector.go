package storage

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgVectorConfig configures the Postgres idea store.
type PgVectorConfig struct {
	ConnString string
	Table      string // defaults to DefaultCollection
	Dimension  int    // defaults to DefaultVectorDimension
}

var _ Store = (*PgVectorStore)(nil)

// PgVectorStore keeps idea embeddings in a Postgres table using the pgvector extension.
type PgVectorStore struct {
	pool      *pgxpool.Pool
	table     string
	dimension int
}

// NewPgVectorStore connects to Postgres and makes sure the table exists.
func NewPgVectorStore(ctx context.Context, cfg PgVectorConfig) (*PgVectorStore, error) {
	if cfg.Table == "" {
		cfg.Table = DefaultCollection
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultVectorDimension
	}

	pool, err := pgxpool.New(ctx, cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &PgVectorStore{
		pool:      pool,
		table:     pgx.Identifier{cfg.Table}.Sanitize(),
		dimension: cfg.Dimension,
	}

	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PgVectorStore) initialize(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			title TEXT PRIMARY KEY,
			document TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, s.table, s.dimension)
	if _, err := s.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	return nil
}

// Health pings the database.
func (s *PgVectorStore) Health(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// UpsertIdea stores or replaces an idea keyed by its title.
func (s *PgVectorStore) UpsertIdea(ctx context.Context, idea *Idea) error {
	if len(idea.Embedding) != s.dimension {
		return fmt.Errorf("%w: idea %q has %d dimensions, expected %d",
			ErrDimensionMismatch, idea.Title, len(idea.Embedding), s.dimension)
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (title, document, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (title) DO UPDATE SET
			document = EXCLUDED.document,
			embedding = EXCLUDED.embedding`, s.table)

	_, err := s.pool.Exec(ctx, stmt,
		sanitizeUTF8(idea.Title),
		sanitizeUTF8(idea.Document),
		pgvector.NewVector(idea.Embedding),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert idea %q: %w", idea.Title, err)
	}
	return nil
}

// DeleteIdea removes an idea by title. Deleting a missing idea is not an error.
func (s *PgVectorStore) DeleteIdea(ctx context.Context, title string) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE title = $1", s.table), title)
	if err != nil {
		return fmt.Errorf("failed to delete idea %q: %w", title, err)
	}
	return nil
}

// SearchSimilar returns the titles of the ideas closest to the embedding by cosine distance.
func (s *PgVectorStore) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]string, error) {
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), s.dimension)
	}

	query := fmt.Sprintf(`SELECT title FROM %s ORDER BY embedding <=> $1 LIMIT $2`, s.table)
	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search ideas: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// GetIdea retrieves a single idea with its embedding.
// Returns ErrIdeaNotFound if no idea has the title.
func (s *PgVectorStore) GetIdea(ctx context.Context, title string) (*Idea, error) {
	query := fmt.Sprintf(`SELECT title, document, embedding FROM %s WHERE title = $1`, s.table)

	var idea Idea
	var embedding pgvector.Vector
	err := s.pool.QueryRow(ctx, query, title).Scan(&idea.Title, &idea.Document, &embedding)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrIdeaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get idea %q: %w", title, err)
	}
	idea.Embedding = embedding.Slice()
	return &idea, nil
}

// GetAll returns up to maxItems ideas ordered by title.
func (s *PgVectorStore) GetAll(ctx context.Context, maxItems int) (*Corpus, error) {
	query := fmt.Sprintf(`SELECT title, document, embedding FROM %s ORDER BY title`, s.table)
	args := []any{}
	if maxItems > 0 {
		query += " LIMIT $1"
		args = append(args, maxItems)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ideas: %w", err)
	}
	defer rows.Close()

	corpus := &Corpus{}
	for rows.Next() {
		var title, document string
		var embedding pgvector.Vector
		if err := rows.Scan(&title, &document, &embedding); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		corpus.IDs = append(corpus.IDs, title)
		corpus.Documents = append(corpus.Documents, document)
		corpus.Embeddings = append(corpus.Embeddings, embedding.Slice())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ideas: %w", err)
	}
	return corpus, nil
}

// Count returns the number of stored ideas.
func (s *PgVectorStore) Count(ctx context.Context) (uint64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count ideas: %w", err)
	}
	return uint64(n), nil
}

// Close releases the connection pool.
func (s *PgVectorStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// sanitizeUTF8 drops invalid bytes, which Postgres rejects in TEXT columns.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
