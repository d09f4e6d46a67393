// Package ideas implements the write and lookup paths of the idea corpus: every idea is
// stored under its title with the embedding of its formatted text.
package ideas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bull/idea-toc-server/internal/storage"
)

// DefaultSimilar is the number of results Similar returns when n is not positive.
const DefaultSimilar = 10

var (
	ErrEmptyTitle = errors.New("idea title is empty")
	ErrIdeaExists = errors.New("idea already exists")
)

// Embedder embeds a single text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Service adds, updates, removes and searches ideas. It does not touch the table of
// contents cache: a rebuild picks up the changes.
type Service struct {
	store    storage.Store
	embedder Embedder
	logger   *slog.Logger
}

// NewService creates a service over the given store and embedder.
func NewService(store storage.Store, embedder Embedder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, embedder: embedder, logger: logger}
}

// Add stores a new idea. It fails with ErrIdeaExists if the title is taken.
func (s *Service) Add(ctx context.Context, title, content string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}

	_, err := s.store.GetIdea(ctx, title)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %q", ErrIdeaExists, title)
	case !errors.Is(err, storage.ErrIdeaNotFound):
		return fmt.Errorf("check idea %q: %w", title, err)
	}

	if err := s.put(ctx, title, content); err != nil {
		return err
	}
	s.logger.Info("Added idea", "title", title)
	return nil
}

// Update replaces the content of an existing idea and re-embeds it.
func (s *Service) Update(ctx context.Context, title, content string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}

	if _, err := s.store.GetIdea(ctx, title); err != nil {
		return fmt.Errorf("update idea %q: %w", title, err)
	}

	if err := s.put(ctx, title, content); err != nil {
		return err
	}
	s.logger.Info("Updated idea", "title", title)
	return nil
}

// Put stores the idea whether or not it already exists.
func (s *Service) Put(ctx context.Context, title, content string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	return s.put(ctx, title, content)
}

func (s *Service) put(ctx context.Context, title, content string) error {
	document := storage.FormatIdea(title, content)
	embedding, err := s.embedder.EmbedText(ctx, document)
	if err != nil {
		return fmt.Errorf("embed idea %q: %w", title, err)
	}

	return s.store.UpsertIdea(ctx, &storage.Idea{
		Title:     title,
		Document:  document,
		Embedding: embedding,
	})
}

// Remove deletes an idea. It fails with storage.ErrIdeaNotFound if there is none.
func (s *Service) Remove(ctx context.Context, title string) error {
	if _, err := s.store.GetIdea(ctx, title); err != nil {
		return fmt.Errorf("remove idea %q: %w", title, err)
	}
	if err := s.store.DeleteIdea(ctx, title); err != nil {
		return err
	}
	s.logger.Info("Removed idea", "title", title)
	return nil
}

// Get returns the title and display content of an idea.
func (s *Service) Get(ctx context.Context, title string) (string, string, error) {
	idea, err := s.store.GetIdea(ctx, title)
	if err != nil {
		return "", "", err
	}
	return idea.Title, storage.UnformatIdea(idea.Title, idea.Document), nil
}

// Similar returns the titles of the n ideas closest to the query text, nearest first.
func (s *Service) Similar(ctx context.Context, query string, n int) ([]string, error) {
	if n <= 0 {
		n = DefaultSimilar
	}
	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.store.SearchSimilar(ctx, embedding, n)
}

// SimilarTo returns the titles of the n ideas closest to a stored idea, excluding itself.
func (s *Service) SimilarTo(ctx context.Context, title string, n int) ([]string, error) {
	if n <= 0 {
		n = DefaultSimilar
	}
	idea, err := s.store.GetIdea(ctx, title)
	if err != nil {
		return nil, err
	}

	titles, err := s.store.SearchSimilar(ctx, idea.Embedding, n+1)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, n)
	for _, t := range titles {
		if t != idea.Title && len(out) < n {
			out = append(out, t)
		}
	}
	return out, nil
}
