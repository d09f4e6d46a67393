// Package importer loads ideas into the embedding store from markdown notes.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/bull/idea-toc-server/internal/markdown"
	"github.com/bull/idea-toc-server/internal/storage"
)

// Result contains statistics about an import.
type Result struct {
	TotalFiles      int
	SuccessfulFiles int
	Ideas           int
	// Replaced counts ideas whose title appeared earlier in the same import; the later
	// file wins because titles are ids.
	Replaced    int
	FailedFiles []FailedFile
	Revision    string
	Duration    time.Duration
}

// FailedFile represents a notes file that failed to import.
type FailedFile struct {
	Path   string
	Reason string
}

// Embedder generates one embedding per text.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Writer is the write side of the embedding store.
type Writer interface {
	UpsertIdea(ctx context.Context, idea *storage.Idea) error
}

// ProgressFunc is called after each file with the number of files done so far.
type ProgressFunc func(done, total int, path string)

// Pipeline orchestrates the import from listing files to storage.
type Pipeline struct {
	source   Source
	splitter *markdown.Splitter
	embedder Embedder
	store    Writer
	logger   *slog.Logger
	progress ProgressFunc
}

// NewPipeline creates a new import pipeline with the given components.
func NewPipeline(
	source Source,
	splitter *markdown.Splitter,
	embedder Embedder,
	store Writer,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:   source,
		splitter: splitter,
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// OnProgress registers a progress callback.
func (p *Pipeline) OnProgress(fn ProgressFunc) {
	p.progress = fn
}

// ImportAll imports every notes file of the source. A file that fails is recorded in the
// result and skipped; only listing failures abort the import.
func (p *Pipeline) ImportAll(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}

	revision, err := p.source.Revision(ctx)
	if err != nil {
		return nil, fmt.Errorf("get revision: %w", err)
	}
	result.Revision = revision
	p.logger.Info("Starting import", "source", p.source.String(), "revision", revision)

	paths, err := p.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	result.TotalFiles = len(paths)
	p.logger.Info("Found notes files", "count", len(paths))

	seen := make(map[string]string)
	for i, filePath := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		titles, err := p.importFile(ctx, filePath)
		if err != nil {
			p.logger.Warn("Failed to import notes file", "path", filePath, "error", err)
			result.FailedFiles = append(result.FailedFiles, FailedFile{
				Path:   filePath,
				Reason: err.Error(),
			})
		} else {
			result.SuccessfulFiles++
			result.Ideas += len(titles)
			for _, title := range titles {
				if prev, ok := seen[title]; ok {
					result.Replaced++
					p.logger.Warn("Idea title imported twice, keeping the later one",
						"title", title, "first", prev, "second", filePath)
				}
				seen[title] = filePath
			}
		}

		if p.progress != nil {
			p.progress(i+1, len(paths), filePath)
		}
	}

	result.Duration = time.Since(start)
	p.logger.Info("Import complete",
		"successful", result.SuccessfulFiles,
		"failed", len(result.FailedFiles),
		"ideas", result.Ideas,
		"duration", result.Duration,
	)

	return result, nil
}

// importFile splits one file into ideas, embeds them in one batch and stores them.
// Returns the titles stored.
func (p *Pipeline) importFile(ctx context.Context, filePath string) ([]string, error) {
	content, err := p.source.Read(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	notes, err := p.splitter.Split(content, fileTitle(filePath))
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	if len(notes) == 0 {
		p.logger.Debug("No ideas in notes file", "path", filePath)
		return nil, nil
	}

	documents := make([]string, len(notes))
	for i, note := range notes {
		documents[i] = storage.FormatIdea(note.Title, note.Content)
	}

	embeddings, err := p.embedder.GenerateEmbeddings(ctx, documents)
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}

	titles := make([]string, len(notes))
	for i, note := range notes {
		if err := p.store.UpsertIdea(ctx, &storage.Idea{
			Title:     note.Title,
			Document:  documents[i],
			Embedding: embeddings[i],
		}); err != nil {
			return nil, fmt.Errorf("store idea %q: %w", note.Title, err)
		}
		titles[i] = note.Title
	}

	p.logger.Debug("Imported notes file", "path", filePath, "ideas", len(notes))
	return titles, nil
}

// fileTitle turns "projects/solar-kites.md" into "solar kites".
func fileTitle(filePath string) string {
	base := path.Base(filePath)
	base = strings.TrimSuffix(base, path.Ext(base))
	return strings.NewReplacer("-", " ", "_", " ").Replace(base)
}
