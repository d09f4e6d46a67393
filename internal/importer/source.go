package importer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bull/idea-toc-server/internal/github"
)

// Source lists and reads markdown notes files.
type Source interface {
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, path string) ([]byte, error)
	// Revision identifies the snapshot being imported, empty when unknown.
	Revision(ctx context.Context) (string, error)
	String() string
}

// DirSource reads notes from a local directory tree.
type DirSource struct {
	root string
}

func NewDirSource(root string) *DirSource {
	return &DirSource{root: root}
}

func (d *DirSource) String() string {
	return d.root
}

// List returns slash-separated paths of markdown files relative to the root, sorted.
// Hidden directories are skipped.
func (d *DirSource) List(ctx context.Context) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(d.root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := entry.Name()
		if entry.IsDir() {
			if p != d.root && len(name) > 1 && name[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}
		if !github.IsMarkdown(name) {
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func (d *DirSource) Read(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.root, filepath.FromSlash(path)))
}

func (d *DirSource) Revision(context.Context) (string, error) {
	return "", nil
}

// GitHubSource reads notes from a repository directory.
type GitHubSource struct {
	fetcher *github.Fetcher
}

func NewGitHubSource(fetcher *github.Fetcher) *GitHubSource {
	return &GitHubSource{fetcher: fetcher}
}

func (g *GitHubSource) String() string {
	return "github.com/" + g.fetcher.Location().String()
}

func (g *GitHubSource) List(ctx context.Context) ([]string, error) {
	return g.fetcher.ListNotes(ctx)
}

func (g *GitHubSource) Read(ctx context.Context, path string) ([]byte, error) {
	note, err := g.fetcher.FetchNote(ctx, path)
	if err != nil {
		return nil, err
	}
	return []byte(note.Content), nil
}

func (g *GitHubSource) Revision(ctx context.Context) (string, error) {
	return g.fetcher.LatestCommitSHA(ctx)
}
