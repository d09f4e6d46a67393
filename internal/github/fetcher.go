package github

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/go-github/v81/github"
)

// ErrInvalidLocation is returned by ParseLocation for strings that are not owner/repo[/path].
var ErrInvalidLocation = errors.New("expected owner/repo[/path]")

// Location identifies a directory of notes inside a repository.
type Location struct {
	Owner    string
	Repo     string
	BasePath string
	Ref      string // branch, tag or commit; empty means the default branch
}

// ParseLocation parses "owner/repo[/path][@ref]".
func ParseLocation(s string) (Location, error) {
	var loc Location
	if at := strings.LastIndex(s, "@"); at >= 0 {
		loc.Ref = s[at+1:]
		s = s[:at]
	}

	parts := strings.SplitN(strings.Trim(s, "/"), "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Location{}, fmt.Errorf("%w: %q", ErrInvalidLocation, s)
	}
	loc.Owner, loc.Repo = parts[0], parts[1]
	if len(parts) == 3 {
		loc.BasePath = parts[2]
	}
	return loc, nil
}

func (l Location) String() string {
	s := path.Join(l.Owner, l.Repo, l.BasePath)
	if l.Ref != "" {
		s += "@" + l.Ref
	}
	return s
}

// FetchedNote is a markdown notes file fetched from GitHub.
type FetchedNote struct {
	Path    string // Relative to the location's base path
	Content string
	SHA     string // Git blob SHA
}

// Fetcher reads markdown notes from a GitHub repository directory.
type Fetcher struct {
	client *Client
	loc    Location
}

// NewFetcher creates a new notes fetcher
func NewFetcher(client *Client, loc Location) *Fetcher {
	return &Fetcher{client: client, loc: loc}
}

// Location returns the directory the fetcher reads from.
func (f *Fetcher) Location() Location {
	return f.loc
}

func (f *Fetcher) contentOptions() *github.RepositoryContentGetOptions {
	if f.loc.Ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: f.loc.Ref}
}

// ListNotes recursively lists all markdown files under the base path.
func (f *Fetcher) ListNotes(ctx context.Context) ([]string, error) {
	return f.listRecursive(ctx, f.loc.BasePath, "")
}

func (f *Fetcher) listRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	var notes []string

	_, dirContents, _, err := f.client.Repositories.GetContents(
		ctx,
		f.loc.Owner,
		f.loc.Repo,
		fullPath,
		f.contentOptions(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", fullPath, err)
	}

	for _, item := range dirContents {
		name := item.GetName()
		if name == "" {
			continue
		}
		itemRelPath := path.Join(relativePath, name)

		switch item.GetType() {
		case "file":
			if IsMarkdown(name) {
				notes = append(notes, itemRelPath)
			}
		case "dir":
			subNotes, err := f.listRecursive(ctx, path.Join(fullPath, name), itemRelPath)
			if err != nil {
				return nil, err
			}
			notes = append(notes, subNotes...)
		}
	}

	return notes, nil
}

// FetchNote fetches the content of one markdown file.
func (f *Fetcher) FetchNote(ctx context.Context, relativePath string) (*FetchedNote, error) {
	fullPath := path.Join(f.loc.BasePath, relativePath)

	fileContent, _, _, err := f.client.Repositories.GetContents(
		ctx,
		f.loc.Owner,
		f.loc.Repo,
		fullPath,
		f.contentOptions(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", fullPath, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("no file content returned for %s", fullPath)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", fullPath, err)
	}

	return &FetchedNote{
		Path:    relativePath,
		Content: content,
		SHA:     fileContent.GetSHA(),
	}, nil
}

// LatestCommitSHA retrieves the SHA of the most recent commit touching the base path.
func (f *Fetcher) LatestCommitSHA(ctx context.Context) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(
		ctx,
		f.loc.Owner,
		f.loc.Repo,
		&github.CommitsListOptions{
			SHA:  f.loc.Ref,
			Path: f.loc.BasePath,
			ListOptions: github.ListOptions{
				PerPage: 1,
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}
	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for path %s", f.loc.BasePath)
	}

	sha := commits[0].GetSHA()
	if sha == "" {
		return "", fmt.Errorf("commit SHA is empty")
	}
	return sha, nil
}

// IsMarkdown reports whether a file name has a markdown extension.
func IsMarkdown(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".md" || ext == ".markdown"
}
