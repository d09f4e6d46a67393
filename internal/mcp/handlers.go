package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/idea-toc-server/internal/ideas"
	"github.com/bull/idea-toc-server/internal/originality"
	"github.com/bull/idea-toc-server/internal/storage"
	"github.com/bull/idea-toc-server/internal/toc"
)

func tocOutput(tree toc.Tree) TOCOutput {
	if tree == nil {
		tree = toc.Tree{}
	}
	stats := tree.Stats()
	return TOCOutput{
		Outline:  tree.Markdown(),
		TOC:      tree,
		Ideas:    stats.Ideas,
		Headings: stats.Headings,
		Depth:    stats.Depth,
	}
}

// describeBuildError turns build failures callers can act on into readable messages.
func describeBuildError(err error) error {
	if errors.Is(err, originality.ErrInsufficientData) {
		return fmt.Errorf("not enough ideas to build a table of contents: %w", err)
	}
	return fmt.Errorf("failed to build table of contents: %w", err)
}

// makeGetTOCHandler creates the get_toc tool handler.
// Serves the cached tree and builds it on a cache miss or when a refresh is requested.
func makeGetTOCHandler(t TOC) func(
	context.Context, *mcp.CallToolRequest, GetTOCInput,
) (*mcp.CallToolResult, TOCOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetTOCInput) (
		*mcp.CallToolResult, TOCOutput, error,
	) {
		var tree toc.Tree
		var err error
		if input.Refresh {
			tree, err = t.BuildWithLimit(ctx, 0)
		} else {
			tree, err = t.Cached(ctx)
		}
		if err != nil {
			return nil, TOCOutput{}, describeBuildError(err)
		}
		return nil, tocOutput(tree), nil
	}
}

// makeRebuildHandler creates the rebuild_toc tool handler.
func makeRebuildHandler(t TOC) func(
	context.Context, *mcp.CallToolRequest, RebuildTOCInput,
) (*mcp.CallToolResult, TOCOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RebuildTOCInput) (
		*mcp.CallToolResult, TOCOutput, error,
	) {
		if input.MaxItems < 0 {
			return nil, TOCOutput{}, fmt.Errorf("max_items must not be negative")
		}
		tree, err := t.BuildWithLimit(ctx, input.MaxItems)
		if err != nil {
			return nil, TOCOutput{}, describeBuildError(err)
		}
		return nil, tocOutput(tree), nil
	}
}

// makeSimilarHandler creates the find_similar_ideas tool handler.
func makeSimilarHandler(svc Ideas) func(
	context.Context, *mcp.CallToolRequest, FindSimilarInput,
) (*mcp.CallToolResult, FindSimilarOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input FindSimilarInput) (
		*mcp.CallToolResult, FindSimilarOutput, error,
	) {
		if strings.TrimSpace(input.Query) == "" {
			return nil, FindSimilarOutput{}, fmt.Errorf("query must not be empty")
		}

		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = ideas.DefaultSimilar
		}

		titles, err := svc.Similar(ctx, input.Query, maxResults)
		if err != nil {
			return nil, FindSimilarOutput{}, fmt.Errorf("search failed: %w", err)
		}

		if len(titles) == 0 {
			return nil, FindSimilarOutput{
				Titles:  []string{},
				Message: "No ideas stored yet.",
			}, nil
		}
		return nil, FindSimilarOutput{Titles: titles}, nil
	}
}

// makeAddIdeaHandler creates the add_idea tool handler.
// A duplicate title is reported in the output rather than as a tool error.
func makeAddIdeaHandler(svc Ideas) func(
	context.Context, *mcp.CallToolRequest, IdeaInput,
) (*mcp.CallToolResult, IdeaOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IdeaInput) (
		*mcp.CallToolResult, IdeaOutput, error,
	) {
		err := svc.Add(ctx, input.Title, input.Content)
		switch {
		case errors.Is(err, ideas.ErrIdeaExists):
			return nil, IdeaOutput{
				Title:   input.Title,
				Status:  "exists",
				Message: "An idea with this title already exists. Use update_idea to change it.",
			}, nil
		case err != nil:
			return nil, IdeaOutput{}, fmt.Errorf("failed to add idea: %w", err)
		}
		return nil, IdeaOutput{Title: input.Title, Status: "added"}, nil
	}
}

// makeUpdateIdeaHandler creates the update_idea tool handler.
func makeUpdateIdeaHandler(svc Ideas) func(
	context.Context, *mcp.CallToolRequest, IdeaInput,
) (*mcp.CallToolResult, IdeaOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IdeaInput) (
		*mcp.CallToolResult, IdeaOutput, error,
	) {
		err := svc.Update(ctx, input.Title, input.Content)
		switch {
		case errors.Is(err, storage.ErrIdeaNotFound):
			return nil, IdeaOutput{Title: input.Title, Status: "not_found"}, nil
		case err != nil:
			return nil, IdeaOutput{}, fmt.Errorf("failed to update idea: %w", err)
		}
		return nil, IdeaOutput{Title: input.Title, Status: "updated"}, nil
	}
}

// makeRemoveIdeaHandler creates the remove_idea tool handler.
func makeRemoveIdeaHandler(svc Ideas) func(
	context.Context, *mcp.CallToolRequest, RemoveIdeaInput,
) (*mcp.CallToolResult, IdeaOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RemoveIdeaInput) (
		*mcp.CallToolResult, IdeaOutput, error,
	) {
		err := svc.Remove(ctx, input.Title)
		switch {
		case errors.Is(err, storage.ErrIdeaNotFound):
			return nil, IdeaOutput{Title: input.Title, Status: "not_found"}, nil
		case err != nil:
			return nil, IdeaOutput{}, fmt.Errorf("failed to remove idea: %w", err)
		}
		return nil, IdeaOutput{Title: input.Title, Status: "removed"}, nil
	}
}
