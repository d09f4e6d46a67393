// Package mcp exposes the idea table of contents and the idea store as MCP tools and as
// plain HTTP endpoints.
package mcp

// GetTOCInput defines the input parameters for the get_toc tool.
type GetTOCInput struct {
	// Refresh forces a rebuild instead of serving the cached tree.
	Refresh bool `json:"refresh,omitempty" jsonschema:"rebuild the table of contents instead of using the cached one"`
}

// RebuildTOCInput defines the input parameters for the rebuild_toc tool.
type RebuildTOCInput struct {
	// MaxItems caps how many ideas the build reads.
	MaxItems int `json:"max_items,omitempty" jsonschema:"maximum number of ideas to include, default 500"`
}

// TOCOutput contains a table of contents.
type TOCOutput struct {
	// Outline is the tree rendered as markdown, one line per heading or idea.
	Outline string `json:"outline"`
	// TOC is the tree itself: headings with children, and ideas.
	TOC any `json:"toc"`
	// Ideas is the number of ideas in the tree.
	Ideas int `json:"ideas"`
	// Headings is the number of headings in the tree.
	Headings int `json:"headings"`
	// Depth is the deepest nesting level.
	Depth int `json:"depth"`
}

// FindSimilarInput defines the input parameters for the find_similar_ideas tool.
type FindSimilarInput struct {
	// Query is the text to compare ideas against.
	Query string `json:"query" jsonschema:"text describing the idea to find neighbours for"`
	// MaxResults is the maximum number of titles to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"maximum number of ideas to return, default 10"`
}

// FindSimilarOutput contains the titles of the closest ideas, nearest first.
type FindSimilarOutput struct {
	Titles  []string `json:"titles"`
	Message string   `json:"message,omitempty"`
}

// IdeaInput defines the input parameters for the add_idea and update_idea tools.
type IdeaInput struct {
	// Title identifies the idea.
	Title string `json:"title" jsonschema:"unique title of the idea"`
	// Content is the body of the idea.
	Content string `json:"content" jsonschema:"body text of the idea"`
}

// RemoveIdeaInput defines the input parameters for the remove_idea tool.
type RemoveIdeaInput struct {
	Title string `json:"title" jsonschema:"title of the idea to remove"`
}

// IdeaOutput reports the result of a write.
type IdeaOutput struct {
	Title   string `json:"title"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
