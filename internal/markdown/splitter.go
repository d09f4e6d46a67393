package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Note is one idea extracted from a markdown document.
type Note struct {
	Title   string // Heading text, unique within the document
	Path    string // Hierarchy: "# Doc Title > ## Section Name"
	Content string // Section body without its heading
}

// Splitter turns a markdown notes file into ideas, one per H1 or H2 section.
type Splitter struct {
	parser goldmark.Markdown
}

// NewSplitter creates a new markdown splitter configured with goldmark parser.
func NewSplitter() *Splitter {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Splitter{
		parser: md,
	}
}

type section struct {
	title     string
	parent    string
	path      string
	lineStart int // offset of the heading line
	bodyStart int // offset just past the heading
}

// Split returns the document's ideas in document order.
//
// Every H1 and H2 heading with a non-empty body becomes a Note whose body runs to the next
// H1 or H2; deeper headings stay in the body. Text before the first heading (or the whole
// document when it has no headings) becomes a Note titled fallbackTitle. A title repeated
// within the document is qualified with its parent heading, then numbered.
func (s *Splitter) Split(source []byte, fallbackTitle string) ([]Note, error) {
	reader := text.NewReader(source)
	doc := s.parser.Parser().Parse(reader)

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	var sections []section
	collectSections(doc, source, tree.Items, nil, &sections)

	var notes []Note
	used := make(map[string]int)
	add := func(n Note) {
		if used[n.Title] > 0 {
			base := n.Title
			for used[n.Title] > 0 {
				n.Title = fmt.Sprintf("%s (%d)", base, used[base]+1)
				used[base]++
			}
		}
		used[n.Title]++
		notes = append(notes, n)
	}

	firstHeading := len(source)
	if len(sections) > 0 {
		firstHeading = sections[0].lineStart
	}
	if preamble := strings.TrimSpace(string(source[:firstHeading])); preamble != "" && fallbackTitle != "" {
		add(Note{Title: fallbackTitle, Content: preamble})
	}

	for i, sec := range sections {
		end := len(source)
		if i+1 < len(sections) {
			end = sections[i+1].lineStart
		}
		if sec.bodyStart >= end {
			continue
		}
		body := strings.TrimSpace(string(source[sec.bodyStart:end]))
		if body == "" {
			continue
		}

		title := sec.title
		if used[title] > 0 && sec.parent != "" {
			title = sec.parent + " / " + title
		}
		add(Note{Title: title, Path: sec.path, Content: body})
	}

	return notes, nil
}

// collectSections flattens the TOC in document order and locates each heading in the source.
func collectSections(doc ast.Node, source []byte, items toc.Items, ancestors []string, out *[]section) {
	for _, item := range items {
		title := strings.TrimSpace(string(item.Title))
		currentPath := append(append([]string(nil), ancestors...), title)

		if heading := findHeaderByID(doc, string(item.ID)); heading != nil && title != "" {
			lines := heading.Lines()
			if lines.Len() > 0 {
				start := lineStart(source, lines.At(0).Start)
				body := nextLine(source, lines.At(lines.Len()-1).Start)
				if !isATX(source[start:]) {
					// Setext heading: skip the underline.
					body = nextLine(source, body)
				}

				var parent string
				if len(ancestors) > 0 {
					parent = ancestors[len(ancestors)-1]
				}
				*out = append(*out, section{
					title:     title,
					parent:    parent,
					path:      formatHeaderPath(currentPath),
					lineStart: start,
					bodyStart: body,
				})
			}
		}

		if len(item.Items) > 0 {
			collectSections(doc, source, item.Items, currentPath, out)
		}
	}
}

// formatHeaderPath builds a header hierarchy string.
// Example: ["Installation", "Prerequisites"] -> "# Installation > ## Prerequisites"
func formatHeaderPath(path []string) string {
	if len(path) == 0 {
		return ""
	}

	var parts []string
	for i, segment := range path {
		prefix := strings.Repeat("#", i+1)
		parts = append(parts, fmt.Sprintf("%s %s", prefix, segment))
	}

	return strings.Join(parts, " > ")
}

// findHeaderByID locates a heading node by its auto-generated ID.
func findHeaderByID(node ast.Node, id string) ast.Node {
	var found ast.Node
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			heading := n.(*ast.Heading)
			headingID, ok := heading.AttributeString("id")
			if ok && string(headingID.([]byte)) == id {
				found = n
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

func lineStart(source []byte, pos int) int {
	return bytes.LastIndexByte(source[:pos], '\n') + 1
}

func nextLine(source []byte, pos int) int {
	if pos >= len(source) {
		return len(source)
	}
	i := bytes.IndexByte(source[pos:], '\n')
	if i < 0 {
		return len(source)
	}
	return pos + i + 1
}

func isATX(line []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(line, " "), []byte("#"))
}
