package toc

import (
	"fmt"
	"strings"
)

// Markdown renders the tree as an outline: headings as markdown headings, ideas as list
// items, each followed by its originality.
func (t Tree) Markdown() string {
	var b strings.Builder
	t.Walk(func(n Node, depth int) {
		switch v := n.(type) {
		case *Heading:
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%s %s (%s)\n", strings.Repeat("#", min(v.Level, 6)), v.Title, v.Originality)
		case *Leaf:
			fmt.Fprintf(&b, "- %s (%s)\n", v.Title, v.Originality)
		}
	})
	return b.String()
}
