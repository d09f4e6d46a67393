// Package toc organizes the idea corpus into a hierarchical table of contents.
//
// A Builder snapshots the embedding store, scores every idea's originality, and hands the
// scored documents to a Partitioner, which recursively clusters them into Headings (named
// by a Titler) and Leaf entries. The finished Tree is kept in a Cache file so readers do
// not pay for a rebuild on every request.
package toc

import (
	"encoding/json"
	"fmt"
	"math"
)

// Node type discriminators used in the JSON form.
const (
	TypeIdea    = "idea"
	TypeHeading = "heading"
)

// Node is an entry of the table of contents: either a *Leaf or a *Heading.
type Node interface {
	NodeType() string
}

// Leaf is a single idea.
type Leaf struct {
	Title       string `json:"title"`
	Text        string `json:"text"`
	ID          string `json:"id"`
	Originality string `json:"originality"`
}

// Heading groups similar ideas under a synthesized title.
type Heading struct {
	Title       string `json:"title"`
	Level       int    `json:"level"`
	Children    Tree   `json:"children"`
	Originality string `json:"originality"`
}

// Tree is an ordered sequence of sibling nodes. The root tree holds level 1 headings.
type Tree []Node

func (*Leaf) NodeType() string    { return TypeIdea }
func (*Heading) NodeType() string { return TypeHeading }

func (l *Leaf) MarshalJSON() ([]byte, error) {
	type leaf Leaf
	return json.Marshal(struct {
		Type string `json:"type"`
		*leaf
	}{TypeIdea, (*leaf)(l)})
}

func (h *Heading) MarshalJSON() ([]byte, error) {
	type heading Heading
	children := h.Children
	if children == nil {
		children = Tree{}
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		*heading
		Children Tree `json:"children"`
	}{TypeHeading, (*heading)(h), children})
}

// UnmarshalJSON decodes an array of nodes, dispatching on each object's "type" field.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	nodes := make(Tree, 0, len(raw))
	for i, msg := range raw {
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &probe); err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}

		switch probe.Type {
		case TypeIdea:
			var leaf Leaf
			if err := json.Unmarshal(msg, &leaf); err != nil {
				return fmt.Errorf("node %d: %w", i, err)
			}
			nodes = append(nodes, &leaf)
		case TypeHeading:
			var heading Heading
			if err := json.Unmarshal(msg, &heading); err != nil {
				return fmt.Errorf("node %d: %w", i, err)
			}
			nodes = append(nodes, &heading)
		default:
			return fmt.Errorf("node %d: %w %q", i, ErrUnknownNodeType, probe.Type)
		}
	}

	*t = nodes
	return nil
}

// Walk visits every node depth-first in display order. depth is 1 for root nodes.
func (t Tree) Walk(fn func(n Node, depth int)) {
	t.walk(fn, 1)
}

func (t Tree) walk(fn func(n Node, depth int), depth int) {
	for _, n := range t {
		fn(n, depth)
		if h, ok := n.(*Heading); ok {
			h.Children.walk(fn, depth+1)
		}
	}
}

// Leaves returns every idea in display order.
func (t Tree) Leaves() []*Leaf {
	var leaves []*Leaf
	t.Walk(func(n Node, _ int) {
		if l, ok := n.(*Leaf); ok {
			leaves = append(leaves, l)
		}
	})
	return leaves
}

// Stats summarizes the shape of a tree.
type Stats struct {
	Ideas    int
	Headings int
	Depth    int
}

// Stats counts ideas and headings and measures the deepest nesting.
func (t Tree) Stats() Stats {
	var s Stats
	t.Walk(func(n Node, depth int) {
		switch n.(type) {
		case *Leaf:
			s.Ideas++
		case *Heading:
			s.Headings++
		}
		s.Depth = max(s.Depth, depth)
	})
	return s
}

// formatPercent renders a [0, 1] score as a rounded percentage such as "42%".
func formatPercent(score float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(score*100)))
}
