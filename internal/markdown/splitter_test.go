package markdown

import (
	"strings"
	"testing"
)

// TestSplit_BasicHeaders tests splitting with H1 and multiple H2s.
func TestSplit_BasicHeaders(t *testing.T) {
	input := `# Garden Ideas

Things to try this year.

## Raised Beds

Build cedar beds along the fence.

## Rain Barrel

Collect roof runoff for watering.
`

	notes, err := NewSplitter().Split([]byte(input), "garden")
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(notes) != 3 {
		t.Fatalf("Expected 3 notes, got %d", len(notes))
	}

	expected := []Note{
		{Title: "Garden Ideas", Path: "# Garden Ideas", Content: "Things to try this year."},
		{Title: "Raised Beds", Path: "# Garden Ideas > ## Raised Beds", Content: "Build cedar beds along the fence."},
		{Title: "Rain Barrel", Path: "# Garden Ideas > ## Rain Barrel", Content: "Collect roof runoff for watering."},
	}
	for i, want := range expected {
		if notes[i] != want {
			t.Errorf("Note %d: expected %+v, got %+v", i, want, notes[i])
		}
	}
}

// TestSplit_BodyStopsAtNextSection verifies an H1 body does not swallow its H2 children.
func TestSplit_BodyStopsAtNextSection(t *testing.T) {
	input := `# Parent

Parent body.

## Child

Child body.
`

	notes, err := NewSplitter().Split([]byte(input), "")
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if strings.Contains(notes[0].Content, "Child") {
		t.Errorf("Parent note leaked child content: %q", notes[0].Content)
	}
	if strings.Contains(notes[0].Content, "#") {
		t.Errorf("Parent note contains heading markers: %q", notes[0].Content)
	}
}

// TestSplit_NestedContent tests that complex content, including H3s, stays in the body.
func TestSplit_NestedContent(t *testing.T) {
	input := `# Tooling

Overview.

## Build Script

Steps:

` + "```sh" + `
make all
` + "```" + `

### Details

- Item 1
- Item 2
`

	notes, err := NewSplitter().Split([]byte(input), "")
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(notes) != 2 {
		t.Fatalf("Expected 2 notes, got %d", len(notes))
	}

	body := notes[1].Content
	for _, want := range []string{"make all", "### Details", "Item 2"} {
		if !strings.Contains(body, want) {
			t.Errorf("Build Script note missing %q", want)
		}
	}
}

// TestSplit_NoHeaders tests a document with no headers.
func TestSplit_NoHeaders(t *testing.T) {
	input := `A loose thought with no headers.

Second paragraph.
`

	notes, err := NewSplitter().Split([]byte(input), "loose-thought")
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(notes) != 1 {
		t.Fatalf("Expected 1 note, got %d", len(notes))
	}
	if notes[0].Title != "loose-thought" {
		t.Errorf("Expected fallback title, got %q", notes[0].Title)
	}
	if notes[0].Path != "" {
		t.Errorf("Expected empty path, got %q", notes[0].Path)
	}
	if !strings.HasPrefix(notes[0].Content, "A loose thought") {
		t.Errorf("Note missing expected content")
	}

	notes, err = NewSplitter().Split([]byte(input), "")
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("Expected no notes without a fallback title, got %d", len(notes))
	}
}

// TestSplit_Preamble tests text before the first heading.
func TestSplit_Preamble(t *testing.T) {
	input := `Intro line.

# First

Body.
`

	notes, err := NewSplitter().Split([]byte(input), "notes")
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(notes) != 2 {
		t.Fatalf("Expected 2 notes, got %d", len(notes))
	}
	if notes[0].Title != "notes" || notes[0].Content != "Intro line." {
		t.Errorf("Unexpected preamble note: %+v", notes[0])
	}
	if notes[1].Title != "First" {
		t.Errorf("Expected 'First', got %q", notes[1].Title)
	}
}

// TestSplit_EmptySections tests that headings without a body are skipped.
func TestSplit_EmptySections(t *testing.T) {
	input := `# Title

## Empty Section

## Another Section

Some content here.
`

	notes, err := NewSplitter().Split([]byte(input), "")
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(notes) != 1 {
		t.Fatalf("Expected 1 note, got %d", len(notes))
	}
	if notes[0].Title != "Another Section" {
		t.Errorf("Expected 'Another Section', got %q", notes[0].Title)
	}
	if notes[0].Content != "Some content here." {
		t.Errorf("Unexpected content %q", notes[0].Content)
	}
}

// TestSplit_DuplicateTitles tests that repeated titles stay unique.
func TestSplit_DuplicateTitles(t *testing.T) {
	input := `# Kitchen

## Ideas

Pot rack.

# Garage

## Ideas

Pegboard wall.

## Ideas

Bike hooks.
`

	notes, err := NewSplitter().Split([]byte(input), "")
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	titles := make([]string, len(notes))
	for i, n := range notes {
		titles[i] = n.Title
	}
	expected := []string{"Ideas", "Garage / Ideas", "Garage / Ideas (2)"}
	if strings.Join(titles, "|") != strings.Join(expected, "|") {
		t.Errorf("Expected titles %v, got %v", expected, titles)
	}
}

// TestSplit_SetextHeadings tests underlined headings.
func TestSplit_SetextHeadings(t *testing.T) {
	input := `Big Idea
========

Underlined body.

Smaller Idea
------------

Another body.
`

	notes, err := NewSplitter().Split([]byte(input), "")
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(notes) != 2 {
		t.Fatalf("Expected 2 notes, got %d", len(notes))
	}
	if notes[0].Title != "Big Idea" || notes[0].Content != "Underlined body." {
		t.Errorf("Unexpected first note: %+v", notes[0])
	}
	if notes[1].Content != "Another body." {
		t.Errorf("Unexpected second note content: %q", notes[1].Content)
	}
}

// TestFormatHeaderPath tests header path formatting.
func TestFormatHeaderPath(t *testing.T) {
	if got := formatHeaderPath(nil); got != "" {
		t.Errorf("Expected empty path, got %q", got)
	}
	if got := formatHeaderPath([]string{"A", "B"}); got != "# A > ## B" {
		t.Errorf("Expected '# A > ## B', got %q", got)
	}
}
