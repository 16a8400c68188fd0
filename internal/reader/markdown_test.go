package reader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestOpenMarkdown_HeadingsBecomeOutline(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content.

### Subsection A1

Subsection A1 content.

## Section B

Section B content.
`
	doc, err := OpenMarkdown(writeTemp(t, "doc.md", input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outline := doc.Outline()
	if len(outline) != 4 {
		t.Fatalf("expected 4 outline entries, got %d", len(outline))
	}

	wantTitles := []string{"Title", "Section A", "Subsection A1", "Section B"}
	wantLevels := []int{1, 2, 3, 2}
	for i, e := range outline {
		if e.Title != wantTitles[i] {
			t.Errorf("entry %d: expected title %q, got %q", i, wantTitles[i], e.Title)
		}
		if e.Level != wantLevels[i] {
			t.Errorf("entry %d: expected level %d, got %d", i, wantLevels[i], e.Level)
		}
	}

	// Each heading opens a new page; pages match outline entries 1:1.
	if doc.PageCount() != 4 {
		t.Fatalf("expected 4 pages, got %d", doc.PageCount())
	}
	for i, e := range outline {
		if e.Page != i+1 {
			t.Errorf("entry %d: expected page %d, got %d", i, i+1, e.Page)
		}
	}

	if !strings.Contains(doc.PageText(0), "Intro text.") {
		t.Errorf("expected first page to contain intro, got %q", doc.PageText(0))
	}
	if !strings.Contains(doc.PageText(1), "Section A content.") {
		t.Errorf("expected second page to contain section A, got %q", doc.PageText(1))
	}
}

func TestOpenMarkdown_NoHeadings(t *testing.T) {
	input := `Just some plain text.

Another paragraph here.`

	doc, err := OpenMarkdown(writeTemp(t, "plain.md", input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(doc.Outline()) != 0 {
		t.Errorf("expected empty outline, got %d entries", len(doc.Outline()))
	}
	if doc.PageCount() != 1 {
		t.Fatalf("expected 1 page, got %d", doc.PageCount())
	}
	text := doc.PageText(0)
	if !strings.Contains(text, "Just some plain text.") {
		t.Errorf("expected text to contain first paragraph, got %q", text)
	}
	if !strings.Contains(text, "Another paragraph here.") {
		t.Errorf("expected text to contain second paragraph, got %q", text)
	}
}

func TestOpenMarkdown_CodeBlocks(t *testing.T) {
	input := "# API Reference\n\nSome intro.\n\n## Endpoints\n\nList of endpoints:\n\n```\nGET /api/users\nPOST /api/users\n```\n\nMore text after code.\n"

	doc, err := OpenMarkdown(writeTemp(t, "api.md", input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.PageCount() != 2 {
		t.Fatalf("expected 2 pages, got %d", doc.PageCount())
	}
	endpoints := doc.PageText(1)
	if !strings.Contains(endpoints, "GET /api/users") {
		t.Errorf("expected code block content in text, got %q", endpoints)
	}
	if !strings.Contains(endpoints, "More text after code.") {
		t.Errorf("expected post-code text, got %q", endpoints)
	}
}

func TestSourceLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"manual.pdf", "manual"},
		{"/tmp/upload/User Guide v2.pdf", "User_Guide_v2"},
		{"notes.markdown", "notes"},
		{"setup-1.2.pdf", "setup-1.2"},
	}
	for _, tt := range tests {
		if got := SourceLabel(tt.path); got != tt.want {
			t.Errorf("SourceLabel(%q): expected %q, got %q", tt.path, tt.want, got)
		}
	}
}

func TestIsSupportedExtension(t *testing.T) {
	if !IsSupportedExtension("manual.PDF") {
		t.Error("expected .PDF to be supported")
	}
	if IsSupportedExtension("archive.zip") {
		t.Error("expected .zip to be unsupported")
	}
}
