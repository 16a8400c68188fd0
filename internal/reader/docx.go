package reader

import (
	"fmt"
	"os"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/manualqa/internal/document"
)

// OpenDOCX reads a Word document. DOCX has no native pagination, so each
// heading starts a synthetic page and Heading1..6 styles become outline
// entries pointing at it.
func OpenDOCX(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat docx: %w", err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	b := newSectionBuilder()
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		if level := docxHeadingLevel(para); level > 0 {
			b.startSection(level, text)
		} else {
			b.addText(text)
		}
	}

	pages, outline := b.finish()
	return &pagedDocument{pages: pages, outline: outline, source: SourceLabel(path)}, nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	switch strings.TrimPrefix(style, "heading") {
	case "1":
		return 1
	case "2":
		return 2
	case "3":
		return 3
	case "4":
		return 4
	case "5":
		return 5
	case "6":
		return 6
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// sectionBuilder accumulates heading-delimited synthetic pages shared by
// the DOCX, Markdown and HTML readers.
type sectionBuilder struct {
	pages   []string
	outline []document.OutlineEntry
	current strings.Builder
}

func newSectionBuilder() *sectionBuilder {
	return &sectionBuilder{}
}

// startSection flushes the current page and opens a new one titled by the
// heading. The heading text stays on the page so chunks keep their context.
func (b *sectionBuilder) startSection(level int, title string) {
	b.flush()
	b.outline = append(b.outline, document.OutlineEntry{
		Level: level,
		Title: title,
		Page:  len(b.pages) + 1, // 1-indexed target of the page about to be built
	})
	b.current.WriteString(title)
}

func (b *sectionBuilder) addText(text string) {
	if b.current.Len() > 0 {
		b.current.WriteString("\n\n")
	}
	b.current.WriteString(text)
}

func (b *sectionBuilder) flush() {
	if b.current.Len() == 0 {
		return
	}
	b.pages = append(b.pages, b.current.String())
	b.current.Reset()
}

func (b *sectionBuilder) finish() ([]string, []document.OutlineEntry) {
	b.flush()
	return b.pages, b.outline
}
