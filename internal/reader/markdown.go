package reader

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// OpenMarkdown reads a Markdown manual via the goldmark AST. ATX/setext
// headings become outline entries and delimit synthetic pages.
func OpenMarkdown(path string) (Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	b := newSectionBuilder()
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if heading, ok := n.(*ast.Heading); ok {
			title := strings.TrimSpace(string(heading.Text(src)))
			if title != "" {
				b.startSection(heading.Level, title)
			}
			continue
		}
		if t := markdownBlockText(n, src); t != "" {
			b.addText(t)
		}
	}

	pages, outline := b.finish()
	return &pagedDocument{pages: pages, outline: outline, source: SourceLabel(path)}, nil
}

// markdownBlockText extracts the plain text of a non-heading block node.
func markdownBlockText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t := markdownBlockText(c, src); t != "" {
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(t)
		}
	}
	return strings.TrimSpace(buf.String())
}
