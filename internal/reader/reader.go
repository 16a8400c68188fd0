package reader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgallion1/manualqa/internal/document"
)

// Document is a paginated view of an ingested manual. Implementations
// return raw page text; cleanup happens downstream. Outline may be empty,
// in which case the structure extractor falls back to heading heuristics.
type Document interface {
	PageCount() int
	PageText(i int) string
	Outline() []document.OutlineEntry
	Source() string
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".pdf":      true,
	".docx":     true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".txt":      true,
}

// Open reads the file at path with the reader matching its extension.
func Open(path string) (Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return OpenPDF(path)
	case ".docx":
		return OpenDOCX(path)
	case ".md", ".markdown":
		return OpenMarkdown(path)
	case ".html", ".htm":
		return OpenHTML(path)
	case ".txt":
		return OpenText(path)
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// SourceLabel derives the chunk id prefix from a filename. The label feeds
// into chunk ids, so path separators and spaces are squashed.
func SourceLabel(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		base = "document"
	}
	return base
}

// pagedDocument is the shared backing for readers that materialize all
// pages up front.
type pagedDocument struct {
	pages   []string
	outline []document.OutlineEntry
	source  string
}

func (d *pagedDocument) PageCount() int { return len(d.pages) }

func (d *pagedDocument) PageText(i int) string {
	if i < 0 || i >= len(d.pages) {
		return ""
	}
	return d.pages[i]
}

func (d *pagedDocument) Outline() []document.OutlineEntry { return d.outline }

func (d *pagedDocument) Source() string { return d.source }
