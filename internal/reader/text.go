package reader

import (
	"fmt"
	"os"
	"strings"
)

// Plain text carries no outline, so chapter labels come from the heading
// heuristic. Files are paginated on form feeds when present, otherwise on
// fixed line groups so heading scans still see section starts.
const textLinesPerPage = 60

// OpenText reads a plain-text manual.
func OpenText(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}

	content := string(data)
	var pages []string
	if strings.Contains(content, "\f") {
		pages = strings.Split(content, "\f")
	} else {
		pages = paginateLines(content, textLinesPerPage)
	}

	return &pagedDocument{pages: pages, source: SourceLabel(path)}, nil
}

func paginateLines(content string, perPage int) []string {
	lines := strings.Split(content, "\n")
	var pages []string
	for start := 0; start < len(lines); start += perPage {
		end := start + perPage
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, strings.Join(lines[start:end], "\n"))
	}
	return pages
}
