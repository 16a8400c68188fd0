package document

import "strings"

// Chapter path sentinels. Unknown marks pages before the first outline
// entry; General is the starting label for the heading-heuristic path.
const (
	UnknownChapter = "Unknown"
	GeneralChapter = "General"
)

// PathSeparator joins outline titles into a chapter path,
// e.g. "Install > Prerequisites".
const PathSeparator = " > "

// JoinPath builds a chapter path from the non-empty levels, shallowest first.
func JoinPath(levels []string) string {
	parts := make([]string, 0, len(levels))
	for _, l := range levels {
		if l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, PathSeparator)
}

// OutlineEntry is one row of a document's table of contents.
// Page is 1-indexed, as reported by document readers.
type OutlineEntry struct {
	Level int    `json:"level"`
	Title string `json:"title"`
	Page  int    `json:"page"`
}

// ParsedBlock is one retained page with its chapter label. Blocks are
// created by the structure extractor and never mutated afterward.
type ParsedBlock struct {
	Page    int    `json:"page"`
	Chapter string `json:"chapter"`
	Text    string `json:"text"`
}

// Chunk is a bounded passage of text, the unit stored for retrieval.
// ChunkIndex is a document-global counter: strictly increasing, 1-based,
// never reset across chapter or page boundaries.
type Chunk struct {
	ID         string   `json:"id"`
	Source     string   `json:"source"`
	Chapter    string   `json:"chapter"`
	Page       int      `json:"page"`
	ChunkIndex int      `json:"chunk_index"`
	Text       string   `json:"text"`
	Keywords   []string `json:"keywords,omitempty"`
}
