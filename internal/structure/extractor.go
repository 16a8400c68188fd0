package structure

import (
	"sort"
	"strings"
	"unicode"

	"github.com/dgallion1/manualqa/internal/document"
	"github.com/dgallion1/manualqa/internal/reader"
)

const (
	// Pages shorter than these floors carry no usable content and are
	// dropped. The heuristic path uses the stricter floor because it
	// also has to trust the page for heading detection.
	minPageChars      = 20
	minHeuristicChars = 30

	// Heading candidates are only searched in the first lines of a page.
	headingScanLines = 5
)

// BuildPageChapters maps every page index in [0, totalPages) to a chapter
// path derived from the outline. The mapping is total: pages before the
// first outline entry are labeled Unknown, and each entry's path covers the
// half-open page range up to the next entry (the last entry runs to the end
// of the document). Outline target pages are 1-indexed and clamped into
// document bounds rather than dropped.
func BuildPageChapters(outline []document.OutlineEntry, totalPages int) []string {
	paths := make([]string, totalPages)
	for i := range paths {
		paths[i] = document.UnknownChapter
	}
	if totalPages == 0 || len(outline) == 0 {
		return paths
	}

	maxLevel := 0
	for _, e := range outline {
		if e.Level > maxLevel {
			maxLevel = e.Level
		}
	}

	// Walk entries in appearance order keeping the active title per level.
	// An entry at level L invalidates everything at L and deeper.
	active := make([]string, maxLevel+1)
	type pageChapter struct {
		page int
		path string
	}
	entries := make([]pageChapter, 0, len(outline))
	for _, e := range outline {
		if e.Level < 1 {
			continue
		}
		for l := e.Level; l <= maxLevel; l++ {
			active[l] = ""
		}
		active[e.Level] = strings.TrimSpace(e.Title)

		path := document.JoinPath(active[1:])
		if path == "" {
			path = document.UnknownChapter
		}

		page := e.Page - 1
		if page < 0 {
			page = 0
		}
		if page > totalPages-1 {
			page = totalPages - 1
		}
		entries = append(entries, pageChapter{page: page, path: path})
	}
	if len(entries) == 0 {
		return paths
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].page < entries[j].page })

	for i, e := range entries {
		end := totalPages
		if i+1 < len(entries) {
			end = entries[i+1].page
		}
		for p := e.page; p < end; p++ {
			paths[p] = e.path
		}
	}
	return paths
}

// ExtractBlocks labels every retained page of doc with its chapter path.
// With an outline present the page->chapter mapping drives labeling;
// without one (or with an empty one) headings are detected heuristically.
// This never fails: worst case every block is labeled Unknown or General.
func ExtractBlocks(doc reader.Document) []document.ParsedBlock {
	total := doc.PageCount()
	outline := doc.Outline()
	if len(outline) == 0 {
		return extractHeuristic(doc, total)
	}

	paths := BuildPageChapters(outline, total)
	var blocks []document.ParsedBlock
	for p := 0; p < total; p++ {
		text := strings.TrimSpace(doc.PageText(p))
		if len(text) < minPageChars {
			continue
		}
		blocks = append(blocks, document.ParsedBlock{Page: p, Chapter: paths[p], Text: text})
	}
	return blocks
}

// extractHeuristic scans pages in order, carrying the most recently seen
// heading forward as the current chapter. Pages below the length floor are
// skipped entirely and never update the chapter.
func extractHeuristic(doc reader.Document, total int) []document.ParsedBlock {
	current := document.GeneralChapter
	var blocks []document.ParsedBlock
	for p := 0; p < total; p++ {
		text := strings.TrimSpace(doc.PageText(p))
		if len(text) < minHeuristicChars {
			continue
		}

		lines := strings.Split(text, "\n")
		if len(lines) > headingScanLines {
			lines = lines[:headingScanLines]
		}
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if isHeadingLine(line) {
				current = line
				break
			}
		}

		blocks = append(blocks, document.ParsedBlock{Page: p, Chapter: current, Text: text})
	}
	return blocks
}

// isHeadingLine reports whether a trimmed line looks like a chapter
// heading: entirely upper-case with 2 to 6 words.
func isHeadingLine(line string) bool {
	words := strings.Fields(line)
	if len(words) < 2 || len(words) > 6 {
		return false
	}
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			hasLetter = true
		}
	}
	return hasLetter
}
