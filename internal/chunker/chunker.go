package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dgallion1/manualqa/internal/document"
	"github.com/dgallion1/manualqa/internal/structure"
)

// DefaultMaxChars is the soft cap on chunk length. A single paragraph
// longer than the cap is never split mid-paragraph; it becomes its own
// chunk regardless of length.
const DefaultMaxChars = 2000

var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// Chunk merges the paragraphs of each block into bounded passages. Chunk
// indices come from one document-global counter starting at 1; the counter
// is never reset between blocks, so ids are unique and order-preserving
// across the whole document. Paragraph text is normalized before
// accumulation, after the blank-line split (normalization flattens
// newlines, so it cannot run first).
func Chunk(blocks []document.ParsedBlock, source string, maxChars int) []document.Chunk {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var chunks []document.Chunk
	index := 0
	for _, block := range blocks {
		current := ""
		for _, para := range paragraphSplit.Split(block.Text, -1) {
			para = structure.Normalize(para)
			if para == "" {
				continue
			}
			if len(current)+len(para) < maxChars {
				if current == "" {
					current = para
				} else {
					current += " " + para
				}
				continue
			}
			if current != "" {
				index++
				chunks = append(chunks, newChunk(source, block, index, current))
			}
			current = para
		}
		if current != "" {
			index++
			chunks = append(chunks, newChunk(source, block, index, current))
		}
	}
	return chunks
}

func newChunk(source string, block document.ParsedBlock, index int, text string) document.Chunk {
	return document.Chunk{
		ID:         fmt.Sprintf("%s_p%d_c%d", source, block.Page, index),
		Source:     source,
		Chapter:    block.Chapter,
		Page:       block.Page,
		ChunkIndex: index,
		Text:       strings.TrimSpace(text),
	}
}
