package keywords

import (
	"sync"

	rake "github.com/afjoseph/RAKE.Go"

	"github.com/dgallion1/manualqa/internal/document"
)

// DefaultTopK is the number of ranked phrases kept per chunk.
const DefaultTopK = 5

var warmOnce sync.Once

// warm primes RAKE's embedded stopword list and phrase splitters so the
// first real extraction does not pay the setup cost. Safe to call from
// multiple goroutines; runs once per process.
func warm() {
	warmOnce.Do(func() {
		rake.RunRake("")
	})
}

// Extract attaches the topK highest-ranked phrases of each chunk's text, in
// rank order, to its Keywords field in place. A chunk yielding no phrases
// gets an empty slice, not an error.
func Extract(chunks []document.Chunk, topK int) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	warm()
	for i := range chunks {
		pairs := rake.RunRake(chunks[i].Text)
		kw := make([]string, 0, topK)
		for _, p := range pairs {
			if len(kw) == topK {
				break
			}
			kw = append(kw, p.Key)
		}
		chunks[i].Keywords = kw
	}
}
