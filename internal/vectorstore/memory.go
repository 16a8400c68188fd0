package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/dgallion1/manualqa/internal/document"
)

// Memory is an in-process Store used for tests and single-node local runs.
type Memory struct {
	mu      sync.RWMutex
	entries []memoryEntry
}

type memoryEntry struct {
	chunk  document.Chunk
	vector []float64
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Upsert(ctx context.Context, chunks []document.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errLengthMismatch
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range chunks {
		replaced := false
		for j := range m.entries {
			if m.entries[j].chunk.ID == chunks[i].ID {
				m.entries[j] = memoryEntry{chunk: chunks[i], vector: vectors[i]}
				replaced = true
				break
			}
		}
		if !replaced {
			m.entries = append(m.entries, memoryEntry{chunk: chunks[i], vector: vectors[i]})
		}
	}
	return nil
}

func (m *Memory) SimilaritySearch(ctx context.Context, vector []float64, k int, filter map[string]string) ([]Retrieved, error) {
	if k <= 0 {
		k = 3
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []Retrieved
	for _, e := range m.entries {
		if !matchesFilter(e.chunk, filter) {
			continue
		}
		results = append(results, Retrieved{
			Text:    e.chunk.Text,
			Chapter: e.chunk.Chapter,
			Page:    e.chunk.Page,
			Score:   cosine(vector, e.vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *Memory) AllMetadata(ctx context.Context) ([]Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Metadata, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, Metadata{
			Source:   e.chunk.Source,
			Chapter:  e.chunk.Chapter,
			Page:     e.chunk.Page,
			Keywords: e.chunk.Keywords,
		})
	}
	return out, nil
}

func (m *Memory) DeleteSource(ctx context.Context, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.chunk.Source != source {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return nil
}

func matchesFilter(c document.Chunk, filter map[string]string) bool {
	for key, val := range filter {
		switch key {
		case "chapter":
			if c.Chapter != val {
				return false
			}
		case "source":
			if c.Source != val {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
