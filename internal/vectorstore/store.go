package vectorstore

import (
	"context"
	"errors"

	"github.com/dgallion1/manualqa/internal/document"
)

var errLengthMismatch = errors.New("chunks and vectors length mismatch")

// Retrieved is one passage returned by a similarity search. It is scoped
// to a single query and carries no identity beyond its text.
type Retrieved struct {
	Text    string
	Chapter string
	Page    int
	Score   float64
}

// Metadata is the stored payload of one passage, minus its text. Used at
// startup to discover the distinct chapter and keyword sets.
type Metadata struct {
	Source   string
	Chapter  string
	Page     int
	Keywords []string
}

// Store persists chunk vectors and serves filtered similarity search.
type Store interface {
	// Upsert writes chunks and their vectors; chunks[i] pairs with
	// vectors[i].
	Upsert(ctx context.Context, chunks []document.Chunk, vectors [][]float64) error

	// SimilaritySearch returns up to k passages nearest to vector,
	// restricted to payloads matching every filter entry exactly.
	SimilaritySearch(ctx context.Context, vector []float64, k int, filter map[string]string) ([]Retrieved, error)

	// AllMetadata returns the payload of every stored passage.
	AllMetadata(ctx context.Context) ([]Metadata, error)

	// DeleteSource removes every passage ingested from the given source.
	DeleteSource(ctx context.Context, source string) error
}
