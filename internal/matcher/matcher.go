package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dgallion1/manualqa/internal/embed"
)

// Keyword labels kept per init call. The label set must stay small: it is
// embedded eagerly and scanned linearly on every ranking call.
const maxKeywordLabels = 80

// ChapterScore pairs a label with its similarity to a query.
type ChapterScore struct {
	Chapter string  `json:"chapter"`
	Score   float64 `json:"score"`
}

// labelCache is an immutable snapshot: labels in insertion order plus their
// vectors. A cache is fully built before it is published and never mutated
// after, so readers can use it without locks.
type labelCache struct {
	labels  []string
	vectors map[string][]float64
}

var emptyCache = &labelCache{vectors: map[string][]float64{}}

// Matcher caches embedding vectors for the bounded set of chapter labels
// (and optionally keyword labels) and ranks them against query vectors.
// Init replaces the whole cache atomically: concurrent RankChapters calls
// see either the old snapshot or the new one, never a mix.
type Matcher struct {
	embedder embed.Embedder
	log      *slog.Logger

	initMu   sync.Mutex // single-writer discipline for rebuilds
	chapters atomic.Pointer[labelCache]
	keywords atomic.Pointer[labelCache]
}

func New(embedder embed.Embedder, log *slog.Logger) *Matcher {
	m := &Matcher{embedder: embedder, log: log}
	m.chapters.Store(emptyCache)
	m.keywords.Store(emptyCache)
	return m
}

// Init discards any previous chapter cache and rebuilds it from scratch,
// one embedding per distinct label. The replacement is published only after
// every label embedded successfully.
func (m *Matcher) Init(ctx context.Context, chapters []string) error {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	next, err := m.buildCache(ctx, chapters)
	if err != nil {
		return err
	}
	m.chapters.Store(next)
	m.log.Info("chapter vectors cached", "chapters", len(next.labels))
	return nil
}

// InitKeywords caches keyword labels the same way. Only short phrases (2-3
// words) are kept, capped at maxKeywordLabels; everything else is noise at
// this granularity.
func (m *Matcher) InitKeywords(ctx context.Context, phrases []string) error {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	kept := make([]string, 0, maxKeywordLabels)
	for _, p := range phrases {
		if len(kept) == maxKeywordLabels {
			break
		}
		words := len(strings.Fields(p))
		if words < 2 || words > 3 {
			continue
		}
		kept = append(kept, p)
	}

	next, err := m.buildCache(ctx, kept)
	if err != nil {
		return err
	}
	m.keywords.Store(next)
	m.log.Info("keyword vectors cached", "keywords", len(next.labels))
	return nil
}

func (m *Matcher) buildCache(ctx context.Context, labels []string) (*labelCache, error) {
	next := &labelCache{vectors: make(map[string][]float64, len(labels))}
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if _, ok := next.vectors[label]; ok {
			continue
		}
		vec, err := m.embedder.Embed(ctx, label)
		if err != nil {
			return nil, fmt.Errorf("embed label %q: %w", label, err)
		}
		next.labels = append(next.labels, label)
		next.vectors[label] = vec
	}
	return next, nil
}

// RankChapters embeds the query once and ranks every cached chapter label
// by cosine similarity, descending, ties broken by cache insertion order.
// An empty cache yields an empty result, not an error.
func (m *Matcher) RankChapters(ctx context.Context, query string, topK int) ([]ChapterScore, error) {
	return m.rank(ctx, m.chapters.Load(), query, topK)
}

// RankKeywords ranks the cached keyword labels. Diagnostics only: the
// answer pipeline retrieves by chapter, not by keyword.
func (m *Matcher) RankKeywords(ctx context.Context, query string, topK int) ([]ChapterScore, error) {
	return m.rank(ctx, m.keywords.Load(), query, topK)
}

func (m *Matcher) rank(ctx context.Context, cache *labelCache, query string, topK int) ([]ChapterScore, error) {
	if len(cache.labels) == 0 {
		return nil, nil
	}

	qv, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scores := make([]ChapterScore, 0, len(cache.labels))
	for _, label := range cache.labels {
		scores = append(scores, ChapterScore{Chapter: label, Score: Cosine(qv, cache.vectors[label])})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })

	if topK > 0 && topK < len(scores) {
		scores = scores[:topK]
	}
	return scores, nil
}

// Cosine computes cosine similarity at double precision. Zero vectors are
// undefined behavior upstream (the embedding model never produces them) and
// are not specially handled here.
func Cosine(a, b []float64) float64 {
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
