package rag

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/dgallion1/manualqa/internal/document"
	"github.com/dgallion1/manualqa/internal/matcher"
	"github.com/dgallion1/manualqa/internal/vectorstore"
)

type fakeRanker struct {
	scores []matcher.ChapterScore
	err    error
}

func (f *fakeRanker) RankChapters(ctx context.Context, query string, topK int) ([]matcher.ChapterScore, error) {
	return f.scores, f.err
}

type fakeStore struct {
	mu      sync.Mutex
	calls   int
	results map[string][]vectorstore.Retrieved
	failOn  map[string]bool
}

func (f *fakeStore) SimilaritySearch(ctx context.Context, vector []float64, k int, filter map[string]string) ([]vectorstore.Retrieved, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	chapter := filter["chapter"]
	if f.failOn[chapter] {
		return nil, errors.New("store unavailable")
	}
	return f.results[chapter], nil
}

func (f *fakeStore) Upsert(ctx context.Context, chunks []document.Chunk, vectors [][]float64) error {
	return nil
}

func (f *fakeStore) AllMetadata(ctx context.Context) ([]vectorstore.Metadata, error) {
	return nil, nil
}

func (f *fakeStore) DeleteSource(ctx context.Context, source string) error { return nil }

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type stubEmbedder struct {
	queryVec   []float64
	contextVec []float64
}

func (f *stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	// The query is embedded first and is short; everything else is context.
	if len(text) < 80 {
		return f.queryVec, nil
	}
	return f.contextVec, nil
}

type fakeGenerator struct {
	calls  int
	answer string
	err    error
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.answer, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func longPassage(tag string) string {
	return tag + ": " + strings.Repeat("passage text about the product ", 5)
}

func newTestEngine(ranker ChapterRanker, store vectorstore.Store, emb Embedder, gen Generator) *Engine {
	cfg := DefaultConfig()
	cfg.ChapterFloor = 0.5
	return NewEngine(ranker, store, emb, gen, cfg, discardLogger())
}

func TestAnswer_AdaptiveSelection(t *testing.T) {
	// Install 0.91 and Setup 0.80 survive (0.80 >= 0.91*0.85 = 0.7735 and
	// >= floor 0.5); FAQ 0.30 is excluded.
	ranker := &fakeRanker{scores: []matcher.ChapterScore{
		{Chapter: "Install", Score: 0.91},
		{Chapter: "Setup", Score: 0.80},
		{Chapter: "FAQ", Score: 0.30},
	}}
	store := &fakeStore{results: map[string][]vectorstore.Retrieved{
		"Install": {{Text: longPassage("install"), Chapter: "Install"}},
		"Setup":   {{Text: longPassage("setup"), Chapter: "Setup"}},
		"FAQ":     {{Text: longPassage("faq"), Chapter: "FAQ"}},
	}}
	emb := &stubEmbedder{queryVec: []float64{1, 0}, contextVec: []float64{1, 0}}
	gen := &fakeGenerator{answer: "the answer"}

	engine := newTestEngine(ranker, store, emb, gen)
	got, err := engine.Answer(context.Background(), "how do I install", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "the answer" {
		t.Errorf("expected generated answer, got %q", got)
	}
	// One store call per surviving chapter; FAQ never queried.
	if store.callCount() != 2 {
		t.Errorf("expected 2 store calls, got %d", store.callCount())
	}
	if gen.calls != 1 {
		t.Errorf("expected 1 generation call, got %d", gen.calls)
	}
}

func TestAnswer_NoChaptersRanked(t *testing.T) {
	ranker := &fakeRanker{scores: nil}
	store := &fakeStore{}
	gen := &fakeGenerator{}

	engine := newTestEngine(ranker, store, &stubEmbedder{}, gen)
	got, err := engine.Answer(context.Background(), "anything at all", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != MsgNoSections {
		t.Errorf("expected %q, got %q", MsgNoSections, got)
	}
	if store.callCount() != 0 || gen.calls != 0 {
		t.Errorf("expected no downstream calls, got store=%d gen=%d", store.callCount(), gen.calls)
	}
}

func TestAnswer_ZeroSurvivors(t *testing.T) {
	// All scores below the absolute floor.
	ranker := &fakeRanker{scores: []matcher.ChapterScore{
		{Chapter: "Install", Score: 0.35},
		{Chapter: "FAQ", Score: 0.20},
	}}
	store := &fakeStore{}
	gen := &fakeGenerator{}

	engine := newTestEngine(ranker, store, &stubEmbedder{}, gen)
	got, err := engine.Answer(context.Background(), "something vague", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != MsgMoreSpecific {
		t.Errorf("expected exactly %q, got %q", MsgMoreSpecific, got)
	}
	if store.callCount() != 0 {
		t.Errorf("expected 0 store calls, got %d", store.callCount())
	}
	if gen.calls != 0 {
		t.Errorf("expected 0 generation calls, got %d", gen.calls)
	}
}

func TestAnswer_AllRetrievalsFail(t *testing.T) {
	ranker := &fakeRanker{scores: []matcher.ChapterScore{
		{Chapter: "Install", Score: 0.9},
	}}
	store := &fakeStore{failOn: map[string]bool{"Install": true}}
	gen := &fakeGenerator{}

	engine := newTestEngine(ranker, store, &stubEmbedder{queryVec: []float64{1, 0}}, gen)
	got, err := engine.Answer(context.Background(), "how do I install", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != MsgNothingFound {
		t.Errorf("expected %q, got %q", MsgNothingFound, got)
	}
	if gen.calls != 0 {
		t.Errorf("expected 0 generation calls, got %d", gen.calls)
	}
}

func TestAnswer_PartialRetrievalFailureIsNotFatal(t *testing.T) {
	ranker := &fakeRanker{scores: []matcher.ChapterScore{
		{Chapter: "Install", Score: 0.9},
		{Chapter: "Setup", Score: 0.88},
	}}
	store := &fakeStore{
		results: map[string][]vectorstore.Retrieved{
			"Setup": {{Text: longPassage("setup"), Chapter: "Setup"}},
		},
		failOn: map[string]bool{"Install": true},
	}
	emb := &stubEmbedder{queryVec: []float64{1, 0}, contextVec: []float64{1, 0}}
	gen := &fakeGenerator{answer: "from setup"}

	engine := newTestEngine(ranker, store, emb, gen)
	got, err := engine.Answer(context.Background(), "how do I set up", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from setup" {
		t.Errorf("expected answer from surviving chapter, got %q", got)
	}
}

func TestAnswer_DedupByText(t *testing.T) {
	shared := longPassage("shared")
	ranker := &fakeRanker{scores: []matcher.ChapterScore{
		{Chapter: "Install", Score: 0.9},
		{Chapter: "Setup", Score: 0.88},
	}}
	store := &fakeStore{results: map[string][]vectorstore.Retrieved{
		"Install": {{Text: shared, Chapter: "Install"}},
		"Setup":   {{Text: shared, Chapter: "Setup"}, {Text: longPassage("extra"), Chapter: "Setup"}},
	}}
	emb := &stubEmbedder{queryVec: []float64{1, 0}, contextVec: []float64{1, 0}}
	gen := &fakeGenerator{answer: "ok"}

	engine := newTestEngine(ranker, store, emb, gen)
	if _, err := engine.Answer(context.Background(), "how do I install", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Two chapters queried, three passages returned, one duplicate dropped.
	if store.callCount() != 2 {
		t.Errorf("expected 2 store calls, got %d", store.callCount())
	}
}

func TestAnswer_RelevanceGateBlocksGeneration(t *testing.T) {
	ranker := &fakeRanker{scores: []matcher.ChapterScore{
		{Chapter: "Install", Score: 0.9},
	}}
	store := &fakeStore{results: map[string][]vectorstore.Retrieved{
		"Install": {{Text: longPassage("install"), Chapter: "Install"}},
	}}
	// Orthogonal vectors: similarity 0, below any sensible gate.
	emb := &stubEmbedder{queryVec: []float64{1, 0}, contextVec: []float64{0, 1}}
	gen := &fakeGenerator{answer: "never returned"}

	engine := newTestEngine(ranker, store, emb, gen)
	got, err := engine.Answer(context.Background(), "how do I install", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != MsgOffTopic {
		t.Errorf("expected %q, got %q", MsgOffTopic, got)
	}
	if gen.calls != 0 {
		t.Errorf("expected 0 generation calls below the gate, got %d", gen.calls)
	}
}

func TestAnswer_GenerationFailurePropagates(t *testing.T) {
	ranker := &fakeRanker{scores: []matcher.ChapterScore{
		{Chapter: "Install", Score: 0.9},
	}}
	store := &fakeStore{results: map[string][]vectorstore.Retrieved{
		"Install": {{Text: longPassage("install"), Chapter: "Install"}},
	}}
	emb := &stubEmbedder{queryVec: []float64{1, 0}, contextVec: []float64{1, 0}}
	gen := &fakeGenerator{err: errors.New("model offline")}

	engine := newTestEngine(ranker, store, emb, gen)
	if _, err := engine.Answer(context.Background(), "how do I install", ""); err == nil {
		t.Fatal("expected generation error to propagate")
	}
	if gen.calls != 1 {
		t.Errorf("expected exactly 1 generation attempt, got %d", gen.calls)
	}
}

func TestBuildPrompt_ContainsContextAndQuery(t *testing.T) {
	prompt := BuildPrompt("the context body", "the user question")
	if !strings.Contains(prompt, "the context body") {
		t.Error("expected context in prompt")
	}
	if !strings.Contains(prompt, "the user question") {
		t.Error("expected query in prompt")
	}
	if strings.Index(prompt, "the context body") > strings.Index(prompt, "the user question") {
		t.Error("expected context before question")
	}
}
