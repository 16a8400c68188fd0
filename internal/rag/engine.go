package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dgallion1/manualqa/internal/matcher"
	"github.com/dgallion1/manualqa/internal/vectorstore"
)

// Terminal responses returned instead of an error when a stage cannot
// proceed. These are user-facing sentences, not error codes.
const (
	MsgNoSections   = "I couldn't match your question to any section of the manual. Could you clarify or rephrase it?"
	MsgMoreSpecific = "Your question is too broad for me to pick a relevant section. Could you give me more specific details?"
	MsgNothingFound = "I couldn't find anything useful in the manual for that. Try rephrasing your question."
	MsgOffTopic     = "The passages I found don't seem to answer your question. Could you clarify what you're looking for?"
)

// ChapterRanker ranks chapter labels against a query. Satisfied by
// *matcher.Matcher.
type ChapterRanker interface {
	RankChapters(ctx context.Context, query string, topK int) ([]matcher.ChapterScore, error)
}

// Embedder is the single-text embedding call the relevance gate needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Generator produces the final answer text from an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds the tuning knobs of the answer pipeline. The two floors and
// the ratio are hand-tuned values carried as configuration; nothing derives
// them.
type Config struct {
	ChapterTopK        int     // chapters considered in stage 1
	SelectRatio        float64 // keep chapters scoring >= best*ratio
	ChapterFloor       float64 // absolute minimum chapter score
	ContextFloor       float64 // query/context similarity gate
	PassagesPerChapter int     // k for chapter-scoped retrieval
	ContextPassages    int     // passages folded into the prompt context
}

func DefaultConfig() Config {
	return Config{
		ChapterTopK:        5,
		SelectRatio:        0.85,
		ChapterFloor:       0.40,
		ContextFloor:       0.75,
		PassagesPerChapter: 2,
		ContextPassages:    3,
	}
}

// Engine answers questions against the indexed manual. Each Answer call is
// a fixed sequence of stages; any stage that cannot proceed short-circuits
// with a terminal message rather than an error.
type Engine struct {
	ranker    ChapterRanker
	store     vectorstore.Store
	embedder  Embedder
	generator Generator
	cfg       Config
	log       *slog.Logger
}

func NewEngine(ranker ChapterRanker, store vectorstore.Store, embedder Embedder, generator Generator, cfg Config, log *slog.Logger) *Engine {
	if cfg.ChapterTopK <= 0 {
		cfg.ChapterTopK = 5
	}
	if cfg.PassagesPerChapter <= 0 {
		cfg.PassagesPerChapter = 2
	}
	if cfg.ContextPassages <= 0 {
		cfg.ContextPassages = 3
	}
	return &Engine{ranker: ranker, store: store, embedder: embedder, generator: generator, cfg: cfg, log: log}
}

// Answer runs the full pipeline for one query. previousAnswer, when
// non-empty, is prefixed to the retrieved context so follow-up questions
// resolve against the prior turn. Only a generation failure (or a failed
// query embedding) surfaces as an error; every other dead end returns one
// of the Msg* terminal responses.
func (e *Engine) Answer(ctx context.Context, query, previousAnswer string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return MsgNoSections, nil
	}

	// Stage 1: chapter ranking.
	ranked, err := e.ranker.RankChapters(ctx, query, e.cfg.ChapterTopK)
	if err != nil {
		return "", fmt.Errorf("rank chapters: %w", err)
	}
	if len(ranked) == 0 {
		e.log.Warn("no chapters ranked", "query", query)
		return MsgNoSections, nil
	}

	// Stage 2: adaptive selection. Relative-to-best cutoff plus an
	// absolute floor.
	best := ranked[0].Score
	var selected []string
	for _, cs := range ranked {
		if cs.Score >= best*e.cfg.SelectRatio && cs.Score >= e.cfg.ChapterFloor {
			selected = append(selected, cs.Chapter)
		}
	}
	if len(selected) == 0 {
		e.log.Warn("no chapters above floor", "query", query, "best", best)
		return MsgMoreSpecific, nil
	}
	e.log.Info("chapters selected", "count", len(selected), "best", best)

	// Stage 3: chapter-scoped retrieval, issued concurrently. Results are
	// collected per chapter slot so dedup order follows chapter rank, not
	// arrival order.
	qv, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	results := make([][]vectorstore.Retrieved, len(selected))
	var wg sync.WaitGroup
	for i, chapter := range selected {
		wg.Add(1)
		go func(i int, chapter string) {
			defer wg.Done()
			docs, err := e.store.SimilaritySearch(ctx, qv, e.cfg.PassagesPerChapter, map[string]string{"chapter": chapter})
			if err != nil {
				e.log.Warn("chapter retrieval failed", "chapter", chapter, "error", err)
				return
			}
			results[i] = docs
		}(i, chapter)
	}
	wg.Wait()

	seen := make(map[string]struct{})
	var passages []vectorstore.Retrieved
	for _, docs := range results {
		for _, d := range docs {
			if _, ok := seen[d.Text]; ok {
				continue
			}
			seen[d.Text] = struct{}{}
			passages = append(passages, d)
		}
	}
	if len(passages) == 0 {
		e.log.Warn("retrieval returned nothing", "query", query)
		return MsgNothingFound, nil
	}

	// Stage 4: relevance gate. Compare the query against the assembled
	// context before any generation call.
	n := e.cfg.ContextPassages
	if n > len(passages) {
		n = len(passages)
	}
	parts := make([]string, 0, n+1)
	if previousAnswer != "" {
		parts = append(parts, previousAnswer)
	}
	for _, p := range passages[:n] {
		parts = append(parts, p.Text)
	}
	contextText := strings.Join(parts, "\n\n")

	cv, err := e.embedder.Embed(ctx, contextText)
	if err != nil {
		return "", fmt.Errorf("embed context: %w", err)
	}
	sim := matcher.Cosine(qv, cv)
	if sim < e.cfg.ContextFloor {
		e.log.Warn("context below relevance gate", "similarity", sim, "floor", e.cfg.ContextFloor)
		return MsgOffTopic, nil
	}

	// Stage 5: generation. Failures here propagate; there is no retry.
	prompt := BuildPrompt(contextText, query)
	answer, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}
