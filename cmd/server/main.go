package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgallion1/manualqa/internal/api"
	"github.com/dgallion1/manualqa/internal/config"
	"github.com/dgallion1/manualqa/internal/embed"
	"github.com/dgallion1/manualqa/internal/llm"
	"github.com/dgallion1/manualqa/internal/matcher"
	"github.com/dgallion1/manualqa/internal/pipeline"
	"github.com/dgallion1/manualqa/internal/rag"
	"github.com/dgallion1/manualqa/internal/vectorstore"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// Optional .env for local development.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	store := vectorstore.NewQdrant(vectorstore.QdrantConfig{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
		Timeout:    cfg.Qdrant.Timeout,
	})
	embedder := embed.NewClient(cfg.Embedder.BaseURL, cfg.Embedder.APIKey, cfg.Embedder.Model, cfg.Embedder.Timeout)
	generator := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout)

	// Warm the chapter cache from whatever is already indexed. A cold
	// store is fine; ingestion rebuilds the cache afterwards.
	m := matcher.New(embedder, log)
	warmMatcher(ctx, store, m, log)

	engine := rag.NewEngine(m, store, embedder, generator, rag.Config{
		ChapterTopK:        cfg.RAG.ChapterTopK,
		SelectRatio:        cfg.RAG.SelectRatio,
		ChapterFloor:       cfg.RAG.ChapterFloor,
		ContextFloor:       cfg.RAG.ContextFloor,
		PassagesPerChapter: cfg.RAG.PassagesPerChapter,
		ContextPassages:    cfg.RAG.ContextPassages,
	}, log)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, store, embedder, m, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(engine, orch, m, store, generator, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		// Drain HTTP first so no handler submits into a stopped pipeline.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
	}()

	log.Info("starting manualqa", "port", cfg.Server.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// warmMatcher loads the distinct chapter and keyword sets from the store
// and builds the ranking caches. Failures are logged, not fatal: the
// service still serves ingestion, and queries get the empty-cache message.
func warmMatcher(ctx context.Context, store vectorstore.Store, m *matcher.Matcher, log *slog.Logger) {
	warmCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	metas, err := store.AllMetadata(warmCtx)
	if err != nil {
		log.Warn("store scan failed, starting with empty chapter cache", "error", err)
		return
	}

	seenCh := make(map[string]struct{})
	seenKw := make(map[string]struct{})
	var chapters, phrases []string
	for _, meta := range metas {
		if meta.Chapter != "" {
			if _, ok := seenCh[meta.Chapter]; !ok {
				seenCh[meta.Chapter] = struct{}{}
				chapters = append(chapters, meta.Chapter)
			}
		}
		for _, kw := range meta.Keywords {
			if _, ok := seenKw[kw]; !ok {
				seenKw[kw] = struct{}{}
				phrases = append(phrases, kw)
			}
		}
	}
	if len(chapters) == 0 {
		log.Info("no indexed chapters yet")
		return
	}

	if err := m.Init(warmCtx, chapters); err != nil {
		log.Warn("chapter cache warm failed", "error", err)
		return
	}
	if err := m.InitKeywords(warmCtx, phrases); err != nil {
		log.Warn("keyword cache warm failed", "error", err)
	}
	log.Info("chapter cache warmed", "chapters", len(chapters))
}
