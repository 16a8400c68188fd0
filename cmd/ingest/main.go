package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgallion1/manualqa/internal/chunker"
	"github.com/dgallion1/manualqa/internal/config"
	"github.com/dgallion1/manualqa/internal/embed"
	"github.com/dgallion1/manualqa/internal/keywords"
	"github.com/dgallion1/manualqa/internal/reader"
	"github.com/dgallion1/manualqa/internal/structure"
	"github.com/dgallion1/manualqa/internal/vectorstore"
)

// Offline ingestion: parse a manual, dump the intermediate artifacts as
// JSON, and optionally embed and push the chunks into the vector store.
func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	var (
		filePath   = flag.String("file", "", "path to the manual (pdf, docx, md, html, txt)")
		outDir     = flag.String("out", "", "directory for JSON artifacts (blocks.json, chunks.json)")
		source     = flag.String("source", "", "source label override (default: derived from filename)")
		doStore    = flag.Bool("store", false, "embed chunks and upsert them into the vector store")
		configPath = flag.String("config", "", "path to YAML config file")
	)
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: ingest --file manual.pdf [--out dir] [--store]")
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	doc, err := reader.Open(*filePath)
	if err != nil {
		log.Error("open failed", "file", *filePath, "error", err)
		os.Exit(1)
	}

	label := *source
	if label == "" {
		label = doc.Source()
	}

	blocks := structure.ExtractBlocks(doc)
	log.Info("structured", "pages", doc.PageCount(), "blocks", len(blocks))

	chunks := chunker.Chunk(blocks, label, cfg.Chunker.MaxChars)
	keywords.Extract(chunks, cfg.Keywords.TopK)
	log.Info("chunked", "chunks", len(chunks))

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			log.Error("create output dir failed", "error", err)
			os.Exit(1)
		}
		if err := writeJSON(filepath.Join(*outDir, "blocks.json"), blocks); err != nil {
			log.Error("write blocks failed", "error", err)
			os.Exit(1)
		}
		if err := writeJSON(filepath.Join(*outDir, "chunks.json"), chunks); err != nil {
			log.Error("write chunks failed", "error", err)
			os.Exit(1)
		}
		log.Info("artifacts written", "dir", *outDir)
	}

	if !*doStore {
		return
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	embedder := embed.NewClient(cfg.Embedder.BaseURL, cfg.Embedder.APIKey, cfg.Embedder.Model, cfg.Embedder.Timeout)
	store := vectorstore.NewQdrant(vectorstore.QdrantConfig{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
		Timeout:    cfg.Qdrant.Timeout,
	})

	vectors := make([][]float64, len(chunks))
	for i, c := range chunks {
		vec, err := embedder.Embed(ctx, c.Text)
		if err != nil {
			log.Error("embed failed", "chunk", c.ID, "error", err)
			os.Exit(1)
		}
		vectors[i] = vec
		if (i+1)%25 == 0 {
			log.Info("embedding progress", "done", i+1, "total", len(chunks))
		}
	}

	if err := store.DeleteSource(ctx, label); err != nil {
		log.Warn("delete previous chunks failed, proceeding", "error", err)
	}
	if err := store.Upsert(ctx, chunks, vectors); err != nil {
		log.Error("upsert failed", "error", err)
		os.Exit(1)
	}
	log.Info("stored", "source", label, "chunks", len(chunks))
}

// writeJSON persists an artifact with non-ASCII text intact.
func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
