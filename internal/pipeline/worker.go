package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/manualqa/internal/chunker"
	"github.com/dgallion1/manualqa/internal/document"
	"github.com/dgallion1/manualqa/internal/embed"
	"github.com/dgallion1/manualqa/internal/keywords"
	"github.com/dgallion1/manualqa/internal/matcher"
	"github.com/dgallion1/manualqa/internal/reader"
	"github.com/dgallion1/manualqa/internal/structure"
	"github.com/dgallion1/manualqa/internal/vectorstore"
)

// Worker processes a single ingestion job end to end: parse, structure,
// chunk, keyword-tag, embed, store, then refresh the chapter cache.
type Worker struct {
	store    vectorstore.Store
	embedder embed.Embedder
	matcher  *matcher.Matcher
	log      *slog.Logger

	maxConcurrentEmbed int
	chunkMaxChars      int
	keywordTopK        int
}

func NewWorker(store vectorstore.Store, embedder embed.Embedder, m *matcher.Matcher, log *slog.Logger, maxEmbed, chunkMaxChars, keywordTopK int) *Worker {
	return &Worker{
		store:              store,
		embedder:           embedder,
		matcher:            m,
		log:                log,
		maxConcurrentEmbed: maxEmbed,
		chunkMaxChars:      chunkMaxChars,
		keywordTopK:        keywordTopK,
	}
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "source", job.Source)

	// Phase 1: Parse. The readers work from a path, so the upload is
	// staged to a temp file carrying the original extension.
	job.SetStatus(StatusParsing, "parsing")
	doc, cleanup, err := w.openUpload(job)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	defer cleanup()
	job.ReleaseFileData()

	// Phase 2: Structure extraction.
	job.SetStatus(StatusStructuring, "structuring")
	blocks := structure.ExtractBlocks(doc)

	// Phase 3: Chunk.
	job.SetStatus(StatusChunking, "chunking")
	chunks := chunker.Chunk(blocks, job.Source, w.chunkMaxChars)
	job.SetCounts(doc.PageCount(), len(blocks), len(chunks))
	log.Info("chunked document", "pages", doc.PageCount(), "blocks", len(blocks), "chunks", len(chunks))

	if len(chunks) == 0 {
		log.Warn("no chunks produced")
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "chunking")
		return
	}

	// Phase 4: Keywords.
	job.SetStatus(StatusKeywords, "keywords")
	keywords.Extract(chunks, w.keywordTopK)

	// Phase 5: Embed with bounded concurrency, retrying transient errors.
	job.SetStatus(StatusEmbedding, "embedding")
	vectors := make([][]float64, len(chunks))
	type embedResult struct {
		idx int
		err error
	}
	results := make(chan embedResult, len(chunks))
	sem := make(chan struct{}, w.maxConcurrentEmbed)

	for i := range chunks {
		sem <- struct{}{}
		go func(i int) {
			defer func() { <-sem }()
			var vec []float64
			var lastErr error
			for attempt := range MaxRetries {
				vec, lastErr = w.embedder.Embed(ctx, chunks[i].Text)
				if lastErr == nil || !IsRetryable(lastErr) {
					break
				}
				log.Warn("retryable embed error", "chunk", chunks[i].ID, "attempt", attempt, "error", lastErr)
				select {
				case <-time.After(Backoff(attempt)):
				case <-ctx.Done():
					results <- embedResult{idx: i, err: ctx.Err()}
					return
				}
			}
			vectors[i] = vec
			results <- embedResult{idx: i, err: lastErr}
		}(i)
	}

	hadErrors := false
	for range chunks {
		r := <-results
		if r.err != nil {
			log.Error("embed failed", "chunk", chunks[r.idx].ID, "error", r.err)
			job.AddError(fmt.Sprintf("embed %s: %s", chunks[r.idx].ID, r.err))
			hadErrors = true
			continue
		}
		job.IncrEmbedded()
	}

	// Keep only chunks whose embedding succeeded.
	kept := make([]document.Chunk, 0, len(chunks))
	keptVecs := make([][]float64, 0, len(chunks))
	for i, vec := range vectors {
		if vec != nil {
			kept = append(kept, chunks[i])
			keptVecs = append(keptVecs, vec)
		}
	}
	if len(kept) == 0 {
		job.SetStatus(StatusFailed, "embedding")
		return
	}

	// Phase 6: Store. Re-ingesting a source replaces its previous chunks.
	job.SetStatus(StatusStoring, "storing")
	if err := w.store.DeleteSource(ctx, job.Source); err != nil {
		log.Warn("delete previous chunks failed, proceeding", "error", err)
	}
	if err := w.store.Upsert(ctx, kept, keptVecs); err != nil {
		log.Error("store failed", "error", err)
		job.AddError(fmt.Sprintf("store: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}

	// Phase 7: Refresh the chapter cache from the whole corpus so queries
	// can route into the new material.
	chapters, phrases := w.corpusLabels(ctx, kept)
	if err := w.matcher.Init(ctx, chapters); err != nil {
		log.Error("chapter cache rebuild failed", "error", err)
		job.AddError(fmt.Sprintf("chapter cache: %s", err))
		hadErrors = true
	}
	if err := w.matcher.InitKeywords(ctx, phrases); err != nil {
		log.Warn("keyword cache rebuild failed", "error", err)
	}

	job.SetStored(len(kept), len(chapters))
	log.Info("ingestion complete", "stored", len(kept), "chapters", len(chapters))

	if hadErrors {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}

// openUpload stages the job's bytes to a temp file and opens it with the
// format-dispatching reader. The returned cleanup removes the temp file.
func (w *Worker) openUpload(job *Job) (reader.Document, func(), error) {
	ext := filepath.Ext(job.Filename)
	f, err := os.CreateTemp("", "manualqa-*"+ext)
	if err != nil {
		return nil, func() {}, fmt.Errorf("temp file: %w", err)
	}
	path := f.Name()
	cleanup := func() { os.Remove(path) }

	data := job.FileData()
	job.ContentHash = ContentHashHex(data)
	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return nil, func() {}, fmt.Errorf("stage upload: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("stage upload: %w", err)
	}

	doc, err := reader.Open(path)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return doc, cleanup, nil
}

// corpusLabels gathers the distinct chapter set and keyword phrases across
// the whole store, falling back to the just-ingested chunks if the scan
// fails.
func (w *Worker) corpusLabels(ctx context.Context, ingested []document.Chunk) ([]string, []string) {
	metas, err := w.store.AllMetadata(ctx)
	if err != nil {
		w.log.Warn("metadata scan failed, using ingested chunks only", "error", err)
		metas = nil
		for _, c := range ingested {
			metas = append(metas, vectorstore.Metadata{Chapter: c.Chapter, Keywords: c.Keywords})
		}
	}

	seenCh := make(map[string]struct{})
	seenKw := make(map[string]struct{})
	var chapters, phrases []string
	for _, m := range metas {
		if m.Chapter != "" {
			if _, ok := seenCh[m.Chapter]; !ok {
				seenCh[m.Chapter] = struct{}{}
				chapters = append(chapters, m.Chapter)
			}
		}
		for _, kw := range m.Keywords {
			if _, ok := seenKw[kw]; !ok {
				seenKw[kw] = struct{}{}
				phrases = append(phrases, kw)
			}
		}
	}
	return chapters, phrases
}
