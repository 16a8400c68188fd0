package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/manualqa/internal/config"
	"github.com/dgallion1/manualqa/internal/embed"
	"github.com/dgallion1/manualqa/internal/matcher"
	"github.com/dgallion1/manualqa/internal/vectorstore"
)

// Orchestrator manages the manual ingestion pipeline.
type Orchestrator struct {
	jobs     *JobStore
	queue    chan *Job
	store    vectorstore.Store
	embedder embed.Embedder
	matcher  *matcher.Matcher
	log      *slog.Logger
	cfg      config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewOrchestrator creates the pipeline; call Start to launch workers.
func NewOrchestrator(cfg config.Config, store vectorstore.Store, embedder embed.Embedder, m *matcher.Matcher, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:     NewJobStore(cfg.Ingest.JobTTL),
		queue:    make(chan *Job, cfg.Ingest.MaxQueueSize),
		store:    store,
		embedder: embedder,
		matcher:  m,
		log:      log,
		cfg:      cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.Ingest.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.store, o.embedder, o.matcher, o.log,
				o.cfg.Ingest.MaxConcurrent, o.cfg.Chunker.MaxChars, o.cfg.Keywords.TopK)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline. Safe to call more than once;
// Submit calls racing Stop get an error instead of a send on a closed
// channel.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		job.SetStatus(StatusFailed, "shutting_down")
		return fmt.Errorf("ingestion pipeline is shut down")
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.Ingest.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
