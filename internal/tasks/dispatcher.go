package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"fund-report-rag/internal/models"
	"fund-report-rag/internal/processor"

	"go.uber.org/zap"
)

// DocumentStatusStore updates a document's parsing state as a job moves
// through the queue.
type DocumentStatusStore interface {
	SetStatus(ctx context.Context, id int64, status, errMsg string) error
}

// Job is one document to ingest end-to-end.
type Job struct {
	DocumentID int64
	FilePath   string
	FundID     int64
}

// Dispatcher runs document ingestion jobs on a fixed worker pool. Each job
// processes one document end-to-end; two jobs never touch the same document
// concurrently as long as callers enqueue each document once.
type Dispatcher struct {
	processor *processor.Processor
	documents DocumentStatusStore
	logger    *zap.Logger

	jobs chan Job
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher creates a dispatcher with the given worker count and queue
// capacity. Start must be called before Enqueue.
func NewDispatcher(proc *processor.Processor, documents DocumentStatusStore, workers, queueSize int, logger *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Dispatcher{
		processor: proc,
		documents: documents,
		logger:    logger,
		jobs:      make(chan Job, queueSize),
	}
}

// Start launches the worker pool. Workers exit when the context is canceled
// or Stop is called.
func (d *Dispatcher) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Enqueue submits a document for ingestion. It fails when the queue is full
// or the dispatcher has been stopped, so the caller can surface backpressure
// instead of blocking an upload request.
func (d *Dispatcher) Enqueue(job Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("enqueue document %d: dispatcher stopped", job.DocumentID)
	}
	select {
	case d.jobs <- job:
		return nil
	default:
		return fmt.Errorf("enqueue document %d: queue full", job.DocumentID)
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-d.jobs:
			if !ok {
				return
			}
			d.run(ctx, job)
		}
	}
}

// run executes one job, recording status transitions. A panic inside
// processing marks the document failed instead of killing the worker.
func (d *Dispatcher) run(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("document processing panicked",
				zap.Int64("document_id", job.DocumentID), zap.Any("panic", r))
			d.setStatus(ctx, job.DocumentID, models.StatusFailed, fmt.Sprintf("internal error: %v", r))
		}
	}()

	d.setStatus(ctx, job.DocumentID, models.StatusProcessing, "")

	result := d.processor.ProcessDocument(ctx, job.FilePath, job.DocumentID, job.FundID)

	errMsg := result.Error
	if errMsg == "" && len(result.Stats.Errors) > 0 {
		errMsg = strings.Join(result.Stats.Errors, "; ")
	}
	d.setStatus(ctx, job.DocumentID, result.Status, errMsg)

	d.logger.Info("document processed",
		zap.Int64("document_id", job.DocumentID),
		zap.String("status", result.Status),
		zap.Int("pages", result.Stats.Pages),
		zap.Int("tables", result.Stats.Tables),
		zap.Int("chunks", result.Stats.Chunks),
		zap.Int("pages_skipped", result.Stats.PagesSkipped))
}

func (d *Dispatcher) setStatus(ctx context.Context, documentID int64, status, errMsg string) {
	if err := d.documents.SetStatus(ctx, documentID, status, errMsg); err != nil {
		d.logger.Error("update document status failed",
			zap.Int64("document_id", documentID),
			zap.String("status", status),
			zap.Error(err))
	}
}
