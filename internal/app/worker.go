package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"script2vid/internal/app/model"
	"script2vid/internal/metrics"
)

const (
	defaultWorkers   = 2
	defaultQueueSize = 64
)

var ErrPoolClosed = errors.New("worker pool is shut down")

type PoolOptions struct {
	Workers   int
	QueueSize int
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

type job struct {
	record  *model.VideoRecord
	request model.GenerationRequest
}

// WorkerPool runs pipelines on a fixed set of goroutines. Jobs use a
// background context, so they outlive the submitting request.
type WorkerPool struct {
	orch    *Orchestrator
	jobs    chan job
	baseCtx context.Context
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewWorkerPool(orch *Orchestrator, opts PoolOptions) *WorkerPool {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &WorkerPool{
		orch:    orch,
		jobs:    make(chan job, queueSize),
		baseCtx: context.Background(),
		metrics: opts.Metrics,
		logger:  logger,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work(i)
	}
	return p
}

// Submit records the request as processing and enqueues it. When the queue
// is full or closed the record is failed immediately and an error returned
// with it.
func (p *WorkerPool) Submit(ctx context.Context, req model.GenerationRequest) (*model.VideoRecord, error) {
	rec, err := p.orch.Submit(ctx, req)
	if err != nil {
		p.metrics.Submission("error")
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return p.reject(rec, ErrPoolClosed, "closed")
	}

	select {
	case p.jobs <- job{record: rec.Clone(), request: req}:
		p.metrics.Submission("accepted")
		return rec, nil
	default:
		return p.reject(rec, model.ErrQueueFull, "queue_full")
	}
}

func (p *WorkerPool) reject(rec *model.VideoRecord, cause error, outcome string) (*model.VideoRecord, error) {
	p.metrics.Submission(outcome)
	final, err := p.orch.Abort(p.baseCtx, rec, cause)
	if !errors.Is(err, cause) {
		err = errors.Join(cause, err)
	}
	return final, err
}

func (p *WorkerPool) work(id int) {
	defer p.wg.Done()
	for j := range p.jobs {
		p.run(id, j)
	}
}

func (p *WorkerPool) run(id int, j job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Pipeline panicked", zap.Int("worker", id), zap.String("request_id", j.record.ID), zap.Any("panic", r))
			_, _ = p.orch.Abort(p.baseCtx, j.record, fmt.Errorf("pipeline panic: %v", r))
		}
	}()
	_, _ = p.orch.Run(p.baseCtx, j.record, j.request)
}

// Shutdown stops accepting jobs and waits for queued and running pipelines
// until ctx is done.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Worker pool drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}
