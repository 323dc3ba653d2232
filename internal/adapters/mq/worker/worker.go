// Package worker runs record analysis on a shared pool of goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/callscout/internal/adapters/mq/queue"
	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/pkg/logger"
	"github.com/okian/callscout/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2
	poolShutdownTimeout     = 30 * time.Second
)

// ErrNotStarted is returned by AnalyzeBatch before Start.
var ErrNotStarted = errors.New("worker pool not started")

// Analyzer analyzes one record.
type Analyzer interface {
	Analyze(ctx context.Context, r model.OpportunityRecord, p model.OrganizationProfile, iteration int) model.AnalyzedOpportunity
}

// Queue defines how the pool hands jobs to workers.
type Queue interface {
	Enqueue(ctx context.Context, j queue.Job) error
	Dequeue(ctx context.Context) <-chan queue.Job
	Close() error
}

// InMemoryWorker takes jobs off the queue and answers on each job's reply
// channel.
type InMemoryWorker struct {
	queue    Queue
	analyzer Analyzer
	name     string
	logger   logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, a Analyzer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		analyzer: a,
		name:     "worker",
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run processes jobs until ctx is cancelled or the queue is closed.
func (w *InMemoryWorker) Run(ctx context.Context) error {
	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case j, ok := <-jobs:
			if !ok {
				return nil
			}
			w.process(j)
		}
	}
}

// process answers one job. Jobs whose run is gone are dropped unanswered;
// nobody waits for them.
func (w *InMemoryWorker) process(j queue.Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	ctx := j.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		w.logger.Debug(ctx, "dropping job of cancelled run", logger.String("record_id", j.Record.ID))
		return
	}

	metrics.AddWorkerBusy(1)
	start := time.Now()
	defer func() {
		metrics.AddWorkerBusy(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	var p model.OrganizationProfile
	if j.Profile != nil {
		p = *j.Profile
	}
	j.Reply <- queue.Result{
		Index:    j.Index,
		Analysis: w.analyzer.Analyze(ctx, j.Record, p, j.Iteration),
	}
}

// Pool is the shared analysis pool. Runs submit whole batches through
// AnalyzeBatch and block until every record is answered.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	mu     sync.Mutex
	group  *errgroup.Group
	cancel context.CancelFunc

	logger logger.Logger
}

// NewPool creates a new worker pool. workerCount < 1 selects 2×NumCPU.
func NewPool(workerCount int, q Queue, a Analyzer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, a, wopts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker. Calling Start twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.group != nil {
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range p.workers {
		g.Go(func() error { return w.Run(gctx) })
	}
	p.group = g
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// AnalyzeBatch analyzes records and returns their analyses in input order.
// When the queue is full the caller analyzes the overflow itself.
func (p *Pool) AnalyzeBatch(ctx context.Context, records []model.OpportunityRecord, profile model.OrganizationProfile, iteration int) ([]model.AnalyzedOpportunity, error) {
	p.mu.Lock()
	started := p.group != nil
	p.mu.Unlock()
	if !started {
		return nil, ErrNotStarted
	}
	if len(records) == 0 {
		return nil, nil
	}

	reply := make(chan queue.Result, len(records))
	prof := &profile
	for i, r := range records {
		j := queue.Job{Ctx: ctx, Record: r, Profile: prof, Iteration: iteration, Index: i, Reply: reply}
		err := p.queue.Enqueue(ctx, j)
		switch {
		case err == nil:
		case errors.Is(err, queue.ErrFull):
			p.workers[0].process(j)
		default:
			return nil, fmt.Errorf("dispatch %s: %w", r.ID, err)
		}
	}

	out := make([]model.AnalyzedOpportunity, len(records))
	for n := 0; n < len(records); n++ {
		select {
		case res := <-reply:
			out[res.Index] = res.Analysis
		case <-ctx.Done():
			return nil, fmt.Errorf("analysis batch interrupted: %w", ctx.Err())
		}
	}
	return out, nil
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	p.mu.Lock()
	g, cancel := p.group, p.cancel
	p.mu.Unlock()
	if g == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	shutdownCtx, stop := context.WithTimeout(ctx, poolShutdownTimeout)
	defer stop()
	select {
	case err := <-done:
		cancel()
		return err
	case <-shutdownCtx.Done():
		cancel()
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
}
