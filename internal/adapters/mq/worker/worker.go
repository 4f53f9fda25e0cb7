// Package worker drains the submission queue: each worker scores a
// participant response and appends the result to the result log.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/marklab/internal/adapters/mq/queue"
	"github.com/okian/marklab/internal/domain/model"
	"github.com/okian/marklab/internal/domain/score"
	"github.com/okian/marklab/pkg/logger"
	"github.com/okian/marklab/pkg/metrics"
)

// Default worker configuration constants.
const (
	// defaultPoolSize keeps the result log strictly ordered; raise it
	// only when row order across participants does not matter.
	defaultPoolSize       = 1
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Scorer reconciles one response against the session's ground truth.
type Scorer interface {
	Score(ctx context.Context, response model.Response) (model.Result, error)
}

// Recorder appends a score result to the result log.
type Recorder interface {
	Append(ctx context.Context, result model.Result) error
}

// Queue defines how workers receive submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Submission
}

// Worker processes submissions using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// GradingWorker implements Worker.
type GradingWorker struct {
	queue    Queue
	scorer   Scorer
	recorder Recorder
	name     string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewGradingWorker creates a new worker with configuration options.
func NewGradingWorker(q Queue, scorer Scorer, recorder Recorder, opts ...Option) *GradingWorker {
	w := &GradingWorker{
		queue:    q,
		scorer:   scorer,
		recorder: recorder,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *GradingWorker) Run(ctx context.Context) {
	defer close(w.done)

	submissions := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case s, ok := <-submissions:
			if !ok {
				// Queue closed, worker should stop.
				return
			}
			if err := w.process(ctx, s); err != nil {
				w.logger.Error(ctx, "error processing submission",
					logger.String("key", s.Key),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *GradingWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process scores one submission and appends the result. An incomplete
// response is a rejected submission, not a worker failure: it is logged
// and counted, and the daemon keeps going.
func (w *GradingWorker) process(ctx context.Context, s queue.Submission) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	result, err := w.scorer.Score(ctx, s.Response)
	if err != nil {
		if errors.Is(err, score.ErrIncompleteResponse) {
			w.logger.Warn(ctx, "incomplete response rejected",
				logger.String("key", s.Key),
				logger.String("path", s.Path),
				logger.Error(err),
			)
			return nil
		}
		metrics.RecordScoringError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "scoring_error")
		return fmt.Errorf("failed to score submission %s: %w", s.Key, err)
	}

	if err := w.recorder.Append(ctx, result); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "append_error")
		w.logger.Error(ctx, "result append failed",
			logger.String("key", s.Key),
			logger.Error(err),
		)
		return fmt.Errorf("result append failed: %w", err)
	}

	w.logger.Info(ctx, "submission scored",
		logger.String("participant", result.Participant),
		logger.String("trial", result.Trial),
		logger.Float64("score", result.Score),
		logger.Bool("markers_correct", result.MarkersCorrect),
	)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers  []*GradingWorker
	queue    Queue
	scorer   Scorer
	recorder Recorder

	// Shutdown control
	shutdown chan struct{}

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, scorer Scorer, recorder Recorder) *Pool {
	if workerCount < 1 {
		workerCount = defaultPoolSize
	}

	pool := &Pool{
		workers:  make([]*GradingWorker, workerCount),
		queue:    q,
		scorer:   scorer,
		recorder: recorder,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewGradingWorker(
			q,
			scorer,
			recorder,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerActiveCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	close(p.shutdown)

	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue and waits for every worker to drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	metrics.UpdateWorkerActiveCount(0)
	return nil
}
