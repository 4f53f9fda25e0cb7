package app

import (
	"context"
	"sync"
	"time"

	"github.com/okian/marklab/internal/adapters/mq/queue"
	"github.com/okian/marklab/internal/adapters/mq/worker"
	"github.com/okian/marklab/internal/adapters/recorder"
	"github.com/okian/marklab/internal/adapters/storage"
	"github.com/okian/marklab/internal/adapters/watch"
	"github.com/okian/marklab/internal/config"
	"github.com/okian/marklab/internal/domain/dedupe"
	"github.com/okian/marklab/internal/domain/model"
	"github.com/okian/marklab/internal/domain/score"
	"github.com/okian/marklab/pkg/errs"
	"github.com/okian/marklab/pkg/logger"
	"github.com/okian/marklab/pkg/metrics"
)

// Grader validates participant responses against the persisted ground
// truth. It serves two modes: ScoreFile grades a single response
// synchronously, Watch grades response files as they land in the
// responses directory.
type Grader struct {
	mu sync.Mutex

	cfg    *config.Config
	record model.Record
	truth  bool

	engine  *score.Engine
	store   recorder.Recorder
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *worker.Pool
	watcher *watch.Watcher

	// rescore bypasses duplicate suppression so a submission can be
	// graded again, producing an additional result row.
	rescore bool
	started bool

	logger logger.Logger
}

// GraderOption applies a configuration option to the Grader.
type GraderOption func(*Grader)

// WithRescore allows already-seen submissions to be graded again.
func WithRescore() GraderOption {
	return func(g *Grader) {
		g.rescore = true
	}
}

// WithGraderLogger sets a custom logger for the grader.
func WithGraderLogger(l logger.Logger) GraderOption {
	return func(g *Grader) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithRecorder injects a result store, bypassing the config-driven one.
func WithRecorder(r recorder.Recorder) GraderOption {
	return func(g *Grader) {
		if r != nil {
			g.store = r
		}
	}
}

// NewGrader constructs a Grader from configuration.
func NewGrader(cfg *config.Config, opts ...GraderOption) *Grader {
	g := &Grader{
		cfg: cfg,
	}

	// Apply all options
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Start loads the ground truth and opens the result store. Missing or
// malformed truth files fail here, before any response is graded.
func (g *Grader) Start(ctx context.Context) error {
	const op = "app.Grader.Start"

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return nil
	}
	if g.logger == nil {
		g.logger = logger.Get().Named("grader")
	}

	assignment, err := storage.ReadAssignment(g.cfg.AssignmentFile)
	if err != nil {
		return errs.Wrap(op, err)
	}
	truth, err := storage.ReadTruth(g.cfg.TruthFile)
	if err != nil {
		return errs.Wrap(op, err)
	}
	g.record = model.NewRecord(assignment)
	g.truth = truth

	g.engine = score.New()

	if g.store == nil {
		store, err := g.openStore()
		if err != nil {
			return errs.Wrap(op, err)
		}
		g.store = store
	}

	g.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(g.cfg.DedupeSize),
	)
	g.queue = queue.NewInMemoryQueue(
		queue.WithCapacity(g.cfg.QueueSize),
	)
	g.pool = worker.NewPool(g.cfg.WorkerCount, g.queue, g.scorer(), g.store)
	g.pool.Start(ctx)

	g.started = true
	g.logger.Info(ctx, "grader started",
		logger.Int("markers", len(assignment)),
		logger.Bool("derivedTruth", g.record.Derived),
		logger.Bool("externalTruth", truth),
		logger.Bool("rescore", g.rescore),
		logger.String("backend", g.cfg.ResultsBackend),
	)
	return nil
}

// openStore builds the configured result store. Called under g.mu.
func (g *Grader) openStore() (recorder.Recorder, error) {
	switch g.cfg.ResultsBackend {
	case config.BackendSQLite:
		return recorder.NewSQLiteRecorder(g.cfg.ResultsDB)
	default:
		return recorder.NewCSVRecorder(g.cfg.ResultsFile)
	}
}

// scorer returns a worker.Scorer bound to this grader's ground truth.
func (g *Grader) scorer() worker.Scorer {
	return &truthScorer{
		engine: g.engine,
		record: g.record,
		truth:  g.truth,
	}
}

// truthScorer adapts the scoring engine to the worker.Scorer interface.
type truthScorer struct {
	engine *score.Engine
	record model.Record
	truth  bool
}

func (ts *truthScorer) Score(ctx context.Context, response model.Response) (model.Result, error) {
	return ts.engine.Score(ctx, ts.record.Assignment, ts.truth, response)
}

// ScoreFile grades one response file synchronously and appends the
// result. Used by the one-shot scoring command.
func (g *Grader) ScoreFile(ctx context.Context, path string) (model.Result, error) {
	const op = "app.Grader.ScoreFile"

	g.mu.Lock()
	if !g.started {
		g.mu.Unlock()
		return model.Result{}, errs.NewKind(op, ErrNotStarted)
	}
	engine, record, truth, store := g.engine, g.record, g.truth, g.store
	g.mu.Unlock()

	response, err := storage.ReadResponse(path)
	if err != nil {
		return model.Result{}, errs.Wrap(op, err)
	}

	if !g.rescore && g.seenAndRecord(ctx, submissionKey(response)) {
		metrics.RecordDuplicateSubmission()
		return model.Result{}, errs.Kindf(op, ErrDuplicateSubmission,
			"participant %q trial %q already graded", response.Participant, response.Trial)
	}

	result, err := engine.Score(ctx, record.Assignment, truth, response)
	if err != nil {
		g.unrecord(ctx, submissionKey(response))
		return model.Result{}, errs.Wrap(op, err)
	}
	if err := store.Append(ctx, result); err != nil {
		return model.Result{}, errs.Wrap(op, err)
	}
	return result, nil
}

// Watch grades response files as they appear under the responses
// directory. Blocks until ctx is canceled or the watcher fails.
func (g *Grader) Watch(ctx context.Context) error {
	const op = "app.Grader.Watch"

	g.mu.Lock()
	if !g.started {
		g.mu.Unlock()
		return errs.NewKind(op, ErrNotStarted)
	}
	g.mu.Unlock()

	w, err := watch.New(g.cfg.ResponsesDir, g.handleFile,
		watch.WithDebounce(g.cfg.Debounce()),
		watch.WithLogger(g.logger.Named("watch")),
	)
	if err != nil {
		return errs.Wrap(op, err)
	}

	g.mu.Lock()
	g.watcher = w
	g.mu.Unlock()

	g.logger.Info(ctx, "watching for responses",
		logger.String("dir", g.cfg.ResponsesDir),
	)
	return w.Run(ctx)
}

// handleFile parses one response file, suppresses duplicates, and hands
// the submission to the grading pool. Parse and validation failures are
// logged and dropped so the watch loop keeps running.
func (g *Grader) handleFile(ctx context.Context, path string) {
	response, err := storage.ReadResponse(path)
	if err != nil {
		metrics.RecordErrorByComponent("grader", "parse")
		g.logger.Warn(ctx, "unreadable response file",
			logger.String("path", path),
			logger.Error(err),
		)
		return
	}

	key := submissionKey(response)
	if !g.rescore && g.seenAndRecord(ctx, key) {
		metrics.RecordDuplicateSubmission()
		g.logger.Info(ctx, "duplicate submission skipped",
			logger.String("key", key),
			logger.String("path", path),
		)
		return
	}

	sub := queue.Submission{
		Key:        key,
		Path:       path,
		Response:   response,
		ReceivedAt: time.Now(),
	}
	if !g.queue.Enqueue(ctx, sub) {
		// Give the submission back so a later copy is not treated
		// as a duplicate.
		g.unrecord(ctx, key)
		metrics.RecordErrorByComponent("grader", "enqueue")
		g.logger.Warn(ctx, "submission queue full, dropping",
			logger.String("key", key),
			logger.String("path", path),
		)
	}
}

func (g *Grader) seenAndRecord(ctx context.Context, key string) bool {
	return g.deduper.SeenAndRecord(ctx, key)
}

func (g *Grader) unrecord(ctx context.Context, key string) {
	g.deduper.Unrecord(ctx, key)
}

func submissionKey(r model.Response) string {
	return r.Participant + "|" + r.Trial
}

// Stop drains the grading pool and closes the result store.
func (g *Grader) Stop(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.started {
		return
	}

	if g.watcher != nil {
		_ = g.watcher.Close()
	}
	if g.pool != nil {
		if err := g.pool.Shutdown(ctx); err != nil {
			g.logger.Warn(ctx, "grading pool shutdown", logger.Error(err))
		}
	}
	if g.store != nil {
		if err := g.store.Close(); err != nil {
			g.logger.Warn(ctx, "closing result store", logger.Error(err))
		}
	}

	g.started = false
	g.logger.Info(ctx, "grader stopped")
}

// GetStats returns grader statistics for monitoring.
func (g *Grader) GetStats() map[string]interface{} {
	g.mu.Lock()
	defer g.mu.Unlock()

	stats := map[string]interface{}{
		"started": g.started,
		"rescore": g.rescore,
		"backend": g.cfg.ResultsBackend,
	}
	if g.started {
		stats["markers"] = len(g.record.Assignment)
		stats["queueLength"] = g.queue.Len(context.Background())
		stats["dedupeSize"] = g.deduper.Size()
	}
	return stats
}
