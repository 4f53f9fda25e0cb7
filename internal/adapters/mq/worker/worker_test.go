package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/marklab/internal/adapters/mq/queue"
	worker "github.com/okian/marklab/internal/adapters/mq/worker"
	model "github.com/okian/marklab/internal/domain/model"
	score "github.com/okian/marklab/internal/domain/score"
	logging "github.com/okian/marklab/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	subChan chan queue.Submission
}

func newMockQueue() *mockQueue {
	return &mockQueue{
		subChan: make(chan queue.Submission, 10),
	}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Submission {
	return mq.subChan
}

func (mq *mockQueue) Close() error {
	close(mq.subChan)
	return nil
}

func (mq *mockQueue) add(s queue.Submission) {
	mq.subChan <- s
}

type mockScorer struct {
	mu     sync.RWMutex
	errors map[string]error
}

func newMockScorer() *mockScorer {
	return &mockScorer{errors: make(map[string]error)}
}

func (ms *mockScorer) Score(ctx context.Context, response model.Response) (model.Result, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if err, exists := ms.errors[response.Participant]; exists {
		return model.Result{}, err
	}
	return model.Result{
		Participant: response.Participant,
		Trial:       response.Trial,
		Score:       100.0,
	}, nil
}

func (ms *mockScorer) setError(participant string, err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.errors[participant] = err
}

type mockRecorder struct {
	mu      sync.RWMutex
	results []model.Result
	err     error
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{}
}

func (mr *mockRecorder) Append(ctx context.Context, result model.Result) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	if mr.err != nil {
		return mr.err
	}
	mr.results = append(mr.results, result)
	return nil
}

func (mr *mockRecorder) byParticipant(participant string) (model.Result, bool) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	for _, r := range mr.results {
		if r.Participant == participant {
			return r, true
		}
	}
	return model.Result{}, false
}

func (mr *mockRecorder) count() int {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return len(mr.results)
}

func submission(participant, trial string) queue.Submission {
	external := true
	derived := false
	return queue.Submission{
		Key:  participant + "|" + trial,
		Path: "/tmp/" + participant + "_" + trial + ".yaml",
		Response: model.Response{
			Participant: participant,
			Trial:       trial,
			External:    &external,
			Derived:     &derived,
		},
		ReceivedAt: time.Now(),
	}
}

func TestGradingWorker(t *testing.T) {
	convey.Convey("Given a new GradingWorker", t, func() {
		// Initialize logging for tests
		_ = logging.Init()

		q := newMockQueue()
		scorer := newMockScorer()
		rec := newMockRecorder()

		convey.Convey("When running a worker", func() {
			w := worker.NewGradingWorker(q, scorer, rec, worker.WithName("test-worker"))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go w.Run(ctx)
			time.Sleep(10 * time.Millisecond)

			convey.Convey("And when processing a submission", func() {
				q.add(submission("p01", "t01"))
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then the result is appended", func() {
					result, ok := rec.byParticipant("p01")
					convey.So(ok, convey.ShouldBeTrue)
					convey.So(result.Trial, convey.ShouldEqual, "t01")
					convey.So(result.Score, convey.ShouldEqual, 100.0)
				})
			})

			convey.Convey("And when scoring fails", func() {
				scorer.setError("p02", errors.New("scoring error"))
				q.add(submission("p02", "t01"))
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then nothing is appended", func() {
					_, ok := rec.byParticipant("p02")
					convey.So(ok, convey.ShouldBeFalse)
				})
			})

			convey.Convey("And when the response is incomplete", func() {
				scorer.setError("p03", score.ErrIncompleteResponse)
				q.add(submission("p03", "t01"))
				q.add(submission("p04", "t01"))
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then the submission is skipped and the worker keeps going", func() {
					_, rejected := rec.byParticipant("p03")
					convey.So(rejected, convey.ShouldBeFalse)

					_, ok := rec.byParticipant("p04")
					convey.So(ok, convey.ShouldBeTrue)
				})
			})

			convey.Convey("And when shutting down", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer shutdownCancel()

				err := w.Shutdown(shutdownCtx)

				convey.Convey("Then it should shutdown gracefully", func() {
					convey.So(err, convey.ShouldBeNil)
				})
			})
		})

		convey.Convey("When the queue channel is closed", func() {
			w := worker.NewGradingWorker(q, scorer, rec)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go w.Run(ctx)
			time.Sleep(10 * time.Millisecond)
			_ = q.Close()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer shutdownCancel()

			convey.Convey("Then the worker stops on its own", func() {
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a worker pool over a real queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		scorer := newMockScorer()
		rec := newMockRecorder()

		convey.Convey("When a default-size pool processes submissions", func() {
			pool := worker.NewPool(0, q, scorer, rec)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			pool.Start(ctx)

			for _, p := range []string{"p01", "p02", "p03"} {
				convey.So(q.Enqueue(ctx, submission(p, "t01")), convey.ShouldBeTrue)
			}

			time.Sleep(100 * time.Millisecond)

			convey.Convey("Then every submission is scored and appended", func() {
				convey.So(rec.count(), convey.ShouldEqual, 3)
			})

			convey.Convey("And a graceful shutdown drains the queue", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
				defer shutdownCancel()
				convey.So(pool.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}
