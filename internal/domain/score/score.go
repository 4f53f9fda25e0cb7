// Package score reconciles a participant's recollection of a trial
// against the recorded ground truth and computes the weighted score.
package score

import (
	"context"
	"time"

	"github.com/okian/marklab/internal/domain/model"
	"github.com/okian/marklab/pkg/errs"
	"github.com/okian/marklab/pkg/metrics"
)

// Fixed component weights. They sum to 100 and are not configurable:
// the three-term split is part of the experiment protocol.
const (
	ExternalWeight = 33.4
	DerivedWeight  = 33.3
	MarkersWeight  = 33.3
)

// Engine computes scores. It is stateless and safe for concurrent use.
type Engine struct {
	now func() time.Time
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithClock replaces the scored-at clock, pinned by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates a scoring engine with configuration options.
func New(opts ...Option) *Engine {
	e := &Engine{
		now: time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Score validates the response for completeness and computes the
// weighted result. The derived truth is recomputed from the assignment,
// never trusted from the caller. Marker correctness is all-or-nothing:
// a single wrong marker guess zeroes that component. Guesses for
// markers outside the assignment are ignored.
//
// An unset required field fails with ErrIncompleteResponse before any
// scoring happens; no partial score is ever produced.
func (e *Engine) Score(ctx context.Context, assignment model.Assignment, externalTruth bool, response model.Response) (model.Result, error) {
	const op = "score.score"

	if err := validate(assignment, response); err != nil {
		metrics.RecordResponseIncomplete()
		return model.Result{}, errs.Wrap(op, err)
	}

	derivedTruth := assignment.AnyFlagged()

	externalCorrect := *response.External == externalTruth
	derivedCorrect := *response.Derived == derivedTruth

	markersCorrect := true
	for id, want := range assignment {
		if response.Markers[id] != want {
			markersCorrect = false
			break
		}
	}

	total := 0.0
	if externalCorrect {
		total += ExternalWeight
	}
	if derivedCorrect {
		total += DerivedWeight
	}
	if markersCorrect {
		total += MarkersWeight
	}

	result := model.Result{
		Participant:     response.Participant,
		Trial:           response.Trial,
		ScoredAt:        e.now(),
		ExternalGuess:   *response.External,
		ExternalTruth:   externalTruth,
		ExternalCorrect: externalCorrect,
		DerivedGuess:    *response.Derived,
		DerivedTruth:    derivedTruth,
		DerivedCorrect:  derivedCorrect,
		MarkersCorrect:  markersCorrect,
		Score:           total,
		MarkerGuesses:   cloneGuesses(response.Markers),
	}

	metrics.RecordResponseScored()
	metrics.RecordScoreValue(total)

	return result, nil
}

// validate rejects a response missing any required field.
func validate(assignment model.Assignment, response model.Response) error {
	const op = "score.validate"

	if len(assignment) == 0 {
		return errs.Kindf(op, ErrIncompleteResponse, "assignment is empty")
	}
	if response.Participant == "" {
		return errs.Kindf(op, ErrIncompleteResponse, "participant id is unset")
	}
	if response.Trial == "" {
		return errs.Kindf(op, ErrIncompleteResponse, "trial id is unset")
	}
	if response.External == nil {
		return errs.Kindf(op, ErrIncompleteResponse, "external guess is unset")
	}
	if response.Derived == nil {
		return errs.Kindf(op, ErrIncompleteResponse, "derived guess is unset")
	}
	for _, id := range assignment.IDs() {
		if _, ok := response.Markers[id]; !ok {
			return errs.Kindf(op, ErrIncompleteResponse, "marker %d guess is unset", id)
		}
	}
	return nil
}

func cloneGuesses(guesses map[model.MarkerID]model.MarkerState) map[model.MarkerID]model.MarkerState {
	out := make(map[model.MarkerID]model.MarkerState, len(guesses))
	for id, s := range guesses {
		out[id] = s
	}
	return out
}
