// Package recorder persists score results. The log is append-only: one
// row per scoring call, never rewritten, so a resubmission simply adds a
// second row for the same participant and trial.
package recorder

import (
	"context"

	"github.com/okian/marklab/internal/domain/model"
)

// Recorder appends score results to a session's result log.
type Recorder interface {
	// Append adds one result record. Records are never updated or
	// removed.
	Append(ctx context.Context, result model.Result) error

	// Close releases the underlying log.
	Close() error
}
