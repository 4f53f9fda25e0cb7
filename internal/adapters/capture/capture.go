// Package capture provides detection-stream sources for the live
// session loop. A Source hands out one frame at a time; the caller owns
// the single-threaded pull loop that feeds the visibility tracker, so
// sources never push and never call back.
package capture

import (
	"context"

	"github.com/okian/marklab/internal/domain/model"
)

// Source produces per-frame marker-detection results.
type Source interface {
	// Next blocks until the next frame is available and returns it.
	// Returns ErrStreamEnd once the stream is exhausted or the operator
	// ends the session; returns ctx.Err() when the context is canceled
	// first.
	Next(ctx context.Context) (model.Frame, error)

	// Close releases the underlying stream.
	Close() error
}
