package recorder

import (
	"context"
	"encoding/csv"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/okian/marklab/internal/domain/model"
	"github.com/okian/marklab/pkg/errs"
	"github.com/okian/marklab/pkg/metrics"
)

// resultHeader is written exactly once, when the log file is created.
var resultHeader = []string{
	"scored_at",
	"participant_id",
	"trial_id",
	"external_guess",
	"external_truth",
	"external_correct",
	"derived_guess",
	"derived_truth",
	"derived_correct",
	"markers_correct",
	"score",
	"marker_guesses",
}

const logFilePermission = 0600

// CSVRecorder appends score results to a CSV file. Safe for concurrent
// use; rows from concurrent appends never interleave.
type CSVRecorder struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	closed bool
}

// NewCSVRecorder opens (or creates) the result log at path. The header
// row is written only when the file is newly created or empty, so
// re-opening an existing log keeps appending rows under the original
// header.
func NewCSVRecorder(path string) (*CSVRecorder, error) {
	const op = "recorder.newCSV"

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}

	r := &CSVRecorder{
		file:   f,
		writer: csv.NewWriter(f),
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errs.Wrap(op, err)
	}
	if info.Size() == 0 {
		if err := r.writer.Write(resultHeader); err != nil {
			_ = f.Close()
			return nil, errs.Wrap(op, err)
		}
		r.writer.Flush()
		if err := r.writer.Error(); err != nil {
			_ = f.Close()
			return nil, errs.Wrap(op, err)
		}
	}

	return r, nil
}

// Append writes one result row and flushes it to disk.
func (r *CSVRecorder) Append(ctx context.Context, result model.Result) error {
	const op = "recorder.csvAppend"

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		metrics.RecordAppendError()
		return errs.NewKind(op, ErrClosed)
	}

	row := []string{
		result.ScoredAt.UTC().Format(time.RFC3339),
		result.Participant,
		result.Trial,
		formatBool(result.ExternalGuess),
		formatBool(result.ExternalTruth),
		formatBool(result.ExternalCorrect),
		formatBool(result.DerivedGuess),
		formatBool(result.DerivedTruth),
		formatBool(result.DerivedCorrect),
		formatBool(result.MarkersCorrect),
		strconv.FormatFloat(result.Score, 'f', 1, 64),
		packGuesses(result.MarkerGuesses),
	}
	if err := r.writer.Write(row); err != nil {
		metrics.RecordAppendError()
		return errs.Wrap(op, err)
	}
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		metrics.RecordAppendError()
		return errs.Wrap(op, err)
	}

	metrics.RecordResultAppended()
	return nil
}

// Close flushes and closes the log file.
func (r *CSVRecorder) Close() error {
	const op = "recorder.csvClose"

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		_ = r.file.Close()
		return errs.Wrap(op, err)
	}
	return errs.Wrap(op, r.file.Close())
}

// formatBool renders booleans the way the response forms do: 0 or 1.
func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// packGuesses flattens the per-marker guess echo into a single cell,
// e.g. "0=normal;1=flagged", sorted by marker id.
func packGuesses(guesses map[model.MarkerID]model.MarkerState) string {
	ids := make([]int, 0, len(guesses))
	for id := range guesses {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.Itoa(id)+"="+guesses[model.MarkerID(id)].String())
	}
	return strings.Join(parts, ";")
}
