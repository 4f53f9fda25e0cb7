// Package storage holds the file codecs for the session's artifacts:
// the assignment CSV, the external-truth file, and participant response
// files. The core consumes the decoded values verbatim; presence checks
// and format errors surface here, before the core is invoked.
package storage

import (
	"encoding/csv"
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/okian/marklab/internal/domain/model"
	"github.com/okian/marklab/pkg/errs"
)

// assignmentHeader is the fixed header row of the assignment CSV.
var assignmentHeader = []string{"marker_id", "state"}

// resultFilePermission matches a single-writer experiment artifact.
const resultFilePermission = 0600

// WriteAssignment serializes the assignment as CSV, one row per marker
// sorted by ID under a fixed header. The written file round-trips the
// mapping exactly through ReadAssignment.
func WriteAssignment(path string, a model.Assignment) error {
	const op = "storage.writeAssignment"

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, resultFilePermission)
	if err != nil {
		return errs.Wrap(op, err)
	}
	defer f.Close() //nolint:errcheck // flushed and checked below

	w := csv.NewWriter(f)
	if err := w.Write(assignmentHeader); err != nil {
		return errs.Wrap(op, err)
	}
	for _, id := range a.IDs() {
		if err := w.Write([]string{strconv.Itoa(int(id)), a[id].String()}); err != nil {
			return errs.Wrap(op, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errs.Wrap(op, err)
	}
	return errs.Wrap(op, f.Close())
}

// ReadAssignment loads an assignment CSV. It rejects a missing header,
// non-integer or duplicate marker IDs, and unknown state names. A
// missing file is reported as ErrMissingFile so callers can fail fast
// before scoring.
func ReadAssignment(path string) (model.Assignment, error) {
	const op = "storage.readAssignment"

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.WrapKind(op, ErrMissingFile, err)
		}
		return nil, errs.Wrap(op, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(assignmentHeader)

	rows, err := r.ReadAll()
	if err != nil {
		return nil, errs.WrapKind(op, ErrMalformedFile, err)
	}
	if len(rows) == 0 || rows[0][0] != assignmentHeader[0] || rows[0][1] != assignmentHeader[1] {
		return nil, errs.Kindf(op, ErrMalformedFile, "missing assignment header")
	}

	assignment := make(model.Assignment, len(rows)-1)
	for _, row := range rows[1:] {
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, errs.Kindf(op, ErrMalformedFile, "non-integer marker id %q", row[0])
		}
		state, err := model.ParseState(row[1])
		if err != nil {
			return nil, errs.Kindf(op, ErrMalformedFile, "marker %d has unknown state %q", id, row[1])
		}
		if _, dup := assignment[model.MarkerID(id)]; dup {
			return nil, errs.Kindf(op, ErrMalformedFile, "duplicate marker id %d", id)
		}
		assignment[model.MarkerID(id)] = state
	}
	if len(assignment) == 0 {
		return nil, errs.Kindf(op, ErrMalformedFile, "assignment has no markers")
	}
	return assignment, nil
}
