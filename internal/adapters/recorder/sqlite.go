package recorder

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/okian/marklab/internal/domain/model"
	"github.com/okian/marklab/pkg/errs"
	"github.com/okian/marklab/pkg/metrics"
)

// resultsSchema is created on open. No unique constraint on
// (participant, trial): the log is append-only and a resubmission is a
// second row, not an upsert.
const resultsSchema = `
CREATE TABLE IF NOT EXISTS results (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	scored_at        TEXT NOT NULL,
	participant_id   TEXT NOT NULL,
	trial_id         TEXT NOT NULL,
	external_guess   INTEGER NOT NULL,
	external_truth   INTEGER NOT NULL,
	external_correct INTEGER NOT NULL,
	derived_guess    INTEGER NOT NULL,
	derived_truth    INTEGER NOT NULL,
	derived_correct  INTEGER NOT NULL,
	markers_correct  INTEGER NOT NULL,
	score            REAL NOT NULL,
	marker_guesses   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_key ON results(participant_id, trial_id);
`

// SQLiteRecorder appends score results to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
}

// NewSQLiteRecorder opens (or creates) the result database at path and
// ensures the schema exists.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	const op = "recorder.newSQLite"

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	if _, err := db.Exec(resultsSchema); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(op, err)
	}
	return &SQLiteRecorder{db: db}, nil
}

// Append inserts one result row.
func (r *SQLiteRecorder) Append(ctx context.Context, result model.Result) error {
	const op = "recorder.sqliteAppend"

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO results (
			scored_at, participant_id, trial_id,
			external_guess, external_truth, external_correct,
			derived_guess, derived_truth, derived_correct,
			markers_correct, score, marker_guesses
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ScoredAt.UTC().Format(time.RFC3339),
		result.Participant,
		result.Trial,
		result.ExternalGuess,
		result.ExternalTruth,
		result.ExternalCorrect,
		result.DerivedGuess,
		result.DerivedTruth,
		result.DerivedCorrect,
		result.MarkersCorrect,
		result.Score,
		packGuesses(result.MarkerGuesses),
	)
	if err != nil {
		metrics.RecordAppendError()
		return errs.Wrap(op, err)
	}

	metrics.RecordResultAppended()
	return nil
}

// ByTrial returns every result recorded for a (participant, trial)
// pair in append order. Multiple rows mean the pair was resubmitted.
func (r *SQLiteRecorder) ByTrial(ctx context.Context, participant, trial string) ([]model.Result, error) {
	const op = "recorder.sqliteByTrial"

	rows, err := r.db.QueryContext(ctx,
		`SELECT scored_at, participant_id, trial_id,
			external_guess, external_truth, external_correct,
			derived_guess, derived_truth, derived_correct,
			markers_correct, score
		FROM results
		WHERE participant_id = ? AND trial_id = ?
		ORDER BY id`,
		participant, trial,
	)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	var results []model.Result
	for rows.Next() {
		var (
			result   model.Result
			scoredAt string
		)
		if err := rows.Scan(
			&scoredAt,
			&result.Participant,
			&result.Trial,
			&result.ExternalGuess,
			&result.ExternalTruth,
			&result.ExternalCorrect,
			&result.DerivedGuess,
			&result.DerivedTruth,
			&result.DerivedCorrect,
			&result.MarkersCorrect,
			&result.Score,
		); err != nil {
			return nil, errs.Wrap(op, err)
		}
		if ts, err := time.Parse(time.RFC3339, scoredAt); err == nil {
			result.ScoredAt = ts
		}
		results = append(results, result)
	}
	return results, errs.Wrap(op, rows.Err())
}

// Count returns the total number of recorded results.
func (r *SQLiteRecorder) Count(ctx context.Context) (int, error) {
	const op = "recorder.sqliteCount"

	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`).Scan(&n); err != nil {
		return 0, errs.Wrap(op, err)
	}
	return n, nil
}

// Close closes the database.
func (r *SQLiteRecorder) Close() error {
	return errs.Wrap("recorder.sqliteClose", r.db.Close())
}
