package recorder_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	recorder "github.com/okian/marklab/internal/adapters/recorder"
	model "github.com/okian/marklab/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleResult(participant, trial string, score float64) model.Result {
	return model.Result{
		Participant:     participant,
		Trial:           trial,
		ScoredAt:        time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC),
		ExternalGuess:   true,
		ExternalTruth:   true,
		ExternalCorrect: true,
		DerivedGuess:    true,
		DerivedTruth:    true,
		DerivedCorrect:  true,
		MarkersCorrect:  false,
		Score:           score,
		MarkerGuesses: map[model.MarkerID]model.MarkerState{
			1: model.StateFlagged,
			0: model.StateNormal,
		},
	}
}

func TestCSVRecorder(t *testing.T) {
	Convey("Given a CSV result log", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "results.csv")
		ctx := context.Background()

		Convey("When appending the first result", func() {
			r, err := recorder.NewCSVRecorder(path)
			So(err, ShouldBeNil)
			So(r.Append(ctx, sampleResult("p01", "t01", 66.7)), ShouldBeNil)
			So(r.Close(), ShouldBeNil)

			raw, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			lines := strings.Split(strings.TrimSpace(string(raw)), "\n")

			Convey("Then the file holds the header plus one row", func() {
				So(lines, ShouldHaveLength, 2)
				So(lines[0], ShouldStartWith, "scored_at,participant_id,trial_id")
				So(lines[1], ShouldContainSubstring, "p01,t01,1,1,1,1,1,1,0,66.7")
				So(lines[1], ShouldContainSubstring, "0=normal;1=flagged")
			})
		})

		Convey("When re-opening an existing log and appending again", func() {
			r1, err := recorder.NewCSVRecorder(path)
			So(err, ShouldBeNil)
			So(r1.Append(ctx, sampleResult("p01", "t01", 100.0)), ShouldBeNil)
			So(r1.Close(), ShouldBeNil)

			r2, err := recorder.NewCSVRecorder(path)
			So(err, ShouldBeNil)
			So(r2.Append(ctx, sampleResult("p01", "t01", 66.7)), ShouldBeNil)
			So(r2.Append(ctx, sampleResult("p02", "t01", 0.0)), ShouldBeNil)
			So(r2.Close(), ShouldBeNil)

			raw, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			lines := strings.Split(strings.TrimSpace(string(raw)), "\n")

			Convey("Then the header appears only once and rows accumulate", func() {
				So(lines, ShouldHaveLength, 4)
				So(strings.Count(string(raw), "scored_at"), ShouldEqual, 1)
			})

			Convey("Then resubmission of the same key produced two rows", func() {
				rowsForKey := 0
				for _, line := range lines[1:] {
					if strings.Contains(line, "p01,t01") {
						rowsForKey++
					}
				}
				So(rowsForKey, ShouldEqual, 2)
			})
		})

		Convey("When appending after Close", func() {
			r, err := recorder.NewCSVRecorder(path)
			So(err, ShouldBeNil)
			So(r.Close(), ShouldBeNil)

			err = r.Append(ctx, sampleResult("p01", "t01", 100.0))
			So(errors.Is(err, recorder.ErrClosed), ShouldBeTrue)
		})
	})
}

func TestSQLiteRecorder(t *testing.T) {
	Convey("Given a SQLite result log", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "results.db")
		ctx := context.Background()

		r, err := recorder.NewSQLiteRecorder(path)
		So(err, ShouldBeNil)
		defer r.Close() //nolint:errcheck // test cleanup

		Convey("When appending results for several trials", func() {
			So(r.Append(ctx, sampleResult("p01", "t01", 66.7)), ShouldBeNil)
			So(r.Append(ctx, sampleResult("p01", "t02", 100.0)), ShouldBeNil)
			So(r.Append(ctx, sampleResult("p01", "t01", 33.3)), ShouldBeNil)

			Convey("Then Count sees every row", func() {
				n, err := r.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)
			})

			Convey("Then ByTrial returns resubmissions in append order", func() {
				results, err := r.ByTrial(ctx, "p01", "t01")
				So(err, ShouldBeNil)
				So(results, ShouldHaveLength, 2)
				So(results[0].Score, ShouldAlmostEqual, 66.7, 1e-9)
				So(results[1].Score, ShouldAlmostEqual, 33.3, 1e-9)
				So(results[0].MarkersCorrect, ShouldBeFalse)
			})

			Convey("Then an unknown key returns no rows", func() {
				results, err := r.ByTrial(ctx, "p99", "t01")
				So(err, ShouldBeNil)
				So(results, ShouldBeEmpty)
			})
		})

		Convey("When re-opening the same database", func() {
			So(r.Append(ctx, sampleResult("p05", "t05", 0.0)), ShouldBeNil)
			So(r.Close(), ShouldBeNil)

			reopened, err := recorder.NewSQLiteRecorder(path)
			So(err, ShouldBeNil)
			defer reopened.Close() //nolint:errcheck // test cleanup

			Convey("Then existing rows survive", func() {
				results, err := reopened.ByTrial(ctx, "p05", "t05")
				So(err, ShouldBeNil)
				So(results, ShouldHaveLength, 1)
			})
		})
	})
}
