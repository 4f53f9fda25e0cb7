package score_test

import (
	"context"
	"errors"
	"testing"
	"time"

	model "github.com/okian/marklab/internal/domain/model"
	score "github.com/okian/marklab/internal/domain/score"
	. "github.com/smartystreets/goconvey/convey"
)

// weightTolerance is the representable precision of the fixed weights.
const weightTolerance = 1e-9

func boolPtr(b bool) *bool { return &b }

func fullResponse(markers map[model.MarkerID]model.MarkerState) model.Response {
	return model.Response{
		Participant: "p01",
		Trial:       "t01",
		External:    boolPtr(true),
		Derived:     boolPtr(true),
		Markers:     markers,
	}
}

func TestScore_AllCorrect(t *testing.T) {
	Convey("Given a fully correct response", t, func() {
		engine := score.New()
		assignment := model.Assignment{
			0: model.StateFlagged,
			1: model.StateNormal,
		}
		response := fullResponse(map[model.MarkerID]model.MarkerState{
			0: model.StateFlagged,
			1: model.StateNormal,
		})

		Convey("When all three components are correct", func() {
			result, err := engine.Score(context.Background(), assignment, true, response)

			Convey("Then the score is exactly 100", func() {
				So(err, ShouldBeNil)
				So(result.DerivedTruth, ShouldBeTrue)
				So(result.ExternalCorrect, ShouldBeTrue)
				So(result.DerivedCorrect, ShouldBeTrue)
				So(result.MarkersCorrect, ShouldBeTrue)
				So(result.Score, ShouldAlmostEqual, 100.0, weightTolerance)
			})
		})
	})
}

func TestScore_MarkersAllOrNothing(t *testing.T) {
	Convey("Given an assignment with one flagged marker", t, func() {
		engine := score.New()
		assignment := model.Assignment{
			0: model.StateFlagged,
			1: model.StateNormal,
		}

		Convey("When a single marker guess is wrong", func() {
			response := fullResponse(map[model.MarkerID]model.MarkerState{
				0: model.StateNormal, // wrong
				1: model.StateNormal,
			})
			result, err := engine.Score(context.Background(), assignment, true, response)

			Convey("Then the whole marker component is zeroed", func() {
				So(err, ShouldBeNil)
				So(result.MarkersCorrect, ShouldBeFalse)
				So(result.ExternalCorrect, ShouldBeTrue)
				So(result.DerivedCorrect, ShouldBeTrue)
				So(result.Score, ShouldAlmostEqual, 66.7, weightTolerance)
			})
		})

		Convey("When every component is wrong", func() {
			response := model.Response{
				Participant: "p01",
				Trial:       "t01",
				External:    boolPtr(false),
				Derived:     boolPtr(false),
				Markers: map[model.MarkerID]model.MarkerState{
					0: model.StateNormal,
					1: model.StateFlagged,
				},
			}
			result, err := engine.Score(context.Background(), assignment, true, response)

			Convey("Then the score is zero", func() {
				So(err, ShouldBeNil)
				So(result.Score, ShouldAlmostEqual, 0.0, weightTolerance)
			})
		})

		Convey("When guesses for unknown markers are supplied", func() {
			response := fullResponse(map[model.MarkerID]model.MarkerState{
				0: model.StateFlagged,
				1: model.StateNormal,
				7: model.StateFlagged, // not in the assignment
			})
			result, err := engine.Score(context.Background(), assignment, true, response)

			Convey("Then they are ignored", func() {
				So(err, ShouldBeNil)
				So(result.MarkersCorrect, ShouldBeTrue)
				So(result.Score, ShouldAlmostEqual, 100.0, weightTolerance)
			})
		})
	})
}

func TestScore_DerivedTruth(t *testing.T) {
	Convey("Given an all-normal assignment", t, func() {
		engine := score.New()
		assignment := model.Assignment{
			0: model.StateNormal,
			1: model.StateNormal,
		}
		response := model.Response{
			Participant: "p02",
			Trial:       "t05",
			External:    boolPtr(false),
			Derived:     boolPtr(false),
			Markers: map[model.MarkerID]model.MarkerState{
				0: model.StateNormal,
				1: model.StateNormal,
			},
		}

		Convey("When scoring", func() {
			result, err := engine.Score(context.Background(), assignment, false, response)

			Convey("Then the derived truth is false and everything matches", func() {
				So(err, ShouldBeNil)
				So(result.DerivedTruth, ShouldBeFalse)
				So(result.Score, ShouldAlmostEqual, 100.0, weightTolerance)
			})
		})
	})
}

func TestScore_IncompleteResponse(t *testing.T) {
	Convey("Given a scoring engine", t, func() {
		engine := score.New()
		assignment := model.Assignment{
			0: model.StateFlagged,
			1: model.StateNormal,
		}

		cases := []struct {
			name     string
			response model.Response
		}{
			{
				name: "missing derived guess",
				response: model.Response{
					Participant: "p01",
					Trial:       "t01",
					External:    boolPtr(true),
					Markers: map[model.MarkerID]model.MarkerState{
						0: model.StateFlagged,
						1: model.StateNormal,
					},
				},
			},
			{
				name: "missing external guess",
				response: model.Response{
					Participant: "p01",
					Trial:       "t01",
					Derived:     boolPtr(true),
					Markers: map[model.MarkerID]model.MarkerState{
						0: model.StateFlagged,
						1: model.StateNormal,
					},
				},
			},
			{
				name: "missing one marker guess",
				response: model.Response{
					Participant: "p01",
					Trial:       "t01",
					External:    boolPtr(true),
					Derived:     boolPtr(true),
					Markers: map[model.MarkerID]model.MarkerState{
						0: model.StateFlagged,
					},
				},
			},
			{
				name: "missing participant id",
				response: fullResponse(map[model.MarkerID]model.MarkerState{
					0: model.StateFlagged,
					1: model.StateNormal,
				}),
			},
		}
		cases[3].response.Participant = ""

		for _, tc := range cases {
			Convey("When scoring a response with "+tc.name, func() {
				result, err := engine.Score(context.Background(), assignment, true, tc.response)

				Convey("Then scoring fails and no result is produced", func() {
					So(errors.Is(err, score.ErrIncompleteResponse), ShouldBeTrue)
					So(result, ShouldResemble, model.Result{})
				})
			})
		}
	})
}

func TestScore_Determinism(t *testing.T) {
	Convey("Given a pinned clock", t, func() {
		ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		engine := score.New(score.WithClock(func() time.Time { return ts }))
		assignment := model.Assignment{0: model.StateFlagged}
		response := fullResponse(map[model.MarkerID]model.MarkerState{0: model.StateFlagged})

		Convey("When scoring the same inputs twice", func() {
			r1, err1 := engine.Score(context.Background(), assignment, true, response)
			r2, err2 := engine.Score(context.Background(), assignment, true, response)

			Convey("Then the results are identical", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(r1, ShouldResemble, r2)
				So(r1.ScoredAt, ShouldEqual, ts)
			})
		})
	})
}
