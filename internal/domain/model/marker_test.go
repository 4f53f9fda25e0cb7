package model_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/okian/marklab/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestMarkerState(t *testing.T) {
	convey.Convey("Given the marker state enum", t, func() {
		convey.Convey("When rendering states as text", func() {
			convey.So(model.StateNormal.String(), convey.ShouldEqual, "normal")
			convey.So(model.StateFlagged.String(), convey.ShouldEqual, "flagged")
		})

		convey.Convey("When parsing textual forms", func() {
			normal, err := model.ParseState("normal")
			convey.So(err, convey.ShouldBeNil)
			convey.So(normal, convey.ShouldEqual, model.StateNormal)

			flagged, err := model.ParseState("flagged")
			convey.So(err, convey.ShouldBeNil)
			convey.So(flagged, convey.ShouldEqual, model.StateFlagged)
		})

		convey.Convey("When parsing an unknown form", func() {
			_, err := model.ParseState("red")

			convey.Convey("Then it should fail with the sentinel", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, model.ErrUnknownState), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When round-tripping every state", func() {
			for _, s := range []model.MarkerState{model.StateNormal, model.StateFlagged} {
				parsed, err := model.ParseState(s.String())
				convey.So(err, convey.ShouldBeNil)
				convey.So(parsed, convey.ShouldEqual, s)
			}
		})
	})
}

func TestAssignment(t *testing.T) {
	convey.Convey("Given an assignment", t, func() {
		a := model.Assignment{
			0: model.StateNormal,
			1: model.StateFlagged,
			2: model.StateNormal,
			3: model.StateFlagged,
		}

		convey.Convey("When counting flagged markers", func() {
			convey.So(a.FlaggedCount(), convey.ShouldEqual, 2)
			convey.So(a.AnyFlagged(), convey.ShouldBeTrue)
		})

		convey.Convey("When no marker is flagged", func() {
			clean := model.Assignment{0: model.StateNormal, 1: model.StateNormal}
			convey.So(clean.FlaggedCount(), convey.ShouldEqual, 0)
			convey.So(clean.AnyFlagged(), convey.ShouldBeFalse)
		})

		convey.Convey("When listing IDs", func() {
			ids := a.IDs()

			convey.Convey("Then they should be sorted ascending", func() {
				convey.So(ids, convey.ShouldResemble, []model.MarkerID{0, 1, 2, 3})
			})
		})

		convey.Convey("When cloning", func() {
			clone := a.Clone()
			convey.So(clone.Equal(a), convey.ShouldBeTrue)

			clone[0] = model.StateFlagged

			convey.Convey("Then mutating the clone should not touch the original", func() {
				convey.So(a[0], convey.ShouldEqual, model.StateNormal)
				convey.So(clone.Equal(a), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When comparing assignments of different sizes", func() {
			convey.So(a.Equal(model.Assignment{0: model.StateNormal}), convey.ShouldBeFalse)
		})
	})
}

func TestInterval(t *testing.T) {
	convey.Convey("Given a visibility interval", t, func() {
		base := time.Unix(100, 0)
		iv := model.Interval{Start: base, End: base.Add(3 * time.Second)}

		convey.Convey("When computing its duration", func() {
			convey.So(iv.Duration(), convey.ShouldEqual, 3*time.Second)
		})
	})
}

func TestResponse(t *testing.T) {
	convey.Convey("Given a participant response", t, func() {
		convey.Convey("When fields are left unset", func() {
			r := model.Response{Participant: "P01", Trial: "T01"}

			convey.Convey("Then unset answers are distinguishable from false", func() {
				convey.So(r.External, convey.ShouldBeNil)
				convey.So(r.Derived, convey.ShouldBeNil)
				convey.So(r.Markers, convey.ShouldBeNil)
			})
		})

		convey.Convey("When fields are populated", func() {
			yes := true
			no := false
			r := model.Response{
				Participant: "P01",
				Trial:       "T01",
				External:    &yes,
				Derived:     &no,
				Markers:     map[model.MarkerID]model.MarkerState{0: model.StateFlagged},
			}

			convey.So(*r.External, convey.ShouldBeTrue)
			convey.So(*r.Derived, convey.ShouldBeFalse)
			convey.So(r.Markers[0], convey.ShouldEqual, model.StateFlagged)
		})
	})
}

func TestRecord(t *testing.T) {
	convey.Convey("Given assignments with and without flagged markers", t, func() {
		flagged := model.Assignment{0: model.StateFlagged, 1: model.StateNormal}
		clean := model.Assignment{0: model.StateNormal, 1: model.StateNormal}

		convey.Convey("When building records", func() {
			convey.So(model.NewRecord(flagged).Derived, convey.ShouldBeTrue)
			convey.So(model.NewRecord(clean).Derived, convey.ShouldBeFalse)
		})

		convey.Convey("When mutating the source assignment afterwards", func() {
			rec := model.NewRecord(clean)
			clean[0] = model.StateFlagged

			convey.Convey("Then the record keeps its own copy", func() {
				convey.So(rec.Assignment[0], convey.ShouldEqual, model.StateNormal)
				convey.So(rec.Derived, convey.ShouldBeFalse)
			})
		})
	})
}
