package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/marklab/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new deduper", t, func() {
		Convey("When recording submission keys", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the key is new", func() {
				seen := d.SeenAndRecord(context.Background(), "p01|t01")

				Convey("Then it should return false and record the key", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the key was already seen", func() {
				d.SeenAndRecord(context.Background(), "p01|t01")
				seen := d.SeenAndRecord(context.Background(), "p01|t01")

				Convey("Then it should return true without growing", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})
		})

		Convey("When unrecording keys", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the key exists", func() {
				d.SeenAndRecord(context.Background(), "p01|t01")
				d.Unrecord(context.Background(), "p01|t01")

				Convey("Then it can be recorded again", func() {
					So(d.Size(), ShouldEqual, 0)
					So(d.SeenAndRecord(context.Background(), "p01|t01"), ShouldBeFalse)
				})
			})

			Convey("And the key does not exist", func() {
				d.Unrecord(context.Background(), "missing")

				Convey("Then the size is unaffected", func() {
					So(d.Size(), ShouldEqual, 0)
				})
			})
		})

		Convey("When using bounded mode with eviction", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

			Convey("And the deduper is at capacity", func() {
				for _, key := range []string{"p01|t01", "p02|t01", "p03|t01"} {
					So(d.SeenAndRecord(context.Background(), key), ShouldBeFalse)
				}
				So(d.Size(), ShouldEqual, 3)

				Convey("Then a new key evicts the oldest one", func() {
					So(d.SeenAndRecord(context.Background(), "p04|t01"), ShouldBeFalse)
					So(d.Size(), ShouldEqual, 3)

					// Oldest key is gone, so recording it again is fresh.
					So(d.SeenAndRecord(context.Background(), "p01|t01"), ShouldBeFalse)
					So(d.Size(), ShouldEqual, 3)

					// Newer keys survived the first eviction.
					So(d.SeenAndRecord(context.Background(), "p04|t01"), ShouldBeTrue)
				})
			})
		})

		Convey("When using unbounded mode", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))

			Convey("And many keys are recorded", func() {
				const numKeys = 1000
				for i := 0; i < numKeys; i++ {
					So(d.SeenAndRecord(context.Background(), fmt.Sprintf("p%d|t01", i)), ShouldBeFalse)
				}

				Convey("Then nothing is evicted", func() {
					So(d.Size(), ShouldEqual, int64(numKeys))
				})
			})
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given a deduper with concurrent access", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))
		const (
			numGoroutines    = 10
			keysPerGoroutine = 100
		)

		Convey("When multiple goroutines record keys concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func(id int) {
					defer wg.Done()
					for j := 0; j < keysPerGoroutine; j++ {
						d.SeenAndRecord(context.Background(), fmt.Sprintf("p%d|t%d", id, j))
					}
				}(i)
			}
			wg.Wait()

			Convey("Then every key is recorded exactly once", func() {
				So(d.Size(), ShouldEqual, int64(numGoroutines*keysPerGoroutine))
			})
		})
	})
}
