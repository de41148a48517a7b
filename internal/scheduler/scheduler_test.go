package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestScheduler_Add(t *testing.T) {
	Convey("Given a new scheduler", t, func() {
		s := New()

		Convey("When adding a job with a valid spec", func() {
			err := s.Add("weekly", "0 6 * * MON", func(context.Context) error { return nil })

			Convey("Then it is listed", func() {
				So(err, ShouldBeNil)
				entries := s.Entries()
				So(entries, ShouldHaveLength, 1)
				So(entries[0].Name, ShouldEqual, "weekly")
				So(entries[0].Spec, ShouldEqual, "0 6 * * MON")
			})
		})

		Convey("When adding a descriptor spec", func() {
			So(s.Add("monthly", "@monthly", func(context.Context) error { return nil }), ShouldBeNil)
		})

		Convey("When adding a job with a bad spec", func() {
			err := s.Add("broken", "whenever", func(context.Context) error { return nil })

			Convey("Then it is rejected", func() {
				So(errors.Is(err, ErrInvalidSpec), ShouldBeTrue)
				So(s.Entries(), ShouldBeEmpty)
			})
		})

		Convey("When adding after start", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			s.Start(ctx)
			defer s.Stop()

			err := s.Add("late", "@daily", func(context.Context) error { return nil })
			So(errors.Is(err, ErrStarted), ShouldBeTrue)
		})
	})
}

func TestScheduler_RunNow(t *testing.T) {
	Convey("Given a scheduler with one job", t, func() {
		var runs atomic.Int32
		s := New()
		So(s.Add("count", "@yearly", func(context.Context) error {
			runs.Add(1)
			return nil
		}), ShouldBeNil)

		Convey("When running it by name", func() {
			ok := s.RunNow("count")

			Convey("Then it executes once", func() {
				So(ok, ShouldBeTrue)
				So(runs.Load(), ShouldEqual, 1)
			})
		})

		Convey("When running an unknown name", func() {
			So(s.RunNow("missing"), ShouldBeFalse)
			So(runs.Load(), ShouldEqual, 0)
		})

		Convey("When the job fails", func() {
			f := New()
			So(f.Add("fail", "@yearly", func(context.Context) error { return errors.New("boom") }), ShouldBeNil)
			So(func() { f.RunNow("fail") }, ShouldNotPanic)
		})
	})
}

func TestScheduler_Lifecycle(t *testing.T) {
	Convey("Given a started scheduler", t, func() {
		s := New(WithJobTimeout(time.Second))
		var sawCancel atomic.Bool
		So(s.Add("watch", "@yearly", func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				sawCancel.Store(true)
			default:
			}
			return nil
		}), ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		s.Start(ctx)

		Convey("Then the next run is computed", func() {
			So(s.Entries()[0].Next.After(time.Now()), ShouldBeTrue)
			s.Stop()
			cancel()
		})

		Convey("When the parent context is cancelled", func() {
			cancel()
			So(func() { s.Stop() }, ShouldNotPanic)

			Convey("Then job runs see a cancelled context", func() {
				s.RunNow("watch")
				So(sawCancel.Load(), ShouldBeTrue)
			})
		})

		Convey("When stopping twice", func() {
			s.Stop()
			So(func() { s.Stop() }, ShouldNotPanic)
			cancel()
		})
	})
}
