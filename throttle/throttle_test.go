package throttle

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLimiter(t *testing.T) {
	Convey("Given a disabled limiter", t, func() {
		var nilLimiter *Limiter
		zero := New(0)

		Convey("Wait should not block", func() {
			start := time.Now()
			So(nilLimiter.Wait(context.Background(), 1<<30), ShouldBeNil)
			So(zero.Wait(context.Background(), 1<<30), ShouldBeNil)
			So(time.Since(start), ShouldBeLessThan, 10*time.Millisecond)
			So(zero.Enabled(), ShouldBeFalse)
			So(nilLimiter.Limit(), ShouldEqual, 0)
		})
	})

	Convey("Given a 64 KiB/s limiter", t, func() {
		const limit = 64 * 1024
		l := New(limit)
		So(l.Limit(), ShouldEqual, limit)

		Convey("A single consumer should not exceed the ceiling", func() {
			total := 96 * 1024
			start := time.Now()
			for sent := 0; sent < total; sent += 8 * 1024 {
				So(l.Wait(context.Background(), 8*1024), ShouldBeNil)
			}
			elapsed := time.Since(start)

			observed := float64(total) / elapsed.Seconds()
			So(observed, ShouldBeLessThanOrEqualTo, limit*1.1)
		})

		Convey("Concurrent consumers share the ceiling and all make progress", func() {
			var (
				wg     sync.WaitGroup
				counts [3]atomic.Int64
			)
			ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
			defer cancel()

			start := time.Now()
			for i := range counts {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					for l.Wait(ctx, 4*1024) == nil {
						counts[i].Add(4 * 1024)
					}
				}(i)
			}
			wg.Wait()
			elapsed := time.Since(start)

			var sum int64
			for i := range counts {
				So(counts[i].Load(), ShouldBeGreaterThan, 0)
				sum += counts[i].Load()
			}
			So(float64(sum)/elapsed.Seconds(), ShouldBeLessThanOrEqualTo, limit*1.1)
		})

		Convey("Requests larger than the burst are split", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			So(l.Wait(ctx, 100*1024), ShouldBeNil)
		})

		Convey("A cancelled context aborts the wait", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			So(l.Wait(ctx, 32*1024), ShouldNotBeNil)
		})

		Convey("SetLimit(0) turns throttling off", func() {
			l.SetLimit(0)
			So(l.Enabled(), ShouldBeFalse)

			start := time.Now()
			So(l.Wait(context.Background(), 10*1024*1024), ShouldBeNil)
			So(time.Since(start), ShouldBeLessThan, 10*time.Millisecond)

			l.SetLimit(limit)
			So(l.Enabled(), ShouldBeTrue)
		})
	})
}

func TestBurst(t *testing.T) {
	Convey("Burst", t, func() {
		var nilLimiter *Limiter
		So(nilLimiter.Burst(), ShouldEqual, 0)
		So(New(0).Burst(), ShouldEqual, 0)
		So(New(10*1024).Burst(), ShouldEqual, 1024)
		So(New(500).Burst(), ShouldEqual, 500)

		l := New(10 * 1024)
		l.SetLimit(0)
		So(l.Burst(), ShouldEqual, 0)
	})

	Convey("Given a wait sized against a 1 MiB/s bucket", t, func() {
		l := New(1024 * 1024)
		lowered := false
		beforeWait = func() {
			if !lowered {
				lowered = true
				l.SetLimit(100 * 1024)
			}
		}
		defer func() { beforeWait = func() {} }()

		Convey("Lowering the limit before the reservation should not fail the wait", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()

			So(l.Wait(ctx, 32*1024), ShouldBeNil)
			So(lowered, ShouldBeTrue)
			So(l.Burst(), ShouldEqual, 10*1024)
		})
	})
}

func TestSchedule(t *testing.T) {
	Convey("ParseWindow", t, func() {
		Convey("accepts ranges, lists and wildcards", func() {
			w, err := ParseWindow("mon-fri 09:00-17:00 500")
			So(err, ShouldBeNil)
			So(w.Days, ShouldHaveLength, 5)
			So(w.Start, ShouldEqual, 9*time.Hour)
			So(w.End, ShouldEqual, 17*time.Hour)
			So(w.LimitKB, ShouldEqual, 500)

			w, err = ParseWindow("sat,sun 00:00-06:00 0")
			So(err, ShouldBeNil)
			So(w.Days, ShouldResemble, []time.Weekday{time.Saturday, time.Sunday})

			w, err = ParseWindow("* 22:00-06:00 100")
			So(err, ShouldBeNil)
			So(w.Days, ShouldHaveLength, 7)
		})

		Convey("rejects malformed entries", func() {
			for _, bad := range []string{"", "mon 09:00 5", "xyz 09:00-10:00 5", "mon 9-10 5", "mon 09:00-10:00 -1"} {
				_, err := ParseWindow(bad)
				So(err, ShouldNotBeNil)
			}
		})
	})

	Convey("Given a schedule", t, func() {
		s, err := ParseSchedule([]string{"mon-fri 09:00-17:00 500", "* 22:00-06:00 0", ""})
		So(err, ShouldBeNil)
		So(s, ShouldHaveLength, 2)

		// 2026-10-19 is a Monday.
		at := func(day, hour, minute int) time.Time {
			return time.Date(2026, 10, day, hour, minute, 0, 0, time.Local)
		}

		So(s.LimitAt(at(19, 10, 0), 2000), ShouldEqual, 500)
		So(s.LimitAt(at(19, 17, 0), 2000), ShouldEqual, 2000)
		So(s.LimitAt(at(24, 10, 0), 2000), ShouldEqual, 2000)
		So(s.LimitAt(at(19, 23, 30), 2000), ShouldEqual, 0)
		So(s.LimitAt(at(20, 5, 59), 2000), ShouldEqual, 0)
	})
}
