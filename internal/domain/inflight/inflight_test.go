package inflight_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/okian/wellness/internal/domain/inflight"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGuard(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new guard", t, func() {
		g := inflight.NewGuard()

		Convey("Then it starts empty", func() {
			So(g.Size(), ShouldEqual, 0)
			So(g.Held("ada@example.com"), ShouldBeFalse)
		})

		Convey("When a key is acquired", func() {
			ok := g.TryAcquire(ctx, "ada@example.com")

			Convey("Then it is held", func() {
				So(ok, ShouldBeTrue)
				So(g.Held("ada@example.com"), ShouldBeTrue)
				So(g.Size(), ShouldEqual, 1)
			})

			Convey("And a second acquire for the same key is refused", func() {
				So(g.TryAcquire(ctx, "ada@example.com"), ShouldBeFalse)
				So(g.Size(), ShouldEqual, 1)
			})

			Convey("And other keys are independent", func() {
				So(g.TryAcquire(ctx, "grace@example.com"), ShouldBeTrue)
				So(g.Size(), ShouldEqual, 2)
			})

			Convey("And after release it can be acquired again", func() {
				g.Release(ctx, "ada@example.com")
				So(g.Held("ada@example.com"), ShouldBeFalse)
				So(g.TryAcquire(ctx, "ada@example.com"), ShouldBeTrue)
			})
		})

		Convey("When releasing a key that is not held", func() {
			g.Release(ctx, "nobody@example.com")

			Convey("Then nothing changes", func() {
				So(g.Size(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a bounded guard", t, func() {
		g := inflight.NewGuard(inflight.WithMaxKeys(2))
		So(g.TryAcquire(ctx, "a"), ShouldBeTrue)
		So(g.TryAcquire(ctx, "b"), ShouldBeTrue)

		Convey("When it is full", func() {
			Convey("Then new keys are refused until one is released", func() {
				So(g.TryAcquire(ctx, "c"), ShouldBeFalse)
				g.Release(ctx, "a")
				So(g.TryAcquire(ctx, "c"), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded guard", t, func() {
		g := inflight.NewGuard(inflight.WithMaxKeys(0))

		Convey("Then it holds many keys", func() {
			for i := 0; i < 5000; i++ {
				g.TryAcquire(ctx, fmt.Sprintf("k-%d", i))
			}
			So(g.Size(), ShouldEqual, 5000)
		})
	})
}

func TestGuardConcurrent(t *testing.T) {
	Convey("Given many goroutines racing for one key", t, func() {
		g := inflight.NewGuard()
		var winners atomic.Int32
		var wg sync.WaitGroup

		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if g.TryAcquire(context.Background(), "ada@example.com") {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one wins", func() {
			So(winners.Load(), ShouldEqual, int32(1))
			So(g.Size(), ShouldEqual, 1)
		})
	})
}
