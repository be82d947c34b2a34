package capture_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/acrobaticz/bulkscan/internal/adapters/capture"
	"github.com/acrobaticz/bulkscan/internal/adapters/decode"
	"github.com/acrobaticz/bulkscan/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func testFrame(id byte) model.Frame {
	return model.Frame{Pixels: []byte{id}, Width: 1, Height: 1}
}

// countingDecoder returns the same payload for every frame and counts
// invocations.
func countingDecoder(count *atomic.Int64) decode.Func {
	return func(model.Frame) (string, bool) {
		count.Add(1)
		return "eq-abc123def456", true
	}
}

func TestLoopRun(t *testing.T) {
	Convey("Given a capture loop over a replay source", t, func() {
		Convey("When running with a bounded frame rate", func() {
			var decodes atomic.Int64
			var delivered atomic.Int64

			src := capture.NewReplaySource(testFrame(1))
			loop := capture.NewLoop(src, countingDecoder(&decodes),
				func(context.Context, string) { delivered.Add(1) },
				capture.WithTargetFPS(10), // one decode per 100ms
				capture.WithWarmup(0),
				capture.WithTickInterval(2*time.Millisecond),
			)

			go loop.Run(context.Background())
			time.Sleep(350 * time.Millisecond)
			So(loop.Stop(context.Background()), ShouldBeNil)

			Convey("Then decodes are gated well below the tick rate", func() {
				n := decodes.Load()
				So(n, ShouldBeGreaterThanOrEqualTo, 1)
				So(n, ShouldBeLessThanOrEqualTo, 6)
			})

			Convey("And every decode reached the sink", func() {
				So(delivered.Load(), ShouldEqual, decodes.Load())
			})
		})

		Convey("When the warmup window has not elapsed", func() {
			var decodes atomic.Int64

			src := capture.NewReplaySource(testFrame(1))
			loop := capture.NewLoop(src, countingDecoder(&decodes),
				func(context.Context, string) {},
				capture.WithWarmup(time.Second),
				capture.WithTickInterval(2*time.Millisecond),
			)

			go loop.Run(context.Background())
			time.Sleep(50 * time.Millisecond)
			So(loop.Stop(context.Background()), ShouldBeNil)

			Convey("Then no frame reaches the decoder", func() {
				So(decodes.Load(), ShouldEqual, 0)
			})
		})

		Convey("When the decoder finds nothing", func() {
			var delivered atomic.Int64

			src := capture.NewReplaySource(testFrame(1))
			loop := capture.NewLoop(src,
				decode.Func(func(model.Frame) (string, bool) { return "", false }),
				func(context.Context, string) { delivered.Add(1) },
				capture.WithWarmup(0),
				capture.WithTargetFPS(100),
				capture.WithTickInterval(2*time.Millisecond),
			)

			go loop.Run(context.Background())
			time.Sleep(50 * time.Millisecond)
			So(loop.Stop(context.Background()), ShouldBeNil)

			Convey("Then nothing is delivered downstream", func() {
				So(delivered.Load(), ShouldEqual, 0)
			})
		})

		Convey("When the frame stream dies mid-run", func() {
			var lost atomic.Int64

			src := capture.NewReplaySource(testFrame(1))
			loop := capture.NewLoop(src,
				decode.Func(func(model.Frame) (string, bool) { return "", false }),
				func(context.Context, string) {},
				capture.WithWarmup(0),
				capture.WithTargetFPS(100),
				capture.WithTickInterval(2*time.Millisecond),
				capture.WithStreamLost(func() { lost.Add(1) }),
			)

			done := make(chan struct{})
			go func() {
				loop.Run(context.Background())
				close(done)
			}()
			time.Sleep(20 * time.Millisecond)
			So(src.Close(), ShouldBeNil)

			Convey("Then the loop exits and reports the loss once", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					So("loop did not exit", ShouldBeEmpty)
				}
				So(lost.Load(), ShouldEqual, 1)
			})
		})

		Convey("When the context is cancelled", func() {
			src := capture.NewReplaySource(testFrame(1))
			loop := capture.NewLoop(src,
				decode.Func(func(model.Frame) (string, bool) { return "", false }),
				func(context.Context, string) {},
				capture.WithWarmup(0),
			)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				loop.Run(ctx)
				close(done)
			}()
			cancel()

			Convey("Then the loop exits on its own", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					So("loop did not exit", ShouldBeEmpty)
				}
			})
		})

		Convey("When Stop is called repeatedly", func() {
			src := capture.NewReplaySource(testFrame(1))
			loop := capture.NewLoop(src,
				decode.Func(func(model.Frame) (string, bool) { return "", false }),
				func(context.Context, string) {},
			)

			go loop.Run(context.Background())

			Convey("Then every call returns cleanly", func() {
				So(loop.Stop(context.Background()), ShouldBeNil)
				So(loop.Stop(context.Background()), ShouldBeNil)
			})
		})
	})
}

func TestReplaySource(t *testing.T) {
	Convey("Given a replay source", t, func() {
		Convey("When frames are consumed past the recorded set", func() {
			src := capture.NewReplaySource(testFrame(1), testFrame(2))
			frames := src.Frames(context.Background())

			first := <-frames
			second := <-frames
			third := <-frames

			Convey("Then the last frame repeats", func() {
				So(first.Pixels[0], ShouldEqual, byte(1))
				So(second.Pixels[0], ShouldEqual, byte(2))
				So(third.Pixels[0], ShouldEqual, byte(2))
			})

			So(src.Close(), ShouldBeNil)
		})

		Convey("When the source has no frames at all", func() {
			src := capture.NewReplaySource()
			frames := src.Frames(context.Background())

			Convey("Then the channel closes immediately", func() {
				_, ok := <-frames
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When Close is called twice", func() {
			src := capture.NewReplaySource(testFrame(1))

			Convey("Then both calls succeed", func() {
				So(src.Close(), ShouldBeNil)
				So(src.Close(), ShouldBeNil)
			})
		})
	})
}
