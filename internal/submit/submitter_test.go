package submit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/acrobaticz/bulkscan/internal/adapters/inventory"
	"github.com/acrobaticz/bulkscan/internal/domain/model"
	"github.com/acrobaticz/bulkscan/internal/domain/types"
	"github.com/acrobaticz/bulkscan/internal/submit"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeEndpoint scripts per-attempt SubmitScan outcomes and records the
// versions each attempt carried.
type fakeEndpoint struct {
	mu       sync.Mutex
	outcomes []error // consumed front to back; nil means success
	versions []int64
	fetched  int64 // version returned by FetchVersion
	fetchErr error
}

func (f *fakeEndpoint) SubmitScan(_ context.Context, scan inventory.Scan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.versions = append(f.versions, scan.CurrentVersion)
	if len(f.outcomes) == 0 {
		return nil
	}
	out := f.outcomes[0]
	f.outcomes = f.outcomes[1:]
	return out
}

func (f *fakeEndpoint) FetchVersion(_ context.Context, _, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetched, f.fetchErr
}

func (f *fakeEndpoint) attemptVersions() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.versions))
	copy(out, f.versions)
	return out
}

func noSleep(context.Context, time.Duration) error { return nil }

func testMeta() model.ScanMeta {
	return model.ScanMeta{
		ScanType:  types.ScanTypeCheckout,
		EventID:   "event-1",
		Timestamp: time.Now(),
	}
}

func TestRetryingSubmit(t *testing.T) {
	Convey("Given a retrying submitter over a scripted endpoint", t, func() {
		policy := submit.RetryPolicy{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   1.5,
		}

		Convey("When the first attempt succeeds", func() {
			ep := &fakeEndpoint{}
			r := submit.NewRetrying(ep, policy, submit.WithSleep(noSleep))
			res := r.Submit(context.Background(), "eq-1", testMeta())

			Convey("Then the result is success on one attempt", func() {
				So(res.OK, ShouldBeTrue)
				So(res.Err, ShouldBeNil)
				So(len(res.Attempts), ShouldEqual, 1)
				So(res.Attempts[0].Outcome, ShouldEqual, model.OutcomeSuccess)
			})

			Convey("And the next submit reuses the bumped version", func() {
				_ = r.Submit(context.Background(), "eq-1", testMeta())
				So(ep.attemptVersions(), ShouldResemble, []int64{1, 2})
			})
		})

		Convey("When two operators race and conflicts resolve on the third try", func() {
			ep := &fakeEndpoint{
				outcomes: []error{inventory.ErrVersionConflict, inventory.ErrVersionConflict, nil},
				fetched:  7,
			}
			r := submit.NewRetrying(ep, policy, submit.WithSleep(noSleep))
			res := r.Submit(context.Background(), "eq-1", testMeta())

			Convey("Then the scan lands after refetching the version", func() {
				So(res.OK, ShouldBeTrue)
				So(len(res.Attempts), ShouldEqual, 3)
				So(res.Attempts[0].Outcome, ShouldEqual, model.OutcomeVersionConflict)
				So(res.Attempts[1].Outcome, ShouldEqual, model.OutcomeVersionConflict)
				So(res.Attempts[2].Outcome, ShouldEqual, model.OutcomeSuccess)
			})

			Convey("And retries carried the refetched version", func() {
				So(ep.attemptVersions(), ShouldResemble, []int64{1, 7, 7})
			})
		})

		Convey("When every attempt loses the version race", func() {
			ep := &fakeEndpoint{
				outcomes: []error{
					inventory.ErrVersionConflict,
					inventory.ErrVersionConflict,
					inventory.ErrVersionConflict,
				},
				fetched: 3,
			}
			r := submit.NewRetrying(ep, policy, submit.WithSleep(noSleep))
			res := r.Submit(context.Background(), "eq-1", testMeta())

			Convey("Then the result reports conflict exhaustion", func() {
				So(res.OK, ShouldBeFalse)
				So(res.ConflictExhausted, ShouldBeTrue)
				So(errors.Is(res.Err, inventory.ErrVersionConflict), ShouldBeTrue)
				So(len(res.Attempts), ShouldEqual, 3)
			})
		})

		Convey("When the backend rejects the scan outright", func() {
			rejection := &inventory.Rejection{Code: "EQUIPMENT_NOT_FOUND", Message: "no such equipment"}
			ep := &fakeEndpoint{outcomes: []error{rejection}}
			r := submit.NewRetrying(ep, policy, submit.WithSleep(noSleep))
			res := r.Submit(context.Background(), "eq-1", testMeta())

			Convey("Then the failure is terminal after a single attempt", func() {
				So(res.OK, ShouldBeFalse)
				So(res.ConflictExhausted, ShouldBeFalse)
				So(len(res.Attempts), ShouldEqual, 1)
				var rej *inventory.Rejection
				So(errors.As(res.Err, &rej), ShouldBeTrue)
				So(rej.Code, ShouldEqual, "EQUIPMENT_NOT_FOUND")
			})
		})

		Convey("When the version refetch fails during a conflict", func() {
			ep := &fakeEndpoint{
				outcomes: []error{inventory.ErrVersionConflict, nil},
				fetchErr: errors.New("version endpoint down"),
			}
			r := submit.NewRetrying(ep, policy, submit.WithSleep(noSleep))
			r.SeedVersion("eq-1", 4)
			res := r.Submit(context.Background(), "eq-1", testMeta())

			Convey("Then the retry bumps the version optimistically", func() {
				So(res.OK, ShouldBeTrue)
				So(ep.attemptVersions(), ShouldResemble, []int64{4, 5})
			})
		})

		Convey("When the context is cancelled between attempts", func() {
			ep := &fakeEndpoint{
				outcomes: []error{inventory.ErrVersionConflict, nil},
			}
			ctx, cancel := context.WithCancel(context.Background())
			r := submit.NewRetrying(ep, policy, submit.WithSleep(func(ctx context.Context, _ time.Duration) error {
				cancel()
				return ctx.Err()
			}))
			res := r.Submit(ctx, "eq-1", testMeta())

			Convey("Then the submit stops with the context error", func() {
				So(res.OK, ShouldBeFalse)
				So(errors.Is(res.Err, context.Canceled), ShouldBeTrue)
				So(len(res.Attempts), ShouldEqual, 1)
			})
		})
	})
}

func TestCallbackSubmitter(t *testing.T) {
	Convey("Given a legacy callback submitter", t, func() {
		Convey("When the callback accepts the scan", func() {
			s := submit.NewCallbackSubmitter(func(context.Context, string, model.ScanMeta) (bool, error) {
				return true, nil
			})
			res := s.Submit(context.Background(), "eq-1", testMeta())

			Convey("Then the result is success", func() {
				So(res.OK, ShouldBeTrue)
				So(res.Err, ShouldBeNil)
			})
		})

		Convey("When the callback declines without an error", func() {
			s := submit.NewCallbackSubmitter(func(context.Context, string, model.ScanMeta) (bool, error) {
				return false, nil
			})
			res := s.Submit(context.Background(), "eq-1", testMeta())

			Convey("Then the rejection sentinel is reported", func() {
				So(res.OK, ShouldBeFalse)
				So(res.Err, ShouldEqual, submit.ErrCallbackRejected)
			})
		})

		Convey("When the callback errors", func() {
			boom := errors.New("backend exploded")
			s := submit.NewCallbackSubmitter(func(context.Context, string, model.ScanMeta) (bool, error) {
				return false, boom
			})
			res := s.Submit(context.Background(), "eq-1", testMeta())

			Convey("Then the error passes through without retry", func() {
				So(res.OK, ShouldBeFalse)
				So(res.Err, ShouldEqual, boom)
				So(len(res.Attempts), ShouldEqual, 1)
			})
		})
	})
}
