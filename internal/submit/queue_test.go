package submit_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/acrobaticz/bulkscan/internal/adapters/inventory"
	"github.com/acrobaticz/bulkscan/internal/submit"
	. "github.com/smartystreets/goconvey/convey"
)

func queuedScan(id string) inventory.Scan {
	return inventory.Scan{
		EquipmentID:    id,
		ScanType:       "checkout",
		EventID:        "event-1",
		CurrentVersion: 1,
	}
}

func TestQueue(t *testing.T) {
	Convey("Given an offline sync queue", t, func() {
		Convey("When scans are enqueued", func() {
			q := submit.NewQueue(&fakeEndpoint{})
			So(q.Enqueue(queuedScan("eq-1")), ShouldBeNil)
			So(q.Enqueue(queuedScan("eq-2")), ShouldBeNil)

			Convey("Then the depth reflects the parked scans", func() {
				So(q.Len(), ShouldEqual, 2)
			})
		})

		Convey("When the queue is at capacity", func() {
			q := submit.NewQueue(&fakeEndpoint{}, submit.WithQueueCapacity(2))
			So(q.Enqueue(queuedScan("eq-1")), ShouldBeNil)
			So(q.Enqueue(queuedScan("eq-2")), ShouldBeNil)

			Convey("Then further enqueues are refused", func() {
				So(q.Enqueue(queuedScan("eq-3")), ShouldEqual, submit.ErrQueueFull)
				So(q.Len(), ShouldEqual, 2)
			})
		})

		Convey("When a flush reaches a healthy backend", func() {
			ep := &fakeEndpoint{}
			q := submit.NewQueue(ep)
			for i := 0; i < 3; i++ {
				So(q.Enqueue(queuedScan(fmt.Sprintf("eq-%d", i))), ShouldBeNil)
			}

			synced, dropped := q.Flush(context.Background())

			Convey("Then every parked scan is synced and removed", func() {
				So(synced, ShouldEqual, 3)
				So(dropped, ShouldEqual, 0)
				So(q.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the network is still down", func() {
			ep := &fakeEndpoint{outcomes: []error{
				fmt.Errorf("%w: connection refused", inventory.ErrUnavailable),
			}}
			q := submit.NewQueue(ep, submit.WithFlushRetries(3))
			So(q.Enqueue(queuedScan("eq-1")), ShouldBeNil)

			synced, dropped := q.Flush(context.Background())

			Convey("Then the scan stays parked for the next flush", func() {
				So(synced, ShouldEqual, 0)
				So(dropped, ShouldEqual, 0)
				So(q.Len(), ShouldEqual, 1)
			})
		})

		Convey("When the retry budget runs out", func() {
			ep := &fakeEndpoint{outcomes: []error{
				fmt.Errorf("%w: connection refused", inventory.ErrUnavailable),
				fmt.Errorf("%w: connection refused", inventory.ErrUnavailable),
			}}
			q := submit.NewQueue(ep, submit.WithFlushRetries(2))
			So(q.Enqueue(queuedScan("eq-1")), ShouldBeNil)

			q.Flush(context.Background())
			synced, dropped := q.Flush(context.Background())

			Convey("Then the scan is dropped", func() {
				So(synced, ShouldEqual, 0)
				So(dropped, ShouldEqual, 1)
				So(q.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the backend answers with a rejection", func() {
			ep := &fakeEndpoint{outcomes: []error{
				&inventory.Rejection{Code: "ALREADY_SCANNED", Message: "stale"},
			}}
			q := submit.NewQueue(ep)
			So(q.Enqueue(queuedScan("eq-1")), ShouldBeNil)

			synced, dropped := q.Flush(context.Background())

			Convey("Then the scan is dropped rather than replayed", func() {
				So(synced, ShouldEqual, 0)
				So(dropped, ShouldEqual, 1)
				So(q.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the queue is closed twice", func() {
			q := submit.NewQueue(&fakeEndpoint{})

			Convey("Then Close is idempotent", func() {
				So(q.Close(), ShouldBeNil)
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}
