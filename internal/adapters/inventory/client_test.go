package inventory_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/acrobaticz/bulkscan/internal/adapters/inventory"
	"github.com/acrobaticz/bulkscan/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func testScan() inventory.Scan {
	return inventory.Scan{
		EquipmentID:    "eq-abc123def456",
		ScanType:       types.ScanTypeCheckout,
		EventID:        "event-1",
		Timestamp:      1700000000000,
		CurrentVersion: 3,
	}
}

func TestSubmitScan(t *testing.T) {
	Convey("Given an inventory client", t, func() {
		Convey("When the backend accepts the batch", func(cc C) {
			var gotBody map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				cc.So(r.URL.Path, ShouldEqual, "/api/rentals/scan-batch")
				cc.So(r.Method, ShouldEqual, http.MethodPost)
				cc.So(json.NewDecoder(r.Body).Decode(&gotBody), ShouldBeNil)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success":   true,
					"processed": 1,
					"failed":    0,
				})
			}))
			defer srv.Close()

			c := inventory.NewClient(srv.URL)
			err := c.SubmitScan(context.Background(), testScan())

			Convey("Then the submission succeeds", func() {
				So(err, ShouldBeNil)
			})

			Convey("And the request carried the versioned scan line", func() {
				scans, ok := gotBody["scans"].([]any)
				So(ok, ShouldBeTrue)
				So(len(scans), ShouldEqual, 1)
				line, ok := scans[0].(map[string]any)
				So(ok, ShouldBeTrue)
				So(line["equipmentId"], ShouldEqual, "eq-abc123def456")
				So(line["scanType"], ShouldEqual, "checkout")
				So(line["currentVersion"], ShouldEqual, float64(3))
			})
		})

		Convey("When the backend answers HTTP 409", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusConflict)
			}))
			defer srv.Close()

			c := inventory.NewClient(srv.URL)
			err := c.SubmitScan(context.Background(), testScan())

			Convey("Then the conflict sentinel is returned", func() {
				So(errors.Is(err, inventory.ErrVersionConflict), ShouldBeTrue)
			})
		})

		Convey("When the batch result carries a version conflict code", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success":   false,
					"processed": 0,
					"failed":    1,
					"errors": []map[string]string{{
						"equipmentId": "eq-abc123def456",
						"error":       "version mismatch",
						"code":        "VERSION_CONFLICT",
					}},
				})
			}))
			defer srv.Close()

			c := inventory.NewClient(srv.URL)
			err := c.SubmitScan(context.Background(), testScan())

			Convey("Then the conflict sentinel is returned", func() {
				So(errors.Is(err, inventory.ErrVersionConflict), ShouldBeTrue)
			})
		})

		Convey("When the batch result carries a business rejection", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success":   false,
					"processed": 0,
					"failed":    1,
					"errors": []map[string]string{{
						"equipmentId": "eq-abc123def456",
						"error":       "equipment not booked for this event",
						"code":        "NOT_BOOKED",
					}},
				})
			}))
			defer srv.Close()

			c := inventory.NewClient(srv.URL)
			err := c.SubmitScan(context.Background(), testScan())

			Convey("Then the rejection surfaces with its code", func() {
				var rej *inventory.Rejection
				So(errors.As(err, &rej), ShouldBeTrue)
				So(rej.Code, ShouldEqual, "NOT_BOOKED")
				So(rej.Message, ShouldContainSubstring, "not booked")
			})
		})

		Convey("When the backend is unreachable", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
			srv.Close() // closed before the request fires

			c := inventory.NewClient(srv.URL)
			err := c.SubmitScan(context.Background(), testScan())

			Convey("Then the transport failure wraps the unavailable sentinel", func() {
				So(errors.Is(err, inventory.ErrUnavailable), ShouldBeTrue)
			})
		})
	})
}

func TestFetchVersion(t *testing.T) {
	Convey("Given an inventory client", t, func() {
		Convey("When the version endpoint responds", func(cc C) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				cc.So(r.URL.Path, ShouldEqual, "/api/rentals/eq-abc123def456/version")
				cc.So(r.URL.Query().Get("eventId"), ShouldEqual, "event-1")
				_ = json.NewEncoder(w).Encode(map[string]int64{"version": 9})
			}))
			defer srv.Close()

			c := inventory.NewClient(srv.URL)
			v, err := c.FetchVersion(context.Background(), "eq-abc123def456", "event-1")

			Convey("Then the current version is returned", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 9)
			})
		})

		Convey("When the record is unknown", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer srv.Close()

			c := inventory.NewClient(srv.URL)
			_, err := c.FetchVersion(context.Background(), "eq-missing000000", "event-1")

			Convey("Then the status error is reported", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "404")
			})
		})
	})
}
