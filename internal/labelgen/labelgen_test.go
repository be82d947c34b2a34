package labelgen_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/acrobaticz/bulkscan/internal/domain/payload"
	"github.com/acrobaticz/bulkscan/internal/labelgen"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewPayload(t *testing.T) {
	Convey("Given the payload generator", t, func() {
		Convey("When generating each supported format", func() {
			for _, format := range []labelgen.Format{
				labelgen.FormatUUID,
				labelgen.FormatCustom,
				labelgen.FormatURL,
			} {
				id, raw := labelgen.NewPayload(format, "http://localhost:3000")

				Convey("Then the "+string(format)+" payload parses back to its id", func() {
					parsed, err := payload.Parse(raw)
					So(err, ShouldBeNil)
					So(parsed.EquipmentID, ShouldEqual, id)
				})
			}
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given the label generator", t, func() {
		dir := t.TempDir()

		Convey("When generating a custom-id batch with a manifest", func() {
			manifest := filepath.Join(dir, "labels.csv")
			labels, err := labelgen.Run(context.Background(), &labelgen.Config{
				Count:     4,
				Format:    labelgen.FormatCustom,
				OutputDir: dir,
				Size:      128,
				Manifest:  manifest,
			})

			Convey("Then one PNG per label lands on disk", func() {
				So(err, ShouldBeNil)
				So(len(labels), ShouldEqual, 4)
				for _, lbl := range labels {
					info, statErr := os.Stat(lbl.File)
					So(statErr, ShouldBeNil)
					So(info.Size(), ShouldBeGreaterThan, 0)
				}
			})

			Convey("And the manifest lists every label", func() {
				So(err, ShouldBeNil)
				f, openErr := os.Open(manifest)
				So(openErr, ShouldBeNil)
				defer f.Close()

				rows, readErr := csv.NewReader(f).ReadAll()
				So(readErr, ShouldBeNil)
				So(len(rows), ShouldEqual, 5) // header + 4 labels
				So(rows[0], ShouldResemble, []string{"equipment_id", "payload", "file"})
			})
		})

		Convey("When the count is not positive", func() {
			_, err := labelgen.Run(context.Background(), &labelgen.Config{
				Count:     0,
				OutputDir: dir,
			})

			Convey("Then the run is refused", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			labels, err := labelgen.Run(ctx, &labelgen.Config{
				Count:     100,
				Format:    labelgen.FormatUUID,
				OutputDir: dir,
			})

			Convey("Then the run stops early", func() {
				So(err, ShouldEqual, context.Canceled)
				So(len(labels), ShouldEqual, 0)
			})
		})
	})
}
