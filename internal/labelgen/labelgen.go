// Package labelgen produces printable QR label images whose payloads
// are accepted by the scan pipeline.
package labelgen

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/acrobaticz/bulkscan/internal/domain/payload"
)

// Format selects the payload shape encoded into each label.
type Format string

const (
	// FormatUUID encodes a bare v4 UUID.
	FormatUUID Format = "uuid"
	// FormatCustom encodes an "eq-" prefixed identifier.
	FormatCustom Format = "custom"
	// FormatURL encodes an equipment edit-page URL.
	FormatURL Format = "url"
)

// Config controls a generation run.
type Config struct {
	Count     int
	Format    Format
	OutputDir string
	Size      int
	BaseURL   string
	Manifest  string
}

// Label pairs an equipment id with the payload encoded on its sticker.
type Label struct {
	EquipmentID string
	Payload     string
	File        string
}

const defaultSize = 256

// Run generates cfg.Count labels and writes one PNG per label plus an
// optional CSV manifest mapping files to equipment ids.
func Run(ctx context.Context, cfg *Config) ([]Label, error) {
	if cfg.Count <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", cfg.Count)
	}
	if cfg.Size <= 0 {
		cfg.Size = defaultSize
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	labels := make([]Label, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		select {
		case <-ctx.Done():
			return labels, ctx.Err()
		default:
		}

		lbl, err := generate(cfg, i)
		if err != nil {
			return labels, err
		}
		labels = append(labels, lbl)
	}

	if cfg.Manifest != "" {
		if err := writeManifest(cfg.Manifest, labels); err != nil {
			return labels, err
		}
	}
	return labels, nil
}

func generate(cfg *Config, index int) (Label, error) {
	id, raw := NewPayload(cfg.Format, cfg.BaseURL)

	// Every label must survive the station's own parser before it is
	// worth printing.
	parsed, err := payload.Parse(raw)
	if err != nil {
		return Label{}, fmt.Errorf("generated payload %q does not parse: %w", raw, err)
	}
	if parsed.EquipmentID != id {
		return Label{}, fmt.Errorf("payload %q parsed to %q, want %q", raw, parsed.EquipmentID, id)
	}

	file := filepath.Join(cfg.OutputDir, fmt.Sprintf("label_%04d_%s.png", index+1, id))
	if err := qrcode.WriteFile(raw, qrcode.Medium, cfg.Size, file); err != nil {
		return Label{}, fmt.Errorf("failed to write %s: %w", file, err)
	}
	return Label{EquipmentID: id, Payload: raw, File: file}, nil
}

// NewPayload returns a fresh equipment id and the payload text that
// decodes back to it.
func NewPayload(format Format, baseURL string) (id, raw string) {
	switch format {
	case FormatCustom:
		// The custom scheme requires at least twelve alphanumerics
		// after the prefix; a compacted UUID provides thirty-two.
		id = "eq-" + strings.ReplaceAll(uuid.NewString(), "-", "")
		return id, id
	case FormatURL:
		id = uuid.NewString()
		return id, strings.TrimRight(baseURL, "/") + "/equipment/" + id + "/edit"
	default:
		id = uuid.NewString()
		return id, id
	}
}

func writeManifest(path string, labels []Label) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"equipment_id", "payload", "file"}); err != nil {
		return fmt.Errorf("failed to write manifest header: %w", err)
	}
	for _, lbl := range labels {
		if err := w.Write([]string{lbl.EquipmentID, lbl.Payload, lbl.File}); err != nil {
			return fmt.Errorf("failed to write manifest row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
