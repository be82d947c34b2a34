package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/acrobaticz/bulkscan/internal/labelgen"
)

const (
	defaultCount   = 10
	defaultSize    = 256
	defaultTimeout = 2 * time.Minute
)

func main() {
	var (
		count    = flag.Int("count", defaultCount, "Number of labels to generate")
		format   = flag.String("format", "uuid", "Payload format: uuid, custom or url")
		outDir   = flag.String("out", "labels", "Output directory for PNG files")
		size     = flag.Int("size", defaultSize, "Image size in pixels")
		baseURL  = flag.String("url", "http://localhost:3000", "Base URL for url-format payloads")
		manifest = flag.String("manifest", "", "Optional CSV manifest path")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	labels, err := labelgen.Run(ctx, &labelgen.Config{
		Count:     *count,
		Format:    labelgen.Format(*format),
		OutputDir: *outDir,
		Size:      *size,
		BaseURL:   *baseURL,
		Manifest:  *manifest,
	})
	if err != nil {
		os.Stderr.WriteString("label generation failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	fmt.Printf("wrote %d labels to %s\n", len(labels), *outDir)
}
