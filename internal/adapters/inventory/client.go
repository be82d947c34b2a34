// Package inventory is the HTTP client for the rental backend's
// versioned inventory mutation endpoint.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/acrobaticz/bulkscan/internal/domain/types"
	"github.com/acrobaticz/bulkscan/pkg/logger"
)

const (
	defaultTimeout      = 10 * time.Second
	scanBatchPath       = "/api/rentals/scan-batch"
	codeVersionConflict = "VERSION_CONFLICT"
)

// Scan is one line of a scan-batch submission.
type Scan struct {
	EquipmentID    string         `json:"equipmentId"`
	ScanType       types.ScanType `json:"scanType"`
	EventID        string         `json:"eventId"`
	Timestamp      int64          `json:"timestamp"`
	CurrentVersion int64          `json:"currentVersion"`
}

type batchRequest struct {
	Scans []Scan `json:"scans"`
}

type scanError struct {
	EquipmentID string `json:"equipmentId"`
	Error       string `json:"error"`
	Code        string `json:"code"`
}

type batchResponse struct {
	Success   bool        `json:"success"`
	Processed int         `json:"processed"`
	Failed    int         `json:"failed"`
	Errors    []scanError `json:"errors"`
	Timestamp int64       `json:"timestamp"`
}

type versionResponse struct {
	Version int64 `json:"version"`
}

// Client talks to the inventory backend. All calls are context-aware
// with bounded timeouts; the client holds no session state.
type Client struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a client against baseURL, e.g. "https://office.example.com".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     logger.Get().Named("inventory"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitScan commits one scan against the versioned inventory record.
// Returns nil on success, ErrVersionConflict when the OCC check failed,
// a *Rejection for business rejections, or a wrapped transport error.
func (c *Client) SubmitScan(ctx context.Context, scan Scan) error {
	body, err := json.Marshal(batchRequest{Scans: []Scan{scan}})
	if err != nil {
		return fmt.Errorf("encode scan batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+scanBatchPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build scan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return ErrVersionConflict
	}

	var decoded batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decode scan response: %w", err)
	}
	if decoded.Success && decoded.Failed == 0 {
		return nil
	}

	if len(decoded.Errors) > 0 {
		first := decoded.Errors[0]
		if first.Code == codeVersionConflict {
			return ErrVersionConflict
		}
		return &Rejection{Code: first.Code, Message: first.Error}
	}
	return fmt.Errorf("scan rejected with status %d", resp.StatusCode)
}

// FetchVersion reads the current version of the inventory record for
// an equipment/event pair. Used for conflict recovery between retries.
func (c *Client) FetchVersion(ctx context.Context, equipmentID, eventID string) (int64, error) {
	u := fmt.Sprintf("%s/api/rentals/%s/version?eventId=%s",
		c.baseURL, url.PathEscape(equipmentID), url.QueryEscape(eventID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("build version request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("version fetch returned status %d", resp.StatusCode)
	}

	var decoded versionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("decode version response: %w", err)
	}
	return decoded.Version, nil
}
