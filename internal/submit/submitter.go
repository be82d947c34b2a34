package submit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/acrobaticz/bulkscan/internal/adapters/inventory"
	"github.com/acrobaticz/bulkscan/internal/domain/model"
	"github.com/acrobaticz/bulkscan/pkg/logger"
	"github.com/acrobaticz/bulkscan/pkg/metrics"
)

// Endpoint is what the retrying submitter needs from the backend.
// *inventory.Client satisfies it.
type Endpoint interface {
	SubmitScan(ctx context.Context, scan inventory.Scan) error
	FetchVersion(ctx context.Context, equipmentID, eventID string) (int64, error)
}

// Result is the terminal outcome of one submission, retries included.
type Result struct {
	OK bool

	// ConflictExhausted is set when every attempt lost the version
	// race; the operator message differs from a generic failure.
	ConflictExhausted bool

	Err      error
	Attempts []model.SubmissionAttempt
}

// Submitter commits one ledger-accepted scan. Exactly one submitter
// mode is active per session: the internal retrying one or the
// caller-supplied legacy callback.
type Submitter interface {
	Submit(ctx context.Context, equipmentID string, meta model.ScanMeta) Result
}

// Retrying submits through the inventory endpoint and retries version
// conflicts with a fresh version and a capped geometric backoff. All
// other failures are terminal on the first attempt.
type Retrying struct {
	endpoint Endpoint
	policy   RetryPolicy
	sleep    func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	versions map[string]int64 // best-known record versions by equipment id

	log logger.Logger
}

// NewRetrying creates the internal-mode submitter.
func NewRetrying(endpoint Endpoint, policy RetryPolicy, opts ...RetryingOption) *Retrying {
	r := &Retrying{
		endpoint: endpoint,
		policy:   policy.normalize(),
		sleep:    sleepCtx,
		versions: make(map[string]int64),
		log:      logger.Get().Named("submit"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RetryingOption applies a configuration option to Retrying.
type RetryingOption func(*Retrying)

// WithSleep injects the inter-attempt wait, used by tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) RetryingOption {
	return func(r *Retrying) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) RetryingOption {
	return func(r *Retrying) {
		if log != nil {
			r.log = log
		}
	}
}

// SeedVersion primes the version cache for an equipment id, typically
// from the session-start payload.
func (r *Retrying) SeedVersion(equipmentID string, version int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versions[equipmentID] = version
}

func (r *Retrying) cachedVersion(equipmentID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.versions[equipmentID]; ok {
		return v
	}
	return 1
}

func (r *Retrying) storeVersion(equipmentID string, version int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versions[equipmentID] = version
}

// Submit runs the attempt loop. The record version is shared with
// other operators scanning the same event, so every attempt must be
// prepared for a conflict, not just the first.
func (r *Retrying) Submit(ctx context.Context, equipmentID string, meta model.ScanMeta) Result {
	start := time.Now()
	defer func() {
		metrics.RecordSubmissionLatency(float64(time.Since(start).Milliseconds()))
	}()

	version := r.cachedVersion(equipmentID)
	var attempts []model.SubmissionAttempt

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		metrics.RecordSubmissionAttempt()
		err := r.endpoint.SubmitScan(ctx, inventory.Scan{
			EquipmentID:    equipmentID,
			ScanType:       meta.ScanType,
			EventID:        meta.EventID,
			Timestamp:      meta.Timestamp.UnixMilli(),
			CurrentVersion: version,
		})

		record := model.SubmissionAttempt{
			EquipmentID: equipmentID,
			Attempt:     attempt,
			VersionUsed: version,
			Err:         err,
		}

		switch {
		case err == nil:
			record.Outcome = model.OutcomeSuccess
			attempts = append(attempts, record)
			r.storeVersion(equipmentID, version+1)
			return Result{OK: true, Attempts: attempts}

		case errors.Is(err, inventory.ErrVersionConflict):
			record.Outcome = model.OutcomeVersionConflict
			attempts = append(attempts, record)
			metrics.RecordVersionConflict()

			if attempt == r.policy.MaxAttempts {
				r.log.Warn(ctx, "version conflict retries exhausted",
					logger.String("equipmentID", equipmentID),
					logger.Int("attempts", attempt),
				)
				return Result{ConflictExhausted: true, Err: err, Attempts: attempts}
			}

			if fresh, ferr := r.endpoint.FetchVersion(ctx, equipmentID, meta.EventID); ferr == nil {
				version = fresh
			} else {
				// Version endpoint down; optimistic bump is the best
				// guess and the next conflict corrects it.
				version++
				r.log.Warn(ctx, "version fetch failed, bumping optimistically",
					logger.String("equipmentID", equipmentID),
					logger.Error(ferr),
				)
			}
			r.storeVersion(equipmentID, version)

			if serr := r.sleep(ctx, r.policy.Delay(attempt)); serr != nil {
				return Result{Err: serr, Attempts: attempts}
			}

		default:
			record.Outcome = model.OutcomeError
			attempts = append(attempts, record)
			return Result{Err: err, Attempts: attempts}
		}
	}

	return Result{Err: inventory.ErrVersionConflict, ConflictExhausted: true, Attempts: attempts}
}

// Callback is the legacy submission signature supplied by embedding
// UIs: it is treated as already including whatever retry the caller
// wants.
type Callback func(ctx context.Context, equipmentID string, meta model.ScanMeta) (bool, error)

// CallbackSubmitter adapts a Callback to the Submitter interface.
type CallbackSubmitter struct {
	fn Callback
}

// NewCallbackSubmitter creates the legacy-mode submitter.
func NewCallbackSubmitter(fn Callback) *CallbackSubmitter {
	return &CallbackSubmitter{fn: fn}
}

func (s *CallbackSubmitter) Submit(ctx context.Context, equipmentID string, meta model.ScanMeta) Result {
	metrics.RecordSubmissionAttempt()
	ok, err := s.fn(ctx, equipmentID, meta)

	record := model.SubmissionAttempt{
		EquipmentID: equipmentID,
		Attempt:     1,
		Err:         err,
	}
	if err != nil {
		record.Outcome = model.OutcomeError
		return Result{Err: err, Attempts: []model.SubmissionAttempt{record}}
	}
	if !ok {
		record.Outcome = model.OutcomeError
		record.Err = ErrCallbackRejected
		return Result{Err: ErrCallbackRejected, Attempts: []model.SubmissionAttempt{record}}
	}
	record.Outcome = model.OutcomeSuccess
	return Result{OK: true, Attempts: []model.SubmissionAttempt{record}}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
