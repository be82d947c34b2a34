package submit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/acrobaticz/bulkscan/internal/adapters/inventory"
	"github.com/acrobaticz/bulkscan/pkg/logger"
	"github.com/acrobaticz/bulkscan/pkg/metrics"
)

// Default sync queue configuration.
const (
	defaultQueueCapacity = 500
	defaultFlushInterval = 5 * time.Second
	defaultFlushRetries  = 3
)

// QueuedScan is a scan parked locally after a network failure,
// awaiting a later flush to the backend.
type QueuedScan struct {
	ID         string
	Scan       inventory.Scan
	Attempts   int
	EnqueuedAt time.Time
}

// Queue accumulates scans that could not reach the backend and
// re-submits them periodically. It is a best-effort convenience for
// flaky warehouse networks; the ledger has already rejected these
// scans locally, so a flush never mutates session state.
type Queue struct {
	endpoint Endpoint

	mu      sync.Mutex
	pending map[string]*QueuedScan

	capacity      int
	flushInterval time.Duration
	flushRetries  int

	closeOnce sync.Once
	shutdown  chan struct{}
	done      chan struct{}

	log logger.Logger
}

// QueueOption applies a configuration option to the Queue.
type QueueOption func(*Queue)

// WithQueueCapacity bounds the number of parked scans.
func WithQueueCapacity(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// WithFlushInterval sets the periodic flush cadence.
func WithFlushInterval(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d > 0 {
			q.flushInterval = d
		}
	}
}

// WithFlushRetries bounds how often a parked scan is re-attempted
// before being dropped.
func WithFlushRetries(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.flushRetries = n
		}
	}
}

// WithQueueLogger sets a custom logger.
func WithQueueLogger(log logger.Logger) QueueOption {
	return func(q *Queue) {
		if log != nil {
			q.log = log
		}
	}
}

// NewQueue creates an offline sync queue over the given endpoint.
func NewQueue(endpoint Endpoint, opts ...QueueOption) *Queue {
	q := &Queue{
		endpoint:      endpoint,
		pending:       make(map[string]*QueuedScan),
		capacity:      defaultQueueCapacity,
		flushInterval: defaultFlushInterval,
		flushRetries:  defaultFlushRetries,
		shutdown:      make(chan struct{}),
		done:          make(chan struct{}),
		log:           logger.Get().Named("syncqueue"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue parks a scan for later sync. Returns ErrQueueFull at capacity.
func (q *Queue) Enqueue(scan inventory.Scan) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) >= q.capacity {
		return ErrQueueFull
	}
	id := uuid.NewString()
	q.pending[id] = &QueuedScan{
		ID:         id,
		Scan:       scan,
		EnqueuedAt: time.Now(),
	}
	metrics.UpdateSyncQueueDepth(len(q.pending))
	return nil
}

// Len returns the number of parked scans.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Run flushes the queue periodically until ctx is cancelled or Close
// is called.
func (q *Queue) Run(ctx context.Context) {
	defer close(q.done)

	ticker := time.NewTicker(q.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.shutdown:
			return
		case <-ticker.C:
			q.Flush(ctx)
		}
	}
}

// Flush attempts every parked scan once. Transport failures keep the
// scan parked up to the retry budget; any definitive backend answer
// (success, conflict, rejection) removes it.
func (q *Queue) Flush(ctx context.Context) (synced, dropped int) {
	q.mu.Lock()
	batch := make([]*QueuedScan, 0, len(q.pending))
	for _, s := range q.pending {
		batch = append(batch, s)
	}
	q.mu.Unlock()

	for _, parked := range batch {
		err := q.endpoint.SubmitScan(ctx, parked.Scan)

		q.mu.Lock()
		switch {
		case err == nil:
			delete(q.pending, parked.ID)
			synced++
			metrics.RecordSyncQueueFlush()
		case errors.Is(err, inventory.ErrUnavailable):
			parked.Attempts++
			if parked.Attempts >= q.flushRetries {
				delete(q.pending, parked.ID)
				dropped++
				q.log.Warn(ctx, "dropping queued scan after repeated network failures",
					logger.String("equipmentID", parked.Scan.EquipmentID),
					logger.Int("attempts", parked.Attempts),
				)
			}
		default:
			// Backend answered: the scan is stale or rejected, keeping
			// it would replay a decision the server already made.
			delete(q.pending, parked.ID)
			dropped++
			q.log.Warn(ctx, "queued scan rejected by backend",
				logger.String("equipmentID", parked.Scan.EquipmentID),
				logger.Error(err),
			)
		}
		metrics.UpdateSyncQueueDepth(len(q.pending))
		q.mu.Unlock()
	}
	return synced, dropped
}

// Close stops the flush loop. Idempotent.
func (q *Queue) Close() error {
	q.closeOnce.Do(func() {
		close(q.shutdown)
	})
	return nil
}
