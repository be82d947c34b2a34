// Package ledger tracks per-session scan state: dedup, pending
// submissions, confirmed counts, and the recent-items view.
package ledger

import (
	"sync"
	"time"

	"github.com/acrobaticz/bulkscan/internal/domain/model"
)

const defaultRecentLimit = 3

// AddResult reports the outcome of a TryAdd call.
type AddResult struct {
	Accepted  bool
	Duplicate bool
}

// entry is the internal bookkeeping for one equipment id.
type entry struct {
	item model.ScannedItem
	raw  string // raw payload that produced this entry
}

// Ledger is the authoritative per-session dedup and progress record.
// The pending status doubles as a per-identifier lock: while a
// submission is in flight no second TryAdd for the same id can succeed.
type Ledger struct {
	mu          sync.Mutex
	entries     map[string]*entry
	lastRaw     string
	duplicates  int
	totalScans  int
	recent      []model.ScannedItem // most-recent-first, confirmed only
	recentLimit int
	startedAt   time.Time
	now         func() time.Time
}

// New creates an empty ledger for one session.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		entries:     make(map[string]*entry),
		recentLimit: defaultRecentLimit,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.startedAt = l.now()
	return l
}

// TryAdd records equipmentID as pending unless it is a duplicate.
// A scan is a duplicate when the raw payload repeats the immediately
// preceding decode (a code held in view across frames) or when the id
// is already pending or confirmed in this session. Both cases bump the
// same duplicate counter.
func (l *Ledger) TryAdd(equipmentID, raw, eventID string) AddResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	if raw != "" && raw == l.lastRaw {
		l.duplicates++
		return AddResult{Duplicate: true}
	}

	if e, ok := l.entries[equipmentID]; ok && e.item.Status != model.SubmissionRejected {
		l.duplicates++
		return AddResult{Duplicate: true}
	}

	l.entries[equipmentID] = &entry{
		item: model.ScannedItem{
			EquipmentID: equipmentID,
			EventID:     eventID,
			Quantity:    1,
			ScannedAt:   l.now(),
			Status:      model.SubmissionPending,
		},
		raw: raw,
	}
	l.lastRaw = raw
	return AddResult{Accepted: true}
}

// Confirm transitions equipmentID from pending to confirmed and bumps
// the confirmed total. Returns ErrNotPending when no pending entry
// exists, which happens for results arriving after a reset or teardown.
func (l *Ledger) Confirm(equipmentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[equipmentID]
	if !ok || e.item.Status != model.SubmissionPending {
		return ErrNotPending
	}

	e.item.Status = model.SubmissionConfirmed
	l.totalScans++
	l.pushRecent(e.item)
	return nil
}

// Reject removes equipmentID from the ledger entirely so the same code
// can be rescanned after a failed submission.
func (l *Ledger) Reject(equipmentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[equipmentID]
	if !ok || e.item.Status != model.SubmissionPending {
		return ErrNotPending
	}

	delete(l.entries, equipmentID)
	// Unblock the frame-level gate too, otherwise an immediate rescan
	// of the same label would be miscounted as a duplicate.
	if e.raw == l.lastRaw {
		l.lastRaw = ""
	}
	return nil
}

// pushRecent prepends item to the bounded recent view. Caller holds mu.
func (l *Ledger) pushRecent(item model.ScannedItem) {
	l.recent = append([]model.ScannedItem{item}, l.recent...)
	if len(l.recent) > l.recentLimit {
		l.recent = l.recent[:l.recentLimit]
	}
}

// Recent returns the most-recent-first confirmed items. The slice is a
// copy; the recent view is display-only and never used for dedup.
func (l *Ledger) Recent() []model.ScannedItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.ScannedItem, len(l.recent))
	copy(out, l.recent)
	return out
}

// TotalScans returns the number of confirmed scans.
func (l *Ledger) TotalScans() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalScans
}

// Duplicates returns the session duplicate counter.
func (l *Ledger) Duplicates() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.duplicates
}

// PendingCount returns the number of in-flight submissions.
func (l *Ledger) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, e := range l.entries {
		if e.item.Status == model.SubmissionPending {
			n++
		}
	}
	return n
}

// Has reports whether equipmentID is currently pending or confirmed.
func (l *Ledger) Has(equipmentID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[equipmentID]
	return ok && e.item.Status != model.SubmissionRejected
}

// Summary snapshots the session totals.
func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	unique := 0
	for _, e := range l.entries {
		if e.item.Status == model.SubmissionConfirmed {
			unique++
		}
	}
	return Summary{
		TotalQuantity: l.totalScans,
		UniqueCount:   unique,
		Duplicates:    l.duplicates,
		Duration:      l.now().Sub(l.startedAt),
	}
}

// Reset clears all entries, counters and the recent view without
// touching the session status. Used for "start over" on an open camera.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make(map[string]*entry)
	l.recent = nil
	l.lastRaw = ""
	l.duplicates = 0
	l.totalScans = 0
	l.startedAt = l.now()
}

// Summary is the roll-up reported when a session ends.
type Summary struct {
	TotalQuantity int
	UniqueCount   int
	Duplicates    int
	Duration      time.Duration
}
