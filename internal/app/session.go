package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/acrobaticz/bulkscan/internal/adapters/capture"
	"github.com/acrobaticz/bulkscan/internal/adapters/inventory"
	"github.com/acrobaticz/bulkscan/internal/domain/feedback"
	"github.com/acrobaticz/bulkscan/internal/domain/ledger"
	"github.com/acrobaticz/bulkscan/internal/domain/model"
	"github.com/acrobaticz/bulkscan/internal/domain/payload"
	"github.com/acrobaticz/bulkscan/internal/domain/types"
	"github.com/acrobaticz/bulkscan/internal/submit"
	"github.com/acrobaticz/bulkscan/pkg/logger"
	"github.com/acrobaticz/bulkscan/pkg/metrics"
)

const (
	defaultCloseGrace      = 500 * time.Millisecond
	sessionTeardownTimeout = 5 * time.Second
)

// Disposition classifies what happened to one decoded payload.
type Disposition string

const (
	DispositionAccepted  Disposition = "accepted"
	DispositionDuplicate Disposition = "duplicate"
	DispositionInvalid   Disposition = "invalid"
	DispositionIgnored   Disposition = "ignored" // session not active
)

// Session is one bounded interval of camera-driven scanning tied to a
// single event and direction. Status moves idle -> active ->
// {completed, cancelled} and never leaves a terminal state.
type Session struct {
	id       string
	eventID  string
	scanType types.ScanType
	target   int
	autoStop bool

	mu             sync.Mutex
	ctx            context.Context // session lifetime, set in Start
	cancel         context.CancelFunc
	status         types.SessionStatus
	startedAt      time.Time
	endedAt        time.Time
	closeRequested bool
	graceTimer     *time.Timer
	attempts       []model.SubmissionAttempt

	ledger    *ledger.Ledger
	submitter submit.Submitter
	loop      *capture.Loop // nil for wedge-scanner sessions
	fb        feedback.Dispatcher
	queue     *submit.Queue // optional offline parking
	onEnd     func(*Session)

	closeGrace time.Duration
	now        func() time.Time
	log        logger.Logger
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Status returns the current lifecycle state.
func (s *Session) Status() types.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start transitions idle -> active, resets the ledger, and spawns the
// capture loop when the session owns a camera. The loop and all
// submissions run on a context owned by the session, not the caller's:
// a session started from an HTTP handler must outlive the request.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.status != types.StatusIdle {
		s.mu.Unlock()
		return ErrNotIdle
	}
	s.status = types.StatusActive
	s.startedAt = s.now()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.ledger.Reset()
	loop := s.loop
	runCtx := s.ctx
	s.mu.Unlock()

	if loop != nil {
		go loop.Run(runCtx)
	}

	s.log.Info(ctx, "scan session started",
		logger.String("sessionID", s.id),
		logger.String("eventID", s.eventID),
		logger.String("scanType", string(s.scanType)),
		logger.Int("target", s.target),
	)
	return nil
}

// HandleDecode routes one decoded payload through validation, the
// ledger's dedup gate, and the submission pipeline. Capture-loop and
// API-injected scans share this path. Never blocks on network I/O.
func (s *Session) HandleDecode(ctx context.Context, raw string) Disposition {
	s.mu.Lock()
	active := s.status == types.StatusActive
	sessCtx := s.ctx
	s.mu.Unlock()
	if !active {
		return DispositionIgnored
	}

	parsed, err := payload.Parse(raw)
	if err != nil {
		metrics.RecordScanInvalid()
		s.fb.Error()
		s.log.Debug(ctx, "invalid payload dropped", logger.Error(err))
		return DispositionInvalid
	}

	res := s.ledger.TryAdd(parsed.EquipmentID, raw, s.eventID)
	if res.Duplicate {
		metrics.RecordScanDuplicate()
		s.fb.Warning()
		return DispositionDuplicate
	}

	meta := model.ScanMeta{
		ScanType:  s.scanType,
		EventID:   s.eventID,
		Timestamp: s.now(),
	}
	// The decode loop keeps running while the submission is in flight;
	// the pending ledger entry blocks re-scans of the same id. The
	// submission runs on the session context so it survives the caller
	// returning (an API handler's request context is already dead here).
	go s.submitAccepted(sessCtx, parsed.EquipmentID, meta)

	return DispositionAccepted
}

// submitAccepted runs one submission to completion and reconciles the
// outcome with the ledger. Results landing after the session left the
// active state are dropped: the ledger they would mutate is already
// final.
func (s *Session) submitAccepted(ctx context.Context, equipmentID string, meta model.ScanMeta) {
	result := s.submitter.Submit(ctx, equipmentID, meta)

	s.mu.Lock()
	s.attempts = append(s.attempts, result.Attempts...)
	active := s.status == types.StatusActive
	s.mu.Unlock()

	if !active {
		s.log.Debug(ctx, "dropping late submission result",
			logger.String("equipmentID", equipmentID),
			logger.Bool("ok", result.OK),
		)
		return
	}

	if result.OK {
		if err := s.ledger.Confirm(equipmentID); err != nil {
			// Reset raced the confirmation; nothing to count.
			return
		}
		metrics.RecordScanConfirmed()
		s.fb.Success()
		s.maybeAutoStop(ctx)
		return
	}

	_ = s.ledger.Reject(equipmentID)
	metrics.RecordScanRejected()
	s.fb.Error()

	switch {
	case result.ConflictExhausted:
		s.log.Warn(ctx, "scan lost version race: another technician modified this item",
			logger.String("equipmentID", equipmentID),
		)
	case errors.Is(result.Err, inventory.ErrUnavailable) && s.queue != nil:
		scan := inventory.Scan{
			EquipmentID: equipmentID,
			ScanType:    meta.ScanType,
			EventID:     meta.EventID,
			Timestamp:   meta.Timestamp.UnixMilli(),
		}
		if qerr := s.queue.Enqueue(scan); qerr != nil {
			s.log.Warn(ctx, "could not park scan for offline sync", logger.Error(qerr))
		}
		s.log.Warn(ctx, "scan submission failed, parked for offline sync",
			logger.String("equipmentID", equipmentID),
			logger.Error(result.Err),
		)
	default:
		s.log.Warn(ctx, "scan submission failed",
			logger.String("equipmentID", equipmentID),
			logger.Error(result.Err),
		)
	}
}

// maybeAutoStop schedules completion once the target is reached. The
// short grace delay lets the last feedback cue land before teardown.
func (s *Session) maybeAutoStop(ctx context.Context) {
	if !s.autoStop || s.target <= 0 {
		return
	}
	if s.ledger.TotalScans() < s.target {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != types.StatusActive || s.graceTimer != nil {
		return
	}
	s.log.Info(ctx, "target reached, scheduling auto-stop",
		logger.String("sessionID", s.id),
		logger.Int("target", s.target),
	)
	s.graceTimer = time.AfterFunc(s.closeGrace, func() {
		s.end(context.Background(), types.StatusCompleted)
	})
}

// streamLost handles the camera stream ending while the session is
// still active. The session keeps its progress and stays active so the
// operator can finish or cancel it; only the feed is gone.
func (s *Session) streamLost() {
	if s.Status() != types.StatusActive {
		return
	}
	s.fb.Error()
	s.log.Warn(context.Background(), "camera stream lost mid-session",
		logger.String("sessionID", s.id),
		logger.Int("totalScans", s.ledger.TotalScans()),
	)
}

// RequestClose implements the close-confirmation policy: partial
// progress demands an explicit second confirmation so it is never
// silently discarded. Returns true when confirmation is required.
func (s *Session) RequestClose(ctx context.Context) (needsConfirm bool, err error) {
	s.mu.Lock()
	if s.status != types.StatusActive {
		s.mu.Unlock()
		return false, ErrNotActive
	}
	total := s.ledger.TotalScans()
	if s.target > 0 && total > 0 && total < s.target {
		s.closeRequested = true
		s.mu.Unlock()
		return true, nil
	}
	s.mu.Unlock()

	if s.target > 0 && total >= s.target {
		s.end(ctx, types.StatusCompleted)
	} else {
		s.end(ctx, types.StatusCancelled)
	}
	return false, nil
}

// ConfirmClose completes a pending close request, discarding the
// partial session.
func (s *Session) ConfirmClose(ctx context.Context) error {
	s.mu.Lock()
	if !s.closeRequested {
		s.mu.Unlock()
		return ErrNoCloseRequested
	}
	s.closeRequested = false
	s.mu.Unlock()

	s.end(ctx, types.StatusCancelled)
	return nil
}

// CancelClose withdraws a pending close request; the session stays
// active with its progress intact.
func (s *Session) CancelClose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeRequested = false
}

// Finish explicitly ends the session. Sessions with confirmed scans
// complete; empty ones are cancelled.
func (s *Session) Finish(ctx context.Context) error {
	if s.Status() != types.StatusActive {
		return ErrNotActive
	}
	if s.ledger.TotalScans() > 0 {
		s.end(ctx, types.StatusCompleted)
	} else {
		s.end(ctx, types.StatusCancelled)
	}
	return nil
}

// Cancel force-ends the session regardless of progress.
func (s *Session) Cancel(ctx context.Context) error {
	if s.Status() != types.StatusActive {
		return ErrNotActive
	}
	s.end(ctx, types.StatusCancelled)
	return nil
}

// Reset clears the ledger and duplicate counters without changing the
// session status; the camera stays open.
func (s *Session) Reset() error {
	s.mu.Lock()
	if s.status != types.StatusActive {
		s.mu.Unlock()
		return ErrNotActive
	}
	s.closeRequested = false
	s.mu.Unlock()

	s.ledger.Reset()
	return nil
}

// end performs the terminal transition and teardown exactly once.
// Safe to call from user actions, auto-stop, and service shutdown;
// later calls are no-ops. In-flight submissions are not awaited, their
// late results are guarded in submitAccepted.
func (s *Session) end(ctx context.Context, terminal types.SessionStatus) {
	s.mu.Lock()
	if s.status.Terminal() || s.status == types.StatusIdle {
		s.mu.Unlock()
		return
	}
	s.status = terminal
	s.endedAt = s.now()
	if s.graceTimer != nil {
		s.graceTimer.Stop()
	}
	loop := s.loop
	sessCancel := s.cancel
	s.mu.Unlock()

	if loop != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), sessionTeardownTimeout)
		defer cancel()
		if err := loop.Stop(stopCtx); err != nil {
			s.log.Warn(ctx, "capture loop teardown timed out", logger.Error(err))
		}
	}
	if sessCancel != nil {
		// Aborts any in-flight submission backoffs; their results are
		// dropped by the late-arrival guard either way.
		sessCancel()
	}

	summary := s.ledger.Summary()
	switch terminal {
	case types.StatusCompleted:
		metrics.RecordSessionCompleted()
	case types.StatusCancelled:
		metrics.RecordSessionCancelled()
	}
	s.log.Info(ctx, "scan session ended",
		logger.String("sessionID", s.id),
		logger.String("status", string(terminal)),
		logger.Int("totalQuantity", summary.TotalQuantity),
		logger.Int("uniqueCount", summary.UniqueCount),
		logger.Int("duplicates", summary.Duplicates),
		logger.Duration("duration", summary.Duration),
	)

	if s.onEnd != nil {
		s.onEnd(s)
	}
}

// Progress returns the live snapshot shown to operators.
func (s *Session) Progress() types.Progress {
	s.mu.Lock()
	status := s.status
	s.mu.Unlock()

	return types.Progress{
		SessionID:      s.id,
		Status:         status,
		TotalScans:     s.ledger.TotalScans(),
		TargetQuantity: s.target,
		Duplicates:     s.ledger.Duplicates(),
		Pending:        s.ledger.PendingCount(),
	}
}

// Recent returns the most-recent-first confirmed items.
func (s *Session) Recent() []model.ScannedItem {
	return s.ledger.Recent()
}

// Summary returns the session roll-up.
func (s *Session) Summary() types.Summary {
	sum := s.ledger.Summary()
	return types.Summary{
		TotalQuantity: sum.TotalQuantity,
		UniqueCount:   sum.UniqueCount,
		Duplicates:    sum.Duplicates,
		DurationMs:    sum.Duration.Milliseconds(),
	}
}

// Attempts returns the submission attempt diagnostics recorded so far.
func (s *Session) Attempts() []model.SubmissionAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.SubmissionAttempt, len(s.attempts))
	copy(out, s.attempts)
	return out
}
