// Package app provides the session controller service that the HTTP
// API and embedding stations drive.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/acrobaticz/bulkscan/internal/adapters/capture"
	"github.com/acrobaticz/bulkscan/internal/adapters/decode"
	"github.com/acrobaticz/bulkscan/internal/domain/feedback"
	"github.com/acrobaticz/bulkscan/internal/domain/ledger"
	"github.com/acrobaticz/bulkscan/internal/domain/types"
	"github.com/acrobaticz/bulkscan/internal/submit"
	"github.com/acrobaticz/bulkscan/pkg/logger"
	"github.com/acrobaticz/bulkscan/pkg/metrics"
)

// SourceFactory acquires an exclusive camera handle for a new session.
// A nil factory puts the service in wedge mode: scans arrive only
// through the API scan-injection route.
type SourceFactory func(ctx context.Context) (capture.Source, error)

// StartParams describes a new scan session.
type StartParams struct {
	TargetQuantity int
	ScanType       types.ScanType
	EventID        string
	AutoStop       bool

	// Callback switches the session to legacy submission mode; the
	// internal retrying pipeline is bypassed entirely.
	Callback submit.Callback
}

// Service owns the set of live scan sessions on this station.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	started  bool

	endpoint    submit.Endpoint
	retryPolicy submit.RetryPolicy
	queue       *submit.Queue
	queueOn     bool

	newSource   SourceFactory
	decoder     decode.Decoder
	fb          feedback.Dispatcher
	recentLimit int
	targetFPS   int
	warmup      time.Duration
	closeGrace  time.Duration

	stopCh chan struct{}
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithEndpoint sets the inventory backend used by internal-mode
// submissions and the offline queue.
func WithEndpoint(e submit.Endpoint) Option {
	return func(s *Service) {
		if e != nil {
			s.endpoint = e
		}
	}
}

// WithRetryPolicy overrides the version-conflict retry tuning.
func WithRetryPolicy(p submit.RetryPolicy) Option {
	return func(s *Service) { s.retryPolicy = p }
}

// WithSourceFactory sets the camera acquisition hook.
func WithSourceFactory(f SourceFactory) Option {
	return func(s *Service) { s.newSource = f }
}

// WithDecoder sets the symbol decoder for capture-loop sessions.
func WithDecoder(d decode.Decoder) Option {
	return func(s *Service) {
		if d != nil {
			s.decoder = d
		}
	}
}

// WithFeedback sets the sensory cue dispatcher.
func WithFeedback(d feedback.Dispatcher) Option {
	return func(s *Service) {
		if d != nil {
			s.fb = d
		}
	}
}

// WithRecentLimit bounds the per-session recent-items view.
func WithRecentLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recentLimit = n
		}
	}
}

// WithCaptureTuning sets the frame rate bound and warmup window.
func WithCaptureTuning(fps int, warmup time.Duration) Option {
	return func(s *Service) {
		if fps > 0 {
			s.targetFPS = fps
		}
		if warmup >= 0 {
			s.warmup = warmup
		}
	}
}

// WithCloseGrace sets the auto-stop grace delay.
func WithCloseGrace(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.closeGrace = d
		}
	}
}

// WithOfflineQueue enables parking network-failed scans for periodic
// re-submission.
func WithOfflineQueue(enabled bool) Option {
	return func(s *Service) { s.queueOn = enabled }
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs the service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		sessions:    make(map[string]*Session),
		retryPolicy: submit.DefaultRetryPolicy(),
		recentLimit: 3,
		targetFPS:   15,
		warmup:      600 * time.Millisecond,
		closeGrace:  defaultCloseGrace,
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service and, when enabled, the offline sync
// queue flusher.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("app")
	}
	if s.fb == nil {
		s.fb = feedback.NewLog(s.logger)
	}

	if s.queueOn {
		if s.endpoint == nil {
			return ErrNoEndpoint
		}
		s.queue = submit.NewQueue(s.endpoint)
		go s.queue.Run(ctx)
	}

	s.started = true
	s.logger.Info(ctx, "scan service started",
		logger.Bool("offlineQueue", s.queueOn),
		logger.Int("targetFPS", s.targetFPS),
	)
	return nil
}

// Stop cancels every live session and shuts the service down.
// Idempotent.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	queue := s.queue
	s.mu.Unlock()

	ctx := context.Background()
	for _, sess := range sessions {
		_ = sess.Cancel(ctx)
	}
	if queue != nil {
		_ = queue.Close()
	}

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.logger.Info(ctx, "scan service stopped")
}

// StartSession creates and starts a new session. Camera acquisition
// failure is fatal to the session: it never leaves idle and is not
// registered.
func (s *Service) StartSession(ctx context.Context, params StartParams) (*Session, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	if !params.ScanType.Valid() {
		return nil, ErrInvalidScanType
	}
	if params.EventID == "" {
		return nil, ErrMissingEventID
	}
	if params.TargetQuantity < 0 {
		return nil, ErrInvalidTarget
	}

	var submitter submit.Submitter
	switch {
	case params.Callback != nil:
		submitter = submit.NewCallbackSubmitter(params.Callback)
	case s.endpoint != nil:
		submitter = submit.NewRetrying(s.endpoint, s.retryPolicy)
	default:
		return nil, ErrNoEndpoint
	}

	sess := &Session{
		id:         uuid.NewString(),
		eventID:    params.EventID,
		scanType:   params.ScanType,
		target:     params.TargetQuantity,
		autoStop:   params.AutoStop,
		status:     types.StatusIdle,
		ledger:     ledger.New(ledger.WithRecentLimit(s.recentLimit)),
		submitter:  submitter,
		fb:         feedback.NewSafe(s.fb),
		queue:      s.queue,
		closeGrace: s.closeGrace,
		now:        time.Now,
		log:        s.logger.Named("session"),
		onEnd:      s.sessionEnded,
	}

	if s.newSource != nil {
		source, err := s.newSource(ctx)
		if err != nil {
			// CameraUnavailable: fatal, session stays idle.
			s.logger.Error(ctx, "camera acquisition failed", logger.Error(err))
			return nil, ErrCameraUnavailable
		}
		sess.loop = capture.NewLoop(source, s.decoder,
			func(ctx context.Context, raw string) { sess.HandleDecode(ctx, raw) },
			capture.WithTargetFPS(s.targetFPS),
			capture.WithWarmup(s.warmup),
			capture.WithStreamLost(sess.streamLost),
		)
	}

	if err := sess.Start(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	metrics.UpdateActiveSessions(s.activeCountLocked())
	s.mu.Unlock()

	return sess, nil
}

// Session returns a live or recently ended session by id.
func (s *Service) Session(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// sessionEnded is the per-session teardown callback.
func (s *Service) sessionEnded(*Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	metrics.UpdateActiveSessions(s.activeCountLocked())
}

// activeCountLocked counts non-terminal sessions. Caller holds mu.
func (s *Service) activeCountLocked() int {
	n := 0
	for _, sess := range s.sessions {
		if !sess.Status().Terminal() {
			n++
		}
	}
	return n
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"sessions":       len(s.sessions),
		"activeSessions": s.activeCountLocked(),
	}
	if s.queue != nil {
		stats["syncQueueDepth"] = s.queue.Len()
	}
	return stats
}
