// Package api declares HTTP contracts and route registration for the
// scan station daemon.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acrobaticz/bulkscan/internal/app"
	"github.com/acrobaticz/bulkscan/internal/domain/types"
	"github.com/acrobaticz/bulkscan/pkg/metrics"
)

// Service is what the handlers need from the session controller. An
// interface bundle keeps the handler layer loosely coupled to the app
// package implementation.
type Service interface {
	StartSession(ctx context.Context, params app.StartParams) (*app.Session, error)
	Session(id string) (*app.Session, error)
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the scan API.
type Server struct {
	svc Service
}

// NewServer creates the API server over the given service.
func NewServer(svc Service) *Server {
	return &Server{svc: svc}
}

// Register attaches all routes to the router.
func (s *Server) Register(ctx context.Context, r *mux.Router) {
	r.HandleFunc("/healthz", MetricsMiddleware(s.handleHealth, "healthz")).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.handleStats, "stats")).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.HandleFunc("/sessions", MetricsMiddleware(s.handleStartSession, "sessions")).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", MetricsMiddleware(s.handleGetSession, "session")).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/scan", MetricsMiddleware(s.handleScan, "scan")).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/finish", MetricsMiddleware(s.handleFinish, "finish")).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/cancel", MetricsMiddleware(s.handleCancel, "cancel")).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/close-request", MetricsMiddleware(s.handleCloseRequest, "close_request")).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/confirm-close", MetricsMiddleware(s.handleConfirmClose, "confirm_close")).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/cancel-close", MetricsMiddleware(s.handleCancelClose, "cancel_close")).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/reset", MetricsMiddleware(s.handleReset, "reset")).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/recent", MetricsMiddleware(s.handleRecent, "recent")).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/summary", MetricsMiddleware(s.handleSummary, "summary")).Methods(http.MethodGet)
}

// startSessionRequest mirrors the POST /sessions body.
type startSessionRequest struct {
	TargetQuantity int    `json:"target_quantity"`
	ScanType       string `json:"scan_type"`
	EventID        string `json:"event_id"`
	AutoStop       bool   `json:"auto_stop"`
}

func (r startSessionRequest) validate() error {
	switch {
	case strings.TrimSpace(r.EventID) == "":
		return app.ErrMissingEventID
	case !types.ScanType(r.ScanType).Valid():
		return app.ErrInvalidScanType
	case r.TargetQuantity < 0:
		return app.ErrInvalidTarget
	}
	return nil
}

// scanRequest carries one decoded payload into a session, used by
// wedge scanners and UI-side decoders.
type scanRequest struct {
	Payload string `json:"payload"`
}

type scanResponse struct {
	Disposition string `json:"disposition"`
}

type closeRequestResponse struct {
	NeedsConfirmation bool `json:"needs_confirmation"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
