package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/acrobaticz/bulkscan/internal/app"
	"github.com/acrobaticz/bulkscan/internal/domain/types"
)

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	sess, err := s.svc.StartSession(r.Context(), app.StartParams{
		TargetQuantity: req.TargetQuantity,
		ScanType:       types.ScanType(req.ScanType),
		EventID:        req.EventID,
		AutoStop:       req.AutoStop,
	})
	if err != nil {
		if errors.Is(err, app.ErrCameraUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "camera_unavailable", err)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	writeJSON(w, http.StatusCreated, sess.Progress())
}

// session resolves the {id} path variable, writing 404 on a miss.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*app.Session, bool) {
	id := mux.Vars(r)["id"]
	sess, err := s.svc.Session(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Progress())
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if req.Payload == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing payload"))
		return
	}

	disposition := sess.HandleDecode(r.Context(), req.Payload)
	writeJSON(w, http.StatusAccepted, scanResponse{Disposition: string(disposition)})
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Finish(r.Context()); err != nil {
		writeError(w, http.StatusConflict, "conflict", err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Summary())
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Cancel(r.Context()); err != nil {
		writeError(w, http.StatusConflict, "conflict", err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Summary())
}

func (s *Server) handleCloseRequest(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	needsConfirm, err := sess.RequestClose(r.Context())
	if err != nil {
		writeError(w, http.StatusConflict, "conflict", err)
		return
	}
	writeJSON(w, http.StatusOK, closeRequestResponse{NeedsConfirmation: needsConfirm})
}

func (s *Server) handleConfirmClose(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.ConfirmClose(r.Context()); err != nil {
		writeError(w, http.StatusConflict, "conflict", err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Summary())
}

func (s *Server) handleCancelClose(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.CancelClose()
	writeJSON(w, http.StatusOK, sess.Progress())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Reset(); err != nil {
		writeError(w, http.StatusConflict, "conflict", err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Progress())
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	items := sess.Recent()
	out := make([]recentItem, len(items))
	for i, item := range items {
		out[i] = recentItem{
			EquipmentID: item.EquipmentID,
			Quantity:    item.Quantity,
			ScannedAt:   item.ScannedAt.UnixMilli(),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Summary())
}

// recentItem is the display shape of one confirmed scan.
type recentItem struct {
	EquipmentID string `json:"equipment_id"`
	Quantity    int    `json:"quantity"`
	ScannedAt   int64  `json:"scanned_at"`
}
