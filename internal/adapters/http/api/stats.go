package api

import (
	"net/http"
)

// handleStats exposes controller counters for dashboards that do not
// scrape the Prometheus endpoint.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.GetStats())
}
