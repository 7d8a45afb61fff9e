package web

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/fieldpreview/internal/preview"
)

// handleFields samples the dataset at ?source= and reports its fields.
//
// Problems with the source itself are reported in the body with a 200
// status. Only a missing source parameter is a client error.
func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	source := strings.TrimSpace(r.URL.Query().Get("source"))
	if source == "" {
		s.respondError(w, r, errMissingSource, http.StatusBadRequest)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	res := s.service.Preview(ctx, source)

	status := http.StatusOK
	if s.cfg.Preview.StrictStatus && res.Status == preview.StatusFailed {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

// handleStatus reports the preview limiter state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"previews": s.service.LimiterStatus(),
		"history":  s.history != nil,
	})
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
