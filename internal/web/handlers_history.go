package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/fieldpreview/internal/history"
	"github.com/go-chi/chi/v5"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// handleListHistory returns the most recent previews, newest first.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, r, history.ErrNotFound, http.StatusNotFound)
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondErrorJSON(w, msgBadLimit, http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("list history: %w", err), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleGetHistory returns one history entry by preview ID.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, r, history.ErrNotFound, http.StatusNotFound)
		return
	}

	id := chi.URLParam(r, "id")
	entry, err := s.history.Get(r.Context(), id)
	switch {
	case errors.Is(err, history.ErrNotFound):
		s.respondError(w, r, err, http.StatusNotFound)
		return
	case err != nil:
		s.respondError(w, r, fmt.Errorf("get history %s: %w", id, err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}
