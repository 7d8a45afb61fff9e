package web

// errors.go provides unified error responses for the web layer.
//
// Preview problems never come through here: a preview that could not read
// its source is still a 200 with a status and diagnostics. This file only
// covers requests the server itself rejects (bad input, unknown history
// entries, rate limits) and unexpected failures. The technical error is
// logged with the request ID; the client gets a coded message.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/fieldpreview/internal/history"
	"github.com/JonMunkholm/fieldpreview/internal/preview"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var errMissingSource = errors.New("missing source query parameter")

var (
	msgMissingSource = preview.UserMessage{
		Message: "The source query parameter is required",
		Action:  "Pass the dataset URL as ?source=<url>",
		Code:    "REQ001",
	}
	msgNotFound = preview.UserMessage{
		Message: "No preview with this ID was found",
		Action:  "History entries expire; run the preview again",
		Code:    "REQ002",
	}
	msgBadLimit = preview.UserMessage{
		Message: "The limit parameter must be a positive number",
		Action:  "Pass a limit between 1 and 500",
		Code:    "REQ003",
	}
	msgRateLimited = preview.UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}
)

// mapRequestError returns the client message for err.
func mapRequestError(err error) preview.UserMessage {
	switch {
	case errors.Is(err, errMissingSource):
		return msgMissingSource
	case errors.Is(err, history.ErrNotFound):
		return msgNotFound
	}
	return preview.MapError(err)
}

// respondError logs err and writes a coded JSON error response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := mapRequestError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	respondErrorJSON(w, userMsg, statusCode)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg preview.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}
