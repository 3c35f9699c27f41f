package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/notifykit/pkg/confirmation"
	"github.com/dmitrymomot/notifykit/pkg/history"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/preference"
	"github.com/dmitrymomot/notifykit/pkg/queue"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFromError maps domain errors onto HTTP statuses.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, history.ErrNotFound),
		errors.Is(err, queue.ErrNotFound),
		errors.Is(err, confirmation.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, preference.ErrInvalidPreferences),
		errors.Is(err, notification.ErrInvalidContent),
		errors.Is(err, notification.ErrInvalidPayload):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
