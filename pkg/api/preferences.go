package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/audit"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/preference"
)

func getPreferences(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		prefs, err := deps.Preferences.Get(r.Context(), userID)
		if err != nil {
			writeError(w, statusFromError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, prefs)
	}
}

func putPreferences(deps Deps, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		var prefs preference.Preferences
		if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
			writeError(w, http.StatusBadRequest, errors.New("malformed request body"))
			return
		}
		// The path owns the identity; the body cannot save for another
		// user.
		prefs.UserID = userID

		if err := deps.Preferences.Save(r.Context(), prefs); err != nil {
			writeError(w, statusFromError(err), err)
			return
		}

		auditPreferenceChange(r, deps, log, audit.EventPreferenceChanged, "preferences updated", userID)
		writeJSON(w, http.StatusOK, prefs)
	}
}

func deletePreferences(deps Deps, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		if err := deps.Preferences.Delete(r.Context(), userID); err != nil {
			writeError(w, statusFromError(err), err)
			return
		}

		auditPreferenceChange(r, deps, log, audit.EventPreferenceDeleted, "preferences reverted to defaults", userID)
		w.WriteHeader(http.StatusNoContent)
	}
}

// auditPreferenceChange records preference mutations with elevated
// severity; a changed preference alters what a user can be reached with.
func auditPreferenceChange(r *http.Request, deps Deps, log *slog.Logger, eventType, description, userID string) {
	if deps.AuditLogger == nil {
		return
	}
	if err := deps.AuditLogger.Log(r.Context(), eventType, description,
		audit.WithUser(userID),
		audit.WithSeverity(audit.SeverityWarning),
		audit.WithRequest(r.RemoteAddr, r.UserAgent()),
	); err != nil {
		log.LogAttrs(r.Context(), slog.LevelError, "failed to audit preference change",
			logger.UserID(userID),
			logger.Error(err),
		)
	}
}
