package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/audit"
	"github.com/dmitrymomot/notifykit/pkg/logger"
)

type replayResponse struct {
	Replayed int `json:"replayed"`
}

func triggerReplay(deps Deps, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		n, err := deps.Replay.Replay(r.Context(), userID)
		if err != nil {
			writeError(w, statusFromError(err), err)
			return
		}

		if deps.AuditLogger != nil && n > 0 {
			if auditErr := deps.AuditLogger.Log(r.Context(), audit.EventReplayTriggered, "missed notifications replayed",
				audit.WithUser(userID),
				audit.WithMetadata("replayed", n),
				audit.WithRequest(r.RemoteAddr, r.UserAgent()),
			); auditErr != nil {
				log.LogAttrs(r.Context(), slog.LevelError, "failed to audit replay",
					logger.UserID(userID),
					logger.Error(auditErr),
				)
			}
		}

		writeJSON(w, http.StatusOK, replayResponse{Replayed: n})
	}
}
