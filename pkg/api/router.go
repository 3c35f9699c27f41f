package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/notifykit/pkg/audit"
	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/confirmation"
	"github.com/dmitrymomot/notifykit/pkg/dispatch"
	"github.com/dmitrymomot/notifykit/pkg/history"
	"github.com/dmitrymomot/notifykit/pkg/preference"
)

// Deps are the engine components the HTTP surface exposes.
type Deps struct {
	Engine      *dispatch.Engine
	Preferences preference.Store
	Tracker     *confirmation.Tracker
	Replay      *history.ReplayEngine
	Hub         *channel.Hub
	AuditReader *audit.Reader
	AuditLogger *audit.Logger
	Logger      *slog.Logger

	// Healthchecks are probed by the readiness endpoint, keyed by
	// dependency name.
	Healthchecks map[string]func(ctx context.Context) error
}

// NewRouter builds the service router: preference read/write, the notify
// entry point, delivery-status and read-receipt endpoints, manual replay,
// the websocket attach point and the ops-restricted audit query.
func NewRouter(cfg Config, deps Deps) chi.Router {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthHandler(deps.Healthchecks))

	r.Route("/v1", func(v1 chi.Router) {
		v1.Route("/users/{userID}", func(u chi.Router) {
			u.Get("/preferences", getPreferences(deps))
			u.Put("/preferences", putPreferences(deps, log))
			u.Delete("/preferences", deletePreferences(deps, log))
			u.Post("/replay", triggerReplay(deps, log))
		})

		v1.Route("/notifications", func(n chi.Router) {
			n.Post("/", postNotification(deps))
			n.Get("/{notificationID}", getDeliveryStatus(deps))
			n.Post("/{notificationID}/read", postReadReceipt(deps))
		})

		if cfg.OpsToken != "" {
			v1.With(requireOpsToken(cfg.OpsToken)).Get("/audit", getAuditLog(deps))
		}
	})

	r.Get("/ws", serveWS(deps, log))

	return r
}

// requireOpsToken guards operator-only endpoints with a static bearer
// token.
func requireOpsToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func healthHandler(checks map[string]func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"failed": name,
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
