package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/audit"
)

func getAuditLog(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		criteria, err := auditCriteria(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		events, err := deps.AuditReader.Find(r.Context(), criteria)
		if err != nil {
			writeError(w, statusFromError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}

func auditCriteria(r *http.Request) (audit.Criteria, error) {
	q := r.URL.Query()
	criteria := audit.Criteria{
		UserID:   q.Get("user_id"),
		Type:     q.Get("type"),
		Severity: audit.Severity(q.Get("severity")),
	}

	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return audit.Criteria{}, errors.New("since must be RFC 3339")
		}
		criteria.Since = since
	}
	if raw := q.Get("until"); raw != "" {
		until, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return audit.Criteria{}, errors.New("until must be RFC 3339")
		}
		criteria.Until = until
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return audit.Criteria{}, errors.New("limit must be a non-negative integer")
		}
		criteria.Limit = limit
	}
	return criteria, nil
}
