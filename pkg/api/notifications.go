package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

type notifyRequest struct {
	UserID  string               `json:"user_id"`
	Content notification.Content `json:"content"`
}

type notifyResponse struct {
	NotificationID string `json:"notification_id"`
}

func postNotification(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req notifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, errors.New("malformed request body"))
			return
		}
		if req.UserID == "" {
			writeError(w, http.StatusUnprocessableEntity, errors.New("user_id is required"))
			return
		}

		id, err := deps.Engine.Notify(r.Context(), req.UserID, req.Content)
		if err != nil {
			writeError(w, statusFromError(err), err)
			return
		}
		// Delivery continues in the background; accepted is all the
		// caller can know at this point.
		writeJSON(w, http.StatusAccepted, notifyResponse{NotificationID: id})
	}
}

func getDeliveryStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notificationID := chi.URLParam(r, "notificationID")

		status, err := deps.Engine.DeliveryStatus(r.Context(), notificationID)
		if err != nil {
			writeError(w, statusFromError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

type readReceiptRequest struct {
	UserID string `json:"user_id"`
}

func postReadReceipt(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notificationID := chi.URLParam(r, "notificationID")

		var req readReceiptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, errors.New("malformed request body"))
			return
		}
		if req.UserID == "" {
			writeError(w, http.StatusUnprocessableEntity, errors.New("user_id is required"))
			return
		}

		if err := deps.Tracker.Read(r.Context(), req.UserID, notificationID); err != nil {
			writeError(w, statusFromError(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
