package handlers

import (
	"net/http"

	"github.com/saberactivo/social/internal/chat"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/session"
)

type updatedResponse struct {
	Updated int `json:"updated"`
}

// ListNotificationsHandler returns the caller's newest notifications first.
func (a *API) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	me, _ := session.FromContext(r.Context())
	limit, err := queryLimit(r, chat.FeedLimit, maxPageSize)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	items, err := a.store.ListNotifications(r.Context(), me, limit)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	if items == nil {
		items = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) UnreadNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	me, _ := session.FromContext(r.Context())
	n, err := a.store.CountUnreadNotifications(r.Context(), me)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// MarkNotificationReadHandler stamps read_at on one of the caller's notifications.
// Marking an already read notification keeps its original timestamp.
func (a *API) MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	me, _ := session.FromContext(r.Context())
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	if err := a.store.MarkNotificationRead(r.Context(), me, id); err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) MarkAllNotificationsReadHandler(w http.ResponseWriter, r *http.Request) {
	me, _ := session.FromContext(r.Context())
	n, err := a.store.MarkAllNotificationsRead(r.Context(), me)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updatedResponse{Updated: n})
}
