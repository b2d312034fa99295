package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/chat"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/session"
)

const maxPageSize = 100

type sendMessageRequest struct {
	Body        string    `json:"body" validate:"required,max=2000"`
	ClientToken uuid.UUID `json:"client_token"`
}

type readMarkerRequest struct {
	LastSeenAt *time.Time `json:"last_seen_at"`
}

// ListMessagesHandler returns up to limit messages with {otherId} older than ?before=,
// newest first.
func (a *API) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	me, _ := session.FromContext(r.Context())
	other, err := pathUUID(r, "otherId")
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	limit, err := queryLimit(r, chat.PageSize, maxPageSize)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	var before *time.Time
	if v := r.URL.Query().Get("before"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			writeError(w, a.logger, r, apperr.Validation("before must be an RFC 3339 timestamp"))
			return
		}
		before = &t
	}

	msgs, err := a.store.ListMessages(r.Context(), me, other, before, limit)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// SendMessageHandler stores a message from the caller to {otherId}. Repeating a
// client_token returns the row already stored for it.
func (a *API) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	me, _ := session.FromContext(r.Context())
	other, err := pathUUID(r, "otherId")
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	if other == me {
		writeError(w, a.logger, r, apperr.Validation("cannot message yourself"))
		return
	}
	var req sendMessageRequest
	if err := a.decode(r, &req); err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		writeError(w, a.logger, r, apperr.Validation("body is empty"))
		return
	}

	m, err := a.store.InsertMessage(r.Context(), &models.Message{
		SenderID:    me,
		ReceiverID:  other,
		Body:        body,
		ClientToken: req.ClientToken,
	})
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (a *API) ListReadMarkersHandler(w http.ResponseWriter, r *http.Request) {
	me, _ := session.FromContext(r.Context())
	markers, err := a.store.ListReadMarkers(r.Context(), me)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	if markers == nil {
		markers = []models.ReadMarker{}
	}
	writeJSON(w, http.StatusOK, markers)
}

// UpsertReadMarkerHandler records that the caller has seen the conversation with
// {otherId} up to last_seen_at, or now when omitted.
func (a *API) UpsertReadMarkerHandler(w http.ResponseWriter, r *http.Request) {
	me, _ := session.FromContext(r.Context())
	other, err := pathUUID(r, "otherId")
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	var req readMarkerRequest
	if r.ContentLength != 0 {
		if err := a.decode(r, &req); err != nil {
			writeError(w, a.logger, r, err)
			return
		}
	}
	marker := models.ReadMarker{ViewerID: me, OtherID: other, LastSeenAt: time.Now().UTC()}
	if req.LastSeenAt != nil {
		marker.LastSeenAt = req.LastSeenAt.UTC()
	}
	if err := a.store.UpsertReadMarker(r.Context(), marker); err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, marker)
}
