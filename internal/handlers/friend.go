// internal/handlers/friend.go
package handlers

import (
	"net/http"

	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/session"
)

type countResponse struct {
	Count int `json:"count"`
}

// ListFriendsHandler returns the caller's accepted friends, highest XP first.
func (a *API) ListFriendsHandler(w http.ResponseWriter, r *http.Request) {
	me, _ := session.FromContext(r.Context())
	friends, err := a.social.Friends(r.Context(), me, 0)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	if friends == nil {
		friends = []models.Profile{}
	}
	writeJSON(w, http.StatusOK, friends)
}

// ListRequestsHandler returns every request row touching the caller, newest first.
func (a *API) ListRequestsHandler(w http.ResponseWriter, r *http.Request) {
	me, _ := session.FromContext(r.Context())
	rows, err := a.social.Requests(r.Context(), me)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	if rows == nil {
		rows = []models.FriendRequest{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) PendingCountHandler(w http.ResponseWriter, r *http.Request) {
	me, _ := session.FromContext(r.Context())
	n, err := a.social.PendingIncomingCount(r.Context(), me)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// RelationshipStateHandler reports the caller's view of the relationship with {id}.
func (a *API) RelationshipStateHandler(w http.ResponseWriter, r *http.Request) {
	me, _ := session.FromContext(r.Context())
	other, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	state, err := a.social.State(r.Context(), me, other)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": state})
}

// SendRequestHandler proposes a friendship to {id}.
func (a *API) SendRequestHandler(w http.ResponseWriter, r *http.Request) {
	me, _ := session.FromContext(r.Context())
	other, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	req, err := a.social.SendRequest(r.Context(), me, other)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (a *API) AcceptRequestHandler(w http.ResponseWriter, r *http.Request) {
	me, _ := session.FromContext(r.Context())
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	req, err := a.social.AcceptRequest(r.Context(), me, id)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *API) RejectRequestHandler(w http.ResponseWriter, r *http.Request) {
	me, _ := session.FromContext(r.Context())
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	req, err := a.social.RejectRequest(r.Context(), me, id)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// RemoveFriendHandler ends an accepted friendship with {id}.
func (a *API) RemoveFriendHandler(w http.ResponseWriter, r *http.Request) {
	me, _ := session.FromContext(r.Context())
	other, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	req, err := a.social.RemoveFriend(r.Context(), me, other)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
