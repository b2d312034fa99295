package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/rank"
	"github.com/saberactivo/social/internal/relationship"
	"github.com/saberactivo/social/internal/session"
	"github.com/saberactivo/social/internal/social"
)

const searchLimit = 50

type profileResponse struct {
	Profile    *models.Profile    `json:"profile"`
	Rank       rank.Progress      `json:"rank"`
	TopFriends []models.Profile   `json:"top_friends"`
	State      relationship.State `json:"state,omitempty"`
}

// SearchProfilesHandler matches usernames and display names. An empty query returns an
// empty list rather than every profile.
func (a *API) SearchProfilesHandler(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusOK, []models.Profile{})
		return
	}
	limit, err := queryLimit(r, searchLimit, searchLimit)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	profiles, err := a.store.SearchProfiles(r.Context(), q, limit)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

// GetProfileHandler returns a public profile by username. Signed-in callers also get
// their relationship state with the subject.
func (a *API) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := a.store.GetProfileByUsername(ctx, mux.Vars(r)["username"])
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	friends, err := a.social.Friends(ctx, p.UserID, social.TopFriendsLimit)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	resp := profileResponse{Profile: p, Rank: rank.ProgressFor(p.TotalXP), TopFriends: friends}
	if resp.TopFriends == nil {
		resp.TopFriends = []models.Profile{}
	}
	if viewer, ok := session.FromContext(ctx); ok {
		state, err := a.social.State(ctx, viewer, p.UserID)
		if err != nil {
			writeError(w, a.logger, r, err)
			return
		}
		resp.State = state
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateProfileHandler applies the non-null fields of the payload to the caller's profile.
func (a *API) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	me, _ := session.FromContext(r.Context())
	var upd models.ProfileUpdate
	if err := a.decode(r, &upd); err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	p, err := a.store.UpdateProfile(r.Context(), me, upd)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
