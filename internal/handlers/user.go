package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/auth"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/rank"
	"github.com/saberactivo/social/internal/rut"
	"github.com/saberactivo/social/internal/session"
	"github.com/sirupsen/logrus"
)

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Username string `json:"username" validate:"required,min=3,max=30,excludesall= @/"`
	RUT      string `json:"rut" validate:"omitempty,rut"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

type meResponse struct {
	Profile             *models.Profile `json:"profile"`
	Rank                rank.Progress   `json:"rank"`
	PendingRequests     int             `json:"pending_requests"`
	UnreadNotifications int             `json:"unread_notifications"`
}

// SignUpHandler creates the account and its profile, then signs the new user in.
//
// Request payload:
//
//	{
//	  "email": "someone@example.com",
//	  "password": "password",
//	  "username": "someone",
//	  "rut": "12.345.678-5"
//	}
//
// rut is optional.
func (a *API) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := a.decode(r, &req); err != nil {
		writeError(w, a.logger, r, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	u := models.User{
		ID:       uuid.New(),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: hash,
		Username: req.Username,
	}
	if req.RUT != "" {
		formatted := rut.Format(req.RUT)
		u.RUT = &formatted
	}
	p := models.Profile{UserID: u.ID, Username: req.Username}
	if err := a.store.CreateAccount(r.Context(), &u, &p); err != nil {
		writeError(w, a.logger, r, err)
		return
	}

	token, err := a.issueSession(w, u.ID)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	a.logger.WithFields(logrus.Fields{"user": u.ID, "username": u.Username}).Info("account created")

	u.Password = ""
	writeJSON(w, http.StatusCreated, authResponse{User: u, Token: token})
}

// SignInHandler checks credentials and returns a token. The token is also sent via
// the Cookie header.
func (a *API) SignInHandler(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := a.decode(r, &req); err != nil {
		writeError(w, a.logger, r, err)
		return
	}

	u, err := a.store.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, apperr.ErrNotFound) || (err == nil && !auth.CheckPassword(req.Password, u.Password)) {
		writeError(w, a.logger, r, apperr.ErrNotAuthenticated)
		return
	}
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}

	token, err := a.issueSession(w, u.ID)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	u.Password = ""
	writeJSON(w, http.StatusOK, authResponse{User: *u, Token: token})
}

// SignOutHandler expires the session cookie. Bearer tokens stay valid until expiry.
func (a *API) SignOutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		HttpOnly: true,
		Path:     "/",
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

// MeHandler returns the caller's profile with rank progress and badge counters.
func (a *API) MeHandler(w http.ResponseWriter, r *http.Request) {
	me, _ := session.FromContext(r.Context())
	ctx := r.Context()

	p, err := a.store.GetProfile(ctx, me)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	pending, err := a.social.PendingIncomingCount(ctx, me)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	unread, err := a.store.CountUnreadNotifications(ctx, me)
	if err != nil {
		writeError(w, a.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		Profile:             p,
		Rank:                rank.ProgressFor(p.TotalXP),
		PendingRequests:     pending,
		UnreadNotifications: unread,
	})
}

func (a *API) issueSession(w http.ResponseWriter, userID uuid.UUID) (string, error) {
	token, err := a.keys.CreateJWT(userID)
	if err != nil {
		return "", err
	}
	cookie := &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
	if a.keys.Expiry > 0 {
		cookie.MaxAge = int(a.keys.Expiry.Seconds())
	}
	http.SetCookie(w, cookie)
	return token, nil
}
