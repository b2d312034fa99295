package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/auth"
	"github.com/saberactivo/social/internal/session"
	"github.com/sirupsen/logrus"
)

// TokenVerifier resolves a session token to a user id.
type TokenVerifier interface {
	AuthenticateJWT(token string) (uuid.UUID, error)
}

// TokenFromRequest returns the bearer token, falling back to the auth cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if c, err := r.Cookie(auth.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// Authenticate puts the verified user id into the request context. Requests without a
// valid token pass through signed out; handlers decide whether that is an error.
func Authenticate(keys TokenVerifier, logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			userID, err := keys.AuthenticateJWT(token)
			if err != nil {
				logger.WithError(err).WithField("path", r.URL.Path).Debug("rejected session token")
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(session.WithUser(r.Context(), userID)))
		})
	}
}

// RequireUser answers 401 unless Authenticate resolved a user. The body uses the same
// {"error","code"} shape as the handlers.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := session.FromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": apperr.ErrNotAuthenticated.Error(),
				"code":  apperr.CodeNotAuthenticated,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
