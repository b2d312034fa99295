// internal/handlers/api.go

// Package handlers exposes the social graph, messaging and notification stores over
// REST, plus a WebSocket endpoint that streams realtime insert events.
package handlers

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/saberactivo/social/internal/auth"
	"github.com/saberactivo/social/internal/chat"
	"github.com/saberactivo/social/internal/middleware"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/progress"
	"github.com/saberactivo/social/internal/realtime"
	"github.com/saberactivo/social/internal/social"
	"github.com/sirupsen/logrus"
)

// Store is every persistence operation the API serves.
type Store interface {
	social.RelationshipStore
	social.ProfileStore
	chat.MessageStore
	chat.ReadStore
	chat.NotificationStore
	progress.Store

	CreateAccount(ctx context.Context, u *models.User, p *models.Profile) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error)
	SearchProfiles(ctx context.Context, q string, limit int) ([]models.Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error)
}

// API holds the handler dependencies.
type API struct {
	store    Store
	social   *social.Service
	progress *progress.Service
	bus      realtime.Subscriber
	keys     *auth.Keys
	validate *validator.Validate
	logger   *logrus.Logger

	// OriginPatterns are the browser origins allowed to open the realtime socket.
	OriginPatterns []string
}

func NewAPI(store Store, svc *social.Service, bus realtime.Subscriber, keys *auth.Keys, logger *logrus.Logger) *API {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &API{
		store:    store,
		social:   svc,
		progress: progress.NewService(store, logger),
		bus:      bus,
		keys:     keys,
		validate: newValidator(),
		logger:   logger,
	}
}

// Router registers every route.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.LogMiddleware(a.logger))
	r.Use(middleware.Authenticate(a.keys, a.logger))

	r.HandleFunc("/auth/signup", a.SignUpHandler).Methods(http.MethodPost)
	r.HandleFunc("/auth/signin", a.SignInHandler).Methods(http.MethodPost)
	r.HandleFunc("/auth/signout", a.SignOutHandler).Methods(http.MethodPost)

	r.HandleFunc("/profiles", a.SearchProfilesHandler).Methods(http.MethodGet)
	r.HandleFunc("/profiles/{username}", a.GetProfileHandler).Methods(http.MethodGet)
	r.HandleFunc("/lessons", a.ListLessonsHandler).Methods(http.MethodGet)
	r.HandleFunc("/ranking", a.RankingHandler).Methods(http.MethodGet)
	r.HandleFunc("/realtime/ws", a.RealtimeWSHandler).Methods(http.MethodGet)

	protected := r.NewRoute().Subrouter()
	protected.Use(middleware.RequireUser)

	protected.HandleFunc("/me", a.MeHandler).Methods(http.MethodGet)
	protected.HandleFunc("/profiles/me", a.UpdateProfileHandler).Methods(http.MethodPatch)

	protected.HandleFunc("/friends", a.ListFriendsHandler).Methods(http.MethodGet)
	protected.HandleFunc("/friends/requests", a.ListRequestsHandler).Methods(http.MethodGet)
	protected.HandleFunc("/friends/requests/pending/count", a.PendingCountHandler).Methods(http.MethodGet)
	protected.HandleFunc("/friends/requests/{id}/accept", a.AcceptRequestHandler).Methods(http.MethodPost)
	protected.HandleFunc("/friends/requests/{id}/reject", a.RejectRequestHandler).Methods(http.MethodPost)
	protected.HandleFunc("/friends/{id}/state", a.RelationshipStateHandler).Methods(http.MethodGet)
	protected.HandleFunc("/friends/{id}/request", a.SendRequestHandler).Methods(http.MethodPost)
	protected.HandleFunc("/friends/{id}", a.RemoveFriendHandler).Methods(http.MethodDelete)

	protected.HandleFunc("/messages/{otherId}", a.ListMessagesHandler).Methods(http.MethodGet)
	protected.HandleFunc("/messages/{otherId}", a.SendMessageHandler).Methods(http.MethodPost)
	protected.HandleFunc("/reads", a.ListReadMarkersHandler).Methods(http.MethodGet)
	protected.HandleFunc("/reads/{otherId}", a.UpsertReadMarkerHandler).Methods(http.MethodPut)

	protected.HandleFunc("/lessons/{id}/complete", a.CompleteLessonHandler).Methods(http.MethodPost)
	protected.HandleFunc("/progress", a.ProgressHandler).Methods(http.MethodGet)

	protected.HandleFunc("/notifications", a.ListNotificationsHandler).Methods(http.MethodGet)
	protected.HandleFunc("/notifications/unread/count", a.UnreadNotificationsHandler).Methods(http.MethodGet)
	protected.HandleFunc("/notifications/read-all", a.MarkAllNotificationsReadHandler).Methods(http.MethodPost)
	protected.HandleFunc("/notifications/{id}/read", a.MarkNotificationReadHandler).Methods(http.MethodPost)

	return r
}
