// internal/session/session.go

// Package session carries the identity of the current user. Server handlers put the
// authenticated id on the request context; client-side components receive a Provider.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Provider answers who the current user is. ok is false when nobody is signed in.
type Provider interface {
	UserID() (id uuid.UUID, ok bool)
}

// Static is a Provider for a fixed user; uuid.Nil means signed out.
type Static uuid.UUID

func (s Static) UserID() (uuid.UUID, bool) {
	id := uuid.UUID(s)
	return id, id != uuid.Nil
}

// State is a mutable Provider with a loading flag, used by clients that sign in and out.
type State struct {
	mu      sync.RWMutex
	userID  uuid.UUID
	loading bool
}

func (s *State) UserID() (uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.userID != uuid.Nil
}

// Loading reports whether a sign-in or session restore is in progress.
func (s *State) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *State) SetLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// Set records the signed-in user and clears the loading flag.
func (s *State) Set(id uuid.UUID) {
	s.mu.Lock()
	s.userID = id
	s.loading = false
	s.mu.Unlock()
}

// Clear signs the user out.
func (s *State) Clear() {
	s.Set(uuid.Nil)
}

type ctxKey struct{}

// WithUser returns a copy of ctx carrying userID.
func WithUser(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// FromContext returns the user stored by WithUser.
func FromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}
