// internal/memstore/friends.go
package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/models"
)

// InsertFriendRequest adds a pending row. Like the partial unique index in Postgres, it
// refuses a second active row for the same unordered pair.
func (s *Store) InsertFriendRequest(_ context.Context, requester, receiver uuid.UUID) (*models.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.Touches(requester, receiver) && r.Status.Active() {
			return nil, fmt.Errorf("pair %s/%s: %w", requester, receiver, apperr.ErrAlreadyRequested)
		}
	}
	now := s.Now()
	r := models.FriendRequest{
		ID:          uuid.New(),
		RequesterID: requester,
		ReceiverID:  receiver,
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.requests[r.ID] = r
	return &r, nil
}

func (s *Store) GetFriendRequest(_ context.Context, id uuid.UUID) (*models.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("friend request %s: %w", id, apperr.ErrNotFound)
	}
	return &r, nil
}

// UpdateFriendRequestStatus moves the row from one status to another, failing if the row
// is gone or no longer in the from status.
func (s *Store) UpdateFriendRequestStatus(_ context.Context, id uuid.UUID, from, to models.RequestStatus) (*models.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("friend request %s: %w", id, apperr.ErrNotFound)
	}
	if r.Status != from {
		return nil, fmt.Errorf("friend request %s is %s, not %s: %w", id, r.Status, from, apperr.ErrInvalidTransition)
	}
	r.Status = to
	r.UpdatedAt = s.Now()
	s.requests[id] = r
	return &r, nil
}

func (s *Store) ListFriendRequests(_ context.Context, userID uuid.UUID) ([]models.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.FriendRequest
	for _, r := range s.requests {
		if r.RequesterID == userID || r.ReceiverID == userID {
			out = append(out, r)
		}
	}
	return newestFirst(out), nil
}

func (s *Store) ListFriendRequestsBetween(_ context.Context, a, b uuid.UUID) ([]models.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.FriendRequest
	for _, r := range s.requests {
		if r.Touches(a, b) {
			out = append(out, r)
		}
	}
	return newestFirst(out), nil
}

func (s *Store) CountPendingIncoming(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.ReceiverID == userID && r.Status == models.StatusPending {
			n++
		}
	}
	return n, nil
}

// FriendRequests returns a snapshot of every row, for assertions in tests.
func (s *Store) FriendRequests() []models.FriendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.FriendRequest, 0, len(s.requests))
	for _, r := range s.requests {
		out = append(out, r)
	}
	return newestFirst(out)
}

func newestFirst(rs []models.FriendRequest) []models.FriendRequest {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.After(rs[j].CreatedAt)
		}
		return rs[i].ID.String() > rs[j].ID.String()
	})
	return rs
}
