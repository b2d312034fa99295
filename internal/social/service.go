// internal/social/service.go

// Package social implements the friend request lifecycle on top of the relationship
// store. Every transition commits first and only then emits the counterparty's
// notification, which is best effort.
package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/notify"
	"github.com/saberactivo/social/internal/relationship"
	"github.com/sirupsen/logrus"
)

// TopFriendsLimit is how many friends a public profile shows.
const TopFriendsLimit = 5

// RelationshipStore persists friend request rows.
type RelationshipStore interface {
	InsertFriendRequest(ctx context.Context, requester, receiver uuid.UUID) (*models.FriendRequest, error)
	GetFriendRequest(ctx context.Context, id uuid.UUID) (*models.FriendRequest, error)
	UpdateFriendRequestStatus(ctx context.Context, id uuid.UUID, from, to models.RequestStatus) (*models.FriendRequest, error)
	ListFriendRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error)
	ListFriendRequestsBetween(ctx context.Context, a, b uuid.UUID) ([]models.FriendRequest, error)
	CountPendingIncoming(ctx context.Context, userID uuid.UUID) (int, error)
}

// ProfileStore reads public profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ListProfiles(ctx context.Context, ids []uuid.UUID, limit int) ([]models.Profile, error)
}

// Service runs relationship transitions and friend list queries.
type Service struct {
	rels     RelationshipStore
	profiles ProfileStore
	emitter  notify.Emitter
	logger   *logrus.Logger
}

func NewService(rels RelationshipStore, profiles ProfileStore, emitter notify.Emitter, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{rels: rels, profiles: profiles, emitter: emitter, logger: logger}
}

// State resolves the relationship of subject as seen by viewer.
func (s *Service) State(ctx context.Context, viewer, subject uuid.UUID) (relationship.State, error) {
	if viewer == uuid.Nil {
		return "", apperr.ErrNotAuthenticated
	}
	if viewer == subject {
		return relationship.StateSelf, nil
	}
	rows, err := s.rels.ListFriendRequestsBetween(ctx, viewer, subject)
	if err != nil {
		return "", apperr.Transient("list friend requests", err)
	}
	return relationship.Resolve(viewer, subject, rows), nil
}

// SendRequest creates a pending request from requester to receiver and notifies the
// receiver. It fails with ErrAlreadyRequested while the pair is outgoing, incoming or
// accepted; a rejected pair may be proposed again.
func (s *Service) SendRequest(ctx context.Context, requester, receiver uuid.UUID) (*models.FriendRequest, error) {
	if requester == uuid.Nil {
		return nil, apperr.ErrNotAuthenticated
	}
	if receiver == uuid.Nil {
		return nil, apperr.Validation("receiver id is required")
	}
	if requester == receiver {
		return nil, apperr.Validation("cannot send a friend request to yourself")
	}

	state, err := s.State(ctx, requester, receiver)
	if err != nil {
		return nil, err
	}
	if state.Active() {
		return nil, fmt.Errorf("relationship is %s: %w", state, apperr.ErrAlreadyRequested)
	}

	req, err := s.rels.InsertFriendRequest(ctx, requester, receiver)
	if err != nil {
		return nil, apperr.Transient("insert friend request", err)
	}
	s.logger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"requester":  requester,
		"receiver":   receiver,
	}).Info("friend request sent")

	s.emitter.Emit(ctx, notify.RequestSent(receiver, s.displayHandle(ctx, requester)))
	return req, nil
}

// AcceptRequest moves a pending request addressed to caller to accepted and notifies
// the original requester.
func (s *Service) AcceptRequest(ctx context.Context, caller, requestID uuid.UUID) (*models.FriendRequest, error) {
	if caller == uuid.Nil {
		return nil, apperr.ErrNotAuthenticated
	}
	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ReceiverID != caller {
		return nil, fmt.Errorf("only the receiver may accept request %s: %w", requestID, apperr.ErrForbidden)
	}
	if req.Status != models.StatusPending {
		return nil, fmt.Errorf("request %s is %s: %w", requestID, req.Status, apperr.ErrInvalidTransition)
	}

	updated, err := s.rels.UpdateFriendRequestStatus(ctx, requestID, models.StatusPending, models.StatusAccepted)
	if err != nil {
		return nil, apperr.Transient("accept friend request", err)
	}
	s.logger.WithFields(logrus.Fields{"request_id": requestID, "receiver": caller}).Info("friend request accepted")

	s.emitter.Emit(ctx, notify.RequestAccepted(updated.RequesterID))
	return updated, nil
}

// RejectRequest moves a request to rejected. The receiver may decline a pending request,
// and either side may end an accepted one. The requester cannot reject their own pending
// request.
func (s *Service) RejectRequest(ctx context.Context, caller, requestID uuid.UUID) (*models.FriendRequest, error) {
	if caller == uuid.Nil {
		return nil, apperr.ErrNotAuthenticated
	}
	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case models.StatusPending:
		if req.ReceiverID != caller {
			return nil, fmt.Errorf("only the receiver may decline request %s: %w", requestID, apperr.ErrForbidden)
		}
	case models.StatusAccepted:
		if req.ReceiverID != caller && req.RequesterID != caller {
			return nil, fmt.Errorf("request %s: %w", requestID, apperr.ErrForbidden)
		}
	default:
		return nil, fmt.Errorf("request %s is already %s: %w", requestID, req.Status, apperr.ErrInvalidTransition)
	}

	updated, err := s.rels.UpdateFriendRequestStatus(ctx, requestID, req.Status, models.StatusRejected)
	if err != nil {
		return nil, apperr.Transient("reject friend request", err)
	}
	s.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"caller":     caller,
		"was":        req.Status,
	}).Info("friend request rejected")
	return updated, nil
}

// RemoveFriend rejects the accepted row between viewer and other.
func (s *Service) RemoveFriend(ctx context.Context, viewer, other uuid.UUID) (*models.FriendRequest, error) {
	if viewer == uuid.Nil {
		return nil, apperr.ErrNotAuthenticated
	}
	if viewer == other || other == uuid.Nil {
		return nil, apperr.Validation("invalid friend id")
	}
	rows, err := s.rels.ListFriendRequestsBetween(ctx, viewer, other)
	if err != nil {
		return nil, apperr.Transient("list friend requests", err)
	}
	row, ok := relationship.FindAccepted(viewer, other, rows)
	if !ok {
		return nil, fmt.Errorf("%s and %s are not friends: %w", viewer, other, apperr.ErrRelationNotFound)
	}
	return s.RejectRequest(ctx, viewer, row.ID)
}

// Requests lists every row touching userID, newest first.
func (s *Service) Requests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error) {
	if userID == uuid.Nil {
		return []models.FriendRequest{}, nil
	}
	rows, err := s.rels.ListFriendRequests(ctx, userID)
	if err != nil {
		return nil, apperr.Transient("list friend requests", err)
	}
	return rows, nil
}

// PendingIncomingCount counts the pending requests addressed to userID.
func (s *Service) PendingIncomingCount(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, nil
	}
	n, err := s.rels.CountPendingIncoming(ctx, userID)
	if err != nil {
		return 0, apperr.Transient("count pending requests", err)
	}
	return n, nil
}

// Friends returns the profiles of userID's accepted friends by total XP, highest first.
// A limit of zero or less returns all of them.
func (s *Service) Friends(ctx context.Context, userID uuid.UUID, limit int) ([]models.Profile, error) {
	if userID == uuid.Nil {
		return []models.Profile{}, nil
	}
	ids, err := s.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Profile{}, nil
	}
	profiles, err := s.profiles.ListProfiles(ctx, ids, limit)
	if err != nil {
		return nil, apperr.Transient("list profiles", err)
	}
	return profiles, nil
}

// FriendIDs returns the ids of every user with an accepted row touching userID.
func (s *Service) FriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.rels.ListFriendRequests(ctx, userID)
	if err != nil {
		return nil, apperr.Transient("list friend requests", err)
	}
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, r := range rows {
		if r.Status != models.StatusAccepted {
			continue
		}
		other := r.Other(userID)
		if !seen[other] {
			seen[other] = true
			ids = append(ids, other)
		}
	}
	return ids, nil
}

func (s *Service) getRequest(ctx context.Context, id uuid.UUID) (*models.FriendRequest, error) {
	if id == uuid.Nil {
		return nil, apperr.Validation("request id is required")
	}
	req, err := s.rels.GetFriendRequest(ctx, id)
	if err != nil {
		return nil, apperr.Transient("get friend request", err)
	}
	return req, nil
}

// displayHandle is the requester's username for notification copy, or a short id when
// the profile cannot be read.
func (s *Service) displayHandle(ctx context.Context, userID uuid.UUID) string {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil || p.Username == "" {
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			s.logger.WithError(err).WithField("user_id", userID).Warn("failed to load requester profile")
		}
		return userID.String()[:8]
	}
	return p.Username
}
