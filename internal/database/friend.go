// internal/database/friend.go

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/models"
)

const requestColumns = `id, requester_id, receiver_id, status, created_at, updated_at`

// InsertFriendRequest inserts a pending row. The active pair index turns a second
// pending or accepted row for the same pair into ErrAlreadyRequested.
func (s *Store) InsertFriendRequest(ctx context.Context, requester, receiver uuid.UUID) (*models.FriendRequest, error) {
	q := `
		INSERT INTO friend_requests (id, requester_id, receiver_id, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING ` + requestColumns
	var r *models.FriendRequest
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var err error
		r, err = scanRequest(tx.QueryRow(ctx, q, uuid.New(), requester, receiver))
		return err
	})
	if err != nil {
		return nil, classify("insert friend request", err)
	}
	return r, nil
}

func (s *Store) GetFriendRequest(ctx context.Context, id uuid.UUID) (*models.FriendRequest, error) {
	r, err := scanRequest(s.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM friend_requests WHERE id = $1`, id))
	if err != nil {
		return nil, classify(fmt.Sprintf("friend request %s", id), err)
	}
	return r, nil
}

// UpdateFriendRequestStatus moves the row from one status to another. It fails with
// ErrNotFound if the row is gone and ErrInvalidTransition if it is no longer in from.
func (s *Store) UpdateFriendRequestStatus(ctx context.Context, id uuid.UUID, from, to models.RequestStatus) (*models.FriendRequest, error) {
	q := `
		UPDATE friend_requests
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + requestColumns
	var r *models.FriendRequest
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var err error
		r, err = scanRequest(tx.QueryRow(ctx, q, id, from, to))
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		var current models.RequestStatus
		if err := tx.QueryRow(ctx, `SELECT status FROM friend_requests WHERE id = $1`, id).Scan(&current); err != nil {
			return err
		}
		return fmt.Errorf("friend request %s is %s, not %s: %w", id, current, from, apperr.ErrInvalidTransition)
	})
	if err != nil {
		return nil, classify(fmt.Sprintf("update friend request %s", id), err)
	}
	return r, nil
}

// ListFriendRequests returns every row touching userID, newest first.
func (s *Store) ListFriendRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error) {
	q := `
		SELECT ` + requestColumns + `
		FROM friend_requests
		WHERE requester_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC, id DESC
	`
	return s.queryRequests(ctx, "list friend requests", q, userID)
}

// ListFriendRequestsBetween returns every row between a and b in either direction,
// newest first.
func (s *Store) ListFriendRequestsBetween(ctx context.Context, a, b uuid.UUID) ([]models.FriendRequest, error) {
	q := `
		SELECT ` + requestColumns + `
		FROM friend_requests
		WHERE (requester_id = $1 AND receiver_id = $2)
		   OR (requester_id = $2 AND receiver_id = $1)
		ORDER BY created_at DESC, id DESC
	`
	return s.queryRequests(ctx, "list friend requests between", q, a, b)
}

func (s *Store) CountPendingIncoming(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM friend_requests WHERE receiver_id = $1 AND status = 'pending'`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, classify("count pending requests", err)
	}
	return n, nil
}

func (s *Store) queryRequests(ctx context.Context, op, q string, args ...any) ([]models.FriendRequest, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	rs := []models.FriendRequest{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		rs = append(rs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return rs, nil
}

func scanRequest(row pgx.Row) (*models.FriendRequest, error) {
	var r models.FriendRequest
	if err := row.Scan(&r.ID, &r.RequesterID, &r.ReceiverID, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}
