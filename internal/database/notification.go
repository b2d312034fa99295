package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/realtime"
)

const notificationColumns = `id, user_id, title, body, created_at, read_at`

func (s *Store) InsertNotification(ctx context.Context, n *models.Notification) error {
	return s.InsertNotifications(ctx, []*models.Notification{n})
}

// InsertNotifications writes every row in one batch inside one transaction, then
// publishes an insert event per row.
func (s *Store) InsertNotifications(ctx context.Context, ns []*models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	q := `
		INSERT INTO notifications (id, user_id, title, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	now := time.Now()
	for _, n := range ns {
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
	}

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, n := range ns {
			batch.Queue(q, n.ID, n.UserID, n.Title, n.Body, n.CreatedAt)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return classify("insert notifications", err)
	}

	for _, n := range ns {
		ev, err := realtime.NotificationInserted(*n)
		s.publish(ctx, ev, err)
	}
	return nil
}

// ListNotifications returns the newest notifications of userID.
func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	q := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, q, userID, limitArg(limit))
	if err != nil {
		return nil, classify("list notifications", err)
	}
	defer rows.Close()

	ns := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, classify("list notifications", err)
		}
		ns = append(ns, n)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list notifications", err)
	}
	return ns, nil
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, classify("count unread notifications", err)
	}
	return n, nil
}

// MarkNotificationRead sets read_at on one of userID's notifications, keeping an
// earlier read_at if there is one.
func (s *Store) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error {
	q := `
		UPDATE notifications
		SET read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND user_id = $2
	`
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, q, id, userID)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return fmt.Errorf("notification %s: %w", id, apperr.ErrNotFound)
		}
		return nil
	})
	return classify("mark notification read", err)
}

// MarkAllNotificationsRead sets read_at on every unread notification of userID and
// returns how many changed.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int64
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `UPDATE notifications SET read_at = NOW() WHERE user_id = $1 AND read_at IS NULL`, userID)
		if err != nil {
			return err
		}
		n = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, classify("mark all notifications read", err)
	}
	return int(n), nil
}
