package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/realtime"
)

const messageColumns = `id, sender_id, receiver_id, body, client_token, created_at`

// InsertMessage stores m and publishes it once committed. A retry with a client token
// already stored for the sender returns the existing row and publishes nothing.
func (s *Store) InsertMessage(ctx context.Context, m *models.Message) (*models.Message, error) {
	insert := `
		INSERT INTO messages (id, sender_id, receiver_id, body, client_token)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sender_id, client_token) WHERE client_token IS NOT NULL DO NOTHING
		RETURNING ` + messageColumns
	existing := `SELECT ` + messageColumns + ` FROM messages WHERE sender_id = $1 AND client_token = $2`

	var stored *models.Message
	created := false
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var err error
		stored, err = scanMessage(tx.QueryRow(ctx, insert, uuid.New(), m.SenderID, m.ReceiverID, m.Body, nullUUID(m.ClientToken)))
		if err == nil {
			created = true
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		stored, err = scanMessage(tx.QueryRow(ctx, existing, m.SenderID, m.ClientToken))
		return err
	})
	if err != nil {
		return nil, classify("insert message", err)
	}
	if created {
		ev, err := realtime.MessageInserted(*stored)
		s.publish(ctx, ev, err)
	}
	return stored, nil
}

// ListMessages returns up to limit messages between a and b, newest first, optionally
// only those created strictly before before.
func (s *Store) ListMessages(ctx context.Context, a, b uuid.UUID, before *time.Time, limit int) ([]models.Message, error) {
	q := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
		  AND ($3::timestamptz IS NULL OR created_at < $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`
	rows, err := s.pool.Query(ctx, q, a, b, before, limitArg(limit))
	if err != nil {
		return nil, classify("list messages", err)
	}
	defer rows.Close()

	ms := []models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, classify("list messages", err)
		}
		ms = append(ms, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list messages", err)
	}
	return ms, nil
}

func (s *Store) ListReadMarkers(ctx context.Context, viewer uuid.UUID) ([]models.ReadMarker, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT viewer_id, other_id, last_seen_at FROM read_markers WHERE viewer_id = $1`,
		viewer,
	)
	if err != nil {
		return nil, classify("list read markers", err)
	}
	defer rows.Close()

	ms := []models.ReadMarker{}
	for rows.Next() {
		var m models.ReadMarker
		if err := rows.Scan(&m.ViewerID, &m.OtherID, &m.LastSeenAt); err != nil {
			return nil, classify("list read markers", err)
		}
		ms = append(ms, m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list read markers", err)
	}
	return ms, nil
}

// UpsertReadMarker writes the marker; the last write wins.
func (s *Store) UpsertReadMarker(ctx context.Context, m models.ReadMarker) error {
	if m.ViewerID == uuid.Nil || m.OtherID == uuid.Nil {
		return apperr.Validation("read marker needs both ids")
	}
	q := `
		INSERT INTO read_markers (viewer_id, other_id, last_seen_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (viewer_id, other_id) DO UPDATE SET last_seen_at = EXCLUDED.last_seen_at
	`
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, m.ViewerID, m.OtherID, m.LastSeenAt)
		return err
	})
	return classify("upsert read marker", err)
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	var token pgtype.UUID
	if err := row.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Body, &token, &m.CreatedAt); err != nil {
		return nil, err
	}
	if token.Valid {
		m.ClientToken = uuid.UUID(token.Bytes)
	}
	return &m, nil
}
