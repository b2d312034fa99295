// internal/database/store.go

// Package database implements every store contract on PostgreSQL through pgx. Inserts on
// messages and notifications are published to the realtime bus after their transaction
// commits.
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/realtime"
	"github.com/sirupsen/logrus"
)

const uniqueViolation = "23505"

// Store is the Postgres backend.
type Store struct {
	pool   *pgxpool.Pool
	pub    realtime.Publisher
	logger *logrus.Logger
}

// NewStore wraps pool. pub may be nil when no realtime delivery is wanted.
func NewStore(pool *pgxpool.Pool, pub realtime.Publisher, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{pool: pool, pub: pub, logger: logger}
}

func (s *Store) publish(ctx context.Context, ev realtime.Event, err error) {
	if s.pub == nil {
		return
	}
	if err == nil {
		err = s.pub.Publish(ctx, ev)
	}
	if err != nil {
		s.logger.WithError(err).WithField("topic", ev.Topic).Warn("failed to publish realtime event")
	}
}

// classify maps driver errors onto the apperr taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case "friend_requests_active_pair":
			return fmt.Errorf("%s: %w", op, apperr.ErrAlreadyRequested)
		case "users_email_key":
			return apperr.Validation("email already exists")
		case "users_profile_username_key":
			return apperr.Validation("username already taken")
		}
	}
	return apperr.Transient(op, err)
}

// limitArg turns a non-positive limit into NULL, which Postgres reads as no limit.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}
