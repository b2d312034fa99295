// internal/memstore/messages.go
package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/realtime"
)

// InsertMessage stores m and publishes the insert. A retry carrying a client token that
// was already stored for the same sender returns the stored row without a second insert.
func (s *Store) InsertMessage(_ context.Context, m *models.Message) (*models.Message, error) {
	s.mu.Lock()
	if m.ClientToken != uuid.Nil {
		for _, existing := range s.messages {
			if existing.SenderID == m.SenderID && existing.ClientToken == m.ClientToken {
				s.mu.Unlock()
				return &existing, nil
			}
		}
	}
	row := *m
	row.ID = uuid.New()
	row.CreatedAt = s.Now()
	s.insertOrdered(row)
	s.mu.Unlock()

	s.publish(realtime.MessageInserted(row))
	return &row, nil
}

// ListMessages returns up to limit messages between a and b, newest first, optionally
// restricted to those created strictly before before.
func (s *Store) ListMessages(_ context.Context, a, b uuid.UUID, before *time.Time, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	// messages is kept in created order, so walk it backwards
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if !m.BetweenPair(a, b) {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// SeedMessage stores m verbatim, keeping its id and timestamp. It does not publish.
func (s *Store) SeedMessage(m models.Message) models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	s.insertOrdered(m)
	return m
}

// insertOrdered keeps messages sorted by created time. Callers hold s.mu.
func (s *Store) insertOrdered(m models.Message) {
	i := len(s.messages)
	for i > 0 && s.messages[i-1].CreatedAt.After(m.CreatedAt) {
		i--
	}
	s.messages = append(s.messages, models.Message{})
	copy(s.messages[i+1:], s.messages[i:])
	s.messages[i] = m
}

func (s *Store) ListReadMarkers(_ context.Context, viewer uuid.UUID) ([]models.ReadMarker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ReadMarker
	for k, m := range s.reads {
		if k.viewer == viewer {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) UpsertReadMarker(_ context.Context, m models.ReadMarker) error {
	if m.ViewerID == uuid.Nil || m.OtherID == uuid.Nil {
		return apperr.Validation("read marker needs both ids")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads[readKey{m.ViewerID, m.OtherID}] = m
	return nil
}
