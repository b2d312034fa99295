// internal/memstore/notifications.go
package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/realtime"
)

func (s *Store) InsertNotification(ctx context.Context, n *models.Notification) error {
	return s.InsertNotifications(ctx, []*models.Notification{n})
}

// InsertNotifications stores every notification, filling ids and timestamps, then
// publishes one event per row.
func (s *Store) InsertNotifications(_ context.Context, ns []*models.Notification) error {
	s.mu.Lock()
	for _, n := range ns {
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = s.Now()
		}
		s.notifications = append(s.notifications, *n)
	}
	s.mu.Unlock()

	for _, n := range ns {
		s.publish(realtime.NotificationInserted(*n))
	}
	return nil
}

func (s *Store) ListNotifications(_ context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CountUnreadNotifications(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, x := range s.notifications {
		if x.UserID == userID && x.Unread() {
			n++
		}
	}
	return n, nil
}

// MarkNotificationRead sets read_at on one notification of userID. Marking an already
// read notification keeps its original read_at.
func (s *Store) MarkNotificationRead(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.ID != id || n.UserID != userID {
			continue
		}
		if n.ReadAt == nil {
			now := s.Now()
			n.ReadAt = &now
		}
		return nil
	}
	return fmt.Errorf("notification %s: %w", id, apperr.ErrNotFound)
}

func (s *Store) MarkAllNotificationsRead(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Now()
	count := 0
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.UserID == userID && n.ReadAt == nil {
			n.ReadAt = &now
			count++
		}
	}
	return count, nil
}

// Notifications returns a snapshot of every notification, for assertions in tests.
func (s *Store) Notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.notifications...)
}
