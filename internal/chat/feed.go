// internal/chat/feed.go
package chat

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/session"
)

// FeedLimit is how many notifications the feed shows.
const FeedLimit = 30

// NotificationStore reads and marks the current user's notifications.
type NotificationStore interface {
	ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int, error)
	MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int, error)
}

// Feed is a refreshable copy of the newest notifications and the unread count.
// It is never patched row by row: every change refetches.
type Feed struct {
	mu      sync.Mutex
	store   NotificationStore
	session session.Provider

	seq    uint64
	items  []models.Notification
	unread int
}

func NewFeed(store NotificationStore, sess session.Provider) *Feed {
	return &Feed{store: store, session: sess}
}

// Refresh refetches the list and the unread count. A result that lands after a newer
// Refresh started, or after the user changed, is dropped.
func (f *Feed) Refresh(ctx context.Context) error {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.mu.Unlock()

	me, ok := f.session.UserID()
	if !ok {
		f.mu.Lock()
		if f.seq == seq {
			f.items, f.unread = nil, 0
		}
		f.mu.Unlock()
		return nil
	}
	items, err := f.store.ListNotifications(ctx, me, FeedLimit)
	if err != nil {
		return apperr.Transient("list notifications", err)
	}
	unread, err := f.store.CountUnreadNotifications(ctx, me)
	if err != nil {
		return apperr.Transient("count unread notifications", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seq != seq {
		return nil
	}
	if cur, ok := f.session.UserID(); !ok || cur != me {
		return nil
	}
	f.items, f.unread = items, unread
	return nil
}

func (f *Feed) MarkRead(ctx context.Context, id uuid.UUID) error {
	me, ok := f.session.UserID()
	if !ok {
		return apperr.ErrNotAuthenticated
	}
	if err := f.store.MarkNotificationRead(ctx, me, id); err != nil {
		return apperr.Transient("mark notification read", err)
	}
	return f.Refresh(ctx)
}

func (f *Feed) MarkAllRead(ctx context.Context) error {
	me, ok := f.session.UserID()
	if !ok {
		return apperr.ErrNotAuthenticated
	}
	if _, err := f.store.MarkAllNotificationsRead(ctx, me); err != nil {
		return apperr.Transient("mark all notifications read", err)
	}
	return f.Refresh(ctx)
}

func (f *Feed) Items() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Notification(nil), f.items...)
}

func (f *Feed) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread
}
