// internal/chat/tracker.go
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/session"
	"github.com/sirupsen/logrus"
)

// ReadStore persists read markers.
type ReadStore interface {
	ListReadMarkers(ctx context.Context, viewer uuid.UUID) ([]models.ReadMarker, error)
	UpsertReadMarker(ctx context.Context, m models.ReadMarker) error
}

// Tracker derives per-counterparty unread badges from read markers and the latest
// message seen from each counterparty. It is eventually consistent with the store.
type Tracker struct {
	mu       sync.Mutex
	reads    ReadStore
	messages MessageStore
	session  session.Provider
	logger   *logrus.Logger

	markers map[uuid.UUID]time.Time
	latest  map[uuid.UUID]time.Time
	open    uuid.UUID
	stored  time.Time // newest marker stored for the open conversation

	Now func() time.Time
}

func NewTracker(reads ReadStore, messages MessageStore, sess session.Provider, logger *logrus.Logger) *Tracker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Tracker{
		reads:    reads,
		messages: messages,
		session:  sess,
		logger:   logger,
		markers:  make(map[uuid.UUID]time.Time),
		latest:   make(map[uuid.UUID]time.Time),
		Now:      time.Now,
	}
}

// Load replaces the local markers with the stored ones. Markers set locally that are
// newer than the stored value are kept.
func (t *Tracker) Load(ctx context.Context) error {
	me, ok := t.session.UserID()
	if !ok {
		return nil
	}
	ms, err := t.reads.ListReadMarkers(ctx, me)
	if err != nil {
		return apperr.Transient("list read markers", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range ms {
		if cur, ok := t.markers[m.OtherID]; !ok || m.LastSeenAt.After(cur) {
			t.markers[m.OtherID] = m.LastSeenAt
		}
	}
	return nil
}

// Refresh records the newest message each counterparty sent to the current user.
func (t *Tracker) Refresh(ctx context.Context, others []uuid.UUID) error {
	me, ok := t.session.UserID()
	if !ok {
		return nil
	}
	for _, other := range others {
		page, err := t.messages.ListMessages(ctx, me, other, nil, PageSize)
		if err != nil {
			return apperr.Transient("list messages", err)
		}
		for _, m := range page {
			if m.SenderID == other {
				t.Observe(m)
				break
			}
		}
	}
	return nil
}

// Open marks the conversation with otherID as seen now. The local marker moves
// immediately; the stored marker follows.
func (t *Tracker) Open(ctx context.Context, otherID uuid.UUID) error {
	me, ok := t.session.UserID()
	if !ok {
		return apperr.ErrNotAuthenticated
	}
	now := t.Now()
	t.mu.Lock()
	t.open = otherID
	t.markers[otherID] = now
	t.stored = time.Time{}
	t.mu.Unlock()

	err := t.reads.UpsertReadMarker(ctx, models.ReadMarker{ViewerID: me, OtherID: otherID, LastSeenAt: now})
	if err != nil {
		t.logger.WithError(err).WithField("other_id", otherID).Warn("failed to persist read marker")
		return apperr.Transient("upsert read marker", err)
	}
	t.mu.Lock()
	if t.open == otherID && now.After(t.stored) {
		t.stored = now
	}
	t.mu.Unlock()
	return nil
}

// Leave clears the open conversation. Messages that arrived while it was open were on
// screen, so its marker moves up to the newest of them and is stored. A failed store
// is logged; the local marker still moves.
func (t *Tracker) Leave(ctx context.Context) {
	t.mu.Lock()
	other := t.open
	t.open = uuid.Nil
	if other == uuid.Nil {
		t.mu.Unlock()
		return
	}
	marker := t.markers[other]
	if latest, ok := t.latest[other]; ok && latest.After(marker) {
		marker = latest
		t.markers[other] = marker
	}
	dirty := marker.After(t.stored)
	t.mu.Unlock()

	me, ok := t.session.UserID()
	if !ok || !dirty {
		return
	}
	err := t.reads.UpsertReadMarker(ctx, models.ReadMarker{ViewerID: me, OtherID: other, LastSeenAt: marker})
	if err != nil {
		t.logger.WithError(err).WithField("other_id", other).Warn("failed to persist read marker")
	}
}

// Observe records m if it was sent to the current user.
func (t *Tracker) Observe(m models.Message) {
	me, ok := t.session.UserID()
	if !ok || m.ReceiverID != me {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.latest[m.SenderID]; !ok || m.CreatedAt.After(cur) {
		t.latest[m.SenderID] = m.CreatedAt
	}
}

// IsUnread reports whether otherID sent something after the current user last looked.
// The open conversation is never unread, and with no marker any message is unread.
func (t *Tracker) IsUnread(otherID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unread(otherID)
}

// Unread lists every counterparty with unread messages.
func (t *Tracker) Unread() []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []uuid.UUID
	for other := range t.latest {
		if t.unread(other) {
			out = append(out, other)
		}
	}
	return out
}

func (t *Tracker) unread(otherID uuid.UUID) bool {
	if otherID == t.open {
		return false
	}
	latest, ok := t.latest[otherID]
	if !ok {
		return false
	}
	marker, ok := t.markers[otherID]
	if !ok {
		return true
	}
	return latest.After(marker)
}
