// internal/chat/log.go

// Package chat keeps the client-side view of conversations and notifications: the
// paginated conversation log with optimistic sends, the read-state tracker, the
// notification feed, and the propagator that feeds realtime inserts into all three.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/session"
	"github.com/sirupsen/logrus"
)

// PageSize is how many messages one history fetch returns.
const PageSize = 50

// MaxBodyLength bounds a single message body, in runes.
const MaxBodyLength = 2000

// Delivery tracks whether an entry has been confirmed by the store.
type Delivery string

const (
	DeliveryPending Delivery = "pending"
	DeliverySent    Delivery = "sent"
	DeliveryFailed  Delivery = "failed"
)

// Entry is a message as held by the log. Optimistic entries carry their client token
// as a temporary ID until the stored row replaces them.
type Entry struct {
	models.Message
	Delivery Delivery `json:"delivery"`
}

// MessageStore reads and writes conversation history.
type MessageStore interface {
	InsertMessage(ctx context.Context, m *models.Message) (*models.Message, error)
	ListMessages(ctx context.Context, a, b uuid.UUID, before *time.Time, limit int) ([]models.Message, error)
}

// Log holds the history between the current user and one counterparty. Every async
// result is applied only if the log still shows the conversation that started it.
type Log struct {
	mu      sync.Mutex
	store   MessageStore
	session session.Provider
	logger  *logrus.Logger

	gen         uint64
	me          uuid.UUID
	other       uuid.UUID
	entries     []Entry
	hasMore     bool
	loadingMore bool

	// Now stamps optimistic entries.
	Now func() time.Time
}

func NewLog(store MessageStore, sess session.Provider, logger *logrus.Logger) *Log {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Log{store: store, session: sess, logger: logger, Now: time.Now}
}

// Open discards the current history and loads the newest page with otherID.
func (l *Log) Open(ctx context.Context, otherID uuid.UUID) error {
	me, ok := l.session.UserID()
	if !ok {
		return apperr.ErrNotAuthenticated
	}
	if otherID == uuid.Nil || otherID == me {
		return apperr.Validation("invalid conversation partner")
	}

	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.me, l.other = me, otherID
	l.entries = nil
	l.hasMore = false
	l.loadingMore = false
	l.mu.Unlock()

	page, err := l.store.ListMessages(ctx, me, otherID, nil, PageSize)
	if err != nil {
		return apperr.Transient("list messages", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen {
		return nil
	}
	// anything that arrived while the page was in flight stays after it
	arrived := l.entries
	l.entries = make([]Entry, 0, len(page)+len(arrived))
	for i := len(page) - 1; i >= 0; i-- {
		l.entries = append(l.entries, Entry{Message: page[i], Delivery: DeliverySent})
	}
	for _, e := range arrived {
		if l.indexOf(e.Message) < 0 {
			l.entries = append(l.entries, e)
		}
	}
	l.hasMore = len(page) == PageSize
	return nil
}

// LoadMore prepends up to PageSize messages strictly older than the oldest held one.
// It returns how many were added, and is a no-op while another LoadMore is in flight
// or once the previous page came back short.
func (l *Log) LoadMore(ctx context.Context) (int, error) {
	l.mu.Lock()
	if l.other == uuid.Nil || !l.hasMore || l.loadingMore {
		l.mu.Unlock()
		return 0, nil
	}
	oldest, ok := l.oldestSent()
	if !ok {
		l.mu.Unlock()
		return 0, nil
	}
	l.loadingMore = true
	gen, me, other := l.gen, l.me, l.other
	l.mu.Unlock()

	page, err := l.store.ListMessages(ctx, me, other, &oldest, PageSize)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen {
		return 0, nil
	}
	l.loadingMore = false
	if err != nil {
		return 0, apperr.Transient("list older messages", err)
	}

	older := make([]Entry, 0, len(page)+len(l.entries))
	for i := len(page) - 1; i >= 0; i-- {
		m := page[i]
		if !m.CreatedAt.Before(oldest) || l.indexOf(m) >= 0 {
			continue
		}
		older = append(older, Entry{Message: m, Delivery: DeliverySent})
	}
	l.entries = append(older, l.entries...)
	l.hasMore = len(page) == PageSize
	return len(older), nil
}

// Send appends an optimistic pending entry before calling the store, then replaces it
// with the stored row, or marks it failed. The returned entry reflects the outcome.
func (l *Log) Send(ctx context.Context, body string) (Entry, error) {
	me, ok := l.session.UserID()
	if !ok {
		return Entry{}, apperr.ErrNotAuthenticated
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return Entry{}, apperr.Validation("message body is empty")
	}
	if len([]rune(body)) > MaxBodyLength {
		return Entry{}, apperr.Validation("message body exceeds %d characters", MaxBodyLength)
	}

	l.mu.Lock()
	if l.other == uuid.Nil || l.me != me {
		l.mu.Unlock()
		return Entry{}, apperr.Validation("no conversation is open")
	}
	token := uuid.New()
	pending := Entry{
		Message: models.Message{
			ID:          token,
			SenderID:    me,
			ReceiverID:  l.other,
			Body:        body,
			ClientToken: token,
			CreatedAt:   l.Now(),
		},
		Delivery: DeliveryPending,
	}
	l.entries = append(l.entries, pending)
	gen := l.gen
	l.mu.Unlock()

	return l.deliver(ctx, gen, pending)
}

// Retry resends a failed entry under its original client token, so a send that did
// reach the store is not stored twice.
func (l *Log) Retry(ctx context.Context, token uuid.UUID) (Entry, error) {
	if _, ok := l.session.UserID(); !ok {
		return Entry{}, apperr.ErrNotAuthenticated
	}
	l.mu.Lock()
	i := l.indexOfToken(token)
	if i < 0 || l.entries[i].Delivery != DeliveryFailed {
		l.mu.Unlock()
		return Entry{}, apperr.ErrNotFound
	}
	l.entries[i].Delivery = DeliveryPending
	e := l.entries[i]
	gen := l.gen
	l.mu.Unlock()

	return l.deliver(ctx, gen, e)
}

func (l *Log) deliver(ctx context.Context, gen uint64, e Entry) (Entry, error) {
	draft := models.Message{
		SenderID:    e.SenderID,
		ReceiverID:  e.ReceiverID,
		Body:        e.Body,
		ClientToken: e.ClientToken,
	}
	stored, err := l.store.InsertMessage(ctx, &draft)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.logger.WithError(err).WithField("client_token", e.ClientToken).Warn("failed to send message")
		e.Delivery = DeliveryFailed
		if l.gen == gen {
			if i := l.indexOfToken(e.ClientToken); i >= 0 && l.entries[i].Delivery == DeliveryPending {
				l.entries[i].Delivery = DeliveryFailed
			}
		}
		return e, apperr.Transient("send message", err)
	}

	confirmed := Entry{Message: *stored, Delivery: DeliverySent}
	if l.gen == gen {
		l.reconcile(confirmed)
	}
	return confirmed, nil
}

// ApplyInsert merges a stored message delivered out of band, typically the realtime
// echo of an insert. It reports whether the log changed.
func (l *Log) ApplyInsert(m models.Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.other == uuid.Nil || !m.BetweenPair(l.me, l.other) {
		return false
	}
	return l.reconcile(Entry{Message: m, Delivery: DeliverySent})
}

// CatchUp refetches the newest page and merges anything missing, for use after the
// realtime stream was interrupted.
func (l *Log) CatchUp(ctx context.Context) (int, error) {
	l.mu.Lock()
	gen, me, other := l.gen, l.me, l.other
	l.mu.Unlock()
	if other == uuid.Nil {
		return 0, nil
	}

	page, err := l.store.ListMessages(ctx, me, other, nil, PageSize)
	if err != nil {
		return 0, apperr.Transient("list messages", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen {
		return 0, nil
	}
	added := 0
	for i := len(page) - 1; i >= 0; i-- {
		if l.reconcile(Entry{Message: page[i], Delivery: DeliverySent}) {
			added++
		}
	}
	return added, nil
}

// Close forgets the conversation and drops any in-flight results.
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.other = uuid.Nil
	l.entries = nil
	l.hasMore = false
	l.loadingMore = false
}

// Entries returns the held messages in chronological order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

func (l *Log) OtherID() uuid.UUID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.other
}

func (l *Log) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasMore
}

// reconcile replaces the entry matching e by id or client token, or inserts e in
// chronological order. Callers hold l.mu.
func (l *Log) reconcile(e Entry) bool {
	if i := l.indexOf(e.Message); i >= 0 {
		if l.entries[i].Delivery == DeliverySent && l.entries[i].ID == e.ID {
			return false
		}
		l.entries[i] = e
		return true
	}
	i := len(l.entries)
	for i > 0 && l.entries[i-1].Delivery == DeliverySent && l.entries[i-1].CreatedAt.After(e.CreatedAt) {
		i--
	}
	l.entries = append(l.entries, Entry{})
	copy(l.entries[i+1:], l.entries[i:])
	l.entries[i] = e
	return true
}

func (l *Log) indexOf(m models.Message) int {
	for i, e := range l.entries {
		if e.ID == m.ID {
			return i
		}
		if m.ClientToken != uuid.Nil && e.ClientToken == m.ClientToken && e.SenderID == m.SenderID {
			return i
		}
	}
	return -1
}

func (l *Log) indexOfToken(token uuid.UUID) int {
	for i, e := range l.entries {
		if e.ClientToken == token {
			return i
		}
	}
	return -1
}

func (l *Log) oldestSent() (time.Time, bool) {
	for _, e := range l.entries {
		if e.Delivery == DeliverySent {
			return e.CreatedAt, true
		}
	}
	return time.Time{}, false
}
