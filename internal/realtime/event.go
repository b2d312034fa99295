// internal/realtime/event.go

// Package realtime delivers row-insert events to subscribers scoped by topic.
// A topic is either one conversation pair on the messages table or one recipient
// on the notifications table.
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/models"
)

const (
	TableMessages      = "messages"
	TableNotifications = "notifications"

	EventInsert = "INSERT"
)

// Event is one inserted row as delivered over the bus.
type Event struct {
	Topic string          `json:"topic"`
	Table string          `json:"table"`
	Type  string          `json:"type"`
	Row   json.RawMessage `json:"row"`
	At    time.Time       `json:"at"`
}

// Topic identifies a subscription scope.
type Topic struct {
	Table string
	IDs   []uuid.UUID
}

// MessagesTopic returns the topic of the conversation between a and b.
// The pair is unordered: MessagesTopic(a, b) == MessagesTopic(b, a).
func MessagesTopic(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if y < x {
		x, y = y, x
	}
	return TableMessages + ":" + x + ":" + y
}

// NotificationsTopic returns the topic of the notification feed of userID.
func NotificationsTopic(userID uuid.UUID) string {
	return TableNotifications + ":" + userID.String()
}

// ParseTopic validates a topic string produced by MessagesTopic or NotificationsTopic.
func ParseTopic(s string) (Topic, error) {
	parts := strings.Split(s, ":")
	var want int
	switch parts[0] {
	case TableMessages:
		want = 3
	case TableNotifications:
		want = 2
	default:
		return Topic{}, apperr.Validation("unknown topic table %q", parts[0])
	}
	if len(parts) != want {
		return Topic{}, apperr.Validation("malformed topic %q", s)
	}
	t := Topic{Table: parts[0]}
	for _, p := range parts[1:] {
		id, err := uuid.Parse(p)
		if err != nil {
			return Topic{}, apperr.Validation("malformed id in topic %q", s)
		}
		t.IDs = append(t.IDs, id)
	}
	return t, nil
}

// Allows reports whether viewer may subscribe to the topic: the viewer must be one side
// of a conversation topic or the recipient of a notifications topic.
func (t Topic) Allows(viewer uuid.UUID) bool {
	for _, id := range t.IDs {
		if id == viewer {
			return true
		}
	}
	return false
}

// String renders the topic back to its canonical form.
func (t Topic) String() string {
	if t.Table == TableMessages && len(t.IDs) == 2 {
		return MessagesTopic(t.IDs[0], t.IDs[1])
	}
	if t.Table == TableNotifications && len(t.IDs) == 1 {
		return NotificationsTopic(t.IDs[0])
	}
	return t.Table
}

// MessageInserted builds the event published after a message row is committed.
func MessageInserted(m models.Message) (Event, error) {
	return newEvent(MessagesTopic(m.SenderID, m.ReceiverID), TableMessages, m)
}

// NotificationInserted builds the event published after a notification row is committed.
func NotificationInserted(n models.Notification) (Event, error) {
	return newEvent(NotificationsTopic(n.UserID), TableNotifications, n)
}

func newEvent(topic, table string, row any) (Event, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s row: %w", table, err)
	}
	return Event{Topic: topic, Table: table, Type: EventInsert, Row: data, At: time.Now()}, nil
}

// Message decodes the row of a messages event.
func (e Event) Message() (models.Message, error) {
	var m models.Message
	if e.Table != TableMessages {
		return m, fmt.Errorf("event table is %q, not %q", e.Table, TableMessages)
	}
	if err := json.Unmarshal(e.Row, &m); err != nil {
		return m, fmt.Errorf("invalid message row: %w", err)
	}
	return m, nil
}

// Notification decodes the row of a notifications event.
func (e Event) Notification() (models.Notification, error) {
	var n models.Notification
	if e.Table != TableNotifications {
		return n, fmt.Errorf("event table is %q, not %q", e.Table, TableNotifications)
	}
	if err := json.Unmarshal(e.Row, &n); err != nil {
		return n, fmt.Errorf("invalid notification row: %w", err)
	}
	return n, nil
}
