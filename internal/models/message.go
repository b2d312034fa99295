// internal/models/message.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is an immutable direct message between two users.
//
// ClientToken is generated by the sending client and persisted with the row so the
// realtime echo of an insert can be matched against the optimistic local copy.
type Message struct {
	ID          uuid.UUID `json:"id"`
	SenderID    uuid.UUID `json:"sender_id"`
	ReceiverID  uuid.UUID `json:"receiver_id"`
	Body        string    `json:"body"`
	ClientToken uuid.UUID `json:"client_token,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// BetweenPair reports whether the message was exchanged between a and b.
func (m Message) BetweenPair(a, b uuid.UUID) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}
