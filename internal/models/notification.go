// internal/models/notification.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"` // recipient
	Title     string     `json:"title"`
	Body      *string    `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at"` // nil while unread
}

// Unread reports whether the notification has not been marked read yet.
func (n Notification) Unread() bool {
	return n.ReadAt == nil
}
