// internal/models/read_marker.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ReadMarker records when ViewerID last opened the conversation with OtherID.
// (viewer_id, other_id) is the primary key; writes are upserts, last write wins.
type ReadMarker struct {
	ViewerID   uuid.UUID `json:"viewer_id"`
	OtherID    uuid.UUID `json:"other_id"`
	LastSeenAt time.Time `json:"last_seen_at"`
}
