// internal/models/friend_request.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the stored status of a friend request row.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Active reports whether the status still binds the pair (pending or accepted).
func (s RequestStatus) Active() bool {
	return s == StatusPending || s == StatusAccepted
}

// FriendRequest is a directed relationship row in the friend_requests table.
// Rows are never deleted; unfriending moves an accepted row to rejected.
type FriendRequest struct {
	ID          uuid.UUID     `json:"id"`
	RequesterID uuid.UUID     `json:"requester_id"`
	ReceiverID  uuid.UUID     `json:"receiver_id"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Touches reports whether the row connects a and b in either direction.
func (r FriendRequest) Touches(a, b uuid.UUID) bool {
	return (r.RequesterID == a && r.ReceiverID == b) || (r.RequesterID == b && r.ReceiverID == a)
}

// Other returns the id on the opposite side of the row from userID.
func (r FriendRequest) Other(userID uuid.UUID) uuid.UUID {
	if r.RequesterID == userID {
		return r.ReceiverID
	}
	return r.RequesterID
}
