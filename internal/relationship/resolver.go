// internal/relationship/resolver.go

// Package relationship derives the viewer-relative relationship state from raw
// friend request rows. The state is never stored; it is recomputed on every read.
package relationship

import (
	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/models"
)

// State is the relationship between a viewer and a subject as seen by the viewer.
type State string

const (
	StateSelf     State = "self"
	StateNone     State = "none"
	StateOutgoing State = "outgoing" // viewer sent a pending request
	StateIncoming State = "incoming" // subject sent a pending request
	StateAccepted State = "accepted"
	StateRejected State = "rejected"
)

// Active reports whether the state blocks a new request for the pair.
func (s State) Active() bool {
	return s == StateOutgoing || s == StateIncoming || s == StateAccepted
}

// Resolve computes the state of subject relative to viewer from rows. Rows that do not
// touch both ids are ignored, so callers may pass every row touching the viewer.
// Resolve is pure: it does not modify rows and returns the same answer for the same input.
func Resolve(viewer, subject uuid.UUID, rows []models.FriendRequest) State {
	if viewer == subject {
		return StateSelf
	}
	row, ok := Pick(viewer, subject, rows)
	if !ok {
		return StateNone
	}
	switch row.Status {
	case models.StatusAccepted:
		return StateAccepted
	case models.StatusPending:
		if row.RequesterID == viewer {
			return StateOutgoing
		}
		return StateIncoming
	case models.StatusRejected:
		return StateRejected
	}
	return StateNone
}

// Pick selects the row that decides the state of the pair. The store does not guarantee a
// single row per pair, so the choice is deterministic:
//   - an accepted row wins over pending and rejected ones;
//   - otherwise the most recently created row wins;
//   - equal timestamps fall back to the row id.
func Pick(a, b uuid.UUID, rows []models.FriendRequest) (models.FriendRequest, bool) {
	var (
		best  models.FriendRequest
		found bool
	)
	for _, r := range rows {
		if !r.Touches(a, b) || !r.Status.Valid() {
			continue
		}
		if !found || outranks(r, best) {
			best = r
			found = true
		}
	}
	return best, found
}

func outranks(r, than models.FriendRequest) bool {
	rAcc := r.Status == models.StatusAccepted
	tAcc := than.Status == models.StatusAccepted
	if rAcc != tAcc {
		return rAcc
	}
	if !r.CreatedAt.Equal(than.CreatedAt) {
		return r.CreatedAt.After(than.CreatedAt)
	}
	return r.ID.String() > than.ID.String()
}

// FindAccepted returns the accepted row for the unordered pair, if any.
func FindAccepted(a, b uuid.UUID, rows []models.FriendRequest) (models.FriendRequest, bool) {
	var (
		best  models.FriendRequest
		found bool
	)
	for _, r := range rows {
		if r.Status != models.StatusAccepted || !r.Touches(a, b) {
			continue
		}
		if !found || outranks(r, best) {
			best = r
			found = true
		}
	}
	return best, found
}
