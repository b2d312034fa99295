package relationship

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(requester, receiver uuid.UUID, status models.RequestStatus, created time.Time) models.FriendRequest {
	return models.FriendRequest{
		ID:          uuid.New(),
		RequesterID: requester,
		ReceiverID:  receiver,
		Status:      status,
		CreatedAt:   created,
	}
}

func TestResolveSelfIgnoresRows(t *testing.T) {
	u := uuid.New()
	other := uuid.New()
	rows := []models.FriendRequest{
		row(u, other, models.StatusAccepted, time.Now()),
		row(u, u, models.StatusPending, time.Now()),
	}
	assert.Equal(t, StateSelf, Resolve(u, u, rows))
	assert.Equal(t, StateSelf, Resolve(u, u, nil))
}

func TestResolveDirections(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	now := time.Now()

	pending := []models.FriendRequest{row(a, b, models.StatusPending, now)}
	assert.Equal(t, StateOutgoing, Resolve(a, b, pending))
	assert.Equal(t, StateIncoming, Resolve(b, a, pending))

	swapped := []models.FriendRequest{row(b, a, models.StatusPending, now)}
	assert.Equal(t, StateIncoming, Resolve(a, b, swapped))

	accepted := []models.FriendRequest{row(a, b, models.StatusAccepted, now)}
	assert.Equal(t, StateAccepted, Resolve(a, b, accepted))
	assert.Equal(t, StateAccepted, Resolve(b, a, accepted))

	rejected := []models.FriendRequest{row(b, a, models.StatusRejected, now)}
	assert.Equal(t, StateRejected, Resolve(a, b, rejected))
	assert.Equal(t, StateRejected, Resolve(b, a, rejected))
}

func TestResolveNoneWhenNoRowTouchesPair(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	rows := []models.FriendRequest{
		row(a, c, models.StatusAccepted, time.Now()),
		row(c, b, models.StatusPending, time.Now()),
	}
	assert.Equal(t, StateNone, Resolve(a, b, rows))
	assert.Equal(t, StateNone, Resolve(a, b, nil))
}

func TestResolveIsPure(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	now := time.Now()
	rows := []models.FriendRequest{
		row(a, b, models.StatusRejected, now.Add(-time.Hour)),
		row(b, a, models.StatusPending, now),
	}
	snapshot := append([]models.FriendRequest(nil), rows...)

	first := Resolve(a, b, rows)
	second := Resolve(a, b, rows)
	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, rows, "resolver must not reorder or mutate input")
}

func TestResolveTieBreak(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	now := time.Now()

	t.Run("most recent wins", func(t *testing.T) {
		rows := []models.FriendRequest{
			row(a, b, models.StatusRejected, now.Add(-2*time.Hour)),
			row(b, a, models.StatusPending, now),
			row(a, b, models.StatusPending, now.Add(-time.Hour)),
		}
		assert.Equal(t, StateIncoming, Resolve(a, b, rows))
		// order of input must not matter
		reversed := []models.FriendRequest{rows[2], rows[1], rows[0]}
		assert.Equal(t, StateIncoming, Resolve(a, b, reversed))
	})

	t.Run("accepted beats newer pending", func(t *testing.T) {
		rows := []models.FriendRequest{
			row(a, b, models.StatusAccepted, now.Add(-time.Hour)),
			row(b, a, models.StatusPending, now),
		}
		assert.Equal(t, StateAccepted, Resolve(a, b, rows))
	})

	t.Run("re-proposal after rejection", func(t *testing.T) {
		rows := []models.FriendRequest{
			row(a, b, models.StatusRejected, now.Add(-time.Hour)),
			row(a, b, models.StatusPending, now),
		}
		assert.Equal(t, StateOutgoing, Resolve(a, b, rows))
		assert.Equal(t, StateIncoming, Resolve(b, a, rows))
	})

	t.Run("equal timestamps are deterministic", func(t *testing.T) {
		r1 := row(a, b, models.StatusPending, now)
		r2 := row(b, a, models.StatusPending, now)
		p1, ok := Pick(a, b, []models.FriendRequest{r1, r2})
		require.True(t, ok)
		p2, ok := Pick(a, b, []models.FriendRequest{r2, r1})
		require.True(t, ok)
		assert.Equal(t, p1.ID, p2.ID)
	})
}

func TestFindAccepted(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	now := time.Now()
	rows := []models.FriendRequest{
		row(a, b, models.StatusPending, now.Add(-time.Minute)),
		row(a, b, models.StatusRejected, now),
	}

	_, ok := FindAccepted(a, b, rows)
	assert.False(t, ok)

	accepted := row(a, b, models.StatusAccepted, now.Add(-time.Hour))
	got, ok := FindAccepted(b, a, append(rows, accepted))
	require.True(t, ok, "lookup is unordered")
	assert.Equal(t, accepted.ID, got.ID)
}
