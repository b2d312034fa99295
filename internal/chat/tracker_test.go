package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/memstore"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerUnreadAgainstMarker(t *testing.T) {
	store := memstore.New(nil, quietLogger())
	me, other := uuid.New(), uuid.New()
	tr := NewTracker(store, store, session.Static(me), quietLogger())
	marker := t0.Add(time.Hour)

	tr.Observe(msgAt(other, me, marker.Add(-time.Second)))
	assert.True(t, tr.IsUnread(other), "no marker means everything is unread")

	require.NoError(t, store.UpsertReadMarker(context.Background(), models.ReadMarker{ViewerID: me, OtherID: other, LastSeenAt: marker}))
	require.NoError(t, tr.Load(context.Background()))
	assert.False(t, tr.IsUnread(other), "message before the marker is read")

	tr.Observe(msgAt(other, me, marker.Add(time.Second)))
	assert.True(t, tr.IsUnread(other), "message after the marker is unread")
}

func TestTrackerIgnoresOwnMessages(t *testing.T) {
	store := memstore.New(nil, quietLogger())
	me, other := uuid.New(), uuid.New()
	tr := NewTracker(store, store, session.Static(me), quietLogger())

	tr.Observe(msgAt(me, other, t0))
	assert.False(t, tr.IsUnread(other))
	assert.Empty(t, tr.Unread())
}

func TestTrackerOpeningConversationClearsUnread(t *testing.T) {
	store := memstore.New(nil, quietLogger())
	u1, u2 := uuid.New(), uuid.New()
	ctx := context.Background()

	t1, t2, t3 := t0, t0.Add(time.Minute), t0.Add(2*time.Minute)
	for i, at := range []time.Time{t1, t2, t3} {
		from, to := u2, u1
		if i == 1 {
			from, to = u1, u2
		}
		store.SeedMessage(msgAt(from, to, at))
	}
	require.NoError(t, store.UpsertReadMarker(ctx, models.ReadMarker{ViewerID: u1, OtherID: u2, LastSeenAt: t2}))

	tr := NewTracker(store, store, session.Static(u1), quietLogger())
	tr.Now = func() time.Time { return t3.Add(time.Minute) }
	require.NoError(t, tr.Load(ctx))
	require.NoError(t, tr.Refresh(ctx, []uuid.UUID{u2}))
	assert.True(t, tr.IsUnread(u2))
	assert.Equal(t, []uuid.UUID{u2}, tr.Unread())

	require.NoError(t, tr.Open(ctx, u2))
	assert.False(t, tr.IsUnread(u2))

	tr.Leave(ctx)
	assert.False(t, tr.IsUnread(u2), "marker moved past the newest message")

	ms, err := store.ListReadMarkers(ctx, u1)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.True(t, ms[0].LastSeenAt.After(t3))
}

func TestTrackerOpenConversationIsNeverUnread(t *testing.T) {
	store := memstore.New(nil, quietLogger())
	me, other := uuid.New(), uuid.New()
	tr := NewTracker(store, store, session.Static(me), quietLogger())
	tr.Now = func() time.Time { return t0 }

	require.NoError(t, tr.Open(context.Background(), other))
	tr.Observe(msgAt(other, me, t0.Add(time.Second)))
	assert.False(t, tr.IsUnread(other))

	tr.Leave(context.Background())
	assert.False(t, tr.IsUnread(other), "a message shown while open stays read")

	tr.Observe(msgAt(other, me, t0.Add(time.Minute)))
	assert.True(t, tr.IsUnread(other), "a message after leaving is unread")
}

func TestTrackerLeaveStoresSeenMessages(t *testing.T) {
	store := memstore.New(nil, quietLogger())
	me, other := uuid.New(), uuid.New()
	ctx := context.Background()
	tr := NewTracker(store, store, session.Static(me), quietLogger())
	tr.Now = func() time.Time { return t0 }

	require.NoError(t, tr.Open(ctx, other))
	seen := t0.Add(30 * time.Second)
	tr.Observe(msgAt(other, me, seen))
	tr.Leave(ctx)

	ms, err := store.ListReadMarkers(ctx, me)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.True(t, ms[0].LastSeenAt.Equal(seen))

	fresh := NewTracker(store, store, session.Static(me), quietLogger())
	require.NoError(t, fresh.Load(ctx))
	fresh.Observe(msgAt(other, me, seen))
	assert.False(t, fresh.IsUnread(other), "stored marker covers the message")
}

type failingReads struct {
	*memstore.Store
}

func (failingReads) UpsertReadMarker(context.Context, models.ReadMarker) error {
	return errNetwork
}

func TestTrackerLeaveMovesMarkerWhenStoreFails(t *testing.T) {
	store := memstore.New(nil, quietLogger())
	me, other := uuid.New(), uuid.New()
	tr := NewTracker(failingReads{store}, store, session.Static(me), quietLogger())
	tr.Now = func() time.Time { return t0 }

	err := tr.Open(context.Background(), other)
	assert.True(t, apperr.IsTransient(err))
	tr.Observe(msgAt(other, me, t0.Add(time.Second)))
	tr.Leave(context.Background())
	assert.False(t, tr.IsUnread(other))
}
