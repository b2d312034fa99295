package social

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/memstore"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/notify"
	"github.com/saberactivo/social/internal/relationship"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store  *memstore.Store
	svc    *Service
	u1, u2 uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := memstore.New(nil, logger)

	// strictly increasing clock so rows created in sequence never tie
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	store.Now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	f := &fixture{store: store, u1: uuid.New(), u2: uuid.New()}
	ctx := context.Background()
	require.NoError(t, store.CreateProfile(ctx, &models.Profile{UserID: f.u1, Username: "ana", TotalXP: 120}))
	require.NoError(t, store.CreateProfile(ctx, &models.Profile{UserID: f.u2, Username: "beto", TotalXP: 40}))

	f.svc = NewService(store, store, notify.NewStoreEmitter(store, logger), logger)
	return f
}

func (f *fixture) state(t *testing.T, viewer, subject uuid.UUID) relationship.State {
	t.Helper()
	s, err := f.svc.State(context.Background(), viewer, subject)
	require.NoError(t, err)
	return s
}

func TestSendRequestCreatesPendingRowAndNotifiesReceiver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.SendRequest(ctx, f.u1, f.u2)
	require.NoError(t, err)

	rows := f.store.FriendRequests()
	require.Len(t, rows, 1)
	assert.Equal(t, req.ID, rows[0].ID)
	assert.Equal(t, f.u1, rows[0].RequesterID)
	assert.Equal(t, f.u2, rows[0].ReceiverID)
	assert.Equal(t, models.StatusPending, rows[0].Status)

	assert.Equal(t, relationship.StateOutgoing, f.state(t, f.u1, f.u2))
	assert.Equal(t, relationship.StateIncoming, f.state(t, f.u2, f.u1))

	ns := f.store.Notifications()
	require.Len(t, ns, 1)
	assert.Equal(t, f.u2, ns[0].UserID)
	assert.Equal(t, notify.TitleRequestSent, ns[0].Title)
	require.NotNil(t, ns[0].Body)
	assert.Contains(t, *ns[0].Body, "@ana")
}

func TestAcceptRequestNotifiesRequester(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.SendRequest(ctx, f.u1, f.u2)
	require.NoError(t, err)

	accepted, err := f.svc.AcceptRequest(ctx, f.u2, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, accepted.Status)

	ns := f.store.Notifications()
	require.Len(t, ns, 2)
	assert.Equal(t, f.u1, ns[1].UserID, "second notification goes to the requester")
	assert.Equal(t, notify.TitleRequestAccepted, ns[1].Title)

	assert.Equal(t, relationship.StateAccepted, f.state(t, f.u1, f.u2))
	assert.Equal(t, relationship.StateAccepted, f.state(t, f.u2, f.u1))
}

func TestAcceptRequestGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.SendRequest(ctx, f.u1, f.u2)
	require.NoError(t, err)

	_, err = f.svc.AcceptRequest(ctx, f.u1, req.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden, "requester cannot accept their own request")

	_, err = f.svc.AcceptRequest(ctx, f.u2, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.AcceptRequest(ctx, uuid.Nil, req.ID)
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)

	_, err = f.svc.AcceptRequest(ctx, f.u2, req.ID)
	require.NoError(t, err)
	_, err = f.svc.AcceptRequest(ctx, f.u2, req.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestSendRequestPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendRequest(ctx, uuid.Nil, f.u2)
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)

	_, err = f.svc.SendRequest(ctx, f.u1, f.u1)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.SendRequest(ctx, f.u1, f.u2)
	require.NoError(t, err)

	_, err = f.svc.SendRequest(ctx, f.u1, f.u2)
	assert.ErrorIs(t, err, apperr.ErrAlreadyRequested)
	_, err = f.svc.SendRequest(ctx, f.u2, f.u1)
	assert.ErrorIs(t, err, apperr.ErrAlreadyRequested, "an incoming request blocks a counter request")

	assert.Len(t, f.store.FriendRequests(), 1)
	assert.Len(t, f.store.Notifications(), 1)
}

func TestRemoveFriendThenReproposal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.SendRequest(ctx, f.u1, f.u2)
	require.NoError(t, err)
	_, err = f.svc.AcceptRequest(ctx, f.u2, req.ID)
	require.NoError(t, err)

	removed, err := f.svc.RemoveFriend(ctx, f.u1, f.u2)
	require.NoError(t, err)
	assert.Equal(t, req.ID, removed.ID)
	assert.Equal(t, relationship.StateRejected, f.state(t, f.u1, f.u2))
	assert.Equal(t, relationship.StateRejected, f.state(t, f.u2, f.u1))

	_, err = f.svc.RemoveFriend(ctx, f.u1, f.u2)
	assert.ErrorIs(t, err, apperr.ErrRelationNotFound)

	// re-proposed in the other direction
	_, err = f.svc.SendRequest(ctx, f.u2, f.u1)
	require.NoError(t, err)
	assert.Equal(t, relationship.StateOutgoing, f.state(t, f.u2, f.u1))
	assert.Equal(t, relationship.StateIncoming, f.state(t, f.u1, f.u2))
	assert.Len(t, f.store.FriendRequests(), 2)
}

func TestRejectRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.SendRequest(ctx, f.u1, f.u2)
	require.NoError(t, err)

	_, err = f.svc.RejectRequest(ctx, f.u1, req.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	rejected, err := f.svc.RejectRequest(ctx, f.u2, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)

	_, err = f.svc.RejectRequest(ctx, f.u2, req.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	assert.Len(t, f.store.Notifications(), 1, "rejecting does not notify")
}

type brokenWriter struct{}

func (brokenWriter) InsertNotification(context.Context, *models.Notification) error {
	return errors.New("connection reset")
}

func TestNotificationFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	logger, hook := test.NewNullLogger()
	svc := NewService(f.store, f.store, notify.NewStoreEmitter(brokenWriter{}, logger), logger)

	req, err := svc.SendRequest(context.Background(), f.u1, f.u2)
	require.NoError(t, err)
	assert.NotNil(t, req)
	assert.Equal(t, relationship.StateOutgoing, f.state(t, f.u1, f.u2))

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "failed to emit notification" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestFriendsOrderedByXP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u3 := uuid.New()
	require.NoError(t, f.store.CreateProfile(ctx, &models.Profile{UserID: u3, Username: "caro", TotalXP: 900}))

	for _, other := range []uuid.UUID{f.u2, u3} {
		req, err := f.svc.SendRequest(ctx, f.u1, other)
		require.NoError(t, err)
		_, err = f.svc.AcceptRequest(ctx, other, req.ID)
		require.NoError(t, err)
	}

	friends, err := f.svc.Friends(ctx, f.u1, 0)
	require.NoError(t, err)
	require.Len(t, friends, 2)
	assert.Equal(t, "caro", friends[0].Username)
	assert.Equal(t, "beto", friends[1].Username)

	top, err := f.svc.Friends(ctx, f.u1, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	empty, err := f.svc.Friends(ctx, uuid.Nil, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPendingIncomingCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.svc.PendingIncomingCount(ctx, f.u2)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.svc.SendRequest(ctx, f.u1, f.u2)
	require.NoError(t, err)

	n, err = f.svc.PendingIncomingCount(ctx, f.u2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.svc.PendingIncomingCount(ctx, f.u1)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSendRequestFallsBackToShortID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stranger := uuid.New()

	_, err := f.svc.SendRequest(ctx, stranger, f.u2)
	require.NoError(t, err)

	ns := f.store.Notifications()
	require.Len(t, ns, 1)
	assert.Contains(t, *ns[0].Body, "@"+stranger.String()[:8])
}
