package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/memstore"
	"github.com/saberactivo/social/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLog(t *testing.T) (*Log, *gatedStore, uuid.UUID, uuid.UUID) {
	t.Helper()
	me, other := uuid.New(), uuid.New()
	store := newGatedStore(memstore.New(nil, quietLogger()))
	store.Now = func() time.Time { return t0.Add(time.Hour) }
	l := NewLog(store, session.Static(me), quietLogger())
	l.Now = func() time.Time { return t0.Add(time.Hour) }
	return l, store, me, other
}

func TestOpenLoadsNewestPageInOrder(t *testing.T) {
	l, store, me, other := newLog(t)
	seeded := seedConversation(store.Store, me, other, PageSize+10)

	require.NoError(t, l.Open(context.Background(), other))

	entries := l.Entries()
	require.Len(t, entries, PageSize)
	assert.Equal(t, seeded[10].ID, entries[0].ID)
	assert.Equal(t, seeded[len(seeded)-1].ID, entries[len(entries)-1].ID)
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].CreatedAt.Before(entries[i].CreatedAt))
	}
	assert.True(t, l.HasMore())
}

func TestLoadMorePrependsOlderUntilExhausted(t *testing.T) {
	l, store, me, other := newLog(t)
	seeded := seedConversation(store.Store, me, other, PageSize+10)
	ctx := context.Background()
	require.NoError(t, l.Open(ctx, other))

	oldest := l.Entries()[0].CreatedAt
	n, err := l.LoadMore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.False(t, l.HasMore(), "a short page means no more history")

	entries := l.Entries()
	require.Len(t, entries, PageSize+10)
	assert.Equal(t, seeded[0].ID, entries[0].ID)
	for _, e := range entries[:10] {
		assert.True(t, e.CreatedAt.Before(oldest))
	}

	n, err = l.LoadMore(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, l.Entries(), PageSize+10)
}

func TestOpenShortHistoryHasNoMore(t *testing.T) {
	l, store, me, other := newLog(t)
	seedConversation(store.Store, me, other, 3)
	require.NoError(t, l.Open(context.Background(), other))

	assert.Len(t, l.Entries(), 3)
	assert.False(t, l.HasMore())
}

func TestOpenRequiresSessionAndPartner(t *testing.T) {
	store := memstore.New(nil, quietLogger())
	me := uuid.New()

	l := NewLog(store, session.Static(uuid.Nil), quietLogger())
	assert.ErrorIs(t, l.Open(context.Background(), uuid.New()), apperr.ErrNotAuthenticated)

	l = NewLog(store, session.Static(me), quietLogger())
	assert.ErrorIs(t, l.Open(context.Background(), me), apperr.ErrValidation)
	assert.ErrorIs(t, l.Open(context.Background(), uuid.Nil), apperr.ErrValidation)
}

func TestSendAppendsBeforeStoreReturns(t *testing.T) {
	l, store, me, other := newLog(t)
	ctx := context.Background()
	require.NoError(t, l.Open(ctx, other))

	release := store.holdInserts()
	done := make(chan Entry)
	go func() {
		e, err := l.Send(ctx, "  hola  ")
		assert.NoError(t, err)
		done <- e
	}()

	require.Eventually(t, func() bool { return len(l.Entries()) == 1 }, time.Second, time.Millisecond)
	pending := l.Entries()[0]
	assert.Equal(t, DeliveryPending, pending.Delivery)
	assert.Equal(t, "hola", pending.Body)
	assert.Equal(t, me, pending.SenderID)
	assert.NotEqual(t, uuid.Nil, pending.ClientToken)

	release()
	confirmed := <-done
	assert.Equal(t, DeliverySent, confirmed.Delivery)
	assert.Equal(t, pending.ClientToken, confirmed.ClientToken)

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, confirmed.ID, entries[0].ID)
	assert.Equal(t, DeliverySent, entries[0].Delivery)
}

func TestEchoBeforeConfirmationIsNotDuplicated(t *testing.T) {
	l, store, _, other := newLog(t)
	ctx := context.Background()
	require.NoError(t, l.Open(ctx, other))

	release := store.holdInserts()
	done := make(chan Entry)
	go func() {
		e, _ := l.Send(ctx, "hola")
		done <- e
	}()
	require.Eventually(t, func() bool { return len(l.Entries()) == 1 }, time.Second, time.Millisecond)

	// the realtime echo of the stored row beats the insert response
	echo := l.Entries()[0].Message
	echo.ID = uuid.New()
	echo.CreatedAt = t0.Add(2 * time.Hour)
	assert.True(t, l.ApplyInsert(echo))
	require.Len(t, l.Entries(), 1)
	assert.Equal(t, echo.ID, l.Entries()[0].ID)

	release()
	<-done
	assert.Len(t, l.Entries(), 1)
}

func TestApplyInsertDeduplicatesByID(t *testing.T) {
	l, _, me, other := newLog(t)
	ctx := context.Background()
	require.NoError(t, l.Open(ctx, other))

	e, err := l.Send(ctx, "hola")
	require.NoError(t, err)

	assert.False(t, l.ApplyInsert(e.Message))
	assert.False(t, l.ApplyInsert(e.Message))
	assert.Len(t, l.Entries(), 1)

	stranger := e.Message
	stranger.ID = uuid.New()
	stranger.SenderID = uuid.New()
	stranger.ReceiverID = me
	assert.False(t, l.ApplyInsert(stranger), "rows from other pairs are ignored")
}

func TestApplyInsertKeepsChronologicalOrder(t *testing.T) {
	l, store, me, other := newLog(t)
	seedConversation(store.Store, me, other, 3)
	require.NoError(t, l.Open(context.Background(), other))

	late := store.SeedMessage(msgAt(other, me, t0.Add(1500*time.Millisecond)))
	assert.True(t, l.ApplyInsert(late))

	entries := l.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, late.ID, entries[2].ID)
}

func TestSendFailureMarksEntryFailedAndRetrySucceeds(t *testing.T) {
	l, store, _, other := newLog(t)
	ctx := context.Background()
	require.NoError(t, l.Open(ctx, other))

	store.failInserts(errNetwork)
	e, err := l.Send(ctx, "hola")
	require.Error(t, err)
	assert.True(t, apperr.IsTransient(err))
	assert.Equal(t, DeliveryFailed, e.Delivery)

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, DeliveryFailed, entries[0].Delivery)

	store.failInserts(nil)
	retried, err := l.Retry(ctx, e.ClientToken)
	require.NoError(t, err)
	assert.Equal(t, DeliverySent, retried.Delivery)

	entries = l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, DeliverySent, entries[0].Delivery)

	_, err = l.Retry(ctx, e.ClientToken)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "only failed entries can be retried")
}

func TestSendValidation(t *testing.T) {
	l, store, _, other := newLog(t)
	ctx := context.Background()

	_, err := l.Send(ctx, "hola")
	assert.ErrorIs(t, err, apperr.ErrValidation, "no conversation open")

	require.NoError(t, l.Open(ctx, other))
	_, err = l.Send(ctx, "   \n\t")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, l.Entries())
	assert.Zero(t, store.inserts)

	signedOut := NewLog(store, session.Static(uuid.Nil), quietLogger())
	_, err = signedOut.Send(ctx, "hola")
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)
}

func TestSwitchDropsStaleLoad(t *testing.T) {
	l, store, me, first := newLog(t)
	second := uuid.New()
	seedConversation(store.Store, me, first, 5)
	seedConversation(store.Store, me, second, 2)
	ctx := context.Background()

	release, entered := store.holdLists()
	done := make(chan error)
	go func() { done <- l.Open(ctx, first) }()
	<-entered

	store.openLists()
	require.NoError(t, l.Open(ctx, second))
	release()
	require.NoError(t, <-done)

	assert.Equal(t, second, l.OtherID())
	entries := l.Entries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.True(t, e.BetweenPair(me, second))
	}
}

func TestLoadMoreIsNotReentrant(t *testing.T) {
	l, store, me, other := newLog(t)
	seedConversation(store.Store, me, other, PageSize+5)
	ctx := context.Background()
	require.NoError(t, l.Open(ctx, other))

	release, entered := store.holdLists()
	done := make(chan int)
	go func() {
		n, err := l.LoadMore(ctx)
		assert.NoError(t, err)
		done <- n
	}()
	<-entered

	n, err := l.LoadMore(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "second call while one is in flight is a no-op")

	store.openLists()
	release()
	assert.Equal(t, 5, <-done)
	assert.Len(t, l.Entries(), PageSize+5)
}

func TestCatchUpMergesMissedRows(t *testing.T) {
	l, store, me, other := newLog(t)
	seedConversation(store.Store, me, other, 2)
	ctx := context.Background()
	require.NoError(t, l.Open(ctx, other))

	store.SeedMessage(msgAt(other, me, t0.Add(time.Minute)))
	n, err := l.CatchUp(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, l.Entries(), 3)

	n, err = l.CatchUp(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCloseForgetsConversation(t *testing.T) {
	l, store, me, other := newLog(t)
	seedConversation(store.Store, me, other, 2)
	require.NoError(t, l.Open(context.Background(), other))

	l.Close()
	assert.Empty(t, l.Entries())
	assert.Equal(t, uuid.Nil, l.OtherID())
}
