package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, sub Subscription) (Event, bool) {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		return ev, ok
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting on %s", sub.Topic())
		return Event{}, false
	}
}

func TestTopics(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	assert.Equal(t, MessagesTopic(a, b), MessagesTopic(b, a))

	topic, err := ParseTopic(MessagesTopic(a, b))
	require.NoError(t, err)
	assert.Equal(t, TableMessages, topic.Table)
	assert.True(t, topic.Allows(a))
	assert.True(t, topic.Allows(b))
	assert.False(t, topic.Allows(c))
	assert.Equal(t, MessagesTopic(a, b), topic.String())

	nt, err := ParseTopic(NotificationsTopic(c))
	require.NoError(t, err)
	assert.True(t, nt.Allows(c))
	assert.False(t, nt.Allows(a))

	for _, bad := range []string{"", "lessons:" + a.String(), "messages:" + a.String(), "notifications:nope"} {
		_, err := ParseTopic(bad)
		assert.ErrorIs(t, err, apperr.ErrValidation, bad)
	}
}

func TestEventRoundTrip(t *testing.T) {
	m := models.Message{ID: uuid.New(), SenderID: uuid.New(), ReceiverID: uuid.New(), Body: "hola", CreatedAt: time.Now().UTC()}
	ev, err := MessageInserted(m)
	require.NoError(t, err)
	assert.Equal(t, MessagesTopic(m.ReceiverID, m.SenderID), ev.Topic)

	got, err := ev.Message()
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, "hola", got.Body)

	_, err = ev.Notification()
	assert.Error(t, err)
}

func TestMemoryBusDelivery(t *testing.T) {
	bus := NewMemoryBus(nil)
	a, b := uuid.New(), uuid.New()
	topic := MessagesTopic(a, b)

	sub, err := bus.Subscribe(context.Background(), topic)
	require.NoError(t, err)
	other, err := bus.Subscribe(context.Background(), NotificationsTopic(a))
	require.NoError(t, err)

	ev, err := MessageInserted(models.Message{ID: uuid.New(), SenderID: a, ReceiverID: b, Body: "x"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), ev))

	got, ok := recv(t, sub)
	require.True(t, ok)
	assert.Equal(t, ev.Topic, got.Topic)

	select {
	case <-other.Events():
		t.Fatal("event leaked to another topic")
	default:
	}

	require.NoError(t, sub.Close())
	_, ok = recv(t, sub)
	assert.False(t, ok, "events channel closes after Close")
	assert.NoError(t, sub.Err())
	assert.Equal(t, 0, bus.Subscribers(topic))

	// publishing with no subscribers is fine
	assert.NoError(t, bus.Publish(context.Background(), ev))
}

func TestMemoryBusContextAndFailure(t *testing.T) {
	bus := NewMemoryBus(nil)
	topic := NotificationsTopic(uuid.New())

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := bus.Subscribe(ctx, topic)
	require.NoError(t, err)
	cancel()
	_, ok := recv(t, sub)
	assert.False(t, ok)

	sub2, err := bus.Subscribe(context.Background(), topic)
	require.NoError(t, err)
	boom := errors.New("connection lost")
	bus.Fail(topic, boom)
	_, ok = recv(t, sub2)
	assert.False(t, ok)
	assert.ErrorIs(t, sub2.Err(), boom)

	require.NoError(t, bus.Close())
	_, err = bus.Subscribe(context.Background(), topic)
	assert.ErrorIs(t, err, ErrBusClosed)
}
