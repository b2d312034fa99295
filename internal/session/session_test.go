package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestProviders(t *testing.T) {
	_, ok := Static(uuid.Nil).UserID()
	assert.False(t, ok)

	id := uuid.New()
	got, ok := Static(id).UserID()
	assert.True(t, ok)
	assert.Equal(t, id, got)

	var st State
	st.SetLoading(true)
	assert.True(t, st.Loading())
	st.Set(id)
	assert.False(t, st.Loading())
	got, ok = st.UserID()
	assert.True(t, ok)
	assert.Equal(t, id, got)
	st.Clear()
	_, ok = st.UserID()
	assert.False(t, ok)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	id := uuid.New()
	got, ok := FromContext(WithUser(context.Background(), id))
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = FromContext(WithUser(context.Background(), uuid.Nil))
	assert.False(t, ok)
}
