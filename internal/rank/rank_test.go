package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForXP(t *testing.T) {
	cases := []struct {
		xp   int
		want string
	}{
		{-10, "hierro"},
		{0, "hierro"},
		{99, "hierro"},
		{100, "bronce"},
		{599, "plata"},
		{600, "oro"},
		{2500, "diamante"},
		{4999, "diamante"},
		{5000, "maestro"},
		{90000, "maestro"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ForXP(c.xp).ID, "xp=%d", c.xp)
	}
}

func TestNext(t *testing.T) {
	next, ok := Next(150)
	require.True(t, ok)
	assert.Equal(t, "plata", next.ID)

	_, ok = Next(5000)
	assert.False(t, ok)
}

func TestProgressFor(t *testing.T) {
	p := ProgressFor(200)
	assert.Equal(t, "bronce", p.Current.ID)
	require.NotNil(t, p.Next)
	assert.Equal(t, "plata", p.Next.ID)
	assert.Equal(t, 50, p.Percent)
	assert.Equal(t, 100, p.Remaining)

	p = ProgressFor(0)
	assert.Equal(t, 0, p.Percent)
	assert.Equal(t, 100, p.Remaining)

	top := ProgressFor(7000)
	assert.Equal(t, "maestro", top.Current.ID)
	assert.Nil(t, top.Next)
	assert.Equal(t, 100, top.Percent)
	assert.Zero(t, top.Remaining)
}
