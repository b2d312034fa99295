package progress

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/memstore"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/rank"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := memstore.New(nil, logger)
	svc := NewService(store, logger)
	require.NoError(t, svc.Seed(context.Background(), Catalog()))
	return svc, store
}

func addUser(t *testing.T, store *memstore.Store, username string, xp int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, store.CreateProfile(context.Background(), &models.Profile{UserID: id, Username: username, TotalXP: xp}))
	return id
}

func TestSeedIsIdempotent(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	first, err := svc.Lessons(ctx)
	require.NoError(t, err)
	require.Len(t, first, len(Catalog()))

	require.NoError(t, svc.Seed(ctx, Catalog()))
	second, err := svc.Lessons(ctx)
	require.NoError(t, err)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		if i > 0 {
			assert.Less(t, second[i-1].OrderIndex, second[i].OrderIndex)
		}
	}
}

func TestCompleteAwardsXPAndRaisesRank(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	user := addUser(t, store, "ana", 0)
	lessons, err := svc.Lessons(ctx)
	require.NoError(t, err)

	total := 0
	for _, l := range lessons[:2] {
		c, err := svc.Complete(ctx, user, l.ID)
		require.NoError(t, err)
		assert.True(t, c.Awarded)
		total += l.XP
		assert.Equal(t, total, c.TotalXP)
		require.NotNil(t, c.Progress.LessonTitle)
		assert.Equal(t, l.Title, *c.Progress.LessonTitle)
	}
	assert.Equal(t, "bronce", rank.ForXP(total).ID)

	again, err := svc.Complete(ctx, user, lessons[0].ID)
	require.NoError(t, err)
	assert.False(t, again.Awarded)
	assert.Equal(t, total, again.TotalXP, "repeating a lesson awards nothing")

	history, err := svc.History(ctx, user)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestCompleteErrors(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	user := addUser(t, store, "ana", 0)

	_, err := svc.Complete(ctx, uuid.Nil, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)
	_, err = svc.Complete(ctx, user, uuid.Nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.Complete(ctx, user, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	history, err := svc.History(ctx, uuid.Nil)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSummarize(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	lessons := []models.Lesson{
		{ID: a, XP: 50, Level: models.LevelBasic},
		{ID: b, XP: 50, Level: models.LevelBasic},
		{ID: c, XP: 120, Level: models.LevelExpert},
		{ID: uuid.New(), XP: 999},
	}
	got := Summarize(lessons, map[uuid.UUID]bool{a: true, c: true})
	require.Len(t, got, 3)

	assert.Equal(t, LevelSummary{Level: models.LevelBasic, Lessons: 2, Completed: 1, XPTotal: 100, Percent: 50}, got[0])
	assert.Equal(t, LevelSummary{Level: models.LevelIntermediate}, got[1])
	assert.Equal(t, LevelSummary{Level: models.LevelExpert, Lessons: 1, Completed: 1, XPTotal: 120, Percent: 100}, got[2])
}

func TestRanking(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	addUser(t, store, "ana", 900)
	beto := addUser(t, store, "beto", 300)
	addUser(t, store, "caro", 300)
	addUser(t, store, "dani", 0)

	anon, err := svc.Ranking(ctx, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, 4, anon.TotalUsers)
	assert.Nil(t, anon.Me)
	assert.Zero(t, anon.Position)
	require.Len(t, anon.Top, 4)
	assert.Equal(t, "ana", anon.Top[0].Username)

	mine, err := svc.Ranking(ctx, beto)
	require.NoError(t, err)
	require.NotNil(t, mine.Me)
	assert.Equal(t, 2, mine.Position, "ties share a position")
	require.NotNil(t, mine.Percentile)
	assert.Equal(t, 50, *mine.Percentile)
}

func TestPercentile(t *testing.T) {
	assert.Equal(t, 0, Percentile(1, 1))
	assert.Equal(t, 99, Percentile(1, 100))
	assert.Equal(t, 67, Percentile(1, 3))
	assert.Equal(t, 0, Percentile(0, 3))
	assert.Equal(t, 0, Percentile(4, 3))
}

type failingStore struct {
	*memstore.Store
}

func (failingStore) TopProfiles(context.Context, int) ([]models.Profile, error) {
	return nil, errors.New("connection reset")
}

func TestRankingStoreFailureIsTransient(t *testing.T) {
	logger, _ := test.NewNullLogger()
	svc := NewService(failingStore{memstore.New(nil, logger)}, logger)
	_, err := svc.Ranking(context.Background(), uuid.Nil)
	assert.True(t, apperr.IsTransient(err))
}
