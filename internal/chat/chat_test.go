package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/memstore"
	"github.com/saberactivo/social/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

var t0 = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

// gatedStore wraps a memstore so tests can hold list or insert calls open, or make
// inserts fail.
type gatedStore struct {
	*memstore.Store

	mu          sync.Mutex
	listGate    chan struct{}
	listEntered chan struct{}
	insertGate  chan struct{}
	insertErr   error
	inserts     int
}

func newGatedStore(s *memstore.Store) *gatedStore {
	return &gatedStore{Store: s}
}

func (g *gatedStore) ListMessages(ctx context.Context, a, b uuid.UUID, before *time.Time, limit int) ([]models.Message, error) {
	g.mu.Lock()
	gate, entered := g.listGate, g.listEntered
	g.mu.Unlock()
	if gate != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		<-gate
	}
	return g.Store.ListMessages(ctx, a, b, before, limit)
}

func (g *gatedStore) InsertMessage(ctx context.Context, m *models.Message) (*models.Message, error) {
	g.mu.Lock()
	gate, err := g.insertGate, g.insertErr
	g.inserts++
	g.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return g.Store.InsertMessage(ctx, m)
}

func (g *gatedStore) holdLists() (release func(), entered chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	gate := make(chan struct{})
	g.listGate = gate
	g.listEntered = make(chan struct{}, 4)
	return func() { close(gate) }, g.listEntered
}

func (g *gatedStore) openLists() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listGate, g.listEntered = nil, nil
}

func (g *gatedStore) holdInserts() (release func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	gate := make(chan struct{})
	g.insertGate = gate
	return func() {
		g.mu.Lock()
		g.insertGate = nil
		g.mu.Unlock()
		close(gate)
	}
}

func (g *gatedStore) failInserts(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.insertErr = err
}

// seedConversation stores n messages alternating between a and b, one second apart
// starting at t0.
func seedConversation(s *memstore.Store, a, b uuid.UUID, n int) []models.Message {
	out := make([]models.Message, 0, n)
	for i := 0; i < n; i++ {
		from, to := a, b
		if i%2 == 1 {
			from, to = b, a
		}
		out = append(out, s.SeedMessage(models.Message{
			SenderID:   from,
			ReceiverID: to,
			Body:       "msg",
			CreatedAt:  t0.Add(time.Duration(i) * time.Second),
		}))
	}
	return out
}

var errNetwork = errors.New("network unreachable")

func msgAt(from, to uuid.UUID, at time.Time) models.Message {
	return models.Message{SenderID: from, ReceiverID: to, Body: "msg", CreatedAt: at}
}
