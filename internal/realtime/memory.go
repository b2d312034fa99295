// internal/realtime/memory.go
package realtime

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// subscriberBuffer is how many undelivered events a subscriber may lag behind
// before further events to it are dropped.
const subscriberBuffer = 64

// MemoryBus is an in-process Bus for single-node deployments and tests.
type MemoryBus struct {
	mu     sync.Mutex
	topics map[string]map[*memorySub]struct{}
	closed bool
	logger *logrus.Logger
}

// NewMemoryBus returns an empty in-process bus.
func NewMemoryBus(logger *logrus.Logger) *MemoryBus {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MemoryBus{
		topics: make(map[string]map[*memorySub]struct{}),
		logger: logger,
	}
}

// Publish fans ev out to the subscribers of ev.Topic without blocking; a subscriber whose
// buffer is full misses the event.
func (b *MemoryBus) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.topics[ev.Topic] {
		select {
		case sub.events <- ev:
		default:
			b.logger.WithField("topic", ev.Topic).Warn("realtime subscriber is full, dropped event")
		}
	}
	return nil
}

// Subscribe registers a new subscription on topic. It ends when ctx is done or Close is called.
func (b *MemoryBus) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	sub := &memorySub{
		bus:    b,
		topic:  topic,
		events: make(chan Event, subscriberBuffer),
		done:   make(chan struct{}),
	}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*memorySub]struct{})
	}
	b.topics[topic][sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// Subscribers returns how many live subscriptions topic has.
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}

// Fail ends every subscription on topic with err, as a dropped transport would.
func (b *MemoryBus) Fail(topic string, err error) {
	b.mu.Lock()
	subs := make([]*memorySub, 0, len(b.topics[topic]))
	for sub := range b.topics[topic] {
		subs = append(subs, sub)
	}
	b.mu.Unlock()
	for _, sub := range subs {
		sub.end(err)
	}
}

// Close ends every subscription and rejects new ones.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	b.closed = true
	var subs []*memorySub
	for _, set := range b.topics {
		for sub := range set {
			subs = append(subs, sub)
		}
	}
	b.mu.Unlock()
	for _, sub := range subs {
		sub.end(ErrBusClosed)
	}
	return nil
}

func (b *MemoryBus) remove(sub *memorySub) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.topics[sub.topic]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.topics, sub.topic)
		}
	}
}

type memorySub struct {
	bus    *MemoryBus
	topic  string
	events chan Event
	done   chan struct{}

	once sync.Once
	mu   sync.Mutex
	err  error
}

func (s *memorySub) Topic() string        { return s.topic }
func (s *memorySub) Events() <-chan Event { return s.events }

func (s *memorySub) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *memorySub) Close() error {
	s.end(nil)
	return nil
}

func (s *memorySub) end(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		// unregister first so Publish never sends on the closed channel
		s.bus.remove(s)
		close(s.done)
		close(s.events)
	})
}
