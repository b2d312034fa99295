// internal/realtime/redis.go
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrBusClosed is returned when subscribing to a closed bus.
var ErrBusClosed = errors.New("realtime bus closed")

// DefaultChannelPrefix namespaces the Redis pub/sub channels used for topics.
const DefaultChannelPrefix = "social:rt:"

// RedisBus fans events out across server instances through Redis pub/sub.
type RedisBus struct {
	rdb    *redis.Client
	prefix string
	logger *logrus.Logger
}

// NewRedisBus wraps an already connected client.
func NewRedisBus(rdb *redis.Client, prefix string, logger *logrus.Logger) *RedisBus {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisBus{rdb: rdb, prefix: prefix, logger: logger}
}

// Publish serializes ev to JSON and publishes it on the topic channel.
func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.prefix+ev.Topic, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to '%s': %w", ev.Topic, err)
	}
	return nil
}

// Subscribe opens a Redis subscription and waits for the server to confirm it, so
// events published after Subscribe returns are not missed.
func (b *RedisBus) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	ps := b.rdb.Subscribe(ctx, b.prefix+topic)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to '%s': %w", topic, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &redisSub{
		topic:  topic,
		ps:     ps,
		cancel: cancel,
		events: make(chan Event, subscriberBuffer),
	}
	go sub.pump(subCtx, b.logger)
	return sub, nil
}

// Close closes the underlying client.
func (b *RedisBus) Close() error {
	return b.rdb.Close()
}

type redisSub struct {
	topic  string
	ps     *redis.PubSub
	cancel context.CancelFunc
	events chan Event

	mu  sync.Mutex
	err error
}

func (s *redisSub) pump(ctx context.Context, logger *logrus.Logger) {
	defer close(s.events)
	defer s.ps.Close()

	ch := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				s.setErr(fmt.Errorf("redis subscription to '%s' closed", s.topic))
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.WithError(err).WithField("topic", s.topic).Warn("invalid realtime payload")
				continue
			}
			select {
			case s.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *redisSub) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *redisSub) Topic() string        { return s.topic }
func (s *redisSub) Events() <-chan Event { return s.events }

func (s *redisSub) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *redisSub) Close() error {
	s.cancel()
	return nil
}
