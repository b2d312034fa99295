// internal/chat/propagator.go
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/realtime"
	"github.com/saberactivo/social/internal/session"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMinBackoff = 250 * time.Millisecond
	DefaultMaxBackoff = 15 * time.Second

	// leaveTimeout bounds storing the read marker when a conversation closes.
	leaveTimeout = 5 * time.Second
)

// Propagator merges realtime inserts into a Log, Tracker and Feed. It holds at most
// one subscription for the open conversation plus one for the user's notifications,
// and resubscribes with capped exponential backoff when the transport drops.
type Propagator struct {
	bus     realtime.Subscriber
	session session.Provider
	log     *Log
	tracker *Tracker
	feed    *Feed
	logger  *logrus.Logger

	MinBackoff time.Duration
	MaxBackoff time.Duration

	// OnMessage and OnNotifications, when set, run after a realtime change was applied.
	OnMessage       func(models.Message)
	OnNotifications func()

	mu    sync.Mutex
	notif *follower
	conv  *follower
}

// follower is one running subscription loop.
type follower struct {
	topic  string
	cancel context.CancelFunc
	done   chan struct{}
}

func (f *follower) stop() {
	f.cancel()
	<-f.done
}

func NewPropagator(bus realtime.Subscriber, sess session.Provider, log *Log, tracker *Tracker, feed *Feed, logger *logrus.Logger) *Propagator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Propagator{
		bus:        bus,
		session:    sess,
		log:        log,
		tracker:    tracker,
		feed:       feed,
		logger:     logger,
		MinBackoff: DefaultMinBackoff,
		MaxBackoff: DefaultMaxBackoff,
	}
}

// Start subscribes to the current user's notifications and loads the feed.
func (p *Propagator) Start(ctx context.Context) error {
	me, ok := p.session.UserID()
	if !ok {
		return apperr.ErrNotAuthenticated
	}
	topic := realtime.NotificationsTopic(me)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.notif != nil {
		if p.notif.topic == topic {
			return nil
		}
		p.notif.stop()
		p.notif = nil
	}
	f, err := p.follow(ctx, topic, p.handleNotification, p.feed.Refresh)
	if err != nil {
		return err
	}
	p.notif = f
	if err := p.feed.Refresh(ctx); err != nil {
		p.logger.WithError(err).Warn("failed to load notifications")
	}
	return nil
}

// Switch tears down the current conversation subscription, if any, and opens the
// conversation with otherID: subscribe first, then load history, then mark it seen.
func (p *Propagator) Switch(ctx context.Context, otherID uuid.UUID) error {
	me, ok := p.session.UserID()
	if !ok {
		return apperr.ErrNotAuthenticated
	}
	if otherID == uuid.Nil || otherID == me {
		return apperr.Validation("invalid conversation partner")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conv != nil {
		p.conv.stop()
		p.conv = nil
	}
	p.tracker.Leave(ctx)

	f, err := p.follow(ctx, realtime.MessagesTopic(me, otherID), p.handleMessage, func(ctx context.Context) error {
		_, err := p.log.CatchUp(ctx)
		return err
	})
	if err != nil {
		return err
	}
	p.conv = f

	if err := p.log.Open(ctx, otherID); err != nil {
		p.conv.stop()
		p.conv = nil
		p.log.Close()
		return err
	}
	for _, e := range p.log.Entries() {
		p.tracker.Observe(e.Message)
	}
	if err := p.tracker.Open(ctx, otherID); err != nil {
		p.logger.WithError(err).WithField("other_id", otherID).Warn("read marker not stored")
	}
	return nil
}

// Leave closes the open conversation and its subscription.
func (p *Propagator) Leave() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conv != nil {
		p.conv.stop()
		p.conv = nil
	}
	p.log.Close()
	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	p.tracker.Leave(ctx)
}

// Close releases every subscription.
func (p *Propagator) Close() {
	p.Leave()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.notif != nil {
		p.notif.stop()
		p.notif = nil
	}
}

// ConversationTopic returns the topic currently followed for the open conversation.
func (p *Propagator) ConversationTopic() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conv == nil {
		return ""
	}
	return p.conv.topic
}

// follow subscribes once synchronously, so the caller learns about a bad topic or a
// closed bus, then keeps the subscription alive in the background. resync runs after
// every resubscribe to pick up rows missed while disconnected.
func (p *Propagator) follow(ctx context.Context, topic string, handle func(context.Context, realtime.Event), resync func(context.Context) error) (*follower, error) {
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub, err := p.bus.Subscribe(loopCtx, topic)
	if err != nil {
		cancel()
		return nil, apperr.Transient("subscribe "+topic, err)
	}
	f := &follower{topic: topic, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(f.done)
		p.run(loopCtx, sub, topic, handle, resync)
	}()
	return f, nil
}

func (p *Propagator) run(ctx context.Context, sub realtime.Subscription, topic string, handle func(context.Context, realtime.Event), resync func(context.Context) error) {
	entry := p.logger.WithField("topic", topic)
	backoff := p.MinBackoff
	for {
		p.drain(ctx, sub, handle)
		cause := sub.Err()
		sub.Close()
		if ctx.Err() != nil {
			return
		}
		entry.WithError(cause).Warn("realtime subscription lost, resubscribing")

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			var err error
			sub, err = p.bus.Subscribe(ctx, topic)
			if err == nil {
				break
			}
			entry.WithError(err).WithField("backoff", backoff).Warn("realtime resubscribe failed")
			backoff = min(backoff*2, p.MaxBackoff)
		}
		backoff = p.MinBackoff
		entry.Info("realtime subscription restored")
		if err := resync(ctx); err != nil {
			entry.WithError(err).Warn("failed to resync after resubscribe")
		}
	}
}

func (p *Propagator) drain(ctx context.Context, sub realtime.Subscription, handle func(context.Context, realtime.Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if ev.Type != realtime.EventInsert {
				continue
			}
			handle(ctx, ev)
		}
	}
}

func (p *Propagator) handleMessage(_ context.Context, ev realtime.Event) {
	m, err := ev.Message()
	if err != nil {
		p.logger.WithError(err).WithField("topic", ev.Topic).Warn("invalid message event")
		return
	}
	p.tracker.Observe(m)
	if p.log.ApplyInsert(m) && p.OnMessage != nil {
		p.OnMessage(m)
	}
}

func (p *Propagator) handleNotification(ctx context.Context, _ realtime.Event) {
	if err := p.feed.Refresh(ctx); err != nil {
		p.logger.WithError(err).Warn("failed to refresh notifications")
		return
	}
	if p.OnNotifications != nil {
		p.OnNotifications()
	}
}
