package client

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/realtime"
)

const (
	subprotocol = "realtime"
	dialTimeout = 10 * time.Second
)

// Subscribe opens the realtime socket for topic. The subscription ends with a
// TransientError when the socket drops or the server closes it.
func (c *Client) Subscribe(ctx context.Context, topic string) (realtime.Subscription, error) {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/realtime/ws"
	u.RawQuery = url.Values{"topic": {topic}}.Encode()

	header := http.Header{}
	if tok := c.Token(); tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, u.String(), &websocket.DialOptions{
		HTTPHeader:   header,
		Subprotocols: []string{subprotocol},
	})
	if err != nil {
		return nil, apperr.Transient("subscribe "+topic, err)
	}

	ctx, stop := context.WithCancel(ctx)
	s := &socketSub{
		topic:  topic,
		conn:   conn,
		events: make(chan realtime.Event, 16),
		stop:   stop,
	}
	go s.pump(ctx)
	c.logger.WithField("topic", topic).Debug("realtime socket open")
	return s, nil
}

type socketSub struct {
	topic  string
	conn   *websocket.Conn
	events chan realtime.Event
	stop   context.CancelFunc

	mu  sync.Mutex
	err error
}

func (s *socketSub) Topic() string                 { return s.topic }
func (s *socketSub) Events() <-chan realtime.Event { return s.events }

func (s *socketSub) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *socketSub) Close() error {
	s.stop()
	return nil
}

func (s *socketSub) pump(ctx context.Context) {
	defer close(s.events)
	defer s.conn.Close(websocket.StatusNormalClosure, "")

	for {
		var ev realtime.Event
		if err := wsjson.Read(ctx, s.conn, &ev); err != nil {
			if ctx.Err() == nil {
				s.mu.Lock()
				s.err = apperr.Transient("realtime "+s.topic, err)
				s.mu.Unlock()
			}
			return
		}
		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}
