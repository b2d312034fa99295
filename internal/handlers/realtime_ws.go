// internal/handlers/realtime_ws.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/saberactivo/social/internal/middleware"
	"github.com/saberactivo/social/internal/realtime"
	"github.com/saberactivo/social/internal/session"
)

// Subprotocol is the WebSocket subprotocol spoken by the realtime endpoint.
const Subprotocol = "realtime"

const (
	pingInterval = 30 * time.Second
	pingTimeout  = 15 * time.Second
	writeTimeout = 5 * time.Second
)

// RealtimeWSHandler streams insert events for ?topic= to the caller. The caller must be
// one of the conversation pair, or the recipient of the notification feed. Clients only
// ever receive; anything they send is discarded.
func (a *API) RealtimeWSHandler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: a.OriginPatterns,
	})
	if err != nil {
		a.logger.WithError(err).Warn("websocket accept failed")
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != Subprotocol {
		c.Close(BadSubprotocolError, "client must speak the realtime subprotocol")
		return
	}

	me, ok := session.FromContext(r.Context())
	if !ok {
		c.Close(InvalidAuthTokenError, "authentication required")
		return
	}
	topic, err := realtime.ParseTopic(r.URL.Query().Get("topic"))
	if err != nil || !topic.Allows(me) {
		c.Close(InvalidTopicError, "topic not available")
		return
	}

	ctx := c.CloseRead(r.Context())
	sub, err := a.bus.Subscribe(ctx, topic.String())
	if err != nil {
		a.logger.WithError(err).WithField("topic", topic.String()).Warn("realtime subscribe failed")
		c.Close(SubscribeFailedError, "subscribe failed")
		return
	}
	defer sub.Close()

	middleware.LogWebSocketConnect(a.logger, r.RemoteAddr, topic.String())
	err = writePump(ctx, c, sub)
	middleware.LogWebSocketDisconnect(a.logger, r.RemoteAddr, topic.String(), err)

	if sub.Err() != nil {
		c.Close(TransportLostError, "realtime transport lost")
		return
	}
	if errors.Is(err, context.Canceled) || websocket.CloseStatus(err) != -1 {
		return
	}
	c.Close(websocket.StatusNormalClosure, "")
}

// writePump forwards subscription events to the socket and keeps it alive with pings.
// It returns when the subscription ends, the client goes away, or a write fails.
func writePump(ctx context.Context, c *websocket.Conn, sub realtime.Subscription) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-sub.Events():
			if !ok {
				return sub.Err()
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, c, ev)
			cancel()
			if err != nil {
				return err
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}
