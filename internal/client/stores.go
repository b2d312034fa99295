package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/models"
)

// ---- messages ----

func (c *Client) InsertMessage(ctx context.Context, m *models.Message) (*models.Message, error) {
	var out models.Message
	body := map[string]any{"body": m.Body, "client_token": m.ClientToken}
	if err := c.do(ctx, http.MethodPost, "/messages/"+m.ReceiverID.String(), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMessages lists the conversation between the signed-in user and the other of a
// and b, newest first.
func (c *Client) ListMessages(ctx context.Context, a, b uuid.UUID, before *time.Time, limit int) ([]models.Message, error) {
	other := b
	if me, ok := c.session.UserID(); ok && b == me {
		other = a
	}
	q := url.Values{}
	if before != nil {
		q.Set("before", before.UTC().Format(time.RFC3339Nano))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []models.Message
	if err := c.do(ctx, http.MethodGet, "/messages/"+other.String(), q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- read markers ----

func (c *Client) ListReadMarkers(ctx context.Context, _ uuid.UUID) ([]models.ReadMarker, error) {
	var out []models.ReadMarker
	if err := c.do(ctx, http.MethodGet, "/reads", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpsertReadMarker(ctx context.Context, m models.ReadMarker) error {
	body := map[string]time.Time{"last_seen_at": m.LastSeenAt}
	return c.do(ctx, http.MethodPut, "/reads/"+m.OtherID.String(), nil, body, nil)
}

// ---- notifications ----

func (c *Client) ListNotifications(ctx context.Context, _ uuid.UUID, limit int) ([]models.Notification, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []models.Notification
	if err := c.do(ctx, http.MethodGet, "/notifications", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CountUnreadNotifications(ctx context.Context, _ uuid.UUID) (int, error) {
	var out countResponse
	if err := c.do(ctx, http.MethodGet, "/notifications/unread/count", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, _, id uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/notifications/"+id.String()+"/read", nil, nil, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context, _ uuid.UUID) (int, error) {
	var out struct {
		Updated int `json:"updated"`
	}
	if err := c.do(ctx, http.MethodPost, "/notifications/read-all", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Updated, nil
}
