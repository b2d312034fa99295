package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/saberactivo/social/internal/models"
	"github.com/saberactivo/social/internal/rank"
	"github.com/saberactivo/social/internal/relationship"
)

type countResponse struct {
	Count int `json:"count"`
}

// Me is the signed-in user's own summary.
type Me struct {
	Profile             *models.Profile `json:"profile"`
	Rank                rank.Progress   `json:"rank"`
	PendingRequests     int             `json:"pending_requests"`
	UnreadNotifications int             `json:"unread_notifications"`
}

// ProfileView is a public profile as seen by the caller.
type ProfileView struct {
	Profile    *models.Profile    `json:"profile"`
	Rank       rank.Progress      `json:"rank"`
	TopFriends []models.Profile   `json:"top_friends"`
	State      relationship.State `json:"state"`
}

func (c *Client) Me(ctx context.Context) (*Me, error) {
	var out Me
	if err := c.do(ctx, http.MethodGet, "/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Profile(ctx context.Context, username string) (*ProfileView, error) {
	var out ProfileView
	if err := c.do(ctx, http.MethodGet, "/profiles/"+url.PathEscape(username), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchProfiles(ctx context.Context, q string) ([]models.Profile, error) {
	var out []models.Profile
	if err := c.do(ctx, http.MethodGet, "/profiles", url.Values{"q": {q}}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Friends(ctx context.Context) ([]models.Profile, error) {
	var out []models.Profile
	if err := c.do(ctx, http.MethodGet, "/friends", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Requests(ctx context.Context) ([]models.FriendRequest, error) {
	var out []models.FriendRequest
	if err := c.do(ctx, http.MethodGet, "/friends/requests", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SendFriendRequest(ctx context.Context, to uuid.UUID) (*models.FriendRequest, error) {
	return c.requestAction(ctx, http.MethodPost, "/friends/"+to.String()+"/request")
}

func (c *Client) AcceptRequest(ctx context.Context, id uuid.UUID) (*models.FriendRequest, error) {
	return c.requestAction(ctx, http.MethodPost, "/friends/requests/"+id.String()+"/accept")
}

func (c *Client) RejectRequest(ctx context.Context, id uuid.UUID) (*models.FriendRequest, error) {
	return c.requestAction(ctx, http.MethodPost, "/friends/requests/"+id.String()+"/reject")
}

func (c *Client) RemoveFriend(ctx context.Context, other uuid.UUID) (*models.FriendRequest, error) {
	return c.requestAction(ctx, http.MethodDelete, "/friends/"+other.String())
}

func (c *Client) requestAction(ctx context.Context, method, path string) (*models.FriendRequest, error) {
	var out models.FriendRequest
	if err := c.do(ctx, method, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
