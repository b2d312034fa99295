package client

import (
	"context"
	"net/http"

	"github.com/saberactivo/social/internal/models"
)

type authResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// SignUp creates an account and signs it in.
func (c *Client) SignUp(ctx context.Context, email, password, username string) (*models.User, error) {
	return c.authenticate(ctx, "/auth/signup", map[string]string{
		"email":    email,
		"password": password,
		"username": username,
	})
}

// SignIn exchanges credentials for a session token.
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	return c.authenticate(ctx, "/auth/signin", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (c *Client) authenticate(ctx context.Context, path string, body map[string]string) (*models.User, error) {
	c.session.SetLoading(true)
	var out authResponse
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		c.session.SetLoading(false)
		return nil, err
	}
	c.setToken(out.Token)
	c.session.Set(out.User.ID)
	c.logger.WithField("user", out.User.ID).Info("signed in")
	return &out.User, nil
}

// SignOut drops the local session even when the server cannot be reached.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/signout", nil, nil, nil)
	c.setToken("")
	c.session.Clear()
	return err
}
