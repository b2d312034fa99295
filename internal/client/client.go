// internal/client/client.go

// Package client talks to the social API over HTTP and to its realtime endpoint over
// WebSocket. A Client satisfies the store and subscriber contracts of the chat package,
// so a terminal or test harness can drive the same Log, Tracker and Feed as any other
// front end.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/session"
	"github.com/sirupsen/logrus"
)

const requestTimeout = 10 * time.Second

// Client is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	session *session.State
	logger  *logrus.Logger

	mu    sync.RWMutex
	token string
}

// New returns a signed-out client for the API rooted at baseURL. sess is updated on
// every sign in and sign out.
func New(baseURL string, sess *session.State, logger *logrus.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		base:    base,
		http:    &http.Client{Timeout: requestTimeout},
		session: sess,
		logger:  logger,
	}, nil
}

// Token returns the current session token, or "" when signed out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// do sends one JSON request. Transport failures come back as TransientErrors and API
// errors are rebuilt from their wire code.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	op := method + " " + path
	u := *c.base
	u.Path += path
	u.RawQuery = query.Encode()

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Transient(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.decodeError(op, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Transient(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) decodeError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body apiError
	if json.Unmarshal(data, &body) != nil || body.Code == "" {
		body.Code = codeForStatus(resp.StatusCode)
		body.Error = strings.TrimSpace(string(data))
	}
	c.logger.WithFields(logrus.Fields{
		"op":     op,
		"status": resp.StatusCode,
		"code":   body.Code,
	}).Debug("api error")
	return apperr.FromCode(body.Code, body.Error)
}

// codeForStatus covers responses that carry no wire code, such as plain-text 401s.
func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return apperr.CodeNotAuthenticated
	case http.StatusBadRequest:
		return apperr.CodeValidation
	case http.StatusForbidden:
		return apperr.CodeForbidden
	case http.StatusNotFound:
		return apperr.CodeNotFound
	}
	return apperr.CodeTransient
}
