// Package remote is the Go client of the task service. Client implements
// tasksync.Remote and the session package's Authenticator.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"siraqemir/internal/config"
	"siraqemir/internal/models"
)

// APIError is a non-2xx answer from the task service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("task service: %s", http.StatusText(e.Status))
	}
	return fmt.Sprintf("task service: %s (%d)", e.Message, e.Status)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

var errNoSession = errors.New("no session")

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokens seeds the client with a previously saved session.
func WithTokens(t models.TokenPair) Option {
	return func(c *Client) { c.tokens = t }
}

type Client struct {
	base   string
	apiKey string
	http   *http.Client

	mu     sync.RWMutex
	tokens models.TokenPair
	// serializes refreshes so concurrent 401s rotate the token once
	refreshMu sync.Mutex
}

func New(cfg *config.ClientConfig, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(cfg.ServiceURL, "/"),
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tokens returns the current session tokens, zero when signed out.
func (c *Client) Tokens() models.TokenPair {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

func (c *Client) setTokens(t models.TokenPair) {
	c.mu.Lock()
	c.tokens = t
	c.mu.Unlock()
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens.AccessToken
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}, authed bool) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)
	if authed {
		token := c.accessToken()
		if token == "" {
			return nil, errNoSession
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do sends a request and decodes a JSON answer into out. Authenticated
// calls that come back 401 are retried once after refreshing the session.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, authed bool) error {
	sent := c.accessToken()
	err := c.send(ctx, method, path, body, out, authed)
	if !authed || !IsStatus(err, http.StatusUnauthorized) {
		return err
	}
	if rerr := c.refreshIfStale(ctx, sent); rerr != nil {
		return err
	}
	return c.send(ctx, method, path, body, out, authed)
}

func (c *Client) send(ctx context.Context, method, path string, body, out interface{}, authed bool) error {
	req, err := c.newRequest(ctx, method, path, body, authed)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
	}
	return &APIError{Status: resp.StatusCode, Message: body.Error}
}

// refreshIfStale refreshes unless another caller already replaced the
// access token that was rejected.
func (c *Client) refreshIfStale(ctx context.Context, rejected string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	if current := c.accessToken(); current != rejected && current != "" {
		return nil
	}
	_, err := c.refresh(ctx)
	return err
}

func (c *Client) refresh(ctx context.Context) (*models.User, error) {
	rt := c.Tokens().RefreshToken
	if rt == "" {
		return nil, errNoSession
	}
	var resp models.AuthResponse
	if err := c.send(ctx, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": rt}, &resp, false); err != nil {
		if IsStatus(err, http.StatusUnauthorized) {
			c.setTokens(models.TokenPair{})
		}
		return nil, err
	}
	c.setTokens(resp.Tokens)
	return resp.User, nil
}

func (c *Client) wsURL(path string) (string, error) {
	u, err := url.Parse(c.base + path)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	return u.String(), nil
}
