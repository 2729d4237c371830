package remote

import (
	"context"
	"errors"
	"net/http"

	"siraqemir/internal/models"
)

func (c *Client) authenticate(ctx context.Context, path, email, password string) (*models.User, error) {
	var resp models.AuthResponse
	creds := models.Credentials{Email: email, Password: password}
	if err := c.send(ctx, http.MethodPost, path, creds, &resp, false); err != nil {
		return nil, err
	}
	c.setTokens(resp.Tokens)
	return resp.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	return c.authenticate(ctx, "/auth/login", email, password)
}

// Register creates the account and signs in with it.
func (c *Client) Register(ctx context.Context, email, password string) (*models.User, error) {
	return c.authenticate(ctx, "/auth/register", email, password)
}

// Logout revokes the refresh token on the service. Local tokens are
// dropped even when the service cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	if c.accessToken() == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, true)
	c.setTokens(models.TokenPair{})
	if IsStatus(err, http.StatusUnauthorized) || errors.Is(err, errNoSession) {
		return nil
	}
	return err
}

// CurrentUser resolves the stored session. It returns nil and no error
// when there is no session or the service no longer accepts it.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	if c.accessToken() == "" && c.Tokens().RefreshToken == "" {
		return nil, nil
	}
	if c.accessToken() == "" {
		if _, err := c.refresh(ctx); err != nil {
			return nilOnAuthFailure(err)
		}
	}
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/auth/user", nil, &user, true); err != nil {
		return nilOnAuthFailure(err)
	}
	return &user, nil
}

func nilOnAuthFailure(err error) (*models.User, error) {
	if IsStatus(err, http.StatusUnauthorized) || errors.Is(err, errNoSession) {
		return nil, nil
	}
	return nil, err
}
