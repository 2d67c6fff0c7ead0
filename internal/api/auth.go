package api

import (
	"context"

	"github.com/argiloff/archaeotools-cms/internal/session"
)

// Credentials is an email/password pair.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterParams creates a new account.
type RegisterParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthTokens, error) {
	var tokens AuthTokens
	if err := c.post(ctx, "/auth/login", creds, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Register creates an account and returns its first token pair.
func (c *Client) Register(ctx context.Context, params RegisterParams) (*AuthTokens, error) {
	var tokens AuthTokens
	if err := c.post(ctx, "/auth/register", params, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Refresh trades a refresh token for a fresh pair. The transport performs
// this on its own for mid-request 401s; this method serves explicit
// refresh flows.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	var tokens AuthTokens
	in := map[string]string{"refreshToken": refreshToken}
	if err := c.post(ctx, "/auth/refresh", in, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Logout revokes the refresh token server side. Local session state is the
// caller's to clear.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	in := map[string]string{"refreshToken": refreshToken}
	return c.post(ctx, "/auth/logout", in, nil)
}

// Me fetches the profile of the signed-in user.
func (c *Client) Me(ctx context.Context) (*session.User, error) {
	var user session.User
	if err := c.get(ctx, "/users/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}
