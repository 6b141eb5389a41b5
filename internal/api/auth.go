package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"flowfinance/internal/core"
)

// TokenResponse is the body returned by the login endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds core.Credentials) (string, error) {
	form := url.Values{}
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)

	req := request{
		method:      http.MethodPost,
		path:        "/token",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		accept:      "application/json",
	}

	var out TokenResponse
	if err := c.do(ctx, req, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%w: login response carried no access token", ErrTransport)
	}
	return out.AccessToken, nil
}

// Register creates a user. It does not log in.
func (c *Client) Register(ctx context.Context, reg core.Registration) (core.User, error) {
	var user core.User
	req, err := jsonRequest(http.MethodPost, "/register", reg)
	if err != nil {
		return user, err
	}
	err = c.do(ctx, req, &user)
	return user, err
}

// CurrentUser resolves the bearer token to its user.
func (c *Client) CurrentUser(ctx context.Context) (core.User, error) {
	var user core.User
	req, _ := jsonRequest(http.MethodGet, "/users/me", nil)
	err := c.do(ctx, req, &user)
	return user, err
}

// UpdateCurrentUser applies a partial profile update.
func (c *Client) UpdateCurrentUser(ctx context.Context, patch core.UserPatch) (core.User, error) {
	var user core.User
	req, err := jsonRequest(http.MethodPut, "/users/me", patch)
	if err != nil {
		return user, err
	}
	err = c.do(ctx, req, &user)
	return user, err
}

// DeleteCurrentUser permanently removes the authenticated user.
func (c *Client) DeleteCurrentUser(ctx context.Context) error {
	req, _ := jsonRequest(http.MethodDelete, "/users/me", nil)
	return c.do(ctx, req, nil)
}
