package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gefiproj/gefiproj/internal/auth"
	"github.com/gefiproj/gefiproj/internal/domain"
)

// AuthClient talks to the authentication endpoints. It deliberately uses a
// plain transport: auth calls must never pass through the token-injecting
// one, or a refresh could recurse into itself.
type AuthClient struct {
	c *Client
}

// NewAuthClient builds a client for /api/auth against the base URL.
func NewAuthClient(baseURL string) *AuthClient {
	return &AuthClient{c: NewClient(baseURL, &http.Client{Timeout: 15 * time.Second})}
}

// loginResponse is the backend's flattened user-plus-tokens payload.
type loginResponse struct {
	domain.User
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login posts credentials and returns the user record and token pair.
func (a *AuthClient) Login(ctx context.Context, creds auth.Credentials) (*domain.User, auth.TokenPair, error) {
	var resp loginResponse
	if err := a.c.do(ctx, "POST", "/api/auth/login", creds, &resp); err != nil {
		return nil, auth.TokenPair{}, err
	}
	user := resp.User
	return &user, auth.TokenPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

// Refresh exchanges a refresh token for a new token pair. The refresh token
// itself is the bearer credential on this call.
func (a *AuthClient) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", a.c.base+"/api/auth/refresh", nil)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+refreshToken)

	resp, err := a.c.http.Do(req)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("refresh: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return auth.TokenPair{}, decodeError(resp)
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeBody(resp, &payload); err != nil {
		return auth.TokenPair{}, err
	}
	return auth.TokenPair{AccessToken: payload.AccessToken, RefreshToken: payload.RefreshToken}, nil
}
