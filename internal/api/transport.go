package api

import (
	"context"
	"net/http"
	"strings"
)

// Authorizer is the slice of the session controller the transport needs.
// Implemented by *auth.Controller.
type Authorizer interface {
	IsAuthenticated() bool
	CanRefreshToken() bool
	RefreshOrLogout(ctx context.Context) error
	AccessToken() string
	Logout(ctx context.Context) error
}

// Transport injects bearer credentials into every outgoing request and
// transparently refreshes an expired session.
//
// Requests to the auth endpoints pass through untouched. For everything
// else: an authenticated session gets its access token attached; a session
// with only a live refresh token is refreshed first. A 401 answer triggers
// one refresh-and-retry; a second 401 (or a failed refresh) logs the
// session out and the response propagates to the caller untouched.
type Transport struct {
	// Base performs the actual round trips. Defaults to
	// http.DefaultTransport.
	Base http.RoundTripper

	// Auth owns the session whose tokens are attached.
	Auth Authorizer
}

// NewTransport wraps base with bearer injection for the given session.
func NewTransport(base http.RoundTripper, authz Authorizer) *Transport {
	return &Transport{Base: base, Auth: authz}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if isAuthEndpoint(req.URL.Path) {
		return t.base().RoundTrip(req)
	}

	ctx := req.Context()

	switch {
	case t.Auth.IsAuthenticated():
		// token attached below
	case t.Auth.CanRefreshToken():
		if err := t.Auth.RefreshOrLogout(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := t.send(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// One retry after a refresh; a second 401 propagates untouched.
	if !t.Auth.CanRefreshToken() {
		t.logout(ctx)
		return resp, nil
	}
	resp.Body.Close()
	if err := t.Auth.RefreshOrLogout(ctx); err != nil {
		return nil, err
	}
	retry, err := t.send(req)
	if err != nil {
		return nil, err
	}
	if retry.StatusCode == http.StatusUnauthorized {
		t.logout(ctx)
	}
	return retry, nil
}

// send clones the request, attaches the current access token and performs
// the round trip. Cloning keeps RoundTrip within its contract of never
// mutating the caller's request, and makes the retry safe.
func (t *Transport) send(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	if token := t.Auth.AccessToken(); token != "" {
		clone.Header.Set("Authorization", "Bearer "+token)
	}
	return t.base().RoundTrip(clone)
}

func (t *Transport) logout(ctx context.Context) {
	// Hard auth failure: the session must not keep believing it is valid.
	_ = t.Auth.Logout(ctx)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func isAuthEndpoint(path string) bool {
	return strings.HasPrefix(path, "/api/auth/")
}
