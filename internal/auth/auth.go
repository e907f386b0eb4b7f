// Package auth owns the authentication lifecycle: login, logout and token
// refresh, plus the predicates the route guard and the HTTP transport use to
// decide whether the current session is usable.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gefiproj/gefiproj/internal/domain"
	"github.com/gefiproj/gefiproj/internal/session"
)

// Credentials are the login form fields.
type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// TokenPair is the access/refresh pair returned by the auth endpoints.
// RefreshToken may be empty: the refresh endpoint is allowed to rotate only
// the access token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// API is the slice of the backend the controller needs. Implemented by the
// api package; kept as an interface so tests can drive the controller with
// a scripted backend.
type API interface {
	Login(ctx context.Context, creds Credentials) (*domain.User, TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
}

var (
	// ErrExpiredTokens means a login response carried no usable token.
	ErrExpiredTokens = errors.New("login returned only expired tokens")

	// ErrCannotRefresh means no live refresh token exists; the session was
	// logged out.
	ErrCannotRefresh = errors.New("session cannot be refreshed")
)

// Controller manages one session's authentication state.
//
// All predicates are safe for concurrent use; the refresh flow is
// single-flight so concurrent requests observing an expired access token
// share one refresh call.
type Controller struct {
	sessionID string
	state     *session.State
	store     *session.Store
	api       API
	logger    *slog.Logger

	// now is swappable for tests.
	now func() time.Time

	refreshing singleflight.Group
}

// NewController builds a controller for one session and rehydrates its
// in-memory state from the store when a persisted record exists.
func NewController(ctx context.Context, sessionID string, st *session.Store, api API, logger *slog.Logger) (*Controller, error) {
	c := &Controller{
		sessionID: sessionID,
		state:     session.NewState(),
		store:     st,
		api:       api,
		logger:    logger,
		now:       time.Now,
	}
	rec, err := st.Load(ctx, sessionID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		// fresh session
	case err != nil:
		return nil, fmt.Errorf("rehydrate session: %w", err)
	default:
		c.state.Set(rec.User, rec.AccessToken, rec.RefreshToken)
	}
	return c, nil
}

// State exposes the session state for subscription and rendering.
func (c *Controller) State() *session.State { return c.state }

// Login authenticates against the backend and persists the session.
//
// The session is persisted only when at least one returned token is still
// unexpired; otherwise nothing is stored, subscribers are notified with nil
// and ErrExpiredTokens is returned. A failed login leaves prior session
// state untouched.
func (c *Controller) Login(ctx context.Context, creds Credentials) (*domain.User, error) {
	user, tokens, err := c.api.Login(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	now := c.now()
	if session.Expired(tokens.AccessToken, now) && session.Expired(tokens.RefreshToken, now) {
		c.state.Set(nil, "", "")
		return nil, ErrExpiredTokens
	}

	c.state.Set(user, tokens.AccessToken, tokens.RefreshToken)
	if err := c.persist(ctx); err != nil {
		return nil, err
	}
	c.logger.Info("session opened", "session_id", c.sessionID, "user", user.Email)
	return user, nil
}

// Logout clears the persisted session and the in-memory state, notifying
// subscribers with nil. Server-side token invalidation is best-effort and
// not attempted here.
func (c *Controller) Logout(ctx context.Context) error {
	c.state.Clear()
	if err := c.store.Delete(ctx, c.sessionID); err != nil {
		return err
	}
	c.logger.Info("session closed", "session_id", c.sessionID)
	return nil
}

// IsAuthenticated reports whether the session is currently usable.
//
// True requires an active user with at least one role and a live access
// token. An inactive or role-less user triggers a fire-and-forget logout.
// A merely expired access token triggers a fire-and-forget refresh-or-logout;
// this call still returns false and the refreshed session takes effect on
// the next check.
func (c *Controller) IsAuthenticated() bool {
	user := c.state.User()
	if user == nil {
		return false
	}
	if !user.Active || len(user.Roles) == 0 {
		go func() {
			if err := c.Logout(context.Background()); err != nil {
				c.logger.Warn("logout after invalid user failed", "error", err)
			}
		}()
		return false
	}
	if session.Expired(c.state.AccessToken(), c.now()) {
		go func() {
			if err := c.RefreshOrLogout(context.Background()); err != nil {
				c.logger.Debug("background refresh failed", "error", err)
			}
		}()
		return false
	}
	return true
}

// CanRefreshToken reports whether a refresh is currently possible: a user
// exists and the refresh token is present and unexpired.
func (c *Controller) CanRefreshToken() bool {
	return c.state.User() != nil && !session.Expired(c.state.RefreshToken(), c.now())
}

// RefreshOrLogout swaps the access token for a fresh one, or logs out.
//
// Concurrent callers share a single in-flight refresh; exactly one request
// reaches the refresh endpoint and every caller observes the same outcome.
// Any failure along the way falls back to a full logout.
func (c *Controller) RefreshOrLogout(ctx context.Context) error {
	_, err, _ := c.refreshing.Do("refresh", func() (interface{}, error) {
		return nil, c.refreshOrLogout(ctx)
	})
	return err
}

func (c *Controller) refreshOrLogout(ctx context.Context) error {
	if !c.CanRefreshToken() {
		if err := c.Logout(ctx); err != nil {
			return err
		}
		return ErrCannotRefresh
	}

	tokens, err := c.api.Refresh(ctx, c.state.RefreshToken())
	if err != nil {
		c.logger.Warn("token refresh failed, logging out", "session_id", c.sessionID, "error", err)
		if lerr := c.Logout(ctx); lerr != nil {
			return lerr
		}
		return fmt.Errorf("refresh: %w", err)
	}

	// The backend may rotate only the access token; keep the old refresh
	// token when no new one is returned.
	refresh := tokens.RefreshToken
	if refresh == "" {
		refresh = c.state.RefreshToken()
	}
	c.state.SetTokens(tokens.AccessToken, refresh)
	return c.persist(ctx)
}

// AccessToken returns the current access token for the transport.
func (c *Controller) AccessToken() string { return c.state.AccessToken() }

func (c *Controller) persist(ctx context.Context) error {
	rec := &session.Record{
		ID:           c.sessionID,
		User:         c.state.User(),
		AccessToken:  c.state.AccessToken(),
		RefreshToken: c.state.RefreshToken(),
	}
	if err := c.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}
