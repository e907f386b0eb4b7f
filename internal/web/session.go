package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gefiproj/gefiproj/internal/api"
	"github.com/gefiproj/gefiproj/internal/auth"
	"github.com/gefiproj/gefiproj/internal/config"
	"github.com/gefiproj/gefiproj/internal/domain"
	"github.com/gefiproj/gefiproj/internal/reports"
	"github.com/gefiproj/gefiproj/internal/session"
)

// sessionEnv bundles everything that lives per browser session: the auth
// controller, an API client whose transport shares that controller, the
// screen instances and the report service. Pages hold table state between
// requests, which is why they are per session and not per request.
type sessionEnv struct {
	id      string
	auth    *auth.Controller
	client  *api.Client
	pages   map[string]Page
	reports *reports.Service
}

// sessions hands out sessionEnv instances keyed by session id, creating
// them on first use. All requests of one session share the same instance,
// so concurrent token refreshes collapse into one network call.
type sessions struct {
	cfg     config.SessionConfig
	apiCfg  config.APIConfig
	manager *auth.Manager
	logger  *slog.Logger

	mu   sync.Mutex
	envs map[string]*sessionEnv
}

func newSessions(cfg config.SessionConfig, apiCfg config.APIConfig, manager *auth.Manager, logger *slog.Logger) *sessions {
	return &sessions{
		cfg:     cfg,
		apiCfg:  apiCfg,
		manager: manager,
		logger:  logger,
		envs:    make(map[string]*sessionEnv),
	}
}

// authenticated returns the environment for a session that is persisted
// and holds live credentials. A nil environment with a nil error means the
// request is anonymous; no per-session state is allocated for it, so a
// client minting cookie values at will cannot grow the cache.
func (s *sessions) authenticated(ctx context.Context, id string) (*sessionEnv, error) {
	s.mu.Lock()
	env, ok := s.envs[id]
	s.mu.Unlock()

	if !ok {
		if _, err := s.manager.Store().Load(ctx, id); err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("load session: %w", err)
		}
		var err error
		env, err = s.get(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	if !env.auth.IsAuthenticated() {
		return nil, nil
	}
	return env, nil
}

// get returns the environment for the given session id, building it on
// first use.
func (s *sessions) get(ctx context.Context, id string) (*sessionEnv, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if env, ok := s.envs[id]; ok {
		return env, nil
	}

	ctrl, err := s.manager.Controller(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session controller: %w", err)
	}

	hc := &http.Client{
		Timeout:   s.apiCfg.Timeout,
		Transport: api.NewTransport(nil, ctrl),
	}
	client := api.NewClient(s.apiCfg.BaseURL, hc)

	pages, err := buildPages(client, s.logger)
	if err != nil {
		return nil, err
	}

	env := &sessionEnv{
		id:      id,
		auth:    ctrl,
		client:  client,
		pages:   pages,
		reports: reports.NewService(client),
	}
	s.envs[id] = env
	return env, nil
}

// drop forgets a session's in-memory state. The persisted record is the
// auth controller's concern.
func (s *sessions) drop(id string) {
	s.mu.Lock()
	delete(s.envs, id)
	s.mu.Unlock()
	s.manager.Evict(id)
}

// prune drops in-memory state for sessions whose persisted row is gone,
// typically after the periodic store purge. Without it the caches only
// shrink on explicit logout.
func (s *sessions) prune(ctx context.Context) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.envs))
	for id := range s.envs {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		if _, err := s.manager.Store().Load(ctx, id); errors.Is(err, session.ErrNotFound) {
			s.drop(id)
		}
	}
	s.manager.Prune(ctx)
}

// user returns the session's current user, or nil when not logged in.
func (env *sessionEnv) user() *domain.User {
	return env.auth.State().User()
}

// sessionID reads the session cookie, minting a fresh id (and setting the
// cookie) when the browser has none yet.
func (s *sessions) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(s.cfg.CookieName); err == nil && c.Value != "" {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.cfg.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// clearCookie expires the session cookie in the browser.
func (s *sessions) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
