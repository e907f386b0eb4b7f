package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gefiproj/gefiproj/internal/session"
)

// Manager hands out one Controller per session id.
//
// Controllers are cached so that concurrent requests belonging to the same
// session share the same single-flight refresh group; handing each request
// its own controller would defeat the de-duplication.
type Manager struct {
	mu     sync.Mutex
	store  *session.Store
	api    API
	logger *slog.Logger
	cache  map[string]*Controller
}

// NewManager builds a manager over the shared session store and auth API.
func NewManager(st *session.Store, api API, logger *slog.Logger) *Manager {
	return &Manager{
		store:  st,
		api:    api,
		logger: logger,
		cache:  make(map[string]*Controller),
	}
}

// Controller returns the controller for a session id, creating and
// rehydrating it on first use.
func (m *Manager) Controller(ctx context.Context, sessionID string) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.cache[sessionID]; ok {
		return c, nil
	}
	c, err := NewController(ctx, sessionID, m.store, m.api, m.logger)
	if err != nil {
		return nil, err
	}
	m.cache[sessionID] = c
	return c, nil
}

// Store exposes the backing session store.
func (m *Manager) Store() *session.Store { return m.store }

// Evict drops a cached controller, typically after logout, so a stale
// in-memory session cannot outlive its store row.
func (m *Manager) Evict(sessionID string) {
	m.mu.Lock()
	delete(m.cache, sessionID)
	m.mu.Unlock()
}

// Prune evicts controllers whose session row no longer exists, so the
// cache follows the store instead of growing with every login attempt.
// It returns the number of evictions.
func (m *Manager) Prune(ctx context.Context) int {
	m.mu.Lock()
	ids := make([]string, 0, len(m.cache))
	for id := range m.cache {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	n := 0
	for _, id := range ids {
		if _, err := m.store.Load(ctx, id); errors.Is(err, session.ErrNotFound) {
			m.Evict(id)
			n++
		}
	}
	return n
}
