// Package session owns the client-side authentication state: the in-memory
// session (user record plus access/refresh tokens, with change subscription)
// and its durable sqlite-backed store.
package session

import (
	"sync"

	"github.com/gefiproj/gefiproj/internal/domain"
)

// State is the in-memory session: the current user and token pair.
//
// It replaces ambient global session state with an explicit object that is
// injected where needed. Subscribers are notified whenever the current user
// changes (login, logout, rehydration).
type State struct {
	mu      sync.RWMutex
	user    *domain.User
	access  string
	refresh string
	subs    []func(*domain.User)
}

// NewState returns an empty, unauthenticated session state.
func NewState() *State {
	return &State{}
}

// Subscribe registers fn to be called on every user change. The callback is
// invoked synchronously while the state lock is not held.
func (s *State) Subscribe(fn func(*domain.User)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Set replaces the whole session and notifies subscribers.
func (s *State) Set(user *domain.User, access, refresh string) {
	s.mu.Lock()
	s.user = user
	s.access = access
	s.refresh = refresh
	subs := s.subs
	s.mu.Unlock()

	for _, fn := range subs {
		fn(user)
	}
}

// SetTokens swaps the token pair, leaving the user untouched.
// Used by the refresh flow.
func (s *State) SetTokens(access, refresh string) {
	s.mu.Lock()
	s.access = access
	s.refresh = refresh
	s.mu.Unlock()
}

// Clear drops the whole session and notifies subscribers with nil.
func (s *State) Clear() {
	s.Set(nil, "", "")
}

// User returns the current user, nil when unauthenticated.
func (s *State) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// AccessToken returns the current access token, empty when absent.
func (s *State) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// RefreshToken returns the current refresh token, empty when absent.
func (s *State) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}
