package web

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gefiproj/gefiproj/internal/logging"
)

type envKey struct{}

// envFromContext returns the session environment placed by requireSession.
func envFromContext(ctx context.Context) *sessionEnv {
	env, _ := ctx.Value(envKey{}).(*sessionEnv)
	return env
}

// requireSession resolves the browser session and rejects requests that are
// not authenticated. Unauthenticated page loads are redirected to the login
// form with the original path remembered; non-GET requests get a plain 401.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := s.sessions.sessionID(w, r)
		ctx := logging.WithSessionID(r.Context(), id)

		env, err := s.sessions.authenticated(ctx, id)
		if err != nil {
			logging.FromContext(ctx).Error("session init failed", "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		if env == nil {
			if r.Method == http.MethodGet {
				s.rememberReturnTo(ctx, id, r)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		ctx = context.WithValue(ctx, envKey{}, env)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin rejects mutating requests from non-administrators.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env := envFromContext(r.Context())
		u := env.user()
		if u == nil || !u.IsAdmin() {
			http.Error(w, "administrator role required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rememberReturnTo stores the requested path so a successful login can send
// the browser back where it wanted to go.
func (s *Server) rememberReturnTo(ctx context.Context, id string, r *http.Request) {
	target := r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	if target == "/" || target == "/login" {
		return
	}
	if err := s.sessions.manager.Store().SetReturnTo(ctx, id, target); err != nil {
		logging.FromContext(ctx).Warn("could not remember return path", "error", err)
	}
}

// safeReturnTo only accepts same-site relative paths.
func safeReturnTo(target string) string {
	if target == "" {
		return "/"
	}
	u, err := url.Parse(target)
	if err != nil || u.IsAbs() || u.Host != "" || target[0] != '/' {
		return "/"
	}
	return target
}
