package web

import (
	"errors"
	"net/http"

	"github.com/gefiproj/gefiproj/internal/api"
	"github.com/gefiproj/gefiproj/internal/auth"
	"github.com/gefiproj/gefiproj/internal/logging"
)

type loginView struct {
	Error string
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.sessions.sessionID(w, r)
	s.render(w, r, "login.html", loginView{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	id := s.sessions.sessionID(w, r)
	ctx := logging.WithSessionID(r.Context(), id)
	logger := logging.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	// Only the auth controller is needed here; the full environment is
	// built lazily, once a request arrives with live credentials.
	ctrl, err := s.sessions.manager.Controller(ctx, id)
	if err != nil {
		logger.Error("session init failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	creds := auth.Credentials{
		Login:    r.PostFormValue("login"),
		Password: r.PostFormValue("password"),
	}
	if creds.Login == "" || creds.Password == "" {
		s.render(w, r, "login.html", loginView{Error: "Login and password are required."})
		return
	}

	if _, err := ctrl.Login(ctx, creds); err != nil {
		logger.Info("login rejected", "login", creds.Login, "error", err)
		msg := "Login failed. Please try again."
		switch {
		case api.IsStatus(err, http.StatusUnauthorized), api.IsStatus(err, http.StatusForbidden):
			msg = "Unknown login or wrong password."
		case errors.Is(err, auth.ErrExpiredTokens):
			msg = "The server issued an already expired session. Please try again."
		}
		s.render(w, r, "login.html", loginView{Error: msg})
		return
	}

	target, err := s.sessions.manager.Store().TakeReturnTo(ctx, id)
	if err != nil {
		logger.Warn("could not read return path", "error", err)
	}
	http.Redirect(w, r, safeReturnTo(target), http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	env := envFromContext(r.Context())
	if err := env.auth.Logout(r.Context()); err != nil {
		logging.FromContext(r.Context()).Warn("logout cleanup failed", "error", err)
	}
	s.sessions.drop(env.id)
	s.sessions.clearCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
