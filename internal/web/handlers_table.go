package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gefiproj/gefiproj/internal/domain"
	"github.com/gefiproj/gefiproj/internal/logging"
	"github.com/go-chi/chi/v5"
)

// navEntry is one item of the page navigation.
type navEntry struct {
	Key    string
	Title  string
	Active bool
}

// tableView is the template model for a table screen.
type tableView struct {
	Grid   GridView
	Notice string
	User   *domain.User
	Nav    []navEntry
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/table/projects", http.StatusSeeOther)
}

// lookupPage resolves the {pageKey} route parameter. A nil return means the
// response has already been written.
func (s *Server) lookupPage(w http.ResponseWriter, r *http.Request) (*sessionEnv, Page) {
	env := envFromContext(r.Context())
	key := chi.URLParam(r, "pageKey")
	p, ok := env.pages[key]
	if !ok {
		http.NotFound(w, r)
		return nil, nil
	}
	// Users are only visible to administrators.
	if key == "users" {
		if u := env.user(); u == nil || !u.IsAdmin() {
			http.Error(w, "administrator role required", http.StatusForbidden)
			return nil, nil
		}
	}
	return env, p
}

func (s *Server) handleTableView(w http.ResponseWriter, r *http.Request) {
	env, p := s.lookupPage(w, r)
	if p == nil {
		return
	}

	if col := r.URL.Query().Get("sort"); col != "" {
		if err := p.SetSort(col, r.URL.Query().Get("dir")); err != nil {
			logging.FromContext(r.Context()).Info("sort rejected",
				"page", p.Key(), "column", col, "error", err)
		}
	}

	if err := p.Refresh(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("table refresh failed",
			"page", p.Key(), "error", err)
		s.renderTable(w, r, env, p, userMessage(err))
		return
	}
	s.renderTable(w, r, env, p, "")
}

func (s *Server) renderTable(w http.ResponseWriter, r *http.Request, env *sessionEnv, p Page, notice string) {
	if notice == "" {
		notice = p.Notice()
	}
	if notice == "" {
		notice = r.URL.Query().Get("notice")
	}
	view := tableView{
		Grid:   p.Grid(),
		Notice: notice,
		User:   env.user(),
		Nav:    s.nav(env, p.Key()),
	}
	s.render(w, r, "table.html", view)
}

// nav builds the page navigation for the current user.
func (s *Server) nav(env *sessionEnv, active string) []navEntry {
	u := env.user()
	var entries []navEntry
	for _, key := range pageKeys {
		if key == "users" && (u == nil || !u.IsAdmin()) {
			continue
		}
		entries = append(entries, navEntry{
			Key:    key,
			Title:  env.pages[key].Title(),
			Active: key == active,
		})
	}
	return entries
}

// tableAction runs a controller action and redirects back to the table,
// carrying controller-level failures as a notice. Row-level failures are
// already stored on the rows and render with the grid.
func (s *Server) tableAction(w http.ResponseWriter, r *http.Request, p Page, err error) {
	target := "/table/" + p.Key()
	if err != nil {
		logging.FromContext(r.Context()).Info("table action rejected",
			"page", p.Key(), "error", err)
		target += "?notice=" + url.QueryEscape(userMessage(err))
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// rowID parses the {id} route parameter.
func rowID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (s *Server) handleStartCreate(w http.ResponseWriter, r *http.Request) {
	_, p := s.lookupPage(w, r)
	if p == nil {
		return
	}
	s.tableAction(w, r, p, p.StartCreate())
}

func (s *Server) handleCommitCreate(w http.ResponseWriter, r *http.Request) {
	_, p := s.lookupPage(w, r)
	if p == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.tableAction(w, r, p, p.CommitCreate(r.Context(), r.PostForm))
}

func (s *Server) handleCancelCreate(w http.ResponseWriter, r *http.Request) {
	_, p := s.lookupPage(w, r)
	if p == nil {
		return
	}
	s.tableAction(w, r, p, p.CancelCreate())
}

func (s *Server) handleStartEdit(w http.ResponseWriter, r *http.Request) {
	_, p := s.lookupPage(w, r)
	if p == nil {
		return
	}
	id, err := rowID(r)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.tableAction(w, r, p, p.StartEdit(id))
}

func (s *Server) handleCommitEdit(w http.ResponseWriter, r *http.Request) {
	_, p := s.lookupPage(w, r)
	if p == nil {
		return
	}
	id, err := rowID(r)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.tableAction(w, r, p, p.CommitEdit(r.Context(), id, r.PostForm))
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	_, p := s.lookupPage(w, r)
	if p == nil {
		return
	}
	id, err := rowID(r)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.tableAction(w, r, p, p.CancelEdit(id))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	_, p := s.lookupPage(w, r)
	if p == nil {
		return
	}
	id, err := rowID(r)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.tableAction(w, r, p, p.CommitDelete(r.Context(), id))
}
