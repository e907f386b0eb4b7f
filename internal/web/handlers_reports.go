package web

import (
	"net/http"

	"github.com/gefiproj/gefiproj/internal/domain"
	"github.com/gefiproj/gefiproj/internal/logging"
	"github.com/gefiproj/gefiproj/internal/reports"
)

// reportsView is the template model for the reports screen.
type reportsView struct {
	Projects []reports.ProjectStatus
	Years    []reports.YearLine
	Notice   string
	User     *domain.User
	Nav      []navEntry
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	env := envFromContext(r.Context())

	view := reportsView{
		User: env.user(),
		Nav:  s.nav(env, ""),
	}

	projects, err := env.reports.FundingStatus(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("funding status report failed", "error", err)
		view.Notice = userMessage(err)
		s.render(w, r, "reports.html", view)
		return
	}
	years, err := env.reports.YearBreakdown(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("year breakdown report failed", "error", err)
		view.Notice = userMessage(err)
		s.render(w, r, "reports.html", view)
		return
	}

	view.Projects = projects
	view.Years = years
	s.render(w, r, "reports.html", view)
}
