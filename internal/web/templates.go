package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/gefiproj/gefiproj/internal/logging"
	"github.com/gefiproj/gefiproj/internal/table"
)

//go:embed templates
var templateFiles embed.FS

// pageTemplates maps a page file name to its parsed template set. Each page
// is parsed together with the shared layout so they can all define the same
// "content" block without clashing.
var pageTemplates = mustParseTemplates()

func mustParseTemplates() map[string]*template.Template {
	funcs := template.FuncMap{
		// isSelected matches an option id against a selection that may be
		// a comma separated list (multi-selects).
		"isSelected": func(sel, id string) bool {
			if sel == "" || id == "" {
				return false
			}
			return strings.Contains(","+sel+",", ","+id+",")
		},
		// colspan spans an error row across the full grid width.
		"colspan": func(g GridView) int {
			return len(g.Columns) + 1
		},
		// nextSortDir gives the direction a header link should request:
		// clicking the column already sorted ascending flips it.
		"nextSortDir": func(g GridView, code string) string {
			if g.SortColumn == code && g.SortDirection == table.SortAsc {
				return string(table.SortDesc)
			}
			return string(table.SortAsc)
		},
	}
	pages := []string{"login.html", "table.html", "reports.html"}
	out := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFiles,
			"templates/layout.html", "templates/"+name)
		if err != nil {
			panic(fmt.Sprintf("parse template %s: %v", name, err))
		}
		out[name] = t
	}
	return out
}

// render executes a page template over the layout.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	t, ok := pageTemplates[name]
	if !ok {
		logging.FromContext(r.Context()).Error("unknown template", "name", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		logging.FromContext(r.Context()).Error("template render failed",
			"name", name, "error", err)
	}
}
