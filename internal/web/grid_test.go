package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gefiproj/gefiproj/internal/api"
	"github.com/gefiproj/gefiproj/internal/domain"
	"github.com/gefiproj/gefiproj/internal/table"
)

// Pages are shared by every request of a browser session, so reloading the
// data and rendering the grid must be safe to interleave.
func TestPage_ConcurrentRefreshAndRender(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/projets", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]domain.Project{
			{ID: 1, Code: 12345, Name: "Apollo", Manager: 1},
			{ID: 2, Code: 23456, Name: "Gemini", Manager: 1},
		})
	})
	mux.HandleFunc("GET /api/users", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]domain.User{
			{ID: 1, FirstName: "Ada", LastName: "Lovelace"},
		})
	})
	backend := httptest.NewServer(mux)
	defer backend.Close()

	p, err := newProjectsPage(api.NewClient(backend.URL, backend.Client()), slog.Default())
	if err != nil {
		t.Fatalf("newProjectsPage: %v", err)
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if err := p.Refresh(ctx); err != nil {
					t.Errorf("Refresh: %v", err)
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				g := p.Grid()
				for _, row := range g.Rows {
					for _, cell := range row.Cells {
						if cell.Column.Kind == table.CellSelect {
							_ = cell.Options
						}
					}
				}
			}
		}()
	}
	wg.Wait()

	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	g := p.Grid()
	if len(g.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(g.Rows))
	}
	for _, cell := range g.Rows[0].Cells {
		if cell.Column.Code == "id_u" && len(cell.Options) == 0 {
			t.Error("manager select lost its options")
		}
	}
}
