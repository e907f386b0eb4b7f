package reports

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gefiproj/gefiproj/internal/api"
	"github.com/gefiproj/gefiproj/internal/domain"
)

// fakeBackend serves canned collections on the REST endpoints.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	data := map[string]any{
		"/api/projets": []domain.Project{
			{ID: 1, Code: 22222, Name: "Gemini"},
			{ID: 2, Code: 11111, Name: "Apollo"},
		},
		"/api/financements": []domain.Funding{
			{ID: 10, ProjectID: 1, Amount: 1000},
			{ID: 11, ProjectID: 2, Amount: 500},
			{ID: 12, ProjectID: 2, Amount: 250},
		},
		"/api/recettes": []domain.Receipt{
			{ID: 20, FundingID: 10, Year: 2023, Amount: 600},
			{ID: 21, FundingID: 11, Year: 2023, Amount: 100},
			{ID: 22, FundingID: 11, Year: 2024, Amount: 200},
		},
		"/api/montants": []domain.Allocation{
			{ID: 30, ReceiptID: 20, ProjectID: 1, Year: 2023, Amount: 150},
			{ID: 31, ReceiptID: 21, ProjectID: 2, Year: 2024, Amount: 50},
		},
		"/api/depenses": []domain.Expense{
			{ID: 40, Year: 2023, Amount: 75},
		},
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, ok := data[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request to %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(payload)
	}))
}

func TestFundingStatus(t *testing.T) {
	srv := fakeBackend(t)
	defer srv.Close()

	svc := NewService(api.NewClient(srv.URL, srv.Client()))
	got, err := svc.FundingStatus(context.Background())
	if err != nil {
		t.Fatalf("FundingStatus: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d projects, want 2", len(got))
	}

	// Sorted by project code: Apollo (11111) first.
	apollo, gemini := got[0], got[1]
	if apollo.Project.Name != "Apollo" || gemini.Project.Name != "Gemini" {
		t.Fatalf("order = %s, %s", apollo.Project.Name, gemini.Project.Name)
	}

	if apollo.TotalFunding != 750 {
		t.Errorf("Apollo funding = %.2f, want 750", apollo.TotalFunding)
	}
	if apollo.TotalReceipts != 300 {
		t.Errorf("Apollo receipts = %.2f, want 300", apollo.TotalReceipts)
	}
	if apollo.TotalAllocated != 50 {
		t.Errorf("Apollo allocated = %.2f, want 50", apollo.TotalAllocated)
	}
	if apollo.Balance != 450 {
		t.Errorf("Apollo balance = %.2f, want 450", apollo.Balance)
	}

	if gemini.TotalFunding != 1000 || gemini.TotalReceipts != 600 || gemini.Balance != 400 {
		t.Errorf("Gemini totals = %+v", gemini)
	}
}

func TestYearBreakdown(t *testing.T) {
	srv := fakeBackend(t)
	defer srv.Close()

	svc := NewService(api.NewClient(srv.URL, srv.Client()))
	got, err := svc.YearBreakdown(context.Background())
	if err != nil {
		t.Fatalf("YearBreakdown: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d years, want 2", len(got))
	}

	if got[0].Year != 2023 || got[1].Year != 2024 {
		t.Fatalf("years = %d, %d", got[0].Year, got[1].Year)
	}
	if got[0].Receipts != 700 || got[0].Allocations != 150 || got[0].Expenses != 75 {
		t.Errorf("2023 = %+v", got[0])
	}
	if got[1].Receipts != 200 || got[1].Allocations != 50 || got[1].Expenses != 0 {
		t.Errorf("2024 = %+v", got[1])
	}
}

func TestFundingStatus_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"down"}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := NewService(api.NewClient(srv.URL, srv.Client()))
	if _, err := svc.FundingStatus(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
