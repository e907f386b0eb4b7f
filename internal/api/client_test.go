package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gefiproj/gefiproj/internal/domain"
)

func TestResourceList(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"normal list", `[{"id_p":1,"nom_p":"a"},{"id_p":2,"nom_p":"b"}]`, 2},
		{"null body", `null`, 0},
		{"empty body", ``, 0},
		{"empty list", `[]`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/projets" {
					t.Errorf("path = %q", r.URL.Path)
				}
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, srv.Client())
			got, err := c.Projects().List(context.Background())
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if got == nil {
				t.Fatal("List returned nil, want empty slice")
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestResourceGet_RejectsInvalidID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request reached the network for an invalid id")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	for _, id := range []int64{0, -1} {
		if _, err := c.Projects().Get(context.Background(), id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Get(%d) = %v, want ErrInvalidID", id, err)
		}
		if _, err := c.Projects().Update(context.Background(), id, domain.Project{}); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Update(%d) = %v, want ErrInvalidID", id, err)
		}
		if err := c.Projects().Delete(context.Background(), id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Delete(%d) = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestResourceCreate_SendsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var p domain.Project
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Fatalf("decode: %v", err)
		}
		p.ID = 7
		json.NewEncoder(w).Encode(p)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	created, err := c.Projects().Create(context.Background(), domain.Project{Code: 12345, Name: "new"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != 7 || created.Name != "new" {
		t.Errorf("created = %+v", created)
	}
}

func TestResourceDelete_NoBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %q", r.Method)
		}
		if r.URL.Path != "/api/projets/3" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	if err := c.Projects().Delete(context.Background(), 3); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestErrorDecoding(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"message field", http.StatusConflict, `{"message":"le code est deja utilise"}`, "le code est deja utilise"},
		{"error field", http.StatusBadRequest, `{"error":"bad payload"}`, "bad payload"},
		{"no body", http.StatusInternalServerError, ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, srv.Client())
			_, err := c.Projects().Get(context.Background(), 1)
			if err == nil {
				t.Fatal("expected error")
			}

			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("error type = %T", err)
			}
			if apiErr.Status != tt.status {
				t.Errorf("status = %d, want %d", apiErr.Status, tt.status)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
			if !IsStatus(err, tt.status) {
				t.Errorf("IsStatus(%d) = false", tt.status)
			}
		})
	}
}
