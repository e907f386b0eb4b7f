package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gefiproj/gefiproj/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	rec := &Record{
		ID: "sess-1",
		User: &domain.User{
			ID:     3,
			Email:  "u@example.org",
			Active: true,
			Roles:  []domain.Role{domain.RoleAdministrator},
		},
		AccessToken:  "access",
		RefreshToken: "refresh",
	}
	if err := st.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := st.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AccessToken != "access" || got.RefreshToken != "refresh" {
		t.Errorf("tokens = %q/%q", got.AccessToken, got.RefreshToken)
	}
	if got.User == nil || got.User.Email != "u@example.org" || !got.User.HasRole(domain.RoleAdministrator) {
		t.Errorf("user = %+v", got.User)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestStore_SaveUpserts(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.Save(ctx, &Record{ID: "s", AccessToken: "one"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := st.Save(ctx, &Record{ID: "s", AccessToken: "two"}); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := st.Load(ctx, "s")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AccessToken != "two" {
		t.Errorf("AccessToken = %q, want the updated value", got.AccessToken)
	}
	if got.User != nil {
		t.Errorf("user = %+v, want nil for anonymous record", got.User)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	st := openTestStore(t)
	if _, err := st.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load = %v, want ErrNotFound", err)
	}
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.Save(ctx, &Record{ID: "s"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := st.Delete(ctx, "s"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := st.Delete(ctx, "s"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
	if _, err := st.Load(ctx, "s"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after delete = %v, want ErrNotFound", err)
	}
}

func TestStore_ReturnToIsOneShot(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.SetReturnTo(ctx, "s", "/table/fundings?sort=year"); err != nil {
		t.Fatalf("SetReturnTo: %v", err)
	}

	got, err := st.TakeReturnTo(ctx, "s")
	if err != nil {
		t.Fatalf("TakeReturnTo: %v", err)
	}
	if got != "/table/fundings?sort=year" {
		t.Errorf("TakeReturnTo = %q", got)
	}

	again, err := st.TakeReturnTo(ctx, "s")
	if err != nil {
		t.Fatalf("second TakeReturnTo: %v", err)
	}
	if again != "" {
		t.Errorf("return target not cleared, got %q", again)
	}
}

func TestStore_SetReturnToKeepsTokens(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.Save(ctx, &Record{ID: "s", AccessToken: "tok"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := st.SetReturnTo(ctx, "s", "/reports"); err != nil {
		t.Fatalf("SetReturnTo: %v", err)
	}

	got, err := st.Load(ctx, "s")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AccessToken != "tok" {
		t.Errorf("tokens clobbered by SetReturnTo: %q", got.AccessToken)
	}
}

func TestStore_PurgeOlderThan(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.Save(ctx, &Record{ID: "old"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := st.Save(ctx, &Record{ID: "fresh"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Nothing is older than a cutoff in the past.
	n, err := st.PurgeOlderThan(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("PurgeOlderThan: %v", err)
	}
	if n != 0 {
		t.Errorf("purged %d rows, want 0", n)
	}

	// Everything is older than a cutoff in the future.
	n, err = st.PurgeOlderThan(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PurgeOlderThan: %v", err)
	}
	if n != 2 {
		t.Errorf("purged %d rows, want 2", n)
	}
	if _, err := st.Load(ctx, "fresh"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load = %v, want ErrNotFound after purge", err)
	}
}
