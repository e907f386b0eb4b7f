package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gefiproj/gefiproj/internal/domain"
)

// ErrNotFound is returned when no session row exists for an id.
var ErrNotFound = errors.New("session not found")

// Record is one persisted session: the user blob and the token pair,
// the same three values the browser app kept in local storage, plus the
// one-shot return target recorded before a login redirect.
type Record struct {
	ID           string
	User         *domain.User
	AccessToken  string
	RefreshToken string
	ReturnTo     string
	UpdatedAt    time.Time
}

// Store persists sessions in a local sqlite database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	user_json     TEXT NOT NULL DEFAULT '',
	access_token  TEXT NOT NULL DEFAULT '',
	refresh_token TEXT NOT NULL DEFAULT '',
	return_to     TEXT NOT NULL DEFAULT '',
	updated_at    TEXT NOT NULL
);
`

// Open creates or opens the session database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create session db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping session db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sessions table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load fetches a session by id. Returns ErrNotFound for unknown ids.
func (s *Store) Load(ctx context.Context, id string) (*Record, error) {
	var (
		rec      Record
		userJSON string
		updated  string
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_json, access_token, refresh_token, return_to, updated_at
		 FROM sessions WHERE id = ?`, id)
	err := row.Scan(&rec.ID, &userJSON, &rec.AccessToken, &rec.RefreshToken, &rec.ReturnTo, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if userJSON != "" {
		rec.User = &domain.User{}
		if err := json.Unmarshal([]byte(userJSON), rec.User); err != nil {
			return nil, fmt.Errorf("decode session user: %w", err)
		}
	}
	if t, err := time.Parse(time.RFC3339, updated); err == nil {
		rec.UpdatedAt = t
	}
	return &rec, nil
}

// Save upserts a session row. A nil User is stored as an empty blob.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	userJSON := ""
	if rec.User != nil {
		b, err := json.Marshal(rec.User)
		if err != nil {
			return fmt.Errorf("encode session user: %w", err)
		}
		userJSON = string(b)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_json, access_token, refresh_token, return_to, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			user_json = excluded.user_json,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			updated_at = excluded.updated_at`,
		rec.ID, userJSON, rec.AccessToken, rec.RefreshToken, rec.ReturnTo,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes a session entirely. Missing rows are not an error:
// logout must be idempotent.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// SetReturnTo records the path to land on after the next successful login.
func (s *Store) SetReturnTo(ctx context.Context, id, path string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, return_to, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET return_to = excluded.return_to, updated_at = excluded.updated_at`,
		id, path, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set return target: %w", err)
	}
	return nil
}

// TakeReturnTo reads and clears the recorded return target in one step.
func (s *Store) TakeReturnTo(ctx context.Context, id string) (string, error) {
	var path string
	err := s.db.QueryRowContext(ctx, `SELECT return_to FROM sessions WHERE id = ?`, id).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read return target: %w", err)
	}
	if path != "" {
		if _, err := s.db.ExecContext(ctx, `UPDATE sessions SET return_to = '' WHERE id = ?`, id); err != nil {
			return "", fmt.Errorf("clear return target: %w", err)
		}
	}
	return path, nil
}

// PurgeOlderThan drops sessions not touched since the cutoff.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`,
		cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}
