package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite keeps slots in a single database file, plus an append-only log_entries table that
// mirrors every audit log entry for later analysis.
type SQLite struct {
	db   *sql.DB
	path string
}

const sqliteFileName = "progress.sqlite"

func OpenSQLite(ctx context.Context, dir string) (*SQLite, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("sqlite store: missing dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, sqliteFileName)
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	s := &SQLite{db: db, path: path}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Path() string { return s.path }

func (s *SQLite) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS slots (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS log_entries (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			issued_at_unixms INTEGER NOT NULL,
			tag TEXT NOT NULL,
			data_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_log_entries_session ON log_entries(session_id, seq);`,
	}
	for _, st := range stmts {
		if _, err := s.db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM slots WHERE k = ?`, key).Scan(&v)
	switch {
	case err == nil:
		return v, true, nil
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	default:
		return "", false, err
	}
}

func (s *SQLite) Put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO slots(k, v, updated_at_unixms) VALUES(?, ?, ?)
		 ON CONFLICT(k) DO UPDATE SET v = excluded.v, updated_at_unixms = excluded.updated_at_unixms`,
		key, value, time.Now().UTC().UnixMilli())
	return err
}

func (s *SQLite) Close() error { return s.db.Close() }

// MirroredEntry is one row of the log_entries table.
type MirroredEntry struct {
	Seq       int64           `json:"seq"`
	SessionID string          `json:"sessionId"`
	Timestamp time.Time       `json:"timestamp"`
	Tag       string          `json:"tag"`
	Data      json.RawMessage `json:"data"`
}

// AppendEntry inserts one log row. Rows are never updated or deleted.
func (s *SQLite) AppendEntry(ctx context.Context, sessionID string, ts time.Time, tag string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO log_entries(session_id, issued_at_unixms, tag, data_json) VALUES(?, ?, ?, ?)`,
		sessionID, ts.UTC().UnixMilli(), tag, string(b))
	return err
}

// Entries returns mirrored rows oldest-first; an empty sessionID returns every session.
func (s *SQLite) Entries(ctx context.Context, sessionID string, limit int) ([]MirroredEntry, error) {
	q := `SELECT seq, session_id, issued_at_unixms, tag, data_json FROM log_entries`
	var args []any
	if strings.TrimSpace(sessionID) != "" {
		q += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	q += ` ORDER BY seq`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []MirroredEntry{}
	for rows.Next() {
		var e MirroredEntry
		var ms int64
		var data string
		if err := rows.Scan(&e.Seq, &e.SessionID, &ms, &e.Tag, &data); err != nil {
			return nil, err
		}
		e.Timestamp = time.UnixMilli(ms).UTC()
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	return out, rows.Err()
}
