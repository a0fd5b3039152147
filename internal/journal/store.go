package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"audiochain/internal/audio"
)

// timeLayout has fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the SQLite-backed invocation history.
type Store struct {
	db   *sql.DB
	path string
}

var _ audio.Recorder = (*Store)(nil)

// Open connects to the journal at path, creating it and applying migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("journal path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores one invocation.
func (s *Store) Record(ctx context.Context, inv audio.Invocation) error {
	args, err := json.Marshal(inv.Args)
	if err != nil {
		return fmt.Errorf("encode args: %w", err)
	}
	startedAt := inv.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO invocations
		(id, run_id, op, args, exit_code, killed, diagnostic, error, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID,
		inv.RunID,
		inv.Op,
		string(args),
		inv.ExitCode,
		boolToInt(inv.Killed),
		inv.Diagnostic,
		inv.Error,
		startedAt.UTC().Format(timeLayout),
		inv.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert invocation: %w", err)
	}
	return nil
}

// Recent returns up to limit invocations, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]audio.Invocation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, run_id, op, args, exit_code, killed, diagnostic, error, started_at, duration_ms
		FROM invocations ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query invocations: %w", err)
	}
	return scanInvocations(rows)
}

// ForRun returns the invocations of one run in execution order.
func (s *Store) ForRun(ctx context.Context, runID string) ([]audio.Invocation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, run_id, op, args, exit_code, killed, diagnostic, error, started_at, duration_ms
		FROM invocations WHERE run_id = ? ORDER BY started_at ASC, rowid ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run invocations: %w", err)
	}
	return scanInvocations(rows)
}

// Purge deletes invocations started before cutoff and returns how many went.
func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM invocations WHERE started_at < ?", cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("purge invocations: %w", err)
	}
	return res.RowsAffected()
}

func scanInvocations(rows *sql.Rows) ([]audio.Invocation, error) {
	defer rows.Close()
	var out []audio.Invocation
	for rows.Next() {
		var (
			inv        audio.Invocation
			args       string
			killed     int
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(&inv.ID, &inv.RunID, &inv.Op, &args, &inv.ExitCode, &killed, &inv.Diagnostic, &inv.Error, &startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		if err := json.Unmarshal([]byte(args), &inv.Args); err != nil {
			return nil, fmt.Errorf("decode args for %s: %w", inv.ID, err)
		}
		ts, err := time.Parse(timeLayout, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parse started_at for %s: %w", inv.ID, err)
		}
		inv.StartedAt = ts
		inv.Killed = killed != 0
		inv.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invocations: %w", err)
	}
	return out, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
