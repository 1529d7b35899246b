// Package manifest keeps a SQLite history of builds and the fingerprints of
// the files each build wrote.
package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/inful/mdfp"
	_ "modernc.org/sqlite"
)

// Build statuses.
const (
	StatusRunning  = "running"
	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

// Build is one recorded build run.
type Build struct {
	ID       string
	Started  time.Time
	Finished time.Time
	Status   string
	Commit   string
	Items    int
	Outputs  int
	Error    string
}

// Output is one file written by a build.
type Output struct {
	BuildID     string
	Path        string
	Fingerprint string
	Bytes       int
}

// Store records build history in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the manifest database. Use ":memory:" for an
// in-memory store.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("create manifest directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		started INTEGER NOT NULL,
		finished INTEGER,
		status TEXT NOT NULL,
		source_commit TEXT,
		items INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);
	CREATE TABLE IF NOT EXISTS outputs (
		build_id TEXT NOT NULL REFERENCES builds(id),
		path TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		bytes INTEGER NOT NULL,
		PRIMARY KEY (build_id, path)
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started ON builds(started);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Fingerprint returns the content fingerprint recorded for an output body.
func Fingerprint(body []byte) string {
	return mdfp.CalculateFingerprintFromParts("", string(body))
}

// BeginBuild records a build as running.
func (s *Store) BeginBuild(ctx context.Context, b Build) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO builds (id, started, status, source_commit) VALUES (?, ?, ?, ?)",
		b.ID, b.Started.UnixNano(), StatusRunning, b.Commit,
	)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}
	return nil
}

// RecordOutput stores the fingerprint of a written file and returns it.
func (s *Store) RecordOutput(ctx context.Context, buildID, path string, body []byte) (string, error) {
	fp := Fingerprint(body)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO outputs (build_id, path, fingerprint, bytes) VALUES (?, ?, ?, ?)",
		buildID, path, fp, len(body),
	)
	if err != nil {
		return "", fmt.Errorf("insert output: %w", err)
	}
	return fp, nil
}

// FinishBuild stores the final status of a build. buildErr may be nil.
func (s *Store) FinishBuild(ctx context.Context, id, status string, items int, buildErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var msg sql.NullString
	if buildErr != nil {
		msg = sql.NullString{String: buildErr.Error(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE builds SET finished = ?, status = ?, items = ?, error = ? WHERE id = ?",
		time.Now().UnixNano(), status, items, msg, id,
	)
	if err != nil {
		return fmt.Errorf("update build: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update build: unknown build %s", id)
	}
	return nil
}

// ListBuilds returns up to limit builds, newest first. A limit <= 0 returns all.
func (s *Store) ListBuilds(ctx context.Context, limit int) ([]Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT b.id, b.started, b.finished, b.status, b.source_commit, b.items, b.error,
		(SELECT COUNT(*) FROM outputs o WHERE o.build_id = b.id)
		FROM builds b ORDER BY b.started DESC, b.rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var builds []Build
	for rows.Next() {
		var (
			b        Build
			started  int64
			finished sql.NullInt64
			commit   sql.NullString
			errMsg   sql.NullString
		)
		if err := rows.Scan(&b.ID, &started, &finished, &b.Status, &commit, &b.Items, &errMsg, &b.Outputs); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		b.Started = time.Unix(0, started)
		if finished.Valid {
			b.Finished = time.Unix(0, finished.Int64)
		}
		b.Commit = commit.String
		b.Error = errMsg.String
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return builds, nil
}

// Outputs returns the files recorded for a build, ordered by path.
func (s *Store) Outputs(ctx context.Context, buildID string) ([]Output, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT build_id, path, fingerprint, bytes FROM outputs WHERE build_id = ? ORDER BY path",
		buildID,
	)
	if err != nil {
		return nil, fmt.Errorf("query outputs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var outputs []Output
	for rows.Next() {
		var o Output
		if err := rows.Scan(&o.BuildID, &o.Path, &o.Fingerprint, &o.Bytes); err != nil {
			return nil, fmt.Errorf("scan output: %w", err)
		}
		outputs = append(outputs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return outputs, nil
}

// LastSuccessful returns the fingerprints by path of the newest successful
// build other than exclude. ok is false when there is none.
func (s *Store) LastSuccessful(ctx context.Context, exclude string) (map[string]string, bool, error) {
	s.mu.RLock()
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM builds WHERE status = ? AND id != ? ORDER BY started DESC, rowid DESC LIMIT 1",
		StatusSuccess, exclude,
	).Scan(&id)
	s.mu.RUnlock()
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query last build: %w", err)
	}

	outputs, err := s.Outputs(ctx, id)
	if err != nil {
		return nil, false, err
	}
	fps := make(map[string]string, len(outputs))
	for _, o := range outputs {
		fps[o.Path] = o.Fingerprint
	}
	return fps, true, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
