package blobdb

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

	"hivetick.ai/internal/sched/core"
)

// Store is the host-side durable home of the persistent blob, plus a
// tick-digest history for offline inspection. One scheduler id maps to one
// blob row; the document is the blob's JSON form.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the save-every-tick append pattern; NORMAL is enough
	// durability for state the scheduler can rebuild from a cold blob anyway.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS blobs (
			id         TEXT PRIMARY KEY,
			tick       INTEGER NOT NULL,
			doc        TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			run_id TEXT NOT NULL,
			tick   INTEGER NOT NULL,
			digest TEXT NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

// SaveBlob upserts the blob document for id at tick.
func (s *Store) SaveBlob(ctx context.Context, id string, tick uint64, blob *core.Blob) error {
	doc, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("marshal blob: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO blobs (id, tick, doc, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET tick=excluded.tick, doc=excluded.doc, updated_at=excluded.updated_at`,
		id, int64(tick), string(doc), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// LoadBlob returns the stored blob for id, or a fresh empty blob when none
// exists. A missing row is a cold start, not an error; the scheduler
// lazy-initializes everything it needs.
func (s *Store) LoadBlob(ctx context.Context, id string) (*core.Blob, uint64, error) {
	var (
		tick int64
		doc  string
	)
	err := s.db.QueryRowContext(ctx, `SELECT tick, doc FROM blobs WHERE id = ?`, id).Scan(&tick, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return &core.Blob{}, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	var blob core.Blob
	if err := json.Unmarshal([]byte(doc), &blob); err != nil {
		return nil, 0, fmt.Errorf("unmarshal blob %s: %w", id, err)
	}
	return &blob, uint64(tick), nil
}

// RecordTick appends one tick digest to the history table.
func (s *Store) RecordTick(ctx context.Context, runID string, res core.TickResult) error {
	digest, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal digest: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO ticks (run_id, tick, digest) VALUES (?, ?, ?)`,
		runID, int64(res.Tick), string(digest))
	return err
}

// TickCount reports how many digests a run has recorded.
func (s *Store) TickCount(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ticks WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
