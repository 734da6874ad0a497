package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStorage is the canonical persistent state store.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates/opens the state database at path.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single-process state store. Use one shared connection to avoid
	// writer lock contention with SQLite under concurrent goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStorage{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStorage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStorage) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA temp_store=MEMORY;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS state_documents (
			doc_key TEXT PRIMARY KEY,
			body_json TEXT NOT NULL DEFAULT '{}',
			updated_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS state_documents_updated_idx ON state_documents(updated_at_ms DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init state db: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStorage) Read(ctx context.Context, keys []string) (map[string]map[string]any, error) {
	out := make(map[string]map[string]any, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_key, body_json FROM state_documents WHERE doc_key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("read state documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, body string
		if err := rows.Scan(&key, &body); err != nil {
			return nil, fmt.Errorf("scan state document: %w", err)
		}
		doc := map[string]any{}
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("decode state document %s: %w", key, err)
		}
		out[key] = doc
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) Write(ctx context.Context, changes map[string]map[string]any) error {
	if len(changes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin state write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for key, doc := range changes {
		body, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode state document %s: %w", key, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO state_documents (doc_key, body_json, updated_at_ms) VALUES (?, ?, ?)
			 ON CONFLICT(doc_key) DO UPDATE SET body_json = excluded.body_json, updated_at_ms = excluded.updated_at_ms`,
			key, string(body), now)
		if err != nil {
			return fmt.Errorf("write state document %s: %w", key, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStorage) Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM state_documents WHERE doc_key IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("delete state documents: %w", err)
	}
	return nil
}
