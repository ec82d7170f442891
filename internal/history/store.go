// Package history persists timestamped snapshots of miner API
// responses in SQLite and serves them back when the live cache has no
// answer.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const defaultBusyTimeout = 5 * time.Second

// Options describes parameters for opening a snapshot store.
type Options struct {
	DBPath   string
	ReadOnly bool
}

// Store provides access to the snapshot database. One Store serves
// every miner that shares its database path; writes rely on SQLite's
// transactional guarantees, no extra locking is layered on top.
type Store struct {
	db       *sql.DB
	dbPath   string
	readOnly bool
}

// StoreError wraps a persistence failure so callers can tell a broken
// database apart from data that simply is not there.
type StoreError struct {
	Op  string
	Err error
}

func (e StoreError) Error() string {
	return fmt.Sprintf("history: %s: %v", e.Op, e.Err)
}

func (e StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError returns true when err is (or wraps) a StoreError.
func IsStoreError(err error) bool {
	var target StoreError
	return errors.As(err, &target)
}

// Open initialises the snapshot store at the given path.
func Open(opts Options) (*Store, error) {
	if opts.DBPath == "" {
		return nil, errors.New("history: database path required")
	}

	dsn := opts.DBPath
	if opts.ReadOnly {
		dsn = fmt.Sprintf("file:%s?mode=ro", opts.DBPath)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite store: %w", err)
	}

	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := applyPragmas(ctx, db, opts.ReadOnly); err != nil {
		db.Close()
		return nil, err
	}

	if !opts.ReadOnly {
		if err := applySchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Store{db: db, dbPath: opts.DBPath, readOnly: opts.ReadOnly}, nil
}

// Close finalises the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the filesystem path of the backing database.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) withWriteTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return StoreError{Op: op, Err: err}
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return StoreError{Op: op, Err: fmt.Errorf("rollback failed after %v: %w", err, rbErr)}
		}
		return StoreError{Op: op, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return StoreError{Op: op, Err: err}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		miner TEXT NOT NULL,
		scope TEXT NOT NULL,
		document TEXT NOT NULL,
		captured_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS snapshots_miner_scope_time
		ON snapshots (miner, scope, captured_at)`,
}

func applyPragmas(ctx context.Context, db *sql.DB, readOnly bool) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", int(defaultBusyTimeout.Milliseconds())),
	}
	if !readOnly {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
		)
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("history: apply pragma %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin schema transaction: %w", err)
	}

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("history: apply schema statement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit schema transaction: %w", err)
	}
	return nil
}
