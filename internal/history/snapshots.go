package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Scope identifies which slice of a miner's state a snapshot captures.
// Besides the three endpoint scopes, each element of the backends
// array is also recorded under its positional per-backend scope so
// that a fallback read for one backend does not depend on the shape of
// the whole array at capture time.
type Scope string

const (
	ScopeSummary       Scope = "summary"
	ScopeBackends      Scope = "backends"
	ScopeConfig        Scope = "config"
	ScopeBackendCPU    Scope = "backend:cpu"
	ScopeBackendOpenCL Scope = "backend:opencl"
	ScopeBackendCUDA   Scope = "backend:cuda"
)

// BackendScope maps a position in the backends array to its
// per-backend scope. Index 0 is always the CPU backend; 1 and 2 exist
// only on multi-backend builds.
func BackendScope(index int) (Scope, bool) {
	switch index {
	case 0:
		return ScopeBackendCPU, true
	case 1:
		return ScopeBackendOpenCL, true
	case 2:
		return ScopeBackendCUDA, true
	}
	return "", false
}

// Snapshot is one immutable, timestamped copy of an API response.
type Snapshot struct {
	ID         string
	Miner      string
	Scope      Scope
	Document   any
	CapturedAt time.Time
}

// Record appends a snapshot of doc for (miner, scope). A backends
// document additionally gets one row per present array element under
// the matching per-backend scope, all in the same transaction.
func (s *Store) Record(ctx context.Context, miner string, scope Scope, doc any) error {
	return s.withWriteTx(ctx, fmt.Sprintf("record %s/%s", miner, scope), func(tx *sql.Tx) error {
		now := time.Now().UTC().Format(time.RFC3339Nano)

		if err := insertSnapshot(ctx, tx, miner, scope, doc, now); err != nil {
			return err
		}

		if scope != ScopeBackends {
			return nil
		}
		elements, ok := doc.([]any)
		if !ok {
			return nil
		}
		for i, element := range elements {
			backendScope, ok := BackendScope(i)
			if !ok {
				break
			}
			if err := insertSnapshot(ctx, tx, miner, backendScope, element, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertSnapshot(ctx context.Context, tx *sql.Tx, miner string, scope Scope, doc any, capturedAt string) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, miner, scope, document, captured_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), miner, string(scope), string(raw), capturedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot %s/%s: %w", miner, scope, err)
	}
	return nil
}

// MostRecent returns the latest recorded document for (miner, scope).
// The table is append-only, so rowid order is capture order; the
// stored RFC3339Nano text is display-only and not safe to sort
// (trimmed fractional zeros break lexicographic ordering). No matching
// row, including a database that has never seen this miner, is
// reported as ok=false, not as an error.
func (s *Store) MostRecent(ctx context.Context, miner string, scope Scope) (any, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM snapshots
		 WHERE miner = ? AND scope = ?
		 ORDER BY rowid DESC
		 LIMIT 1`,
		miner, string(scope),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		if missingTable(err) {
			return nil, false, nil
		}
		return nil, false, StoreError{Op: fmt.Sprintf("most recent %s/%s", miner, scope), Err: err}
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false, StoreError{Op: fmt.Sprintf("decode snapshot %s/%s", miner, scope), Err: err}
	}
	return doc, true, nil
}

// Recent returns up to limit snapshots for (miner, scope), newest
// first.
func (s *Store) Recent(ctx context.Context, miner string, scope Scope, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, miner, scope, document, captured_at FROM snapshots
		 WHERE miner = ? AND scope = ?
		 ORDER BY rowid DESC
		 LIMIT ?`,
		miner, string(scope), limit,
	)
	if err != nil {
		if missingTable(err) {
			return nil, nil
		}
		return nil, StoreError{Op: fmt.Sprintf("recent %s/%s", miner, scope), Err: err}
	}
	defer rows.Close()

	var result []Snapshot
	for rows.Next() {
		var (
			snap       Snapshot
			scopeStr   string
			raw        string
			capturedAt string
		)
		if err := rows.Scan(&snap.ID, &snap.Miner, &scopeStr, &raw, &capturedAt); err != nil {
			return nil, StoreError{Op: "scan snapshot", Err: err}
		}
		snap.Scope = Scope(scopeStr)
		if err := json.Unmarshal([]byte(raw), &snap.Document); err != nil {
			return nil, StoreError{Op: fmt.Sprintf("decode snapshot %s", snap.ID), Err: err}
		}
		if t, err := time.Parse(time.RFC3339Nano, capturedAt); err == nil {
			snap.CapturedAt = t
		}
		result = append(result, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, StoreError{Op: "iterate snapshots", Err: err}
	}
	return result, nil
}

// Purge irreversibly deletes every snapshot recorded for the miner,
// across all scopes. Used when a miner is deregistered.
func (s *Store) Purge(ctx context.Context, miner string) error {
	return s.withWriteTx(ctx, fmt.Sprintf("purge %s", miner), func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE miner = ?`, miner); err != nil {
			return fmt.Errorf("delete snapshots for %q: %w", miner, err)
		}
		return nil
	})
}

func missingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
