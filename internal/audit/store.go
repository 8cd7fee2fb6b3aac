// Package audit persists a record of every action attempt.
package audit

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// Entry is one audit record. Digest is a blake3 hash of the raw action
// parameters so payloads can be matched without storing them.
type Entry struct {
	ID         string
	Tenant     string
	Action     string
	Digest     string
	Status     string
	Error      string
	DurationMS int64
	CreatedAt  time.Time
}

const (
	StatusOK       = "ok"
	StatusFailed   = "failed"
	StatusRejected = "rejected"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Digest returns the hex blake3 digest of b.
func Digest(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Record inserts an audit entry. A missing ID or timestamp is filled in.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.Tenant == "" {
		return fmt.Errorf("tenant is empty")
	}
	if e.Action == "" {
		return fmt.Errorf("action is empty")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO audit_log(id, tenant, action, digest, status, error, duration_ms, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?);
`, e.ID, e.Tenant, e.Action, e.Digest, e.Status, nullable(e.Error), e.DurationMS,
		e.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, tenant, action, digest, status, error, duration_ms, created_at
FROM audit_log
ORDER BY created_at DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			errS     sql.NullString
			createdS string
		)
		if err := rows.Scan(&e.ID, &e.Tenant, &e.Action, &e.Digest, &e.Status, &errS, &e.DurationMS, &createdS); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if errS.Valid {
			e.Error = errS.String
		}
		if t, perr := time.Parse(time.RFC3339Nano, createdS); perr == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
