package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/db"
)

// PGRepository stores events in the audit_events table.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert appends event. The at column is filled by the database.
func (r *PGRepository) Insert(ctx context.Context, event Event) (time.Time, error) {
	actor, err := jsonParam(event.Actor)
	if err != nil {
		return time.Time{}, err
	}
	target, err := jsonParam(event.Target)
	if err != nil {
		return time.Time{}, err
	}
	extra, err := jsonParam(event.Extra)
	if err != nil {
		return time.Time{}, err
	}
	var at time.Time
	err = r.pool.QueryRow(ctx,
		`INSERT INTO audit_events (id, action, actor, target, note, extra) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6) RETURNING at`,
		event.ID, event.Action, actor, target, event.Note, extra,
	).Scan(&at)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return time.Time{}, fmt.Errorf("audit: insert: duplicate event id %s: %w", event.ID, err)
		}
		return time.Time{}, fmt.Errorf("audit: insert: %w", err)
	}
	return at, nil
}

// jsonParam encodes v for a jsonb column. An absent root becomes SQL NULL.
func jsonParam(v Value) ([]byte, error) {
	if v.IsAbsent() {
		return nil, nil
	}
	return json.Marshal(v)
}

var _ Repository = (*PGRepository)(nil)
