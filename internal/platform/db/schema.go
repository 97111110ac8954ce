package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema holds the idempotent DDL for the directory, audit and log tables.
//
//go:embed schema.sql
var Schema string

// SafeTimestampFunc is the SQL function Schema declares for casting
// producer-written text timestamps without failing the query.
const SafeTimestampFunc = "odyssey_try_timestamptz"

// EnsureSchema applies Schema. Tables and indexes are IF NOT EXISTS and
// functions are CREATE OR REPLACE, so it is safe on every start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("platform/db: ensure schema: %w", err)
	}
	return nil
}
