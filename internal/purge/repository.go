package purge

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/db"
)

// Query selects records of one collection, optionally through one alias.
// A nil Field matches every record.
type Query struct {
	Collection Collection
	Field      *Field
	Equals     string
	NotAfter   time.Time
}

func (q Query) String() string {
	if q.Field == nil {
		return q.Collection.Name + ":*"
	}
	return q.Collection.Name + ":" + q.Field.String()
}

// Store pages through and deletes log records.
type Store interface {
	// FetchPage returns up to limit ids matching q, ordered by id.
	FetchPage(ctx context.Context, q Query, limit int) ([]string, error)
	// DeleteBatch deletes ids from table atomically and reports how many
	// rows were removed.
	DeleteBatch(ctx context.Context, table string, ids []string) (int, error)
}

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PostgreSQL store.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// FetchPage implements Store.
func (s *PGStore) FetchPage(ctx context.Context, q Query, limit int) ([]string, error) {
	sql, args := selectPage(q, limit)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// DeleteBatch implements Store. The page commits as a whole or not at all.
func (s *PGStore) DeleteBatch(ctx context.Context, table string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "DELETE FROM "+pgx.Identifier{table}.Sanitize()+" WHERE id = ANY($1)", ids)
		if err != nil {
			return fmt.Errorf("purge: delete %s: %w", table, err)
		}
		deleted = int(tag.RowsAffected())
		return nil
	})
	return deleted, err
}

var _ Store = (*PGStore)(nil)

func selectPage(q Query, limit int) (string, []any) {
	var (
		args  []any
		conds []string
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if q.Field != nil {
		conds = append(conds, fieldPredicate(*q.Field, q, arg))
	}
	var b strings.Builder
	b.WriteString("SELECT id FROM ")
	b.WriteString(pgx.Identifier{q.Collection.Table}.Sanitize())
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY id LIMIT ")
	b.WriteString(arg(limit))
	return b.String(), args
}

// isoTimestampShape admits ISO-8601 dates and datetimes with an optional
// offset. Matching strings are still cast with db.SafeTimestampFunc, so an
// impossible date such as 2024-13-45 is skipped rather than failing the page.
const isoTimestampShape = `^\d{4}-\d{2}-\d{2}([T ]\d{2}:\d{2}(:\d{2}(\.\d{1,9})?)?)?([Zz]|[+-]\d{2}(:?\d{2})?)?$`

// fieldPredicate renders the match condition for one alias. JSON values of
// the wrong type or shape never match and never fail the query.
func fieldPredicate(f Field, q Query, arg func(any) string) string {
	col := pgx.Identifier{f.Column}.Sanitize()
	if len(f.Path) == 0 {
		if f.Kind == Native {
			return col + " <= " + arg(q.NotAfter)
		}
		return col + " = " + arg(q.Equals)
	}
	path := arg(f.Path) + "::text[]"
	switch f.Kind {
	case EpochMillis:
		return fmt.Sprintf(`CASE WHEN jsonb_typeof(%[1]s #> %[2]s) = 'number' THEN (%[1]s #>> %[2]s)::numeric <= %[3]s ELSE FALSE END`,
			col, path, arg(q.NotAfter.UnixMilli()))
	case ISOText:
		return fmt.Sprintf(`CASE WHEN jsonb_typeof(%[1]s #> %[2]s) = 'string' AND (%[1]s #>> %[2]s) ~ %[3]s THEN COALESCE(%[4]s(%[1]s #>> %[2]s) <= %[5]s, FALSE) ELSE FALSE END`,
			col, path, arg(isoTimestampShape), db.SafeTimestampFunc, arg(q.NotAfter))
	default:
		return fmt.Sprintf("%s #>> %s = %s", col, path, arg(q.Equals))
	}
}
