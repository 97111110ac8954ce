package purge

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/db"
)

// newPGStore opens a throwaway schema on PURGE_TEST_PG_DSN. Sessions run in
// a non-UTC time zone so zone-less timestamps expose any session dependency.
func newPGStore(t *testing.T) (*PGStore, *pgxpool.Pool) {
	t.Helper()
	dsn := os.Getenv("PURGE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("PURGE_TEST_PG_DSN not set")
	}
	ctx := context.Background()

	admin, err := db.New(ctx, dsn)
	require.NoError(t, err)
	schema := "purge_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+pgx.Identifier{schema}.Sanitize())
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+pgx.Identifier{schema}.Sanitize()+" CASCADE")
		admin.Close()
	})

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	cfg.ConnConfig.RuntimeParams["TimeZone"] = "America/New_York"
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.EnsureSchema(ctx, pool))
	return NewStore(pool), pool
}

func insertDocs(t *testing.T, pool *pgxpool.Pool, table string, docs map[string]map[string]any) {
	t.Helper()
	for id, doc := range docs {
		raw, err := json.Marshal(doc)
		require.NoError(t, err)
		_, err = pool.Exec(context.Background(), "INSERT INTO "+pgx.Identifier{table}.Sanitize()+" (id, doc) VALUES ($1, $2)", id, raw)
		require.NoError(t, err)
	}
}

func TestPGISOTextPredicateSkipsBadValues(t *testing.T) {
	store, pool := newPGStore(t)
	insertDocs(t, pool, "request_logs", map[string]map[string]any{
		"r-old":      {"createdAt": "2024-01-01T00:00:00Z"},
		"r-month":    {"createdAt": "2024-13-45"},
		"r-garbage":  {"createdAt": "2024-01-01 garbage"},
		"r-feb":      {"createdAt": "2024-02-30T10:00:00Z"},
		"r-utc-in":   {"createdAt": "2024-05-31 22:30:00"},
		"r-utc-out":  {"createdAt": "2024-05-31 23:30:00"},
		"r-number":   {"createdAt": 1700000000000},
		"r-no-field": {"ts": "2024-01-01"},
	})
	logs := collectionNamed(t, "requestLogs")
	cutoff := time.Date(2024, 5, 31, 23, 0, 0, 0, time.UTC)

	ids, err := store.FetchPage(context.Background(), Query{Collection: logs, Field: &logs.Timestamps[1], NotAfter: cutoff}, 300)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"r-old", "r-utc-in"}, ids)
}

func TestPGBeforePurgeSurvivesMalformedRecord(t *testing.T) {
	store, pool := newPGStore(t)
	insertDocs(t, pool, "client_error_logs", map[string]map[string]any{
		"c-bad": {"timestamp": "2024-13-45T00:00:00Z"},
		"c-old": {"timestamp": "2023-06-01T00:00:00Z"},
	})
	_, err := pool.Exec(context.Background(), `INSERT INTO job_logs (id, rid, created_at) VALUES ('j-old', 'x', '2023-01-01T00:00:00Z'), ('j-new', 'x', now())`)
	require.NoError(t, err)

	engine, _ := newEngine(store, Config{PageSize: 1})
	result, err := engine.Purge(context.Background(), superadmin, BeforeTimestamp{Cutoff: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, 2, result.DeletedCount)

	rows, err := pool.Query(context.Background(), `SELECT id FROM client_error_logs UNION ALL SELECT id FROM job_logs`)
	require.NoError(t, err)
	left, err := pgx.CollectRows(rows, pgx.RowTo[string])
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c-bad", "j-new"}, left)
}
