package purge

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func collectionNamed(t *testing.T, name string) Collection {
	t.Helper()
	for _, c := range Collections {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("collection %s not configured", name)
	return Collection{}
}

func TestSelectPageAll(t *testing.T) {
	sql, args := selectPage(Query{Collection: collectionNamed(t, "requestLogs")}, 300)
	assert.Equal(t, `SELECT id FROM "request_logs" ORDER BY id LIMIT $1`, sql)
	assert.Equal(t, []any{300}, args)
}

func TestSelectPageColumnAlias(t *testing.T) {
	c := collectionNamed(t, "jobLogs")
	sql, args := selectPage(Query{Collection: c, Field: &c.Correlation[0], Equals: "abc"}, 300)
	assert.Equal(t, `SELECT id FROM "job_logs" WHERE "rid" = $1 ORDER BY id LIMIT $2`, sql)
	assert.Equal(t, []any{"abc", 300}, args)
}

func TestSelectPageCorrelationAlias(t *testing.T) {
	c := collectionNamed(t, "clientErrors")
	sql, args := selectPage(Query{Collection: c, Field: &c.Correlation[1], Equals: "abc"}, 50)
	assert.Equal(t, `SELECT id FROM "client_error_logs" WHERE "doc" #>> $1::text[] = $2 ORDER BY id LIMIT $3`, sql)
	assert.Equal(t, []any{[]string{"context", "requestId"}, "abc", 50}, args)
}

func TestSelectPageTimestampAliases(t *testing.T) {
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	jobs := collectionNamed(t, "jobLogs")
	sql, args := selectPage(Query{Collection: jobs, Field: &jobs.Timestamps[0], NotAfter: cutoff}, 300)
	assert.Contains(t, sql, `"created_at" <= $1`)
	assert.Equal(t, cutoff, args[0])

	logs := collectionNamed(t, "requestLogs")
	sql, args = selectPage(Query{Collection: logs, Field: &logs.Timestamps[0], NotAfter: cutoff}, 300)
	assert.Contains(t, sql, `jsonb_typeof("doc" #> $1::text[]) = 'number'`)
	assert.Contains(t, sql, `("doc" #>> $1::text[])::numeric <= $2`)
	assert.Equal(t, cutoff.UnixMilli(), args[1])

	sql, args = selectPage(Query{Collection: logs, Field: &logs.Timestamps[1], NotAfter: cutoff}, 300)
	assert.Contains(t, sql, `("doc" #>> $1::text[]) ~ $2`)
	assert.Contains(t, sql, `COALESCE(odyssey_try_timestamptz("doc" #>> $1::text[]) <= $3, FALSE)`)
	assert.NotContains(t, sql, "::timestamptz", "a bare cast fails the whole page on one bad value")
	assert.Equal(t, []string{"createdAt"}, args[0])
	assert.Equal(t, isoTimestampShape, args[1])
	assert.Equal(t, cutoff, args[2])
}

func TestISOTimestampShape(t *testing.T) {
	shape := regexp.MustCompile(isoTimestampShape)
	for _, ok := range []string{
		"2024-01-01",
		"2024-01-01T10:00",
		"2024-01-01T10:00:00Z",
		"2024-01-01 10:00:00.123456",
		"2024-01-01T10:00:00+0530",
		"2024-01-01T10:00:00-07:00",
	} {
		assert.True(t, shape.MatchString(ok), ok)
	}
	for _, bad := range []string{
		"2024-01-01 garbage",
		"2024-01-01T10",
		"20240101",
		"yesterday",
		"2024-01-01T10:00:00Z trailing",
	} {
		assert.False(t, shape.MatchString(bad), bad)
	}
}

func TestCollectionsHaveNestedAliases(t *testing.T) {
	assert.Len(t, Collections, 3)
	for _, c := range Collections {
		nested := false
		for _, f := range append(append([]Field{}, c.Correlation...), c.Timestamps...) {
			if len(f.Path) > 0 {
				nested = true
			}
		}
		assert.True(t, nested, "collection %s has no nested alias", c.Name)
		assert.NotEmpty(t, c.Correlation, c.Name)
		assert.NotEmpty(t, c.Timestamps, c.Name)
	}
}
