package purge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

func TestParseCutoffSecondsAndMillisAgree(t *testing.T) {
	seconds, err := ParseCutoff(1700000000)
	require.NoError(t, err)
	millis, err := ParseCutoff(int64(1700000000000))
	require.NoError(t, err)
	assert.True(t, seconds.Equal(millis))
	assert.Equal(t, time.UTC, seconds.Location())
	assert.Equal(t, int64(1700000000000), seconds.UnixMilli())
}

func TestParseCutoffAcceptedForms(t *testing.T) {
	want := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	cases := map[string]any{
		"float seconds":       float64(1700000000),
		"float millis":        float64(1700000000000),
		"json number":         json.Number("1700000000"),
		"numeric string":      " 1700000000000 ",
		"rfc3339":             "2023-11-14T22:13:20Z",
		"rfc3339 with offset": "2023-11-15T05:13:20+07:00",
		"fractional seconds":  "2023-11-14T22:13:20.000Z",
		"no zone":             "2023-11-14T22:13:20",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ParseCutoff(raw)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}

	day, err := ParseCutoff("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), day)
}

func TestParseCutoffThreshold(t *testing.T) {
	justBelow, err := ParseCutoff(float64(SecondsThreshold - 1))
	require.NoError(t, err)
	assert.Equal(t, int64(SecondsThreshold-1)*1000, justBelow.UnixMilli())

	atThreshold, err := ParseCutoff(float64(SecondsThreshold))
	require.NoError(t, err)
	assert.Equal(t, int64(SecondsThreshold), atThreshold.UnixMilli())
}

func TestParseCutoffRejects(t *testing.T) {
	cases := map[string]any{
		"nil":       nil,
		"zero":      0,
		"negative":  -5,
		"blank":     "   ",
		"words":     "yesterday",
		"bool":      true,
		"slice":     []int{1},
		"pre epoch": "1969-12-31",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCutoff(raw)
			require.ErrorIs(t, err, shared.ErrInvalidArgument)
		})
	}
}
