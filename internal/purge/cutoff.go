package purge

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// SecondsThreshold separates second-scale from millisecond-scale epoch
// values. Values below it are seconds and are multiplied by 1000.
const SecondsThreshold = 1e11

var cutoffLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseCutoff resolves a purge cutoff from an epoch number (seconds or
// milliseconds), a numeric string, or an ISO-8601 string. The result is in UTC.
func ParseCutoff(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, shared.Invalid("cutoff required for mode %s", WireBefore)
	case int:
		return fromEpoch(float64(v))
	case int64:
		return fromEpoch(float64(v))
	case float64:
		return fromEpoch(v)
	case json.Number:
		return parseCutoffString(v.String())
	case string:
		return parseCutoffString(v)
	case time.Time:
		if v.IsZero() || v.UnixMilli() <= 0 {
			return time.Time{}, shared.Invalid("cutoff must be a positive instant")
		}
		return v.UTC(), nil
	default:
		return time.Time{}, shared.Invalid("unsupported cutoff type %T", raw)
	}
}

func parseCutoffString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, shared.Invalid("cutoff required for mode %s", WireBefore)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpoch(f)
	}
	for _, layout := range cutoffLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.UnixMilli() <= 0 {
				return time.Time{}, shared.Invalid("cutoff must be a positive instant")
			}
			return t.UTC(), nil
		}
	}
	return time.Time{}, shared.Invalid("unparseable cutoff %q", s)
}

func fromEpoch(v float64) (time.Time, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return time.Time{}, shared.Invalid("cutoff must be a positive epoch value")
	}
	if v < SecondsThreshold {
		v *= 1000
	}
	return time.UnixMilli(int64(v)).UTC(), nil
}
