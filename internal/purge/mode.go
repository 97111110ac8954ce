package purge

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// Wire names of the purge modes.
const (
	WireAll    = "all"
	WireByRID  = "byRid"
	WireBefore = "before"
)

// Mode selects which records a purge deletes. The set of modes is closed:
// All, ByCorrelationID and BeforeTimestamp.
type Mode interface {
	Name() string
	purgeMode()
}

// All deletes every record of every collection.
type All struct{}

// ByCorrelationID deletes records whose correlation id equals ID under any
// alias of the collection.
type ByCorrelationID struct{ ID string }

// BeforeTimestamp deletes records whose time is at or before Cutoff under
// any alias of the collection.
type BeforeTimestamp struct{ Cutoff time.Time }

func (All) Name() string             { return WireAll }
func (ByCorrelationID) Name() string { return WireByRID }
func (BeforeTimestamp) Name() string { return WireBefore }

func (All) purgeMode()             {}
func (ByCorrelationID) purgeMode() {}
func (BeforeTimestamp) purgeMode() {}

// Request is the wire form of a purge call.
type Request struct {
	Mode string `json:"mode" validate:"required,oneof=all byRid before"`
	RID  string `json:"rid,omitempty"`
	TS   any    `json:"ts,omitempty"`
}

var validate = validator.New()

// ParseMode validates req and returns the matching Mode.
func ParseMode(req Request) (Mode, error) {
	req.Mode = strings.TrimSpace(req.Mode)
	if err := validate.Struct(req); err != nil {
		if req.Mode == "" {
			return nil, shared.Invalid("purge mode required")
		}
		return nil, shared.Invalid("unknown purge mode %q", req.Mode)
	}
	switch req.Mode {
	case WireAll:
		return All{}, nil
	case WireByRID:
		rid := strings.TrimSpace(req.RID)
		if rid == "" {
			return nil, shared.Invalid("rid required for mode %s", WireByRID)
		}
		return ByCorrelationID{ID: rid}, nil
	default:
		cutoff, err := ParseCutoff(req.TS)
		if err != nil {
			return nil, err
		}
		return BeforeTimestamp{Cutoff: cutoff}, nil
	}
}

func checkMode(mode Mode) error {
	switch m := mode.(type) {
	case All:
		return nil
	case ByCorrelationID:
		if strings.TrimSpace(m.ID) == "" {
			return shared.Invalid("rid required for mode %s", WireByRID)
		}
		return nil
	case BeforeTimestamp:
		if m.Cutoff.IsZero() || m.Cutoff.UnixMilli() <= 0 {
			return shared.Invalid("cutoff must be a positive instant")
		}
		return nil
	default:
		return shared.Invalid("purge mode required")
	}
}
