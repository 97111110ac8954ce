// Package audit writes the append-only trail of privileged actions.
//
// Payloads are sanitized before persistence: fields that were not provided are
// removed at every depth while explicit nulls are kept. Event timestamps are
// assigned by the database, never by the caller.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-admin/internal/policy"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// Entry is the caller-supplied part of an audit event.
type Entry struct {
	Action string
	Actor  Value
	Target Value
	Note   string
	Extra  Value
}

// Event is a persisted audit record.
type Event struct {
	ID     string
	Action string
	At     time.Time
	Actor  Value
	Target Value
	Note   string
	Extra  Value
}

// Repository persists events and returns the timestamp assigned by storage.
type Repository interface {
	Insert(ctx context.Context, event Event) (time.Time, error)
}

// Sink records audit events.
type Sink struct {
	repo  Repository
	newID func() string
}

// NewSink constructs a Sink.
func NewSink(repo Repository) *Sink {
	return &Sink{repo: repo, newID: uuid.NewString}
}

// Record sanitizes and persists entry, returning the event id. When scope
// already holds an identical (action, target) event, its id is returned and
// nothing is written. A nil scope falls back to the one carried by ctx.
func (s *Sink) Record(ctx context.Context, scope *Scope, entry Entry) (string, error) {
	if s == nil || s.repo == nil {
		return "", fmt.Errorf("audit: sink not configured")
	}
	if scope == nil {
		scope = ScopeFrom(ctx)
	}
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return "", shared.Invalid("audit action required")
	}
	event := Event{
		ID:     s.newID(),
		Action: action,
		Actor:  Sanitize(entry.Actor),
		Target: Sanitize(entry.Target),
		Note:   strings.TrimSpace(entry.Note),
		Extra:  Sanitize(entry.Extra),
	}
	key, err := scope.key(event)
	if err != nil {
		return "", fmt.Errorf("audit: scope key: %w", err)
	}
	if id, ok := scope.lookup(key); ok {
		return id, nil
	}
	if _, err := s.repo.Insert(ctx, event); err != nil {
		return "", fmt.Errorf("audit: record %s: %w", action, err)
	}
	scope.remember(key, event.ID)
	return event.ID, nil
}

// Best records entry and swallows any failure after logging it. Audit is
// best-effort: a failed write never fails the action being audited.
func Best(ctx context.Context, sink *Sink, logger *slog.Logger, scope *Scope, entry Entry) string {
	id, err := sink.Record(ctx, scope, entry)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("audit write failed",
			slog.String("action", entry.Action),
			slog.Any("error", err),
		)
		return ""
	}
	return id
}

// ActorValue describes actor for the trail, or Tag("unknown") when no
// verified identity is available.
func ActorValue(actor policy.Actor) Value {
	if !actor.Authenticated() {
		return Tag("unknown")
	}
	return Object(map[string]Value{
		"email": optionalString(actor.Email),
		"uid":   optionalString(actor.UID),
		"role":  optionalString(actor.Role),
	})
}

func optionalString(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Absent()
	}
	return String(s)
}
