// Package purge deletes historical log records in pages across the log
// collections.
//
// Each page is deleted in its own transaction; there is no global rollback.
// Concurrent purges are not serialized, and records inserted while a purge
// runs may or may not be swept.
package purge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-admin/internal/audit"
	jobmetrics "github.com/odyssey-erp/odyssey-admin/internal/jobs"
	"github.com/odyssey-erp/odyssey-admin/internal/policy"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// Defaults applied when Config leaves a value unset.
const (
	DefaultPageSize = 300
	DefaultBudget   = 2 * time.Minute
)

// Config tunes the page loop.
type Config struct {
	PageSize int
	Budget   time.Duration
}

// Result reports a completed purge.
type Result struct {
	Mode         string `json:"mode"`
	DeletedCount int    `json:"deletedCount"`
}

// FatalError aborts a purge. Pages committed before it stay deleted and no
// count is reported.
type FatalError struct {
	Query string
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("purge aborted at %s: %v", e.Query, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Is reports fatal errors as internal failures.
func (e *FatalError) Is(target error) bool { return target == shared.ErrInternal }

// Authorizer applies the widened superadmin check.
type Authorizer interface {
	AuthorizePurge(ctx context.Context, actor policy.Actor) (policy.Grant, error)
}

// Engine runs purges.
type Engine struct {
	store       Store
	authz       Authorizer
	audit       *audit.Sink
	metrics     *jobmetrics.Metrics
	logger      *slog.Logger
	cfg         Config
	collections []Collection
}

// NewEngine constructs an Engine over Collections.
func NewEngine(store Store, authz Authorizer, sink *audit.Sink, metrics *jobmetrics.Metrics, logger *slog.Logger, cfg Config) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultBudget
	}
	return &Engine{
		store:       store,
		authz:       authz,
		audit:       sink,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		collections: Collections,
	}
}

// Purge validates mode, authorizes actor and deletes every matching record.
// The call is audited whether it completes or aborts.
func (e *Engine) Purge(ctx context.Context, actor policy.Actor, mode Mode) (Result, error) {
	if err := checkMode(mode); err != nil {
		return Result{}, err
	}
	grant, err := e.authz.AuthorizePurge(ctx, actor)
	if err != nil {
		return Result{}, err
	}

	logger := e.logger.With(slog.String("mode", mode.Name()), slog.String("grant", sourceName(grant)))
	tracker := e.metrics.Track(mode.Name())
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, e.cfg.Budget)
	total, err := e.run(runCtx, mode)
	cancel()
	_ = tracker.End(err)

	e.record(ctx, actor, grant, mode, total, err)
	if err != nil {
		logger.Error("purge aborted", slog.Any("error", err), slog.Duration("duration", time.Since(start)))
		return Result{}, err
	}
	logger.Info("purge completed", slog.Int("deleted", total), slog.Duration("duration", time.Since(start)))
	return Result{Mode: mode.Name(), DeletedCount: total}, nil
}

func (e *Engine) run(ctx context.Context, mode Mode) (int, error) {
	total := 0
	for _, c := range e.collections {
		for _, q := range queriesFor(c, mode) {
			n, err := e.drain(ctx, q)
			total += n
			e.metrics.AddDeleted(c.Name, n)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// drain deletes q's matches page by page. Deleted rows drop out of the next
// fetch, so a short page means the query is exhausted.
func (e *Engine) drain(ctx context.Context, q Query) (int, error) {
	deleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return deleted, e.fatal(q, err)
		}
		ids, err := e.store.FetchPage(ctx, q, e.cfg.PageSize)
		if err != nil {
			return deleted, e.fatal(q, err)
		}
		if len(ids) == 0 {
			return deleted, nil
		}
		n, err := e.store.DeleteBatch(ctx, q.Collection.Table, ids)
		if err != nil {
			return deleted, e.fatal(q, err)
		}
		deleted += n
		if len(ids) < e.cfg.PageSize {
			return deleted, nil
		}
	}
}

func (e *Engine) fatal(q Query, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("budget of %s exceeded: %w", e.cfg.Budget, err)
	}
	return &FatalError{Query: q.String(), Err: err}
}

func queriesFor(c Collection, mode Mode) []Query {
	switch m := mode.(type) {
	case ByCorrelationID:
		out := make([]Query, 0, len(c.Correlation))
		for i := range c.Correlation {
			out = append(out, Query{Collection: c, Field: &c.Correlation[i], Equals: m.ID})
		}
		return out
	case BeforeTimestamp:
		out := make([]Query, 0, len(c.Timestamps))
		for i := range c.Timestamps {
			out = append(out, Query{Collection: c, Field: &c.Timestamps[i], NotAfter: m.Cutoff})
		}
		return out
	default:
		return []Query{{Collection: c}}
	}
}

func (e *Engine) record(ctx context.Context, actor policy.Actor, grant policy.Grant, mode Mode, total int, runErr error) {
	target := map[string]audit.Value{"mode": audit.String(mode.Name())}
	switch m := mode.(type) {
	case ByCorrelationID:
		target["selector"] = audit.String(m.ID)
	case BeforeTimestamp:
		target["selector"] = audit.String(m.Cutoff.Format(time.RFC3339Nano))
	}
	extra := map[string]audit.Value{"grant": audit.String(sourceName(grant))}
	if rid := middleware.GetReqID(ctx); rid != "" {
		extra["rid"] = audit.String(rid)
	}
	note := "ok"
	if runErr != nil {
		note = "aborted: " + runErr.Error()
	} else {
		extra["deletedCount"] = audit.Int(int64(total))
	}
	audit.Best(context.WithoutCancel(ctx), e.audit, e.logger, audit.ScopeFrom(ctx), audit.Entry{
		Action: ActionPurge,
		Actor:  audit.ActorValue(actor),
		Target: audit.Object(target),
		Note:   note,
		Extra:  audit.Object(extra),
	})
}

func sourceName(grant policy.Grant) string {
	if grant.Source == nil {
		return "unknown"
	}
	return grant.Source.String()
}
