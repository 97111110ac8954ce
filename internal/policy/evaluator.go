// Package policy decides whether an authenticated actor may perform a
// privileged capability, reconciling token claims with the admin directory.
package policy

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// ProfileLoader reads the directory profile for an email. It returns
// shared.ErrNotFound when no record exists and shared.ErrInvalidArgument when
// email is not a directory key.
type ProfileLoader interface {
	LoadProfile(ctx context.Context, email string) (Profile, error)
}

// Grant describes an allowed bulk purge.
type Grant struct {
	Actor  Actor
	Source SuperadminSource
}

// Evaluator authorizes actors against capabilities.
type Evaluator struct {
	profiles ProfileLoader
	logger   *slog.Logger
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(profiles ProfileLoader, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{profiles: profiles, logger: logger}
}

// Authorize returns nil when actor may perform capability. Resolution order:
// superadmin role (token or directory), capability flag in either spelling,
// page permission cell. Disabled directory records are always denied.
func (e *Evaluator) Authorize(ctx context.Context, actor Actor, capability Capability) error {
	if !actor.Authenticated() {
		return shared.Unauthenticated("verified identity required")
	}
	profile, err := e.lookup(ctx, actor)
	if err != nil {
		return err
	}
	if profile != nil && !profile.Enabled {
		return shared.Forbidden(shared.ReasonDisabled)
	}
	if _, ok := resolveSuperadmin(actor, profile, false); ok {
		return nil
	}
	if profile == nil {
		return shared.Forbidden(shared.ReasonNotFound)
	}
	if capability.grantedBy(profile.Capabilities) {
		return nil
	}
	if perm, ok := profile.PagePermissions[capability.Page]; ok && perm.Allows(capability.Action) {
		return nil
	}
	return shared.Forbidden(shared.ReasonInsufficientCapability)
}

// AuthorizePurge applies the widened superadmin check used by bulk purge. Any
// of the superadmin variants is sufficient; capability flags and page
// permissions are not.
func (e *Evaluator) AuthorizePurge(ctx context.Context, actor Actor) (Grant, error) {
	if !actor.Authenticated() {
		return Grant{}, shared.Unauthenticated("verified identity required")
	}
	profile, err := e.lookup(ctx, actor)
	if err != nil {
		return Grant{}, err
	}
	if profile != nil && !profile.Enabled {
		return Grant{}, shared.Forbidden(shared.ReasonDisabled)
	}
	src, ok := ResolveSuperadmin(actor, profile)
	if !ok {
		return Grant{}, shared.Forbidden(shared.ReasonInsufficientCapability)
	}
	e.logger.Info("purge authorized",
		slog.String("actor", actor.Email),
		slog.String("source", src.String()),
	)
	return Grant{Actor: actor, Source: src}, nil
}

func (e *Evaluator) lookup(ctx context.Context, actor Actor) (*Profile, error) {
	email := strings.TrimSpace(actor.Email)
	if email == "" || e.profiles == nil {
		return nil, nil
	}
	profile, err := e.profiles.LoadProfile(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		// The directory cannot hold a record for an email it rejects, so the
		// actor is judged on token claims alone.
		if errors.Is(err, shared.ErrInvalidArgument) {
			e.logger.Warn("policy directory lookup skipped", slog.String("email", email), slog.Any("error", err))
			return nil, nil
		}
		e.logger.Error("policy directory lookup", slog.String("email", email), slog.Any("error", err))
		return nil, shared.Internal("directory lookup failed", err)
	}
	profile.Role = NormalizeRole(profile.Role)
	return &profile, nil
}
