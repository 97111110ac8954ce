package admin

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/odyssey-admin/internal/policy"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// Directory is the admin directory: authorization profiles keyed by
// canonical email. Concurrent writes to the same field are last-writer-wins.
type Directory struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
}

// NewDirectory builds a Directory. cache may be nil.
func NewDirectory(repo Repository, cache *Cache, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{repo: repo, cache: cache, logger: logger}
}

// LoadByEmail returns the normalized record for email.
func (d *Directory) LoadByEmail(ctx context.Context, email string) (Record, error) {
	key, err := CanonicalEmail(email)
	if err != nil {
		return Record{}, err
	}
	if rec, ok, err := d.cache.Get(ctx, key); err != nil {
		d.logger.Warn("admin cache get", slog.String("email", key), slog.Any("error", err))
	} else if ok {
		return rec.normalized(), nil
	}
	gen, genErr := d.cache.Generation(ctx, key)
	if genErr != nil {
		d.logger.Warn("admin cache generation", slog.String("email", key), slog.Any("error", genErr))
	}
	rec, err := d.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Record{}, shared.NotFound("admin record not found")
		}
		return Record{}, shared.Internal("admin lookup failed", err)
	}
	rec = rec.normalized()
	if genErr == nil {
		if err := d.cache.Set(ctx, rec, gen); err != nil {
			d.logger.Warn("admin cache set", slog.String("email", key), slog.Any("error", err))
		}
	}
	return rec, nil
}

// LoadProfile implements policy.ProfileLoader.
func (d *Directory) LoadProfile(ctx context.Context, email string) (policy.Profile, error) {
	rec, err := d.LoadByEmail(ctx, email)
	if err != nil {
		return policy.Profile{}, err
	}
	return rec.Profile(), nil
}

// UpsertRole merges role and capabilities into the record for email,
// creating it when missing. Other fields are left untouched.
func (d *Directory) UpsertRole(ctx context.Context, email, role string, capabilities []string, actor policy.Actor) error {
	key, role, capabilities, err := prepareRoleWrite(email, role, capabilities)
	if err != nil {
		return err
	}
	return d.write(ctx, key, "upsert role", func() error {
		return d.repo.UpsertRole(ctx, key, role, capabilities, updatedBy(actor))
	})
}

// Invite creates or re-enables the record for email.
func (d *Directory) Invite(ctx context.Context, email, role string, capabilities []string, actor policy.Actor) error {
	key, role, capabilities, err := prepareRoleWrite(email, role, capabilities)
	if err != nil {
		return err
	}
	if role == "" {
		role = RoleViewer
	}
	return d.write(ctx, key, "invite", func() error {
		return d.repo.Invite(ctx, key, role, capabilities, updatedBy(actor))
	})
}

// SoftDisable sets enabled=false, role=viewer and clears capabilities. It is
// reversed with Enable or Invite.
func (d *Directory) SoftDisable(ctx context.Context, email string, actor policy.Actor) error {
	key, err := CanonicalEmail(email)
	if err != nil {
		return err
	}
	return d.write(ctx, key, "soft disable", func() error {
		return d.repo.SoftDisable(ctx, key, updatedBy(actor))
	})
}

// Enable re-enables a soft-disabled record.
func (d *Directory) Enable(ctx context.Context, email string, actor policy.Actor) error {
	key, err := CanonicalEmail(email)
	if err != nil {
		return err
	}
	return d.write(ctx, key, "enable", func() error {
		return d.repo.Enable(ctx, key, updatedBy(actor))
	})
}

// SetPagePermissions replaces the listed pages of the permission matrix.
func (d *Directory) SetPagePermissions(ctx context.Context, email string, perms map[string]policy.PagePermission, actor policy.Actor) error {
	key, err := CanonicalEmail(email)
	if err != nil {
		return err
	}
	if len(perms) == 0 {
		return shared.Invalid("page permissions required")
	}
	clean := make(map[string]policy.PagePermission, len(perms))
	for page, perm := range perms {
		page = strings.TrimSpace(page)
		if page == "" {
			return shared.Invalid("page key required")
		}
		clean[page] = perm
	}
	return d.write(ctx, key, "set page permissions", func() error {
		return d.repo.MergePagePermissions(ctx, key, clean, updatedBy(actor))
	})
}

// HardDelete permanently removes the record for email.
func (d *Directory) HardDelete(ctx context.Context, email string) error {
	key, err := CanonicalEmail(email)
	if err != nil {
		return err
	}
	return d.write(ctx, key, "hard delete", func() error {
		return d.repo.HardDelete(ctx, key)
	})
}

func (d *Directory) write(ctx context.Context, key, op string, fn func() error) error {
	if err := fn(); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("admin record not found")
		}
		return shared.Internal("admin "+op+" failed", err)
	}
	// A stale cached record could keep a disabled admin enabled, so a failed
	// invalidation fails the call. Every write is safe to repeat.
	if err := d.cache.Invalidate(ctx, key); err != nil {
		d.logger.Error("admin cache invalidate", slog.String("email", key), slog.String("op", op), slog.Any("error", err))
		return shared.Internal("admin "+op+" saved but cache invalidation failed, retry the request", err)
	}
	return nil
}

func prepareRoleWrite(email, role string, capabilities []string) (string, string, []string, error) {
	key, err := CanonicalEmail(email)
	if err != nil {
		return "", "", nil, err
	}
	role = policy.NormalizeRole(role)
	if role != "" && !ValidRole(role) {
		return "", "", nil, shared.Invalid("unknown role %q", role)
	}
	if capabilities == nil {
		return key, role, nil, nil
	}
	seen := make(map[string]struct{}, len(capabilities))
	clean := make([]string, 0, len(capabilities))
	for _, c := range capabilities {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if !policy.KnownFlag(c) {
			return "", "", nil, shared.Invalid("unknown capability %q", c)
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		clean = append(clean, c)
	}
	return key, role, clean, nil
}

func updatedBy(actor policy.Actor) string {
	if email := strings.TrimSpace(actor.Email); email != "" {
		return strings.ToLower(email)
	}
	if uid := strings.TrimSpace(actor.UID); uid != "" {
		return uid
	}
	return "system"
}
