package admin

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-admin/internal/policy"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// Repository defines persistence operations for the admin directory. Write
// methods only touch the columns they name.
type Repository interface {
	Get(ctx context.Context, emailKey string) (Record, error)
	UpsertRole(ctx context.Context, emailKey, role string, capabilities []string, updatedBy string) error
	Invite(ctx context.Context, emailKey, role string, capabilities []string, updatedBy string) error
	SoftDisable(ctx context.Context, emailKey, updatedBy string) error
	Enable(ctx context.Context, emailKey, updatedBy string) error
	MergePagePermissions(ctx context.Context, emailKey string, perms map[string]policy.PagePermission, updatedBy string) error
	HardDelete(ctx context.Context, emailKey string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Get fetches a record by key. A NULL enabled column reads as true.
func (r *PGRepository) Get(ctx context.Context, emailKey string) (Record, error) {
	var (
		rec     Record
		enabled *bool
		perms   []byte
		by      *string
	)
	err := r.pool.QueryRow(ctx, `SELECT email_key, role, enabled, COALESCE(capabilities, '{}'), page_permissions, updated_at, updated_by
FROM admin_directory WHERE email_key = $1`, emailKey).Scan(
		&rec.EmailKey, &rec.Role, &enabled, &rec.Capabilities, &perms, &rec.UpdatedAt, &by,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, shared.ErrNotFound
		}
		return Record{}, err
	}
	rec.Enabled = enabled == nil || *enabled
	if by != nil {
		rec.UpdatedBy = *by
	}
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &rec.PagePermissions); err != nil {
			return Record{}, err
		}
	}
	return rec, nil
}

// UpsertRole creates the record or merges role and capabilities into it. An
// empty role or nil capabilities keep the stored value.
func (r *PGRepository) UpsertRole(ctx context.Context, emailKey, role string, capabilities []string, updatedBy string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO admin_directory (email_key, role, capabilities, updated_at, updated_by)
VALUES ($1, COALESCE(NULLIF($2, ''), 'viewer'), COALESCE($3::text[], '{}'), now(), $4)
ON CONFLICT (email_key) DO UPDATE SET
	role = COALESCE(NULLIF($2, ''), admin_directory.role),
	capabilities = COALESCE($3::text[], admin_directory.capabilities),
	updated_at = now(),
	updated_by = $4`, emailKey, role, capabilities, updatedBy)
	return err
}

// Invite is UpsertRole that also re-enables the record.
func (r *PGRepository) Invite(ctx context.Context, emailKey, role string, capabilities []string, updatedBy string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO admin_directory (email_key, role, enabled, capabilities, updated_at, updated_by)
VALUES ($1, COALESCE(NULLIF($2, ''), 'viewer'), TRUE, COALESCE($3::text[], '{}'), now(), $4)
ON CONFLICT (email_key) DO UPDATE SET
	role = COALESCE(NULLIF($2, ''), admin_directory.role),
	enabled = TRUE,
	capabilities = COALESCE($3::text[], admin_directory.capabilities),
	updated_at = now(),
	updated_by = $4`, emailKey, role, capabilities, updatedBy)
	return err
}

// SoftDisable sets enabled=false, role=viewer and clears capabilities.
func (r *PGRepository) SoftDisable(ctx context.Context, emailKey, updatedBy string) error {
	return r.execOne(ctx, `UPDATE admin_directory SET enabled = FALSE, role = 'viewer', capabilities = '{}', updated_at = now(), updated_by = $2 WHERE email_key = $1`, emailKey, updatedBy)
}

// Enable reverses SoftDisable's enabled flag. Role and capabilities are not restored.
func (r *PGRepository) Enable(ctx context.Context, emailKey, updatedBy string) error {
	return r.execOne(ctx, `UPDATE admin_directory SET enabled = TRUE, updated_at = now(), updated_by = $2 WHERE email_key = $1`, emailKey, updatedBy)
}

// MergePagePermissions replaces the given pages and keeps every other page.
func (r *PGRepository) MergePagePermissions(ctx context.Context, emailKey string, perms map[string]policy.PagePermission, updatedBy string) error {
	payload, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	return r.execOne(ctx, `UPDATE admin_directory SET page_permissions = COALESCE(page_permissions, '{}'::jsonb) || $2::jsonb, updated_at = now(), updated_by = $3 WHERE email_key = $1`, emailKey, payload, updatedBy)
}

// HardDelete removes the record permanently.
func (r *PGRepository) HardDelete(ctx context.Context, emailKey string) error {
	return r.execOne(ctx, `DELETE FROM admin_directory WHERE email_key = $1`, emailKey)
}

func (r *PGRepository) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
