package admin

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/odyssey-erp/odyssey-admin/internal/policy"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// Roles stored in the directory.
const (
	RoleSuperadmin = policy.RoleSuperadmin
	RoleAdmin      = "admin"
	RoleEditor     = "editor"
	RoleViewer     = "viewer"
)

// Record is the persisted authorization profile of one administrator.
type Record struct {
	EmailKey        string                           `json:"emailKey"`
	Role            string                           `json:"role"`
	Enabled         bool                             `json:"enabled"`
	Capabilities    []string                         `json:"capabilities"`
	PagePermissions map[string]policy.PagePermission `json:"pagePermissions"`
	UpdatedAt       time.Time                        `json:"updatedAt"`
	UpdatedBy       string                           `json:"updatedBy"`
}

// Profile converts the record to the evaluator's view.
func (r Record) Profile() policy.Profile {
	return policy.Profile{
		Email:           r.EmailKey,
		Role:            r.Role,
		Enabled:         r.Enabled,
		Capabilities:    r.Capabilities,
		PagePermissions: r.PagePermissions,
	}
}

func (r Record) normalized() Record {
	r.Role = policy.NormalizeRole(r.Role)
	if r.Capabilities == nil {
		r.Capabilities = []string{}
	}
	if r.PagePermissions == nil {
		r.PagePermissions = map[string]policy.PagePermission{}
	}
	return r
}

var validate = validator.New()

// CanonicalEmail returns the directory key for email: NFC-normalized,
// trimmed and lower-cased.
func CanonicalEmail(email string) (string, error) {
	key := strings.ToLower(norm.NFC.String(strings.TrimSpace(email)))
	if key == "" {
		return "", shared.Invalid("email required")
	}
	if err := validate.Var(key, "email"); err != nil {
		return "", shared.Invalid("invalid email %q", email)
	}
	return key, nil
}

// ValidRole reports whether role is one of the directory roles.
func ValidRole(role string) bool {
	switch policy.NormalizeRole(role) {
	case RoleSuperadmin, RoleAdmin, RoleEditor, RoleViewer:
		return true
	default:
		return false
	}
}
