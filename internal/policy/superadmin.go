package policy

import "strings"

// RoleSuperadmin is the canonical superadmin role name.
const RoleSuperadmin = "superadmin"

// LegacyFlagClaims are the boolean token claims that each mean "superadmin".
var LegacyFlagClaims = []string{"superadmin", "isSuperadmin", "isSuperAdmin", "super_admin"}

// SuperadminSource names the single reason an actor was recognised as a
// superadmin. The set of variants is closed.
type SuperadminSource interface {
	superadminSource()
	String() string
}

// RoleClaim matched the token role claim.
type RoleClaim struct{ Role string }

// FlagClaim matched one of LegacyFlagClaims.
type FlagClaim struct{ Name string }

// CapabilityClaim matched a "superadmin" entry in the token capability list.
type CapabilityClaim struct{ Value string }

// DirectoryRole matched the role stored in the admin directory.
type DirectoryRole struct{ Role string }

func (RoleClaim) superadminSource()       {}
func (FlagClaim) superadminSource()       {}
func (CapabilityClaim) superadminSource() {}
func (DirectoryRole) superadminSource()   {}

func (s RoleClaim) String() string       { return "token-role:" + s.Role }
func (s FlagClaim) String() string       { return "token-flag:" + s.Name }
func (s CapabilityClaim) String() string { return "token-capability:" + s.Value }
func (s DirectoryRole) String() string   { return "directory-role:" + s.Role }

type superadminRule struct {
	// widened rules only count for the bulk purge check.
	widened bool
	match   func(Actor, *Profile) (SuperadminSource, bool)
}

var superadminRules = []superadminRule{
	{match: func(a Actor, _ *Profile) (SuperadminSource, bool) {
		if IsSuperadminRole(a.Role) {
			return RoleClaim{Role: a.Role}, true
		}
		return nil, false
	}},
	{match: func(_ Actor, p *Profile) (SuperadminSource, bool) {
		if p != nil && IsSuperadminRole(p.Role) {
			return DirectoryRole{Role: p.Role}, true
		}
		return nil, false
	}},
	{widened: true, match: func(a Actor, _ *Profile) (SuperadminSource, bool) {
		for _, name := range LegacyFlagClaims {
			if a.Flags[name] {
				return FlagClaim{Name: name}, true
			}
		}
		return nil, false
	}},
	{widened: true, match: func(a Actor, _ *Profile) (SuperadminSource, bool) {
		for _, c := range a.Capabilities {
			if strings.EqualFold(strings.TrimSpace(c), RoleSuperadmin) {
				return CapabilityClaim{Value: c}, true
			}
		}
		return nil, false
	}},
}

// ResolveSuperadmin applies every superadmin rule, including the widened
// legacy token checks, and returns the first variant that matched.
func ResolveSuperadmin(actor Actor, profile *Profile) (SuperadminSource, bool) {
	return resolveSuperadmin(actor, profile, true)
}

func resolveSuperadmin(actor Actor, profile *Profile, widened bool) (SuperadminSource, bool) {
	for _, rule := range superadminRules {
		if rule.widened && !widened {
			continue
		}
		if src, ok := rule.match(actor, profile); ok {
			return src, true
		}
	}
	return nil, false
}

// IsSuperadminRole compares role against RoleSuperadmin ignoring case and
// the separators used by older writers ("super_admin", "Super-Admin").
func IsSuperadminRole(role string) bool {
	return NormalizeRole(strings.NewReplacer("_", "", "-", "", " ", "").Replace(role)) == RoleSuperadmin
}

// NormalizeRole trims and lower-cases a role.
func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
