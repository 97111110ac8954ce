package policy

import "strings"

// Actor is the verified identity attempting an action, plus the hints its
// token carried. It is built per request and never persisted.
type Actor struct {
	UID          string
	Email        string
	Role         string
	Capabilities []string
	// Flags holds boolean claims keyed by claim name, e.g. "isSuperadmin".
	Flags map[string]bool
}

// Authenticated reports whether the actor carries a verified identity.
func (a Actor) Authenticated() bool {
	return strings.TrimSpace(a.Email) != "" || strings.TrimSpace(a.UID) != ""
}

// Action is one cell column of the page permission matrix.
type Action string

// Page permission actions.
const (
	ActionView   Action = "view"
	ActionEdit   Action = "edit"
	ActionCreate Action = "create"
	ActionDelete Action = "delete"
)

// PagePermission is one row of the page permission matrix.
type PagePermission struct {
	CanView   bool `json:"canView"`
	CanEdit   bool `json:"canEdit"`
	CanCreate bool `json:"canCreate"`
	CanDelete bool `json:"canDelete"`
}

// Allows reports whether the row grants action.
func (p PagePermission) Allows(action Action) bool {
	switch action {
	case ActionView:
		return p.CanView
	case ActionEdit:
		return p.CanEdit
	case ActionCreate:
		return p.CanCreate
	case ActionDelete:
		return p.CanDelete
	default:
		return false
	}
}

// Profile is the directory view the evaluator needs for one administrator.
type Profile struct {
	Email           string
	Role            string
	Enabled         bool
	Capabilities    []string
	PagePermissions map[string]PagePermission
}
