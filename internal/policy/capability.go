package policy

// Capability names a privileged action together with the directory flag
// spellings and page permission cell that grant it.
type Capability struct {
	Name string
	// Spellings are the capability flags that grant this capability. Older
	// records use the "can"-prefixed form.
	Spellings [2]string
	Page      string
	Action    Action
}

// Administrative capabilities.
var (
	CapInviteAdmins = Capability{Name: "invite-admins", Spellings: [2]string{"inviteAdmins", "canInviteAdmins"}, Page: "admins", Action: ActionCreate}
	CapManageAdmins = Capability{Name: "manage-admins", Spellings: [2]string{"manageAdmins", "canManageAdmins"}, Page: "admins", Action: ActionEdit}
	CapRemoveAdmins = Capability{Name: "remove-admins", Spellings: [2]string{"removeAdmins", "canRemoveAdmins"}, Page: "admins", Action: ActionDelete}
	CapViewAudit    = Capability{Name: "view-audit", Spellings: [2]string{"viewAudit", "canViewAudit"}, Page: "audit", Action: ActionView}
	CapPurgeLogs    = Capability{Name: "purge-logs", Spellings: [2]string{"purgeLogs", "canPurgeLogs"}, Page: "logs", Action: ActionDelete}
)

// Capabilities lists every known capability.
func Capabilities() []Capability {
	return []Capability{
		CapInviteAdmins,
		CapManageAdmins,
		CapRemoveAdmins,
		CapViewAudit,
		CapPurgeLogs,
	}
}

// KnownFlag reports whether flag is one of the recognised capability spellings.
func KnownFlag(flag string) bool {
	for _, c := range Capabilities() {
		if c.Spellings[0] == flag || c.Spellings[1] == flag {
			return true
		}
	}
	return false
}

func (c Capability) grantedBy(flags []string) bool {
	for _, f := range flags {
		if f == c.Spellings[0] || f == c.Spellings[1] {
			return true
		}
	}
	return false
}
