package rbac

import (
	"strings"

	domrbac "github.com/veldtops/fieldsuite-backend/internal/domain/rbac"
)

// SystemRoleGrant describes one seeded role and the permission codes it
// carries. Owner's grant is the whole catalog; the others are carved out of
// it so a new catalog code lands in Owner automatically and everywhere else
// by explicit decision.
type SystemRoleGrant struct {
	Name        string
	Description string
	Codes       []string
}

// SystemRoles expands the four seeded roles against the given catalog.
func SystemRoles(catalog []CatalogEntry) []SystemRoleGrant {
	all := make([]string, 0, len(catalog))
	reads := make([]string, 0, len(catalog))
	for _, e := range catalog {
		all = append(all, e.Code)
		if e.Action == "read" {
			reads = append(reads, e.Code)
		}
	}

	adminCodes := make([]string, 0, len(all))
	for _, code := range all {
		if code == "org.manage" {
			continue
		}
		adminCodes = append(adminCodes, code)
	}

	agentCodes := []string{
		"tickets.read", "tickets.manage",
		"jobs.read", "jobs.manage",
		"feedback.read", "feedback.manage",
		"documents.read", "documents.manage",
		"mail.send",
		"sla.read",
		"expenses.read",
		"gst.lookup",
	}

	return []SystemRoleGrant{
		{Name: domrbac.RoleOwner, Description: "Full control of the organization", Codes: all},
		{Name: domrbac.RoleAdmin, Description: "Everything except organization management", Codes: adminCodes},
		{Name: domrbac.RoleAgent, Description: "Field and support work", Codes: intersect(agentCodes, all)},
		{Name: domrbac.RoleViewer, Description: "Read-only access", Codes: reads},
	}
}

// IsSystemRoleName guards rename/delete of the seeded roles.
func IsSystemRoleName(name string) bool {
	switch strings.TrimSpace(name) {
	case domrbac.RoleOwner, domrbac.RoleAdmin, domrbac.RoleAgent, domrbac.RoleViewer:
		return true
	default:
		return false
	}
}

func intersect(want, have []string) []string {
	set := make(map[string]struct{}, len(have))
	for _, c := range have {
		set[c] = struct{}{}
	}
	out := make([]string, 0, len(want))
	for _, c := range want {
		if _, ok := set[c]; ok {
			out = append(out, c)
		}
	}
	return out
}
