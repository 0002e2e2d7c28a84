package rbac

import (
	"strings"
	"testing"
)

func TestCatalogParses(t *testing.T) {
	catalog, err := Catalog()
	if err != nil {
		t.Fatalf("Catalog() error: %v", err)
	}
	if len(catalog) < 15 {
		t.Fatalf("catalog suspiciously small: %d entries", len(catalog))
	}
	seen := map[string]bool{}
	for _, e := range catalog {
		if seen[e.Code] {
			t.Errorf("duplicate code %q", e.Code)
		}
		seen[e.Code] = true
		if !strings.Contains(e.Code, ".") {
			t.Errorf("code %q is not resource.action shaped", e.Code)
		}
		if e.Description == "" {
			t.Errorf("code %q has no description", e.Code)
		}
	}
	for _, required := range []string{
		"org.manage", "members.manage", "roles.manage",
		"tickets.read", "tickets.manage", "tickets.approve_closure",
		"sla.read", "sla.manage", "gst.lookup", "mail.send",
	} {
		if !seen[required] {
			t.Errorf("catalog missing %q", required)
		}
	}
}

func TestParseCatalogRejectsBadEntries(t *testing.T) {
	_, err := parseCatalog([]byte("permissions:\n  - code: a.b\n    resource: a\n    action: c\n"))
	if err == nil {
		t.Fatal("expected mismatch error for code a.b vs resource.action a.c")
	}
	_, err = parseCatalog([]byte("permissions: []\n"))
	if err == nil {
		t.Fatal("expected error for empty catalog")
	}
}

func TestSystemRoles(t *testing.T) {
	catalog, err := Catalog()
	if err != nil {
		t.Fatalf("Catalog() error: %v", err)
	}
	grants := SystemRoles(catalog)
	if len(grants) != 4 {
		t.Fatalf("expected 4 system roles, got %d", len(grants))
	}
	byName := map[string]SystemRoleGrant{}
	for _, g := range grants {
		byName[g.Name] = g
	}

	owner := byName["Owner"]
	if len(owner.Codes) != len(catalog) {
		t.Errorf("Owner should hold every code: got %d want %d", len(owner.Codes), len(catalog))
	}

	admin := byName["Admin"]
	for _, c := range admin.Codes {
		if c == "org.manage" {
			t.Error("Admin must not carry org.manage")
		}
	}
	if len(admin.Codes) != len(catalog)-1 {
		t.Errorf("Admin should hold all but org.manage: got %d", len(admin.Codes))
	}

	viewer := byName["Viewer"]
	for _, c := range viewer.Codes {
		if !strings.HasSuffix(c, ".read") {
			t.Errorf("Viewer carries non-read code %q", c)
		}
	}

	agent := byName["Agent"]
	agentSet := map[string]bool{}
	for _, c := range agent.Codes {
		agentSet[c] = true
	}
	if !agentSet["tickets.manage"] || !agentSet["mail.send"] || !agentSet["gst.lookup"] {
		t.Errorf("Agent grant incomplete: %v", agent.Codes)
	}
	if agentSet["roles.manage"] || agentSet["tickets.approve_closure"] {
		t.Errorf("Agent grant too broad: %v", agent.Codes)
	}
}

func TestIsSystemRoleName(t *testing.T) {
	for _, name := range []string{"Owner", "Admin", "Agent", "Viewer"} {
		if !IsSystemRoleName(name) {
			t.Errorf("%s should be a system role", name)
		}
	}
	if IsSystemRoleName("Dispatcher") {
		t.Error("Dispatcher is not a system role")
	}
}
