package sladefault

import (
	"testing"

	"github.com/google/uuid"
)

func TestPoliciesForOrg(t *testing.T) {
	orgID := uuid.New()
	rows, err := PoliciesForOrg(orgID)
	if err != nil {
		t.Fatalf("PoliciesForOrg error: %v", err)
	}
	if len(rows) < 3 {
		t.Fatalf("expected several seed policies, got %d", len(rows))
	}

	defaults := 0
	for _, p := range rows {
		if p.OrgID != orgID {
			t.Errorf("policy %q has wrong org id", p.Name)
		}
		if !p.IsActive {
			t.Errorf("policy %q should seed active", p.Name)
		}
		if p.IsDefault {
			defaults++
			if p.Priority != nil || p.TicketType != nil || p.CustomerTier != nil {
				t.Errorf("default policy %q must have no matchers", p.Name)
			}
		}
		if p.ResponseTimeHours <= 0 || p.ResolutionTimeHours < p.ResponseTimeHours {
			t.Errorf("policy %q has invalid windows", p.Name)
		}
		if p.EscalationThresholdPercent <= 0 || p.EscalationThresholdPercent > 100 {
			t.Errorf("policy %q has out-of-range escalation threshold", p.Name)
		}
	}
	if defaults != 1 {
		t.Fatalf("expected exactly one default, got %d", defaults)
	}
}
