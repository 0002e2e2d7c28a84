// Package sladefault carries the embedded baseline SLA policies seeded at
// organization creation.
package sladefault

import (
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/veldtops/fieldsuite-backend/internal/domain/sla"
	"github.com/veldtops/fieldsuite-backend/internal/domain/ticket"
)

//go:embed policies.yaml
var policiesYAML []byte

type seedPolicy struct {
	Name                       string  `yaml:"name"`
	Description                string  `yaml:"description"`
	Priority                   string  `yaml:"priority"`
	TicketType                 string  `yaml:"ticket_type"`
	CustomerTier               string  `yaml:"customer_tier"`
	ResponseTimeHours          float64 `yaml:"response_time_hours"`
	ResolutionTimeHours        float64 `yaml:"resolution_time_hours"`
	EscalationThresholdPercent int     `yaml:"escalation_threshold_percent"`
	Default                    bool    `yaml:"default"`
}

type seedFile struct {
	Policies []seedPolicy `yaml:"policies"`
}

// PoliciesForOrg materializes the embedded seed set as rows for one org.
func PoliciesForOrg(orgID uuid.UUID) ([]*sla.Policy, error) {
	var file seedFile
	if err := yaml.Unmarshal(policiesYAML, &file); err != nil {
		return nil, fmt.Errorf("parse sla policy seeds: %w", err)
	}
	if len(file.Policies) == 0 {
		return nil, fmt.Errorf("sla policy seed file is empty")
	}

	defaults := 0
	out := make([]*sla.Policy, 0, len(file.Policies))
	for i, p := range file.Policies {
		if p.Name == "" {
			return nil, fmt.Errorf("sla seed %d has no name", i)
		}
		if p.ResponseTimeHours <= 0 || p.ResolutionTimeHours < p.ResponseTimeHours {
			return nil, fmt.Errorf("sla seed %q has invalid windows", p.Name)
		}
		row := &sla.Policy{
			OrgID:                      orgID,
			Name:                       p.Name,
			Description:                p.Description,
			ResponseTimeHours:          p.ResponseTimeHours,
			ResolutionTimeHours:        p.ResolutionTimeHours,
			EscalationThresholdPercent: p.EscalationThresholdPercent,
			IsDefault:                  p.Default,
			IsActive:                   true,
		}
		if row.EscalationThresholdPercent <= 0 || row.EscalationThresholdPercent > 100 {
			row.EscalationThresholdPercent = 80
		}
		if p.Priority != "" {
			pr := ticket.Priority(p.Priority)
			if !pr.Valid() {
				return nil, fmt.Errorf("sla seed %q has unknown priority %q", p.Name, p.Priority)
			}
			row.Priority = &pr
		}
		if p.TicketType != "" {
			tt := ticket.Type(p.TicketType)
			if !tt.Valid() {
				return nil, fmt.Errorf("sla seed %q has unknown ticket type %q", p.Name, p.TicketType)
			}
			row.TicketType = &tt
		}
		if p.CustomerTier != "" {
			tier := ticket.Tier(p.CustomerTier)
			if !tier.Valid() {
				return nil, fmt.Errorf("sla seed %q has unknown customer tier %q", p.Name, p.CustomerTier)
			}
			row.CustomerTier = &tier
		}
		if p.Default {
			defaults++
		}
		out = append(out, row)
	}
	if defaults != 1 {
		return nil, fmt.Errorf("sla policy seeds must set exactly one default, found %d", defaults)
	}
	return out, nil
}
