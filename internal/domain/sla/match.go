package sla

import (
	"github.com/veldtops/fieldsuite-backend/internal/domain/ticket"
)

// Matches reports whether every set matcher on the policy equals the ticket's
// value. A policy with no matchers set matches every ticket.
func (p *Policy) Matches(t *ticket.Ticket) bool {
	if p == nil || t == nil {
		return false
	}
	if p.Priority != nil && *p.Priority != t.Priority {
		return false
	}
	if p.TicketType != nil && *p.TicketType != t.TicketType {
		return false
	}
	if p.CustomerTier != nil && *p.CustomerTier != t.CustomerTier {
		return false
	}
	return true
}

// Specificity counts set matchers; more specific policies win ties over
// broader ones.
func (p *Policy) Specificity() int {
	n := 0
	if p.Priority != nil {
		n++
	}
	if p.TicketType != nil {
		n++
	}
	if p.CustomerTier != nil {
		n++
	}
	return n
}

// BestMatch picks the active policy for a ticket: highest specificity among
// matching policies, ties broken by earliest created_at. When nothing matches
// it falls back to the org default; nil means the ticket goes untracked.
func BestMatch(policies []Policy, t *ticket.Ticket) *Policy {
	var best *Policy
	for i := range policies {
		p := &policies[i]
		if !p.IsActive || !p.Matches(t) {
			continue
		}
		if best == nil {
			best = p
			continue
		}
		if p.Specificity() > best.Specificity() {
			best = p
			continue
		}
		if p.Specificity() == best.Specificity() && p.CreatedAt.Before(best.CreatedAt) {
			best = p
		}
	}
	if best != nil {
		return best
	}
	for i := range policies {
		p := &policies[i]
		if p.IsActive && p.IsDefault {
			return p
		}
	}
	return nil
}
