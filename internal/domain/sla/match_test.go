package sla

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/domain/ticket"
)

func ptrPriority(p ticket.Priority) *ticket.Priority { return &p }
func ptrType(t ticket.Type) *ticket.Type             { return &t }
func ptrTier(t ticket.Tier) *ticket.Tier             { return &t }

func sampleTicket() *ticket.Ticket {
	return &ticket.Ticket{
		ID:           uuid.New(),
		Priority:     ticket.PriorityHigh,
		TicketType:   ticket.TypeService,
		CustomerTier: ticket.TierPremium,
	}
}

func TestPolicyMatches(t *testing.T) {
	tk := sampleTicket()

	catchAll := Policy{IsActive: true}
	if !catchAll.Matches(tk) {
		t.Fatalf("policy with no matchers should match any ticket")
	}

	exact := Policy{
		Priority:     ptrPriority(ticket.PriorityHigh),
		TicketType:   ptrType(ticket.TypeService),
		CustomerTier: ptrTier(ticket.TierPremium),
	}
	if !exact.Matches(tk) {
		t.Fatalf("fully specified matching policy should match")
	}

	wrongPriority := Policy{Priority: ptrPriority(ticket.PriorityLow)}
	if wrongPriority.Matches(tk) {
		t.Fatalf("policy with mismatched priority should not match")
	}

	wrongTier := Policy{
		Priority:     ptrPriority(ticket.PriorityHigh),
		CustomerTier: ptrTier(ticket.TierStandard),
	}
	if wrongTier.Matches(tk) {
		t.Fatalf("one mismatched matcher should fail the whole policy")
	}
}

func TestBestMatchPrefersSpecificity(t *testing.T) {
	tk := sampleTicket()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	broad := Policy{
		ID:        uuid.New(),
		Name:      "any high",
		Priority:  ptrPriority(ticket.PriorityHigh),
		IsActive:  true,
		CreatedAt: base,
	}
	narrow := Policy{
		ID:           uuid.New(),
		Name:         "high premium service",
		Priority:     ptrPriority(ticket.PriorityHigh),
		TicketType:   ptrType(ticket.TypeService),
		CustomerTier: ptrTier(ticket.TierPremium),
		IsActive:     true,
		CreatedAt:    base.Add(time.Hour),
	}

	got := BestMatch([]Policy{broad, narrow}, tk)
	if got == nil || got.ID != narrow.ID {
		t.Fatalf("expected most specific policy to win, got %+v", got)
	}
}

func TestBestMatchTieBreaksOnCreatedAt(t *testing.T) {
	tk := sampleTicket()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	older := Policy{
		ID:        uuid.New(),
		Priority:  ptrPriority(ticket.PriorityHigh),
		IsActive:  true,
		CreatedAt: base,
	}
	newer := Policy{
		ID:        uuid.New(),
		Priority:  ptrPriority(ticket.PriorityHigh),
		IsActive:  true,
		CreatedAt: base.Add(time.Minute),
	}

	got := BestMatch([]Policy{newer, older}, tk)
	if got == nil || got.ID != older.ID {
		t.Fatalf("expected earliest created policy to win the tie, got %+v", got)
	}
}

func TestBestMatchFallsBackToDefault(t *testing.T) {
	tk := sampleTicket()

	def := Policy{ID: uuid.New(), Name: "org default", IsActive: true, IsDefault: true,
		Priority: ptrPriority(ticket.PriorityLow)}
	other := Policy{ID: uuid.New(), Priority: ptrPriority(ticket.PriorityUrgent), IsActive: true}

	got := BestMatch([]Policy{def, other}, tk)
	if got == nil || got.ID != def.ID {
		t.Fatalf("expected fallback to org default, got %+v", got)
	}
}

func TestBestMatchSkipsInactiveAndReturnsNilWhenNothingApplies(t *testing.T) {
	tk := sampleTicket()

	inactive := Policy{ID: uuid.New(), IsActive: false}
	mismatch := Policy{ID: uuid.New(), Priority: ptrPriority(ticket.PriorityLow), IsActive: true}

	if got := BestMatch([]Policy{inactive, mismatch}, tk); got != nil {
		t.Fatalf("expected nil when no active policy matches and no default exists, got %+v", got)
	}

	inactiveDefault := Policy{ID: uuid.New(), IsActive: false, IsDefault: true}
	if got := BestMatch([]Policy{inactiveDefault, mismatch}, tk); got != nil {
		t.Fatalf("inactive default must not be used, got %+v", got)
	}
}

func TestDeadlines(t *testing.T) {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	p := Policy{ResponseTimeHours: 4, ResolutionTimeHours: 48}

	if got, want := p.ResponseDeadline(created), created.Add(4*time.Hour); !got.Equal(want) {
		t.Fatalf("response deadline: got %v want %v", got, want)
	}
	if got, want := p.ResolutionDeadline(created), created.Add(48*time.Hour); !got.Equal(want) {
		t.Fatalf("resolution deadline: got %v want %v", got, want)
	}

	half := Policy{ResponseTimeHours: 0.5, ResolutionTimeHours: 1.5}
	if got, want := half.ResponseDeadline(created), created.Add(30*time.Minute); !got.Equal(want) {
		t.Fatalf("fractional response deadline: got %v want %v", got, want)
	}
}
