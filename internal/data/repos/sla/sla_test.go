package sla

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/data/repos/testutil"
	"github.com/veldtops/fieldsuite-backend/internal/domain/sla"
	"github.com/veldtops/fieldsuite-backend/internal/domain/ticket"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
)

func TestPolicyRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewPolicyRepo(db, testutil.Logger(t))

	o := testutil.SeedOrg(t, ctx, tx, "Policy Repo Org")

	urgent := ticket.PriorityUrgent
	rows, err := repo.Create(dbc, []*sla.Policy{
		{
			OrgID:                      o.ID,
			Name:                       "Standard",
			ResponseTimeHours:          8,
			ResolutionTimeHours:        72,
			EscalationThresholdPercent: 80,
			IsDefault:                  true,
			IsActive:                   true,
		},
		{
			OrgID:                      o.ID,
			Name:                       "Urgent",
			Priority:                   &urgent,
			ResponseTimeHours:          1,
			ResolutionTimeHours:        8,
			EscalationThresholdPercent: 50,
			IsActive:                   true,
		},
	})
	if err != nil || len(rows) != 2 {
		t.Fatalf("Create: rows=%d err=%v", len(rows), err)
	}
	standard, urgentPolicy := rows[0], rows[1]

	got, err := repo.GetByID(dbc, urgentPolicy.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Priority == nil || *got.Priority != ticket.PriorityUrgent {
		t.Fatalf("expected priority matcher to survive, got %+v", got.Priority)
	}

	active, err := repo.ListByOrg(dbc, o.ID, true)
	if err != nil || len(active) != 2 {
		t.Fatalf("ListByOrg active: n=%d err=%v", len(active), err)
	}

	if err := repo.UpdateFields(dbc, urgentPolicy.ID, map[string]any{"is_active": false}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	active, err = repo.ListByOrg(dbc, o.ID, true)
	if err != nil || len(active) != 1 || active[0].ID != standard.ID {
		t.Fatalf("expected only the standard policy to stay active, n=%d err=%v", len(active), err)
	}
	all, err := repo.ListByOrg(dbc, o.ID, false)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListByOrg all: n=%d err=%v", len(all), err)
	}

	// Moving the default flag must clear it on the previous holder.
	if err := repo.SetDefault(dbc, o.ID, urgentPolicy.ID); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	reloadedStandard, err := repo.GetByID(dbc, standard.ID)
	if err != nil || reloadedStandard == nil || reloadedStandard.IsDefault {
		t.Fatalf("expected old default cleared, got %+v err=%v", reloadedStandard, err)
	}
	reloadedUrgent, err := repo.GetByID(dbc, urgentPolicy.ID)
	if err != nil || reloadedUrgent == nil || !reloadedUrgent.IsDefault {
		t.Fatalf("expected new default set, got %+v err=%v", reloadedUrgent, err)
	}

	if err := repo.SoftDeleteByID(dbc, urgentPolicy.ID); err != nil {
		t.Fatalf("SoftDeleteByID: %v", err)
	}
	all, err = repo.ListByOrg(dbc, o.ID, false)
	if err != nil || len(all) != 1 {
		t.Fatalf("expected soft-deleted policy hidden, n=%d err=%v", len(all), err)
	}
}

func TestTrackingRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewTrackingRepo(db, testutil.Logger(t))

	o := testutil.SeedOrg(t, ctx, tx, "Tracking Repo Org")
	u := testutil.SeedUser(t, ctx, tx, "trackingrepo@example.com")
	pol := testutil.SeedSLAPolicy(t, ctx, tx, o.ID, "Standard", true)
	tk1 := testutil.SeedTicket(t, ctx, tx, o.ID, u.ID, "TKT-00101")
	tk2 := testutil.SeedTicket(t, ctx, tx, o.ID, u.ID, "TKT-00102")

	now := time.Now().UTC()
	rows, err := repo.Create(dbc, []*sla.Tracking{
		{
			OrgID:              o.ID,
			TicketID:           tk1.ID,
			PolicyID:           pol.ID,
			ResponseDeadline:   now.Add(-2 * time.Hour),
			ResolutionDeadline: now.Add(46 * time.Hour),
			ResponseStatus:     sla.TrackingPending,
			ResolutionStatus:   sla.TrackingPending,
		},
		{
			OrgID:              o.ID,
			TicketID:           tk2.ID,
			PolicyID:           pol.ID,
			ResponseDeadline:   now.Add(4 * time.Hour),
			ResolutionDeadline: now.Add(48 * time.Hour),
			ResponseStatus:     sla.TrackingPending,
			ResolutionStatus:   sla.TrackingPending,
		},
	})
	if err != nil || len(rows) != 2 {
		t.Fatalf("Create: rows=%d err=%v", len(rows), err)
	}
	tr1 := rows[0]

	got, err := repo.GetByTicketID(dbc, tk1.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByTicketID: %v", err)
	}
	if got.Policy == nil || got.Policy.ID != pol.ID {
		t.Fatalf("expected policy preloaded, got %+v", got.Policy)
	}

	unsettled, err := repo.ListUnsettled(dbc, 10, time.Time{}, uuid.Nil)
	if err != nil || len(unsettled) != 2 {
		t.Fatalf("ListUnsettled: n=%d err=%v", len(unsettled), err)
	}
	for _, row := range unsettled {
		if row.Ticket == nil || row.Ticket.ID != row.TicketID {
			t.Fatalf("expected ticket preloaded on scan rows, got %+v", row.Ticket)
		}
	}

	// Key-set pagination must keep advancing even as scanned rows settle
	// out of the pending filter.
	firstPage, err := repo.ListUnsettled(dbc, 1, time.Time{}, uuid.Nil)
	if err != nil || len(firstPage) != 1 {
		t.Fatalf("ListUnsettled first page: n=%d err=%v", len(firstPage), err)
	}
	if err := repo.UpdateFields(dbc, firstPage[0].ID, map[string]any{
		"response_status":   sla.TrackingMet,
		"resolution_status": sla.TrackingMet,
	}); err != nil {
		t.Fatalf("settle first page row: %v", err)
	}
	secondPage, err := repo.ListUnsettled(dbc, 1, firstPage[0].CreatedAt, firstPage[0].ID)
	if err != nil || len(secondPage) != 1 || secondPage[0].ID == firstPage[0].ID {
		t.Fatalf("ListUnsettled after cursor: n=%d err=%v", len(secondPage), err)
	}
	if err := repo.UpdateFields(dbc, firstPage[0].ID, map[string]any{
		"response_status":   sla.TrackingPending,
		"resolution_status": sla.TrackingPending,
	}); err != nil {
		t.Fatalf("restore first page row: %v", err)
	}

	won, err := repo.MarkEscalated(dbc, tr1.ID, now)
	if err != nil || !won {
		t.Fatalf("MarkEscalated first call: won=%v err=%v", won, err)
	}
	won, err = repo.MarkEscalated(dbc, tr1.ID, now)
	if err != nil || won {
		t.Fatalf("MarkEscalated must be one-shot, won=%v err=%v", won, err)
	}

	// Settle tr1 fully: response 2h late, resolution 1h early.
	if err := repo.UpdateFields(dbc, tr1.ID, map[string]any{
		"response_status":         sla.TrackingBreached,
		"response_breach_hours":   2.0,
		"resolution_status":       sla.TrackingMet,
		"resolution_breach_hours": -1.0,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	unsettled, err = repo.ListUnsettled(dbc, 10, time.Time{}, uuid.Nil)
	if err != nil || len(unsettled) != 1 || unsettled[0].TicketID != tk2.ID {
		t.Fatalf("expected only the open clock to remain, n=%d err=%v", len(unsettled), err)
	}

	sum, err := repo.SummaryByOrg(dbc, o.ID, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("SummaryByOrg: %v", err)
	}
	if sum.Total != 2 || sum.ResponseBreached != 1 || sum.ResponsePending != 1 {
		t.Fatalf("unexpected response counts: %+v", sum)
	}
	if sum.ResolutionMet != 1 || sum.ResolutionPending != 1 || sum.Escalated != 1 {
		t.Fatalf("unexpected resolution counts: %+v", sum)
	}
	if math.Abs(sum.AvgResponseBreachHours-2.0) > 1e-9 {
		t.Fatalf("unexpected avg response breach hours: %v", sum.AvgResponseBreachHours)
	}
}
