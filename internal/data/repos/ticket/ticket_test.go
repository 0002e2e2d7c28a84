package ticket

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/data/repos/testutil"
	"github.com/veldtops/fieldsuite-backend/internal/domain/ticket"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
)

func TestTicketRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewTicketRepo(db, testutil.Logger(t))

	o := testutil.SeedOrg(t, ctx, tx, "Ticket Repo Org")
	creator := testutil.SeedUser(t, ctx, tx, "ticketrepo-creator@example.com")
	agent := testutil.SeedUser(t, ctx, tx, "ticketrepo-agent@example.com")

	rows, err := repo.Create(dbc, []*ticket.Ticket{
		{
			ID: uuid.New(), OrgID: o.ID, Number: "TKT-00001",
			Subject: "AC not cooling", TicketType: ticket.TypeService,
			Priority: ticket.PriorityHigh, CustomerTier: ticket.TierPremium,
			CustomerName: "Acme Traders", Status: ticket.StatusOpen, CreatedBy: creator.ID,
		},
		{
			ID: uuid.New(), OrgID: o.ID, Number: "DSP-00001",
			Subject: "Install split unit", TicketType: ticket.TypeInstallation,
			Priority: ticket.PriorityMedium, CustomerTier: ticket.TierStandard,
			CustomerName: "Globex", Status: ticket.StatusOpen, CreatedBy: creator.ID,
			AssigneeID: testutil.PtrUUID(agent.ID),
		},
	})
	if err != nil || len(rows) != 2 {
		t.Fatalf("Create: err=%v len=%d", err, len(rows))
	}
	tk := rows[0]

	if got, err := repo.GetByID(dbc, tk.ID); err != nil || got == nil || got.Number != "TKT-00001" {
		t.Fatalf("GetByID: err=%v row=%+v", err, got)
	}
	if got, err := repo.GetByOrgAndNumber(dbc, o.ID, "DSP-00001"); err != nil || got == nil || got.Assignee == nil {
		t.Fatalf("GetByOrgAndNumber: err=%v row=%+v", err, got)
	}

	highOnly, err := repo.ListByOrg(dbc, o.ID, Filter{Priorities: []ticket.Priority{ticket.PriorityHigh}})
	if err != nil || len(highOnly) != 1 || highOnly[0].ID != tk.ID {
		t.Fatalf("ListByOrg (priority): err=%v rows=%d", err, len(highOnly))
	}

	search, err := repo.ListByOrg(dbc, o.ID, Filter{Search: "acme"})
	if err != nil || len(search) != 1 || search[0].ID != tk.ID {
		t.Fatalf("ListByOrg (search): err=%v rows=%d", err, len(search))
	}

	assigned, err := repo.ListByOrg(dbc, o.ID, Filter{AssigneeID: testutil.PtrUUID(agent.ID)})
	if err != nil || len(assigned) != 1 || assigned[0].Number != "DSP-00001" {
		t.Fatalf("ListByOrg (assignee): err=%v rows=%d", err, len(assigned))
	}

	if n, err := repo.CountByOrg(dbc, o.ID, Filter{}); err != nil || n != 2 {
		t.Fatalf("CountByOrg: err=%v n=%d", err, n)
	}

	counts, err := repo.CountByStatus(dbc, o.ID)
	if err != nil || counts[ticket.StatusOpen] != 2 {
		t.Fatalf("CountByStatus: err=%v counts=%+v", err, counts)
	}

	// Status guard: a transition with a stale expected status must lose.
	won, err := repo.UpdateStatusGuarded(dbc, tk.ID, ticket.StatusOpen, map[string]any{"status": ticket.StatusInProgress})
	if err != nil || !won {
		t.Fatalf("UpdateStatusGuarded (open→in_progress): err=%v won=%v", err, won)
	}
	won, err = repo.UpdateStatusGuarded(dbc, tk.ID, ticket.StatusOpen, map[string]any{"status": ticket.StatusResolved})
	if err != nil {
		t.Fatalf("UpdateStatusGuarded (stale): %v", err)
	}
	if won {
		t.Fatalf("stale guard must not win")
	}

	at := time.Now().UTC().Truncate(time.Second)
	stamped, err := repo.StampFirstResponse(dbc, tk.ID, at)
	if err != nil || !stamped {
		t.Fatalf("StampFirstResponse: err=%v stamped=%v", err, stamped)
	}
	stamped, err = repo.StampFirstResponse(dbc, tk.ID, at.Add(time.Hour))
	if err != nil {
		t.Fatalf("StampFirstResponse (second): %v", err)
	}
	if stamped {
		t.Fatalf("first response must only be stamped once")
	}
	got, err := repo.GetByID(dbc, tk.ID)
	if err != nil || got.FirstResponseAt == nil {
		t.Fatalf("first_response_at missing: err=%v", err)
	}
	if !got.FirstResponseAt.Equal(at) {
		t.Fatalf("first_response_at overwritten: got %v want %v", got.FirstResponseAt, at)
	}
}

func TestCommentRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewCommentRepo(db, testutil.Logger(t))

	o := testutil.SeedOrg(t, ctx, tx, "Comment Repo Org")
	creator := testutil.SeedUser(t, ctx, tx, "commentrepo-creator@example.com")
	agent := testutil.SeedUser(t, ctx, tx, "commentrepo-agent@example.com")
	tk := testutil.SeedTicket(t, ctx, tx, o.ID, creator.ID, "TKT-00002")

	rows, err := repo.Create(dbc, []*ticket.Comment{
		{ID: uuid.New(), TicketID: tk.ID, AuthorID: agent.ID, Body: "checked the compressor", Internal: true},
		{ID: uuid.New(), TicketID: tk.ID, AuthorID: agent.ID, Body: "technician scheduled for tomorrow"},
	})
	if err != nil || len(rows) != 2 {
		t.Fatalf("Create: err=%v len=%d", err, len(rows))
	}

	all, err := repo.ListByTicket(dbc, tk.ID, true)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListByTicket (all): err=%v len=%d", err, len(all))
	}
	if all[0].Author == nil {
		t.Fatalf("expected Author preloaded")
	}

	public, err := repo.ListByTicket(dbc, tk.ID, false)
	if err != nil || len(public) != 1 || public[0].Internal {
		t.Fatalf("ListByTicket (public): err=%v rows=%+v", err, public)
	}

	if n, err := repo.CountByTicket(dbc, tk.ID); err != nil || n != 2 {
		t.Fatalf("CountByTicket: err=%v n=%d", err, n)
	}

	if got, err := repo.GetByID(dbc, rows[0].ID); err != nil || got == nil || !got.Internal {
		t.Fatalf("GetByID: err=%v row=%+v", err, got)
	}
}
