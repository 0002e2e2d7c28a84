package fieldjob

import (
	"context"
	"testing"
	"time"

	"github.com/veldtops/fieldsuite-backend/internal/data/repos/testutil"
	"github.com/veldtops/fieldsuite-backend/internal/domain/fieldjob"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
)

func TestFieldJobRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewFieldJobRepo(db, testutil.Logger(t))

	o := testutil.SeedOrg(t, ctx, tx, "Field Job Repo Org")
	creator := testutil.SeedUser(t, ctx, tx, "fieldjobcreator@example.com")
	tech := testutil.SeedUser(t, ctx, tx, "fieldjobtech@example.com")
	tk := testutil.SeedTicket(t, ctx, tx, o.ID, creator.ID, "TKT-00301")

	schedule := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	dispatch, err := repo.Create(dbc, &fieldjob.FieldJob{
		OrgID:        o.ID,
		TicketID:     testutil.PtrUUID(tk.ID),
		Kind:         fieldjob.KindDispatch,
		Number:       "DSP-00001",
		Status:       fieldjob.StatusScheduled,
		ScheduledFor: testutil.PtrTime(schedule),
		AssigneeID:   testutil.PtrUUID(tech.ID),
		SiteAddress:  "14 MG Road, Bengaluru",
		ContactName:  "R. Iyer",
		ContactPhone: "+91 98450 00000",
		CreatedBy:    creator.ID,
	})
	if err != nil || dispatch == nil {
		t.Fatalf("Create: %v", err)
	}
	install, err := repo.Create(dbc, &fieldjob.FieldJob{
		OrgID:     o.ID,
		Kind:      fieldjob.KindInstallation,
		Number:    "INS-00001",
		Status:    fieldjob.StatusScheduled,
		CreatedBy: creator.ID,
	})
	if err != nil || install == nil {
		t.Fatalf("Create install: %v", err)
	}

	got, err := repo.GetByOrgAndNumber(dbc, o.ID, "DSP-00001")
	if err != nil || got == nil || got.ID != dispatch.ID {
		t.Fatalf("GetByOrgAndNumber: %v", err)
	}
	if got.Assignee == nil || got.Assignee.ID != tech.ID {
		t.Fatalf("expected assignee preloaded, got %+v", got.Assignee)
	}

	dispatches, err := repo.ListByOrg(dbc, o.ID, Filter{Kinds: []fieldjob.Kind{fieldjob.KindDispatch}})
	if err != nil || len(dispatches) != 1 || dispatches[0].ID != dispatch.ID {
		t.Fatalf("kind filter: n=%d err=%v", len(dispatches), err)
	}
	forTicket, err := repo.ListByOrg(dbc, o.ID, Filter{TicketID: testutil.PtrUUID(tk.ID)})
	if err != nil || len(forTicket) != 1 {
		t.Fatalf("ticket filter: n=%d err=%v", len(forTicket), err)
	}
	window, err := repo.ListByOrg(dbc, o.ID, Filter{
		ScheduledFrom: testutil.PtrTime(schedule.Add(-time.Hour)),
		ScheduledTo:   testutil.PtrTime(schedule.Add(time.Hour)),
	})
	if err != nil || len(window) != 1 || window[0].ID != dispatch.ID {
		t.Fatalf("schedule window filter: n=%d err=%v", len(window), err)
	}

	// Forward transition wins; a repeat with the stale expected status loses.
	won, err := repo.UpdateStatusGuarded(dbc, dispatch.ID, fieldjob.StatusScheduled, map[string]any{
		"status": fieldjob.StatusEnRoute,
	})
	if err != nil || !won {
		t.Fatalf("UpdateStatusGuarded: won=%v err=%v", won, err)
	}
	won, err = repo.UpdateStatusGuarded(dbc, dispatch.ID, fieldjob.StatusScheduled, map[string]any{
		"status": fieldjob.StatusOnSite,
	})
	if err != nil || won {
		t.Fatalf("stale guard must lose: won=%v err=%v", won, err)
	}

	n, err := repo.CountByOrg(dbc, o.ID, Filter{Statuses: []fieldjob.Status{fieldjob.StatusScheduled}})
	if err != nil || n != 1 {
		t.Fatalf("CountByOrg scheduled: n=%d err=%v", n, err)
	}

	if err := repo.SoftDeleteByID(dbc, install.ID); err != nil {
		t.Fatalf("SoftDeleteByID: %v", err)
	}
	all, err := repo.ListByOrg(dbc, o.ID, Filter{})
	if err != nil || len(all) != 1 {
		t.Fatalf("expected deleted job hidden, n=%d err=%v", len(all), err)
	}
}

func TestSequenceRepoNextNumber(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewSequenceRepo(db, testutil.Logger(t))

	o := testutil.SeedOrg(t, ctx, tx, "Sequence Repo Org")

	if err := repo.EnsureDefaults(dbc, o.ID); err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}
	// Idempotent: a second call must not reset counters.
	if err := repo.EnsureDefaults(dbc, o.ID); err != nil {
		t.Fatalf("EnsureDefaults again: %v", err)
	}

	first, err := repo.NextNumber(dbc, o.ID, fieldjob.SequenceDispatch)
	if err != nil || first != "DSP-00001" {
		t.Fatalf("NextNumber: got %q err=%v", first, err)
	}
	second, err := repo.NextNumber(dbc, o.ID, fieldjob.SequenceDispatch)
	if err != nil || second != "DSP-00002" {
		t.Fatalf("NextNumber again: got %q err=%v", second, err)
	}

	// Counters are independent per kind.
	tkt, err := repo.NextNumber(dbc, o.ID, fieldjob.SequenceTicket)
	if err != nil || tkt != "TKT-00001" {
		t.Fatalf("NextNumber ticket kind: got %q err=%v", tkt, err)
	}

	seq, err := repo.Get(dbc, o.ID, fieldjob.SequenceDispatch)
	if err != nil || seq == nil || seq.NextNumber != 3 {
		t.Fatalf("expected counter advanced to 3, got %+v err=%v", seq, err)
	}
}
