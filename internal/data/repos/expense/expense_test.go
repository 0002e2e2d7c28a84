package expense

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veldtops/fieldsuite-backend/internal/data/repos/testutil"
	"github.com/veldtops/fieldsuite-backend/internal/domain/expense"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
)

func TestAccountRepoHierarchy(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewAccountRepo(db, testutil.Logger(t))

	o := testutil.SeedOrg(t, ctx, tx, "Expense Account Org")

	root := testutil.SeedExpenseAccount(t, ctx, tx, o.ID, "OPS", nil)
	child := testutil.SeedExpenseAccount(t, ctx, tx, o.ID, "OPS-FUEL", testutil.PtrUUID(root.ID))
	grand := testutil.SeedExpenseAccount(t, ctx, tx, o.ID, "OPS-FUEL-DIESEL", testutil.PtrUUID(child.ID))

	if got, err := repo.GetByOrgAndCode(dbc, o.ID, "OPS-FUEL"); err != nil || got == nil || got.ID != child.ID {
		t.Fatalf("GetByOrgAndCode: err=%v row=%+v", err, got)
	}

	all, err := repo.ListByOrg(dbc, o.ID, false)
	if err != nil || len(all) != 3 {
		t.Fatalf("ListByOrg: err=%v len=%d", err, len(all))
	}

	children, err := repo.ListChildren(dbc, o.ID, root.ID)
	if err != nil || len(children) != 1 || children[0].ID != child.ID {
		t.Fatalf("ListChildren: err=%v rows=%+v", err, children)
	}

	if has, err := repo.HasChildren(dbc, root.ID); err != nil || !has {
		t.Fatalf("HasChildren(root): err=%v has=%v", err, has)
	}
	if has, err := repo.HasChildren(dbc, grand.ID); err != nil || has {
		t.Fatalf("HasChildren(leaf): err=%v has=%v", err, has)
	}

	if depth, err := repo.DepthOf(dbc, o.ID, root.ID); err != nil || depth != 1 {
		t.Fatalf("DepthOf(root): err=%v depth=%d", err, depth)
	}
	if depth, err := repo.DepthOf(dbc, o.ID, grand.ID); err != nil || depth != 3 {
		t.Fatalf("DepthOf(grand): err=%v depth=%d", err, depth)
	}
	if depth, err := repo.DepthOf(dbc, o.ID, uuid.New()); err != nil || depth != 0 {
		t.Fatalf("DepthOf(missing): err=%v depth=%d", err, depth)
	}

	if err := repo.UpdateFields(dbc, grand.ID, map[string]any{"is_active": false}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	activeOnly, err := repo.ListByOrg(dbc, o.ID, true)
	if err != nil || len(activeOnly) != 2 {
		t.Fatalf("ListByOrg (active): err=%v len=%d", err, len(activeOnly))
	}

	if err := repo.SoftDeleteByID(dbc, grand.ID); err != nil {
		t.Fatalf("SoftDeleteByID: %v", err)
	}
	if got, err := repo.GetByID(dbc, grand.ID); err != nil || got != nil {
		t.Fatalf("expected account hidden after soft delete: err=%v row=%+v", err, got)
	}
}

func TestEntryRepoSumsAndFilters(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	accounts := NewAccountRepo(db, testutil.Logger(t))
	entries := NewEntryRepo(db, testutil.Logger(t))

	o := testutil.SeedOrg(t, ctx, tx, "Expense Entry Org")
	u := testutil.SeedUser(t, ctx, tx, "expenseentry@example.com")
	fuel := testutil.SeedExpenseAccount(t, ctx, tx, o.ID, "FUEL", nil)
	tools := testutil.SeedExpenseAccount(t, ctx, tx, o.ID, "TOOLS", nil)
	if depth, err := accounts.DepthOf(dbc, o.ID, fuel.ID); err != nil || depth != 1 {
		t.Fatalf("DepthOf (root): err=%v depth=%d", err, depth)
	}

	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)

	created, err := entries.Create(dbc, []*expense.Entry{
		{ID: uuid.New(), OrgID: o.ID, AccountID: fuel.ID, Amount: decimal.NewFromFloat(1200.50), Currency: "INR", IncurredOn: jan, VendorName: "HP Pump", CreatedBy: u.ID},
		{ID: uuid.New(), OrgID: o.ID, AccountID: fuel.ID, Amount: decimal.NewFromFloat(800.25), Currency: "INR", IncurredOn: feb, VendorName: "HP Pump", CreatedBy: u.ID},
		{ID: uuid.New(), OrgID: o.ID, AccountID: tools.ID, Amount: decimal.NewFromInt(4500), Currency: "INR", IncurredOn: feb, VendorName: "Bosch Dealer", CreatedBy: u.ID},
	})
	if err != nil || len(created) != 3 {
		t.Fatalf("Create: err=%v len=%d", err, len(created))
	}

	if got, err := entries.GetByID(dbc, created[0].ID); err != nil || got == nil || got.Account == nil {
		t.Fatalf("GetByID: err=%v row=%+v", err, got)
	}

	all, err := entries.ListByOrg(dbc, o.ID, EntryFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("ListByOrg: err=%v len=%d", err, len(all))
	}
	// Newest incurred_on first.
	if !all[0].IncurredOn.After(all[2].IncurredOn) {
		t.Fatalf("ListByOrg: expected incurred_on DESC, got %v then %v", all[0].IncurredOn, all[2].IncurredOn)
	}

	fuelOnly, err := entries.ListByOrg(dbc, o.ID, EntryFilter{AccountIDs: []uuid.UUID{fuel.ID}})
	if err != nil || len(fuelOnly) != 2 {
		t.Fatalf("ListByOrg (fuel): err=%v len=%d", err, len(fuelOnly))
	}

	febOnward := EntryFilter{From: testutil.PtrTime(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))}
	if n, err := entries.CountByOrg(dbc, o.ID, febOnward); err != nil || n != 2 {
		t.Fatalf("CountByOrg (feb onward): err=%v n=%d", err, n)
	}

	page, err := entries.ListByOrg(dbc, o.ID, EntryFilter{Limit: 2, Offset: 2})
	if err != nil || len(page) != 1 {
		t.Fatalf("ListByOrg (page 2): err=%v len=%d", err, len(page))
	}

	sums, err := entries.SumByAccount(dbc, o.ID, []uuid.UUID{fuel.ID, tools.ID}, nil, nil)
	if err != nil {
		t.Fatalf("SumByAccount: %v", err)
	}
	wantFuel := decimal.NewFromFloat(2000.75)
	if !sums[fuel.ID].Equal(wantFuel) {
		t.Fatalf("SumByAccount fuel: got %s want %s", sums[fuel.ID], wantFuel)
	}
	if !sums[tools.ID].Equal(decimal.NewFromInt(4500)) {
		t.Fatalf("SumByAccount tools: got %s", sums[tools.ID])
	}

	if err := entries.SoftDeleteByID(dbc, created[2].ID); err != nil {
		t.Fatalf("SoftDeleteByID: %v", err)
	}
	sums, err = entries.SumByAccount(dbc, o.ID, []uuid.UUID{tools.ID}, nil, nil)
	if err != nil {
		t.Fatalf("SumByAccount after delete: %v", err)
	}
	if _, ok := sums[tools.ID]; ok {
		t.Fatalf("soft-deleted entries must not be summed: %+v", sums)
	}
}
