package rbac

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/data/repos/testutil"
	"github.com/veldtops/fieldsuite-backend/internal/domain/rbac"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
)

func TestPermissionRepoUpsert(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewPermissionRepo(db, testutil.Logger(t))

	seed := []*rbac.Permission{
		{ID: uuid.New(), Code: "ticket.read", Resource: "ticket", Action: "read"},
		{ID: uuid.New(), Code: "ticket.write", Resource: "ticket", Action: "write"},
	}
	if err := repo.UpsertByCode(dbc, seed); err != nil {
		t.Fatalf("UpsertByCode: %v", err)
	}

	rows, err := repo.GetByCodes(dbc, []string{"ticket.read", "ticket.write"})
	if err != nil || len(rows) != 2 {
		t.Fatalf("GetByCodes: err=%v len=%d", err, len(rows))
	}
	var originalID uuid.UUID
	for _, p := range rows {
		if p.Code == "ticket.read" {
			originalID = p.ID
		}
	}

	// Re-seeding with a new description must keep the existing row ID.
	again := []*rbac.Permission{
		{ID: uuid.New(), Code: "ticket.read", Resource: "ticket", Action: "read", Description: "read tickets"},
	}
	if err := repo.UpsertByCode(dbc, again); err != nil {
		t.Fatalf("UpsertByCode (again): %v", err)
	}
	rows, err = repo.GetByCodes(dbc, []string{"ticket.read"})
	if err != nil || len(rows) != 1 {
		t.Fatalf("GetByCodes after upsert: err=%v len=%d", err, len(rows))
	}
	if rows[0].ID != originalID {
		t.Fatalf("upsert must not replace the row: got %s want %s", rows[0].ID, originalID)
	}
	if rows[0].Description != "read tickets" {
		t.Fatalf("upsert must refresh description, got %q", rows[0].Description)
	}
}

func TestRoleRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	roles := NewRoleRepo(db, testutil.Logger(t))
	perms := NewPermissionRepo(db, testutil.Logger(t))

	o := testutil.SeedOrg(t, ctx, tx, "RBAC Repo Org")

	catalog := []*rbac.Permission{
		{ID: uuid.New(), Code: "expense.read", Resource: "expense", Action: "read"},
		{ID: uuid.New(), Code: "expense.write", Resource: "expense", Action: "write"},
		{ID: uuid.New(), Code: "feedback.read", Resource: "feedback", Action: "read"},
	}
	if err := perms.UpsertByCode(dbc, catalog); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	seeded, err := perms.GetByCodes(dbc, []string{"expense.read", "expense.write", "feedback.read"})
	if err != nil || len(seeded) != 3 {
		t.Fatalf("catalog lookup: err=%v len=%d", err, len(seeded))
	}
	byCode := map[string]uuid.UUID{}
	for _, p := range seeded {
		byCode[p.Code] = p.ID
	}

	created, err := roles.Create(dbc, []*rbac.Role{
		{ID: uuid.New(), OrgID: o.ID, Name: "Accountant", IsSystem: false},
	})
	if err != nil || len(created) != 1 {
		t.Fatalf("Create: err=%v len=%d", err, len(created))
	}
	role := created[0]

	ids := []uuid.UUID{byCode["expense.read"], byCode["expense.write"]}
	if err := roles.ReplacePermissions(dbc, role.ID, ids); err != nil {
		t.Fatalf("ReplacePermissions: %v", err)
	}

	got, err := roles.GetByID(dbc, role.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: err=%v row=%+v", err, got)
	}
	if len(got.Permissions) != 2 {
		t.Fatalf("expected 2 permissions preloaded, got %d", len(got.Permissions))
	}

	codes, err := roles.PermissionCodesByRoleID(dbc, role.ID)
	if err != nil || len(codes) != 2 {
		t.Fatalf("PermissionCodesByRoleID: err=%v codes=%v", err, codes)
	}
	if codes[0] != "expense.read" || codes[1] != "expense.write" {
		t.Fatalf("unexpected codes order: %v", codes)
	}

	// Narrow the grant set; stale joins must go away.
	if err := roles.ReplacePermissions(dbc, role.ID, []uuid.UUID{byCode["feedback.read"]}); err != nil {
		t.Fatalf("ReplacePermissions (narrow): %v", err)
	}
	codes, err = roles.PermissionCodesByRoleID(dbc, role.ID)
	if err != nil || len(codes) != 1 || codes[0] != "feedback.read" {
		t.Fatalf("after narrow: err=%v codes=%v", err, codes)
	}

	if byName, err := roles.GetByOrgAndName(dbc, o.ID, "Accountant"); err != nil || byName == nil || byName.ID != role.ID {
		t.Fatalf("GetByOrgAndName: err=%v row=%+v", err, byName)
	}

	listed, err := roles.ListByOrg(dbc, o.ID)
	if err != nil || len(listed) != 1 {
		t.Fatalf("ListByOrg: err=%v len=%d", err, len(listed))
	}

	if err := roles.UpdateFields(dbc, role.ID, map[string]any{"description": "books and billing"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	if err := roles.SoftDeleteByID(dbc, role.ID); err != nil {
		t.Fatalf("SoftDeleteByID: %v", err)
	}
	if got, err := roles.GetByID(dbc, role.ID); err != nil || got != nil {
		t.Fatalf("expected role hidden after soft delete: err=%v row=%+v", err, got)
	}
}
