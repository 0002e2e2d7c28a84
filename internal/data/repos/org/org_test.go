package org

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/data/repos/testutil"
	"github.com/veldtops/fieldsuite-backend/internal/domain/org"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
)

func TestOrganizationRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewOrganizationRepo(db, testutil.Logger(t))

	created, err := repo.Create(dbc, []*org.Organization{
		{
			ID:       uuid.New(),
			Name:     "Veldt Ops Pvt Ltd",
			Slug:     "veldt-ops-pvt-ltd",
			Country:  "IN",
			IsActive: true,
		},
	})
	if err != nil || len(created) != 1 {
		t.Fatalf("Create: err=%v len=%d", err, len(created))
	}
	o := created[0]

	if got, err := repo.GetByID(dbc, o.ID); err != nil || got == nil || got.Slug != o.Slug {
		t.Fatalf("GetByID: err=%v row=%+v", err, got)
	}
	if got, err := repo.GetBySlug(dbc, "VELDT-ops-pvt-ltd"); err != nil || got == nil || got.ID != o.ID {
		t.Fatalf("GetBySlug: err=%v row=%+v", err, got)
	}
	if exists, err := repo.SlugExists(dbc, o.Slug); err != nil || !exists {
		t.Fatalf("SlugExists: err=%v exists=%v", err, exists)
	}
	if exists, err := repo.SlugExists(dbc, "no-such-slug"); err != nil || exists {
		t.Fatalf("SlugExists (missing): err=%v exists=%v", err, exists)
	}

	u := testutil.SeedUser(t, ctx, tx, "orgrepo@example.com")
	role := testutil.SeedRole(t, ctx, tx, o.ID, "Owner")
	testutil.SeedMember(t, ctx, tx, o.ID, u.ID, role.ID)

	orgs, err := repo.ListByUserID(dbc, u.ID)
	if err != nil || len(orgs) != 1 || orgs[0].ID != o.ID {
		t.Fatalf("ListByUserID: err=%v orgs=%+v", err, orgs)
	}

	if err := repo.UpdateFields(dbc, o.ID, map[string]any{"gstin": "29ABCDE1234F1Z5", "city": "Bengaluru"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := repo.GetByID(dbc, o.ID)
	if err != nil || got.GSTIN != "29ABCDE1234F1Z5" {
		t.Fatalf("UpdateFields not applied: err=%v gstin=%q", err, got.GSTIN)
	}

	if err := repo.SoftDeleteByID(dbc, o.ID); err != nil {
		t.Fatalf("SoftDeleteByID: %v", err)
	}
	if got, err := repo.GetByID(dbc, o.ID); err != nil || got != nil {
		t.Fatalf("expected org hidden after soft delete: err=%v row=%+v", err, got)
	}
}

func TestMemberRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewMemberRepo(db, testutil.Logger(t))

	o := testutil.SeedOrg(t, ctx, tx, "Member Repo Org")
	owner := testutil.SeedRole(t, ctx, tx, o.ID, "Owner")
	agent := testutil.SeedRole(t, ctx, tx, o.ID, "Agent")
	u1 := testutil.SeedUser(t, ctx, tx, "memberrepo1@example.com")
	u2 := testutil.SeedUser(t, ctx, tx, "memberrepo2@example.com")

	created, err := repo.Create(dbc, []*org.Member{
		{ID: uuid.New(), OrgID: o.ID, UserID: u1.ID, RoleID: owner.ID, Status: org.MemberStatusActive},
		{ID: uuid.New(), OrgID: o.ID, UserID: u2.ID, RoleID: agent.ID, Status: org.MemberStatusInvited},
	})
	if err != nil || len(created) != 2 {
		t.Fatalf("Create: err=%v len=%d", err, len(created))
	}

	m1, err := repo.GetByOrgAndUser(dbc, o.ID, u1.ID)
	if err != nil || m1 == nil || m1.RoleID != owner.ID {
		t.Fatalf("GetByOrgAndUser: err=%v row=%+v", err, m1)
	}

	all, err := repo.ListByOrg(dbc, o.ID, nil)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListByOrg (all): err=%v len=%d", err, len(all))
	}
	if all[0].User == nil {
		t.Fatalf("ListByOrg: expected User preloaded")
	}

	activeOnly, err := repo.ListByOrg(dbc, o.ID, []org.MemberStatus{org.MemberStatusActive})
	if err != nil || len(activeOnly) != 1 || activeOnly[0].UserID != u1.ID {
		t.Fatalf("ListByOrg (active): err=%v rows=%+v", err, activeOnly)
	}

	if n, err := repo.CountActiveByRole(dbc, o.ID, owner.ID); err != nil || n != 1 {
		t.Fatalf("CountActiveByRole: err=%v n=%d", err, n)
	}

	if err := repo.UpdateRole(dbc, m1.ID, agent.ID); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if n, err := repo.CountActiveByRole(dbc, o.ID, owner.ID); err != nil || n != 0 {
		t.Fatalf("CountActiveByRole after UpdateRole: err=%v n=%d", err, n)
	}

	if err := repo.UpdateStatus(dbc, m1.ID, org.MemberStatusRemoved); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	removed, err := repo.GetByID(dbc, m1.ID)
	if err != nil || removed == nil || removed.Status != org.MemberStatusRemoved {
		t.Fatalf("UpdateStatus not applied: err=%v row=%+v", err, removed)
	}
}
