package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/data/repos/testutil"
	"github.com/veldtops/fieldsuite-backend/internal/domain/user"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUserRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	created, err := repo.Create(dbc, []*user.User{
		{
			ID:           uuid.New(),
			Email:        "userrepo@example.com",
			PasswordHash: "pw",
			FirstName:    "Asha",
			LastName:     "Bhat",
			IsActive:     true,
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("Create: expected 1 user, got %d", len(created))
	}
	u := created[0]

	got, err := repo.GetByID(dbc, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatalf("GetByID: unexpected result: %+v", got)
	}

	byEmail, err := repo.GetByEmail(dbc, "USERREPO@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail == nil || byEmail.ID != u.ID {
		t.Fatalf("GetByEmail: case-insensitive lookup failed: %+v", byEmail)
	}

	exists, err := repo.EmailExists(dbc, u.Email)
	if err != nil {
		t.Fatalf("EmailExists: %v", err)
	}
	if !exists {
		t.Fatalf("EmailExists: expected true")
	}
	exists, err = repo.EmailExists(dbc, "does-not-exist@example.com")
	if err != nil {
		t.Fatalf("EmailExists (missing): %v", err)
	}
	if exists {
		t.Fatalf("EmailExists: expected false")
	}

	if err := repo.UpdateName(dbc, u.ID, "Asha", "Rao"); err != nil {
		t.Fatalf("UpdateName: %v", err)
	}
	if err := repo.UpdatePasswordHash(dbc, u.ID, "pw2"); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}
	if err := repo.UpdateAvatarFields(dbc, u.ID, "avatars/x.png", "https://cdn/avatars/x.png"); err != nil {
		t.Fatalf("UpdateAvatarFields: %v", err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	if err := repo.UpdateLastLogin(dbc, u.ID, now); err != nil {
		t.Fatalf("UpdateLastLogin: %v", err)
	}
	if err := repo.SetActive(dbc, u.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	got, err = repo.GetByID(dbc, u.ID)
	if err != nil {
		t.Fatalf("GetByID after updates: %v", err)
	}
	if got.LastName != "Rao" {
		t.Fatalf("UpdateName: last name not applied: %q", got.LastName)
	}
	if got.PasswordHash != "pw2" {
		t.Fatalf("UpdatePasswordHash: not applied")
	}
	if got.AvatarURL != "https://cdn/avatars/x.png" {
		t.Fatalf("UpdateAvatarFields: not applied")
	}
	if got.LastLoginAt == nil {
		t.Fatalf("UpdateLastLogin: not applied")
	}
	if got.IsActive {
		t.Fatalf("SetActive: not applied")
	}

	if missing, err := repo.GetByID(dbc, uuid.New()); err != nil || missing != nil {
		t.Fatalf("GetByID (missing): err=%v row=%+v", err, missing)
	}
}
