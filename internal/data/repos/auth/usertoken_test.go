package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/data/repos/testutil"
	"github.com/veldtops/fieldsuite-backend/internal/domain/auth"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
)

func TestUserTokenRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewUserTokenRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "usertokenrepo@example.com")

	makeToken := func(hash string, expiresAt time.Time) *auth.UserToken {
		return &auth.UserToken{
			ID:               uuid.New(),
			UserID:           u.ID,
			RefreshTokenHash: hash,
			UserAgent:        "go-test",
			ExpiresAt:        expiresAt,
		}
	}

	t1 := makeToken("hash-1", time.Now().Add(1*time.Hour))
	if _, err := repo.Create(dbc, []*auth.UserToken{t1}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByRefreshHash(dbc, "hash-1")
	if err != nil {
		t.Fatalf("GetByRefreshHash: %v", err)
	}
	if got == nil || got.ID != t1.ID {
		t.Fatalf("GetByRefreshHash: unexpected result: %+v", got)
	}
	if !got.Usable(time.Now()) {
		t.Fatalf("expected fresh token to be usable")
	}

	if got, err := repo.GetByID(dbc, t1.ID); err != nil || got == nil {
		t.Fatalf("GetByID: err=%v row=%+v", err, got)
	}

	active, err := repo.ListActiveByUser(dbc, u.ID)
	if err != nil || len(active) != 1 {
		t.Fatalf("ListActiveByUser: err=%v len=%d", err, len(active))
	}

	if err := repo.RevokeByIDs(dbc, []uuid.UUID{t1.ID}, time.Now()); err != nil {
		t.Fatalf("RevokeByIDs: %v", err)
	}
	got, err = repo.GetByRefreshHash(dbc, "hash-1")
	if err != nil {
		t.Fatalf("GetByRefreshHash after revoke: %v", err)
	}
	if got == nil || got.RevokedAt == nil {
		t.Fatalf("expected revoked_at to be set: %+v", got)
	}
	if got.Usable(time.Now()) {
		t.Fatalf("revoked token must not be usable")
	}

	t2 := makeToken("hash-2", time.Now().Add(1*time.Hour))
	if _, err := repo.Create(dbc, []*auth.UserToken{t2}); err != nil {
		t.Fatalf("seed token2: %v", err)
	}
	if err := repo.RevokeByUserID(dbc, u.ID, time.Now()); err != nil {
		t.Fatalf("RevokeByUserID: %v", err)
	}
	active, err = repo.ListActiveByUser(dbc, u.ID)
	if err != nil || len(active) != 0 {
		t.Fatalf("ListActiveByUser after revoke-all: err=%v len=%d", err, len(active))
	}

	t3 := makeToken("hash-3", time.Now().Add(-2*time.Hour))
	if _, err := repo.Create(dbc, []*auth.UserToken{t3}); err != nil {
		t.Fatalf("seed token3: %v", err)
	}
	n, err := repo.DeleteExpiredBefore(dbc, time.Now().Add(-1*time.Hour))
	if err != nil {
		t.Fatalf("DeleteExpiredBefore: %v", err)
	}
	if n != 1 {
		t.Fatalf("DeleteExpiredBefore: expected 1 purged, got %d", n)
	}
	if got, err := repo.GetByRefreshHash(dbc, "hash-3"); err != nil || got != nil {
		t.Fatalf("expected token3 purged: err=%v row=%+v", err, got)
	}
}
