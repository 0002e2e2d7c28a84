package mail

import (
	"context"
	"testing"
	"time"

	"github.com/veldtops/fieldsuite-backend/internal/data/repos/testutil"
	"github.com/veldtops/fieldsuite-backend/internal/domain/mail"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
)

func TestAccountRepoUpsertAndTokens(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewAccountRepo(db, testutil.Logger(t))

	o := testutil.SeedOrg(t, ctx, tx, "Mail Repo Org")
	u := testutil.SeedUser(t, ctx, tx, "mailrepo@example.com")

	now := time.Now().UTC().Truncate(time.Second)
	first, err := repo.Upsert(dbc, &mail.Account{
		OrgID:              o.ID,
		UserID:             u.ID,
		Provider:           mail.ProviderGoogle,
		EmailAddress:       "dispatch@example.com",
		AccessTokenSealed:  "sealed-access-1",
		RefreshTokenSealed: "sealed-refresh-1",
		TokenExpiresAt:     now.Add(30 * time.Minute),
		Status:             mail.AccountStatusActive,
		ConnectedBy:        u.ID,
	})
	if err != nil || first == nil {
		t.Fatalf("Upsert: %v", err)
	}

	// Reconnecting the same mailbox must update in place, not insert.
	second, err := repo.Upsert(dbc, &mail.Account{
		OrgID:              o.ID,
		UserID:             u.ID,
		Provider:           mail.ProviderGoogle,
		EmailAddress:       "dispatch@example.com",
		AccessTokenSealed:  "sealed-access-2",
		RefreshTokenSealed: "sealed-refresh-2",
		TokenExpiresAt:     now.Add(time.Hour),
		Status:             mail.AccountStatusActive,
		ConnectedBy:        u.ID,
	})
	if err != nil || second == nil {
		t.Fatalf("Upsert again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected upsert to keep the row, got %s then %s", first.ID, second.ID)
	}
	if second.AccessTokenSealed != "sealed-access-2" {
		t.Fatalf("expected refreshed token material, got %q", second.AccessTokenSealed)
	}

	accounts, err := repo.ListByOrg(dbc, o.ID, nil)
	if err != nil || len(accounts) != 1 {
		t.Fatalf("ListByOrg: n=%d err=%v", len(accounts), err)
	}

	// An empty refresh token on renewal keeps the stored one.
	if err := repo.UpdateTokens(dbc, first.ID, "sealed-access-3", "", now.Add(2*time.Hour)); err != nil {
		t.Fatalf("UpdateTokens: %v", err)
	}
	got, err := repo.GetByID(dbc, first.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.AccessTokenSealed != "sealed-access-3" || got.RefreshTokenSealed != "sealed-refresh-2" {
		t.Fatalf("unexpected token columns after renewal: %q / %q", got.AccessTokenSealed, got.RefreshTokenSealed)
	}

	expiring, err := repo.ListExpiring(dbc, now.Add(3*time.Hour), 10)
	if err != nil || len(expiring) != 1 {
		t.Fatalf("ListExpiring within window: n=%d err=%v", len(expiring), err)
	}
	expiring, err = repo.ListExpiring(dbc, now.Add(time.Hour), 10)
	if err != nil || len(expiring) != 0 {
		t.Fatalf("ListExpiring outside window: n=%d err=%v", len(expiring), err)
	}

	if err := repo.SetStatus(dbc, first.ID, mail.AccountStatusError, "invalid_grant"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	got, err = repo.GetByID(dbc, first.ID)
	if err != nil || got == nil || got.Status != mail.AccountStatusError || got.LastError != "invalid_grant" {
		t.Fatalf("expected error status recorded, got %+v err=%v", got, err)
	}

	usedAt := now.Add(5 * time.Minute)
	if err := repo.MarkUsed(dbc, first.ID, usedAt); err != nil {
		t.Fatalf("MarkUsed: %v", err)
	}
	got, err = repo.GetByID(dbc, first.ID)
	if err != nil || got == nil || got.LastUsedAt == nil || !got.LastUsedAt.Equal(usedAt) {
		t.Fatalf("expected last_used_at stamped, got %+v err=%v", got.LastUsedAt, err)
	}

	if err := repo.SoftDeleteByID(dbc, first.ID); err != nil {
		t.Fatalf("SoftDeleteByID: %v", err)
	}
	accounts, err = repo.ListByOrg(dbc, o.ID, nil)
	if err != nil || len(accounts) != 0 {
		t.Fatalf("expected disconnected mailbox hidden, n=%d err=%v", len(accounts), err)
	}
}

func TestOAuthStateRepoConsume(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewOAuthStateRepo(db, testutil.Logger(t))

	o := testutil.SeedOrg(t, ctx, tx, "OAuth State Org")
	u := testutil.SeedUser(t, ctx, tx, "oauthstate@example.com")

	now := time.Now().UTC()
	row, err := repo.Create(dbc, &mail.OAuthState{
		State:     "state-token-abc",
		OrgID:     o.ID,
		UserID:    u.ID,
		Provider:  mail.ProviderMicrosoft,
		ExpiresAt: now.Add(10 * time.Minute),
	})
	if err != nil || row == nil {
		t.Fatalf("Create: %v", err)
	}

	won, err := repo.Consume(dbc, "state-token-abc", now)
	if err != nil || won == nil {
		t.Fatalf("Consume: %v", err)
	}
	if won.OrgID != o.ID || won.Provider != mail.ProviderMicrosoft {
		t.Fatalf("unexpected consumed row: %+v", won)
	}

	// A replayed callback must lose.
	again, err := repo.Consume(dbc, "state-token-abc", now.Add(time.Second))
	if err != nil || again != nil {
		t.Fatalf("expected replay to lose, got %+v err=%v", again, err)
	}

	// An expired state must lose even when unconsumed.
	if _, err := repo.Create(dbc, &mail.OAuthState{
		State:     "state-token-expired",
		OrgID:     o.ID,
		UserID:    u.ID,
		Provider:  mail.ProviderGoogle,
		ExpiresAt: now.Add(-time.Minute),
	}); err != nil {
		t.Fatalf("Create expired: %v", err)
	}
	stale, err := repo.Consume(dbc, "state-token-expired", now)
	if err != nil || stale != nil {
		t.Fatalf("expected expired state to lose, got %+v err=%v", stale, err)
	}

	n, err := repo.DeleteExpiredBefore(dbc, now)
	if err != nil || n != 1 {
		t.Fatalf("DeleteExpiredBefore: n=%d err=%v", n, err)
	}
	gone, err := repo.GetByState(dbc, "state-token-expired")
	if err != nil || gone != nil {
		t.Fatalf("expected expired state purged, got %+v err=%v", gone, err)
	}
}
