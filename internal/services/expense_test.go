package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/data/db"
	"github.com/veldtops/fieldsuite-backend/internal/domain/expense"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

// stubAccountRepo serves a fixed account tree from memory.
type stubAccountRepo struct {
	accounts map[uuid.UUID]*expense.Account
	updated  map[uuid.UUID]map[string]any
}

func (r *stubAccountRepo) Create(dbc dbctx.Context, rows []*expense.Account) ([]*expense.Account, error) {
	return rows, nil
}

func (r *stubAccountRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*expense.Account, error) {
	return r.accounts[id], nil
}

func (r *stubAccountRepo) GetByOrgAndCode(dbc dbctx.Context, orgID uuid.UUID, code string) (*expense.Account, error) {
	return nil, nil
}

func (r *stubAccountRepo) ListByOrg(dbc dbctx.Context, orgID uuid.UUID, activeOnly bool) ([]*expense.Account, error) {
	out := []*expense.Account{}
	for _, a := range r.accounts {
		if a.OrgID == orgID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *stubAccountRepo) ListChildren(dbc dbctx.Context, orgID, parentID uuid.UUID) ([]*expense.Account, error) {
	out := []*expense.Account{}
	for _, a := range r.accounts {
		if a.OrgID == orgID && a.ParentID != nil && *a.ParentID == parentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *stubAccountRepo) HasChildren(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	for _, a := range r.accounts {
		if a.ParentID != nil && *a.ParentID == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubAccountRepo) HasEntries(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	return false, nil
}

func (r *stubAccountRepo) DepthOf(dbc dbctx.Context, orgID, id uuid.UUID) (int, error) {
	depth := 0
	cursor := r.accounts[id]
	for cursor != nil && cursor.ParentID != nil {
		depth++
		cursor = r.accounts[*cursor.ParentID]
	}
	return depth, nil
}

func (r *stubAccountRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	if r.updated == nil {
		r.updated = map[uuid.UUID]map[string]any{}
	}
	r.updated[id] = updates
	return nil
}

func (r *stubAccountRepo) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	return nil
}

func newExpenseServiceWithAccounts(t *testing.T, accounts ...*expense.Account) (ExpenseService, *stubAccountRepo) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	t.Cleanup(log.Sync)

	repo := &stubAccountRepo{accounts: map[uuid.UUID]*expense.Account{}}
	for _, a := range accounts {
		repo.accounts[a.ID] = a
	}
	return NewExpenseService(nil, log, repo, nil), repo
}

func TestDeactivateAccountRefusesActiveChildren(t *testing.T) {
	orgID := uuid.New()
	parent := &expense.Account{ID: uuid.New(), OrgID: orgID, Code: "OPS", IsActive: true}
	child := &expense.Account{ID: uuid.New(), OrgID: orgID, Code: "OPS-FUEL", ParentID: &parent.ID, IsActive: true}
	svc, repo := newExpenseServiceWithAccounts(t, parent, child)

	err := svc.DeactivateAccount(context.Background(), orgID, parent.ID)
	if !errors.Is(err, db.ErrValidation) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if _, wrote := repo.updated[parent.ID]; wrote {
		t.Fatal("account must not be deactivated while a child is active")
	}
}

func TestDeactivateAccountAllowsInactiveChildren(t *testing.T) {
	orgID := uuid.New()
	parent := &expense.Account{ID: uuid.New(), OrgID: orgID, Code: "OPS", IsActive: true}
	child := &expense.Account{ID: uuid.New(), OrgID: orgID, Code: "OPS-FUEL", ParentID: &parent.ID, IsActive: false}
	svc, repo := newExpenseServiceWithAccounts(t, parent, child)

	if err := svc.DeactivateAccount(context.Background(), orgID, parent.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	updates, wrote := repo.updated[parent.ID]
	if !wrote {
		t.Fatal("expected is_active update")
	}
	if active, ok := updates["is_active"].(bool); !ok || active {
		t.Fatalf("unexpected updates: %v", updates)
	}
}
