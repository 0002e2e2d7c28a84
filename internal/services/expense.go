package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/data/db"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	"github.com/veldtops/fieldsuite-backend/internal/domain/expense"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

type CreateAccountInput struct {
	Code        string
	Name        string
	AccountType expense.AccountType
	ParentID    *uuid.UUID
	Description string
}

type UpdateAccountInput struct {
	Name        *string
	Description *string
	ParentID    *uuid.UUID
	ClearParent bool
}

type CreateEntryInput struct {
	AccountID   uuid.UUID
	DocumentID  *uuid.UUID
	Amount      decimal.Decimal
	Currency    string
	IncurredOn  time.Time
	VendorName  string
	VendorGSTIN string
	Reference   string
	Notes       string
}

type UpdateEntryInput struct {
	AccountID   *uuid.UUID
	Amount      *decimal.Decimal
	IncurredOn  *time.Time
	VendorName  *string
	VendorGSTIN *string
	Reference   *string
	Notes       *string
}

// AccountNode is an account with its children, for the tree view.
type AccountNode struct {
	Account  *expense.Account `json:"account"`
	Children []*AccountNode   `json:"children"`
}

// AccountSummary rolls an account's entries plus all descendants' entries
// into one total.
type AccountSummary struct {
	Account    *expense.Account `json:"account"`
	OwnTotal   decimal.Decimal  `json:"own_total"`
	RolledUp   decimal.Decimal  `json:"rolled_up_total"`
	EntryCount int64            `json:"-"`
}

type EntryPage struct {
	Entries []*expense.Entry `json:"entries"`
	Total   int64            `json:"total"`
}

type ExpenseService interface {
	CreateAccount(ctx context.Context, orgID uuid.UUID, in CreateAccountInput) (*expense.Account, error)
	GetAccount(dbc dbctx.Context, orgID, accountID uuid.UUID) (*expense.Account, error)
	ListAccounts(dbc dbctx.Context, orgID uuid.UUID, activeOnly bool) ([]*expense.Account, error)
	AccountTree(dbc dbctx.Context, orgID uuid.UUID) ([]*AccountNode, error)
	UpdateAccount(ctx context.Context, orgID, accountID uuid.UUID, in UpdateAccountInput) (*expense.Account, error)
	DeactivateAccount(ctx context.Context, orgID, accountID uuid.UUID) error
	DeleteAccount(ctx context.Context, orgID, accountID uuid.UUID) error

	CreateEntry(ctx context.Context, orgID, createdBy uuid.UUID, in CreateEntryInput) (*expense.Entry, error)
	GetEntry(dbc dbctx.Context, orgID, entryID uuid.UUID) (*expense.Entry, error)
	ListEntries(dbc dbctx.Context, orgID uuid.UUID, filter repos.ExpenseEntryFilter) (*EntryPage, error)
	UpdateEntry(ctx context.Context, orgID, entryID uuid.UUID, in UpdateEntryInput) (*expense.Entry, error)
	DeleteEntry(ctx context.Context, orgID, entryID uuid.UUID) error

	// Summary rolls entry totals up the account tree for a period.
	Summary(dbc dbctx.Context, orgID uuid.UUID, from, to *time.Time) ([]*AccountSummary, error)
}

type expenseService struct {
	db          *gorm.DB
	log         *logger.Logger
	accountRepo repos.ExpenseAccountRepo
	entryRepo   repos.ExpenseEntryRepo
}

func NewExpenseService(gdb *gorm.DB, baseLog *logger.Logger, accountRepo repos.ExpenseAccountRepo, entryRepo repos.ExpenseEntryRepo) ExpenseService {
	return &expenseService{
		db:          gdb,
		log:         baseLog.With("service", "ExpenseService"),
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
	}
}

func (s *expenseService) CreateAccount(ctx context.Context, orgID uuid.UUID, in CreateAccountInput) (*expense.Account, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	name := strings.TrimSpace(in.Name)
	if code == "" || name == "" {
		return nil, db.ValidationError("account code and name are required")
	}
	if !in.AccountType.Valid() {
		return nil, db.ValidationError("unknown account type")
	}

	var created *expense.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		existing, err := s.accountRepo.GetByOrgAndCode(dbc, orgID, code)
		if err != nil {
			return db.MapError("check account code", err)
		}
		if existing != nil {
			return db.ConflictError("account code already in use")
		}

		if in.ParentID != nil {
			parent, err := s.orgAccount(dbc, orgID, *in.ParentID)
			if err != nil {
				return err
			}
			depth, err := s.accountRepo.DepthOf(dbc, orgID, parent.ID)
			if err != nil {
				return db.MapError("measure account depth", err)
			}
			if depth+1 >= expense.MaxAccountDepth {
				return db.ValidationError("account tree is too deep")
			}
		}

		rows, err := s.accountRepo.Create(dbc, []*expense.Account{{
			OrgID:       orgID,
			Code:        code,
			Name:        name,
			AccountType: in.AccountType,
			ParentID:    in.ParentID,
			Description: strings.TrimSpace(in.Description),
			IsActive:    true,
		}})
		if err != nil {
			return db.MapError("create expense account", err)
		}
		created = rows[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *expenseService) GetAccount(dbc dbctx.Context, orgID, accountID uuid.UUID) (*expense.Account, error) {
	return s.orgAccount(dbc, orgID, accountID)
}

func (s *expenseService) ListAccounts(dbc dbctx.Context, orgID uuid.UUID, activeOnly bool) ([]*expense.Account, error) {
	rows, err := s.accountRepo.ListByOrg(dbc, orgID, activeOnly)
	if err != nil {
		return nil, db.MapError("list expense accounts", err)
	}
	return rows, nil
}

func (s *expenseService) AccountTree(dbc dbctx.Context, orgID uuid.UUID) ([]*AccountNode, error) {
	rows, err := s.accountRepo.ListByOrg(dbc, orgID, false)
	if err != nil {
		return nil, db.MapError("list expense accounts", err)
	}
	nodes := make(map[uuid.UUID]*AccountNode, len(rows))
	for _, a := range rows {
		nodes[a.ID] = &AccountNode{Account: a}
	}
	var roots []*AccountNode
	for _, a := range rows {
		n := nodes[a.ID]
		if a.ParentID != nil {
			if parent, ok := nodes[*a.ParentID]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots, nil
}

func (s *expenseService) UpdateAccount(ctx context.Context, orgID, accountID uuid.UUID, in UpdateAccountInput) (*expense.Account, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		account, err := s.orgAccount(dbc, orgID, accountID)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return db.ValidationError("account name is required")
			}
			updates["name"] = name
		}
		setString(updates, "description", in.Description)

		switch {
		case in.ClearParent:
			updates["parent_id"] = nil
		case in.ParentID != nil:
			if err := s.checkReparent(dbc, orgID, account, *in.ParentID); err != nil {
				return err
			}
			updates["parent_id"] = *in.ParentID
		}

		if len(updates) == 0 {
			return nil
		}
		return db.MapError("update expense account", s.accountRepo.UpdateFields(dbc, accountID, updates))
	})
	if err != nil {
		return nil, err
	}
	return s.orgAccount(dbctx.Context{Ctx: ctx}, orgID, accountID)
}

// checkReparent rejects self-parents, cross-org parents, cycles, and moves
// that would push any subtree past the depth cap.
func (s *expenseService) checkReparent(dbc dbctx.Context, orgID uuid.UUID, account *expense.Account, newParentID uuid.UUID) error {
	if newParentID == account.ID {
		return db.ValidationError("account cannot be its own parent")
	}
	parent, err := s.orgAccount(dbc, orgID, newParentID)
	if err != nil {
		return err
	}

	// Walk up from the proposed parent; hitting the account means a cycle.
	cursor := parent
	for steps := 0; cursor != nil && steps < expense.MaxAccountDepth+1; steps++ {
		if cursor.ID == account.ID {
			return db.ValidationError("re-parenting would create a cycle")
		}
		if cursor.ParentID == nil {
			break
		}
		cursor, err = s.orgAccount(dbc, orgID, *cursor.ParentID)
		if err != nil {
			return err
		}
	}

	parentDepth, err := s.accountRepo.DepthOf(dbc, orgID, parent.ID)
	if err != nil {
		return db.MapError("measure account depth", err)
	}
	subtreeHeight, err := s.subtreeHeight(dbc, orgID, account.ID)
	if err != nil {
		return err
	}
	if parentDepth+1+subtreeHeight >= expense.MaxAccountDepth {
		return db.ValidationError("account tree is too deep")
	}
	return nil
}

// subtreeHeight returns the deepest descendant distance below the account.
func (s *expenseService) subtreeHeight(dbc dbctx.Context, orgID, accountID uuid.UUID) (int, error) {
	children, err := s.accountRepo.ListChildren(dbc, orgID, accountID)
	if err != nil {
		return 0, db.MapError("list child accounts", err)
	}
	max := 0
	for _, c := range children {
		h, err := s.subtreeHeight(dbc, orgID, c.ID)
		if err != nil {
			return 0, err
		}
		if h+1 > max {
			max = h + 1
		}
	}
	return max, nil
}

func (s *expenseService) DeactivateAccount(ctx context.Context, orgID, accountID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.orgAccount(dbc, orgID, accountID); err != nil {
		return err
	}
	children, err := s.accountRepo.ListChildren(dbc, orgID, accountID)
	if err != nil {
		return db.MapError("list child accounts", err)
	}
	for _, c := range children {
		if c.IsActive {
			return db.ValidationError("account still has active child accounts")
		}
	}
	return db.MapError("deactivate expense account", s.accountRepo.UpdateFields(dbc, accountID, map[string]any{"is_active": false}))
}

func (s *expenseService) DeleteAccount(ctx context.Context, orgID, accountID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.orgAccount(dbc, orgID, accountID); err != nil {
			return err
		}
		hasChildren, err := s.accountRepo.HasChildren(dbc, accountID)
		if err != nil {
			return db.MapError("check child accounts", err)
		}
		if hasChildren {
			return db.ConflictError("account has child accounts")
		}
		hasEntries, err := s.accountRepo.HasEntries(dbc, accountID)
		if err != nil {
			return db.MapError("check account entries", err)
		}
		if hasEntries {
			return db.ConflictError("account has expense entries")
		}
		return db.MapError("delete expense account", s.accountRepo.SoftDeleteByID(dbc, accountID))
	})
}

func (s *expenseService) CreateEntry(ctx context.Context, orgID, createdBy uuid.UUID, in CreateEntryInput) (*expense.Entry, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, db.ValidationError("amount must be positive")
	}
	if in.IncurredOn.IsZero() {
		return nil, db.ValidationError("incurred_on is required")
	}
	vendorGSTIN := NormalizeGSTIN(in.VendorGSTIN)
	if vendorGSTIN != "" && !ValidGSTIN(vendorGSTIN) {
		return nil, db.ValidationError("invalid vendor gstin")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "INR"
	}

	var created *expense.Entry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		account, err := s.orgAccount(dbc, orgID, in.AccountID)
		if err != nil {
			return err
		}
		if !account.IsActive {
			return db.ValidationError("cannot post to an inactive account")
		}
		rows, err := s.entryRepo.Create(dbc, []*expense.Entry{{
			OrgID:       orgID,
			AccountID:   account.ID,
			DocumentID:  in.DocumentID,
			Amount:      in.Amount,
			Currency:    currency,
			IncurredOn:  in.IncurredOn,
			VendorName:  strings.TrimSpace(in.VendorName),
			VendorGSTIN: vendorGSTIN,
			Reference:   strings.TrimSpace(in.Reference),
			Notes:       strings.TrimSpace(in.Notes),
			CreatedBy:   createdBy,
		}})
		if err != nil {
			return db.MapError("create expense entry", err)
		}
		created = rows[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *expenseService) GetEntry(dbc dbctx.Context, orgID, entryID uuid.UUID) (*expense.Entry, error) {
	return s.orgEntry(dbc, orgID, entryID)
}

func (s *expenseService) ListEntries(dbc dbctx.Context, orgID uuid.UUID, filter repos.ExpenseEntryFilter) (*EntryPage, error) {
	rows, err := s.entryRepo.ListByOrg(dbc, orgID, filter)
	if err != nil {
		return nil, db.MapError("list expense entries", err)
	}
	total, err := s.entryRepo.CountByOrg(dbc, orgID, filter)
	if err != nil {
		return nil, db.MapError("count expense entries", err)
	}
	return &EntryPage{Entries: rows, Total: total}, nil
}

func (s *expenseService) UpdateEntry(ctx context.Context, orgID, entryID uuid.UUID, in UpdateEntryInput) (*expense.Entry, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.orgEntry(dbc, orgID, entryID); err != nil {
			return err
		}

		updates := map[string]any{}
		if in.AccountID != nil {
			account, err := s.orgAccount(dbc, orgID, *in.AccountID)
			if err != nil {
				return err
			}
			if !account.IsActive {
				return db.ValidationError("cannot post to an inactive account")
			}
			updates["account_id"] = account.ID
		}
		if in.Amount != nil {
			if in.Amount.LessThanOrEqual(decimal.Zero) {
				return db.ValidationError("amount must be positive")
			}
			updates["amount"] = *in.Amount
		}
		if in.IncurredOn != nil {
			if in.IncurredOn.IsZero() {
				return db.ValidationError("incurred_on is required")
			}
			updates["incurred_on"] = *in.IncurredOn
		}
		if in.VendorGSTIN != nil {
			gstin := NormalizeGSTIN(*in.VendorGSTIN)
			if gstin != "" && !ValidGSTIN(gstin) {
				return db.ValidationError("invalid vendor gstin")
			}
			updates["vendor_gstin"] = gstin
		}
		setString(updates, "vendor_name", in.VendorName)
		setString(updates, "reference", in.Reference)
		setString(updates, "notes", in.Notes)

		if len(updates) == 0 {
			return nil
		}
		return db.MapError("update expense entry", s.entryRepo.UpdateFields(dbc, entryID, updates))
	})
	if err != nil {
		return nil, err
	}
	return s.orgEntry(dbctx.Context{Ctx: ctx}, orgID, entryID)
}

func (s *expenseService) DeleteEntry(ctx context.Context, orgID, entryID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.orgEntry(dbc, orgID, entryID); err != nil {
		return err
	}
	return db.MapError("delete expense entry", s.entryRepo.SoftDeleteByID(dbc, entryID))
}

func (s *expenseService) Summary(dbc dbctx.Context, orgID uuid.UUID, from, to *time.Time) ([]*AccountSummary, error) {
	accounts, err := s.accountRepo.ListByOrg(dbc, orgID, false)
	if err != nil {
		return nil, db.MapError("list expense accounts", err)
	}
	ids := make([]uuid.UUID, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	ownTotals, err := s.entryRepo.SumByAccount(dbc, orgID, ids, from, to)
	if err != nil {
		return nil, db.MapError("sum expense entries", err)
	}

	childrenOf := make(map[uuid.UUID][]uuid.UUID, len(accounts))
	for _, a := range accounts {
		if a.ParentID != nil {
			childrenOf[*a.ParentID] = append(childrenOf[*a.ParentID], a.ID)
		}
	}

	rolled := make(map[uuid.UUID]decimal.Decimal, len(accounts))
	var rollUp func(id uuid.UUID) decimal.Decimal
	rollUp = func(id uuid.UUID) decimal.Decimal {
		if v, ok := rolled[id]; ok {
			return v
		}
		total := ownTotals[id]
		for _, child := range childrenOf[id] {
			total = total.Add(rollUp(child))
		}
		rolled[id] = total
		return total
	}

	out := make([]*AccountSummary, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, &AccountSummary{
			Account:  a,
			OwnTotal: ownTotals[a.ID],
			RolledUp: rollUp(a.ID),
		})
	}
	return out, nil
}

func (s *expenseService) orgAccount(dbc dbctx.Context, orgID, accountID uuid.UUID) (*expense.Account, error) {
	account, err := s.accountRepo.GetByID(dbc, accountID)
	if err != nil {
		return nil, db.MapError("fetch expense account", err)
	}
	if account == nil || account.OrgID != orgID {
		return nil, db.NotFoundError("expense account not found")
	}
	return account, nil
}

func (s *expenseService) orgEntry(dbc dbctx.Context, orgID, entryID uuid.UUID) (*expense.Entry, error) {
	entry, err := s.entryRepo.GetByID(dbc, entryID)
	if err != nil {
		return nil, db.MapError("fetch expense entry", err)
	}
	if entry == nil || entry.OrgID != orgID {
		return nil, db.NotFoundError("expense entry not found")
	}
	return entry, nil
}
