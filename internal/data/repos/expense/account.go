package expense

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/expense"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

type AccountRepo interface {
	Create(dbc dbctx.Context, rows []*expense.Account) ([]*expense.Account, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*expense.Account, error)
	GetByOrgAndCode(dbc dbctx.Context, orgID uuid.UUID, code string) (*expense.Account, error)
	ListByOrg(dbc dbctx.Context, orgID uuid.UUID, activeOnly bool) ([]*expense.Account, error)
	ListChildren(dbc dbctx.Context, orgID, parentID uuid.UUID) ([]*expense.Account, error)
	HasChildren(dbc dbctx.Context, id uuid.UUID) (bool, error)
	HasEntries(dbc dbctx.Context, id uuid.UUID) (bool, error)
	DepthOf(dbc dbctx.Context, orgID, id uuid.UUID) (int, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type accountRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAccountRepo(db *gorm.DB, baseLog *logger.Logger) AccountRepo {
	return &accountRepo{db: db, log: baseLog.With("repo", "ExpenseAccountRepo")}
}

func (r *accountRepo) Create(dbc dbctx.Context, rows []*expense.Account) ([]*expense.Account, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*expense.Account{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *accountRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*expense.Account, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row expense.Account
	err := t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *accountRepo) GetByOrgAndCode(dbc dbctx.Context, orgID uuid.UUID, code string) (*expense.Account, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	code = strings.TrimSpace(code)
	if orgID == uuid.Nil || code == "" {
		return nil, nil
	}
	var row expense.Account
	err := t.WithContext(dbc.Ctx).
		Where("org_id = ? AND code = ?", orgID, code).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *accountRepo) ListByOrg(dbc dbctx.Context, orgID uuid.UUID, activeOnly bool) ([]*expense.Account, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*expense.Account
	if orgID == uuid.Nil {
		return out, nil
	}
	q := t.WithContext(dbc.Ctx).Where("org_id = ?", orgID)
	if activeOnly {
		q = q.Where("is_active = TRUE")
	}
	if err := q.Order("code ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *accountRepo) ListChildren(dbc dbctx.Context, orgID, parentID uuid.UUID) ([]*expense.Account, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*expense.Account
	if orgID == uuid.Nil || parentID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("org_id = ? AND parent_id = ?", orgID, parentID).
		Order("code ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *accountRepo) HasChildren(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	var count int64
	err := t.WithContext(dbc.Ctx).
		Model(&expense.Account{}).
		Where("parent_id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *accountRepo) HasEntries(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	var count int64
	err := t.WithContext(dbc.Ctx).
		Model(&expense.Entry{}).
		Where("account_id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DepthOf walks the parent chain; the root sits at depth 1. A cycle (or a
// chain deeper than the cap) is reported as an error rather than looping.
func (r *accountRepo) DepthOf(dbc dbctx.Context, orgID, id uuid.UUID) (int, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return 0, nil
	}
	depth := 0
	current := id
	for depth <= expense.MaxAccountDepth {
		var row expense.Account
		err := t.WithContext(dbc.Ctx).
			Select("id", "parent_id").
			Where("org_id = ? AND id = ?", orgID, current).
			Limit(1).
			Find(&row).Error
		if err != nil {
			return 0, err
		}
		if row.ID == uuid.Nil {
			return 0, nil
		}
		depth++
		if row.ParentID == nil {
			return depth, nil
		}
		current = *row.ParentID
	}
	return 0, fmt.Errorf("expense account chain exceeds depth %d (possible cycle)", expense.MaxAccountDepth)
}

func (r *accountRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&expense.Account{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *accountRepo) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&expense.Account{}).Error
}
