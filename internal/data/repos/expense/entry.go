package expense

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/expense"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

// EntryFilter narrows ListByOrg / CountByOrg. Zero values mean "no filter".
type EntryFilter struct {
	AccountIDs []uuid.UUID
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

type EntryRepo interface {
	Create(dbc dbctx.Context, rows []*expense.Entry) ([]*expense.Entry, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*expense.Entry, error)
	ListByOrg(dbc dbctx.Context, orgID uuid.UUID, filter EntryFilter) ([]*expense.Entry, error)
	CountByOrg(dbc dbctx.Context, orgID uuid.UUID, filter EntryFilter) (int64, error)
	SumByAccount(dbc dbctx.Context, orgID uuid.UUID, accountIDs []uuid.UUID, from, to *time.Time) (map[uuid.UUID]decimal.Decimal, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type entryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEntryRepo(db *gorm.DB, baseLog *logger.Logger) EntryRepo {
	return &entryRepo{db: db, log: baseLog.With("repo", "ExpenseEntryRepo")}
}

func (r *entryRepo) Create(dbc dbctx.Context, rows []*expense.Entry) ([]*expense.Entry, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*expense.Entry{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *entryRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*expense.Entry, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row expense.Entry
	err := t.WithContext(dbc.Ctx).
		Preload("Account").
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

func applyEntryFilter(q *gorm.DB, filter EntryFilter) *gorm.DB {
	if len(filter.AccountIDs) > 0 {
		q = q.Where("account_id IN ?", filter.AccountIDs)
	}
	if filter.From != nil {
		q = q.Where("incurred_on >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("incurred_on < ?", *filter.To)
	}
	return q
}

func (r *entryRepo) ListByOrg(dbc dbctx.Context, orgID uuid.UUID, filter EntryFilter) ([]*expense.Entry, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*expense.Entry
	if orgID == uuid.Nil {
		return out, nil
	}
	q := applyEntryFilter(t.WithContext(dbc.Ctx).Where("org_id = ?", orgID), filter).
		Order("incurred_on DESC, created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entryRepo) CountByOrg(dbc dbctx.Context, orgID uuid.UUID, filter EntryFilter) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if orgID == uuid.Nil {
		return 0, nil
	}
	var count int64
	q := applyEntryFilter(
		t.WithContext(dbc.Ctx).Model(&expense.Entry{}).Where("org_id = ?", orgID),
		filter,
	)
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *entryRepo) SumByAccount(dbc dbctx.Context, orgID uuid.UUID, accountIDs []uuid.UUID, from, to *time.Time) (map[uuid.UUID]decimal.Decimal, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := map[uuid.UUID]decimal.Decimal{}
	if orgID == uuid.Nil || len(accountIDs) == 0 {
		return out, nil
	}

	type accountSum struct {
		AccountID uuid.UUID       `gorm:"column:account_id"`
		Total     decimal.Decimal `gorm:"column:total"`
	}
	var rows []accountSum

	q := t.WithContext(dbc.Ctx).
		Model(&expense.Entry{}).
		Select("account_id, COALESCE(SUM(amount), 0) AS total").
		Where("org_id = ? AND account_id IN ?", orgID, accountIDs)
	if from != nil {
		q = q.Where("incurred_on >= ?", *from)
	}
	if to != nil {
		q = q.Where("incurred_on < ?", *to)
	}
	if err := q.Group("account_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.AccountID] = row.Total
	}
	return out, nil
}

func (r *entryRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&expense.Entry{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *entryRepo) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&expense.Entry{}).Error
}
