package sla

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/sla"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

type PolicyRepo interface {
	Create(dbc dbctx.Context, rows []*sla.Policy) ([]*sla.Policy, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*sla.Policy, error)
	ListByOrg(dbc dbctx.Context, orgID uuid.UUID, activeOnly bool) ([]*sla.Policy, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	// SetDefault makes the given policy the org fallback and clears the flag
	// everywhere else. Run inside a transaction.
	SetDefault(dbc dbctx.Context, orgID, policyID uuid.UUID) error
	SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type policyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPolicyRepo(db *gorm.DB, baseLog *logger.Logger) PolicyRepo {
	return &policyRepo{db: db, log: baseLog.With("repo", "SLAPolicyRepo")}
}

func (r *policyRepo) Create(dbc dbctx.Context, rows []*sla.Policy) ([]*sla.Policy, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*sla.Policy{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *policyRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*sla.Policy, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row sla.Policy
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

func (r *policyRepo) ListByOrg(dbc dbctx.Context, orgID uuid.UUID, activeOnly bool) ([]*sla.Policy, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*sla.Policy
	if orgID == uuid.Nil {
		return out, nil
	}
	q := t.WithContext(dbc.Ctx).Where("org_id = ?", orgID)
	if activeOnly {
		q = q.Where("is_active = TRUE")
	}
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *policyRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&sla.Policy{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *policyRepo) SetDefault(dbc dbctx.Context, orgID, policyID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if orgID == uuid.Nil || policyID == uuid.Nil {
		return nil
	}
	if err := t.WithContext(dbc.Ctx).
		Model(&sla.Policy{}).
		Where("org_id = ? AND id <> ? AND is_default = TRUE", orgID, policyID).
		Update("is_default", false).Error; err != nil {
		return err
	}
	return t.WithContext(dbc.Ctx).
		Model(&sla.Policy{}).
		Where("org_id = ? AND id = ?", orgID, policyID).
		Update("is_default", true).Error
}

func (r *policyRepo) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&sla.Policy{}).Error
}
