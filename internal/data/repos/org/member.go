package org

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/org"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

type MemberRepo interface {
	Create(dbc dbctx.Context, rows []*org.Member) ([]*org.Member, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*org.Member, error)
	GetByOrgAndUser(dbc dbctx.Context, orgID, userID uuid.UUID) (*org.Member, error)
	ListByOrg(dbc dbctx.Context, orgID uuid.UUID, statuses []org.MemberStatus) ([]*org.Member, error)
	UpdateRole(dbc dbctx.Context, id uuid.UUID, roleID uuid.UUID) error
	UpdateStatus(dbc dbctx.Context, id uuid.UUID, status org.MemberStatus) error
	CountActiveByRole(dbc dbctx.Context, orgID, roleID uuid.UUID) (int64, error)
}

type memberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMemberRepo(db *gorm.DB, baseLog *logger.Logger) MemberRepo {
	return &memberRepo{db: db, log: baseLog.With("repo", "MemberRepo")}
}

func (r *memberRepo) Create(dbc dbctx.Context, rows []*org.Member) ([]*org.Member, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*org.Member{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *memberRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*org.Member, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row org.Member
	err := t.WithContext(dbc.Ctx).
		Preload("User").
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

func (r *memberRepo) GetByOrgAndUser(dbc dbctx.Context, orgID, userID uuid.UUID) (*org.Member, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if orgID == uuid.Nil || userID == uuid.Nil {
		return nil, nil
	}
	var row org.Member
	err := t.WithContext(dbc.Ctx).
		Where("org_id = ? AND user_id = ?", orgID, userID).
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

func (r *memberRepo) ListByOrg(dbc dbctx.Context, orgID uuid.UUID, statuses []org.MemberStatus) ([]*org.Member, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*org.Member
	if orgID == uuid.Nil {
		return out, nil
	}
	q := t.WithContext(dbc.Ctx).
		Preload("User").
		Where("org_id = ?", orgID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *memberRepo) UpdateRole(dbc dbctx.Context, id uuid.UUID, roleID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || roleID == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&org.Member{}).
		Where("id = ?", id).
		Update("role_id", roleID).Error
}

func (r *memberRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status org.MemberStatus) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&org.Member{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *memberRepo) CountActiveByRole(dbc dbctx.Context, orgID, roleID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var count int64
	err := t.WithContext(dbc.Ctx).
		Model(&org.Member{}).
		Where("org_id = ? AND role_id = ? AND status = ?", orgID, roleID, org.MemberStatusActive).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
