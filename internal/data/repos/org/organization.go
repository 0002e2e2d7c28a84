package org

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/org"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

type OrganizationRepo interface {
	Create(dbc dbctx.Context, rows []*org.Organization) ([]*org.Organization, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*org.Organization, error)
	GetBySlug(dbc dbctx.Context, slug string) (*org.Organization, error)
	SlugExists(dbc dbctx.Context, slug string) (bool, error)
	ListByUserID(dbc dbctx.Context, userID uuid.UUID) ([]*org.Organization, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type organizationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrganizationRepo(db *gorm.DB, baseLog *logger.Logger) OrganizationRepo {
	return &organizationRepo{db: db, log: baseLog.With("repo", "OrganizationRepo")}
}

func (r *organizationRepo) Create(dbc dbctx.Context, rows []*org.Organization) ([]*org.Organization, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*org.Organization{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *organizationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*org.Organization, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row org.Organization
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

func (r *organizationRepo) GetBySlug(dbc dbctx.Context, slug string) (*org.Organization, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	slug = strings.TrimSpace(strings.ToLower(slug))
	if slug == "" {
		return nil, nil
	}
	var row org.Organization
	err := t.WithContext(dbc.Ctx).
		Where("slug = ?", slug).
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

func (r *organizationRepo) SlugExists(dbc dbctx.Context, slug string) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var count int64
	err := t.WithContext(dbc.Ctx).
		Model(&org.Organization{}).
		Where("slug = ?", strings.TrimSpace(strings.ToLower(slug))).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByUserID returns orgs the user is an active member of, newest first.
func (r *organizationRepo) ListByUserID(dbc dbctx.Context, userID uuid.UUID) ([]*org.Organization, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*org.Organization
	if userID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Joins("JOIN org_member ON org_member.org_id = organization.id AND org_member.deleted_at IS NULL").
		Where("org_member.user_id = ? AND org_member.status = ?", userID, org.MemberStatusActive).
		Order("organization.created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *organizationRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&org.Organization{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *organizationRepo) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&org.Organization{}).Error
}
