package rbac

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/veldtops/fieldsuite-backend/internal/domain/rbac"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

type PermissionRepo interface {
	UpsertByCode(dbc dbctx.Context, rows []*rbac.Permission) error
	ListAll(dbc dbctx.Context) ([]*rbac.Permission, error)
	GetByCodes(dbc dbctx.Context, codes []string) ([]*rbac.Permission, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*rbac.Permission, error)
}

type permissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPermissionRepo(db *gorm.DB, baseLog *logger.Logger) PermissionRepo {
	return &permissionRepo{db: db, log: baseLog.With("repo", "PermissionRepo")}
}

// UpsertByCode seeds the catalog idempotently; existing rows keep their ID.
func (r *permissionRepo) UpsertByCode(dbc dbctx.Context, rows []*rbac.Permission) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"resource", "action", "description", "updated_at"}),
		}).
		Create(&rows).Error
}

func (r *permissionRepo) ListAll(dbc dbctx.Context) ([]*rbac.Permission, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*rbac.Permission
	if err := t.WithContext(dbc.Ctx).Order("code ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *permissionRepo) GetByCodes(dbc dbctx.Context, codes []string) ([]*rbac.Permission, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*rbac.Permission
	if len(codes) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("code IN ?", codes).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *permissionRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*rbac.Permission, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*rbac.Permission
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
