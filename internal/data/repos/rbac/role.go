package rbac

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/rbac"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

type RoleRepo interface {
	Create(dbc dbctx.Context, rows []*rbac.Role) ([]*rbac.Role, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*rbac.Role, error)
	GetByOrgAndName(dbc dbctx.Context, orgID uuid.UUID, name string) (*rbac.Role, error)
	ListByOrg(dbc dbctx.Context, orgID uuid.UUID) ([]*rbac.Role, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	ReplacePermissions(dbc dbctx.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error
	PermissionCodesByRoleID(dbc dbctx.Context, roleID uuid.UUID) ([]string, error)
	SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type roleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoleRepo(db *gorm.DB, baseLog *logger.Logger) RoleRepo {
	return &roleRepo{db: db, log: baseLog.With("repo", "RoleRepo")}
}

func (r *roleRepo) Create(dbc dbctx.Context, rows []*rbac.Role) ([]*rbac.Role, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*rbac.Role{}, nil
	}
	// Permission links go through ReplacePermissions; Create only persists the
	// role row itself.
	if err := t.WithContext(dbc.Ctx).Omit("Permissions").Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *roleRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*rbac.Role, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row rbac.Role
	err := t.WithContext(dbc.Ctx).
		Preload("Permissions").
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

func (r *roleRepo) GetByOrgAndName(dbc dbctx.Context, orgID uuid.UUID, name string) (*rbac.Role, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if orgID == uuid.Nil || name == "" {
		return nil, nil
	}
	var row rbac.Role
	err := t.WithContext(dbc.Ctx).
		Preload("Permissions").
		Where("org_id = ? AND name = ?", orgID, name).
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

func (r *roleRepo) ListByOrg(dbc dbctx.Context, orgID uuid.UUID) ([]*rbac.Role, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*rbac.Role
	if orgID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Preload("Permissions").
		Where("org_id = ?", orgID).
		Order("is_system DESC, name ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *roleRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&rbac.Role{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *roleRepo) ReplacePermissions(dbc dbctx.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if roleID == uuid.Nil {
		return nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("role_id = ?", roleID).
		Delete(&rbac.RolePermission{}).Error; err != nil {
		return err
	}
	if len(permissionIDs) == 0 {
		return nil
	}
	links := make([]*rbac.RolePermission, 0, len(permissionIDs))
	for _, pid := range permissionIDs {
		links = append(links, &rbac.RolePermission{RoleID: roleID, PermissionID: pid})
	}
	return t.WithContext(dbc.Ctx).Create(&links).Error
}

func (r *roleRepo) PermissionCodesByRoleID(dbc dbctx.Context, roleID uuid.UUID) ([]string, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var codes []string
	if roleID == uuid.Nil {
		return codes, nil
	}
	err := t.WithContext(dbc.Ctx).
		Model(&rbac.Permission{}).
		Joins("JOIN role_permission ON role_permission.permission_id = permission.id").
		Where("role_permission.role_id = ?", roleID).
		Order("permission.code ASC").
		Pluck("permission.code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *roleRepo) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&rbac.Role{}).Error
}
