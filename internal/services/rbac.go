package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/data/db"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	domrbac "github.com/veldtops/fieldsuite-backend/internal/domain/rbac"
	rbacseed "github.com/veldtops/fieldsuite-backend/internal/services/rbac"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

// RoleWithCodes is a role joined with its permission codes, the shape the
// role listing returns.
type RoleWithCodes struct {
	Role  *domrbac.Role `json:"role"`
	Codes []string      `json:"codes"`
}

type CreateRoleInput struct {
	Name        string
	Description string
	Codes       []string
}

type UpdateRoleInput struct {
	Name        *string
	Description *string
}

type RBACService interface {
	// SeedCatalog upserts the embedded permission catalog; runs once at boot.
	SeedCatalog(dbc dbctx.Context) error
	// SeedSystemRoles creates the four system roles for a new org and
	// returns their ids by name. Must run inside the org-creation
	// transaction.
	SeedSystemRoles(dbc dbctx.Context, orgID uuid.UUID) (map[string]uuid.UUID, error)

	ListPermissions(dbc dbctx.Context) ([]*domrbac.Permission, error)
	ListRoles(dbc dbctx.Context, orgID uuid.UUID) ([]*RoleWithCodes, error)
	CreateRole(dbc dbctx.Context, orgID uuid.UUID, in CreateRoleInput) (*RoleWithCodes, error)
	UpdateRole(dbc dbctx.Context, orgID, roleID uuid.UUID, in UpdateRoleInput) (*domrbac.Role, error)
	DeleteRole(dbc dbctx.Context, orgID, roleID uuid.UUID) error
	ReplaceRolePermissions(dbc dbctx.Context, orgID, roleID uuid.UUID, codes []string) (*RoleWithCodes, error)
	// PermissionCodesForRole backs the permission middleware.
	PermissionCodesForRole(dbc dbctx.Context, roleID uuid.UUID) ([]string, error)
}

type rbacService struct {
	db       *gorm.DB
	log      *logger.Logger
	permRepo repos.PermissionRepo
	roleRepo repos.RoleRepo
	memRepo  repos.MemberRepo
}

func NewRBACService(gdb *gorm.DB, baseLog *logger.Logger, permRepo repos.PermissionRepo, roleRepo repos.RoleRepo, memRepo repos.MemberRepo) RBACService {
	return &rbacService{
		db:       gdb,
		log:      baseLog.With("service", "RBACService"),
		permRepo: permRepo,
		roleRepo: roleRepo,
		memRepo:  memRepo,
	}
}

func (s *rbacService) SeedCatalog(dbc dbctx.Context) error {
	catalog, err := rbacseed.Catalog()
	if err != nil {
		return err
	}
	rows := make([]*domrbac.Permission, 0, len(catalog))
	for _, e := range catalog {
		rows = append(rows, &domrbac.Permission{
			Code:        e.Code,
			Resource:    e.Resource,
			Action:      e.Action,
			Description: e.Description,
		})
	}
	if err := s.permRepo.UpsertByCode(dbc, rows); err != nil {
		return db.MapError("seed permission catalog", err)
	}
	s.log.Info("Permission catalog seeded", "permissions", len(rows))
	return nil
}

func (s *rbacService) SeedSystemRoles(dbc dbctx.Context, orgID uuid.UUID) (map[string]uuid.UUID, error) {
	catalog, err := rbacseed.Catalog()
	if err != nil {
		return nil, err
	}
	grants := rbacseed.SystemRoles(catalog)

	out := make(map[string]uuid.UUID, len(grants))
	for _, grant := range grants {
		created, err := s.roleRepo.Create(dbc, []*domrbac.Role{{
			OrgID:       orgID,
			Name:        grant.Name,
			Description: grant.Description,
			IsSystem:    true,
		}})
		if err != nil {
			return nil, db.MapError("seed system role", err)
		}
		role := created[0]
		perms, err := s.permRepo.GetByCodes(dbc, grant.Codes)
		if err != nil {
			return nil, db.MapError("resolve role permissions", err)
		}
		ids := make([]uuid.UUID, 0, len(perms))
		for _, p := range perms {
			ids = append(ids, p.ID)
		}
		if err := s.roleRepo.ReplacePermissions(dbc, role.ID, ids); err != nil {
			return nil, db.MapError("grant role permissions", err)
		}
		out[grant.Name] = role.ID
	}
	return out, nil
}

func (s *rbacService) ListPermissions(dbc dbctx.Context) ([]*domrbac.Permission, error) {
	rows, err := s.permRepo.ListAll(dbc)
	if err != nil {
		return nil, db.MapError("list permissions", err)
	}
	return rows, nil
}

func (s *rbacService) ListRoles(dbc dbctx.Context, orgID uuid.UUID) ([]*RoleWithCodes, error) {
	roles, err := s.roleRepo.ListByOrg(dbc, orgID)
	if err != nil {
		return nil, db.MapError("list roles", err)
	}
	out := make([]*RoleWithCodes, 0, len(roles))
	for _, role := range roles {
		codes, err := s.roleRepo.PermissionCodesByRoleID(dbc, role.ID)
		if err != nil {
			return nil, db.MapError("list role permissions", err)
		}
		out = append(out, &RoleWithCodes{Role: role, Codes: codes})
	}
	return out, nil
}

func (s *rbacService) CreateRole(dbc dbctx.Context, orgID uuid.UUID, in CreateRoleInput) (*RoleWithCodes, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, db.ValidationError("role name is required")
	}
	if rbacseed.IsSystemRoleName(name) {
		return nil, db.ValidationError("role name collides with a system role")
	}

	perms, err := s.permRepo.GetByCodes(dbc, in.Codes)
	if err != nil {
		return nil, db.MapError("resolve permission codes", err)
	}
	if len(perms) != len(dedupe(in.Codes)) {
		return nil, db.ValidationError("unknown permission code")
	}

	var result *RoleWithCodes
	err = s.inTx(dbc, func(inner dbctx.Context) error {
		created, err := s.roleRepo.Create(inner, []*domrbac.Role{{
			OrgID:       orgID,
			Name:        name,
			Description: strings.TrimSpace(in.Description),
		}})
		if err != nil {
			return db.MapError("create role", err)
		}
		role := created[0]
		ids := make([]uuid.UUID, 0, len(perms))
		codes := make([]string, 0, len(perms))
		for _, p := range perms {
			ids = append(ids, p.ID)
			codes = append(codes, p.Code)
		}
		if err := s.roleRepo.ReplacePermissions(inner, role.ID, ids); err != nil {
			return db.MapError("grant role permissions", err)
		}
		result = &RoleWithCodes{Role: role, Codes: codes}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *rbacService) UpdateRole(dbc dbctx.Context, orgID, roleID uuid.UUID, in UpdateRoleInput) (*domrbac.Role, error) {
	role, err := s.orgRole(dbc, orgID, roleID)
	if err != nil {
		return nil, err
	}
	if role.IsSystem {
		return nil, db.ValidationError("system roles cannot be edited")
	}

	updates := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, db.ValidationError("role name is required")
		}
		if rbacseed.IsSystemRoleName(name) {
			return nil, db.ValidationError("role name collides with a system role")
		}
		updates["name"] = name
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if len(updates) == 0 {
		return role, nil
	}
	if err := s.roleRepo.UpdateFields(dbc, roleID, updates); err != nil {
		return nil, db.MapError("update role", err)
	}
	return s.orgRole(dbc, orgID, roleID)
}

func (s *rbacService) DeleteRole(dbc dbctx.Context, orgID, roleID uuid.UUID) error {
	role, err := s.orgRole(dbc, orgID, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return db.ValidationError("system roles cannot be deleted")
	}
	holders, err := s.memRepo.CountActiveByRole(dbc, orgID, roleID)
	if err != nil {
		return db.MapError("count role holders", err)
	}
	if holders > 0 {
		return db.ConflictError(fmt.Sprintf("role is held by %d member(s)", holders))
	}
	return db.MapError("delete role", s.roleRepo.SoftDeleteByID(dbc, roleID))
}

func (s *rbacService) ReplaceRolePermissions(dbc dbctx.Context, orgID, roleID uuid.UUID, codes []string) (*RoleWithCodes, error) {
	role, err := s.orgRole(dbc, orgID, roleID)
	if err != nil {
		return nil, err
	}
	if role.IsSystem {
		return nil, db.ValidationError("system role permissions cannot be edited")
	}
	perms, err := s.permRepo.GetByCodes(dbc, codes)
	if err != nil {
		return nil, db.MapError("resolve permission codes", err)
	}
	if len(perms) != len(dedupe(codes)) {
		return nil, db.ValidationError("unknown permission code")
	}
	ids := make([]uuid.UUID, 0, len(perms))
	granted := make([]string, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ID)
		granted = append(granted, p.Code)
	}
	if err := s.roleRepo.ReplacePermissions(dbc, roleID, ids); err != nil {
		return nil, db.MapError("replace role permissions", err)
	}
	return &RoleWithCodes{Role: role, Codes: granted}, nil
}

func (s *rbacService) PermissionCodesForRole(dbc dbctx.Context, roleID uuid.UUID) ([]string, error) {
	codes, err := s.roleRepo.PermissionCodesByRoleID(dbc, roleID)
	if err != nil {
		return nil, db.MapError("list role permissions", err)
	}
	return codes, nil
}

func (s *rbacService) orgRole(dbc dbctx.Context, orgID, roleID uuid.UUID) (*domrbac.Role, error) {
	role, err := s.roleRepo.GetByID(dbc, roleID)
	if err != nil {
		return nil, db.MapError("fetch role", err)
	}
	if role == nil || role.OrgID != orgID {
		return nil, db.NotFoundError("role not found")
	}
	return role, nil
}

// inTx runs fn in the ambient transaction when one is present, otherwise in a
// fresh one.
func (s *rbacService) inTx(dbc dbctx.Context, fn func(dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	return s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: dbc.Ctx, Tx: tx})
	})
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
