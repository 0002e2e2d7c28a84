package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/data/db"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	domorg "github.com/veldtops/fieldsuite-backend/internal/domain/org"
	domrbac "github.com/veldtops/fieldsuite-backend/internal/domain/rbac"
	userdom "github.com/veldtops/fieldsuite-backend/internal/domain/user"
	"github.com/veldtops/fieldsuite-backend/internal/platform/ctxutil"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
	"github.com/veldtops/fieldsuite-backend/internal/services/sladefault"
)

type CreateOrgInput struct {
	Name         string
	GSTIN        string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	Country      string
}

type UpdateOrgInput struct {
	Name         *string
	GSTIN        *string
	VerifyGSTIN  bool
	AddressLine1 *string
	AddressLine2 *string
	City         *string
	State        *string
	PostalCode   *string
	Country      *string
}

// MemberView joins a membership with its user and role for listings.
type MemberView struct {
	Member *domorg.Member `json:"member"`
	User   *userdom.User  `json:"user"`
	Role   *domrbac.Role  `json:"role"`
}

type OrgService interface {
	// Create makes the organization, its four system roles, its number
	// sequences, its baseline SLA policies, and the creator's owner
	// membership in one transaction.
	Create(ctx context.Context, creatorID uuid.UUID, in CreateOrgInput) (*domorg.Organization, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]*domorg.Organization, error)
	Get(dbc dbctx.Context, orgID uuid.UUID) (*domorg.Organization, error)
	Update(ctx context.Context, orgID uuid.UUID, in UpdateOrgInput) (*domorg.Organization, error)
	Deactivate(ctx context.Context, orgID uuid.UUID) error

	AddMemberByEmail(ctx context.Context, orgID uuid.UUID, email string, roleID uuid.UUID) (*MemberView, error)
	ListMembers(dbc dbctx.Context, orgID uuid.UUID) ([]*MemberView, error)
	ChangeMemberRole(ctx context.Context, orgID, memberID, roleID uuid.UUID) error
	RemoveMember(ctx context.Context, orgID, memberID uuid.UUID) error

	// Membership resolves the caller's active membership plus role metadata
	// for the org middleware.
	Membership(dbc dbctx.Context, orgID, userID uuid.UUID) (*domorg.Member, *domrbac.Role, error)
}

type orgService struct {
	db       *gorm.DB
	log      *logger.Logger
	orgRepo  repos.OrganizationRepo
	memRepo  repos.MemberRepo
	roleRepo repos.RoleRepo
	userRepo repos.UserRepo
	seqRepo  repos.SequenceRepo
	slaRepo  repos.SLAPolicyRepo
	rbac     RBACService
	gst      GSTService
}

func NewOrgService(
	gdb *gorm.DB,
	baseLog *logger.Logger,
	orgRepo repos.OrganizationRepo,
	memRepo repos.MemberRepo,
	roleRepo repos.RoleRepo,
	userRepo repos.UserRepo,
	seqRepo repos.SequenceRepo,
	slaRepo repos.SLAPolicyRepo,
	rbac RBACService,
	gst GSTService,
) OrgService {
	return &orgService{
		db:       gdb,
		log:      baseLog.With("service", "OrgService"),
		orgRepo:  orgRepo,
		memRepo:  memRepo,
		roleRepo: roleRepo,
		userRepo: userRepo,
		seqRepo:  seqRepo,
		slaRepo:  slaRepo,
		rbac:     rbac,
		gst:      gst,
	}
}

func (s *orgService) Create(ctx context.Context, creatorID uuid.UUID, in CreateOrgInput) (*domorg.Organization, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, db.ValidationError("organization name is required")
	}
	if creatorID == uuid.Nil {
		return nil, db.ValidationError("creator is required")
	}
	gstin := NormalizeGSTIN(in.GSTIN)
	if gstin != "" && !ValidGSTIN(gstin) {
		return nil, db.ValidationError("invalid gstin")
	}
	slug := domorg.Slugify(name)
	if !domorg.ValidSlug(slug) {
		return nil, db.ValidationError("organization name does not produce a usable slug")
	}

	var created *domorg.Organization
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		slug, err := s.availableSlug(dbc, slug)
		if err != nil {
			return err
		}
		country := strings.ToUpper(strings.TrimSpace(in.Country))
		if country == "" {
			country = "IN"
		}
		rows, err := s.orgRepo.Create(dbc, []*domorg.Organization{{
			Name:         name,
			Slug:         slug,
			GSTIN:        gstin,
			AddressLine1: strings.TrimSpace(in.AddressLine1),
			AddressLine2: strings.TrimSpace(in.AddressLine2),
			City:         strings.TrimSpace(in.City),
			State:        strings.TrimSpace(in.State),
			PostalCode:   strings.TrimSpace(in.PostalCode),
			Country:      country,
			IsActive:     true,
		}})
		if err != nil {
			return db.MapError("create organization", err)
		}
		created = rows[0]

		roleIDs, err := s.rbac.SeedSystemRoles(dbc, created.ID)
		if err != nil {
			return err
		}
		ownerRoleID, ok := roleIDs[domrbac.RoleOwner]
		if !ok {
			return fmt.Errorf("owner role missing after seeding")
		}
		if _, err := s.memRepo.Create(dbc, []*domorg.Member{{
			OrgID:  created.ID,
			UserID: creatorID,
			RoleID: ownerRoleID,
			Status: domorg.MemberStatusActive,
		}}); err != nil {
			return db.MapError("create owner membership", err)
		}

		if err := s.seqRepo.EnsureDefaults(dbc, created.ID); err != nil {
			return db.MapError("seed number sequences", err)
		}

		policies, err := sladefault.PoliciesForOrg(created.ID)
		if err != nil {
			return err
		}
		if _, err := s.slaRepo.Create(dbc, policies); err != nil {
			return db.MapError("seed sla policies", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Organization created", "org_id", created.ID, "slug", created.Slug)
	return created, nil
}

// availableSlug appends a short suffix when the natural slug is taken.
func (s *orgService) availableSlug(dbc dbctx.Context, base string) (string, error) {
	taken, err := s.orgRepo.SlugExists(dbc, base)
	if err != nil {
		return "", db.MapError("check slug", err)
	}
	if !taken {
		return base, nil
	}
	for i := 0; i < 5; i++ {
		candidate := fmt.Sprintf("%s-%s", base, uuid.NewString()[:8])
		taken, err := s.orgRepo.SlugExists(dbc, candidate)
		if err != nil {
			return "", db.MapError("check slug", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", db.ConflictError("could not allocate a unique slug")
}

func (s *orgService) ListMine(ctx context.Context, userID uuid.UUID) ([]*domorg.Organization, error) {
	rows, err := s.orgRepo.ListByUserID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, db.MapError("list organizations", err)
	}
	return rows, nil
}

func (s *orgService) Get(dbc dbctx.Context, orgID uuid.UUID) (*domorg.Organization, error) {
	row, err := s.orgRepo.GetByID(dbc, orgID)
	if err != nil {
		return nil, db.MapError("fetch organization", err)
	}
	if row == nil {
		return nil, db.NotFoundError("organization not found")
	}
	return row, nil
}

func (s *orgService) Update(ctx context.Context, orgID uuid.UUID, in UpdateOrgInput) (*domorg.Organization, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.Get(dbc, orgID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, db.ValidationError("organization name is required")
		}
		updates["name"] = name
	}
	if in.GSTIN != nil {
		gstin := NormalizeGSTIN(*in.GSTIN)
		if gstin != "" {
			if !ValidGSTIN(gstin) {
				return nil, db.ValidationError("invalid gstin")
			}
			if in.VerifyGSTIN {
				if _, err := s.gst.Lookup(ctx, gstin); err != nil {
					return nil, fmt.Errorf("verify gstin: %w", err)
				}
			}
		}
		updates["gstin"] = gstin
	}
	setString(updates, "address_line1", in.AddressLine1)
	setString(updates, "address_line2", in.AddressLine2)
	setString(updates, "city", in.City)
	setString(updates, "state", in.State)
	setString(updates, "postal_code", in.PostalCode)
	if in.Country != nil {
		updates["country"] = strings.ToUpper(strings.TrimSpace(*in.Country))
	}
	if len(updates) > 0 {
		if err := s.orgRepo.UpdateFields(dbc, orgID, updates); err != nil {
			return nil, db.MapError("update organization", err)
		}
	}
	return s.Get(dbc, orgID)
}

func (s *orgService) Deactivate(ctx context.Context, orgID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.Get(dbc, orgID); err != nil {
		return err
	}
	return db.MapError("deactivate organization", s.orgRepo.UpdateFields(dbc, orgID, map[string]any{"is_active": false}))
}

func (s *orgService) AddMemberByEmail(ctx context.Context, orgID uuid.UUID, email string, roleID uuid.UUID) (*MemberView, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var view *MemberView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		u, err := s.userRepo.GetByEmail(dbc, email)
		if err != nil {
			return db.MapError("fetch user", err)
		}
		if u == nil {
			return db.NotFoundError("no user with that email")
		}
		role, err := s.roleRepo.GetByID(dbc, roleID)
		if err != nil {
			return db.MapError("fetch role", err)
		}
		if role == nil || role.OrgID != orgID {
			return db.NotFoundError("role not found")
		}

		existing, err := s.memRepo.GetByOrgAndUser(dbc, orgID, u.ID)
		if err != nil {
			return db.MapError("fetch membership", err)
		}
		var member *domorg.Member
		switch {
		case existing == nil:
			rows, err := s.memRepo.Create(dbc, []*domorg.Member{{
				OrgID:  orgID,
				UserID: u.ID,
				RoleID: roleID,
				Status: domorg.MemberStatusActive,
			}})
			if err != nil {
				return db.MapError("create membership", err)
			}
			member = rows[0]
		case existing.Status == domorg.MemberStatusRemoved:
			// Re-adding a removed member reactivates the row.
			if err := s.memRepo.UpdateRole(dbc, existing.ID, roleID); err != nil {
				return db.MapError("update membership role", err)
			}
			if err := s.memRepo.UpdateStatus(dbc, existing.ID, domorg.MemberStatusActive); err != nil {
				return db.MapError("reactivate membership", err)
			}
			existing.RoleID = roleID
			existing.Status = domorg.MemberStatusActive
			member = existing
		default:
			return db.ConflictError("user is already a member")
		}
		view = &MemberView{Member: member, User: u, Role: role}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *orgService) ListMembers(dbc dbctx.Context, orgID uuid.UUID) ([]*MemberView, error) {
	members, err := s.memRepo.ListByOrg(dbc, orgID, []domorg.MemberStatus{domorg.MemberStatusActive, domorg.MemberStatusInvited})
	if err != nil {
		return nil, db.MapError("list members", err)
	}

	userIDs := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		userIDs = append(userIDs, m.UserID)
	}
	users, err := s.userRepo.GetByIDs(dbc, userIDs)
	if err != nil {
		return nil, db.MapError("load member users", err)
	}
	userByID := make(map[uuid.UUID]*userdom.User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}

	roles, err := s.roleRepo.ListByOrg(dbc, orgID)
	if err != nil {
		return nil, db.MapError("load roles", err)
	}
	roleByID := make(map[uuid.UUID]*domrbac.Role, len(roles))
	for _, r := range roles {
		roleByID[r.ID] = r
	}

	out := make([]*MemberView, 0, len(members))
	for _, m := range members {
		out = append(out, &MemberView{
			Member: m,
			User:   userByID[m.UserID],
			Role:   roleByID[m.RoleID],
		})
	}
	return out, nil
}

func (s *orgService) ChangeMemberRole(ctx context.Context, orgID, memberID, roleID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		member, role, err := s.memberAndRole(dbc, orgID, memberID)
		if err != nil {
			return err
		}
		newRole, err := s.roleRepo.GetByID(dbc, roleID)
		if err != nil {
			return db.MapError("fetch role", err)
		}
		if newRole == nil || newRole.OrgID != orgID {
			return db.NotFoundError("role not found")
		}
		if role.Name == domrbac.RoleOwner && newRole.Name != domrbac.RoleOwner {
			if err := s.requireAnotherOwner(dbc, orgID, role.ID, member.ID); err != nil {
				return err
			}
		}
		return db.MapError("change member role", s.memRepo.UpdateRole(dbc, memberID, roleID))
	})
}

func (s *orgService) RemoveMember(ctx context.Context, orgID, memberID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		member, role, err := s.memberAndRole(dbc, orgID, memberID)
		if err != nil {
			return err
		}
		if role.Name == domrbac.RoleOwner {
			if err := s.requireAnotherOwner(dbc, orgID, role.ID, member.ID); err != nil {
				return err
			}
		}
		return db.MapError("remove member", s.memRepo.UpdateStatus(dbc, memberID, domorg.MemberStatusRemoved))
	})
}

func (s *orgService) Membership(dbc dbctx.Context, orgID, userID uuid.UUID) (*domorg.Member, *domrbac.Role, error) {
	member, err := s.memRepo.GetByOrgAndUser(dbc, orgID, userID)
	if err != nil {
		return nil, nil, db.MapError("fetch membership", err)
	}
	if member == nil || member.Status != domorg.MemberStatusActive {
		return nil, nil, db.NotFoundError("not a member of this organization")
	}
	role, err := s.roleRepo.GetByID(dbc, member.RoleID)
	if err != nil {
		return nil, nil, db.MapError("fetch member role", err)
	}
	if role == nil {
		return nil, nil, db.NotFoundError("member role not found")
	}
	return member, role, nil
}

func (s *orgService) memberAndRole(dbc dbctx.Context, orgID, memberID uuid.UUID) (*domorg.Member, *domrbac.Role, error) {
	member, err := s.memRepo.GetByID(dbc, memberID)
	if err != nil {
		return nil, nil, db.MapError("fetch member", err)
	}
	if member == nil || member.OrgID != orgID || member.Status == domorg.MemberStatusRemoved {
		return nil, nil, db.NotFoundError("member not found")
	}
	role, err := s.roleRepo.GetByID(dbc, member.RoleID)
	if err != nil {
		return nil, nil, db.MapError("fetch member role", err)
	}
	if role == nil {
		return nil, nil, db.NotFoundError("member role not found")
	}
	return member, role, nil
}

// requireAnotherOwner blocks demoting or removing the last owner.
func (s *orgService) requireAnotherOwner(dbc dbctx.Context, orgID, ownerRoleID, exceptMemberID uuid.UUID) error {
	count, err := s.memRepo.CountActiveByRole(dbc, orgID, ownerRoleID)
	if err != nil {
		return db.MapError("count owners", err)
	}
	if count <= 1 {
		return db.ConflictError("an organization needs at least one owner")
	}
	return nil
}

// actorFromContext reads the authenticated caller set by the auth middleware.
func actorFromContext(ctx context.Context) (*ctxutil.Actor, error) {
	actor := ctxutil.GetActor(ctx)
	if actor == nil || actor.UserID == uuid.Nil {
		return nil, db.ValidationError("no authenticated user in context")
	}
	return actor, nil
}

func setString(updates map[string]any, column string, val *string) {
	if val != nil {
		updates[column] = strings.TrimSpace(*val)
	}
}
