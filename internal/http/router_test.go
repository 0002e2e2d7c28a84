package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	domjob "github.com/veldtops/fieldsuite-backend/internal/domain/fieldjob"
	domorg "github.com/veldtops/fieldsuite-backend/internal/domain/org"
	domrbac "github.com/veldtops/fieldsuite-backend/internal/domain/rbac"
	userdom "github.com/veldtops/fieldsuite-backend/internal/domain/user"
	httpH "github.com/veldtops/fieldsuite-backend/internal/http/handlers"
	httpMW "github.com/veldtops/fieldsuite-backend/internal/http/middleware"
	"github.com/veldtops/fieldsuite-backend/internal/platform/ctxutil"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

type gateAuthService struct {
	userID uuid.UUID
}

func (s *gateAuthService) Register(ctx context.Context, email, password, firstName, lastName string) (*userdom.User, *services.TokenPair, error) {
	return nil, nil, nil
}

func (s *gateAuthService) Login(ctx context.Context, email, password, userAgent string) (*userdom.User, *services.TokenPair, error) {
	return nil, nil, nil
}

func (s *gateAuthService) Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	return nil, nil
}

func (s *gateAuthService) Logout(ctx context.Context, refreshToken string) error { return nil }

func (s *gateAuthService) ContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	return ctxutil.WithActor(ctx, &ctxutil.Actor{UserID: s.userID}), nil
}

// gateOrgService resolves every membership to the same member/role pair.
type gateOrgService struct {
	member *domorg.Member
	role   *domrbac.Role
}

func (s *gateOrgService) Create(ctx context.Context, creatorID uuid.UUID, in services.CreateOrgInput) (*domorg.Organization, error) {
	return nil, nil
}

func (s *gateOrgService) ListMine(ctx context.Context, userID uuid.UUID) ([]*domorg.Organization, error) {
	return nil, nil
}

func (s *gateOrgService) Get(dbc dbctx.Context, orgID uuid.UUID) (*domorg.Organization, error) {
	return nil, nil
}

func (s *gateOrgService) Update(ctx context.Context, orgID uuid.UUID, in services.UpdateOrgInput) (*domorg.Organization, error) {
	return nil, nil
}

func (s *gateOrgService) Deactivate(ctx context.Context, orgID uuid.UUID) error { return nil }

func (s *gateOrgService) AddMemberByEmail(ctx context.Context, orgID uuid.UUID, email string, roleID uuid.UUID) (*services.MemberView, error) {
	return nil, nil
}

func (s *gateOrgService) ListMembers(dbc dbctx.Context, orgID uuid.UUID) ([]*services.MemberView, error) {
	return nil, nil
}

func (s *gateOrgService) ChangeMemberRole(ctx context.Context, orgID, memberID, roleID uuid.UUID) error {
	return nil
}

func (s *gateOrgService) RemoveMember(ctx context.Context, orgID, memberID uuid.UUID) error {
	return nil
}

func (s *gateOrgService) Membership(dbc dbctx.Context, orgID, userID uuid.UUID) (*domorg.Member, *domrbac.Role, error) {
	return s.member, s.role, nil
}

// gateRBACService hands the same permission codes to every role.
type gateRBACService struct {
	codes []string
}

func (s *gateRBACService) SeedCatalog(dbc dbctx.Context) error { return nil }

func (s *gateRBACService) SeedSystemRoles(dbc dbctx.Context, orgID uuid.UUID) (map[string]uuid.UUID, error) {
	return nil, nil
}

func (s *gateRBACService) ListPermissions(dbc dbctx.Context) ([]*domrbac.Permission, error) {
	return nil, nil
}

func (s *gateRBACService) ListRoles(dbc dbctx.Context, orgID uuid.UUID) ([]*services.RoleWithCodes, error) {
	return nil, nil
}

func (s *gateRBACService) CreateRole(dbc dbctx.Context, orgID uuid.UUID, in services.CreateRoleInput) (*services.RoleWithCodes, error) {
	return nil, nil
}

func (s *gateRBACService) UpdateRole(dbc dbctx.Context, orgID, roleID uuid.UUID, in services.UpdateRoleInput) (*domrbac.Role, error) {
	return nil, nil
}

func (s *gateRBACService) DeleteRole(dbc dbctx.Context, orgID, roleID uuid.UUID) error { return nil }

func (s *gateRBACService) ReplaceRolePermissions(dbc dbctx.Context, orgID, roleID uuid.UUID, codes []string) (*services.RoleWithCodes, error) {
	return nil, nil
}

func (s *gateRBACService) PermissionCodesForRole(dbc dbctx.Context, roleID uuid.UUID) ([]string, error) {
	return s.codes, nil
}

type gateFieldJobService struct{}

func (s *gateFieldJobService) Create(ctx context.Context, orgID, createdBy uuid.UUID, in services.CreateFieldJobInput) (*domjob.FieldJob, error) {
	return &domjob.FieldJob{ID: uuid.New(), OrgID: orgID}, nil
}

func (s *gateFieldJobService) Get(dbc dbctx.Context, orgID, jobID uuid.UUID) (*domjob.FieldJob, error) {
	return &domjob.FieldJob{ID: jobID, OrgID: orgID}, nil
}

func (s *gateFieldJobService) GetByNumber(dbc dbctx.Context, orgID uuid.UUID, number string) (*domjob.FieldJob, error) {
	return &domjob.FieldJob{ID: uuid.New(), OrgID: orgID}, nil
}

func (s *gateFieldJobService) List(dbc dbctx.Context, orgID uuid.UUID, filter repos.FieldJobFilter) (*services.FieldJobPage, error) {
	return &services.FieldJobPage{}, nil
}

func (s *gateFieldJobService) Update(ctx context.Context, orgID, jobID uuid.UUID, in services.UpdateFieldJobInput) (*domjob.FieldJob, error) {
	return &domjob.FieldJob{ID: jobID, OrgID: orgID}, nil
}

func (s *gateFieldJobService) Assign(ctx context.Context, orgID, jobID uuid.UUID, assigneeID *uuid.UUID) (*domjob.FieldJob, error) {
	return &domjob.FieldJob{ID: jobID, OrgID: orgID}, nil
}

func (s *gateFieldJobService) SetStatus(ctx context.Context, orgID, jobID uuid.UUID, to domjob.Status) (*domjob.FieldJob, error) {
	return &domjob.FieldJob{ID: jobID, OrgID: orgID}, nil
}

func (s *gateFieldJobService) Delete(ctx context.Context, orgID, jobID uuid.UUID) error { return nil }

func newGateRouter(t *testing.T, codes []string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	t.Cleanup(log.Sync)

	userID := uuid.New()
	orgs := &gateOrgService{
		member: &domorg.Member{ID: uuid.New(), UserID: userID},
		role:   &domrbac.Role{ID: uuid.New(), Name: "Custom", IsSystem: false},
	}
	return NewRouter(RouterConfig{
		Log:             log,
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, &gateAuthService{userID: userID}),
		OrgMiddleware:   httpMW.NewOrgMiddleware(log, orgs, &gateRBACService{codes: codes}),
		FieldJobHandler: httpH.NewFieldJobHandler(&gateFieldJobService{}),
	})
}

// Field job routes sit behind the jobs permission group, not the tickets one.
func TestFieldJobRoutesRequireJobsPermissions(t *testing.T) {
	orgID := uuid.New()

	get := func(r *gin.Engine) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/orgs/"+orgID.String()+"/field-jobs", nil)
		req.Header.Set("Authorization", "Bearer token")
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := get(newGateRouter(t, []string{"jobs.read"})); code != http.StatusOK {
		t.Fatalf("jobs.read should list field jobs, got %d", code)
	}
	if code := get(newGateRouter(t, []string{"tickets.read", "tickets.manage"})); code != http.StatusForbidden {
		t.Fatalf("ticket permissions must not open field job routes, got %d", code)
	}
	if code := get(newGateRouter(t, nil)); code != http.StatusForbidden {
		t.Fatalf("no permissions should be forbidden, got %d", code)
	}
}
