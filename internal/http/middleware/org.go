package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domrbac "github.com/veldtops/fieldsuite-backend/internal/domain/rbac"
	"github.com/veldtops/fieldsuite-backend/internal/platform/ctxutil"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

type OrgMiddleware struct {
	log  *logger.Logger
	orgs services.OrgService
	rbac services.RBACService
}

func NewOrgMiddleware(baseLog *logger.Logger, orgs services.OrgService, rbac services.RBACService) *OrgMiddleware {
	return &OrgMiddleware{
		log:  baseLog.With("middleware", "OrgMiddleware"),
		orgs: orgs,
		rbac: rbac,
	}
}

// ResolveOrg loads the caller's active membership for the :orgID route param
// and attaches the org scope (role + permission codes) to the context. Runs
// after RequireAuth.
func (om *OrgMiddleware) ResolveOrg() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := uuid.Parse(c.Param("orgID"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": gin.H{"message": "invalid organization id", "code": "invalid_org_id"},
			})
			return
		}
		actor := ctxutil.GetActor(c.Request.Context())
		if actor == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}

		dbc := dbctx.Context{Ctx: c.Request.Context()}
		member, role, err := om.orgs.Membership(dbc, orgID, actor.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"message": "not a member of this organization", "code": "forbidden"},
			})
			return
		}

		scope := &ctxutil.OrgScope{
			OrgID:       orgID,
			MemberID:    member.ID,
			RoleID:      role.ID,
			RoleName:    role.Name,
			Owner:       role.IsSystem && role.Name == domrbac.RoleOwner,
			Permissions: map[string]struct{}{},
		}
		if !scope.Owner {
			codes, err := om.rbac.PermissionCodesForRole(dbc, role.ID)
			if err != nil {
				om.log.Warn("permission resolution failed", "role_id", role.ID, "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": gin.H{"message": "permission resolution failed", "code": "internal_error"},
				})
				return
			}
			for _, code := range codes {
				scope.Permissions[code] = struct{}{}
			}
		}

		c.Request = c.Request.WithContext(ctxutil.WithOrgScope(c.Request.Context(), scope))
		c.Next()
	}
}

// RequirePermission gates a route on one permission code. Owners pass every
// check.
func (om *OrgMiddleware) RequirePermission(code string) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := ctxutil.GetOrgScope(c.Request.Context())
		if !scope.Has(code) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"message": "missing permission: " + code, "code": "permission_denied"},
			})
			return
		}
		c.Next()
	}
}
