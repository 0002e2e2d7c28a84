package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veldtops/fieldsuite-backend/internal/http/response"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

type RoleHandler struct {
	rbac services.RBACService
}

func NewRoleHandler(rbac services.RBACService) *RoleHandler {
	return &RoleHandler{rbac: rbac}
}

// GET /api/orgs/:orgID/permissions
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	perms, err := h.rbac.ListPermissions(reqDBC(c))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"permissions": perms})
}

// GET /api/orgs/:orgID/roles
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.rbac.ListRoles(reqDBC(c), scopedOrgID(c))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"roles": roles})
}

// POST /api/orgs/:orgID/roles
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Codes       []string `json:"codes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	role, err := h.rbac.CreateRole(reqDBC(c), scopedOrgID(c), services.CreateRoleInput{
		Name:        req.Name,
		Description: req.Description,
		Codes:       req.Codes,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"role": role})
}

// PATCH /api/orgs/:orgID/roles/:roleID
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	roleID, ok := pathUUID(c, "roleID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_role_id", errors.New("invalid role id"))
		return
	}
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	role, err := h.rbac.UpdateRole(reqDBC(c), scopedOrgID(c), roleID, services.UpdateRoleInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"role": role})
}

// DELETE /api/orgs/:orgID/roles/:roleID
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	roleID, ok := pathUUID(c, "roleID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_role_id", errors.New("invalid role id"))
		return
	}
	if err := h.rbac.DeleteRole(reqDBC(c), scopedOrgID(c), roleID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// PUT /api/orgs/:orgID/roles/:roleID/permissions
func (h *RoleHandler) ReplacePermissions(c *gin.Context) {
	roleID, ok := pathUUID(c, "roleID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_role_id", errors.New("invalid role id"))
		return
	}
	var req struct {
		Codes []string `json:"codes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	role, err := h.rbac.ReplaceRolePermissions(reqDBC(c), scopedOrgID(c), roleID, req.Codes)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"role": role})
}
