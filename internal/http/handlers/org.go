package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/http/response"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

type OrgHandler struct {
	orgs services.OrgService
}

func NewOrgHandler(orgs services.OrgService) *OrgHandler {
	return &OrgHandler{orgs: orgs}
}

// POST /api/orgs
func (h *OrgHandler) Create(c *gin.Context) {
	var req struct {
		Name         string `json:"name"`
		GSTIN        string `json:"gstin"`
		AddressLine1 string `json:"address_line1"`
		AddressLine2 string `json:"address_line2"`
		City         string `json:"city"`
		State        string `json:"state"`
		PostalCode   string `json:"postal_code"`
		Country      string `json:"country"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	org, err := h.orgs.Create(c.Request.Context(), actorID(c), services.CreateOrgInput{
		Name:         req.Name,
		GSTIN:        req.GSTIN,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		State:        req.State,
		PostalCode:   req.PostalCode,
		Country:      req.Country,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"organization": org})
}

// GET /api/orgs
func (h *OrgHandler) ListMine(c *gin.Context) {
	orgs, err := h.orgs.ListMine(c.Request.Context(), actorID(c))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"organizations": orgs})
}

// GET /api/orgs/:orgID
func (h *OrgHandler) Get(c *gin.Context) {
	org, err := h.orgs.Get(reqDBC(c), scopedOrgID(c))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"organization": org})
}

// PATCH /api/orgs/:orgID
func (h *OrgHandler) Update(c *gin.Context) {
	var req struct {
		Name         *string `json:"name"`
		GSTIN        *string `json:"gstin"`
		VerifyGSTIN  bool    `json:"verify_gstin"`
		AddressLine1 *string `json:"address_line1"`
		AddressLine2 *string `json:"address_line2"`
		City         *string `json:"city"`
		State        *string `json:"state"`
		PostalCode   *string `json:"postal_code"`
		Country      *string `json:"country"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	org, err := h.orgs.Update(c.Request.Context(), scopedOrgID(c), services.UpdateOrgInput{
		Name:         req.Name,
		GSTIN:        req.GSTIN,
		VerifyGSTIN:  req.VerifyGSTIN,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		State:        req.State,
		PostalCode:   req.PostalCode,
		Country:      req.Country,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"organization": org})
}

// DELETE /api/orgs/:orgID
func (h *OrgHandler) Deactivate(c *gin.Context) {
	if err := h.orgs.Deactivate(c.Request.Context(), scopedOrgID(c)); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// GET /api/orgs/:orgID/members
func (h *OrgHandler) ListMembers(c *gin.Context) {
	members, err := h.orgs.ListMembers(reqDBC(c), scopedOrgID(c))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"members": members})
}

// POST /api/orgs/:orgID/members
func (h *OrgHandler) AddMember(c *gin.Context) {
	var req struct {
		Email  string    `json:"email"`
		RoleID uuid.UUID `json:"role_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	member, err := h.orgs.AddMemberByEmail(c.Request.Context(), scopedOrgID(c), req.Email, req.RoleID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"member": member})
}

// PATCH /api/orgs/:orgID/members/:memberID/role
func (h *OrgHandler) ChangeMemberRole(c *gin.Context) {
	memberID, ok := pathUUID(c, "memberID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_member_id", errors.New("invalid member id"))
		return
	}
	var req struct {
		RoleID uuid.UUID `json:"role_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.orgs.ChangeMemberRole(c.Request.Context(), scopedOrgID(c), memberID, req.RoleID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// DELETE /api/orgs/:orgID/members/:memberID
func (h *OrgHandler) RemoveMember(c *gin.Context) {
	memberID, ok := pathUUID(c, "memberID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_member_id", errors.New("invalid member id"))
		return
	}
	if err := h.orgs.RemoveMember(c.Request.Context(), scopedOrgID(c), memberID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
