package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/veldtops/fieldsuite-backend/internal/domain/ticket"
	"github.com/veldtops/fieldsuite-backend/internal/http/response"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

type SLAHandler struct {
	sla services.SLAService
}

func NewSLAHandler(sla services.SLAService) *SLAHandler {
	return &SLAHandler{sla: sla}
}

// POST /api/orgs/:orgID/sla/policies
func (h *SLAHandler) CreatePolicy(c *gin.Context) {
	var req struct {
		Name                       string  `json:"name"`
		Description                string  `json:"description"`
		Priority                   *string `json:"priority"`
		TicketType                 *string `json:"ticket_type"`
		CustomerTier               *string `json:"customer_tier"`
		ResponseTimeHours          float64 `json:"response_time_hours"`
		ResolutionTimeHours        float64 `json:"resolution_time_hours"`
		EscalationThresholdPercent int     `json:"escalation_threshold_percent"`
		IsDefault                  bool    `json:"is_default"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	in := services.CreatePolicyInput{
		Name:                       req.Name,
		Description:                req.Description,
		ResponseTimeHours:          req.ResponseTimeHours,
		ResolutionTimeHours:        req.ResolutionTimeHours,
		EscalationThresholdPercent: req.EscalationThresholdPercent,
		IsDefault:                  req.IsDefault,
	}
	if req.Priority != nil {
		p := ticket.Priority(*req.Priority)
		in.Priority = &p
	}
	if req.TicketType != nil {
		tt := ticket.Type(*req.TicketType)
		in.TicketType = &tt
	}
	if req.CustomerTier != nil {
		tier := ticket.Tier(*req.CustomerTier)
		in.CustomerTier = &tier
	}
	policy, err := h.sla.CreatePolicy(c.Request.Context(), scopedOrgID(c), in)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"policy": policy})
}

// GET /api/orgs/:orgID/sla/policies
func (h *SLAHandler) ListPolicies(c *gin.Context) {
	policies, err := h.sla.ListPolicies(reqDBC(c), scopedOrgID(c), c.Query("active") == "true")
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"policies": policies})
}

// GET /api/orgs/:orgID/sla/policies/:policyID
func (h *SLAHandler) GetPolicy(c *gin.Context) {
	policyID, ok := pathUUID(c, "policyID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_policy_id", errors.New("invalid policy id"))
		return
	}
	policy, err := h.sla.GetPolicy(reqDBC(c), scopedOrgID(c), policyID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"policy": policy})
}

// PATCH /api/orgs/:orgID/sla/policies/:policyID
func (h *SLAHandler) UpdatePolicy(c *gin.Context) {
	policyID, ok := pathUUID(c, "policyID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_policy_id", errors.New("invalid policy id"))
		return
	}
	var req struct {
		Name                       *string  `json:"name"`
		Description                *string  `json:"description"`
		ResponseTimeHours          *float64 `json:"response_time_hours"`
		ResolutionTimeHours        *float64 `json:"resolution_time_hours"`
		EscalationThresholdPercent *int     `json:"escalation_threshold_percent"`
		IsActive                   *bool    `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	policy, err := h.sla.UpdatePolicy(c.Request.Context(), scopedOrgID(c), policyID, services.UpdatePolicyInput{
		Name:                       req.Name,
		Description:                req.Description,
		ResponseTimeHours:          req.ResponseTimeHours,
		ResolutionTimeHours:        req.ResolutionTimeHours,
		EscalationThresholdPercent: req.EscalationThresholdPercent,
		IsActive:                   req.IsActive,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"policy": policy})
}

// POST /api/orgs/:orgID/sla/policies/:policyID/default
func (h *SLAHandler) SetDefaultPolicy(c *gin.Context) {
	policyID, ok := pathUUID(c, "policyID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_policy_id", errors.New("invalid policy id"))
		return
	}
	if err := h.sla.SetDefaultPolicy(c.Request.Context(), scopedOrgID(c), policyID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// DELETE /api/orgs/:orgID/sla/policies/:policyID
func (h *SLAHandler) DeletePolicy(c *gin.Context) {
	policyID, ok := pathUUID(c, "policyID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_policy_id", errors.New("invalid policy id"))
		return
	}
	if err := h.sla.DeletePolicy(c.Request.Context(), scopedOrgID(c), policyID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// GET /api/orgs/:orgID/tickets/:ticketID/sla
func (h *SLAHandler) TrackingForTicket(c *gin.Context) {
	ticketID, ok := pathUUID(c, "ticketID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_ticket_id", errors.New("invalid ticket id"))
		return
	}
	tracking, err := h.sla.TrackingForTicket(reqDBC(c), scopedOrgID(c), ticketID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"tracking": tracking})
}

// GET /api/orgs/:orgID/sla/escalations
func (h *SLAHandler) Escalations(c *gin.Context) {
	rows, err := h.sla.EscalationCandidates(reqDBC(c), scopedOrgID(c))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"escalations": rows})
}

// GET /api/orgs/:orgID/sla/summary?from=&to=
func (h *SLAHandler) Summary(c *gin.Context) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	if d := queryDate(c, "from"); d != nil {
		from = *d
	}
	if d := queryDate(c, "to"); d != nil {
		to = *d
	}
	summary, err := h.sla.Summary(reqDBC(c), scopedOrgID(c), from, to)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"summary": summary})
}
