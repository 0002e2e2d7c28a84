package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/data/db"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	"github.com/veldtops/fieldsuite-backend/internal/domain/fieldjob"
	"github.com/veldtops/fieldsuite-backend/internal/http/response"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

type FieldJobHandler struct {
	jobs services.FieldJobService
}

func NewFieldJobHandler(jobs services.FieldJobService) *FieldJobHandler {
	return &FieldJobHandler{jobs: jobs}
}

// POST /api/orgs/:orgID/field-jobs
func (h *FieldJobHandler) Create(c *gin.Context) {
	var req struct {
		Kind         string     `json:"kind"`
		TicketID     *uuid.UUID `json:"ticket_id"`
		ScheduledFor *time.Time `json:"scheduled_for"`
		AssigneeID   *uuid.UUID `json:"assignee_id"`
		SiteAddress  string     `json:"site_address"`
		ContactName  string     `json:"contact_name"`
		ContactPhone string     `json:"contact_phone"`
		Notes        string     `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	job, err := h.jobs.Create(c.Request.Context(), scopedOrgID(c), actorID(c), services.CreateFieldJobInput{
		Kind:         fieldjob.Kind(req.Kind),
		TicketID:     req.TicketID,
		ScheduledFor: req.ScheduledFor,
		AssigneeID:   req.AssigneeID,
		SiteAddress:  req.SiteAddress,
		ContactName:  req.ContactName,
		ContactPhone: req.ContactPhone,
		Notes:        req.Notes,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"job": job})
}

// GET /api/orgs/:orgID/field-jobs
func (h *FieldJobHandler) List(c *gin.Context) {
	filter := repos.FieldJobFilter{
		AssigneeID:    queryUUID(c, "assignee"),
		TicketID:      queryUUID(c, "ticket"),
		ScheduledFrom: queryDate(c, "from"),
		ScheduledTo:   queryDate(c, "to"),
		Limit:         queryInt(c, "limit", 50),
		Offset:        queryInt(c, "offset", 0),
	}
	for _, raw := range c.QueryArray("kind") {
		filter.Kinds = append(filter.Kinds, fieldjob.Kind(raw))
	}
	for _, raw := range c.QueryArray("status") {
		filter.Statuses = append(filter.Statuses, fieldjob.Status(raw))
	}
	page, err := h.jobs.List(reqDBC(c), scopedOrgID(c), filter)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, page)
}

// GET /api/orgs/:orgID/field-jobs/by-number/:number
func (h *FieldJobHandler) GetByNumber(c *gin.Context) {
	job, err := h.jobs.GetByNumber(reqDBC(c), scopedOrgID(c), c.Param("number"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// GET /api/orgs/:orgID/field-jobs/:jobID
func (h *FieldJobHandler) Get(c *gin.Context) {
	jobID, ok := pathUUID(c, "jobID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", errors.New("invalid job id"))
		return
	}
	job, err := h.jobs.Get(reqDBC(c), scopedOrgID(c), jobID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// PATCH /api/orgs/:orgID/field-jobs/:jobID
func (h *FieldJobHandler) Update(c *gin.Context) {
	jobID, ok := pathUUID(c, "jobID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", errors.New("invalid job id"))
		return
	}
	var req struct {
		ScheduledFor *time.Time `json:"scheduled_for"`
		SiteAddress  *string    `json:"site_address"`
		ContactName  *string    `json:"contact_name"`
		ContactPhone *string    `json:"contact_phone"`
		Notes        *string    `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	job, err := h.jobs.Update(c.Request.Context(), scopedOrgID(c), jobID, services.UpdateFieldJobInput{
		ScheduledFor: req.ScheduledFor,
		SiteAddress:  req.SiteAddress,
		ContactName:  req.ContactName,
		ContactPhone: req.ContactPhone,
		Notes:        req.Notes,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// POST /api/orgs/:orgID/field-jobs/:jobID/assign
func (h *FieldJobHandler) Assign(c *gin.Context) {
	jobID, ok := pathUUID(c, "jobID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", errors.New("invalid job id"))
		return
	}
	var req struct {
		AssigneeID *uuid.UUID `json:"assignee_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	job, err := h.jobs.Assign(c.Request.Context(), scopedOrgID(c), jobID, req.AssigneeID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// POST /api/orgs/:orgID/field-jobs/:jobID/status
func (h *FieldJobHandler) SetStatus(c *gin.Context) {
	jobID, ok := pathUUID(c, "jobID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", errors.New("invalid job id"))
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	job, err := h.jobs.SetStatus(c.Request.Context(), scopedOrgID(c), jobID, fieldjob.Status(req.Status))
	if err != nil {
		if errors.Is(err, db.ErrConflict) {
			response.RespondError(c, http.StatusConflict, "invalid_transition", err)
			return
		}
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// DELETE /api/orgs/:orgID/field-jobs/:jobID
func (h *FieldJobHandler) Delete(c *gin.Context) {
	jobID, ok := pathUUID(c, "jobID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", errors.New("invalid job id"))
		return
	}
	if err := h.jobs.Delete(c.Request.Context(), scopedOrgID(c), jobID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
