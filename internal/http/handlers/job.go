package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veldtops/fieldsuite-backend/internal/http/response"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GET /api/orgs/:orgID/jobs/:jobRunID
func (h *JobHandler) Get(c *gin.Context) {
	jobRunID, ok := pathUUID(c, "jobRunID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", errors.New("invalid job id"))
		return
	}
	run, err := h.jobs.Get(reqDBC(c), jobRunID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	// Routes are org scoped; never leak runs belonging to another org.
	if run.OrgID == nil || *run.OrgID != scopedOrgID(c) {
		response.RespondError(c, http.StatusNotFound, "not_found", errors.New("job run not found"))
		return
	}
	response.RespondOK(c, gin.H{"job": run})
}
