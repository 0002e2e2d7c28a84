package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veldtops/fieldsuite-backend/internal/http/response"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

type GSTHandler struct {
	gst services.GSTService
}

func NewGSTHandler(gst services.GSTService) *GSTHandler {
	return &GSTHandler{gst: gst}
}

// GET /api/orgs/:orgID/gst/:gstin
func (h *GSTHandler) Lookup(c *gin.Context) {
	gstin := c.Param("gstin")
	// Reject malformed numbers before spending a provider call.
	if err := h.gst.Verify(gstin); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_gstin", err)
		return
	}
	details, err := h.gst.Lookup(c.Request.Context(), gstin)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"details": details})
}
