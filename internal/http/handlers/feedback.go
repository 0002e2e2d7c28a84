package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	"github.com/veldtops/fieldsuite-backend/internal/domain/feedback"
	"github.com/veldtops/fieldsuite-backend/internal/http/response"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

type FeedbackHandler struct {
	feedback services.FeedbackService
}

func NewFeedbackHandler(fb services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: fb}
}

// POST /api/orgs/:orgID/feedback
func (h *FeedbackHandler) Create(c *gin.Context) {
	var req struct {
		TicketID      *uuid.UUID `json:"ticket_id"`
		CustomerName  string     `json:"customer_name"`
		CustomerEmail string     `json:"customer_email"`
		Rating        int        `json:"rating"`
		Comment       string     `json:"comment"`
		Channel       string     `json:"channel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	fb, err := h.feedback.Create(c.Request.Context(), scopedOrgID(c), services.CreateFeedbackInput{
		TicketID:      req.TicketID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Rating:        req.Rating,
		Comment:       req.Comment,
		Channel:       feedback.Channel(req.Channel),
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"feedback": fb})
}

// GET /api/orgs/:orgID/feedback
func (h *FeedbackHandler) List(c *gin.Context) {
	filter := repos.FeedbackFilter{
		TicketID: queryUUID(c, "ticket"),
		Limit:    queryInt(c, "limit", 50),
		Offset:   queryInt(c, "offset", 0),
	}
	for _, raw := range c.QueryArray("status") {
		filter.Statuses = append(filter.Statuses, feedback.Status(raw))
	}
	for _, raw := range c.QueryArray("channel") {
		filter.Channels = append(filter.Channels, feedback.Channel(raw))
	}
	if n := queryInt(c, "min_rating", 0); n > 0 {
		filter.MinRating = n
	}
	if n := queryInt(c, "max_rating", 0); n > 0 {
		filter.MaxRating = n
	}
	page, err := h.feedback.List(reqDBC(c), scopedOrgID(c), filter)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, page)
}

// GET /api/orgs/:orgID/feedback/summary
func (h *FeedbackHandler) Summary(c *gin.Context) {
	summary, err := h.feedback.Summary(reqDBC(c), scopedOrgID(c), queryDate(c, "from"), queryDate(c, "to"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"summary": summary})
}

// GET /api/orgs/:orgID/feedback/:feedbackID
func (h *FeedbackHandler) Get(c *gin.Context) {
	feedbackID, ok := pathUUID(c, "feedbackID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_feedback_id", errors.New("invalid feedback id"))
		return
	}
	fb, err := h.feedback.Get(reqDBC(c), scopedOrgID(c), feedbackID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"feedback": fb})
}

// POST /api/orgs/:orgID/feedback/:feedbackID/review
func (h *FeedbackHandler) Review(c *gin.Context) {
	feedbackID, ok := pathUUID(c, "feedbackID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_feedback_id", errors.New("invalid feedback id"))
		return
	}
	fb, err := h.feedback.Review(c.Request.Context(), scopedOrgID(c), feedbackID, scopedMemberID(c))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"feedback": fb})
}

// POST /api/orgs/:orgID/feedback/:feedbackID/archive
func (h *FeedbackHandler) Archive(c *gin.Context) {
	feedbackID, ok := pathUUID(c, "feedbackID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_feedback_id", errors.New("invalid feedback id"))
		return
	}
	fb, err := h.feedback.Archive(c.Request.Context(), scopedOrgID(c), feedbackID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"feedback": fb})
}

// DELETE /api/orgs/:orgID/feedback/:feedbackID
func (h *FeedbackHandler) Delete(c *gin.Context) {
	feedbackID, ok := pathUUID(c, "feedbackID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_feedback_id", errors.New("invalid feedback id"))
		return
	}
	if err := h.feedback.Delete(c.Request.Context(), scopedOrgID(c), feedbackID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
