package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veldtops/fieldsuite-backend/internal/data/db"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	"github.com/veldtops/fieldsuite-backend/internal/domain/ticket"
	"github.com/veldtops/fieldsuite-backend/internal/http/response"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

type TicketHandler struct {
	tickets services.TicketService
}

func NewTicketHandler(tickets services.TicketService) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

// POST /api/orgs/:orgID/tickets
func (h *TicketHandler) Create(c *gin.Context) {
	var req struct {
		Subject       string     `json:"subject"`
		Description   string     `json:"description"`
		TicketType    string     `json:"ticket_type"`
		Priority      string     `json:"priority"`
		CustomerTier  string     `json:"customer_tier"`
		CustomerName  string     `json:"customer_name"`
		CustomerEmail string     `json:"customer_email"`
		CustomerPhone string     `json:"customer_phone"`
		SiteAddress   string     `json:"site_address"`
		AssigneeID    *uuid.UUID `json:"assignee_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	t, err := h.tickets.Create(c.Request.Context(), scopedOrgID(c), actorID(c), services.CreateTicketInput{
		Subject:       req.Subject,
		Description:   req.Description,
		TicketType:    ticket.Type(req.TicketType),
		Priority:      ticket.Priority(req.Priority),
		CustomerTier:  ticket.Tier(req.CustomerTier),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		SiteAddress:   req.SiteAddress,
		AssigneeID:    req.AssigneeID,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"ticket": t})
}

// GET /api/orgs/:orgID/tickets
func (h *TicketHandler) List(c *gin.Context) {
	filter := repos.TicketFilter{
		AssigneeID: queryUUID(c, "assignee"),
		CreatedBy:  queryUUID(c, "created_by"),
		Search:     c.Query("q"),
		Limit:      queryInt(c, "limit", 50),
		Offset:     queryInt(c, "offset", 0),
	}
	for _, raw := range c.QueryArray("status") {
		filter.Statuses = append(filter.Statuses, ticket.Status(raw))
	}
	for _, raw := range c.QueryArray("priority") {
		filter.Priorities = append(filter.Priorities, ticket.Priority(raw))
	}
	for _, raw := range c.QueryArray("type") {
		filter.Types = append(filter.Types, ticket.Type(raw))
	}
	for _, raw := range c.QueryArray("tier") {
		filter.Tiers = append(filter.Tiers, ticket.Tier(raw))
	}
	page, err := h.tickets.List(reqDBC(c), scopedOrgID(c), filter)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, page)
}

// GET /api/orgs/:orgID/tickets/status-counts
func (h *TicketHandler) StatusCounts(c *gin.Context) {
	counts, err := h.tickets.StatusCounts(reqDBC(c), scopedOrgID(c))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"counts": counts})
}

// GET /api/orgs/:orgID/tickets/by-number/:number
func (h *TicketHandler) GetByNumber(c *gin.Context) {
	detail, err := h.tickets.GetByNumber(reqDBC(c), scopedOrgID(c), c.Param("number"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, detail)
}

// GET /api/orgs/:orgID/tickets/:ticketID
func (h *TicketHandler) Get(c *gin.Context) {
	ticketID, ok := pathUUID(c, "ticketID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_ticket_id", errors.New("invalid ticket id"))
		return
	}
	detail, err := h.tickets.Get(reqDBC(c), scopedOrgID(c), ticketID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, detail)
}

// PATCH /api/orgs/:orgID/tickets/:ticketID
func (h *TicketHandler) Update(c *gin.Context) {
	ticketID, ok := pathUUID(c, "ticketID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_ticket_id", errors.New("invalid ticket id"))
		return
	}
	var req struct {
		Subject       *string `json:"subject"`
		Description   *string `json:"description"`
		TicketType    *string `json:"ticket_type"`
		Priority      *string `json:"priority"`
		CustomerTier  *string `json:"customer_tier"`
		CustomerName  *string `json:"customer_name"`
		CustomerEmail *string `json:"customer_email"`
		CustomerPhone *string `json:"customer_phone"`
		SiteAddress   *string `json:"site_address"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	in := services.UpdateTicketInput{
		Subject:       req.Subject,
		Description:   req.Description,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		SiteAddress:   req.SiteAddress,
	}
	if req.TicketType != nil {
		tt := ticket.Type(*req.TicketType)
		in.TicketType = &tt
	}
	if req.Priority != nil {
		p := ticket.Priority(*req.Priority)
		in.Priority = &p
	}
	if req.CustomerTier != nil {
		tier := ticket.Tier(*req.CustomerTier)
		in.CustomerTier = &tier
	}
	t, err := h.tickets.Update(c.Request.Context(), scopedOrgID(c), ticketID, in)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ticket": t})
}

// POST /api/orgs/:orgID/tickets/:ticketID/assign
func (h *TicketHandler) Assign(c *gin.Context) {
	ticketID, ok := pathUUID(c, "ticketID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_ticket_id", errors.New("invalid ticket id"))
		return
	}
	var req struct {
		AssigneeID *uuid.UUID `json:"assignee_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	t, err := h.tickets.Assign(c.Request.Context(), scopedOrgID(c), ticketID, req.AssigneeID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ticket": t})
}

// POST /api/orgs/:orgID/tickets/:ticketID/comments
func (h *TicketHandler) AddComment(c *gin.Context) {
	ticketID, ok := pathUUID(c, "ticketID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_ticket_id", errors.New("invalid ticket id"))
		return
	}
	var req struct {
		Body     string `json:"body"`
		Internal bool   `json:"internal"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	comment, err := h.tickets.AddComment(c.Request.Context(), scopedOrgID(c), ticketID, services.AddCommentInput{
		Body:     req.Body,
		Internal: req.Internal,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"comment": comment})
}

// GET /api/orgs/:orgID/tickets/:ticketID/comments
func (h *TicketHandler) ListComments(c *gin.Context) {
	ticketID, ok := pathUUID(c, "ticketID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_ticket_id", errors.New("invalid ticket id"))
		return
	}
	comments, err := h.tickets.ListComments(reqDBC(c), scopedOrgID(c), ticketID, c.Query("internal") == "true")
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"comments": comments})
}

// Status transition endpoints. Illegal transitions surface as 409s with a
// dedicated code so clients can distinguish them from ordinary conflicts.

func (h *TicketHandler) Start(c *gin.Context) {
	h.transition(c, func(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error) {
		return h.tickets.Start(ctx, orgID, ticketID)
	})
}

func (h *TicketHandler) WaitOnCustomer(c *gin.Context) {
	h.transition(c, func(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error) {
		return h.tickets.WaitOnCustomer(ctx, orgID, ticketID)
	})
}

func (h *TicketHandler) Resume(c *gin.Context) {
	h.transition(c, func(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error) {
		return h.tickets.Resume(ctx, orgID, ticketID)
	})
}

func (h *TicketHandler) Resolve(c *gin.Context) {
	h.transition(c, func(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error) {
		return h.tickets.Resolve(ctx, orgID, ticketID)
	})
}

func (h *TicketHandler) RequestClosure(c *gin.Context) {
	note := h.bindNote(c)
	h.transition(c, func(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error) {
		return h.tickets.RequestClosure(ctx, orgID, ticketID, note)
	})
}

func (h *TicketHandler) ApproveClosure(c *gin.Context) {
	h.transition(c, func(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error) {
		return h.tickets.ApproveClosure(ctx, orgID, ticketID)
	})
}

func (h *TicketHandler) RejectClosure(c *gin.Context) {
	note := h.bindNote(c)
	h.transition(c, func(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error) {
		return h.tickets.RejectClosure(ctx, orgID, ticketID, note)
	})
}

func (h *TicketHandler) Cancel(c *gin.Context) {
	h.transition(c, func(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error) {
		return h.tickets.Cancel(ctx, orgID, ticketID)
	})
}

func (h *TicketHandler) Reopen(c *gin.Context) {
	h.transition(c, func(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error) {
		return h.tickets.Reopen(ctx, orgID, ticketID)
	})
}

func (h *TicketHandler) bindNote(c *gin.Context) string {
	var req struct {
		Note string `json:"note"`
	}
	// Note bodies are optional on transition endpoints.
	_ = c.ShouldBindJSON(&req)
	return req.Note
}

func (h *TicketHandler) transition(c *gin.Context, op func(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error)) {
	ticketID, ok := pathUUID(c, "ticketID")
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_ticket_id", errors.New("invalid ticket id"))
		return
	}
	t, err := op(c.Request.Context(), scopedOrgID(c), ticketID)
	if err != nil {
		if errors.Is(err, db.ErrConflict) {
			response.RespondError(c, http.StatusConflict, "invalid_transition", err)
			return
		}
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ticket": t})
}
