package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/data/db"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	"github.com/veldtops/fieldsuite-backend/internal/domain/fieldjob"
	"github.com/veldtops/fieldsuite-backend/internal/domain/sla"
	"github.com/veldtops/fieldsuite-backend/internal/domain/ticket"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
	"github.com/veldtops/fieldsuite-backend/internal/realtime"
)

type CreateTicketInput struct {
	Subject       string
	Description   string
	TicketType    ticket.Type
	Priority      ticket.Priority
	CustomerTier  ticket.Tier
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	SiteAddress   string
	AssigneeID    *uuid.UUID
}

type UpdateTicketInput struct {
	Subject       *string
	Description   *string
	TicketType    *ticket.Type
	Priority      *ticket.Priority
	CustomerTier  *ticket.Tier
	CustomerName  *string
	CustomerEmail *string
	CustomerPhone *string
	SiteAddress   *string
}

type AddCommentInput struct {
	Body     string
	Internal bool
}

type TicketPage struct {
	Tickets []*ticket.Ticket `json:"tickets"`
	Total   int64            `json:"total"`
}

// TicketDetail pairs a ticket with its SLA tracking row, when one exists.
type TicketDetail struct {
	Ticket   *ticket.Ticket `json:"ticket"`
	Tracking *sla.Tracking  `json:"sla_tracking,omitempty"`
}

type TicketService interface {
	Create(ctx context.Context, orgID, createdBy uuid.UUID, in CreateTicketInput) (*ticket.Ticket, error)
	Get(dbc dbctx.Context, orgID, ticketID uuid.UUID) (*TicketDetail, error)
	GetByNumber(dbc dbctx.Context, orgID uuid.UUID, number string) (*TicketDetail, error)
	List(dbc dbctx.Context, orgID uuid.UUID, filter repos.TicketFilter) (*TicketPage, error)
	StatusCounts(dbc dbctx.Context, orgID uuid.UUID) (map[ticket.Status]int64, error)
	Update(ctx context.Context, orgID, ticketID uuid.UUID, in UpdateTicketInput) (*ticket.Ticket, error)
	Assign(ctx context.Context, orgID, ticketID uuid.UUID, assigneeID *uuid.UUID) (*ticket.Ticket, error)

	AddComment(ctx context.Context, orgID, ticketID uuid.UUID, in AddCommentInput) (*ticket.Comment, error)
	ListComments(dbc dbctx.Context, orgID, ticketID uuid.UUID, includeInternal bool) ([]*ticket.Comment, error)

	Start(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error)
	WaitOnCustomer(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error)
	Resume(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error)
	Resolve(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error)
	// RequestClosure moves a resolved ticket into the approval queue.
	RequestClosure(ctx context.Context, orgID, ticketID uuid.UUID, note string) (*ticket.Ticket, error)
	ApproveClosure(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error)
	// RejectClosure sends a pending-closure ticket back to in_progress and
	// re-arms its resolution clock.
	RejectClosure(ctx context.Context, orgID, ticketID uuid.UUID, note string) (*ticket.Ticket, error)
	Cancel(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error)
	Reopen(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error)
}

type ticketService struct {
	db          *gorm.DB
	log         *logger.Logger
	ticketRepo  repos.TicketRepo
	commentRepo repos.TicketCommentRepo
	seqRepo     repos.SequenceRepo
	sla         SLAService
	events      EventPublisher
}

func NewTicketService(
	gdb *gorm.DB,
	baseLog *logger.Logger,
	ticketRepo repos.TicketRepo,
	commentRepo repos.TicketCommentRepo,
	seqRepo repos.SequenceRepo,
	slaService SLAService,
	events EventPublisher,
) TicketService {
	return &ticketService{
		db:          gdb,
		log:         baseLog.With("service", "TicketService"),
		ticketRepo:  ticketRepo,
		commentRepo: commentRepo,
		seqRepo:     seqRepo,
		sla:         slaService,
		events:      events,
	}
}

func (s *ticketService) Create(ctx context.Context, orgID, createdBy uuid.UUID, in CreateTicketInput) (*ticket.Ticket, error) {
	subject := strings.TrimSpace(in.Subject)
	customerName := strings.TrimSpace(in.CustomerName)
	if subject == "" || customerName == "" {
		return nil, db.ValidationError("subject and customer name are required")
	}
	ticketType := in.TicketType
	if ticketType == "" {
		ticketType = ticket.TypeService
	}
	priority := in.Priority
	if priority == "" {
		priority = ticket.PriorityMedium
	}
	tier := in.CustomerTier
	if tier == "" {
		tier = ticket.TierStandard
	}
	if !ticketType.Valid() || !priority.Valid() || !tier.Valid() {
		return nil, db.ValidationError("unknown ticket type, priority, or customer tier")
	}

	var created *ticket.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		number, err := s.seqRepo.NextNumber(dbc, orgID, fieldjob.SequenceTicket)
		if err != nil {
			return db.MapError("allocate ticket number", err)
		}
		rows, err := s.ticketRepo.Create(dbc, []*ticket.Ticket{{
			OrgID:         orgID,
			Number:        number,
			Subject:       subject,
			Description:   strings.TrimSpace(in.Description),
			TicketType:    ticketType,
			Priority:      priority,
			CustomerTier:  tier,
			CustomerName:  customerName,
			CustomerEmail: strings.ToLower(strings.TrimSpace(in.CustomerEmail)),
			CustomerPhone: strings.TrimSpace(in.CustomerPhone),
			SiteAddress:   strings.TrimSpace(in.SiteAddress),
			Status:        ticket.StatusOpen,
			AssigneeID:    in.AssigneeID,
			CreatedBy:     createdBy,
		}})
		if err != nil {
			return db.MapError("create ticket", err)
		}
		created = rows[0]

		if _, err := s.sla.AttachTracking(dbc, created); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, orgID, realtime.SSEEventTicketCreated, map[string]any{
		"ticket_id": created.ID.String(),
		"number":    created.Number,
		"priority":  string(created.Priority),
	})
	return created, nil
}

func (s *ticketService) Get(dbc dbctx.Context, orgID, ticketID uuid.UUID) (*TicketDetail, error) {
	t, err := s.orgTicket(dbc, orgID, ticketID)
	if err != nil {
		return nil, err
	}
	return s.detail(dbc, t)
}

func (s *ticketService) GetByNumber(dbc dbctx.Context, orgID uuid.UUID, number string) (*TicketDetail, error) {
	t, err := s.ticketRepo.GetByOrgAndNumber(dbc, orgID, strings.TrimSpace(number))
	if err != nil {
		return nil, db.MapError("fetch ticket", err)
	}
	if t == nil {
		return nil, db.NotFoundError("ticket not found")
	}
	return s.detail(dbc, t)
}

func (s *ticketService) detail(dbc dbctx.Context, t *ticket.Ticket) (*TicketDetail, error) {
	tracking, err := s.sla.TrackingForTicket(dbc, t.OrgID, t.ID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}
	return &TicketDetail{Ticket: t, Tracking: tracking}, nil
}

func (s *ticketService) List(dbc dbctx.Context, orgID uuid.UUID, filter repos.TicketFilter) (*TicketPage, error) {
	rows, err := s.ticketRepo.ListByOrg(dbc, orgID, filter)
	if err != nil {
		return nil, db.MapError("list tickets", err)
	}
	total, err := s.ticketRepo.CountByOrg(dbc, orgID, filter)
	if err != nil {
		return nil, db.MapError("count tickets", err)
	}
	return &TicketPage{Tickets: rows, Total: total}, nil
}

func (s *ticketService) StatusCounts(dbc dbctx.Context, orgID uuid.UUID) (map[ticket.Status]int64, error) {
	counts, err := s.ticketRepo.CountByStatus(dbc, orgID)
	if err != nil {
		return nil, db.MapError("count tickets by status", err)
	}
	return counts, nil
}

func (s *ticketService) Update(ctx context.Context, orgID, ticketID uuid.UUID, in UpdateTicketInput) (*ticket.Ticket, error) {
	var updated *ticket.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		t, err := s.orgTicket(dbc, orgID, ticketID)
		if err != nil {
			return err
		}
		if t.Status.Terminal() {
			return db.ConflictError("cannot edit a closed or cancelled ticket")
		}

		updates := map[string]any{}
		facetsChanged := false
		if in.Subject != nil {
			subject := strings.TrimSpace(*in.Subject)
			if subject == "" {
				return db.ValidationError("subject is required")
			}
			updates["subject"] = subject
		}
		setString(updates, "description", in.Description)
		if in.TicketType != nil {
			if !in.TicketType.Valid() {
				return db.ValidationError("unknown ticket type")
			}
			if *in.TicketType != t.TicketType {
				facetsChanged = true
			}
			updates["ticket_type"] = *in.TicketType
			t.TicketType = *in.TicketType
		}
		if in.Priority != nil {
			if !in.Priority.Valid() {
				return db.ValidationError("unknown priority")
			}
			if *in.Priority != t.Priority {
				facetsChanged = true
			}
			updates["priority"] = *in.Priority
			t.Priority = *in.Priority
		}
		if in.CustomerTier != nil {
			if !in.CustomerTier.Valid() {
				return db.ValidationError("unknown customer tier")
			}
			if *in.CustomerTier != t.CustomerTier {
				facetsChanged = true
			}
			updates["customer_tier"] = *in.CustomerTier
			t.CustomerTier = *in.CustomerTier
		}
		if in.CustomerName != nil {
			name := strings.TrimSpace(*in.CustomerName)
			if name == "" {
				return db.ValidationError("customer name is required")
			}
			updates["customer_name"] = name
		}
		if in.CustomerEmail != nil {
			updates["customer_email"] = strings.ToLower(strings.TrimSpace(*in.CustomerEmail))
		}
		setString(updates, "customer_phone", in.CustomerPhone)
		setString(updates, "site_address", in.SiteAddress)

		if len(updates) == 0 {
			updated = t
			return nil
		}
		if err := s.ticketRepo.UpdateFields(dbc, ticketID, updates); err != nil {
			return db.MapError("update ticket", err)
		}

		// Priority/type/tier moves can change which policy applies; rebind
		// while the response clock is still open.
		if facetsChanged {
			if _, err := s.sla.RematchTracking(dbc, t); err != nil {
				return err
			}
		}
		updated, err = s.orgTicket(dbc, orgID, ticketID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publishUpdated(ctx, updated, "updated")
	return updated, nil
}

func (s *ticketService) Assign(ctx context.Context, orgID, ticketID uuid.UUID, assigneeID *uuid.UUID) (*ticket.Ticket, error) {
	dbc := dbctx.Context{Ctx: ctx}
	t, err := s.orgTicket(dbc, orgID, ticketID)
	if err != nil {
		return nil, err
	}
	if t.Status.Terminal() {
		return nil, db.ConflictError("cannot assign a closed or cancelled ticket")
	}
	if err := s.ticketRepo.UpdateFields(dbc, ticketID, map[string]any{"assignee_id": assigneeID}); err != nil {
		return nil, db.MapError("assign ticket", err)
	}
	t, err = s.orgTicket(dbc, orgID, ticketID)
	if err != nil {
		return nil, err
	}
	s.publishUpdated(ctx, t, "assigned")
	return t, nil
}

func (s *ticketService) AddComment(ctx context.Context, orgID, ticketID uuid.UUID, in AddCommentInput) (*ticket.Comment, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, db.ValidationError("comment body is required")
	}

	var created *ticket.Comment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		t, err := s.orgTicket(dbc, orgID, ticketID)
		if err != nil {
			return err
		}
		if t.Status.Terminal() {
			return db.ConflictError("cannot comment on a closed or cancelled ticket")
		}

		rows, err := s.commentRepo.Create(dbc, []*ticket.Comment{{
			TicketID: ticketID,
			AuthorID: actor.UserID,
			Body:     body,
			Internal: in.Internal,
		}})
		if err != nil {
			return db.MapError("create comment", err)
		}
		created = rows[0]

		// The first public comment by anyone other than the creator counts as
		// the first response and settles the response clock.
		if !in.Internal && actor.UserID != t.CreatedBy && t.FirstResponseAt == nil {
			now := time.Now().UTC()
			stamped, err := s.ticketRepo.StampFirstResponse(dbc, ticketID, now)
			if err != nil {
				return db.MapError("stamp first response", err)
			}
			if stamped {
				if err := s.sla.SettleResponse(dbc, ticketID, now); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *ticketService) ListComments(dbc dbctx.Context, orgID, ticketID uuid.UUID, includeInternal bool) ([]*ticket.Comment, error) {
	if _, err := s.orgTicket(dbc, orgID, ticketID); err != nil {
		return nil, err
	}
	rows, err := s.commentRepo.ListByTicket(dbc, ticketID, includeInternal)
	if err != nil {
		return nil, db.MapError("list comments", err)
	}
	return rows, nil
}

func (s *ticketService) Start(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error) {
	return s.transition(ctx, orgID, ticketID, ticket.StatusInProgress, nil, nil)
}

func (s *ticketService) WaitOnCustomer(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error) {
	return s.transition(ctx, orgID, ticketID, ticket.StatusPendingCustomer, nil, nil)
}

func (s *ticketService) Resume(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error) {
	return s.transition(ctx, orgID, ticketID, ticket.StatusInProgress, nil, nil)
}

func (s *ticketService) Resolve(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error) {
	now := time.Now().UTC()
	return s.transition(ctx, orgID, ticketID, ticket.StatusResolved,
		map[string]any{"resolved_at": now},
		func(dbc dbctx.Context, t *ticket.Ticket) error {
			return s.sla.SettleResolution(dbc, ticketID, now)
		})
}

func (s *ticketService) RequestClosure(ctx context.Context, orgID, ticketID uuid.UUID, note string) (*ticket.Ticket, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return s.transition(ctx, orgID, ticketID, ticket.StatusPendingClosure, map[string]any{
		"closure_requested_by": actor.UserID,
		"closure_requested_at": now,
		"closure_note":         strings.TrimSpace(note),
	}, nil)
}

func (s *ticketService) ApproveClosure(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return s.transition(ctx, orgID, ticketID, ticket.StatusClosed,
		map[string]any{"closed_at": now},
		func(dbc dbctx.Context, t *ticket.Ticket) error {
			// Closure approval must come from someone other than the
			// requester.
			if t.ClosureRequestedBy != nil && *t.ClosureRequestedBy == actor.UserID {
				return db.ConflictError("closure must be approved by a different member")
			}
			return nil
		})
}

func (s *ticketService) RejectClosure(ctx context.Context, orgID, ticketID uuid.UUID, note string) (*ticket.Ticket, error) {
	return s.transition(ctx, orgID, ticketID, ticket.StatusInProgress, map[string]any{
		"closure_requested_by": nil,
		"closure_requested_at": nil,
		"closure_note":         strings.TrimSpace(note),
		"resolved_at":          nil,
	}, func(dbc dbctx.Context, t *ticket.Ticket) error {
		if t.Status != ticket.StatusPendingClosure {
			return db.ConflictError("only pending-closure tickets can be rejected")
		}
		return s.sla.ReopenResolution(dbc, ticketID)
	})
}

func (s *ticketService) Cancel(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error) {
	return s.transition(ctx, orgID, ticketID, ticket.StatusCancelled, nil, nil)
}

func (s *ticketService) Reopen(ctx context.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error) {
	return s.transition(ctx, orgID, ticketID, ticket.StatusInProgress, nil,
		func(dbc dbctx.Context, t *ticket.Ticket) error {
			if t.Status != ticket.StatusResolved && t.Status != ticket.StatusClosed {
				return db.ConflictError("only resolved or closed tickets can be reopened")
			}
			if err := s.ticketRepo.UpdateFields(dbc, ticketID, map[string]any{
				"reopen_count": t.ReopenCount + 1,
				"resolved_at":  nil,
				"closed_at":    nil,
			}); err != nil {
				return db.MapError("reset reopen fields", err)
			}
			return s.sla.ReopenResolution(dbc, ticketID)
		})
}

// transition moves the ticket to a new status with a compare-and-swap on the
// current status, applying extra column updates and an optional guard in the
// same transaction.
func (s *ticketService) transition(
	ctx context.Context,
	orgID, ticketID uuid.UUID,
	to ticket.Status,
	extra map[string]any,
	check func(dbc dbctx.Context, t *ticket.Ticket) error,
) (*ticket.Ticket, error) {
	var updated *ticket.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		t, err := s.orgTicket(dbc, orgID, ticketID)
		if err != nil {
			return err
		}
		if !ticket.CanTransition(t.Status, to) {
			return db.ConflictError("invalid status transition " + string(t.Status) + " -> " + string(to))
		}
		if check != nil {
			if err := check(dbc, t); err != nil {
				return err
			}
		}

		updates := map[string]any{"status": to}
		for k, v := range extra {
			updates[k] = v
		}
		won, err := s.ticketRepo.UpdateStatusGuarded(dbc, ticketID, t.Status, updates)
		if err != nil {
			return db.MapError("transition ticket", err)
		}
		if !won {
			return db.ConflictError("ticket status changed concurrently")
		}
		updated, err = s.orgTicket(dbc, orgID, ticketID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publishUpdated(ctx, updated, string(to))
	return updated, nil
}

func (s *ticketService) publishUpdated(ctx context.Context, t *ticket.Ticket, change string) {
	if t == nil {
		return
	}
	s.events.Publish(ctx, t.OrgID, realtime.SSEEventTicketUpdated, map[string]any{
		"ticket_id": t.ID.String(),
		"number":    t.Number,
		"status":    string(t.Status),
		"change":    change,
	})
}

func (s *ticketService) orgTicket(dbc dbctx.Context, orgID, ticketID uuid.UUID) (*ticket.Ticket, error) {
	t, err := s.ticketRepo.GetByID(dbc, ticketID)
	if err != nil {
		return nil, db.MapError("fetch ticket", err)
	}
	if t == nil || t.OrgID != orgID {
		return nil, db.NotFoundError("ticket not found")
	}
	return t, nil
}
