package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/data/db"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	"github.com/veldtops/fieldsuite-backend/internal/domain/feedback"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
	"github.com/veldtops/fieldsuite-backend/internal/realtime"
)

type CreateFeedbackInput struct {
	TicketID      *uuid.UUID
	CustomerName  string
	CustomerEmail string
	Rating        int
	Comment       string
	Channel       feedback.Channel
}

type FeedbackPage struct {
	Feedback []*feedback.CustomerFeedback `json:"feedback"`
	Total    int64                        `json:"total"`
}

type FeedbackService interface {
	Create(ctx context.Context, orgID uuid.UUID, in CreateFeedbackInput) (*feedback.CustomerFeedback, error)
	Get(dbc dbctx.Context, orgID, feedbackID uuid.UUID) (*feedback.CustomerFeedback, error)
	List(dbc dbctx.Context, orgID uuid.UUID, filter repos.FeedbackFilter) (*FeedbackPage, error)
	// Review marks the feedback reviewed by the acting member.
	Review(ctx context.Context, orgID, feedbackID, reviewerID uuid.UUID) (*feedback.CustomerFeedback, error)
	Archive(ctx context.Context, orgID, feedbackID uuid.UUID) (*feedback.CustomerFeedback, error)
	Delete(ctx context.Context, orgID, feedbackID uuid.UUID) error
	Summary(dbc dbctx.Context, orgID uuid.UUID, from, to *time.Time) (*repos.FeedbackSummary, error)
}

type feedbackService struct {
	db         *gorm.DB
	log        *logger.Logger
	repo       repos.FeedbackRepo
	ticketRepo repos.TicketRepo
	events     EventPublisher
}

func NewFeedbackService(gdb *gorm.DB, baseLog *logger.Logger, repo repos.FeedbackRepo, ticketRepo repos.TicketRepo, events EventPublisher) FeedbackService {
	return &feedbackService{
		db:         gdb,
		log:        baseLog.With("service", "FeedbackService"),
		repo:       repo,
		ticketRepo: ticketRepo,
		events:     events,
	}
}

func (s *feedbackService) Create(ctx context.Context, orgID uuid.UUID, in CreateFeedbackInput) (*feedback.CustomerFeedback, error) {
	name := strings.TrimSpace(in.CustomerName)
	if name == "" {
		return nil, db.ValidationError("customer name is required")
	}
	if !feedback.ValidRating(in.Rating) {
		return nil, db.ValidationError("rating must be between 1 and 5")
	}
	channel := in.Channel
	if channel == "" {
		channel = feedback.ChannelWeb
	}
	if !channel.Valid() {
		return nil, db.ValidationError("unknown feedback channel")
	}

	var created *feedback.CustomerFeedback
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		if in.TicketID != nil {
			t, err := s.ticketRepo.GetByID(dbc, *in.TicketID)
			if err != nil {
				return db.MapError("fetch ticket", err)
			}
			if t == nil || t.OrgID != orgID {
				return db.NotFoundError("ticket not found")
			}
		}
		rows, err := s.repo.Create(dbc, []*feedback.CustomerFeedback{{
			OrgID:         orgID,
			TicketID:      in.TicketID,
			CustomerName:  name,
			CustomerEmail: strings.ToLower(strings.TrimSpace(in.CustomerEmail)),
			Rating:        in.Rating,
			Comment:       strings.TrimSpace(in.Comment),
			Channel:       channel,
			Status:        feedback.StatusNew,
		}})
		if err != nil {
			return db.MapError("create feedback", err)
		}
		created = rows[0]
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, orgID, realtime.SSEEventFeedbackCreated, map[string]any{
		"feedback_id": created.ID.String(),
		"rating":      created.Rating,
	})
	return created, nil
}

func (s *feedbackService) Get(dbc dbctx.Context, orgID, feedbackID uuid.UUID) (*feedback.CustomerFeedback, error) {
	return s.orgFeedback(dbc, orgID, feedbackID)
}

func (s *feedbackService) List(dbc dbctx.Context, orgID uuid.UUID, filter repos.FeedbackFilter) (*FeedbackPage, error) {
	rows, err := s.repo.ListByOrg(dbc, orgID, filter)
	if err != nil {
		return nil, db.MapError("list feedback", err)
	}
	total, err := s.repo.CountByOrg(dbc, orgID, filter)
	if err != nil {
		return nil, db.MapError("count feedback", err)
	}
	return &FeedbackPage{Feedback: rows, Total: total}, nil
}

func (s *feedbackService) Review(ctx context.Context, orgID, feedbackID, reviewerID uuid.UUID) (*feedback.CustomerFeedback, error) {
	dbc := dbctx.Context{Ctx: ctx}
	fb, err := s.orgFeedback(dbc, orgID, feedbackID)
	if err != nil {
		return nil, err
	}
	if fb.Status == feedback.StatusReviewed {
		return fb, nil
	}
	now := time.Now().UTC()
	if err := s.repo.SetStatus(dbc, feedbackID, feedback.StatusReviewed, &reviewerID, &now); err != nil {
		return nil, db.MapError("review feedback", err)
	}
	return s.orgFeedback(dbc, orgID, feedbackID)
}

func (s *feedbackService) Archive(ctx context.Context, orgID, feedbackID uuid.UUID) (*feedback.CustomerFeedback, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.orgFeedback(dbc, orgID, feedbackID); err != nil {
		return nil, err
	}
	if err := s.repo.SetStatus(dbc, feedbackID, feedback.StatusArchived, nil, nil); err != nil {
		return nil, db.MapError("archive feedback", err)
	}
	return s.orgFeedback(dbc, orgID, feedbackID)
}

func (s *feedbackService) Delete(ctx context.Context, orgID, feedbackID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.orgFeedback(dbc, orgID, feedbackID); err != nil {
		return err
	}
	return db.MapError("delete feedback", s.repo.SoftDeleteByID(dbc, feedbackID))
}

func (s *feedbackService) Summary(dbc dbctx.Context, orgID uuid.UUID, from, to *time.Time) (*repos.FeedbackSummary, error) {
	summary, err := s.repo.SummaryByOrg(dbc, orgID, from, to)
	if err != nil {
		return nil, db.MapError("summarize feedback", err)
	}
	return summary, nil
}

func (s *feedbackService) orgFeedback(dbc dbctx.Context, orgID, feedbackID uuid.UUID) (*feedback.CustomerFeedback, error) {
	fb, err := s.repo.GetByID(dbc, feedbackID)
	if err != nil {
		return nil, db.MapError("fetch feedback", err)
	}
	if fb == nil || fb.OrgID != orgID {
		return nil, db.NotFoundError("feedback not found")
	}
	return fb, nil
}
