package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/data/db"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	"github.com/veldtops/fieldsuite-backend/internal/domain/fieldjob"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

type CreateFieldJobInput struct {
	Kind         fieldjob.Kind
	TicketID     *uuid.UUID
	ScheduledFor *time.Time
	AssigneeID   *uuid.UUID
	SiteAddress  string
	ContactName  string
	ContactPhone string
	Notes        string
}

type UpdateFieldJobInput struct {
	ScheduledFor *time.Time
	SiteAddress  *string
	ContactName  *string
	ContactPhone *string
	Notes        *string
}

type FieldJobPage struct {
	Jobs  []*fieldjob.FieldJob `json:"jobs"`
	Total int64                `json:"total"`
}

type FieldJobService interface {
	Create(ctx context.Context, orgID, createdBy uuid.UUID, in CreateFieldJobInput) (*fieldjob.FieldJob, error)
	Get(dbc dbctx.Context, orgID, jobID uuid.UUID) (*fieldjob.FieldJob, error)
	GetByNumber(dbc dbctx.Context, orgID uuid.UUID, number string) (*fieldjob.FieldJob, error)
	List(dbc dbctx.Context, orgID uuid.UUID, filter repos.FieldJobFilter) (*FieldJobPage, error)
	Update(ctx context.Context, orgID, jobID uuid.UUID, in UpdateFieldJobInput) (*fieldjob.FieldJob, error)
	Assign(ctx context.Context, orgID, jobID uuid.UUID, assigneeID *uuid.UUID) (*fieldjob.FieldJob, error)
	// SetStatus moves the job along its forward-only lifecycle.
	SetStatus(ctx context.Context, orgID, jobID uuid.UUID, to fieldjob.Status) (*fieldjob.FieldJob, error)
	Delete(ctx context.Context, orgID, jobID uuid.UUID) error
}

type fieldJobService struct {
	db         *gorm.DB
	log        *logger.Logger
	jobRepo    repos.FieldJobRepo
	seqRepo    repos.SequenceRepo
	ticketRepo repos.TicketRepo
}

func NewFieldJobService(gdb *gorm.DB, baseLog *logger.Logger, jobRepo repos.FieldJobRepo, seqRepo repos.SequenceRepo, ticketRepo repos.TicketRepo) FieldJobService {
	return &fieldJobService{
		db:         gdb,
		log:        baseLog.With("service", "FieldJobService"),
		jobRepo:    jobRepo,
		seqRepo:    seqRepo,
		ticketRepo: ticketRepo,
	}
}

func (s *fieldJobService) Create(ctx context.Context, orgID, createdBy uuid.UUID, in CreateFieldJobInput) (*fieldjob.FieldJob, error) {
	if !in.Kind.Valid() {
		return nil, db.ValidationError("unknown field job kind")
	}

	var created *fieldjob.FieldJob
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
			if t.Status.Terminal() {
				return db.ConflictError("cannot schedule work for a closed or cancelled ticket")
			}
		}

		seqKind := fieldjob.SequenceDispatch
		if in.Kind == fieldjob.KindInstallation {
			seqKind = fieldjob.SequenceInstallation
		}
		number, err := s.seqRepo.NextNumber(dbc, orgID, seqKind)
		if err != nil {
			return db.MapError("allocate job number", err)
		}

		created, err = s.jobRepo.Create(dbc, &fieldjob.FieldJob{
			OrgID:        orgID,
			TicketID:     in.TicketID,
			Kind:         in.Kind,
			Number:       number,
			Status:       fieldjob.StatusScheduled,
			ScheduledFor: in.ScheduledFor,
			AssigneeID:   in.AssigneeID,
			SiteAddress:  strings.TrimSpace(in.SiteAddress),
			ContactName:  strings.TrimSpace(in.ContactName),
			ContactPhone: strings.TrimSpace(in.ContactPhone),
			Notes:        strings.TrimSpace(in.Notes),
			CreatedBy:    createdBy,
		})
		if err != nil {
			return db.MapError("create field job", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *fieldJobService) Get(dbc dbctx.Context, orgID, jobID uuid.UUID) (*fieldjob.FieldJob, error) {
	return s.orgJob(dbc, orgID, jobID)
}

func (s *fieldJobService) GetByNumber(dbc dbctx.Context, orgID uuid.UUID, number string) (*fieldjob.FieldJob, error) {
	job, err := s.jobRepo.GetByOrgAndNumber(dbc, orgID, strings.TrimSpace(number))
	if err != nil {
		return nil, db.MapError("fetch field job", err)
	}
	if job == nil {
		return nil, db.NotFoundError("field job not found")
	}
	return job, nil
}

func (s *fieldJobService) List(dbc dbctx.Context, orgID uuid.UUID, filter repos.FieldJobFilter) (*FieldJobPage, error) {
	rows, err := s.jobRepo.ListByOrg(dbc, orgID, filter)
	if err != nil {
		return nil, db.MapError("list field jobs", err)
	}
	total, err := s.jobRepo.CountByOrg(dbc, orgID, filter)
	if err != nil {
		return nil, db.MapError("count field jobs", err)
	}
	return &FieldJobPage{Jobs: rows, Total: total}, nil
}

func (s *fieldJobService) Update(ctx context.Context, orgID, jobID uuid.UUID, in UpdateFieldJobInput) (*fieldjob.FieldJob, error) {
	dbc := dbctx.Context{Ctx: ctx}
	job, err := s.orgJob(dbc, orgID, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, db.ConflictError("cannot edit a completed or cancelled job")
	}

	updates := map[string]any{}
	if in.ScheduledFor != nil {
		updates["scheduled_for"] = *in.ScheduledFor
	}
	setString(updates, "site_address", in.SiteAddress)
	setString(updates, "contact_name", in.ContactName)
	setString(updates, "contact_phone", in.ContactPhone)
	setString(updates, "notes", in.Notes)

	if len(updates) > 0 {
		if err := s.jobRepo.UpdateFields(dbc, jobID, updates); err != nil {
			return nil, db.MapError("update field job", err)
		}
	}
	return s.orgJob(dbc, orgID, jobID)
}

func (s *fieldJobService) Assign(ctx context.Context, orgID, jobID uuid.UUID, assigneeID *uuid.UUID) (*fieldjob.FieldJob, error) {
	dbc := dbctx.Context{Ctx: ctx}
	job, err := s.orgJob(dbc, orgID, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, db.ConflictError("cannot assign a completed or cancelled job")
	}
	if err := s.jobRepo.UpdateFields(dbc, jobID, map[string]any{"assignee_id": assigneeID}); err != nil {
		return nil, db.MapError("assign field job", err)
	}
	return s.orgJob(dbc, orgID, jobID)
}

func (s *fieldJobService) SetStatus(ctx context.Context, orgID, jobID uuid.UUID, to fieldjob.Status) (*fieldjob.FieldJob, error) {
	if !to.Valid() {
		return nil, db.ValidationError("unknown field job status")
	}
	var updated *fieldjob.FieldJob
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		job, err := s.orgJob(dbc, orgID, jobID)
		if err != nil {
			return err
		}
		if !fieldjob.CanTransition(job.Status, to) {
			return db.ConflictError("invalid job transition " + string(job.Status) + " -> " + string(to))
		}
		updates := map[string]any{"status": to}
		if to == fieldjob.StatusCompleted {
			updates["completed_at"] = time.Now().UTC()
		}
		won, err := s.jobRepo.UpdateStatusGuarded(dbc, jobID, job.Status, updates)
		if err != nil {
			return db.MapError("transition field job", err)
		}
		if !won {
			return db.ConflictError("job status changed concurrently")
		}
		updated, err = s.orgJob(dbc, orgID, jobID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *fieldJobService) Delete(ctx context.Context, orgID, jobID uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	job, err := s.orgJob(dbc, orgID, jobID)
	if err != nil {
		return err
	}
	if !job.Status.Terminal() && job.Status != fieldjob.StatusScheduled {
		return db.ConflictError("only scheduled or finished jobs can be deleted")
	}
	return db.MapError("delete field job", s.jobRepo.SoftDeleteByID(dbc, jobID))
}

func (s *fieldJobService) orgJob(dbc dbctx.Context, orgID, jobID uuid.UUID) (*fieldjob.FieldJob, error) {
	job, err := s.jobRepo.GetByID(dbc, jobID)
	if err != nil {
		return nil, db.MapError("fetch field job", err)
	}
	if job == nil || job.OrgID != orgID {
		return nil, db.NotFoundError("field job not found")
	}
	return job, nil
}
