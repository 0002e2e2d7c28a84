package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/data/db"
	"github.com/veldtops/fieldsuite-backend/internal/data/repos"
	"github.com/veldtops/fieldsuite-backend/internal/domain/jobs"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

// JobService is the enqueue side of the background worker. Handlers and
// services queue work here; the worker claims and runs it.
type JobService interface {
	Enqueue(dbc dbctx.Context, req EnqueueRequest) (*jobs.JobRun, error)
	// EnqueueUnique skips the insert when a queued or running row for the
	// same job type and entity already exists. Self-scheduling jobs use it to
	// avoid pileup.
	EnqueueUnique(dbc dbctx.Context, req EnqueueRequest) (*jobs.JobRun, bool, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*jobs.JobRun, error)
}

type EnqueueRequest struct {
	JobType    string
	OrgID      *uuid.UUID
	EntityType string
	EntityID   *uuid.UUID
	Payload    map[string]any
	RunAfter   *time.Time
}

type jobService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.JobRunRepo
}

func NewJobService(gdb *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo) JobService {
	return &jobService{
		db:   gdb,
		log:  baseLog.With("service", "JobService"),
		repo: repo,
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, req EnqueueRequest) (*jobs.JobRun, error) {
	if req.JobType == "" {
		return nil, db.ValidationError("job type is required")
	}
	row := &jobs.JobRun{
		OrgID:      req.OrgID,
		JobType:    req.JobType,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Status:     jobs.StatusQueued,
		RunAfter:   req.RunAfter,
	}
	if len(req.Payload) > 0 {
		raw, err := json.Marshal(req.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal job payload: %w", err)
		}
		row.Payload = datatypes.JSON(raw)
	}
	created, err := s.repo.Create(dbc, []*jobs.JobRun{row})
	if err != nil {
		return nil, db.MapError("enqueue job", err)
	}
	s.log.Debug("Job enqueued", "job_type", req.JobType, "job_id", created[0].ID)
	return created[0], nil
}

func (s *jobService) EnqueueUnique(dbc dbctx.Context, req EnqueueRequest) (*jobs.JobRun, bool, error) {
	exists, err := s.repo.ExistsRunnable(dbc, req.JobType, req.EntityType, req.EntityID)
	if err != nil {
		return nil, false, db.MapError("check runnable job", err)
	}
	if exists {
		return nil, false, nil
	}
	row, err := s.Enqueue(dbc, req)
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

func (s *jobService) Get(dbc dbctx.Context, id uuid.UUID) (*jobs.JobRun, error) {
	row, err := s.repo.GetByID(dbc, id)
	if err != nil {
		return nil, db.MapError("fetch job", err)
	}
	if row == nil {
		return nil, db.NotFoundError("job not found")
	}
	return row, nil
}
