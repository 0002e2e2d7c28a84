package fieldjob

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/fieldjob"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

// Filter narrows field job listings. Zero values mean "no filter".
type Filter struct {
	Kinds         []fieldjob.Kind
	Statuses      []fieldjob.Status
	AssigneeID    *uuid.UUID
	TicketID      *uuid.UUID
	ScheduledFrom *time.Time
	ScheduledTo   *time.Time
	Limit         int
	Offset        int
}

type FieldJobRepo interface {
	Create(dbc dbctx.Context, row *fieldjob.FieldJob) (*fieldjob.FieldJob, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*fieldjob.FieldJob, error)
	GetByOrgAndNumber(dbc dbctx.Context, orgID uuid.UUID, number string) (*fieldjob.FieldJob, error)
	ListByOrg(dbc dbctx.Context, orgID uuid.UUID, filter Filter) ([]*fieldjob.FieldJob, error)
	CountByOrg(dbc dbctx.Context, orgID uuid.UUID, filter Filter) (int64, error)
	// UpdateStatusGuarded applies updates only while the row still holds the
	// expected status; reports whether the row was won.
	UpdateStatusGuarded(dbc dbctx.Context, id uuid.UUID, expected fieldjob.Status, updates map[string]any) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type fieldJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFieldJobRepo(db *gorm.DB, baseLog *logger.Logger) FieldJobRepo {
	return &fieldJobRepo{db: db, log: baseLog.With("repo", "FieldJobRepo")}
}

func (r *fieldJobRepo) Create(dbc dbctx.Context, row *fieldjob.FieldJob) (*fieldjob.FieldJob, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *fieldJobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*fieldjob.FieldJob, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row fieldjob.FieldJob
	err := t.WithContext(dbc.Ctx).
		Preload("Assignee").
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *fieldJobRepo) GetByOrgAndNumber(dbc dbctx.Context, orgID uuid.UUID, number string) (*fieldjob.FieldJob, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if orgID == uuid.Nil || number == "" {
		return nil, nil
	}
	var row fieldjob.FieldJob
	err := t.WithContext(dbc.Ctx).
		Preload("Assignee").
		Where("org_id = ? AND number = ?", orgID, number).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func applyFieldJobFilter(q *gorm.DB, filter Filter) *gorm.DB {
	if len(filter.Kinds) > 0 {
		q = q.Where("kind IN ?", filter.Kinds)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.AssigneeID != nil {
		q = q.Where("assignee_id = ?", *filter.AssigneeID)
	}
	if filter.TicketID != nil {
		q = q.Where("ticket_id = ?", *filter.TicketID)
	}
	if filter.ScheduledFrom != nil {
		q = q.Where("scheduled_for >= ?", *filter.ScheduledFrom)
	}
	if filter.ScheduledTo != nil {
		q = q.Where("scheduled_for < ?", *filter.ScheduledTo)
	}
	return q
}

func (r *fieldJobRepo) ListByOrg(dbc dbctx.Context, orgID uuid.UUID, filter Filter) ([]*fieldjob.FieldJob, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*fieldjob.FieldJob
	if orgID == uuid.Nil {
		return out, nil
	}
	q := applyFieldJobFilter(t.WithContext(dbc.Ctx).Where("org_id = ?", orgID), filter).
		Preload("Assignee").
		Order("scheduled_for ASC NULLS LAST, created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *fieldJobRepo) CountByOrg(dbc dbctx.Context, orgID uuid.UUID, filter Filter) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if orgID == uuid.Nil {
		return 0, nil
	}
	var n int64
	err := applyFieldJobFilter(
		t.WithContext(dbc.Ctx).Model(&fieldjob.FieldJob{}).Where("org_id = ?", orgID),
		filter,
	).Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *fieldJobRepo) UpdateStatusGuarded(dbc dbctx.Context, id uuid.UUID, expected fieldjob.Status, updates map[string]any) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return false, nil
	}
	res := t.WithContext(dbc.Ctx).
		Model(&fieldjob.FieldJob{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *fieldJobRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&fieldjob.FieldJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *fieldJobRepo) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&fieldjob.FieldJob{}).Error
}
