package feedback

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/feedback"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

// Filter narrows ListByOrg / CountByOrg. Zero values mean "no filter".
type Filter struct {
	Statuses  []feedback.Status
	Channels  []feedback.Channel
	TicketID  *uuid.UUID
	MinRating int
	MaxRating int
	Limit     int
	Offset    int
}

// Summary aggregates one org's feedback for the review dashboard.
type Summary struct {
	Total         int64           `json:"total"`
	AverageRating float64         `json:"average_rating"`
	RatingCounts  map[int]int64   `json:"rating_counts"`
	StatusCounts  map[string]int64 `json:"status_counts"`
}

type FeedbackRepo interface {
	Create(dbc dbctx.Context, rows []*feedback.CustomerFeedback) ([]*feedback.CustomerFeedback, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*feedback.CustomerFeedback, error)
	ListByOrg(dbc dbctx.Context, orgID uuid.UUID, filter Filter) ([]*feedback.CustomerFeedback, error)
	CountByOrg(dbc dbctx.Context, orgID uuid.UUID, filter Filter) (int64, error)
	SetStatus(dbc dbctx.Context, id uuid.UUID, status feedback.Status, reviewedBy *uuid.UUID, reviewedAt *time.Time) error
	SummaryByOrg(dbc dbctx.Context, orgID uuid.UUID, from, to *time.Time) (*Summary, error)
	SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type feedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	return &feedbackRepo{db: db, log: baseLog.With("repo", "FeedbackRepo")}
}

func (r *feedbackRepo) Create(dbc dbctx.Context, rows []*feedback.CustomerFeedback) ([]*feedback.CustomerFeedback, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*feedback.CustomerFeedback{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *feedbackRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*feedback.CustomerFeedback, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row feedback.CustomerFeedback
	err := t.WithContext(dbc.Ctx).
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

func applyFilter(q *gorm.DB, filter Filter) *gorm.DB {
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if len(filter.Channels) > 0 {
		q = q.Where("channel IN ?", filter.Channels)
	}
	if filter.TicketID != nil {
		q = q.Where("ticket_id = ?", *filter.TicketID)
	}
	if filter.MinRating > 0 {
		q = q.Where("rating >= ?", filter.MinRating)
	}
	if filter.MaxRating > 0 {
		q = q.Where("rating <= ?", filter.MaxRating)
	}
	return q
}

func (r *feedbackRepo) ListByOrg(dbc dbctx.Context, orgID uuid.UUID, filter Filter) ([]*feedback.CustomerFeedback, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*feedback.CustomerFeedback
	if orgID == uuid.Nil {
		return out, nil
	}
	q := applyFilter(t.WithContext(dbc.Ctx).Where("org_id = ?", orgID), filter).
		Order("created_at DESC")
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

func (r *feedbackRepo) CountByOrg(dbc dbctx.Context, orgID uuid.UUID, filter Filter) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if orgID == uuid.Nil {
		return 0, nil
	}
	var count int64
	q := applyFilter(
		t.WithContext(dbc.Ctx).Model(&feedback.CustomerFeedback{}).Where("org_id = ?", orgID),
		filter,
	)
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *feedbackRepo) SetStatus(dbc dbctx.Context, id uuid.UUID, status feedback.Status, reviewedBy *uuid.UUID, reviewedAt *time.Time) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&feedback.CustomerFeedback{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      status,
			"reviewed_by": reviewedBy,
			"reviewed_at": reviewedAt,
		}).Error
}

func (r *feedbackRepo) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&feedback.CustomerFeedback{}).Error
}

func (r *feedbackRepo) SummaryByOrg(dbc dbctx.Context, orgID uuid.UUID, from, to *time.Time) (*Summary, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := &Summary{
		RatingCounts: map[int]int64{},
		StatusCounts: map[string]int64{},
	}
	if orgID == uuid.Nil {
		return out, nil
	}

	base := func() *gorm.DB {
		q := t.WithContext(dbc.Ctx).
			Model(&feedback.CustomerFeedback{}).
			Where("org_id = ?", orgID)
		if from != nil {
			q = q.Where("created_at >= ?", *from)
		}
		if to != nil {
			q = q.Where("created_at < ?", *to)
		}
		return q
	}

	type ratingRow struct {
		Rating int   `gorm:"column:rating"`
		Count  int64 `gorm:"column:count"`
	}
	var ratings []ratingRow
	if err := base().
		Select("rating, COUNT(*) AS count").
		Group("rating").
		Find(&ratings).Error; err != nil {
		return nil, err
	}
	var weighted int64
	for _, row := range ratings {
		out.RatingCounts[row.Rating] = row.Count
		out.Total += row.Count
		weighted += int64(row.Rating) * row.Count
	}
	if out.Total > 0 {
		out.AverageRating = float64(weighted) / float64(out.Total)
	}

	type statusRow struct {
		Status string `gorm:"column:status"`
		Count  int64  `gorm:"column:count"`
	}
	var statuses []statusRow
	if err := base().
		Select("status, COUNT(*) AS count").
		Group("status").
		Find(&statuses).Error; err != nil {
		return nil, err
	}
	for _, row := range statuses {
		out.StatusCounts[row.Status] = row.Count
	}

	return out, nil
}
