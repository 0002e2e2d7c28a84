package sla

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/sla"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

// Summary aggregates settlement outcomes for an org over a window.
type Summary struct {
	Total int64 `json:"total"`

	ResponseMet      int64 `json:"response_met"`
	ResponseBreached int64 `json:"response_breached"`
	ResponsePending  int64 `json:"response_pending"`

	ResolutionMet      int64 `json:"resolution_met"`
	ResolutionBreached int64 `json:"resolution_breached"`
	ResolutionPending  int64 `json:"resolution_pending"`

	Escalated int64 `json:"escalated"`

	// Average lateness in hours among breached rows only.
	AvgResponseBreachHours   float64 `json:"avg_response_breach_hours"`
	AvgResolutionBreachHours float64 `json:"avg_resolution_breach_hours"`
}

type TrackingRepo interface {
	Create(dbc dbctx.Context, rows []*sla.Tracking) ([]*sla.Tracking, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*sla.Tracking, error)
	GetByTicketID(dbc dbctx.Context, ticketID uuid.UUID) (*sla.Tracking, error)
	// ListUnsettled returns rows with a pending response or resolution clock,
	// oldest first, with Policy and Ticket preloaded for the deadline scan.
	// Pagination is key-set on (created_at, id): the scan settles rows as it
	// goes, so offsets would skip over the shrinking result set. A zero
	// afterID starts from the beginning.
	ListUnsettled(dbc dbctx.Context, limit int, afterCreated time.Time, afterID uuid.UUID) ([]*sla.Tracking, error)
	// ListPendingResponseByOrg returns an org's not-yet-escalated rows whose
	// response clock is still open, Policy and Ticket preloaded.
	ListPendingResponseByOrg(dbc dbctx.Context, orgID uuid.UUID, limit int) ([]*sla.Tracking, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	// MarkEscalated flips the escalation flag once and reports whether this
	// call was the one that flipped it.
	MarkEscalated(dbc dbctx.Context, id uuid.UUID, at time.Time) (bool, error)
	CountByPolicyID(dbc dbctx.Context, policyID uuid.UUID) (int64, error)
	SummaryByOrg(dbc dbctx.Context, orgID uuid.UUID, from, to time.Time) (*Summary, error)
}

type trackingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrackingRepo(db *gorm.DB, baseLog *logger.Logger) TrackingRepo {
	return &trackingRepo{db: db, log: baseLog.With("repo", "SLATrackingRepo")}
}

func (r *trackingRepo) Create(dbc dbctx.Context, rows []*sla.Tracking) ([]*sla.Tracking, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*sla.Tracking{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *trackingRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*sla.Tracking, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row sla.Tracking
	err := t.WithContext(dbc.Ctx).
		Preload("Policy").
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

func (r *trackingRepo) GetByTicketID(dbc dbctx.Context, ticketID uuid.UUID) (*sla.Tracking, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if ticketID == uuid.Nil {
		return nil, nil
	}
	var row sla.Tracking
	err := t.WithContext(dbc.Ctx).
		Preload("Policy").
		Where("ticket_id = ?", ticketID).
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

func (r *trackingRepo) ListUnsettled(dbc dbctx.Context, limit int, afterCreated time.Time, afterID uuid.UUID) ([]*sla.Tracking, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*sla.Tracking
	q := t.WithContext(dbc.Ctx).
		Preload("Policy").
		Preload("Ticket").
		Where("response_status = ? OR resolution_status = ?", sla.TrackingPending, sla.TrackingPending).
		Order("created_at ASC, id ASC")
	if afterID != uuid.Nil {
		q = q.Where("(created_at, id) > (?, ?)", afterCreated, afterID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *trackingRepo) ListPendingResponseByOrg(dbc dbctx.Context, orgID uuid.UUID, limit int) ([]*sla.Tracking, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*sla.Tracking
	if orgID == uuid.Nil {
		return out, nil
	}
	q := t.WithContext(dbc.Ctx).
		Preload("Policy").
		Preload("Ticket").
		Where("org_id = ? AND response_status = ? AND escalated = false", orgID, sla.TrackingPending).
		Order("response_deadline ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *trackingRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&sla.Tracking{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *trackingRepo) MarkEscalated(dbc dbctx.Context, id uuid.UUID, at time.Time) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	res := t.WithContext(dbc.Ctx).
		Model(&sla.Tracking{}).
		Where("id = ? AND escalated = FALSE", id).
		Updates(map[string]any{
			"escalated":    true,
			"escalated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *trackingRepo) CountByPolicyID(dbc dbctx.Context, policyID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if policyID == uuid.Nil {
		return 0, nil
	}
	var count int64
	err := t.WithContext(dbc.Ctx).
		Model(&sla.Tracking{}).
		Where("policy_id = ?", policyID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *trackingRepo) SummaryByOrg(dbc dbctx.Context, orgID uuid.UUID, from, to time.Time) (*Summary, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := &Summary{}
	if orgID == uuid.Nil {
		return out, nil
	}

	base := func() *gorm.DB {
		q := t.WithContext(dbc.Ctx).Model(&sla.Tracking{}).Where("org_id = ?", orgID)
		if !from.IsZero() {
			q = q.Where("created_at >= ?", from)
		}
		if !to.IsZero() {
			q = q.Where("created_at < ?", to)
		}
		return q
	}

	if err := base().Count(&out.Total).Error; err != nil {
		return nil, err
	}
	if out.Total == 0 {
		return out, nil
	}

	type statusRow struct {
		Status sla.TrackingStatus
		N      int64
	}

	var respRows []statusRow
	if err := base().
		Select("response_status AS status, COUNT(*) AS n").
		Group("response_status").
		Scan(&respRows).Error; err != nil {
		return nil, err
	}
	for _, row := range respRows {
		switch row.Status {
		case sla.TrackingMet:
			out.ResponseMet = row.N
		case sla.TrackingBreached:
			out.ResponseBreached = row.N
		case sla.TrackingPending:
			out.ResponsePending = row.N
		}
	}

	var resRows []statusRow
	if err := base().
		Select("resolution_status AS status, COUNT(*) AS n").
		Group("resolution_status").
		Scan(&resRows).Error; err != nil {
		return nil, err
	}
	for _, row := range resRows {
		switch row.Status {
		case sla.TrackingMet:
			out.ResolutionMet = row.N
		case sla.TrackingBreached:
			out.ResolutionBreached = row.N
		case sla.TrackingPending:
			out.ResolutionPending = row.N
		}
	}

	if err := base().Where("escalated = TRUE").Count(&out.Escalated).Error; err != nil {
		return nil, err
	}

	var avg struct {
		Response   *float64
		Resolution *float64
	}
	if err := base().
		Select(
			"AVG(response_breach_hours) FILTER (WHERE response_status = 'breached') AS response, " +
				"AVG(resolution_breach_hours) FILTER (WHERE resolution_status = 'breached') AS resolution",
		).
		Scan(&avg).Error; err != nil {
		return nil, err
	}
	if avg.Response != nil {
		out.AvgResponseBreachHours = *avg.Response
	}
	if avg.Resolution != nil {
		out.AvgResolutionBreachHours = *avg.Resolution
	}
	return out, nil
}
