package ticket

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/ticket"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

// Filter narrows ListByOrg / CountByOrg. Zero values mean "no filter".
type Filter struct {
	Statuses   []ticket.Status
	Priorities []ticket.Priority
	Types      []ticket.Type
	Tiers      []ticket.Tier
	AssigneeID *uuid.UUID
	CreatedBy  *uuid.UUID
	Search     string
	Limit      int
	Offset     int
}

type TicketRepo interface {
	Create(dbc dbctx.Context, rows []*ticket.Ticket) ([]*ticket.Ticket, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*ticket.Ticket, error)
	GetByOrgAndNumber(dbc dbctx.Context, orgID uuid.UUID, number string) (*ticket.Ticket, error)
	ListByOrg(dbc dbctx.Context, orgID uuid.UUID, filter Filter) ([]*ticket.Ticket, error)
	CountByOrg(dbc dbctx.Context, orgID uuid.UUID, filter Filter) (int64, error)
	CountByStatus(dbc dbctx.Context, orgID uuid.UUID) (map[ticket.Status]int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	// UpdateStatusGuarded applies updates only while the row still holds the
	// expected status; reports whether the row was won.
	UpdateStatusGuarded(dbc dbctx.Context, id uuid.UUID, expected ticket.Status, updates map[string]any) (bool, error)
	// StampFirstResponse records the first response instant once; later calls
	// are no-ops.
	StampFirstResponse(dbc dbctx.Context, id uuid.UUID, at time.Time) (bool, error)
}

type ticketRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTicketRepo(db *gorm.DB, baseLog *logger.Logger) TicketRepo {
	return &ticketRepo{db: db, log: baseLog.With("repo", "TicketRepo")}
}

func (r *ticketRepo) Create(dbc dbctx.Context, rows []*ticket.Ticket) ([]*ticket.Ticket, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*ticket.Ticket{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ticketRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*ticket.Ticket, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row ticket.Ticket
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

func (r *ticketRepo) GetByOrgAndNumber(dbc dbctx.Context, orgID uuid.UUID, number string) (*ticket.Ticket, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	number = strings.TrimSpace(number)
	if orgID == uuid.Nil || number == "" {
		return nil, nil
	}
	var row ticket.Ticket
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

func applyFilter(q *gorm.DB, filter Filter) *gorm.DB {
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if len(filter.Priorities) > 0 {
		q = q.Where("priority IN ?", filter.Priorities)
	}
	if len(filter.Types) > 0 {
		q = q.Where("ticket_type IN ?", filter.Types)
	}
	if len(filter.Tiers) > 0 {
		q = q.Where("customer_tier IN ?", filter.Tiers)
	}
	if filter.AssigneeID != nil {
		q = q.Where("assignee_id = ?", *filter.AssigneeID)
	}
	if filter.CreatedBy != nil {
		q = q.Where("created_by = ?", *filter.CreatedBy)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where(
			"lower(subject) LIKE ? OR lower(customer_name) LIKE ? OR lower(number) LIKE ?",
			like, like, like,
		)
	}
	return q
}

func (r *ticketRepo) ListByOrg(dbc dbctx.Context, orgID uuid.UUID, filter Filter) ([]*ticket.Ticket, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*ticket.Ticket
	if orgID == uuid.Nil {
		return out, nil
	}
	q := applyFilter(t.WithContext(dbc.Ctx).Where("org_id = ?", orgID), filter).
		Preload("Assignee").
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

func (r *ticketRepo) CountByOrg(dbc dbctx.Context, orgID uuid.UUID, filter Filter) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if orgID == uuid.Nil {
		return 0, nil
	}
	var count int64
	q := applyFilter(
		t.WithContext(dbc.Ctx).Model(&ticket.Ticket{}).Where("org_id = ?", orgID),
		filter,
	)
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepo) CountByStatus(dbc dbctx.Context, orgID uuid.UUID) (map[ticket.Status]int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := map[ticket.Status]int64{}
	if orgID == uuid.Nil {
		return out, nil
	}
	type statusRow struct {
		Status ticket.Status `gorm:"column:status"`
		Count  int64         `gorm:"column:count"`
	}
	var rows []statusRow
	err := t.WithContext(dbc.Ctx).
		Model(&ticket.Ticket{}).
		Select("status, COUNT(*) AS count").
		Where("org_id = ?", orgID).
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *ticketRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&ticket.Ticket{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *ticketRepo) UpdateStatusGuarded(dbc dbctx.Context, id uuid.UUID, expected ticket.Status, updates map[string]any) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return false, nil
	}
	res := t.WithContext(dbc.Ctx).
		Model(&ticket.Ticket{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ticketRepo) StampFirstResponse(dbc dbctx.Context, id uuid.UUID, at time.Time) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	res := t.WithContext(dbc.Ctx).
		Model(&ticket.Ticket{}).
		Where("id = ? AND first_response_at IS NULL", id).
		Update("first_response_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
