package ticket

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/ticket"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

type CommentRepo interface {
	Create(dbc dbctx.Context, rows []*ticket.Comment) ([]*ticket.Comment, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*ticket.Comment, error)
	ListByTicket(dbc dbctx.Context, ticketID uuid.UUID, includeInternal bool) ([]*ticket.Comment, error)
	CountByTicket(dbc dbctx.Context, ticketID uuid.UUID) (int64, error)
}

type commentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommentRepo(db *gorm.DB, baseLog *logger.Logger) CommentRepo {
	return &commentRepo{db: db, log: baseLog.With("repo", "TicketCommentRepo")}
}

func (r *commentRepo) Create(dbc dbctx.Context, rows []*ticket.Comment) ([]*ticket.Comment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*ticket.Comment{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *commentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*ticket.Comment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row ticket.Comment
	err := t.WithContext(dbc.Ctx).
		Preload("Author").
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

func (r *commentRepo) ListByTicket(dbc dbctx.Context, ticketID uuid.UUID, includeInternal bool) ([]*ticket.Comment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*ticket.Comment
	if ticketID == uuid.Nil {
		return out, nil
	}
	q := t.WithContext(dbc.Ctx).
		Preload("Author").
		Where("ticket_id = ?", ticketID)
	if !includeInternal {
		q = q.Where("internal = FALSE")
	}
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *commentRepo) CountByTicket(dbc dbctx.Context, ticketID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if ticketID == uuid.Nil {
		return 0, nil
	}
	var count int64
	err := t.WithContext(dbc.Ctx).
		Model(&ticket.Comment{}).
		Where("ticket_id = ?", ticketID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
