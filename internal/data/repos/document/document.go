package document

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/document"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

// Filter narrows document listings. Zero values mean "no filter".
type Filter struct {
	Kinds    []document.Kind
	Statuses []document.Status
	Limit    int
	Offset   int
}

type DocumentRepo interface {
	Create(dbc dbctx.Context, row *document.Document) (*document.Document, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*document.Document, error)
	ListByOrg(dbc dbctx.Context, orgID uuid.UUID, filter Filter) ([]*document.Document, error)
	CountByOrg(dbc dbctx.Context, orgID uuid.UUID, filter Filter) (int64, error)
	// MarkProcessing claims the document for extraction; only one worker wins.
	MarkProcessing(dbc dbctx.Context, id uuid.UUID) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) Create(dbc dbctx.Context, row *document.Document) (*document.Document, error) {
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

func (r *documentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*document.Document, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row document.Document
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

func applyDocumentFilter(q *gorm.DB, filter Filter) *gorm.DB {
	if len(filter.Kinds) > 0 {
		q = q.Where("kind IN ?", filter.Kinds)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	return q
}

func (r *documentRepo) ListByOrg(dbc dbctx.Context, orgID uuid.UUID, filter Filter) ([]*document.Document, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*document.Document
	if orgID == uuid.Nil {
		return out, nil
	}
	q := applyDocumentFilter(t.WithContext(dbc.Ctx).Where("org_id = ?", orgID), filter).
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

func (r *documentRepo) CountByOrg(dbc dbctx.Context, orgID uuid.UUID, filter Filter) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if orgID == uuid.Nil {
		return 0, nil
	}
	var n int64
	err := applyDocumentFilter(
		t.WithContext(dbc.Ctx).Model(&document.Document{}).Where("org_id = ?", orgID),
		filter,
	).Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *documentRepo) MarkProcessing(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	res := t.WithContext(dbc.Ctx).
		Model(&document.Document{}).
		Where("id = ? AND status IN ?", id, []document.Status{document.StatusUploaded, document.StatusFailed}).
		Update("status", document.StatusProcessing)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *documentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&document.Document{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *documentRepo) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&document.Document{}).Error
}
