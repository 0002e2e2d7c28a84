package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/auth"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

type UserTokenRepo interface {
	Create(dbc dbctx.Context, rows []*auth.UserToken) ([]*auth.UserToken, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*auth.UserToken, error)
	GetByRefreshHash(dbc dbctx.Context, refreshHash string) (*auth.UserToken, error)
	ListActiveByUser(dbc dbctx.Context, userID uuid.UUID) ([]*auth.UserToken, error)
	RevokeByIDs(dbc dbctx.Context, ids []uuid.UUID, at time.Time) error
	RevokeByUserID(dbc dbctx.Context, userID uuid.UUID, at time.Time) error
	DeleteExpiredBefore(dbc dbctx.Context, cutoff time.Time) (int64, error)
}

type userTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return &userTokenRepo{db: db, log: baseLog.With("repo", "UserTokenRepo")}
}

func (r *userTokenRepo) Create(dbc dbctx.Context, rows []*auth.UserToken) ([]*auth.UserToken, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*auth.UserToken{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *userTokenRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*auth.UserToken, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row auth.UserToken
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

func (r *userTokenRepo) GetByRefreshHash(dbc dbctx.Context, refreshHash string) (*auth.UserToken, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if refreshHash == "" {
		return nil, nil
	}
	var row auth.UserToken
	err := t.WithContext(dbc.Ctx).
		Where("refresh_token_hash = ?", refreshHash).
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

func (r *userTokenRepo) ListActiveByUser(dbc dbctx.Context, userID uuid.UUID) ([]*auth.UserToken, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*auth.UserToken
	if userID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, time.Now()).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userTokenRepo) RevokeByIDs(dbc dbctx.Context, ids []uuid.UUID, at time.Time) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&auth.UserToken{}).
		Where("id IN ? AND revoked_at IS NULL", ids).
		Update("revoked_at", at).Error
}

func (r *userTokenRepo) RevokeByUserID(dbc dbctx.Context, userID uuid.UUID, at time.Time) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&auth.UserToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at).Error
}

// DeleteExpiredBefore hard-deletes tokens whose expiry is behind the cutoff.
func (r *userTokenRepo) DeleteExpiredBefore(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Unscoped().
		Where("expires_at < ?", cutoff).
		Delete(&auth.UserToken{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
