package mail

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/mail"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

type OAuthStateRepo interface {
	Create(dbc dbctx.Context, row *mail.OAuthState) (*mail.OAuthState, error)
	GetByState(dbc dbctx.Context, state string) (*mail.OAuthState, error)
	// Consume burns the state exactly once. It returns the row when this call
	// won the consume, nil when the state is unknown, expired, or already
	// spent.
	Consume(dbc dbctx.Context, state string, at time.Time) (*mail.OAuthState, error)
	DeleteExpiredBefore(dbc dbctx.Context, cutoff time.Time) (int64, error)
}

type oauthStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOAuthStateRepo(db *gorm.DB, baseLog *logger.Logger) OAuthStateRepo {
	return &oauthStateRepo{db: db, log: baseLog.With("repo", "OAuthStateRepo")}
}

func (r *oauthStateRepo) Create(dbc dbctx.Context, row *mail.OAuthState) (*mail.OAuthState, error) {
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

func (r *oauthStateRepo) GetByState(dbc dbctx.Context, state string) (*mail.OAuthState, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if state == "" {
		return nil, nil
	}
	var row mail.OAuthState
	err := t.WithContext(dbc.Ctx).
		Where("state = ?", state).
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

func (r *oauthStateRepo) Consume(dbc dbctx.Context, state string, at time.Time) (*mail.OAuthState, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if state == "" {
		return nil, nil
	}
	res := t.WithContext(dbc.Ctx).
		Model(&mail.OAuthState{}).
		Where("state = ? AND consumed_at IS NULL AND expires_at > ?", state, at).
		Update("consumed_at", at)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetByState(dbc, state)
}

func (r *oauthStateRepo) DeleteExpiredBefore(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Unscoped().
		Where("expires_at < ?", cutoff).
		Delete(&mail.OAuthState{})
	return res.RowsAffected, res.Error
}
