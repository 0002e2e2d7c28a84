package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/user"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

type UserRepo interface {
	Create(dbc dbctx.Context, rows []*user.User) ([]*user.User, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*user.User, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*user.User, error)
	GetByEmail(dbc dbctx.Context, email string) (*user.User, error)
	EmailExists(dbc dbctx.Context, email string) (bool, error)
	UpdateName(dbc dbctx.Context, id uuid.UUID, firstName, lastName string) error
	UpdatePasswordHash(dbc dbctx.Context, id uuid.UUID, passwordHash string) error
	UpdateAvatarFields(dbc dbctx.Context, id uuid.UUID, bucketKey, avatarURL string) error
	UpdateLastLogin(dbc dbctx.Context, id uuid.UUID, at time.Time) error
	SetActive(dbc dbctx.Context, id uuid.UUID, active bool) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) Create(dbc dbctx.Context, rows []*user.User) ([]*user.User, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*user.User{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*user.User, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *userRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*user.User, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*user.User
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userRepo) GetByEmail(dbc dbctx.Context, email string) (*user.User, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	var row user.User
	err := t.WithContext(dbc.Ctx).
		Where("lower(email) = ?", email).
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

func (r *userRepo) EmailExists(dbc dbctx.Context, email string) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var count int64
	err := t.WithContext(dbc.Ctx).
		Model(&user.User{}).
		Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepo) UpdateName(dbc dbctx.Context, id uuid.UUID, firstName, lastName string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&user.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"first_name": firstName,
			"last_name":  lastName,
		}).Error
}

func (r *userRepo) UpdatePasswordHash(dbc dbctx.Context, id uuid.UUID, passwordHash string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&user.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash).Error
}

func (r *userRepo) UpdateAvatarFields(dbc dbctx.Context, id uuid.UUID, bucketKey, avatarURL string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&user.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"avatar_bucket_key": bucketKey,
			"avatar_url":        avatarURL,
		}).Error
}

func (r *userRepo) UpdateLastLogin(dbc dbctx.Context, id uuid.UUID, at time.Time) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&user.User{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

func (r *userRepo) SetActive(dbc dbctx.Context, id uuid.UUID, active bool) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&user.User{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}
