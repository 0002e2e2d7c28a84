package mail

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/veldtops/fieldsuite-backend/internal/domain/mail"
	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

type AccountRepo interface {
	// Upsert inserts the mailbox or, when (org, provider, email) already
	// exists, refreshes its token material and status in place.
	Upsert(dbc dbctx.Context, row *mail.Account) (*mail.Account, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*mail.Account, error)
	GetByOrgProviderEmail(dbc dbctx.Context, orgID uuid.UUID, provider mail.Provider, email string) (*mail.Account, error)
	ListByOrg(dbc dbctx.Context, orgID uuid.UUID, statuses []mail.AccountStatus) ([]*mail.Account, error)
	// ListExpiring returns active refreshable mailboxes whose access token
	// expires at or before the cutoff.
	ListExpiring(dbc dbctx.Context, cutoff time.Time, limit int) ([]*mail.Account, error)
	UpdateTokens(dbc dbctx.Context, id uuid.UUID, accessSealed, refreshSealed string, expiresAt time.Time) error
	SetStatus(dbc dbctx.Context, id uuid.UUID, status mail.AccountStatus, lastError string) error
	MarkUsed(dbc dbctx.Context, id uuid.UUID, at time.Time) error
	SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type accountRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAccountRepo(db *gorm.DB, baseLog *logger.Logger) AccountRepo {
	return &accountRepo{db: db, log: baseLog.With("repo", "MailAccountRepo")}
}

func (r *accountRepo) Upsert(dbc dbctx.Context, row *mail.Account) (*mail.Account, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil, nil
	}
	err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "org_id"}, {Name: "provider"}, {Name: "email_address"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"user_id",
				"access_token_sealed",
				"refresh_token_sealed",
				"token_expires_at",
				"scopes",
				"status",
				"last_error",
				"connected_by",
				"deleted_at",
				"updated_at",
			}),
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	// The conflict path keeps the existing primary key; re-read so callers see
	// the row as stored.
	return r.GetByOrgProviderEmail(dbc, row.OrgID, row.Provider, row.EmailAddress)
}

func (r *accountRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*mail.Account, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row mail.Account
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

func (r *accountRepo) GetByOrgProviderEmail(dbc dbctx.Context, orgID uuid.UUID, provider mail.Provider, email string) (*mail.Account, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if orgID == uuid.Nil || email == "" {
		return nil, nil
	}
	var row mail.Account
	err := t.WithContext(dbc.Ctx).
		Where("org_id = ? AND provider = ? AND email_address = ?", orgID, provider, email).
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

func (r *accountRepo) ListByOrg(dbc dbctx.Context, orgID uuid.UUID, statuses []mail.AccountStatus) ([]*mail.Account, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*mail.Account
	if orgID == uuid.Nil {
		return out, nil
	}
	q := t.WithContext(dbc.Ctx).Where("org_id = ?", orgID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *accountRepo) ListExpiring(dbc dbctx.Context, cutoff time.Time, limit int) ([]*mail.Account, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*mail.Account
	q := t.WithContext(dbc.Ctx).
		Where("status = ? AND refresh_token_sealed <> '' AND token_expires_at <= ?", mail.AccountStatusActive, cutoff).
		Order("token_expires_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *accountRepo) UpdateTokens(dbc dbctx.Context, id uuid.UUID, accessSealed, refreshSealed string, expiresAt time.Time) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	updates := map[string]any{
		"access_token_sealed": accessSealed,
		"token_expires_at":    expiresAt,
		"status":              mail.AccountStatusActive,
		"last_error":          "",
	}
	// Providers often omit the refresh token on renewal; an empty value keeps
	// the stored one.
	if refreshSealed != "" {
		updates["refresh_token_sealed"] = refreshSealed
	}
	return t.WithContext(dbc.Ctx).
		Model(&mail.Account{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *accountRepo) SetStatus(dbc dbctx.Context, id uuid.UUID, status mail.AccountStatus, lastError string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&mail.Account{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"last_error": lastError,
		}).Error
}

func (r *accountRepo) MarkUsed(dbc dbctx.Context, id uuid.UUID, at time.Time) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&mail.Account{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}

func (r *accountRepo) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&mail.Account{}).Error
}
