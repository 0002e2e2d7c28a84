package mail

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/org"
	"github.com/veldtops/fieldsuite-backend/internal/domain/user"
)

type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderMicrosoft Provider = "microsoft"
)

func (p Provider) Valid() bool {
	return p == ProviderGoogle || p == ProviderMicrosoft
}

type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "active"
	AccountStatusError   AccountStatus = "error"
	AccountStatusRevoked AccountStatus = "revoked"
)

// Account is a connected mailbox. Token columns hold sealed ciphertext, never
// raw OAuth material.
type Account struct {
	ID           uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID        uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_mail_account_org_provider_email,priority:1" json:"org_id"`
	Organization *org.Organization `gorm:"constraint:OnDelete:CASCADE;foreignKey:OrgID;references:ID" json:"-"`
	UserID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	User         *user.User        `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Provider     Provider          `gorm:"not null;column:provider;uniqueIndex:idx_mail_account_org_provider_email,priority:2" json:"provider"`
	EmailAddress string            `gorm:"not null;column:email_address;uniqueIndex:idx_mail_account_org_provider_email,priority:3" json:"email_address"`

	AccessTokenSealed  string         `gorm:"not null;column:access_token_sealed" json:"-"`
	RefreshTokenSealed string         `gorm:"column:refresh_token_sealed" json:"-"`
	TokenExpiresAt     time.Time      `gorm:"not null;column:token_expires_at" json:"token_expires_at"`
	Scopes             datatypes.JSON `gorm:"column:scopes;type:jsonb" json:"scopes,omitempty"`

	Status      AccountStatus `gorm:"not null;default:'active';column:status;index" json:"status"`
	LastUsedAt  *time.Time    `gorm:"column:last_used_at" json:"last_used_at,omitempty"`
	LastError   string        `gorm:"column:last_error" json:"last_error,omitempty"`
	ConnectedBy uuid.UUID     `gorm:"type:uuid;not null;column:connected_by" json:"connected_by"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Account) TableName() string { return "mail_account" }

// ExpiresWithin reports whether the access token needs a refresh before a send
// can trust it.
func (a *Account) ExpiresWithin(window time.Duration, now time.Time) bool {
	return !a.TokenExpiresAt.After(now.Add(window))
}
