package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/user"
)

// UserToken is one refresh-token grant. Only the sha256 of the opaque token is
// stored; revocation is a stamp rather than a row delete so logout leaves an
// audit trail.
type UserToken struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;index;not null" json:"user_id"`
	User             *user.User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	RefreshTokenHash string         `gorm:"uniqueIndex;not null;column:refresh_token_hash" json:"-"`
	UserAgent        string         `gorm:"column:user_agent" json:"user_agent,omitempty"`
	ExpiresAt        time.Time      `gorm:"not null;column:expires_at" json:"expires_at"`
	RevokedAt        *time.Time     `gorm:"column:revoked_at" json:"revoked_at,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (UserToken) TableName() string { return "user_token" }

func (t *UserToken) Usable(now time.Time) bool {
	return t != nil && t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
