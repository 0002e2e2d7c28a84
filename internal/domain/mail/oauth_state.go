package mail

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OAuthState secures the connect round-trip: the consent URL carries the state
// value and the callback must present it back unconsumed and unexpired.
type OAuthState struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	State       string         `gorm:"uniqueIndex;not null;column:state" json:"-"`
	OrgID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"org_id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null" json:"user_id"`
	Provider    Provider       `gorm:"not null;column:provider" json:"provider"`
	RedirectURI string         `gorm:"column:redirect_uri" json:"redirect_uri,omitempty"`
	ExpiresAt   time.Time      `gorm:"not null;column:expires_at" json:"expires_at"`
	ConsumedAt  *time.Time     `gorm:"column:consumed_at" json:"consumed_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (OAuthState) TableName() string { return "oauth_state" }

func (s *OAuthState) Usable(now time.Time) bool {
	return s != nil && s.ConsumedAt == nil && now.Before(s.ExpiresAt)
}
