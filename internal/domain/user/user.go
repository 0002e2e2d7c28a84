package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email           string     `gorm:"uniqueIndex;not null;column:email" json:"email"`
	PasswordHash    string     `gorm:"not null;column:password_hash" json:"-"`
	FirstName       string     `gorm:"not null;column:first_name" json:"first_name"`
	LastName        string     `gorm:"not null;column:last_name" json:"last_name"`
	AvatarBucketKey string     `gorm:"column:avatar_bucket_key" json:"-"`
	AvatarURL       string     `gorm:"column:avatar_url" json:"avatar_url"`
	IsActive        bool       `gorm:"not null;default:true;column:is_active" json:"is_active"`
	LastLoginAt     *time.Time `gorm:"column:last_login_at" json:"last_login_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "app_user" }

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Initials returns up to two uppercase letters for avatar rendering.
func (u *User) Initials() string {
	first := strings.TrimSpace(u.FirstName)
	last := strings.TrimSpace(u.LastName)
	out := ""
	if first != "" {
		out += strings.ToUpper(first[:1])
	}
	if last != "" {
		out += strings.ToUpper(last[:1])
	}
	if out == "" {
		email := strings.TrimSpace(u.Email)
		if email != "" {
			out = strings.ToUpper(email[:1])
		}
	}
	return out
}
