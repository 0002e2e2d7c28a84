package org

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/user"
)

type MemberStatus string

const (
	MemberStatusActive  MemberStatus = "active"
	MemberStatusInvited MemberStatus = "invited"
	MemberStatusRemoved MemberStatus = "removed"
)

func (s MemberStatus) Valid() bool {
	switch s {
	case MemberStatusActive, MemberStatusInvited, MemberStatusRemoved:
		return true
	default:
		return false
	}
}

type Member struct {
	ID           uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID        uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_org_member_org_user,priority:1" json:"org_id"`
	Organization *Organization `gorm:"constraint:OnDelete:CASCADE;foreignKey:OrgID;references:ID" json:"organization,omitempty"`
	UserID       uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_org_member_org_user,priority:2" json:"user_id"`
	User         *user.User    `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	RoleID       uuid.UUID     `gorm:"type:uuid;not null;index" json:"role_id"`
	Status       MemberStatus  `gorm:"not null;default:'active';column:status" json:"status"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Member) TableName() string { return "org_member" }
