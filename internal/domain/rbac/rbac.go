package rbac

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission rows form a global catalog seeded from the embedded YAML file;
// codes are "<resource>.<action>".
type Permission struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Code        string    `gorm:"uniqueIndex;not null;column:code" json:"code"`
	Resource    string    `gorm:"not null;column:resource;index" json:"resource"`
	Action      string    `gorm:"not null;column:action" json:"action"`
	Description string    `gorm:"column:description" json:"description,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Permission) TableName() string { return "permission" }

// System role names seeded for every organization.
const (
	RoleOwner  = "Owner"
	RoleAdmin  = "Admin"
	RoleAgent  = "Agent"
	RoleViewer = "Viewer"
)

type Role struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_role_org_name,priority:1" json:"org_id"`
	Name        string    `gorm:"not null;column:name;uniqueIndex:idx_role_org_name,priority:2" json:"name"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	IsSystem    bool      `gorm:"not null;default:false;column:is_system" json:"is_system"`

	Permissions []Permission `gorm:"many2many:role_permission;" json:"permissions,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Role) TableName() string { return "role" }

type RolePermission struct {
	RoleID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"role_id"`
	PermissionID uuid.UUID `gorm:"type:uuid;primaryKey" json:"permission_id"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (RolePermission) TableName() string { return "role_permission" }
