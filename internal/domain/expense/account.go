package expense

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/org"
)

type AccountType string

const (
	AccountTypeOperational AccountType = "operational"
	AccountTypeCapital     AccountType = "capital"
	AccountTypePayroll     AccountType = "payroll"
	AccountTypeTravel      AccountType = "travel"
	AccountTypeUtilities   AccountType = "utilities"
	AccountTypeOther       AccountType = "other"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeOperational, AccountTypeCapital, AccountTypePayroll,
		AccountTypeTravel, AccountTypeUtilities, AccountTypeOther:
		return true
	default:
		return false
	}
}

// MaxAccountDepth caps the parent chain; re-parenting past this is rejected.
const MaxAccountDepth = 6

type Account struct {
	ID           uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID        uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_expense_account_org_code,priority:1" json:"org_id"`
	Organization *org.Organization `gorm:"constraint:OnDelete:CASCADE;foreignKey:OrgID;references:ID" json:"-"`
	Code         string            `gorm:"not null;column:code;uniqueIndex:idx_expense_account_org_code,priority:2" json:"code"`
	Name         string            `gorm:"not null;column:name" json:"name"`
	AccountType  AccountType       `gorm:"not null;column:account_type" json:"account_type"`
	ParentID     *uuid.UUID        `gorm:"type:uuid;column:parent_id;index" json:"parent_id,omitempty"`
	Parent       *Account          `gorm:"foreignKey:ParentID;references:ID" json:"-"`
	Description  string            `gorm:"column:description" json:"description,omitempty"`
	IsActive     bool              `gorm:"not null;default:true;column:is_active" json:"is_active"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Account) TableName() string { return "expense_account" }
