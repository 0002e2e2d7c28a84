package expense

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Entry struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"org_id"`
	AccountID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"account_id"`
	Account     *Account        `gorm:"constraint:OnDelete:CASCADE;foreignKey:AccountID;references:ID" json:"account,omitempty"`
	DocumentID  *uuid.UUID      `gorm:"type:uuid;column:document_id;index" json:"document_id,omitempty"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null;column:amount" json:"amount"`
	Currency    string          `gorm:"not null;default:'INR';column:currency" json:"currency"`
	IncurredOn  time.Time       `gorm:"not null;column:incurred_on;index" json:"incurred_on"`
	VendorName  string          `gorm:"column:vendor_name" json:"vendor_name,omitempty"`
	VendorGSTIN string          `gorm:"column:vendor_gstin" json:"vendor_gstin,omitempty"`
	Reference   string          `gorm:"column:reference" json:"reference,omitempty"`
	Notes       string          `gorm:"column:notes" json:"notes,omitempty"`
	CreatedBy   uuid.UUID       `gorm:"type:uuid;not null;column:created_by" json:"created_by"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Entry) TableName() string { return "expense_entry" }
