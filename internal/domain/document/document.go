package document

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/org"
)

type Kind string

const (
	KindInvoice Kind = "invoice"
	KindReceipt Kind = "receipt"
	KindOther   Kind = "other"
)

func (k Kind) Valid() bool {
	switch k {
	case KindInvoice, KindReceipt, KindOther:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusExtracted  Status = "extracted"
	StatusFailed     Status = "failed"
)

type Provider string

const (
	ProviderRegex      Provider = "regex"
	ProviderOpenRouter Provider = "openrouter"
	ProviderMindee     Provider = "mindee"
	ProviderDocumentAI Provider = "documentai"
)

type Document struct {
	ID           uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"org_id"`
	Organization *org.Organization `gorm:"constraint:OnDelete:CASCADE;foreignKey:OrgID;references:ID" json:"-"`
	UploadedBy   uuid.UUID         `gorm:"type:uuid;not null;column:uploaded_by" json:"uploaded_by"`

	Kind       Kind   `gorm:"not null;default:'invoice';column:kind;index" json:"kind"`
	FileName   string `gorm:"not null;column:file_name" json:"file_name"`
	MimeType   string `gorm:"not null;column:mime_type" json:"mime_type"`
	SizeBytes  int64  `gorm:"not null;column:size_bytes" json:"size_bytes"`
	StorageKey string `gorm:"not null;column:storage_key" json:"-"`

	Status   Status    `gorm:"not null;default:'uploaded';column:status;index" json:"status"`
	Provider *Provider `gorm:"column:provider" json:"provider,omitempty"`

	InvoiceNumber string     `gorm:"column:invoice_number" json:"invoice_number,omitempty"`
	InvoiceDate   *time.Time `gorm:"column:invoice_date" json:"invoice_date,omitempty"`
	VendorName    string     `gorm:"column:vendor_name" json:"vendor_name,omitempty"`
	VendorGSTIN   string     `gorm:"column:vendor_gstin" json:"vendor_gstin,omitempty"`

	TaxableAmount *decimal.Decimal `gorm:"type:numeric(14,2);column:taxable_amount" json:"taxable_amount,omitempty"`
	TaxAmount     *decimal.Decimal `gorm:"type:numeric(14,2);column:tax_amount" json:"tax_amount,omitempty"`
	TotalAmount   *decimal.Decimal `gorm:"type:numeric(14,2);column:total_amount" json:"total_amount,omitempty"`
	Currency      string           `gorm:"not null;default:'INR';column:currency" json:"currency"`

	RawText  string         `gorm:"column:raw_text" json:"-"`
	Fields   datatypes.JSON `gorm:"column:fields;type:jsonb" json:"fields,omitempty"`
	Warnings datatypes.JSON `gorm:"column:warnings;type:jsonb" json:"warnings,omitempty"`
	Error    string         `gorm:"column:error" json:"error,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Document) TableName() string { return "document" }
