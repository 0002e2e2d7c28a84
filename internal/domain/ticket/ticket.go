package ticket

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/org"
	"github.com/veldtops/fieldsuite-backend/internal/domain/user"
)

type Type string

const (
	TypeService      Type = "service"
	TypeDispatch     Type = "dispatch"
	TypeInstallation Type = "installation"
	TypeMaintenance  Type = "maintenance"
)

func (t Type) Valid() bool {
	switch t {
	case TypeService, TypeDispatch, TypeInstallation, TypeMaintenance:
		return true
	default:
		return false
	}
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

type Tier string

const (
	TierStandard   Tier = "standard"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

func (t Tier) Valid() bool {
	switch t {
	case TierStandard, TierPremium, TierEnterprise:
		return true
	default:
		return false
	}
}

type Ticket struct {
	ID           uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID        uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_ticket_org_number,priority:1" json:"org_id"`
	Organization *org.Organization `gorm:"constraint:OnDelete:CASCADE;foreignKey:OrgID;references:ID" json:"-"`
	Number       string            `gorm:"not null;column:number;uniqueIndex:idx_ticket_org_number,priority:2" json:"number"`
	Subject      string            `gorm:"not null;column:subject" json:"subject"`
	Description  string            `gorm:"column:description" json:"description,omitempty"`
	TicketType   Type              `gorm:"not null;default:'service';column:ticket_type;index" json:"ticket_type"`
	Priority     Priority          `gorm:"not null;default:'medium';column:priority;index" json:"priority"`
	CustomerTier Tier              `gorm:"not null;default:'standard';column:customer_tier" json:"customer_tier"`

	CustomerName  string `gorm:"not null;column:customer_name" json:"customer_name"`
	CustomerEmail string `gorm:"column:customer_email" json:"customer_email,omitempty"`
	CustomerPhone string `gorm:"column:customer_phone" json:"customer_phone,omitempty"`
	SiteAddress   string `gorm:"column:site_address" json:"site_address,omitempty"`

	Status     Status     `gorm:"not null;default:'open';column:status;index" json:"status"`
	AssigneeID *uuid.UUID `gorm:"type:uuid;column:assignee_id;index" json:"assignee_id,omitempty"`
	Assignee   *user.User `gorm:"foreignKey:AssigneeID;references:ID" json:"assignee,omitempty"`
	CreatedBy  uuid.UUID  `gorm:"type:uuid;not null;column:created_by" json:"created_by"`

	FirstResponseAt    *time.Time `gorm:"column:first_response_at" json:"first_response_at,omitempty"`
	ResolvedAt         *time.Time `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
	ClosedAt           *time.Time `gorm:"column:closed_at" json:"closed_at,omitempty"`
	ClosureRequestedBy *uuid.UUID `gorm:"type:uuid;column:closure_requested_by" json:"closure_requested_by,omitempty"`
	ClosureRequestedAt *time.Time `gorm:"column:closure_requested_at" json:"closure_requested_at,omitempty"`
	ClosureNote        string     `gorm:"column:closure_note" json:"closure_note,omitempty"`
	ReopenCount        int        `gorm:"not null;default:0;column:reopen_count" json:"reopen_count"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Ticket) TableName() string { return "ticket" }
