package sla

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/ticket"
)

// Policy thresholds are hours from ticket creation. The matcher fields are
// nullable: a nil matcher accepts any value, a set matcher must equal the
// ticket's value exactly.
type Policy struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID       uuid.UUID `gorm:"type:uuid;not null;index" json:"org_id"`
	Name        string    `gorm:"not null;column:name" json:"name"`
	Description string    `gorm:"column:description" json:"description,omitempty"`

	Priority     *ticket.Priority `gorm:"column:priority" json:"priority,omitempty"`
	TicketType   *ticket.Type     `gorm:"column:ticket_type" json:"ticket_type,omitempty"`
	CustomerTier *ticket.Tier     `gorm:"column:customer_tier" json:"customer_tier,omitempty"`

	ResponseTimeHours          float64 `gorm:"not null;column:response_time_hours" json:"response_time_hours"`
	ResolutionTimeHours        float64 `gorm:"not null;column:resolution_time_hours" json:"resolution_time_hours"`
	EscalationThresholdPercent int     `gorm:"not null;default:80;column:escalation_threshold_percent" json:"escalation_threshold_percent"`

	IsDefault bool `gorm:"not null;default:false;column:is_default;index" json:"is_default"`
	IsActive  bool `gorm:"not null;default:true;column:is_active;index" json:"is_active"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Policy) TableName() string { return "sla_policy" }

func (p *Policy) ResponseDeadline(ticketCreatedAt time.Time) time.Time {
	return ticketCreatedAt.Add(hoursToDuration(p.ResponseTimeHours))
}

func (p *Policy) ResolutionDeadline(ticketCreatedAt time.Time) time.Time {
	return ticketCreatedAt.Add(hoursToDuration(p.ResolutionTimeHours))
}

func hoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
