package sla

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/ticket"
)

type TrackingStatus string

const (
	TrackingPending  TrackingStatus = "pending"
	TrackingMet      TrackingStatus = "met"
	TrackingBreached TrackingStatus = "breached"
)

func (s TrackingStatus) Valid() bool {
	switch s {
	case TrackingPending, TrackingMet, TrackingBreached:
		return true
	default:
		return false
	}
}

type Tracking struct {
	ID       uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"org_id"`
	TicketID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"ticket_id"`
	Ticket   *ticket.Ticket `gorm:"constraint:OnDelete:CASCADE;foreignKey:TicketID;references:ID" json:"-"`
	PolicyID uuid.UUID      `gorm:"type:uuid;not null;index" json:"policy_id"`
	Policy   *Policy        `gorm:"foreignKey:PolicyID;references:ID" json:"policy,omitempty"`

	ResponseDeadline   time.Time `gorm:"not null;column:response_deadline;index" json:"response_deadline"`
	ResolutionDeadline time.Time `gorm:"not null;column:resolution_deadline;index" json:"resolution_deadline"`

	ResponseStatus   TrackingStatus `gorm:"not null;default:'pending';column:response_status;index" json:"response_status"`
	ResolutionStatus TrackingStatus `gorm:"not null;default:'pending';column:resolution_status;index" json:"resolution_status"`

	// Signed hours relative to the deadline: positive means late, negative
	// means the event landed with hours to spare.
	ResponseBreachHours   *float64 `gorm:"column:response_breach_hours" json:"response_breach_hours,omitempty"`
	ResolutionBreachHours *float64 `gorm:"column:resolution_breach_hours" json:"resolution_breach_hours,omitempty"`

	Escalated     bool       `gorm:"not null;default:false;column:escalated;index" json:"escalated"`
	EscalatedAt   *time.Time `gorm:"column:escalated_at" json:"escalated_at,omitempty"`
	LastCheckedAt *time.Time `gorm:"column:last_checked_at" json:"last_checked_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Tracking) TableName() string { return "sla_tracking" }

// BreachHours is the signed distance from deadline to arrival in hours.
func BreachHours(deadline, arrived time.Time) float64 {
	return arrived.Sub(deadline).Hours()
}

// SettleResponse records the first-response arrival against the response
// deadline. Safe to call once; later calls are ignored.
func (tr *Tracking) SettleResponse(at time.Time) {
	if tr.ResponseBreachHours != nil {
		return
	}
	hours := BreachHours(tr.ResponseDeadline, at)
	tr.ResponseBreachHours = &hours
	if hours > 0 {
		tr.ResponseStatus = TrackingBreached
	} else {
		tr.ResponseStatus = TrackingMet
	}
}

// SettleResolution records the resolution arrival against the resolution
// deadline.
func (tr *Tracking) SettleResolution(at time.Time) {
	if tr.ResolutionBreachHours != nil {
		return
	}
	hours := BreachHours(tr.ResolutionDeadline, at)
	tr.ResolutionBreachHours = &hours
	if hours > 0 {
		tr.ResolutionStatus = TrackingBreached
	} else {
		tr.ResolutionStatus = TrackingMet
	}
}

// ReopenResolution re-arms resolution tracking after a ticket reopen. The
// original deadline stays; a slow re-resolution counts against the same
// window.
func (tr *Tracking) ReopenResolution() {
	tr.ResolutionStatus = TrackingPending
	tr.ResolutionBreachHours = nil
}

// EscalationDue reports whether the elapsed share of the response window has
// crossed the policy's escalation threshold with no response recorded.
func EscalationDue(ticketCreatedAt, responseDeadline time.Time, thresholdPercent int, now time.Time) bool {
	window := responseDeadline.Sub(ticketCreatedAt)
	if window <= 0 {
		return false
	}
	if thresholdPercent <= 0 {
		thresholdPercent = 80
	}
	elapsed := now.Sub(ticketCreatedAt)
	threshold := time.Duration(float64(window) * float64(thresholdPercent) / 100.0)
	return elapsed > threshold
}
