package fieldjob

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/org"
	"github.com/veldtops/fieldsuite-backend/internal/domain/ticket"
	"github.com/veldtops/fieldsuite-backend/internal/domain/user"
)

type Kind string

const (
	KindDispatch     Kind = "dispatch"
	KindInstallation Kind = "installation"
)

func (k Kind) Valid() bool {
	return k == KindDispatch || k == KindInstallation
}

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusEnRoute   Status = "en_route"
	StatusOnSite    Status = "on_site"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	_, ok := jobTransitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Field work moves forward only; cancel is allowed from any non-terminal
// state.
var jobTransitions = map[Status][]Status{
	StatusScheduled: {StatusEnRoute, StatusOnSite, StatusCancelled},
	StatusEnRoute:   {StatusOnSite, StatusCancelled},
	StatusOnSite:    {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	for _, next := range jobTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type FieldJob struct {
	ID           uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID        uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_field_job_org_number,priority:1" json:"org_id"`
	Organization *org.Organization `gorm:"constraint:OnDelete:CASCADE;foreignKey:OrgID;references:ID" json:"-"`
	TicketID     *uuid.UUID        `gorm:"type:uuid;column:ticket_id;index" json:"ticket_id,omitempty"`
	Ticket       *ticket.Ticket    `gorm:"foreignKey:TicketID;references:ID" json:"-"`

	Kind   Kind   `gorm:"not null;column:kind;index" json:"kind"`
	Number string `gorm:"not null;column:number;uniqueIndex:idx_field_job_org_number,priority:2" json:"number"`
	Status Status `gorm:"not null;default:'scheduled';column:status;index" json:"status"`

	ScheduledFor *time.Time `gorm:"column:scheduled_for;index" json:"scheduled_for,omitempty"`
	AssigneeID   *uuid.UUID `gorm:"type:uuid;column:assignee_id;index" json:"assignee_id,omitempty"`
	Assignee     *user.User `gorm:"foreignKey:AssigneeID;references:ID" json:"assignee,omitempty"`
	SiteAddress  string     `gorm:"column:site_address" json:"site_address,omitempty"`
	ContactName  string     `gorm:"column:contact_name" json:"contact_name,omitempty"`
	ContactPhone string     `gorm:"column:contact_phone" json:"contact_phone,omitempty"`
	Notes        string     `gorm:"column:notes" json:"notes,omitempty"`
	CompletedAt  *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedBy    uuid.UUID  `gorm:"type:uuid;not null;column:created_by" json:"created_by"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (FieldJob) TableName() string { return "field_job" }
