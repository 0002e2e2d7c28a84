package feedback

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Channel string

const (
	ChannelWeb   Channel = "web"
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
	ChannelField Channel = "field"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelWeb, ChannelEmail, ChannelPhone, ChannelField:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusNew      Status = "new"
	StatusReviewed Status = "reviewed"
	StatusArchived Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusReviewed, StatusArchived:
		return true
	default:
		return false
	}
}

type CustomerFeedback struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"org_id"`
	TicketID      *uuid.UUID `gorm:"type:uuid;column:ticket_id;index" json:"ticket_id,omitempty"`
	CustomerName  string     `gorm:"not null;column:customer_name" json:"customer_name"`
	CustomerEmail string     `gorm:"column:customer_email" json:"customer_email,omitempty"`
	Rating        int        `gorm:"not null;column:rating" json:"rating"`
	Comment       string     `gorm:"column:comment" json:"comment,omitempty"`
	Channel       Channel    `gorm:"not null;default:'web';column:channel" json:"channel"`
	Status        Status     `gorm:"not null;default:'new';column:status;index" json:"status"`
	ReviewedBy    *uuid.UUID `gorm:"type:uuid;column:reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CustomerFeedback) TableName() string { return "customer_feedback" }

func ValidRating(r int) bool { return r >= 1 && r <= 5 }
