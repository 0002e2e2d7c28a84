package ticket

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldtops/fieldsuite-backend/internal/domain/user"
)

// Comment rows double as the response trail: the first non-internal comment by
// someone other than the ticket creator settles first-response tracking.
type Comment struct {
	ID       uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TicketID uuid.UUID  `gorm:"type:uuid;not null;index" json:"ticket_id"`
	Ticket   *Ticket    `gorm:"constraint:OnDelete:CASCADE;foreignKey:TicketID;references:ID" json:"-"`
	AuthorID uuid.UUID  `gorm:"type:uuid;not null;column:author_id" json:"author_id"`
	Author   *user.User `gorm:"foreignKey:AuthorID;references:ID" json:"author,omitempty"`
	Body     string     `gorm:"not null;column:body" json:"body"`
	Internal bool       `gorm:"not null;default:false;column:internal" json:"internal"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Comment) TableName() string { return "ticket_comment" }
