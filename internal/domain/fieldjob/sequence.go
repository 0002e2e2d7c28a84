package fieldjob

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SequenceKind string

const (
	SequenceTicket       SequenceKind = "ticket"
	SequenceDispatch     SequenceKind = "dispatch"
	SequenceInstallation SequenceKind = "installation"
)

func (k SequenceKind) Valid() bool {
	switch k {
	case SequenceTicket, SequenceDispatch, SequenceInstallation:
		return true
	default:
		return false
	}
}

// DefaultPrefix maps a sequence kind to its document prefix.
func (k SequenceKind) DefaultPrefix() string {
	switch k {
	case SequenceTicket:
		return "TKT"
	case SequenceDispatch:
		return "DSP"
	case SequenceInstallation:
		return "INS"
	default:
		return "DOC"
	}
}

// Sequence hands out gapless per-org document numbers. NextNumber is advanced
// under a row lock.
type Sequence struct {
	ID         uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrgID      uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_job_sequence_org_kind,priority:1" json:"org_id"`
	Kind       SequenceKind `gorm:"not null;column:kind;uniqueIndex:idx_job_sequence_org_kind,priority:2" json:"kind"`
	Prefix     string       `gorm:"not null;column:prefix" json:"prefix"`
	NextNumber int64        `gorm:"not null;default:1;column:next_number" json:"next_number"`
	Padding    int          `gorm:"not null;default:5;column:padding" json:"padding"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Sequence) TableName() string { return "job_sequence" }

// Format renders a sequence value, e.g. prefix DSP, padding 5, n 7 -> DSP-00007.
func (s *Sequence) Format(n int64) string {
	padding := s.Padding
	if padding <= 0 {
		padding = 5
	}
	return fmt.Sprintf("%s-%0*d", s.Prefix, padding, n)
}
