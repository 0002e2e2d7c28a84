package org

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Organization struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name         string         `gorm:"not null;column:name" json:"name"`
	Slug         string         `gorm:"uniqueIndex;not null;column:slug" json:"slug"`
	GSTIN        string         `gorm:"column:gstin" json:"gstin,omitempty"`
	AddressLine1 string         `gorm:"column:address_line1" json:"address_line1,omitempty"`
	AddressLine2 string         `gorm:"column:address_line2" json:"address_line2,omitempty"`
	City         string         `gorm:"column:city" json:"city,omitempty"`
	State        string         `gorm:"column:state" json:"state,omitempty"`
	PostalCode   string         `gorm:"column:postal_code" json:"postal_code,omitempty"`
	Country      string         `gorm:"not null;default:'IN';column:country" json:"country"`
	Settings     datatypes.JSON `gorm:"column:settings;type:jsonb" json:"settings,omitempty"`
	IsActive     bool           `gorm:"not null;default:true;column:is_active" json:"is_active"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Organization) TableName() string { return "organization" }

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Slugify lowercases the name and collapses runs of non-alphanumerics into
// single hyphens.
func Slugify(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastHyphen := true
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func ValidSlug(slug string) bool {
	return len(slug) >= 2 && len(slug) <= 64 && slugPattern.MatchString(slug)
}
