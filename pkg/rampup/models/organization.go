package models

import (
	"time"

	"gorm.io/gorm"
)

// Organization represents a tenant. Every checklist, employee, and buddy
// record belongs to exactly one organization, and all access checks
// compare against it.
type Organization struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Name         string         `gorm:"not null" json:"name"`
	Slug         string         `gorm:"uniqueIndex;not null" json:"slug"` // URL-safe identifier, unique across all orgs
	BuddyEnabled bool           `gorm:"default:true" json:"buddy_enabled"`

	// Relationships
	Users     []User     `gorm:"foreignKey:OrganizationID" json:"users,omitempty"`
	Checklist *Checklist `gorm:"foreignKey:OrganizationID" json:"checklist,omitempty"`
}
