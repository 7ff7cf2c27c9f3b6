package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account in the system. OrganizationID is nil until the
// user has been onboarded into an organization. BuddyID is the legacy
// single-mentor reference; BuddyAssignment rows supersede it but both
// remain live and are merged at read time.
type User struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	Email          string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash   string         `json:"-"` // Optional for OIDC-only users
	Name           string         `gorm:"not null" json:"name"`
	Role           Role           `gorm:"type:varchar(20);default:'employee'" json:"role"`
	OrganizationID *uint          `gorm:"index" json:"organization_id"`
	BuddyID        *uint          `gorm:"index" json:"buddy_id"`
	Active         bool           `gorm:"default:true" json:"active"`

	// Relationships
	Organization     *Organization     `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Buddy            *User             `gorm:"foreignKey:BuddyID" json:"buddy,omitempty"`
	BuddyAssignments []BuddyAssignment `gorm:"foreignKey:UserID" json:"buddy_assignments,omitempty"`
	OIDCIdentities   []OIDCIdentity    `gorm:"foreignKey:UserID" json:"oidc_identities,omitempty"`
}
