package models

import (
	"time"

	"gorm.io/gorm"
)

// BuddyAssignment links a mentee to a buddy (mentor). Many-to-many: an
// employee can have several buddies and a buddy several mentees.
type BuddyAssignment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	UserID    uint           `gorm:"not null;uniqueIndex:idx_mentee_buddy" json:"user_id"` // the mentee
	BuddyID   uint           `gorm:"not null;uniqueIndex:idx_mentee_buddy" json:"buddy_id"`

	// Relationships
	User  User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Buddy User `gorm:"foreignKey:BuddyID" json:"buddy,omitempty"`
}

// BuddyPreparation pre-registers a not-yet-hired employee with a mentor so
// buddy tasks can be worked before the hire's account exists. IsActive flips
// to false exactly once, when the preparation is linked to a real user; the
// transition is never reversed.
type BuddyPreparation struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	OrganizationID uint           `gorm:"not null;index" json:"organization_id"`
	Name           string         `gorm:"not null" json:"name"`
	Email          *string        `json:"email,omitempty"`
	BuddyID        uint           `gorm:"not null;index" json:"buddy_id"` // primary mentor
	InviteToken    string         `gorm:"uniqueIndex;not null" json:"invite_token"`
	IsActive       bool           `gorm:"default:true" json:"is_active"`
	LinkedUserID   *uint          `json:"linked_user_id,omitempty"`

	// Relationships
	Organization Organization            `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Buddy        User                    `gorm:"foreignKey:BuddyID" json:"buddy,omitempty"`
	LinkedUser   *User                   `gorm:"foreignKey:LinkedUserID" json:"linked_user,omitempty"`
	Buddies      []BuddyPreparationBuddy `gorm:"foreignKey:PreparationID" json:"buddies,omitempty"`
}

// BuddyPreparationBuddy holds additional mentors for a preparation beyond
// the primary BuddyID.
type BuddyPreparationBuddy struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	PreparationID uint           `gorm:"not null;uniqueIndex:idx_prep_buddy" json:"preparation_id"`
	BuddyID       uint           `gorm:"not null;uniqueIndex:idx_prep_buddy" json:"buddy_id"`

	// Relationships
	Preparation BuddyPreparation `gorm:"foreignKey:PreparationID" json:"preparation,omitempty"`
	Buddy       User             `gorm:"foreignKey:BuddyID" json:"buddy,omitempty"`
}
