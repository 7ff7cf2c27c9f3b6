package models

import (
	"time"

	"gorm.io/gorm"
)

// PreAssignedRole maps an email address to the role it should receive the
// first time that address authenticates via the identity provider, before a
// User row exists.
type PreAssignedRole struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Role      Role           `gorm:"type:varchar(20);not null" json:"role"`
}
