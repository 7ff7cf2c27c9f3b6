package models

import (
	"time"

	"gorm.io/gorm"
)

// Checklist is the onboarding checklist of one organization. The unique
// index on OrganizationID makes the one-checklist-per-org rule a schema
// constraint rather than an application-level convention.
type Checklist struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	OrganizationID uint           `gorm:"uniqueIndex;not null" json:"organization_id"`

	// Relationships
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Categories   []Category   `gorm:"foreignKey:ChecklistID" json:"categories,omitempty"`
}

// Category groups tasks within a checklist. Order defines display sequence.
type Category struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	ChecklistID uint           `gorm:"not null;index" json:"checklist_id"`
	Name        string         `gorm:"not null" json:"name"`
	Order       int            `gorm:"column:sort_order;not null;default:0" json:"order"`

	// Relationships
	Checklist Checklist `gorm:"foreignKey:ChecklistID" json:"checklist,omitempty"`
	Tasks     []Task    `gorm:"foreignKey:CategoryID" json:"tasks,omitempty"`
}

// Task is a single onboarding item. Buddy tasks are completed by the
// employee's mentor and are excluded from the ordinary progress denominator.
type Task struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	CategoryID  uint           `gorm:"not null;index" json:"category_id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Order       int            `gorm:"column:sort_order;not null;default:0" json:"order"`
	IsBuddyTask bool           `gorm:"default:false" json:"is_buddy_task"`
	Link        string         `json:"link,omitempty"`

	// Relationships
	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
