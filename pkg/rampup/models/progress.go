package models

import (
	"time"

	"gorm.io/gorm"
)

// SubjectType discriminates whose progress a TaskProgress row tracks: a real
// user account or a buddy preparation for someone not yet hired.
type SubjectType string

const (
	SubjectUser        SubjectType = "user"
	SubjectPreparation SubjectType = "preparation"
)

// Valid reports whether s is a known subject type
func (s SubjectType) Valid() bool {
	return s == SubjectUser || s == SubjectPreparation
}

// TaskProgress records per-subject task completion. Rows are keyed uniquely
// by (subject_type, subject_id, task_id); upsert is the only write path.
type TaskProgress struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	SubjectType SubjectType    `gorm:"type:varchar(20);not null;uniqueIndex:idx_subject_task" json:"subject_type"`
	SubjectID   uint           `gorm:"not null;uniqueIndex:idx_subject_task" json:"subject_id"`
	TaskID      uint           `gorm:"not null;uniqueIndex:idx_subject_task;index" json:"task_id"`
	Completed   bool           `gorm:"default:false" json:"completed"`

	// Relationships
	Task Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}
