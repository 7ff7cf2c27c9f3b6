// Package progress computes onboarding completion for a checklist subject.
// A subject is either a real user or a buddy preparation; employee views
// exclude buddy tasks from the denominator, buddy views include them.
package progress

import (
	"math"

	"github.com/rampup-dev/rampup/pkg/rampup/models"
	"gorm.io/gorm"
)

// Summary holds completion counts for one subject against one checklist
type Summary struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

// Percent converts counts to an integer percentage, rounded. A checklist
// with no tasks yields 0, never a division by zero.
func Percent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) * 100 / float64(total)))
}

// checklistTasks scopes a query to the live tasks of a checklist. Tasks
// carry no checklist id, so the join walks through categories.
func checklistTasks(db *gorm.DB, checklistID uint) *gorm.DB {
	return db.Model(&models.Task{}).
		Joins("JOIN categories ON categories.id = tasks.category_id AND categories.deleted_at IS NULL").
		Where("categories.checklist_id = ?", checklistID)
}

// ForSubject computes the completion summary for a subject. When
// includeBuddyTasks is false, buddy tasks are excluded from both counts.
func ForSubject(db *gorm.DB, subjectType models.SubjectType, subjectID, checklistID uint, includeBuddyTasks bool) (Summary, error) {
	tasks := checklistTasks(db, checklistID)
	if !includeBuddyTasks {
		tasks = tasks.Where("tasks.is_buddy_task = ?", false)
	}

	var total int64
	if err := tasks.Count(&total).Error; err != nil {
		return Summary{}, err
	}

	completedQuery := checklistTasks(db, checklistID).
		Joins("JOIN task_progresses ON task_progresses.task_id = tasks.id AND task_progresses.deleted_at IS NULL").
		Where("task_progresses.subject_type = ? AND task_progresses.subject_id = ? AND task_progresses.completed = ?",
			subjectType, subjectID, true)
	if !includeBuddyTasks {
		completedQuery = completedQuery.Where("tasks.is_buddy_task = ?", false)
	}

	var completed int64
	if err := completedQuery.Count(&completed).Error; err != nil {
		return Summary{}, err
	}

	return Summary{
		Completed: int(completed),
		Total:     int(total),
		Percent:   Percent(int(completed), int(total)),
	}, nil
}

// Employee computes the standard progress view for a user: buddy tasks are
// excluded from the denominator.
func Employee(db *gorm.DB, userID, checklistID uint) (Summary, error) {
	return ForSubject(db, models.SubjectUser, userID, checklistID, false)
}

// Buddy computes the mentor-side view for a mentee or preparation subject:
// every task counts, including buddy tasks.
func Buddy(db *gorm.DB, subjectType models.SubjectType, subjectID, checklistID uint) (Summary, error) {
	return ForSubject(db, subjectType, subjectID, checklistID, true)
}

// CompletionMap returns the subject's completion flags keyed by task id.
// Tasks without a progress row are simply absent and read as incomplete.
func CompletionMap(db *gorm.DB, subjectType models.SubjectType, subjectID uint) (map[uint]bool, error) {
	var rows []models.TaskProgress
	if err := db.Where("subject_type = ? AND subject_id = ?", subjectType, subjectID).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[uint]bool, len(rows))
	for _, row := range rows {
		result[row.TaskID] = row.Completed
	}
	return result, nil
}
