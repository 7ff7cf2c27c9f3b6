package progress

import (
	"testing"

	"github.com/rampup-dev/rampup/pkg/rampup/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

// seedChecklist creates an organization with one checklist, one category and
// the given tasks, returning the checklist id and the task ids in order.
func seedChecklist(t *testing.T, db *gorm.DB, buddyFlags ...bool) (uint, []uint) {
	org := models.Organization{Name: "Test Org", Slug: "test-org"}
	if err := db.Create(&org).Error; err != nil {
		t.Fatalf("Failed to create organization: %v", err)
	}
	checklist := models.Checklist{OrganizationID: org.ID}
	if err := db.Create(&checklist).Error; err != nil {
		t.Fatalf("Failed to create checklist: %v", err)
	}
	category := models.Category{ChecklistID: checklist.ID, Name: "First Week", Order: 1}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}

	taskIDs := make([]uint, 0, len(buddyFlags))
	for i, isBuddy := range buddyFlags {
		task := models.Task{
			CategoryID:  category.ID,
			Title:       "Task",
			Order:       i + 1,
			IsBuddyTask: isBuddy,
		}
		if err := db.Create(&task).Error; err != nil {
			t.Fatalf("Failed to create task: %v", err)
		}
		taskIDs = append(taskIDs, task.ID)
	}
	return checklist.ID, taskIDs
}

func complete(t *testing.T, db *gorm.DB, subjectType models.SubjectType, subjectID, taskID uint) {
	row := models.TaskProgress{
		SubjectType: subjectType,
		SubjectID:   subjectID,
		TaskID:      taskID,
		Completed:   true,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("Failed to create progress row: %v", err)
	}
}

func TestPercent(t *testing.T) {
	cases := []struct {
		completed int
		total     int
		expected  int
	}{
		{0, 0, 0},
		{0, 10, 0},
		{10, 10, 100},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
	}

	for _, tc := range cases {
		if got := Percent(tc.completed, tc.total); got != tc.expected {
			t.Errorf("Percent(%d, %d) = %d, expected %d", tc.completed, tc.total, got, tc.expected)
		}
	}
}

func TestEmployeeExcludesBuddyTasks(t *testing.T) {
	db := setupTestDB(t)
	checklistID, taskIDs := seedChecklist(t, db, false, false, true)

	complete(t, db, models.SubjectUser, 1, taskIDs[0])
	// Completing the buddy task must not move the employee view
	complete(t, db, models.SubjectUser, 1, taskIDs[2])

	summary, err := Employee(db, 1, checklistID)
	if err != nil {
		t.Fatalf("Employee failed: %v", err)
	}

	if summary.Total != 2 {
		t.Errorf("Expected total 2, got %d", summary.Total)
	}
	if summary.Completed != 1 {
		t.Errorf("Expected completed 1, got %d", summary.Completed)
	}
	if summary.Percent != 50 {
		t.Errorf("Expected percent 50, got %d", summary.Percent)
	}
}

func TestBuddyIncludesBuddyTasks(t *testing.T) {
	db := setupTestDB(t)
	checklistID, taskIDs := seedChecklist(t, db, false, false, true)

	complete(t, db, models.SubjectUser, 1, taskIDs[2])

	summary, err := Buddy(db, models.SubjectUser, 1, checklistID)
	if err != nil {
		t.Fatalf("Buddy failed: %v", err)
	}

	if summary.Total != 3 {
		t.Errorf("Expected total 3, got %d", summary.Total)
	}
	if summary.Completed != 1 {
		t.Errorf("Expected completed 1, got %d", summary.Completed)
	}
}

func TestProgressIsolatedBySubject(t *testing.T) {
	db := setupTestDB(t)
	checklistID, taskIDs := seedChecklist(t, db, false, false)

	complete(t, db, models.SubjectUser, 1, taskIDs[0])
	complete(t, db, models.SubjectPreparation, 1, taskIDs[0])
	complete(t, db, models.SubjectPreparation, 1, taskIDs[1])

	userSummary, err := Buddy(db, models.SubjectUser, 1, checklistID)
	if err != nil {
		t.Fatalf("Buddy failed: %v", err)
	}
	prepSummary, err := Buddy(db, models.SubjectPreparation, 1, checklistID)
	if err != nil {
		t.Fatalf("Buddy failed: %v", err)
	}

	// Same numeric id, different subject type: the rows must not bleed
	if userSummary.Completed != 1 {
		t.Errorf("Expected user completed 1, got %d", userSummary.Completed)
	}
	if prepSummary.Completed != 2 {
		t.Errorf("Expected preparation completed 2, got %d", prepSummary.Completed)
	}
}

func TestDeletedCategoryExcluded(t *testing.T) {
	db := setupTestDB(t)
	checklistID, _ := seedChecklist(t, db, false, false)

	// A second category that gets soft-deleted along with its tasks' weight
	category := models.Category{ChecklistID: checklistID, Name: "Obsolete", Order: 2}
	db.Create(&category)
	db.Create(&models.Task{CategoryID: category.ID, Title: "Old task", Order: 1})
	db.Delete(&category)

	summary, err := Employee(db, 1, checklistID)
	if err != nil {
		t.Fatalf("Employee failed: %v", err)
	}

	if summary.Total != 2 {
		t.Errorf("Expected total 2 after category deletion, got %d", summary.Total)
	}
}

func TestCompletionMap(t *testing.T) {
	db := setupTestDB(t)
	_, taskIDs := seedChecklist(t, db, false, false, false)

	complete(t, db, models.SubjectUser, 1, taskIDs[0])
	db.Create(&models.TaskProgress{
		SubjectType: models.SubjectUser,
		SubjectID:   1,
		TaskID:      taskIDs[1],
		Completed:   false,
	})

	completion, err := CompletionMap(db, models.SubjectUser, 1)
	if err != nil {
		t.Fatalf("CompletionMap failed: %v", err)
	}

	if !completion[taskIDs[0]] {
		t.Error("Expected first task to be completed")
	}
	if completion[taskIDs[1]] {
		t.Error("Expected second task to be incomplete")
	}
	if _, exists := completion[taskIDs[2]]; exists {
		t.Error("Expected no entry for task without a progress row")
	}
}
