package checklist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rampup-dev/rampup/pkg/rampup/auth"
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

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db)
	api := r.Group("/api")
	authenticated := api.Group("", auth.AuthMiddleware())
	handler.RegisterRoutes(authenticated)
	adminGroup := api.Group("", auth.AuthMiddleware(), auth.RequireRole(models.RoleAdmin))
	handler.RegisterAdminRoutes(adminGroup)
	return r
}

func createTestOrg(t *testing.T, db *gorm.DB, slug string) *models.Organization {
	org := &models.Organization{Name: slug, Slug: slug, BuddyEnabled: true}
	if err := db.Create(org).Error; err != nil {
		t.Fatalf("Failed to create organization: %v", err)
	}
	if err := db.Create(&models.Checklist{OrganizationID: org.ID}).Error; err != nil {
		t.Fatalf("Failed to create checklist: %v", err)
	}
	return org
}

func createTestUser(t *testing.T, db *gorm.DB, email string, role models.Role, orgID uint) *models.User {
	hash, _ := auth.HashPassword("password123")
	user := &models.User{
		Email:          email,
		PasswordHash:   hash,
		Name:           email,
		Role:           role,
		OrganizationID: &orgID,
		Active:         true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

func authHeader(t *testing.T, user *models.User) string {
	orgID := uint(0)
	if user.OrganizationID != nil {
		orgID = *user.OrganizationID
	}
	token, err := auth.GenerateToken(user.ID, user.Email, string(user.Role), orgID)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return "Bearer " + token
}

func createTestCategory(t *testing.T, db *gorm.DB, orgID uint, name string, order int) *models.Category {
	checklist, err := models.ChecklistForOrganization(db, orgID)
	if err != nil {
		t.Fatalf("Failed to look up checklist: %v", err)
	}
	category := &models.Category{ChecklistID: checklist.ID, Name: name, Order: order}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}
	return category
}

func doJSON(t *testing.T, router *gin.Engine, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		buf = bytes.NewBuffer(jsonBody)
	} else {
		buf = bytes.NewBuffer(nil)
	}
	req, _ := http.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestGetChecklistMergesCompletion(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "acme")
	employee := createTestUser(t, db, "emp@acme.test", models.RoleEmployee, org.ID)
	category := createTestCategory(t, db, org.ID, "First Week", 0)

	task1 := models.Task{CategoryID: category.ID, Title: "Task 1", Order: 0}
	task2 := models.Task{CategoryID: category.ID, Title: "Task 2", Order: 1}
	db.Create(&task1)
	db.Create(&task2)
	db.Create(&models.TaskProgress{
		SubjectType: models.SubjectUser,
		SubjectID:   employee.ID,
		TaskID:      task1.ID,
		Completed:   true,
	})

	resp := doJSON(t, router, "GET", "/api/checklist", authHeader(t, employee), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response ChecklistResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if len(response.Categories) != 1 {
		t.Fatalf("Expected 1 category, got %d", len(response.Categories))
	}
	tasks := response.Categories[0].Tasks
	if len(tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(tasks))
	}
	if !tasks[0].Completed {
		t.Error("Expected first task to be completed")
	}
	if tasks[1].Completed {
		t.Error("Expected second task to be incomplete")
	}
	if response.Progress.Completed != 1 || response.Progress.Total != 2 {
		t.Errorf("Expected progress 1/2, got %d/%d", response.Progress.Completed, response.Progress.Total)
	}
}

func TestToggleProgress(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "acme")
	employee := createTestUser(t, db, "emp@acme.test", models.RoleEmployee, org.ID)
	category := createTestCategory(t, db, org.ID, "First Week", 0)
	task := models.Task{CategoryID: category.ID, Title: "Task", Order: 0}
	db.Create(&task)

	completed := true
	resp := doJSON(t, router, "POST", fmt.Sprintf("/api/tasks/%d/progress", task.ID),
		authHeader(t, employee), ToggleProgressRequest{Completed: &completed})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var row models.TaskProgress
	if err := db.Where("subject_type = ? AND subject_id = ? AND task_id = ?",
		models.SubjectUser, employee.ID, task.ID).First(&row).Error; err != nil {
		t.Fatalf("Expected progress row: %v", err)
	}
	if !row.Completed {
		t.Error("Expected progress row to be completed")
	}

	// Toggling back off updates the same row rather than creating another
	completed = false
	resp = doJSON(t, router, "POST", fmt.Sprintf("/api/tasks/%d/progress", task.ID),
		authHeader(t, employee), ToggleProgressRequest{Completed: &completed})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	db.Model(&models.TaskProgress{}).Where("subject_type = ? AND subject_id = ? AND task_id = ?",
		models.SubjectUser, employee.ID, task.ID).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 progress row, got %d", count)
	}
	db.Where("subject_type = ? AND subject_id = ? AND task_id = ?",
		models.SubjectUser, employee.ID, task.ID).First(&row)
	if row.Completed {
		t.Error("Expected progress row to be incomplete after toggle off")
	}
}

func TestToggleProgressCrossTenant(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	orgA := createTestOrg(t, db, "org-a")
	orgB := createTestOrg(t, db, "org-b")
	outsider := createTestUser(t, db, "emp@org-a.test", models.RoleEmployee, orgA.ID)
	category := createTestCategory(t, db, orgB.ID, "First Week", 0)
	task := models.Task{CategoryID: category.ID, Title: "Task", Order: 0}
	db.Create(&task)

	completed := true
	resp := doJSON(t, router, "POST", fmt.Sprintf("/api/tasks/%d/progress", task.ID),
		authHeader(t, outsider), ToggleProgressRequest{Completed: &completed})
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for cross-tenant task, got %d", resp.Code)
	}

	var count int64
	db.Model(&models.TaskProgress{}).Where("task_id = ?", task.ID).Count(&count)
	if count != 0 {
		t.Errorf("Expected no progress rows, got %d", count)
	}
}

func TestCreateTaskSeedsEmployeeProgress(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "acme")
	admin := createTestUser(t, db, "admin@acme.test", models.RoleAdmin, org.ID)
	emp1 := createTestUser(t, db, "emp1@acme.test", models.RoleEmployee, org.ID)
	emp2 := createTestUser(t, db, "emp2@acme.test", models.RoleEmployee, org.ID)

	// A different organization's employee must never be seeded
	other := createTestOrg(t, db, "other")
	createTestUser(t, db, "emp@other.test", models.RoleEmployee, other.ID)

	category := createTestCategory(t, db, org.ID, "First Week", 0)

	resp := doJSON(t, router, "POST", "/api/tasks", authHeader(t, admin), CreateTaskRequest{
		CategoryID: category.ID,
		Title:      "Read the handbook",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created TaskResponse
	json.Unmarshal(resp.Body.Bytes(), &created)

	var rows []models.TaskProgress
	db.Where("task_id = ?", created.ID).Find(&rows)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 seeded progress rows, got %d", len(rows))
	}
	seeded := map[uint]bool{}
	for _, row := range rows {
		if row.SubjectType != models.SubjectUser {
			t.Errorf("Expected subject type user, got %s", row.SubjectType)
		}
		if row.Completed {
			t.Error("Seeded rows must start incomplete")
		}
		seeded[row.SubjectID] = true
	}
	if !seeded[emp1.ID] || !seeded[emp2.ID] {
		t.Error("Expected both employees to be seeded")
	}
	if seeded[admin.ID] {
		t.Error("Admins must not be seeded")
	}
}

func TestCreateBuddyTaskSeedsNothing(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "acme")
	admin := createTestUser(t, db, "admin@acme.test", models.RoleAdmin, org.ID)
	createTestUser(t, db, "emp@acme.test", models.RoleEmployee, org.ID)
	category := createTestCategory(t, db, org.ID, "First Week", 0)

	resp := doJSON(t, router, "POST", "/api/tasks", authHeader(t, admin), CreateTaskRequest{
		CategoryID:  category.ID,
		Title:       "Take your new hire to lunch",
		IsBuddyTask: true,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created TaskResponse
	json.Unmarshal(resp.Body.Bytes(), &created)

	var count int64
	db.Model(&models.TaskProgress{}).Where("task_id = ?", created.ID).Count(&count)
	if count != 0 {
		t.Errorf("Expected no seeded rows for a buddy task, got %d", count)
	}
}

func TestCreateTaskRequiresAdmin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "acme")
	employee := createTestUser(t, db, "emp@acme.test", models.RoleEmployee, org.ID)
	category := createTestCategory(t, db, org.ID, "First Week", 0)

	resp := doJSON(t, router, "POST", "/api/tasks", authHeader(t, employee), CreateTaskRequest{
		CategoryID: category.ID,
		Title:      "Should fail",
	})
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}
}

func TestCreateCategoryAppendsToEnd(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "acme")
	admin := createTestUser(t, db, "admin@acme.test", models.RoleAdmin, org.ID)
	createTestCategory(t, db, org.ID, "Existing", 4)

	resp := doJSON(t, router, "POST", "/api/categories", authHeader(t, admin), CreateCategoryRequest{
		Name: "New Category",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created CategoryResponse
	json.Unmarshal(resp.Body.Bytes(), &created)
	if created.Order != 5 {
		t.Errorf("Expected order 5, got %d", created.Order)
	}
}

func TestReorderCategoriesAllOrNothing(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	orgA := createTestOrg(t, db, "org-a")
	orgB := createTestOrg(t, db, "org-b")
	admin := createTestUser(t, db, "admin@org-a.test", models.RoleAdmin, orgA.ID)

	own1 := createTestCategory(t, db, orgA.ID, "Own 1", 0)
	own2 := createTestCategory(t, db, orgA.ID, "Own 2", 1)
	foreign := createTestCategory(t, db, orgB.ID, "Foreign", 0)

	resp := doJSON(t, router, "PATCH", "/api/categories/reorder", authHeader(t, admin), ReorderRequest{
		Items: []ReorderItem{
			{ID: own1.ID, Order: 1},
			{ID: foreign.ID, Order: 0},
			{ID: own2.ID, Order: 2},
		},
	})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404 for batch containing a foreign id, got %d", resp.Code)
	}

	// Nothing may have been written, including the items validated before
	// the foreign one
	var check models.Category
	db.First(&check, own1.ID)
	if check.Order != 0 {
		t.Errorf("Expected own category order unchanged at 0, got %d", check.Order)
	}

	// A clean batch succeeds
	resp = doJSON(t, router, "PATCH", "/api/categories/reorder", authHeader(t, admin), ReorderRequest{
		Items: []ReorderItem{
			{ID: own1.ID, Order: 1},
			{ID: own2.ID, Order: 0},
		},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	db.First(&check, own1.ID)
	if check.Order != 1 {
		t.Errorf("Expected order 1 after reorder, got %d", check.Order)
	}
}

func TestReorderTasks(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "acme")
	admin := createTestUser(t, db, "admin@acme.test", models.RoleAdmin, org.ID)
	category := createTestCategory(t, db, org.ID, "First Week", 0)

	task1 := models.Task{CategoryID: category.ID, Title: "Task 1", Order: 0}
	task2 := models.Task{CategoryID: category.ID, Title: "Task 2", Order: 1}
	db.Create(&task1)
	db.Create(&task2)

	resp := doJSON(t, router, "PATCH", "/api/tasks/reorder", authHeader(t, admin), ReorderRequest{
		Items: []ReorderItem{
			{ID: task1.ID, Order: 1},
			{ID: task2.ID, Order: 0},
		},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var check models.Task
	db.First(&check, task1.ID)
	if check.Order != 1 {
		t.Errorf("Expected task order 1, got %d", check.Order)
	}
}

func TestDeleteCategoryCascades(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "acme")
	admin := createTestUser(t, db, "admin@acme.test", models.RoleAdmin, org.ID)
	employee := createTestUser(t, db, "emp@acme.test", models.RoleEmployee, org.ID)
	category := createTestCategory(t, db, org.ID, "First Week", 0)

	task := models.Task{CategoryID: category.ID, Title: "Task", Order: 0}
	db.Create(&task)
	db.Create(&models.TaskProgress{
		SubjectType: models.SubjectUser,
		SubjectID:   employee.ID,
		TaskID:      task.ID,
		Completed:   true,
	})

	resp := doJSON(t, router, "DELETE", fmt.Sprintf("/api/categories/%d", category.ID),
		authHeader(t, admin), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var taskCount, progressCount int64
	db.Model(&models.Task{}).Where("category_id = ?", category.ID).Count(&taskCount)
	db.Model(&models.TaskProgress{}).Where("task_id = ?", task.ID).Count(&progressCount)
	if taskCount != 0 {
		t.Errorf("Expected tasks to be deleted, found %d", taskCount)
	}
	if progressCount != 0 {
		t.Errorf("Expected progress rows to be deleted, found %d", progressCount)
	}
}

func TestResetFromTemplate(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "acme")
	admin := createTestUser(t, db, "admin@acme.test", models.RoleAdmin, org.ID)
	employee := createTestUser(t, db, "emp@acme.test", models.RoleEmployee, org.ID)

	// Existing content that the reset must destroy
	category := createTestCategory(t, db, org.ID, "Stale", 0)
	staleTask := models.Task{CategoryID: category.ID, Title: "Stale task", Order: 0}
	db.Create(&staleTask)
	db.Create(&models.TaskProgress{
		SubjectType: models.SubjectUser,
		SubjectID:   employee.ID,
		TaskID:      staleTask.ID,
		Completed:   true,
	})

	resp := doJSON(t, router, "POST", "/api/templates/default/reset", authHeader(t, admin), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var staleCheck models.Task
	if err := db.First(&staleCheck, staleTask.ID).Error; err == nil {
		t.Error("Expected stale task to be deleted")
	}

	checklist, _ := models.ChecklistForOrganization(db, org.ID)
	var categoryCount int64
	db.Model(&models.Category{}).Where("checklist_id = ?", checklist.ID).Count(&categoryCount)
	if categoryCount != int64(len(defaultTemplate)) {
		t.Errorf("Expected %d categories from template, got %d", len(defaultTemplate), categoryCount)
	}

	// Non-buddy template tasks are re-seeded for the employee
	var seeded int64
	db.Model(&models.TaskProgress{}).
		Where("subject_type = ? AND subject_id = ?", models.SubjectUser, employee.ID).
		Count(&seeded)
	wantSeeded := 0
	for _, categoryDef := range defaultTemplate {
		for _, taskDef := range categoryDef.Tasks {
			if !taskDef.IsBuddyTask {
				wantSeeded++
			}
		}
	}
	if seeded != int64(wantSeeded) {
		t.Errorf("Expected %d seeded rows, got %d", wantSeeded, seeded)
	}
}

func TestResetUnknownTemplate(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "acme")
	admin := createTestUser(t, db, "admin@acme.test", models.RoleAdmin, org.ID)

	resp := doJSON(t, router, "POST", "/api/templates/nonexistent/reset", authHeader(t, admin), nil)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown template, got %d", resp.Code)
	}
}
