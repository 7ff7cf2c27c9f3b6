package employees

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
	api := r.Group("/api", auth.AuthMiddleware(), auth.RequireRole(models.RoleAdmin))
	handler.RegisterRoutes(api)
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

func TestListEmployees(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "acme")
	admin := createTestUser(t, db, "admin@acme.test", models.RoleAdmin, org.ID)
	employee := createTestUser(t, db, "emp@acme.test", models.RoleEmployee, org.ID)

	// Someone else's employee must not appear
	other := createTestOrg(t, db, "other")
	createTestUser(t, db, "emp@other.test", models.RoleEmployee, other.ID)

	checklist, _ := models.ChecklistForOrganization(db, org.ID)
	category := models.Category{ChecklistID: checklist.ID, Name: "Category"}
	db.Create(&category)
	task1 := models.Task{CategoryID: category.ID, Title: "Task 1"}
	task2 := models.Task{CategoryID: category.ID, Title: "Task 2"}
	db.Create(&task1)
	db.Create(&task2)
	db.Create(&models.TaskProgress{
		SubjectType: models.SubjectUser,
		SubjectID:   employee.ID,
		TaskID:      task1.ID,
		Completed:   true,
	})

	resp := doJSON(t, router, "GET", "/api/employees", authHeader(t, admin), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var employees []EmployeeResponse
	json.Unmarshal(resp.Body.Bytes(), &employees)
	if len(employees) != 2 {
		t.Fatalf("Expected 2 employees, got %d", len(employees))
	}

	var found *EmployeeResponse
	for i := range employees {
		if employees[i].ID == employee.ID {
			found = &employees[i]
		}
	}
	if found == nil {
		t.Fatal("Expected employee in listing")
	}
	if found.Progress.Completed != 1 || found.Progress.Total != 2 {
		t.Errorf("Expected progress 1/2, got %d/%d", found.Progress.Completed, found.Progress.Total)
	}
	if found.Progress.Percent != 50 {
		t.Errorf("Expected 50 percent, got %d", found.Progress.Percent)
	}
}

func TestAssignBuddy(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "acme")
	admin := createTestUser(t, db, "admin@acme.test", models.RoleAdmin, org.ID)
	employee := createTestUser(t, db, "emp@acme.test", models.RoleEmployee, org.ID)
	buddy := createTestUser(t, db, "buddy@acme.test", models.RoleEmployee, org.ID)

	resp := doJSON(t, router, "POST", fmt.Sprintf("/api/employees/%d/assign-buddy", employee.ID),
		authHeader(t, admin), AssignBuddyRequest{BuddyID: buddy.ID})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var check models.User
	db.First(&check, employee.ID)
	if check.BuddyID == nil || *check.BuddyID != buddy.ID {
		t.Error("Expected buddy to be set")
	}
}

func TestAssignBuddySelf(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "acme")
	admin := createTestUser(t, db, "admin@acme.test", models.RoleAdmin, org.ID)
	employee := createTestUser(t, db, "emp@acme.test", models.RoleEmployee, org.ID)

	resp := doJSON(t, router, "POST", fmt.Sprintf("/api/employees/%d/assign-buddy", employee.ID),
		authHeader(t, admin), AssignBuddyRequest{BuddyID: employee.ID})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for self-buddy, got %d", resp.Code)
	}
}

func TestAssignBuddyCrossTenant(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	orgA := createTestOrg(t, db, "org-a")
	orgB := createTestOrg(t, db, "org-b")
	admin := createTestUser(t, db, "admin@org-a.test", models.RoleAdmin, orgA.ID)
	employee := createTestUser(t, db, "emp@org-a.test", models.RoleEmployee, orgA.ID)
	foreignBuddy := createTestUser(t, db, "buddy@org-b.test", models.RoleEmployee, orgB.ID)

	resp := doJSON(t, router, "POST", fmt.Sprintf("/api/employees/%d/assign-buddy", employee.ID),
		authHeader(t, admin), AssignBuddyRequest{BuddyID: foreignBuddy.ID})
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for cross-tenant buddy, got %d", resp.Code)
	}
}

func TestUpdateBuddyClears(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	org := createTestOrg(t, db, "acme")
	admin := createTestUser(t, db, "admin@acme.test", models.RoleAdmin, org.ID)
	buddy := createTestUser(t, db, "buddy@acme.test", models.RoleEmployee, org.ID)
	employee := createTestUser(t, db, "emp@acme.test", models.RoleEmployee, org.ID)
	db.Model(employee).Update("buddy_id", buddy.ID)

	resp := doJSON(t, router, "PATCH", fmt.Sprintf("/api/employees/%d/buddy", employee.ID),
		authHeader(t, admin), UpdateBuddyRequest{BuddyID: nil})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var check models.User
	db.First(&check, employee.ID)
	if check.BuddyID != nil {
		t.Errorf("Expected buddy to be cleared, got %d", *check.BuddyID)
	}
}
