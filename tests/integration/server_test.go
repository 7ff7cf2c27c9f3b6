package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rampup-dev/rampup/pkg/rampup/auth"
	"github.com/rampup-dev/rampup/pkg/rampup/buddies"
	"github.com/rampup-dev/rampup/pkg/rampup/checklist"
	"github.com/rampup-dev/rampup/pkg/rampup/employees"
	"github.com/rampup-dev/rampup/pkg/rampup/models"
	"github.com/rampup-dev/rampup/pkg/rampup/oidc"
	"github.com/rampup-dev/rampup/pkg/rampup/superadmin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// setupFullServer creates a Gin engine with all routes registered
// This mirrors the setup in cmd/rampup-server/main.go
func setupFullServer(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API routes
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"service": "rampup",
			})
		})

		// Auth routes (public)
		authHandler := auth.NewHandler(db)
		authHandler.RegisterRoutes(api.Group("/auth"))

		// OIDC routes (public)
		oidcHandler := oidc.NewHandler(db, "http://localhost:8080")
		oidcHandler.RegisterRoutes(api.Group("/oidc"))

		// Routes for any authenticated user
		authenticated := api.Group("", auth.AuthMiddleware())
		checklistHandler := checklist.NewHandler(db)
		checklistHandler.RegisterRoutes(authenticated)

		buddiesHandler := buddies.NewHandler(db)
		buddiesHandler.RegisterRoutes(authenticated)

		// Admin routes
		adminGroup := api.Group("", auth.AuthMiddleware(), auth.RequireRole(models.RoleAdmin))
		checklistHandler.RegisterAdminRoutes(adminGroup)
		buddiesHandler.RegisterAdminRoutes(adminGroup)

		employeesHandler := employees.NewHandler(db)
		employeesHandler.RegisterRoutes(adminGroup)

		// Super admin routes
		superGroup := api.Group("/super-admin", auth.AuthMiddleware(), auth.RequireRole(models.RoleSuperAdmin))
		superadminHandler := superadmin.NewHandler(db)
		superadminHandler.RegisterRoutes(superGroup)
		oidcHandler.RegisterAdminRoutes(superGroup.Group("/oidc"))
	}

	return r
}

// TestServerStartup verifies that all routes can be registered without conflicts
// This test would fail if there are route parameter conflicts (like :id vs reorder)
func TestServerStartup(t *testing.T) {
	db := setupTestDB(t)

	// This will panic if there are route conflicts
	router := setupFullServer(db)

	if router == nil {
		t.Fatal("Expected router to be created")
	}
}

// TestHealthEndpoint verifies the health endpoint responds correctly
func TestHealthEndpoint(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(db)

	req, _ := http.NewRequest("GET", "/health", nil)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.Code)
	}
}

// TestAPIHealthEndpoint verifies the API health endpoint responds correctly
func TestAPIHealthEndpoint(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(db)

	req, _ := http.NewRequest("GET", "/api/health", nil)
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.Code)
	}
}

// TestProtectedEndpointsRequireAuth verifies that protected endpoints return 401 without auth
func TestProtectedEndpointsRequireAuth(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(db)

	protectedEndpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/checklist"},
		{"GET", "/api/user/buddy-relationships"},
		{"GET", "/api/employees"},
		{"GET", "/api/buddies"},
		{"POST", "/api/categories"},
		{"GET", "/api/super-admin/stats"},
	}

	for _, endpoint := range protectedEndpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			req, _ := http.NewRequest(endpoint.method, endpoint.path, nil)
			resp := httptest.NewRecorder()

			router.ServeHTTP(resp, req)

			if resp.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401 for %s %s, got %d", endpoint.method, endpoint.path, resp.Code)
			}
		})
	}
}

// TestPublicEndpointsNoAuth verifies that public endpoints don't require auth
func TestPublicEndpointsNoAuth(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(db)

	publicEndpoints := []struct {
		method       string
		path         string
		expectedCode int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/api/health", http.StatusOK},
		{"POST", "/api/auth/register", http.StatusBadRequest}, // Bad request (no body), but not 401
		{"POST", "/api/auth/login", http.StatusBadRequest},    // Bad request (no body), but not 401
		{"GET", "/api/oidc/providers", http.StatusOK},
	}

	for _, endpoint := range publicEndpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			req, _ := http.NewRequest(endpoint.method, endpoint.path, nil)
			resp := httptest.NewRecorder()

			router.ServeHTTP(resp, req)

			if resp.Code != endpoint.expectedCode {
				t.Errorf("Expected status %d for %s %s, got %d", endpoint.expectedCode, endpoint.method, endpoint.path, resp.Code)
			}
		})
	}
}

// TestRoleGateAcrossTiers walks one user through the three role tiers and
// verifies which route groups open up at each step
func TestRoleGateAcrossTiers(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(db)

	org := models.Organization{Name: "Acme", Slug: "acme", BuddyEnabled: true}
	db.Create(&org)
	db.Create(&models.Checklist{OrganizationID: org.ID})

	hash, _ := auth.HashPassword("password123")
	user := models.User{
		Email:          "user@acme.test",
		PasswordHash:   hash,
		Name:           "User",
		Role:           models.RoleEmployee,
		OrganizationID: &org.ID,
		Active:         true,
	}
	db.Create(&user)

	checkStatus := func(role models.Role, path string, want int) {
		t.Helper()
		token, _ := auth.GenerateToken(user.ID, user.Email, string(role), org.ID)
		req, _ := http.NewRequest("GET", path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != want {
			t.Errorf("Expected status %d for %s as %s, got %d", want, path, role, resp.Code)
		}
	}

	checkStatus(models.RoleEmployee, "/api/checklist", http.StatusOK)
	checkStatus(models.RoleEmployee, "/api/employees", http.StatusForbidden)
	checkStatus(models.RoleEmployee, "/api/super-admin/stats", http.StatusForbidden)

	checkStatus(models.RoleAdmin, "/api/employees", http.StatusOK)
	checkStatus(models.RoleAdmin, "/api/super-admin/stats", http.StatusForbidden)

	checkStatus(models.RoleSuperAdmin, "/api/super-admin/stats", http.StatusOK)
}

// TestRegisterLoginRoundTrip registers a user over HTTP and logs back in
func TestRegisterLoginRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(db)

	registerBody, _ := json.Marshal(map[string]string{
		"email":    "new@example.com",
		"password": "password123",
		"name":     "New User",
	})
	req, _ := http.NewRequest("POST", "/api/auth/register", bytes.NewBuffer(registerBody))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	loginBody, _ := json.Marshal(map[string]string{
		"email":    "new@example.com",
		"password": "password123",
	})
	req, _ = http.NewRequest("POST", "/api/auth/login", bytes.NewBuffer(loginBody))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response struct {
		Token string `json:"token"`
	}
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response.Token == "" {
		t.Fatal("Expected token in login response")
	}

	// The token works against an authenticated endpoint
	req, _ = http.NewRequest("GET", "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+response.Token)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200 from /api/auth/me, got %d", resp.Code)
	}
}
