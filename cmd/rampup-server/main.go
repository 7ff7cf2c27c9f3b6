package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rampup-dev/rampup/pkg/rampup/auth"
	"github.com/rampup-dev/rampup/pkg/rampup/buddies"
	"github.com/rampup-dev/rampup/pkg/rampup/checklist"
	"github.com/rampup-dev/rampup/pkg/rampup/database"
	"github.com/rampup-dev/rampup/pkg/rampup/employees"
	"github.com/rampup-dev/rampup/pkg/rampup/models"
	"github.com/rampup-dev/rampup/pkg/rampup/oidc"
	"github.com/rampup-dev/rampup/pkg/rampup/superadmin"
	log "github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "github.com/rampup-dev/rampup/api/swagger"
)

// @title Rampup API
// @version 1.0
// @description An employee-onboarding service: per-organization checklists, progress tracking, and buddy (mentor) assignments.

// @contact.name Rampup Support
// @contact.url https://github.com/rampup-dev/rampup

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Info("loaded configuration from .env")
	}

	dbPath := os.Getenv("RAMPUP_DB_PATH")
	if dbPath == "" {
		dbPath = "rampup.db"
	}

	if err := database.Connect(dbPath); err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	if err := models.AutoMigrate(database.GetDB()); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}
	log.Info("database migrations completed")

	if err := ensureSuperAdminExists(); err != nil {
		log.WithError(err).Fatal("failed to ensure super admin exists")
	}

	if os.Getenv("RAMPUP_BOOTSTRAP_DEMO") == "1" {
		if err := ensureDemoOrgExists(); err != nil {
			log.WithError(err).Fatal("failed to bootstrap demo organization")
		}
	}

	baseURL := os.Getenv("RAMPUP_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

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
		authHandler := auth.NewHandler(database.GetDB())
		authHandler.RegisterRoutes(api.Group("/auth"))

		// OIDC routes (public)
		oidcHandler := oidc.NewHandler(database.GetDB(), baseURL)
		oidcHandler.RegisterRoutes(api.Group("/oidc"))

		// Routes for any authenticated user
		authenticated := api.Group("", auth.AuthMiddleware())
		checklistHandler := checklist.NewHandler(database.GetDB())
		checklistHandler.RegisterRoutes(authenticated)

		buddiesHandler := buddies.NewHandler(database.GetDB())
		buddiesHandler.RegisterRoutes(authenticated)

		// Admin routes (admin role or above, tenant-scoped in handlers)
		adminGroup := api.Group("", auth.AuthMiddleware(), auth.RequireRole(models.RoleAdmin))
		checklistHandler.RegisterAdminRoutes(adminGroup)
		buddiesHandler.RegisterAdminRoutes(adminGroup)

		employeesHandler := employees.NewHandler(database.GetDB())
		employeesHandler.RegisterRoutes(adminGroup)

		// Super admin routes
		superGroup := api.Group("/super-admin", auth.AuthMiddleware(), auth.RequireRole(models.RoleSuperAdmin))
		superadminHandler := superadmin.NewHandler(database.GetDB())
		superadminHandler.RegisterRoutes(superGroup)
		oidcHandler.RegisterAdminRoutes(superGroup.Group("/oidc"))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("starting rampup server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	// Explicit lifecycle: drain in-flight requests, then release the pool
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
	if err := database.Close(); err != nil {
		log.WithError(err).Error("failed to close database")
	}
}

// ensureSuperAdminExists creates a default super admin account when none
// exists in the database. Credentials come from the environment so fresh
// deployments are reachable before any identity provider is configured.
func ensureSuperAdminExists() error {
	db := database.GetDB()

	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleSuperAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email := os.Getenv("RAMPUP_BOOTSTRAP_EMAIL")
	if email == "" {
		email = "admin@rampup.local"
	}
	password := os.Getenv("RAMPUP_BOOTSTRAP_PASSWORD")
	if password == "" {
		password = "changeme"
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	superAdmin := models.User{
		Email:        email,
		Name:         "Super Admin",
		PasswordHash: hashedPassword,
		Role:         models.RoleSuperAdmin,
		Active:       true,
	}
	if err := db.Create(&superAdmin).Error; err != nil {
		return err
	}

	log.WithField("email", email).Info("created default super admin")
	return nil
}

// ensureDemoOrgExists creates a demo organization with the default
// checklist template when the database holds no organizations yet.
func ensureDemoOrgExists() error {
	db := database.GetDB()

	var count int64
	if err := db.Model(&models.Organization{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		org := models.Organization{
			Name:         "Demo Organization",
			Slug:         "demo",
			BuddyEnabled: true,
		}
		if err := tx.Create(&org).Error; err != nil {
			return err
		}
		orgChecklist := models.Checklist{OrganizationID: org.ID}
		if err := tx.Create(&orgChecklist).Error; err != nil {
			return err
		}
		if err := checklist.ApplyDefaultTemplate(tx, org.ID); err != nil {
			return err
		}
		log.WithField("slug", org.Slug).Info("created demo organization")
		return nil
	})
}
