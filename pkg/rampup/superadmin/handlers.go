package superadmin

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rampup-dev/rampup/pkg/rampup/auth"
	"github.com/rampup-dev/rampup/pkg/rampup/checklist"
	"github.com/rampup-dev/rampup/pkg/rampup/models"
	"gorm.io/gorm"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$|^[a-z0-9]$`)

// Handler handles super admin requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new super admin handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// PreAssignedRoleRequest represents an email to role pre-assignment
type PreAssignedRoleRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required,oneof=super_admin admin employee"`
}

// PreAssignedRoleResponse represents a pre-assignment in API responses
type PreAssignedRoleResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UpdateRoleRequest represents a role reassignment
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=super_admin admin employee"`
}

// CreateOrgRequest represents the request to create an organization
type CreateOrgRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
	Slug string `json:"slug" binding:"required,min=1,max=50"`
}

// UpdateOrgRequest represents the request to update an organization
type UpdateOrgRequest struct {
	Name         *string `json:"name" binding:"omitempty,min=1,max=100"`
	BuddyEnabled *bool   `json:"buddy_enabled"`
}

// OrgResponse represents an organization in API responses
type OrgResponse struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	BuddyEnabled bool   `json:"buddy_enabled"`
	UserCount    int64  `json:"user_count"`
}

// StatsResponse represents system statistics
type StatsResponse struct {
	TotalOrganizations int64 `json:"total_organizations"`
	TotalUsers         int64 `json:"total_users"`
	TotalTasks         int64 `json:"total_tasks"`
	CompletedTasks     int64 `json:"completed_tasks"`
	ActivePreparations int64 `json:"active_preparations"`
	AdminUsers         int64 `json:"admin_users"`
}

// ListPreAssignedRoles returns all email to role pre-assignments
// @Summary List pre-assigned roles
// @Description List all email-to-role pre-assignments (super admin only)
// @Tags super-admin
// @Produce json
// @Success 200 {array} PreAssignedRoleResponse
// @Security BearerAuth
// @Router /super-admin/pre-assigned-roles [get]
func (h *Handler) ListPreAssignedRoles(c *gin.Context) {
	var roles []models.PreAssignedRole
	if err := h.db.Order("email ASC").Find(&roles).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pre-assigned roles"})
		return
	}

	responses := make([]PreAssignedRoleResponse, len(roles))
	for i, role := range roles {
		responses[i] = PreAssignedRoleResponse{
			ID:    role.ID,
			Email: role.Email,
			Role:  string(role.Role),
		}
	}

	c.JSON(http.StatusOK, responses)
}

// CreatePreAssignedRole creates an email to role pre-assignment
// @Summary Create a pre-assigned role
// @Description Map an email address to the role it receives at first login (super admin only)
// @Tags super-admin
// @Accept json
// @Produce json
// @Param request body PreAssignedRoleRequest true "Pre-assignment details"
// @Success 201 {object} PreAssignedRoleResponse
// @Failure 409 {object} map[string]string "Email already pre-assigned"
// @Security BearerAuth
// @Router /super-admin/pre-assigned-roles [post]
func (h *Handler) CreatePreAssignedRole(c *gin.Context) {
	var req PreAssignedRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existing models.PreAssignedRole
	if err := h.db.Where("email = ?", email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already pre-assigned"})
		return
	}

	role := models.PreAssignedRole{
		Email: email,
		Role:  models.Role(req.Role),
	}
	if err := h.db.Create(&role).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create pre-assigned role"})
		return
	}

	c.JSON(http.StatusCreated, PreAssignedRoleResponse{
		ID:    role.ID,
		Email: role.Email,
		Role:  string(role.Role),
	})
}

// DeletePreAssignedRole removes an email to role pre-assignment
// @Summary Delete a pre-assigned role
// @Description Remove an email-to-role pre-assignment (super admin only)
// @Tags super-admin
// @Produce json
// @Param id path int true "Pre-assignment ID"
// @Success 200 {object} map[string]string "Pre-assigned role deleted"
// @Failure 404 {object} map[string]string "Pre-assigned role not found"
// @Security BearerAuth
// @Router /super-admin/pre-assigned-roles/{id} [delete]
func (h *Handler) DeletePreAssignedRole(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pre-assignment ID"})
		return
	}

	var role models.PreAssignedRole
	if err := h.db.First(&role, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pre-assigned role not found"})
		return
	}

	if err := h.db.Delete(&role).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete pre-assigned role"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Pre-assigned role deleted"})
}

// UpdateUserRole reassigns a user's role
// @Summary Reassign a user's role
// @Description Change a user's role (super admin only)
// @Tags super-admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body UpdateRoleRequest true "New role"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /super-admin/users/{id}/role [patch]
func (h *Handler) UpdateUserRole(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Prevent a super admin from demoting themselves
	currentUserID, _ := auth.GetUserID(c)
	if uint(id) == currentUserID && req.Role != string(models.RoleSuperAdmin) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot demote yourself"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	user.Role = models.Role(req.Role)
	if err := h.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":   user.ID,
		"role": string(user.Role),
	})
}

// ListOrganizations returns all organizations
// @Summary List organizations
// @Description List all organizations (super admin only)
// @Tags super-admin
// @Produce json
// @Success 200 {array} OrgResponse
// @Security BearerAuth
// @Router /super-admin/organizations [get]
func (h *Handler) ListOrganizations(c *gin.Context) {
	var orgs []models.Organization
	if err := h.db.Order("name ASC").Find(&orgs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch organizations"})
		return
	}

	responses := make([]OrgResponse, len(orgs))
	for i, org := range orgs {
		var userCount int64
		h.db.Model(&models.User{}).Where("organization_id = ?", org.ID).Count(&userCount)
		responses[i] = OrgResponse{
			ID:           org.ID,
			Name:         org.Name,
			Slug:         org.Slug,
			BuddyEnabled: org.BuddyEnabled,
			UserCount:    userCount,
		}
	}

	c.JSON(http.StatusOK, responses)
}

// CreateOrganization creates an organization with its checklist seeded
// from the default template
// @Summary Create an organization
// @Description Create an organization and seed its checklist from the default template (super admin only)
// @Tags super-admin
// @Accept json
// @Produce json
// @Param request body CreateOrgRequest true "Organization details"
// @Success 201 {object} OrgResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /super-admin/organizations [post]
func (h *Handler) CreateOrganization(c *gin.Context) {
	var req CreateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if !slugRegex.MatchString(slug) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Slug must contain only lowercase letters, numbers, and hyphens (no leading/trailing hyphens)"})
		return
	}

	var existing models.Organization
	if err := h.db.Where("slug = ?", slug).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "This slug is already taken"})
		return
	}

	org := models.Organization{
		Name:         strings.TrimSpace(req.Name),
		Slug:         slug,
		BuddyEnabled: true,
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&org).Error; err != nil {
			return err
		}
		orgChecklist := models.Checklist{OrganizationID: org.ID}
		if err := tx.Create(&orgChecklist).Error; err != nil {
			return err
		}
		return checklist.ApplyDefaultTemplate(tx, org.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create organization"})
		return
	}

	c.JSON(http.StatusCreated, OrgResponse{
		ID:           org.ID,
		Name:         org.Name,
		Slug:         org.Slug,
		BuddyEnabled: org.BuddyEnabled,
	})
}

// UpdateOrganization updates an organization's name or buddy feature flag
// @Summary Update an organization
// @Description Update an organization's name or toggle the buddy feature (super admin only)
// @Tags super-admin
// @Accept json
// @Produce json
// @Param id path int true "Organization ID"
// @Param request body UpdateOrgRequest true "Updated fields"
// @Success 200 {object} OrgResponse
// @Failure 404 {object} map[string]string "Organization not found"
// @Security BearerAuth
// @Router /super-admin/organizations/{id} [patch]
func (h *Handler) UpdateOrganization(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organization ID"})
		return
	}

	var req UpdateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var org models.Organization
	if err := h.db.First(&org, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	if req.Name != nil {
		org.Name = strings.TrimSpace(*req.Name)
	}
	if req.BuddyEnabled != nil {
		org.BuddyEnabled = *req.BuddyEnabled
	}

	if err := h.db.Save(&org).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update organization"})
		return
	}

	var userCount int64
	h.db.Model(&models.User{}).Where("organization_id = ?", org.ID).Count(&userCount)

	c.JSON(http.StatusOK, OrgResponse{
		ID:           org.ID,
		Name:         org.Name,
		Slug:         org.Slug,
		BuddyEnabled: org.BuddyEnabled,
		UserCount:    userCount,
	})
}

// GetStats returns system-wide statistics
// @Summary Get system statistics
// @Description Get counts across organizations, users, tasks, and preparations (super admin only)
// @Tags super-admin
// @Produce json
// @Success 200 {object} StatsResponse
// @Security BearerAuth
// @Router /super-admin/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	var stats StatsResponse
	h.db.Model(&models.Organization{}).Count(&stats.TotalOrganizations)
	h.db.Model(&models.User{}).Count(&stats.TotalUsers)
	h.db.Model(&models.Task{}).Count(&stats.TotalTasks)
	h.db.Model(&models.TaskProgress{}).Where("completed = ?", true).Count(&stats.CompletedTasks)
	h.db.Model(&models.BuddyPreparation{}).Where("is_active = ?", true).Count(&stats.ActivePreparations)
	h.db.Model(&models.User{}).Where("role IN ?", []models.Role{models.RoleAdmin, models.RoleSuperAdmin}).Count(&stats.AdminUsers)

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers super admin routes. The group is expected to
// carry the super admin role gate.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/pre-assigned-roles", h.ListPreAssignedRoles)
	rg.POST("/pre-assigned-roles", h.CreatePreAssignedRole)
	rg.DELETE("/pre-assigned-roles/:id", h.DeletePreAssignedRole)
	rg.PATCH("/users/:id/role", h.UpdateUserRole)
	rg.GET("/organizations", h.ListOrganizations)
	rg.POST("/organizations", h.CreateOrganization)
	rg.PATCH("/organizations/:id", h.UpdateOrganization)
	rg.GET("/stats", h.GetStats)
}
