package employees

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rampup-dev/rampup/pkg/rampup/auth"
	"github.com/rampup-dev/rampup/pkg/rampup/models"
	"github.com/rampup-dev/rampup/pkg/rampup/progress"
	"gorm.io/gorm"
)

// Handler handles organization employee requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new employees handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// EmployeeResponse represents an organization member with onboarding state
type EmployeeResponse struct {
	ID       uint             `json:"id"`
	Email    string           `json:"email"`
	Name     string           `json:"name"`
	Role     string           `json:"role"`
	BuddyID  *uint            `json:"buddy_id,omitempty"`
	Progress progress.Summary `json:"progress"`
}

// AssignBuddyRequest represents the request to set the legacy buddy field
type AssignBuddyRequest struct {
	BuddyID uint `json:"buddy_id" binding:"required"`
}

// UpdateBuddyRequest sets or clears the legacy buddy field. A null buddy_id
// clears the mentor.
type UpdateBuddyRequest struct {
	BuddyID *uint `json:"buddy_id"`
}

// orgUser fetches a user and verifies the caller may touch them; users of
// other organizations read as not found.
func (h *Handler) orgUser(c *gin.Context, userID uint) (*models.User, bool) {
	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		return nil, false
	}
	if user.OrganizationID == nil || !auth.SameOrg(c, *user.OrganizationID) {
		return nil, false
	}
	return &user, true
}

// List returns the organization's employees with their onboarding progress
// @Summary List organization employees
// @Description List employees of the caller's organization with progress percentages; buddy tasks are excluded from the denominator (admin only)
// @Tags employees
// @Produce json
// @Success 200 {array} EmployeeResponse
// @Security BearerAuth
// @Router /employees [get]
func (h *Handler) List(c *gin.Context) {
	orgID, ok := auth.GetOrgID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	checklist, err := models.ChecklistForOrganization(h.db, orgID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Checklist not found"})
		return
	}

	var users []models.User
	if err := h.db.Where("organization_id = ?", orgID).
		Order("name ASC").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch employees"})
		return
	}

	responses := make([]EmployeeResponse, len(users))
	for i, user := range users {
		summary, err := progress.Employee(h.db, user.ID, checklist.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute progress"})
			return
		}
		responses[i] = EmployeeResponse{
			ID:       user.ID,
			Email:    user.Email,
			Name:     user.Name,
			Role:     string(user.Role),
			BuddyID:  user.BuddyID,
			Progress: summary,
		}
	}

	c.JSON(http.StatusOK, responses)
}

// AssignBuddy sets the legacy single-mentor field on an employee
// @Summary Assign a buddy
// @Description Set the legacy buddy reference on an employee (admin only, tenant-scoped)
// @Tags employees
// @Accept json
// @Produce json
// @Param id path int true "Employee ID"
// @Param request body AssignBuddyRequest true "Buddy to assign"
// @Success 200 {object} EmployeeResponse
// @Failure 404 {object} map[string]string "Employee not found"
// @Security BearerAuth
// @Router /employees/{id}/assign-buddy [post]
func (h *Handler) AssignBuddy(c *gin.Context) {
	employeeID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid employee ID"})
		return
	}

	var req AssignBuddyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.setLegacyBuddy(c, uint(employeeID), &req.BuddyID)
}

// UpdateBuddy sets or clears the legacy single-mentor field
// @Summary Set or clear a buddy
// @Description Set or clear the legacy buddy reference on an employee (admin only, tenant-scoped)
// @Tags employees
// @Accept json
// @Produce json
// @Param id path int true "Employee ID"
// @Param request body UpdateBuddyRequest true "Buddy to set, or null to clear"
// @Success 200 {object} EmployeeResponse
// @Failure 404 {object} map[string]string "Employee not found"
// @Security BearerAuth
// @Router /employees/{id}/buddy [patch]
func (h *Handler) UpdateBuddy(c *gin.Context) {
	employeeID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid employee ID"})
		return
	}

	var req UpdateBuddyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.setLegacyBuddy(c, uint(employeeID), req.BuddyID)
}

func (h *Handler) setLegacyBuddy(c *gin.Context, employeeID uint, buddyID *uint) {
	employee, ok := h.orgUser(c, employeeID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Employee not found"})
		return
	}

	if buddyID != nil {
		if *buddyID == employee.ID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A user cannot be their own buddy"})
			return
		}
		buddy, ok := h.orgUser(c, *buddyID)
		if !ok || *buddy.OrganizationID != *employee.OrganizationID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Buddy not found"})
			return
		}
	}

	// Update with Select so a nil buddy clears the column
	if err := h.db.Model(employee).Select("buddy_id").
		Updates(map[string]interface{}{"buddy_id": buddyID}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update buddy"})
		return
	}
	employee.BuddyID = buddyID

	c.JSON(http.StatusOK, EmployeeResponse{
		ID:      employee.ID,
		Email:   employee.Email,
		Name:    employee.Name,
		Role:    string(employee.Role),
		BuddyID: employee.BuddyID,
	})
}

// RegisterRoutes registers employee management routes. The group is
// expected to carry the admin role gate.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/employees", h.List)
	rg.POST("/employees/:id/assign-buddy", h.AssignBuddy)
	rg.PATCH("/employees/:id/buddy", h.UpdateBuddy)
}
