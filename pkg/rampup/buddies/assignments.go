package buddies

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rampup-dev/rampup/pkg/rampup/auth"
	"github.com/rampup-dev/rampup/pkg/rampup/models"
)

// CreateAssignmentRequest represents the request to link a mentee to a buddy
type CreateAssignmentRequest struct {
	UserID  uint `json:"user_id" binding:"required"`
	BuddyID uint `json:"buddy_id" binding:"required"`
}

// AssignmentResponse represents a buddy assignment in API responses
type AssignmentResponse struct {
	ID      uint `json:"id"`
	UserID  uint `json:"user_id"`
	BuddyID uint `json:"buddy_id"`
}

// orgUser fetches a user and verifies the caller may touch them. A user in
// another organization reads as not found.
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

// CreateAssignment links a mentee to a buddy via the assignment table
// @Summary Create a buddy assignment
// @Description Link a mentee to a buddy; both must belong to the caller's organization (admin only)
// @Tags buddies
// @Accept json
// @Produce json
// @Param request body CreateAssignmentRequest true "Assignment details"
// @Success 201 {object} AssignmentResponse
// @Failure 404 {object} map[string]string "User not found"
// @Failure 409 {object} map[string]string "Assignment already exists"
// @Security BearerAuth
// @Router /buddy-assignments [post]
func (h *Handler) CreateAssignment(c *gin.Context) {
	var req CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.UserID == req.BuddyID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A user cannot be their own buddy"})
		return
	}

	if _, ok := h.orgUser(c, req.UserID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if _, ok := h.orgUser(c, req.BuddyID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Buddy not found"})
		return
	}

	var existing models.BuddyAssignment
	if err := h.db.Where("user_id = ? AND buddy_id = ?", req.UserID, req.BuddyID).
		First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Assignment already exists"})
		return
	}

	assignment := models.BuddyAssignment{
		UserID:  req.UserID,
		BuddyID: req.BuddyID,
	}
	if err := h.db.Create(&assignment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create assignment"})
		return
	}

	c.JSON(http.StatusCreated, AssignmentResponse{
		ID:      assignment.ID,
		UserID:  assignment.UserID,
		BuddyID: assignment.BuddyID,
	})
}

// DeleteAssignment removes a buddy assignment
// @Summary Delete a buddy assignment
// @Description Remove a buddy assignment (admin only, tenant-scoped through the mentee)
// @Tags buddies
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} map[string]string "Assignment removed"
// @Failure 404 {object} map[string]string "Assignment not found"
// @Security BearerAuth
// @Router /buddy-assignments/{id} [delete]
func (h *Handler) DeleteAssignment(c *gin.Context) {
	assignmentID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignment ID"})
		return
	}

	var assignment models.BuddyAssignment
	if err := h.db.First(&assignment, assignmentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
		return
	}

	// Scope through the mentee's organization
	if _, ok := h.orgUser(c, assignment.UserID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
		return
	}

	if err := h.db.Delete(&assignment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove assignment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Assignment removed"})
}
