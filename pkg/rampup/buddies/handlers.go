package buddies

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rampup-dev/rampup/pkg/rampup/auth"
	"github.com/rampup-dev/rampup/pkg/rampup/models"
	"github.com/rampup-dev/rampup/pkg/rampup/progress"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Handler handles buddy relationship requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new buddies handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// BuddyResponse represents a mentor in buddy listings
type BuddyResponse struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	MenteeCount int    `json:"mentee_count"`
}

// buddyFeatureEnabled reports whether the organization has the buddy
// feature turned on
func (h *Handler) buddyFeatureEnabled(orgID uint) bool {
	var org models.Organization
	if err := h.db.First(&org, orgID).Error; err != nil {
		return false
	}
	return org.BuddyEnabled
}

// GetRelationships returns the caller's merged buddy relationship views
// @Summary Get own buddy relationships
// @Description Get the caller's mentees and preparations across all relationship paths
// @Tags buddies
// @Produce json
// @Success 200 {object} Relationships
// @Security BearerAuth
// @Router /user/buddy-relationships [get]
func (h *Handler) GetRelationships(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	// Buddy surfaces are hidden when the caller's org has the feature off
	// or the caller has no org yet; records are kept, not deleted.
	orgID, ok := auth.GetOrgID(c)
	if !ok || !h.buddyFeatureEnabled(orgID) {
		c.JSON(http.StatusOK, Relationships{
			ActiveUsers:           []MenteeResponse{},
			ActivePreparations:    []PreparationResponse{},
			CompletedPreparations: []PreparationResponse{},
		})
		return
	}

	relationships, err := Resolve(h.db, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve buddy relationships"})
		return
	}

	c.JSON(http.StatusOK, relationships)
}

// ListBuddies returns the distinct mentors of the caller's organization
// @Summary List organization buddies
// @Description List distinct mentors of the organization across all relationship paths; empty when the buddy feature is disabled (admin only)
// @Tags buddies
// @Produce json
// @Success 200 {array} BuddyResponse
// @Security BearerAuth
// @Router /buddies [get]
func (h *Handler) ListBuddies(c *gin.Context) {
	orgID, ok := auth.GetOrgID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	if !h.buddyFeatureEnabled(orgID) {
		c.JSON(http.StatusOK, []BuddyResponse{})
		return
	}

	// Distinct mentor ids across the legacy field, the assignment table,
	// and preparations of this organization
	buddyIDs := make(map[uint]bool)

	var legacyIDs []uint
	if err := h.db.Model(&models.User{}).
		Where("organization_id = ? AND buddy_id IS NOT NULL", orgID).
		Distinct().Pluck("buddy_id", &legacyIDs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch buddies"})
		return
	}
	for _, id := range legacyIDs {
		buddyIDs[id] = true
	}

	var assignedIDs []uint
	if err := h.db.Model(&models.BuddyAssignment{}).
		Joins("JOIN users ON users.id = buddy_assignments.user_id AND users.deleted_at IS NULL").
		Where("users.organization_id = ?", orgID).
		Distinct().Pluck("buddy_assignments.buddy_id", &assignedIDs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch buddies"})
		return
	}
	for _, id := range assignedIDs {
		buddyIDs[id] = true
	}

	var prepIDs []uint
	if err := h.db.Model(&models.BuddyPreparation{}).
		Where("organization_id = ?", orgID).
		Distinct().Pluck("buddy_id", &prepIDs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch buddies"})
		return
	}
	for _, id := range prepIDs {
		buddyIDs[id] = true
	}

	responses := []BuddyResponse{}
	for id := range buddyIDs {
		var buddy models.User
		if err := h.db.First(&buddy, id).Error; err != nil {
			continue
		}
		relationships, err := Resolve(h.db, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve buddy relationships"})
			return
		}
		responses = append(responses, BuddyResponse{
			ID:          buddy.ID,
			Email:       buddy.Email,
			Name:        buddy.Name,
			MenteeCount: relationships.Counts.Total,
		})
	}

	c.JSON(http.StatusOK, responses)
}

// UpdateBuddyProgressRequest represents a mentor's completion update
type UpdateBuddyProgressRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

// parseSubject extracts and validates the subject type query parameter,
// defaulting to user for backward compatibility with mentee-only clients
func parseSubject(c *gin.Context) (models.SubjectType, bool) {
	raw := strings.TrimSpace(c.DefaultQuery("subject_type", string(models.SubjectUser)))
	subjectType := models.SubjectType(raw)
	return subjectType, subjectType.Valid()
}

// UpdateBuddyProgress sets a completion flag on behalf of a mentee or
// preparation subject. Only a buddy of the subject may call this; buddy
// tasks are included.
// @Summary Update a mentee's task progress
// @Description Set or clear task completion for a mentee or preparation subject (buddies of the subject only)
// @Tags buddies
// @Accept json
// @Produce json
// @Param taskId path int true "Task ID"
// @Param subjectId path int true "Subject ID"
// @Param subject_type query string false "Subject type: user or preparation" default(user)
// @Param request body UpdateBuddyProgressRequest true "Completion state"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not a buddy of this subject"
// @Failure 404 {object} map[string]string "Task not found"
// @Security BearerAuth
// @Router /buddy/tasks/{taskId}/progress/{subjectId} [post]
func (h *Handler) UpdateBuddyProgress(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	taskID, err := strconv.ParseUint(c.Param("taskId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return
	}
	subjectID, err := strconv.ParseUint(c.Param("subjectId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subject ID"})
		return
	}
	subjectType, ok := parseSubject(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subject type"})
		return
	}

	var req UpdateBuddyProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !IsBuddyOf(h.db, userID, subjectType, uint(subjectID)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a buddy of this subject"})
		return
	}

	// The task must belong to the subject's organization
	subjectOrg, err := subjectOrganizationID(h.db, subjectType, uint(subjectID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subject not found"})
		return
	}
	taskOrg, err := models.TaskOrganizationID(h.db, uint(taskID))
	if err != nil || taskOrg != subjectOrg {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	row := models.TaskProgress{
		SubjectType: subjectType,
		SubjectID:   uint(subjectID),
		TaskID:      uint(taskID),
		Completed:   *req.Completed,
	}
	if err := h.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject_type"}, {Name: "subject_id"}, {Name: "task_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"completed", "updated_at"}),
	}).Create(&row).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update progress"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task_id":      uint(taskID),
		"subject_type": subjectType,
		"subject_id":   uint(subjectID),
		"completed":    *req.Completed,
	})
}

// GetBuddyProgress returns the mentor-side completion summary for a mentee
// or preparation subject
// @Summary Get a mentee's progress
// @Description Get the buddy-view completion summary for a mentee or preparation subject, buddy tasks included (buddies of the subject only)
// @Tags buddies
// @Produce json
// @Param subjectId path int true "Subject ID"
// @Param subject_type query string false "Subject type: user or preparation" default(user)
// @Success 200 {object} progress.Summary
// @Failure 403 {object} map[string]string "Not a buddy of this subject"
// @Security BearerAuth
// @Router /buddy/progress/{subjectId} [get]
func (h *Handler) GetBuddyProgress(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	subjectID, err := strconv.ParseUint(c.Param("subjectId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subject ID"})
		return
	}
	subjectType, ok := parseSubject(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subject type"})
		return
	}

	if !IsBuddyOf(h.db, userID, subjectType, uint(subjectID)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a buddy of this subject"})
		return
	}

	subjectOrg, err := subjectOrganizationID(h.db, subjectType, uint(subjectID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subject not found"})
		return
	}
	checklist, err := models.ChecklistForOrganization(h.db, subjectOrg)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Checklist not found"})
		return
	}

	summary, err := progress.Buddy(h.db, subjectType, uint(subjectID), checklist.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch progress"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// RegisterRoutes registers routes available to any authenticated user
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/user/buddy-relationships", h.GetRelationships)
	rg.POST("/buddy/tasks/:taskId/progress/:subjectId", h.UpdateBuddyProgress)
	rg.GET("/buddy/progress/:subjectId", h.GetBuddyProgress)
}

// RegisterAdminRoutes registers buddy management routes. The group is
// expected to carry the admin role gate.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/buddies", h.ListBuddies)
	rg.POST("/buddy-assignments", h.CreateAssignment)
	rg.DELETE("/buddy-assignments/:id", h.DeleteAssignment)
	rg.GET("/buddy-preparations", h.ListPreparations)
	rg.POST("/buddy-preparations", h.CreatePreparation)
	rg.POST("/buddy-preparations/:id/link", h.LinkPreparation)
}
