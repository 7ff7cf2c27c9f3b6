package checklist

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rampup-dev/rampup/pkg/rampup/auth"
	"github.com/rampup-dev/rampup/pkg/rampup/models"
	"github.com/rampup-dev/rampup/pkg/rampup/progress"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Handler handles checklist, category, and task requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new checklist handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// TaskResponse represents a task in API responses
type TaskResponse struct {
	ID          uint   `json:"id"`
	CategoryID  uint   `json:"category_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	IsBuddyTask bool   `json:"is_buddy_task"`
	Link        string `json:"link,omitempty"`
	Completed   bool   `json:"completed"`
}

// CategoryResponse represents a category with its tasks
type CategoryResponse struct {
	ID    uint           `json:"id"`
	Name  string         `json:"name"`
	Order int            `json:"order"`
	Tasks []TaskResponse `json:"tasks"`
}

// ChecklistResponse represents the full checklist merged with the caller's
// completion state
type ChecklistResponse struct {
	ID             uint               `json:"id"`
	OrganizationID uint               `json:"organization_id"`
	Categories     []CategoryResponse `json:"categories"`
	Progress       progress.Summary   `json:"progress"`
}

// ToggleProgressRequest represents a completion toggle
type ToggleProgressRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

// targetOrg resolves the organization a mutation applies to. Admins always
// operate on their own organization; super admins may address any org via
// the request body.
func targetOrg(c *gin.Context, requested uint) (uint, bool) {
	if auth.IsSuperAdmin(c) && requested != 0 {
		return requested, true
	}
	return auth.GetOrgID(c)
}

// GetChecklist returns the caller's organization checklist with the
// caller's completion flags merged in
// @Summary Get the onboarding checklist
// @Description Get the caller's organization checklist, ordered, with the caller's completion state and progress
// @Tags checklist
// @Produce json
// @Success 200 {object} ChecklistResponse
// @Failure 404 {object} map[string]string "Checklist not found"
// @Security BearerAuth
// @Router /checklist [get]
func (h *Handler) GetChecklist(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	orgID, ok := auth.GetOrgID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Checklist not found"})
		return
	}

	checklist, err := models.ChecklistForOrganization(h.db, orgID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Checklist not found"})
		return
	}

	var categories []models.Category
	if err := h.db.Where("checklist_id = ?", checklist.ID).
		Order("sort_order ASC").
		Preload("Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Find(&categories).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch checklist"})
		return
	}

	completion, err := progress.CompletionMap(h.db, models.SubjectUser, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch progress"})
		return
	}

	summary, err := progress.Employee(h.db, userID, checklist.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch progress"})
		return
	}

	response := ChecklistResponse{
		ID:             checklist.ID,
		OrganizationID: checklist.OrganizationID,
		Categories:     make([]CategoryResponse, len(categories)),
		Progress:       summary,
	}
	for i, category := range categories {
		tasks := make([]TaskResponse, len(category.Tasks))
		for j, task := range category.Tasks {
			tasks[j] = TaskResponse{
				ID:          task.ID,
				CategoryID:  task.CategoryID,
				Title:       task.Title,
				Description: task.Description,
				Order:       task.Order,
				IsBuddyTask: task.IsBuddyTask,
				Link:        task.Link,
				Completed:   completion[task.ID],
			}
		}
		response.Categories[i] = CategoryResponse{
			ID:    category.ID,
			Name:  category.Name,
			Order: category.Order,
			Tasks: tasks,
		}
	}

	c.JSON(http.StatusOK, response)
}

// ToggleProgress sets the caller's completion flag on one of their
// organization's tasks
// @Summary Toggle own task completion
// @Description Set or clear the caller's completion flag for a task in their organization
// @Tags checklist
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body ToggleProgressRequest true "Completion state"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Task not found"
// @Security BearerAuth
// @Router /tasks/{id}/progress [post]
func (h *Handler) ToggleProgress(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	taskID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return
	}

	var req ToggleProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	taskOrg, err := models.TaskOrganizationID(h.db, uint(taskID))
	if err != nil || !auth.SameOrg(c, taskOrg) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	row := models.TaskProgress{
		SubjectType: models.SubjectUser,
		SubjectID:   userID,
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
		"task_id":   uint(taskID),
		"completed": *req.Completed,
	})
}

// RegisterRoutes registers routes available to any authenticated user
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/checklist", h.GetChecklist)
	rg.POST("/tasks/:id/progress", h.ToggleProgress)
}

// RegisterAdminRoutes registers checklist management routes. The group is
// expected to carry the admin role gate.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/categories", h.CreateCategory)
	rg.PUT("/categories/:id", h.UpdateCategory)
	rg.DELETE("/categories/:id", h.DeleteCategory)
	rg.PATCH("/categories/reorder", h.ReorderCategories)

	rg.POST("/tasks", h.CreateTask)
	rg.PUT("/tasks/:id", h.UpdateTask)
	rg.DELETE("/tasks/:id", h.DeleteTask)
	rg.PATCH("/tasks/reorder", h.ReorderTasks)

	rg.POST("/templates/:id/reset", h.ResetFromTemplate)
}
