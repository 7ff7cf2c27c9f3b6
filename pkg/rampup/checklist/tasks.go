package checklist

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rampup-dev/rampup/pkg/rampup/auth"
	"github.com/rampup-dev/rampup/pkg/rampup/models"
	"gorm.io/gorm"
)

// CreateTaskRequest represents the request to create a task
type CreateTaskRequest struct {
	CategoryID  uint   `json:"category_id" binding:"required"`
	Title       string `json:"title" binding:"required,min=1,max=200"`
	Description string `json:"description"`
	Order       *int   `json:"order"`
	IsBuddyTask bool   `json:"is_buddy_task"`
	Link        string `json:"link" binding:"omitempty,url"`
}

// UpdateTaskRequest represents the request to update a task
type UpdateTaskRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	IsBuddyTask *bool   `json:"is_buddy_task"`
	Link        *string `json:"link" binding:"omitempty,url"`
}

// seedTaskProgress creates an incomplete progress row per employee of the
// organization. Buddy tasks are never seeded; they are completed by mentors
// against whichever subject they mentor.
func seedTaskProgress(tx *gorm.DB, task *models.Task, orgID uint) error {
	if task.IsBuddyTask {
		return nil
	}
	var employeeIDs []uint
	if err := tx.Model(&models.User{}).
		Where("organization_id = ? AND role = ?", orgID, models.RoleEmployee).
		Pluck("id", &employeeIDs).Error; err != nil {
		return err
	}
	if len(employeeIDs) == 0 {
		return nil
	}
	rows := make([]models.TaskProgress, len(employeeIDs))
	for i, id := range employeeIDs {
		rows[i] = models.TaskProgress{
			SubjectType: models.SubjectUser,
			SubjectID:   id,
			TaskID:      task.ID,
			Completed:   false,
		}
	}
	return tx.Create(&rows).Error
}

// CreateTask creates a task and seeds employee progress rows in the same
// transaction
// @Summary Create a task
// @Description Create a task under a category and seed progress rows for the organization's employees (admin only, tenant-scoped)
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body CreateTaskRequest true "Task details"
// @Success 201 {object} TaskResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Category not found"
// @Security BearerAuth
// @Router /tasks [post]
func (h *Handler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	catOrg, err := models.CategoryOrganizationID(h.db, req.CategoryID)
	if err != nil || !auth.SameOrg(c, catOrg) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	order := 0
	if req.Order != nil {
		order = *req.Order
	} else {
		var maxOrder *int
		h.db.Model(&models.Task{}).Where("category_id = ?", req.CategoryID).
			Select("MAX(sort_order)").Scan(&maxOrder)
		if maxOrder != nil {
			order = *maxOrder + 1
		}
	}

	task := models.Task{
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		Order:       order,
		IsBuddyTask: req.IsBuddyTask,
		Link:        req.Link,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		return seedTaskProgress(tx, &task, catOrg)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	c.JSON(http.StatusCreated, TaskResponse{
		ID:          task.ID,
		CategoryID:  task.CategoryID,
		Title:       task.Title,
		Description: task.Description,
		Order:       task.Order,
		IsBuddyTask: task.IsBuddyTask,
		Link:        task.Link,
	})
}

// UpdateTask updates a task's fields
// @Summary Update a task
// @Description Update task fields (admin only, tenant-scoped)
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body UpdateTaskRequest true "Updated task fields"
// @Success 200 {object} TaskResponse
// @Failure 404 {object} map[string]string "Task not found"
// @Security BearerAuth
// @Router /tasks/{id} [put]
func (h *Handler) UpdateTask(c *gin.Context) {
	taskID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	taskOrg, err := models.TaskOrganizationID(h.db, uint(taskID))
	if err != nil || !auth.SameOrg(c, taskOrg) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	var task models.Task
	if err := h.db.First(&task, taskID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.IsBuddyTask != nil {
		task.IsBuddyTask = *req.IsBuddyTask
	}
	if req.Link != nil {
		task.Link = *req.Link
	}

	if err := h.db.Save(&task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}

	c.JSON(http.StatusOK, TaskResponse{
		ID:          task.ID,
		CategoryID:  task.CategoryID,
		Title:       task.Title,
		Description: task.Description,
		Order:       task.Order,
		IsBuddyTask: task.IsBuddyTask,
		Link:        task.Link,
	})
}

// DeleteTask deletes a task and its progress rows
// @Summary Delete a task
// @Description Delete a task and its progress records (admin only, tenant-scoped)
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} map[string]string "Task deleted"
// @Failure 404 {object} map[string]string "Task not found"
// @Security BearerAuth
// @Router /tasks/{id} [delete]
func (h *Handler) DeleteTask(c *gin.Context) {
	taskID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return
	}

	taskOrg, err := models.TaskOrganizationID(h.db, uint(taskID))
	if err != nil || !auth.SameOrg(c, taskOrg) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskProgress{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, taskID).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

// ReorderTasks applies a batch of task order updates with the same
// all-or-nothing validation as category reordering
// @Summary Reorder tasks
// @Description Batch-update task ordering, all-or-nothing (admin only, tenant-scoped)
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body ReorderRequest true "Ordered id/order pairs"
// @Success 200 {object} map[string]string "Tasks reordered"
// @Failure 404 {object} map[string]string "Task not found"
// @Security BearerAuth
// @Router /tasks/reorder [patch]
func (h *Handler) ReorderTasks(c *gin.Context) {
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for _, item := range req.Items {
		taskOrg, err := models.TaskOrganizationID(h.db, item.ID)
		if err != nil || !auth.SameOrg(c, taskOrg) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		for _, item := range req.Items {
			if err := tx.Model(&models.Task{}).Where("id = ?", item.ID).
				Update("sort_order", item.Order).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reorder tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tasks reordered"})
}
