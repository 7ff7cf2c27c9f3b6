package checklist

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rampup-dev/rampup/pkg/rampup/auth"
	"github.com/rampup-dev/rampup/pkg/rampup/models"
	"gorm.io/gorm"
)

// CreateCategoryRequest represents the request to create a category
type CreateCategoryRequest struct {
	Name           string `json:"name" binding:"required,min=1,max=200"`
	Order          *int   `json:"order"`
	OrganizationID uint   `json:"organization_id"` // honored for super admins only
}

// UpdateCategoryRequest represents the request to update a category
type UpdateCategoryRequest struct {
	Name string `json:"name" binding:"required,min=1,max=200"`
}

// ReorderRequest represents a batch reorder of categories or tasks
type ReorderRequest struct {
	Items []ReorderItem `json:"items" binding:"required,min=1,dive"`
}

// ReorderItem is one id/order pair in a batch reorder
type ReorderItem struct {
	ID    uint `json:"id" binding:"required"`
	Order int  `json:"order"`
}

// CreateCategory creates a category on the organization's checklist
// @Summary Create a category
// @Description Create a category on the caller's organization checklist (admin only)
// @Tags categories
// @Accept json
// @Produce json
// @Param request body CreateCategoryRequest true "Category details"
// @Success 201 {object} CategoryResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Checklist not found"
// @Security BearerAuth
// @Router /categories [post]
func (h *Handler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orgID, ok := targetOrg(c, req.OrganizationID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Checklist not found"})
		return
	}

	checklist, err := models.ChecklistForOrganization(h.db, orgID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Checklist not found"})
		return
	}

	order := 0
	if req.Order != nil {
		order = *req.Order
	} else {
		// Append to the end of the list
		var maxOrder *int
		h.db.Model(&models.Category{}).Where("checklist_id = ?", checklist.ID).
			Select("MAX(sort_order)").Scan(&maxOrder)
		if maxOrder != nil {
			order = *maxOrder + 1
		}
	}

	category := models.Category{
		ChecklistID: checklist.ID,
		Name:        req.Name,
		Order:       order,
	}
	if err := h.db.Create(&category).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category"})
		return
	}

	c.JSON(http.StatusCreated, CategoryResponse{
		ID:    category.ID,
		Name:  category.Name,
		Order: category.Order,
		Tasks: []TaskResponse{},
	})
}

// UpdateCategory renames a category
// @Summary Update a category
// @Description Rename a category (admin only, tenant-scoped)
// @Tags categories
// @Accept json
// @Produce json
// @Param id path int true "Category ID"
// @Param request body UpdateCategoryRequest true "Updated category"
// @Success 200 {object} CategoryResponse
// @Failure 404 {object} map[string]string "Category not found"
// @Security BearerAuth
// @Router /categories/{id} [put]
func (h *Handler) UpdateCategory(c *gin.Context) {
	categoryID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	catOrg, err := models.CategoryOrganizationID(h.db, uint(categoryID))
	if err != nil || !auth.SameOrg(c, catOrg) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	var category models.Category
	if err := h.db.First(&category, categoryID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	category.Name = req.Name
	if err := h.db.Save(&category).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update category"})
		return
	}

	c.JSON(http.StatusOK, CategoryResponse{
		ID:    category.ID,
		Name:  category.Name,
		Order: category.Order,
		Tasks: []TaskResponse{},
	})
}

// DeleteCategory deletes a category with its tasks and their progress
// @Summary Delete a category
// @Description Delete a category, its tasks, and their progress records (admin only, tenant-scoped)
// @Tags categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} map[string]string "Category deleted"
// @Failure 404 {object} map[string]string "Category not found"
// @Security BearerAuth
// @Router /categories/{id} [delete]
func (h *Handler) DeleteCategory(c *gin.Context) {
	categoryID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
		return
	}

	catOrg, err := models.CategoryOrganizationID(h.db, uint(categoryID))
	if err != nil || !auth.SameOrg(c, catOrg) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		var taskIDs []uint
		if err := tx.Model(&models.Task{}).Where("category_id = ?", categoryID).
			Pluck("id", &taskIDs).Error; err != nil {
			return err
		}
		if len(taskIDs) > 0 {
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.TaskProgress{}).Error; err != nil {
				return err
			}
			if err := tx.Where("category_id = ?", categoryID).Delete(&models.Task{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Category{}, categoryID).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}

// ReorderCategories applies a batch of category order updates. Every id
// must resolve to the caller's organization before anything is written;
// the writes run in one transaction.
// @Summary Reorder categories
// @Description Batch-update category ordering, all-or-nothing (admin only, tenant-scoped)
// @Tags categories
// @Accept json
// @Produce json
// @Param request body ReorderRequest true "Ordered id/order pairs"
// @Success 200 {object} map[string]string "Categories reordered"
// @Failure 404 {object} map[string]string "Category not found"
// @Security BearerAuth
// @Router /categories/reorder [patch]
func (h *Handler) ReorderCategories(c *gin.Context) {
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Validation pass: reject the whole batch before any write
	for _, item := range req.Items {
		catOrg, err := models.CategoryOrganizationID(h.db, item.ID)
		if err != nil || !auth.SameOrg(c, catOrg) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		for _, item := range req.Items {
			if err := tx.Model(&models.Category{}).Where("id = ?", item.ID).
				Update("sort_order", item.Order).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reorder categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Categories reordered"})
}
