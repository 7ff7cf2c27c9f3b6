package checklist

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rampup-dev/rampup/pkg/rampup/auth"
	"github.com/rampup-dev/rampup/pkg/rampup/models"
	"gorm.io/gorm"
)

type templateTask struct {
	Title       string
	Description string
	IsBuddyTask bool
	Link        string
}

type templateCategory struct {
	Name  string
	Tasks []templateTask
}

// defaultTemplate is the built-in starter checklist applied to new
// organizations and by the template reset endpoint.
var defaultTemplate = []templateCategory{
	{
		Name: "First Day",
		Tasks: []templateTask{
			{Title: "Sign your contract", Description: "Review and sign the employment contract with HR."},
			{Title: "Office tour", Description: "Get shown around the office, including emergency exits."},
			{Title: "Meet your buddy", Description: "Your buddy introduces themselves and explains how they can help.", IsBuddyTask: true},
		},
	},
	{
		Name: "IT Setup",
		Tasks: []templateTask{
			{Title: "Receive your laptop", Description: "Pick up your laptop and peripherals from IT."},
			{Title: "Set up your accounts", Description: "Activate email, chat, and single sign-on."},
			{Title: "Enroll in 2FA", Description: "Register a second factor for all company accounts."},
		},
	},
	{
		Name: "First Week",
		Tasks: []templateTask{
			{Title: "Meet the team", Description: "Schedule short introductions with each team member."},
			{Title: "Read the handbook", Description: "Work through the employee handbook."},
			{Title: "Lunch with your buddy", Description: "Take your new hire out for lunch in the first week.", IsBuddyTask: true},
		},
	},
}

// knownTemplates maps template identifiers to their definitions. Only the
// built-in default exists today.
var knownTemplates = map[string][]templateCategory{
	"default": defaultTemplate,
}

// ApplyTemplate replaces the organization's checklist content with the
// given template and seeds employee progress rows, all inside tx.
func ApplyTemplate(tx *gorm.DB, orgID uint, template []templateCategory) error {
	checklist, err := models.ChecklistForOrganization(tx, orgID)
	if err != nil {
		return err
	}

	// Destroy existing categories, tasks, and their progress
	var categoryIDs []uint
	if err := tx.Model(&models.Category{}).Where("checklist_id = ?", checklist.ID).
		Pluck("id", &categoryIDs).Error; err != nil {
		return err
	}
	if len(categoryIDs) > 0 {
		var taskIDs []uint
		if err := tx.Model(&models.Task{}).Where("category_id IN ?", categoryIDs).
			Pluck("id", &taskIDs).Error; err != nil {
			return err
		}
		if len(taskIDs) > 0 {
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.TaskProgress{}).Error; err != nil {
				return err
			}
			if err := tx.Where("category_id IN ?", categoryIDs).Delete(&models.Task{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("checklist_id = ?", checklist.ID).Delete(&models.Category{}).Error; err != nil {
			return err
		}
	}

	// Recreate from the template
	for i, categoryDef := range template {
		category := models.Category{
			ChecklistID: checklist.ID,
			Name:        categoryDef.Name,
			Order:       i,
		}
		if err := tx.Create(&category).Error; err != nil {
			return err
		}
		for j, taskDef := range categoryDef.Tasks {
			task := models.Task{
				CategoryID:  category.ID,
				Title:       taskDef.Title,
				Description: taskDef.Description,
				Order:       j,
				IsBuddyTask: taskDef.IsBuddyTask,
				Link:        taskDef.Link,
			}
			if err := tx.Create(&task).Error; err != nil {
				return err
			}
			if err := seedTaskProgress(tx, &task, orgID); err != nil {
				return err
			}
		}
	}
	return nil
}

// ApplyDefaultTemplate applies the built-in default template, used when
// bootstrapping a new organization.
func ApplyDefaultTemplate(tx *gorm.DB, orgID uint) error {
	return ApplyTemplate(tx, orgID, defaultTemplate)
}

// ResetFromTemplate destroys the organization's checklist content and
// recreates it from a named built-in template
// @Summary Reset the checklist from a template
// @Description Destroy and recreate all categories and tasks from a built-in template (admin only)
// @Tags templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} map[string]string "Checklist reset"
// @Failure 404 {object} map[string]string "Template not found"
// @Security BearerAuth
// @Router /templates/{id}/reset [post]
func (h *Handler) ResetFromTemplate(c *gin.Context) {
	template, ok := knownTemplates[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return
	}

	orgID, ok := auth.GetOrgID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Checklist not found"})
		return
	}

	if err := h.db.Transaction(func(tx *gorm.DB) error {
		return ApplyTemplate(tx, orgID, template)
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset checklist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Checklist reset"})
}
