package models

import "gorm.io/gorm"

// ChecklistForOrganization returns the organization's checklist. Exactly one
// exists per organization; every lookup goes through this helper.
func ChecklistForOrganization(db *gorm.DB, orgID uint) (*Checklist, error) {
	var checklist Checklist
	if err := db.Where("organization_id = ?", orgID).First(&checklist).Error; err != nil {
		return nil, err
	}
	return &checklist, nil
}

// CategoryOrganizationID resolves the owning organization of a category by
// walking Category -> Checklist -> Organization. Categories carry no org id
// of their own, so ownership checks must follow this chain.
func CategoryOrganizationID(db *gorm.DB, categoryID uint) (uint, error) {
	var category Category
	if err := db.First(&category, categoryID).Error; err != nil {
		return 0, err
	}
	var checklist Checklist
	if err := db.First(&checklist, category.ChecklistID).Error; err != nil {
		return 0, err
	}
	return checklist.OrganizationID, nil
}

// TaskOrganizationID resolves the owning organization of a task by walking
// Task -> Category -> Checklist -> Organization.
func TaskOrganizationID(db *gorm.DB, taskID uint) (uint, error) {
	var task Task
	if err := db.First(&task, taskID).Error; err != nil {
		return 0, err
	}
	return CategoryOrganizationID(db, task.CategoryID)
}
