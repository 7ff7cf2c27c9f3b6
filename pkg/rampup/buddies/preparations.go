package buddies

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rampup-dev/rampup/pkg/rampup/auth"
	"github.com/rampup-dev/rampup/pkg/rampup/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreatePreparationRequest represents the request to pre-register a
// not-yet-hired employee with a mentor
type CreatePreparationRequest struct {
	Name          string  `json:"name" binding:"required,min=1,max=200"`
	Email         *string `json:"email" binding:"omitempty,email"`
	BuddyID       uint    `json:"buddy_id" binding:"required"`
	ExtraBuddyIDs []uint  `json:"extra_buddy_ids"`
}

// LinkPreparationRequest represents the request to link a preparation to a
// real user account
type LinkPreparationRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// ListPreparations returns the organization's buddy preparations
// @Summary List buddy preparations
// @Description List the organization's buddy preparations, active and completed (admin only)
// @Tags buddies
// @Produce json
// @Success 200 {array} PreparationResponse
// @Security BearerAuth
// @Router /buddy-preparations [get]
func (h *Handler) ListPreparations(c *gin.Context) {
	orgID, ok := auth.GetOrgID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	var preparations []models.BuddyPreparation
	if err := h.db.Where("organization_id = ?", orgID).
		Order("created_at DESC").Find(&preparations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch preparations"})
		return
	}

	responses := make([]PreparationResponse, len(preparations))
	for i, prep := range preparations {
		responses[i] = PreparationResponse{
			ID:           prep.ID,
			Name:         prep.Name,
			Email:        prep.Email,
			BuddyID:      prep.BuddyID,
			IsActive:     prep.IsActive,
			LinkedUserID: prep.LinkedUserID,
		}
	}

	c.JSON(http.StatusOK, responses)
}

// CreatePreparation pre-registers a not-yet-hired employee with a mentor
// @Summary Create a buddy preparation
// @Description Pre-register a not-yet-hired employee with a mentor (admin only)
// @Tags buddies
// @Accept json
// @Produce json
// @Param request body CreatePreparationRequest true "Preparation details"
// @Success 201 {object} PreparationResponse
// @Failure 404 {object} map[string]string "Buddy not found"
// @Security BearerAuth
// @Router /buddy-preparations [post]
func (h *Handler) CreatePreparation(c *gin.Context) {
	var req CreatePreparationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orgID, ok := auth.GetOrgID(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	if _, ok := h.orgUser(c, req.BuddyID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Buddy not found"})
		return
	}
	for _, extraID := range req.ExtraBuddyIDs {
		if _, ok := h.orgUser(c, extraID); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Buddy not found"})
			return
		}
	}

	prep := models.BuddyPreparation{
		OrganizationID: orgID,
		Name:           req.Name,
		Email:          req.Email,
		BuddyID:        req.BuddyID,
		InviteToken:    uuid.NewString(),
		IsActive:       true,
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&prep).Error; err != nil {
			return err
		}
		for _, extraID := range req.ExtraBuddyIDs {
			if extraID == req.BuddyID {
				continue
			}
			extra := models.BuddyPreparationBuddy{
				PreparationID: prep.ID,
				BuddyID:       extraID,
			}
			if err := tx.Create(&extra).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create preparation"})
		return
	}

	c.JSON(http.StatusCreated, PreparationResponse{
		ID:       prep.ID,
		Name:     prep.Name,
		Email:    prep.Email,
		BuddyID:  prep.BuddyID,
		IsActive: prep.IsActive,
	})
}

// LinkPreparation attaches a preparation to a real user account. This is
// the one-way IsActive transition: preparation progress rows are re-keyed
// to the user, the legacy buddy field is set, and the preparation is never
// reactivated.
// @Summary Link a preparation to a user
// @Description Attach a buddy preparation to an onboarded user account; migrates progress and completes the preparation (admin only)
// @Tags buddies
// @Accept json
// @Produce json
// @Param id path int true "Preparation ID"
// @Param request body LinkPreparationRequest true "Target user"
// @Success 200 {object} PreparationResponse
// @Failure 404 {object} map[string]string "Preparation not found"
// @Failure 409 {object} map[string]string "Preparation already linked"
// @Security BearerAuth
// @Router /buddy-preparations/{id}/link [post]
func (h *Handler) LinkPreparation(c *gin.Context) {
	prepID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid preparation ID"})
		return
	}

	var req LinkPreparationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var prep models.BuddyPreparation
	if err := h.db.First(&prep, prepID).Error; err != nil || !auth.SameOrg(c, prep.OrganizationID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Preparation not found"})
		return
	}

	if !prep.IsActive {
		c.JSON(http.StatusConflict, gin.H{"error": "Preparation already linked"})
		return
	}

	user, ok := h.orgUser(c, req.UserID)
	if !ok || *user.OrganizationID != prep.OrganizationID {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		// Re-key the preparation's progress rows to the user. Upsert keeps
		// any flag the user already completed themselves.
		var rows []models.TaskProgress
		if err := tx.Where("subject_type = ? AND subject_id = ?",
			models.SubjectPreparation, prep.ID).Find(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			migrated := models.TaskProgress{
				SubjectType: models.SubjectUser,
				SubjectID:   user.ID,
				TaskID:      row.TaskID,
				Completed:   row.Completed,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "subject_type"}, {Name: "subject_id"}, {Name: "task_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"completed", "updated_at"}),
			}).Create(&migrated).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("subject_type = ? AND subject_id = ?",
			models.SubjectPreparation, prep.ID).Delete(&models.TaskProgress{}).Error; err != nil {
			return err
		}

		// Terminal transition
		prep.IsActive = false
		prep.LinkedUserID = &user.ID
		if err := tx.Save(&prep).Error; err != nil {
			return err
		}

		// Carry the primary mentor onto the legacy field
		user.BuddyID = &prep.BuddyID
		return tx.Save(user).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to link preparation"})
		return
	}

	c.JSON(http.StatusOK, PreparationResponse{
		ID:           prep.ID,
		Name:         prep.Name,
		Email:        prep.Email,
		BuddyID:      prep.BuddyID,
		IsActive:     prep.IsActive,
		LinkedUserID: prep.LinkedUserID,
	})
}
