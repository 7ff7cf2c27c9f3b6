package buddies

import (
	"github.com/rampup-dev/rampup/pkg/rampup/models"
	"gorm.io/gorm"
)

// MenteeResponse represents a mentee user in relationship views
type MenteeResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// PreparationResponse represents a buddy preparation in relationship views
type PreparationResponse struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	Email        *string `json:"email,omitempty"`
	BuddyID      uint    `json:"buddy_id"`
	IsActive     bool    `json:"is_active"`
	LinkedUserID *uint   `json:"linked_user_id,omitempty"`
}

// RelationshipCounts aggregates the relationship views
type RelationshipCounts struct {
	ActiveUsers           int `json:"active_users"`
	ActivePreparations    int `json:"active_preparations"`
	CompletedPreparations int `json:"completed_preparations"`
	Total                 int `json:"total"`
}

// Relationships is the merged view of a mentor's three relationship paths
type Relationships struct {
	ActiveUsers           []MenteeResponse      `json:"active_users"`
	ActivePreparations    []PreparationResponse `json:"active_preparations"`
	CompletedPreparations []PreparationResponse `json:"completed_preparations"`
	Counts                RelationshipCounts    `json:"counts"`
}

// Resolve merges a mentor's three relationship paths: the legacy buddy_id
// field on users, the assignment table, and buddy preparations (primary
// mentor or the extra-mentor list). Mentees reachable via both the legacy
// field and an assignment row appear once; the overlap is an artifact of
// two generations of the same feature.
func Resolve(db *gorm.DB, buddyID uint) (*Relationships, error) {
	var mentees []models.User
	if err := db.
		Where("buddy_id = ?", buddyID).
		Or("id IN (?)", db.Model(&models.BuddyAssignment{}).Select("user_id").Where("buddy_id = ?", buddyID)).
		Find(&mentees).Error; err != nil {
		return nil, err
	}

	var preparations []models.BuddyPreparation
	if err := db.
		Where("buddy_id = ?", buddyID).
		Or("id IN (?)", db.Model(&models.BuddyPreparationBuddy{}).Select("preparation_id").Where("buddy_id = ?", buddyID)).
		Find(&preparations).Error; err != nil {
		return nil, err
	}

	result := &Relationships{
		ActiveUsers:           make([]MenteeResponse, 0, len(mentees)),
		ActivePreparations:    []PreparationResponse{},
		CompletedPreparations: []PreparationResponse{},
	}

	seen := make(map[uint]bool, len(mentees))
	for _, mentee := range mentees {
		if seen[mentee.ID] {
			continue
		}
		seen[mentee.ID] = true
		result.ActiveUsers = append(result.ActiveUsers, MenteeResponse{
			ID:    mentee.ID,
			Email: mentee.Email,
			Name:  mentee.Name,
		})
	}

	for _, prep := range preparations {
		view := PreparationResponse{
			ID:           prep.ID,
			Name:         prep.Name,
			Email:        prep.Email,
			BuddyID:      prep.BuddyID,
			IsActive:     prep.IsActive,
			LinkedUserID: prep.LinkedUserID,
		}
		if prep.IsActive {
			result.ActivePreparations = append(result.ActivePreparations, view)
		} else {
			result.CompletedPreparations = append(result.CompletedPreparations, view)
		}
	}

	result.Counts = RelationshipCounts{
		ActiveUsers:           len(result.ActiveUsers),
		ActivePreparations:    len(result.ActivePreparations),
		CompletedPreparations: len(result.CompletedPreparations),
	}
	result.Counts.Total = result.Counts.ActiveUsers + result.Counts.ActivePreparations + result.Counts.CompletedPreparations

	return result, nil
}

// IsBuddyOf reports whether buddyID mentors the subject via any path.
func IsBuddyOf(db *gorm.DB, buddyID uint, subjectType models.SubjectType, subjectID uint) bool {
	switch subjectType {
	case models.SubjectUser:
		var user models.User
		if err := db.First(&user, subjectID).Error; err != nil {
			return false
		}
		if user.BuddyID != nil && *user.BuddyID == buddyID {
			return true
		}
		var count int64
		db.Model(&models.BuddyAssignment{}).
			Where("user_id = ? AND buddy_id = ?", subjectID, buddyID).
			Count(&count)
		return count > 0
	case models.SubjectPreparation:
		var prep models.BuddyPreparation
		if err := db.First(&prep, subjectID).Error; err != nil {
			return false
		}
		if prep.BuddyID == buddyID {
			return true
		}
		var count int64
		db.Model(&models.BuddyPreparationBuddy{}).
			Where("preparation_id = ? AND buddy_id = ?", subjectID, buddyID).
			Count(&count)
		return count > 0
	}
	return false
}

// subjectOrganizationID resolves the owning organization of a progress
// subject: the user's org or the preparation's org.
func subjectOrganizationID(db *gorm.DB, subjectType models.SubjectType, subjectID uint) (uint, error) {
	switch subjectType {
	case models.SubjectUser:
		var user models.User
		if err := db.First(&user, subjectID).Error; err != nil {
			return 0, err
		}
		if user.OrganizationID == nil {
			return 0, gorm.ErrRecordNotFound
		}
		return *user.OrganizationID, nil
	default:
		var prep models.BuddyPreparation
		if err := db.First(&prep, subjectID).Error; err != nil {
			return 0, err
		}
		return prep.OrganizationID, nil
	}
}
