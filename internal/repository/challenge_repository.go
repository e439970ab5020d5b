package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/rewards"
)

// ErrChallengeAlreadyCompleted is returned when the member already completed
// the challenge on the given calendar day.
var ErrChallengeAlreadyCompleted = errors.New("challenge repository: already completed today")

// BonusApplier computes the XP credit for a challenge completion. It runs
// inside the completion transaction after the member row has been locked.
type BonusApplier func(member *models.TeamMember) rewards.BonusResult

// ChallengeRepository defines the interface for challenge data access
type ChallengeRepository interface {
	// Create creates a challenge
	Create(challenge *models.Challenge) error

	// FindByID finds a challenge visible to the team: the team's own or a
	// global one
	FindByID(challengeID, teamID uint64) (*models.Challenge, error)

	// Update saves a challenge row
	Update(challenge *models.Challenge) error

	// Delete removes a team-owned challenge
	Delete(challengeID, teamID uint64) error

	// ListTeamActive returns the team's active challenges ordered by type
	// then creation
	ListTeamActive(teamID uint64) ([]models.Challenge, error)

	// ListGlobalActive returns every active global challenge ordered by ID
	ListGlobalActive() ([]models.Challenge, error)

	// ListAll returns the team's challenges plus globals, inactive included
	ListAll(teamID uint64) ([]models.Challenge, error)

	// CompletedOn reports whether the member completed the challenge on the
	// given calendar date
	CompletedOn(challengeID, teamID, userID uint64, date string) (bool, error)

	// CompleteWithBonus records the completion and credits the member's XP
	// atomically. A repeat completion on the same date gets
	// ErrChallengeAlreadyCompleted.
	CompleteWithBonus(challengeID, teamID, userID uint64, date string, apply BonusApplier) (*rewards.BonusResult, error)
}

// GormChallengeRepository is a GORM implementation of ChallengeRepository
type GormChallengeRepository struct {
	db *gorm.DB
}

// NewChallengeRepository creates a new ChallengeRepository
func NewChallengeRepository(db *gorm.DB) ChallengeRepository {
	return &GormChallengeRepository{db: db}
}

// Create creates a challenge
func (r *GormChallengeRepository) Create(challenge *models.Challenge) error {
	return r.db.Create(challenge).Error
}

// FindByID finds a challenge visible to the team: the team's own or a global
// one
func (r *GormChallengeRepository) FindByID(challengeID, teamID uint64) (*models.Challenge, error) {
	var challenge models.Challenge
	err := r.db.
		Where("team_id = ? OR is_global = ?", teamID, true).
		First(&challenge, challengeID).Error
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

// Update saves a challenge row
func (r *GormChallengeRepository) Update(challenge *models.Challenge) error {
	return r.db.Save(challenge).Error
}

// Delete removes a team-owned challenge
func (r *GormChallengeRepository) Delete(challengeID, teamID uint64) error {
	return r.db.
		Where("team_id = ?", teamID).
		Delete(&models.Challenge{}, challengeID).Error
}

// ListTeamActive returns the team's active challenges ordered by type then
// creation
func (r *GormChallengeRepository) ListTeamActive(teamID uint64) ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := r.db.
		Where("team_id = ? AND active = ?", teamID, true).
		Order("type, created_at").
		Find(&challenges).Error
	if err != nil {
		return nil, err
	}
	return challenges, nil
}

// ListGlobalActive returns every active global challenge. The stable ID
// order matters: the daily rotation indexes into it.
func (r *GormChallengeRepository) ListGlobalActive() ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := r.db.
		Where("is_global = ? AND active = ?", true, true).
		Order("id").
		Find(&challenges).Error
	if err != nil {
		return nil, err
	}
	return challenges, nil
}

// ListAll returns the team's challenges plus globals, inactive included
func (r *GormChallengeRepository) ListAll(teamID uint64) ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := r.db.
		Where("team_id = ? OR is_global = ?", teamID, true).
		Order("active DESC").
		Order("type, created_at").
		Preload("CreatedBy").
		Find(&challenges).Error
	if err != nil {
		return nil, err
	}
	return challenges, nil
}

// CompletedOn reports whether the member completed the challenge on the
// given calendar date
func (r *GormChallengeRepository) CompletedOn(challengeID, teamID, userID uint64, date string) (bool, error) {
	var count int64
	err := r.db.Model(&models.ChallengeCompletion{}).
		Where("challenge_id = ? AND team_id = ? AND user_id = ? AND completed_date = ?",
			challengeID, teamID, userID, date).
		Count(&count).Error
	return count > 0, err
}

// CompleteWithBonus records the completion and credits the member's XP
// atomically. The completion row is inserted before the member update, so a
// racing duplicate hits the unique index instead of double-crediting.
func (r *GormChallengeRepository) CompleteWithBonus(challengeID, teamID, userID uint64, date string, apply BonusApplier) (*rewards.BonusResult, error) {
	var result rewards.BonusResult

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ChallengeCompletion{}).
			Where("challenge_id = ? AND team_id = ? AND user_id = ? AND completed_date = ?",
				challengeID, teamID, userID, date).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrChallengeAlreadyCompleted
		}

		completion := &models.ChallengeCompletion{
			ChallengeID:   challengeID,
			TeamID:        teamID,
			UserID:        userID,
			CompletedDate: date,
			CreatedAt:     time.Now(),
		}
		if err := tx.Create(completion).Error; err != nil {
			return err
		}

		var member models.TeamMember
		if err := lockForUpdate(tx).
			Where("team_id = ? AND user_id = ?", teamID, userID).
			First(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMemberNotFound
			}
			return err
		}

		result = apply(&member)

		return tx.Model(&models.TeamMember{}).
			Where("team_id = ? AND user_id = ?", teamID, userID).
			Updates(map[string]interface{}{
				"xp":                  result.NewXP,
				"today_xp":            result.NewTodayXP,
				"last_completed_date": result.LastCompletedDate,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}
