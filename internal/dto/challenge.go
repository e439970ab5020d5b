package dto

import (
	"time"

	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/services"
)

// ChallengeDTO represents a challenge in API responses
type ChallengeDTO struct {
	ID             uint64               `json:"id"`
	Title          string               `json:"title"`
	Description    string               `json:"description,omitempty"`
	XPReward       int                  `json:"xp_reward"`
	Type           models.ChallengeType `json:"type"`
	Active         bool                 `json:"active"`
	IsGlobal       bool                 `json:"is_global"`
	CompletedToday *bool                `json:"completed_today,omitempty"`
	CreatedBy      string               `json:"created_by,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// ToChallengeDTO converts a Challenge model to ChallengeDTO
func ToChallengeDTO(challenge models.Challenge) ChallengeDTO {
	dto := ChallengeDTO{
		ID:          challenge.ID,
		Title:       challenge.Title,
		Description: challenge.Description,
		XPReward:    challenge.XPReward,
		Type:        challenge.Type,
		Active:      challenge.Active,
		IsGlobal:    challenge.IsGlobal,
		CreatedAt:   challenge.CreatedAt,
	}
	if challenge.CreatedBy != nil && challenge.CreatedBy.ID != 0 {
		dto.CreatedBy = challenge.CreatedBy.DisplayName
	}
	return dto
}

// ToChallengeDTOs converts a slice of challenges
func ToChallengeDTOs(challenges []models.Challenge) []ChallengeDTO {
	dtos := make([]ChallengeDTO, len(challenges))
	for i, challenge := range challenges {
		dtos[i] = ToChallengeDTO(challenge)
	}
	return dtos
}

// ToDailyChallengeDTOs converts the daily list, carrying the caller's
// completion flags
func ToDailyChallengeDTOs(daily []services.DailyChallenge) []ChallengeDTO {
	dtos := make([]ChallengeDTO, len(daily))
	for i, item := range daily {
		dto := ToChallengeDTO(item.Challenge)
		completed := item.CompletedToday
		dto.CompletedToday = &completed
		dtos[i] = dto
	}
	return dtos
}

