package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/repository"
	"github.com/champquest/champquest-api/internal/rewards"
)

var (
	ErrChallengeNotFound         = errors.New("challenge not found")
	ErrChallengeTitleRequired    = errors.New("challenge title is required")
	ErrChallengeAlreadyCompleted = errors.New("challenge already completed today")
)

// dailyGlobalCount is how many global challenges rotate into each day's list.
const dailyGlobalCount = 3

// DefaultChallengeXP is the reward when a challenge is created without one.
const DefaultChallengeXP = 20

// ChallengeService manages side-quest challenges and their daily rotation.
type ChallengeService struct {
	challengeRepo repository.ChallengeRepository
	teamRepo      repository.TeamRepository
}

// NewChallengeService creates a new ChallengeService
func NewChallengeService(challengeRepo repository.ChallengeRepository, teamRepo repository.TeamRepository) *ChallengeService {
	return &ChallengeService{
		challengeRepo: challengeRepo,
		teamRepo:      teamRepo,
	}
}

// DailyChallenge is one challenge in today's list, with the caller's
// completion flag.
type DailyChallenge struct {
	Challenge      models.Challenge
	CompletedToday bool
}

// ListDaily returns the team's active challenges plus today's slice of the
// global rotation. The rotation is deterministic: day-of-year picks
// consecutive entries from the global list, so every team sees the same
// globals on the same day.
func (s *ChallengeService) ListDaily(teamID, userID uint64, now time.Time) ([]DailyChallenge, error) {
	if err := s.checkMember(teamID, userID); err != nil {
		return nil, err
	}

	teamChallenges, err := s.challengeRepo.ListTeamActive(teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team challenges: %w", err)
	}

	globals, err := s.challengeRepo.ListGlobalActive()
	if err != nil {
		return nil, fmt.Errorf("failed to list global challenges: %w", err)
	}

	challenges := append(teamChallenges, rotateDaily(globals, now)...)

	date := now.Format(rewards.DateLayout)
	daily := make([]DailyChallenge, 0, len(challenges))
	for _, challenge := range challenges {
		completed, err := s.challengeRepo.CompletedOn(challenge.ID, teamID, userID, date)
		if err != nil {
			return nil, fmt.Errorf("failed to check challenge completion: %w", err)
		}
		daily = append(daily, DailyChallenge{Challenge: challenge, CompletedToday: completed})
	}

	return daily, nil
}

// rotateDaily picks up to dailyGlobalCount consecutive globals starting at
// an offset derived from the day of year.
func rotateDaily(globals []models.Challenge, now time.Time) []models.Challenge {
	if len(globals) == 0 {
		return nil
	}

	count := dailyGlobalCount
	if len(globals) < count {
		count = len(globals)
	}

	start := now.YearDay() % len(globals)
	picked := make([]models.Challenge, 0, count)
	for i := 0; i < count; i++ {
		picked = append(picked, globals[(start+i)%len(globals)])
	}
	return picked
}

// ListAll returns the team's challenges plus globals, inactive included, for
// admin management.
func (s *ChallengeService) ListAll(teamID, actorID uint64) ([]models.Challenge, error) {
	if err := s.requireAdmin(teamID, actorID); err != nil {
		return nil, err
	}

	challenges, err := s.challengeRepo.ListAll(teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	return challenges, nil
}

// CreateChallengeInput represents input for creating a challenge
type CreateChallengeInput struct {
	TeamID      uint64
	ActorID     uint64
	Title       string
	Description string
	XPReward    int
	Type        models.ChallengeType
}

// CreateChallenge creates a team challenge. Unknown types fall back to the
// task type; a missing reward falls back to DefaultChallengeXP.
func (s *ChallengeService) CreateChallenge(input CreateChallengeInput) (*models.Challenge, error) {
	if err := s.requireAdmin(input.TeamID, input.ActorID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrChallengeTitleRequired
	}

	challengeType := input.Type
	if !challengeType.Valid() {
		challengeType = models.ChallengeTypeTask
	}

	xp := input.XPReward
	if xp <= 0 {
		xp = DefaultChallengeXP
	}

	teamID := input.TeamID
	actorID := input.ActorID
	challenge := &models.Challenge{
		TeamID:      &teamID,
		Title:       title,
		Description: input.Description,
		XPReward:    xp,
		Type:        challengeType,
		Active:      true,
		CreatedByID: &actorID,
	}
	if err := s.challengeRepo.Create(challenge); err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	return challenge, nil
}

// UpdateChallengeInput represents input for editing a challenge. Nil fields
// stay unchanged.
type UpdateChallengeInput struct {
	Title       *string
	Description *string
	XPReward    *int
	Type        *models.ChallengeType
	Active      *bool
}

// UpdateChallenge edits a team-owned challenge. Global challenges are not
// editable through a team.
func (s *ChallengeService) UpdateChallenge(teamID, challengeID, actorID uint64, input UpdateChallengeInput) (*models.Challenge, error) {
	if err := s.requireAdmin(teamID, actorID); err != nil {
		return nil, err
	}

	challenge, err := s.findTeamChallenge(teamID, challengeID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrChallengeTitleRequired
		}
		challenge.Title = title
	}
	if input.Description != nil {
		challenge.Description = *input.Description
	}
	if input.XPReward != nil && *input.XPReward > 0 {
		challenge.XPReward = *input.XPReward
	}
	if input.Type != nil && input.Type.Valid() {
		challenge.Type = *input.Type
	}
	if input.Active != nil {
		challenge.Active = *input.Active
	}

	if err := s.challengeRepo.Update(challenge); err != nil {
		return nil, fmt.Errorf("failed to update challenge: %w", err)
	}

	return challenge, nil
}

// DeleteChallenge removes a team-owned challenge. Idempotent; globals are
// out of reach.
func (s *ChallengeService) DeleteChallenge(teamID, challengeID, actorID uint64) error {
	if err := s.requireAdmin(teamID, actorID); err != nil {
		return err
	}

	if err := s.challengeRepo.Delete(challengeID, teamID); err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

// Complete records the member's completion for today and credits the
// challenge's XP. Once per member per team per calendar day.
func (s *ChallengeService) Complete(teamID, challengeID, userID uint64, now time.Time) (*rewards.BonusResult, error) {
	if err := s.checkMember(teamID, userID); err != nil {
		return nil, err
	}

	challenge, err := s.challengeRepo.FindByID(challengeID, teamID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to find challenge: %w", err)
	}

	date := now.Format(rewards.DateLayout)
	result, err := s.challengeRepo.CompleteWithBonus(challengeID, teamID, userID, date, func(member *models.TeamMember) rewards.BonusResult {
		return rewards.ApplyBonus(member, challenge.XPReward, date)
	})
	if err != nil {
		if errors.Is(err, repository.ErrChallengeAlreadyCompleted) {
			return nil, ErrChallengeAlreadyCompleted
		}
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, ErrNotTeamMember
		}
		return nil, fmt.Errorf("failed to complete challenge: %w", err)
	}

	return result, nil
}

// findTeamChallenge resolves a challenge owned by the team. Globals come
// back as not found.
func (s *ChallengeService) findTeamChallenge(teamID, challengeID uint64) (*models.Challenge, error) {
	challenge, err := s.challengeRepo.FindByID(challengeID, teamID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to find challenge: %w", err)
	}
	if challenge.TeamID == nil || *challenge.TeamID != teamID {
		return nil, ErrChallengeNotFound
	}
	return challenge, nil
}

func (s *ChallengeService) checkMember(teamID, userID uint64) error {
	if _, err := s.teamRepo.FindMember(teamID, userID); err != nil {
		if isNotFound(err) {
			return ErrNotTeamMember
		}
		return fmt.Errorf("failed to verify team membership: %w", err)
	}
	return nil
}

func (s *ChallengeService) requireAdmin(teamID, userID uint64) error {
	member, err := s.teamRepo.FindMember(teamID, userID)
	if err != nil {
		if isNotFound(err) {
			return ErrNotTeamMember
		}
		return fmt.Errorf("failed to verify team membership: %w", err)
	}
	if member.Role != models.RoleAdmin {
		return ErrNotTeamAdmin
	}
	return nil
}
