package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/repository"
	"github.com/champquest/champquest-api/internal/utils"
)

var (
	ErrTeamNotFound      = errors.New("team not found")
	ErrTeamNameRequired  = errors.New("team name is required")
	ErrInvalidJoinCode   = errors.New("invalid join code")
	ErrAlreadyMember     = errors.New("user is already a member of the team")
	ErrNotTeamAdmin      = errors.New("only team admins can perform this action")
	ErrLastAdmin         = errors.New("cannot remove or demote the last admin")
	ErrCannotRemoveSelf  = errors.New("use a role change or leave flow instead of removing yourself")
	ErrMemberNotInTeam   = errors.New("user is not a member of the team")
	ErrInvalidMemberRole = errors.New("invalid member role")
)

// TeamService manages teams, memberships, and the per-team leaderboard.
type TeamService struct {
	teamRepo repository.TeamRepository
	activity *ActivityService
}

// NewTeamService creates a new TeamService
func NewTeamService(teamRepo repository.TeamRepository, activity *ActivityService) *TeamService {
	return &TeamService{
		teamRepo: teamRepo,
		activity: activity,
	}
}

// CreateTeam creates a team with a fresh join code and makes the creator
// its admin.
func (s *TeamService) CreateTeam(name string, creatorID uint64) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	code, err := utils.GenerateJoinCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate join code: %w", err)
	}

	team := &models.Team{
		Name:        name,
		Code:        code,
		CreatedByID: creatorID,
	}
	admin := &models.TeamMember{
		UserID:   creatorID,
		Role:     models.RoleAdmin,
		JoinedAt: time.Now(),
	}

	if err := s.teamRepo.Create(team, admin); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	return team, nil
}

// JoinTeam adds the user to the team matching the join code
func (s *TeamService) JoinTeam(code string, userID uint64) (*models.Team, error) {
	team, err := s.teamRepo.FindByCode(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidJoinCode
		}
		return nil, fmt.Errorf("failed to find team: %w", err)
	}

	if _, err := s.teamRepo.FindMember(team.ID, userID); err == nil {
		return nil, ErrAlreadyMember
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("failed to verify team membership: %w", err)
	}

	member := &models.TeamMember{
		TeamID:   team.ID,
		UserID:   userID,
		Role:     models.RoleMember,
		JoinedAt: time.Now(),
	}
	if err := s.teamRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add team member: %w", err)
	}

	s.activity.Record(&models.ActivityEntry{
		TeamID: team.ID,
		UserID: userID,
		Action: models.ActionTeamJoined,
	})

	return team, nil
}

// GetTeam returns a team the user belongs to
func (s *TeamService) GetTeam(teamID, userID uint64) (*models.Team, error) {
	if _, err := s.findMember(teamID, userID); err != nil {
		return nil, err
	}

	team, err := s.teamRepo.FindByID(teamID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to find team: %w", err)
	}

	return team, nil
}

// ListMyTeams returns every team the user is a member of
func (s *TeamService) ListMyTeams(userID uint64) ([]models.TeamMember, error) {
	memberships, err := s.teamRepo.ListMembersByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return memberships, nil
}

// ListMembers returns a team's members ordered by XP descending
func (s *TeamService) ListMembers(teamID, userID uint64) ([]models.TeamMember, error) {
	if _, err := s.findMember(teamID, userID); err != nil {
		return nil, err
	}

	members, err := s.teamRepo.ListMembers(teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	return members, nil
}

// UpdateSettings replaces a team's settings blob. Admin only.
func (s *TeamService) UpdateSettings(teamID, actorID uint64, settingsJSON string) (*models.Team, error) {
	if err := s.requireAdmin(teamID, actorID); err != nil {
		return nil, err
	}

	team, err := s.teamRepo.FindByID(teamID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to find team: %w", err)
	}

	team.SettingsJSON = settingsJSON
	if err := s.teamRepo.Update(team); err != nil {
		return nil, fmt.Errorf("failed to update team: %w", err)
	}

	return team, nil
}

// ChangeMemberRole promotes or demotes a member. Admin only, and the team
// always keeps at least one admin.
func (s *TeamService) ChangeMemberRole(teamID, actorID, targetUserID uint64, role models.TeamRole) (*models.TeamMember, error) {
	if role != models.RoleAdmin && role != models.RoleMember {
		return nil, ErrInvalidMemberRole
	}

	if err := s.requireAdmin(teamID, actorID); err != nil {
		return nil, err
	}

	target, err := s.teamRepo.FindMember(teamID, targetUserID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrMemberNotInTeam
		}
		return nil, fmt.Errorf("failed to find team member: %w", err)
	}

	if target.Role == role {
		return target, nil
	}

	if target.Role == models.RoleAdmin && role == models.RoleMember {
		admins, err := s.teamRepo.CountAdmins(teamID)
		if err != nil {
			return nil, fmt.Errorf("failed to count admins: %w", err)
		}
		if admins <= 1 {
			return nil, ErrLastAdmin
		}
	}

	target.Role = role
	if err := s.teamRepo.UpdateMember(target); err != nil {
		return nil, fmt.Errorf("failed to update team member: %w", err)
	}

	s.activity.Record(&models.ActivityEntry{
		TeamID: teamID,
		UserID: actorID,
		Action: models.ActionRoleChanged,
	})

	return target, nil
}

// RemoveMember kicks a member out of the team. Admin only, not usable on
// yourself, and the last admin cannot be removed.
func (s *TeamService) RemoveMember(teamID, actorID, targetUserID uint64) error {
	if err := s.requireAdmin(teamID, actorID); err != nil {
		return err
	}

	if actorID == targetUserID {
		return ErrCannotRemoveSelf
	}

	target, err := s.teamRepo.FindMember(teamID, targetUserID)
	if err != nil {
		if isNotFound(err) {
			return ErrMemberNotInTeam
		}
		return fmt.Errorf("failed to find team member: %w", err)
	}

	if target.Role == models.RoleAdmin {
		admins, err := s.teamRepo.CountAdmins(teamID)
		if err != nil {
			return fmt.Errorf("failed to count admins: %w", err)
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}

	if err := s.teamRepo.RemoveMember(teamID, targetUserID); err != nil {
		return fmt.Errorf("failed to remove team member: %w", err)
	}

	return nil
}

// Stats returns the team's aggregate task and XP totals
func (s *TeamService) Stats(teamID, userID uint64) (*repository.TeamStats, error) {
	if _, err := s.findMember(teamID, userID); err != nil {
		return nil, err
	}

	stats, err := s.teamRepo.Stats(teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute team stats: %w", err)
	}
	return stats, nil
}

// Activity returns one page of the team's journal, newest first
func (s *TeamService) Activity(teamID, userID uint64, params utils.PaginationParams) ([]models.ActivityEntry, int64, error) {
	if _, err := s.findMember(teamID, userID); err != nil {
		return nil, 0, err
	}

	return s.activity.ListActivity(teamID, params)
}

func (s *TeamService) findMember(teamID, userID uint64) (*models.TeamMember, error) {
	member, err := s.teamRepo.FindMember(teamID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotTeamMember
		}
		return nil, fmt.Errorf("failed to verify team membership: %w", err)
	}
	return member, nil
}

func (s *TeamService) requireAdmin(teamID, userID uint64) error {
	member, err := s.findMember(teamID, userID)
	if err != nil {
		return err
	}
	if member.Role != models.RoleAdmin {
		return ErrNotTeamAdmin
	}
	return nil
}
