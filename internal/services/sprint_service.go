package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/repository"
)

var (
	ErrSprintNotFound       = errors.New("sprint not found")
	ErrSprintFieldsRequired = errors.New("sprint name, start date, and end date are required")
	ErrInvalidSprintStatus  = errors.New("invalid sprint status")
)

// SprintService manages sprint time-boxes and sprint-task membership.
// Sprints are purely organizational: putting a task in a sprint never
// changes its lifecycle or rewards.
type SprintService struct {
	sprintRepo repository.SprintRepository
	taskRepo   repository.TaskRepository
	teamRepo   repository.TeamRepository
}

// NewSprintService creates a new SprintService
func NewSprintService(
	sprintRepo repository.SprintRepository,
	taskRepo repository.TaskRepository,
	teamRepo repository.TeamRepository,
) *SprintService {
	return &SprintService{
		sprintRepo: sprintRepo,
		taskRepo:   taskRepo,
		teamRepo:   teamRepo,
	}
}

// ListSprints returns the team's sprints with task progress counts
func (s *SprintService) ListSprints(teamID, userID uint64) ([]repository.SprintSummary, error) {
	if err := s.checkMember(teamID, userID); err != nil {
		return nil, err
	}

	summaries, err := s.sprintRepo.ListByTeam(teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sprints: %w", err)
	}
	return summaries, nil
}

// CreateSprintInput represents input for creating a sprint
type CreateSprintInput struct {
	TeamID    uint64
	ActorID   uint64
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Goals     []string
}

// CreateSprint creates a sprint. Admin only.
func (s *SprintService) CreateSprint(input CreateSprintInput) (*models.Sprint, error) {
	if err := s.requireAdmin(input.TeamID, input.ActorID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" || input.StartDate.IsZero() || input.EndDate.IsZero() {
		return nil, ErrSprintFieldsRequired
	}

	goals := input.Goals
	if goals == nil {
		goals = []string{}
	}
	goalsJSON, err := json.Marshal(goals)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sprint goals: %w", err)
	}

	sprint := &models.Sprint{
		TeamID:      input.TeamID,
		Name:        name,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		GoalsJSON:   string(goalsJSON),
		Status:      models.SprintStatusActive,
		CreatedByID: input.ActorID,
	}
	if err := s.sprintRepo.Create(sprint); err != nil {
		return nil, fmt.Errorf("failed to create sprint: %w", err)
	}

	return sprint, nil
}

// GetSprint returns one sprint and its tasks
func (s *SprintService) GetSprint(teamID, sprintID, userID uint64) (*models.Sprint, []models.Task, error) {
	if err := s.checkMember(teamID, userID); err != nil {
		return nil, nil, err
	}

	sprint, err := s.findSprint(teamID, sprintID)
	if err != nil {
		return nil, nil, err
	}

	tasks, err := s.sprintRepo.ListTasks(sprintID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list sprint tasks: %w", err)
	}

	return sprint, tasks, nil
}

// UpdateSprintInput represents input for editing a sprint. Nil fields stay
// unchanged.
type UpdateSprintInput struct {
	Name   *string
	Status *string
	Goals  []string
}

// UpdateSprint edits a sprint. Admin only.
func (s *SprintService) UpdateSprint(teamID, sprintID, actorID uint64, input UpdateSprintInput) (*models.Sprint, error) {
	if err := s.requireAdmin(teamID, actorID); err != nil {
		return nil, err
	}

	sprint, err := s.findSprint(teamID, sprintID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrSprintFieldsRequired
		}
		sprint.Name = name
	}
	if input.Status != nil {
		status := models.SprintStatus(*input.Status)
		if status != models.SprintStatusActive && status != models.SprintStatusCompleted {
			return nil, ErrInvalidSprintStatus
		}
		sprint.Status = status
	}
	if input.Goals != nil {
		goalsJSON, err := json.Marshal(input.Goals)
		if err != nil {
			return nil, fmt.Errorf("failed to encode sprint goals: %w", err)
		}
		sprint.GoalsJSON = string(goalsJSON)
	}

	if err := s.sprintRepo.Update(sprint); err != nil {
		return nil, fmt.Errorf("failed to update sprint: %w", err)
	}

	return sprint, nil
}

// AddTask links a task into the sprint. The task has to belong to the same
// team; re-adding is not an error.
func (s *SprintService) AddTask(teamID, sprintID, taskID, userID uint64) error {
	if err := s.checkMember(teamID, userID); err != nil {
		return err
	}

	if _, err := s.findSprint(teamID, sprintID); err != nil {
		return err
	}

	if _, err := s.taskRepo.FindByIDInTeam(taskID, teamID); err != nil {
		if isNotFound(err) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if err := s.sprintRepo.AddTask(sprintID, taskID); err != nil {
		return fmt.Errorf("failed to add task to sprint: %w", err)
	}
	return nil
}

// RemoveTask unlinks a task from the sprint. Idempotent.
func (s *SprintService) RemoveTask(teamID, sprintID, taskID, userID uint64) error {
	if err := s.checkMember(teamID, userID); err != nil {
		return err
	}

	if _, err := s.findSprint(teamID, sprintID); err != nil {
		return err
	}

	if err := s.sprintRepo.RemoveTask(sprintID, taskID); err != nil {
		return fmt.Errorf("failed to remove task from sprint: %w", err)
	}
	return nil
}

func (s *SprintService) findSprint(teamID, sprintID uint64) (*models.Sprint, error) {
	sprint, err := s.sprintRepo.FindByID(sprintID, teamID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSprintNotFound
		}
		return nil, fmt.Errorf("failed to find sprint: %w", err)
	}
	return sprint, nil
}

func (s *SprintService) checkMember(teamID, userID uint64) error {
	if _, err := s.teamRepo.FindMember(teamID, userID); err != nil {
		if isNotFound(err) {
			return ErrNotTeamMember
		}
		return fmt.Errorf("failed to verify team membership: %w", err)
	}
	return nil
}

func (s *SprintService) requireAdmin(teamID, userID uint64) error {
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
