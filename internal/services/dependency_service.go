package services

import (
	"errors"
	"fmt"

	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/repository"
)

var (
	ErrSelfDependency      = errors.New("a task cannot depend on itself")
	ErrDuplicateDependency = errors.New("dependency already exists")
	ErrDependencyCycle     = errors.New("dependency would create a cycle")
)

// DependencyService manages the advisory dependency graph between a team's
// tasks. Edges never gate completion; they only surface what blocks what.
type DependencyService struct {
	depRepo  repository.DependencyRepository
	taskRepo repository.TaskRepository
	teamRepo repository.TeamRepository
}

// NewDependencyService creates a new DependencyService
func NewDependencyService(
	depRepo repository.DependencyRepository,
	taskRepo repository.TaskRepository,
	teamRepo repository.TeamRepository,
) *DependencyService {
	return &DependencyService{
		depRepo:  depRepo,
		taskRepo: taskRepo,
		teamRepo: teamRepo,
	}
}

// TaskDependencies lists both directions of a task's edges.
type TaskDependencies struct {
	BlockedBy []repository.DependencyLink `json:"blockedBy"`
	Blocking  []repository.DependencyLink `json:"blocking"`
}

// AddDependency records that taskID depends on dependsOnID. Both tasks must
// belong to the team, the edge must not be a self-loop or a duplicate, and
// it must not close a cycle in the team's graph.
func (s *DependencyService) AddDependency(teamID, taskID, dependsOnID, actorID uint64) (*models.TaskDependency, error) {
	if err := s.ensureMember(teamID, actorID); err != nil {
		return nil, err
	}

	if taskID == dependsOnID {
		return nil, ErrSelfDependency
	}

	if err := s.ensureTask(teamID, taskID); err != nil {
		return nil, err
	}
	if err := s.ensureTask(teamID, dependsOnID); err != nil {
		return nil, err
	}

	dep := &models.TaskDependency{
		TeamID:      teamID,
		TaskID:      taskID,
		DependsOnID: dependsOnID,
	}

	if err := s.depRepo.Create(dep); err != nil {
		if errors.Is(err, repository.ErrDuplicateDependency) {
			return nil, ErrDuplicateDependency
		}
		if errors.Is(err, repository.ErrDependencyCycle) {
			return nil, ErrDependencyCycle
		}
		return nil, fmt.Errorf("failed to create dependency: %w", err)
	}

	return dep, nil
}

// RemoveDependency deletes an edge. Removing an edge that is already gone
// succeeds.
func (s *DependencyService) RemoveDependency(teamID, taskID, depID, actorID uint64) error {
	if err := s.ensureMember(teamID, actorID); err != nil {
		return err
	}

	if err := s.depRepo.Remove(teamID, depID, taskID); err != nil {
		return fmt.Errorf("failed to remove dependency: %w", err)
	}

	return nil
}

// GetDependencies returns the tasks blocking taskID and the tasks it blocks
func (s *DependencyService) GetDependencies(teamID, taskID, actorID uint64) (*TaskDependencies, error) {
	if err := s.ensureMember(teamID, actorID); err != nil {
		return nil, err
	}

	if err := s.ensureTask(teamID, taskID); err != nil {
		return nil, err
	}

	blockedBy, blocking, err := s.depRepo.ListForTask(teamID, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dependencies: %w", err)
	}

	return &TaskDependencies{BlockedBy: blockedBy, Blocking: blocking}, nil
}

func (s *DependencyService) ensureMember(teamID, userID uint64) error {
	if _, err := s.teamRepo.FindMember(teamID, userID); err != nil {
		if isNotFound(err) {
			return ErrNotTeamMember
		}
		return fmt.Errorf("failed to verify team membership: %w", err)
	}
	return nil
}

func (s *DependencyService) ensureTask(teamID, taskID uint64) error {
	if _, err := s.taskRepo.FindByIDInTeam(taskID, teamID); err != nil {
		if isNotFound(err) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}
	return nil
}
