package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/champquest/champquest-api/internal/events"
	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/repository"
	"github.com/champquest/champquest-api/internal/rewards"
)

var (
	ErrNotTeamMember        = errors.New("user is not a member of the team")
	ErrTaskNotFound         = errors.New("task not found")
	ErrNotCreatorOrAdmin    = errors.New("only the task creator or a team admin can perform this action")
	ErrTitleRequired        = errors.New("title is required")
	ErrTitleEmpty           = errors.New("title cannot be empty")
	ErrInvalidStatus        = errors.New("invalid task status")
	ErrInvalidPriority      = errors.New("invalid task priority")
	ErrInvalidAssignee      = errors.New("assignee is not a member of the team")
	ErrTaskAlreadyCompleted = errors.New("task is already completed")
)

// TaskService owns the task lifecycle: creation, edits, the status state
// machine, and the reward issuance triggered by completion.
type TaskService struct {
	taskRepo   repository.TaskRepository
	teamRepo   repository.TeamRepository
	userRepo   repository.UserRepository
	activity   *ActivityService
	dispatcher events.Dispatcher
}

// NewTaskService creates a new TaskService
func NewTaskService(
	taskRepo repository.TaskRepository,
	teamRepo repository.TeamRepository,
	userRepo repository.UserRepository,
	activity *ActivityService,
	dispatcher events.Dispatcher,
) *TaskService {
	return &TaskService{
		taskRepo:   taskRepo,
		teamRepo:   teamRepo,
		userRepo:   userRepo,
		activity:   activity,
		dispatcher: dispatcher,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	TeamID       uint64
	CreatorID    uint64
	Title        string
	Priority     models.TaskPriority
	Category     string
	Notes        string
	DueDate      *time.Time
	AssignedToID *uint64
}

// CreateTask creates a new task in todo status
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}

	if err := s.ensureTeamMember(input.TeamID, input.CreatorID); err != nil {
		return nil, err
	}

	if input.Priority == "" {
		input.Priority = models.PriorityP2
	}
	if !input.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	if input.AssignedToID != nil {
		if err := s.ensureTeamMember(input.TeamID, *input.AssignedToID); err != nil {
			return nil, ErrInvalidAssignee
		}
	}

	task := &models.Task{
		TeamID:          input.TeamID,
		Title:           strings.TrimSpace(input.Title),
		Priority:        input.Priority,
		Status:          models.TaskStatusTodo,
		Category:        input.Category,
		Notes:           input.Notes,
		DueDate:         input.DueDate,
		AssignedToID:    input.AssignedToID,
		CreatedByID:     input.CreatorID,
		StatusUpdatedAt: time.Now(),
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.activity.Record(&models.ActivityEntry{
		TeamID:    task.TeamID,
		UserID:    input.CreatorID,
		Action:    models.ActionTaskCreated,
		TaskID:    &task.ID,
		TaskTitle: task.Title,
	})

	s.dispatcher.Dispatch(task.TeamID, events.EventTaskCreated, map[string]interface{}{
		"userName":  s.displayName(input.CreatorID),
		"taskTitle": task.Title,
	})

	return s.taskRepo.FindByIDInTeam(task.ID, task.TeamID, "CreatedBy", "AssignedTo")
}

// ListTasks returns a team's tasks, optionally restricted to one assignee
func (s *TaskService) ListTasks(teamID, actorID uint64, mineOnly bool) ([]models.Task, error) {
	if err := s.ensureTeamMember(teamID, actorID); err != nil {
		return nil, err
	}

	filter := repository.TaskFilter{TeamID: teamID}
	if mineOnly {
		filter.AssignedToID = &actorID
	}

	tasks, err := s.taskRepo.ListByTeam(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, nil
}

// GetTask returns one task with related data
func (s *TaskService) GetTask(teamID, taskID, actorID uint64) (*models.Task, error) {
	if err := s.ensureTeamMember(teamID, actorID); err != nil {
		return nil, err
	}

	return s.findTask(teamID, taskID, "CreatedBy", "AssignedTo", "CompletedBy")
}

// ListOverdueTasks returns incomplete tasks past their due date
func (s *TaskService) ListOverdueTasks(teamID, actorID uint64) ([]models.Task, error) {
	if err := s.ensureTeamMember(teamID, actorID); err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.ListOverdue(teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue tasks: %w", err)
	}

	return tasks, nil
}

// SetStatusInput represents a requested status transition
type SetStatusInput struct {
	TeamID      uint64
	TaskID      uint64
	ActorID     uint64
	Status      string
	BlockerNote *string
}

// StatusChangeResult reports the outcome of a transition, including reward
// details when the transition completed the task.
type StatusChangeResult struct {
	Task      *models.Task
	Rewarded  bool
	XPEarned  int
	NewXP     int
	Streak    int
	LeveledUp bool
	NewLevel  int
	NewRank   string
}

// SetStatus validates and applies a status transition.
//
// Entering done on a not-yet-completed task awards XP exactly once: the
// status check, the task's completion fields, and the member's reward
// aggregate are written in one transaction, and the loser of a concurrent
// double-complete gets ErrTaskAlreadyCompleted. Leaving done clears the
// completion fields without retracting XP. Blocker metadata exists only
// while the task is blocked.
func (s *TaskService) SetStatus(input SetStatusInput) (*StatusChangeResult, error) {
	status, ok := models.ParseTaskStatus(input.Status)
	if !ok {
		return nil, ErrInvalidStatus
	}

	if err := s.ensureTeamMember(input.TeamID, input.ActorID); err != nil {
		return nil, err
	}

	task, err := s.findTask(input.TeamID, input.TaskID)
	if err != nil {
		return nil, err
	}

	if status == models.TaskStatusDone {
		return s.complete(task, input.ActorID)
	}

	return s.transition(task, status, input.ActorID, input.BlockerNote)
}

// CompleteTask is legacy-model sugar for SetStatus(done).
func (s *TaskService) CompleteTask(teamID, taskID, actorID uint64) (*StatusChangeResult, error) {
	return s.SetStatus(SetStatusInput{
		TeamID:  teamID,
		TaskID:  taskID,
		ActorID: actorID,
		Status:  string(models.TaskStatusDone),
	})
}

// UncompleteTask is legacy-model sugar for SetStatus(todo).
func (s *TaskService) UncompleteTask(teamID, taskID, actorID uint64) (*StatusChangeResult, error) {
	return s.SetStatus(SetStatusInput{
		TeamID:  teamID,
		TaskID:  taskID,
		ActorID: actorID,
		Status:  string(models.TaskStatusTodo),
	})
}

// complete handles the transition into done.
func (s *TaskService) complete(task *models.Task, actorID uint64) (*StatusChangeResult, error) {
	if task.Completed {
		// Completed implies status done, but heal the pair if a legacy row
		// disagrees. No reward either way.
		if task.Status != models.TaskStatusDone {
			task.Status = models.TaskStatusDone
			task.StatusUpdatedAt = time.Now()
			if err := s.taskRepo.Update(task); err != nil {
				return nil, fmt.Errorf("failed to update status: %w", err)
			}
		}
		return nil, ErrTaskAlreadyCompleted
	}

	today := time.Now().Format(rewards.DateLayout)

	updated, result, err := s.taskRepo.CompleteWithReward(task.ID, task.TeamID, actorID,
		func(t *models.Task, m *models.TeamMember) rewards.CompletionResult {
			return rewards.ApplyCompletion(m, t.Priority, today)
		})
	if err != nil {
		if errors.Is(err, repository.ErrTaskAlreadyCompleted) {
			return nil, ErrTaskAlreadyCompleted
		}
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, ErrNotTeamMember
		}
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}

	xpEarned := result.XPEarned
	s.activity.Record(&models.ActivityEntry{
		TeamID:    updated.TeamID,
		UserID:    actorID,
		Action:    models.ActionTaskCompleted,
		TaskID:    &updated.ID,
		TaskTitle: updated.Title,
		XPEarned:  &xpEarned,
	})

	userName := s.displayName(actorID)
	s.dispatcher.Dispatch(updated.TeamID, events.EventTaskCompleted, map[string]interface{}{
		"userName":  userName,
		"taskTitle": updated.Title,
		"xpEarned":  result.XPEarned,
	})

	if result.LeveledUp {
		details, _ := json.Marshal(map[string]interface{}{
			"newLevel": result.NewLevel,
			"rank":     result.NewRank,
		})
		s.activity.Record(&models.ActivityEntry{
			TeamID:      updated.TeamID,
			UserID:      actorID,
			Action:      models.ActionLevelUp,
			DetailsJSON: string(details),
		})

		s.dispatcher.Dispatch(updated.TeamID, events.EventLevelUp, map[string]interface{}{
			"userName": userName,
			"newLevel": result.NewLevel,
			"newRank":  result.NewRank,
		})
	}

	return &StatusChangeResult{
		Task:      updated,
		Rewarded:  true,
		XPEarned:  result.XPEarned,
		NewXP:     result.NewXP,
		Streak:    result.NewStreak,
		LeveledUp: result.LeveledUp,
		NewLevel:  result.NewLevel,
		NewRank:   result.NewRank,
	}, nil
}

// transition handles every non-done target status.
func (s *TaskService) transition(task *models.Task, status models.TaskStatus, actorID uint64, blockerNote *string) (*StatusChangeResult, error) {
	from := task.Status
	wasDone := task.Completed
	now := time.Now()

	task.Status = status
	task.StatusUpdatedAt = now

	if status == models.TaskStatusBlocked {
		task.BlockerNote = blockerNote
		task.BlockerSince = &now
	} else {
		task.BlockerNote = nil
		task.BlockerSince = nil
	}

	if wasDone {
		// Un-complete: the legacy flag and completion metadata go, the XP
		// already awarded stays.
		task.Completed = false
		task.CompletedByID = nil
		task.CompletedAt = nil
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	if !wasDone && from != status {
		details, _ := json.Marshal(statusChangeDetails{
			From:        from,
			To:          status,
			BlockerNote: blockerNote,
		})
		s.activity.Record(&models.ActivityEntry{
			TeamID:      task.TeamID,
			UserID:      actorID,
			Action:      models.ActionStatusChanged,
			TaskID:      &task.ID,
			TaskTitle:   task.Title,
			DetailsJSON: string(details),
		})

		s.dispatcher.Dispatch(task.TeamID, events.EventStatusChanged, map[string]interface{}{
			"userName":  s.displayName(actorID),
			"taskTitle": task.Title,
			"from":      string(from),
			"to":        string(status),
		})
	}

	return &StatusChangeResult{Task: task}, nil
}

type statusChangeDetails struct {
	From        models.TaskStatus `json:"from"`
	To          models.TaskStatus `json:"to"`
	BlockerNote *string           `json:"blockerNote,omitempty"`
}

// UpdateTaskInput represents input for editing task fields
type UpdateTaskInput struct {
	Title        *string
	Priority     *models.TaskPriority
	Category     *string
	Notes        *string
	DueDate      *time.Time
	ClearDueDate bool
}

// UpdateTask edits task fields outside the status machine
func (s *TaskService) UpdateTask(teamID, taskID, actorID uint64, input UpdateTaskInput) (*models.Task, error) {
	if err := s.ensureTeamMember(teamID, actorID); err != nil {
		return nil, err
	}

	task, err := s.findTask(teamID, taskID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, ErrTitleEmpty
		}
		task.Title = strings.TrimSpace(*input.Title)
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, ErrInvalidPriority
		}
		task.Priority = *input.Priority
	}
	if input.Category != nil {
		task.Category = *input.Category
	}
	if input.Notes != nil {
		task.Notes = *input.Notes
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.activity.Record(&models.ActivityEntry{
		TeamID:    task.TeamID,
		UserID:    actorID,
		Action:    models.ActionTaskEdited,
		TaskID:    &task.ID,
		TaskTitle: task.Title,
	})

	return s.taskRepo.FindByIDInTeam(task.ID, task.TeamID, "CreatedBy", "AssignedTo", "CompletedBy")
}

// DeleteTask removes a task if the actor is its creator or a team admin.
// The storage layer cascades away the task's dependency edges and comments.
func (s *TaskService) DeleteTask(teamID, taskID, actorID uint64) error {
	member, err := s.findMember(teamID, actorID)
	if err != nil {
		return err
	}

	task, err := s.findTask(teamID, taskID)
	if err != nil {
		return err
	}

	if task.CreatedByID != actorID && member.Role != models.RoleAdmin {
		return ErrNotCreatorOrAdmin
	}

	if err := s.taskRepo.Delete(taskID, teamID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.activity.Record(&models.ActivityEntry{
		TeamID:    teamID,
		UserID:    actorID,
		Action:    models.ActionTaskDeleted,
		TaskTitle: task.Title,
	})

	return nil
}

// AssignTask sets or clears a task's assignee
func (s *TaskService) AssignTask(teamID, taskID, actorID uint64, assignedToID *uint64) (*models.Task, error) {
	member, err := s.findMember(teamID, actorID)
	if err != nil {
		return nil, err
	}

	task, err := s.findTask(teamID, taskID)
	if err != nil {
		return nil, err
	}

	if task.CreatedByID != actorID && member.Role != models.RoleAdmin {
		return nil, ErrNotCreatorOrAdmin
	}

	if assignedToID != nil {
		if err := s.ensureTeamMember(teamID, *assignedToID); err != nil {
			return nil, ErrInvalidAssignee
		}
	}

	task.AssignedToID = assignedToID
	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to assign task: %w", err)
	}

	s.activity.Record(&models.ActivityEntry{
		TeamID:    task.TeamID,
		UserID:    actorID,
		Action:    models.ActionTaskAssigned,
		TaskID:    &task.ID,
		TaskTitle: task.Title,
	})

	return s.taskRepo.FindByIDInTeam(task.ID, task.TeamID, "CreatedBy", "AssignedTo")
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// findTask loads a task scoped to the team, mapping gorm's not-found.
func (s *TaskService) findTask(teamID, taskID uint64, preload ...string) (*models.Task, error) {
	task, err := s.taskRepo.FindByIDInTeam(taskID, teamID, preload...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// findMember loads the actor's membership row, mapping gorm's not-found.
func (s *TaskService) findMember(teamID, userID uint64) (*models.TeamMember, error) {
	member, err := s.teamRepo.FindMember(teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotTeamMember
		}
		return nil, fmt.Errorf("failed to verify team membership: %w", err)
	}
	return member, nil
}

// ensureTeamMember verifies that a user belongs to a team
func (s *TaskService) ensureTeamMember(teamID, userID uint64) error {
	_, err := s.findMember(teamID, userID)
	return err
}

// displayName resolves a user's name for outbound notifications. Lookup
// failures degrade to an empty name; they never fail the caller.
func (s *TaskService) displayName(userID uint64) string {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return ""
	}
	return user.DisplayName
}
