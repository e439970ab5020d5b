package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/rewards"
)

var (
	// ErrTaskAlreadyCompleted is returned to the loser of a double-completion
	// race: the transaction observed the task already done and awarded nothing.
	ErrTaskAlreadyCompleted = errors.New("task repository: task already completed")
	// ErrMemberNotFound is returned when the acting user has no membership row
	// for the task's team.
	ErrMemberNotFound = errors.New("task repository: team member not found")
)

// lockForUpdate adds a SELECT ... FOR UPDATE clause where the dialect
// supports it. SQLite serializes writers per connection, so the transaction
// alone gives the same guarantee there.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByIDInTeam finds a task by ID scoped to a team, with optional preloading
func (r *GormTaskRepository) FindByIDInTeam(taskID, teamID uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.Where("team_id = ?", teamID)

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, taskID).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// priorityOrder sorts P0 first and unknown values last, matching the board's
// reading order.
const priorityOrder = "CASE tasks.priority WHEN 'P0' THEN 0 WHEN 'P1' THEN 1 WHEN 'P2' THEN 2 ELSE 3 END"

// ListByTeam retrieves a team's tasks: open before completed, then by
// priority, then newest-first
func (r *GormTaskRepository) ListByTeam(filter TaskFilter) ([]models.Task, error) {
	var tasks []models.Task

	query := r.db.Model(&models.Task{}).Where("tasks.team_id = ?", filter.TeamID)

	if filter.AssignedToID != nil {
		query = query.Where("tasks.assigned_to_id = ?", *filter.AssignedToID)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}

	err := query.
		Order("tasks.completed ASC").
		Order(priorityOrder).
		Order("tasks.created_at DESC").
		Preload("CreatedBy").
		Preload("AssignedTo").
		Preload("CompletedBy").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}

	return tasks, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// Delete soft deletes a task and removes its dependency edges and comments
// in the same transaction
func (r *GormTaskRepository) Delete(taskID, teamID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ? OR depends_on_id = ?", taskID, taskID).
			Delete(&models.TaskDependency{}).Error; err != nil {
			return err
		}

		if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskComment{}).Error; err != nil {
			return err
		}

		return tx.Where("team_id = ?", teamID).Delete(&models.Task{}, taskID).Error
	})
}

// CompleteWithReward marks the task done and applies the member's reward
// atomically. The task row is locked before the "already completed" check so
// two concurrent completions cannot both award XP.
func (r *GormTaskRepository) CompleteWithReward(taskID, teamID, actorID uint64, apply CompletionApplier) (*models.Task, *rewards.CompletionResult, error) {
	var task models.Task
	var result rewards.CompletionResult

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).
			Where("team_id = ?", teamID).
			First(&task, taskID).Error; err != nil {
			return err
		}

		if task.Completed {
			return ErrTaskAlreadyCompleted
		}

		var member models.TeamMember
		if err := lockForUpdate(tx).
			Where("team_id = ? AND user_id = ?", teamID, actorID).
			First(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMemberNotFound
			}
			return err
		}

		result = apply(&task, &member)

		now := time.Now()
		task.Status = models.TaskStatusDone
		task.Completed = true
		task.CompletedByID = &actorID
		task.CompletedAt = &now
		task.BlockerNote = nil
		task.BlockerSince = nil
		task.StatusUpdatedAt = now

		if err := tx.Save(&task).Error; err != nil {
			return err
		}

		return tx.Model(&models.TeamMember{}).
			Where("team_id = ? AND user_id = ?", teamID, actorID).
			Updates(map[string]interface{}{
				"xp":                  result.NewXP,
				"today_xp":            result.NewTodayXP,
				"streak":              result.NewStreak,
				"tasks_completed":     result.NewTasksCompleted,
				"last_completed_date": result.LastCompletedDate,
			}).Error
	})
	if err != nil {
		return nil, nil, err
	}

	return &task, &result, nil
}

// ListOverdue returns incomplete tasks whose due date has passed
func (r *GormTaskRepository) ListOverdue(teamID uint64) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.
		Where("team_id = ? AND completed = ? AND due_date IS NOT NULL AND due_date < ?", teamID, false, time.Now()).
		Order(priorityOrder).
		Order("due_date ASC").
		Preload("AssignedTo").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}
