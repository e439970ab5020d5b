package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/champquest/champquest-api/internal/models"
)

// SprintSummary is one sprint with its task progress counts.
type SprintSummary struct {
	Sprint         models.Sprint
	TaskCount      int64
	CompletedCount int64
}

// SprintRepository defines the interface for sprint data access
type SprintRepository interface {
	// Create creates a sprint
	Create(sprint *models.Sprint) error

	// FindByID finds a sprint scoped to a team
	FindByID(sprintID, teamID uint64) (*models.Sprint, error)

	// ListByTeam returns a team's sprints newest start date first, with task
	// progress counts
	ListByTeam(teamID uint64) ([]SprintSummary, error)

	// Update saves a sprint row
	Update(sprint *models.Sprint) error

	// AddTask links a task into the sprint. Re-adding is not an error.
	AddTask(sprintID, taskID uint64) error

	// RemoveTask unlinks a task from the sprint. Idempotent.
	RemoveTask(sprintID, taskID uint64) error

	// ListTasks returns the sprint's tasks ordered by priority then creation
	ListTasks(sprintID uint64) ([]models.Task, error)
}

// GormSprintRepository is a GORM implementation of SprintRepository
type GormSprintRepository struct {
	db *gorm.DB
}

// NewSprintRepository creates a new SprintRepository
func NewSprintRepository(db *gorm.DB) SprintRepository {
	return &GormSprintRepository{db: db}
}

// Create creates a sprint
func (r *GormSprintRepository) Create(sprint *models.Sprint) error {
	return r.db.Create(sprint).Error
}

// FindByID finds a sprint scoped to a team
func (r *GormSprintRepository) FindByID(sprintID, teamID uint64) (*models.Sprint, error) {
	var sprint models.Sprint
	err := r.db.
		Where("team_id = ?", teamID).
		Preload("CreatedBy").
		First(&sprint, sprintID).Error
	if err != nil {
		return nil, err
	}
	return &sprint, nil
}

// ListByTeam returns a team's sprints newest start date first, with task
// progress counts
func (r *GormSprintRepository) ListByTeam(teamID uint64) ([]SprintSummary, error) {
	var sprints []models.Sprint
	err := r.db.
		Where("team_id = ?", teamID).
		Order("start_date DESC").
		Preload("CreatedBy").
		Find(&sprints).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]SprintSummary, 0, len(sprints))
	for _, sprint := range sprints {
		summary := SprintSummary{Sprint: sprint}

		err := r.db.Model(&models.SprintTask{}).
			Where("sprint_id = ?", sprint.ID).
			Count(&summary.TaskCount).Error
		if err != nil {
			return nil, err
		}

		err = r.db.
			Table("sprint_tasks AS st").
			Joins("JOIN tasks t ON t.id = st.task_id AND t.deleted_at IS NULL").
			Where("st.sprint_id = ? AND t.status = ?", sprint.ID, models.TaskStatusDone).
			Count(&summary.CompletedCount).Error
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// Update saves a sprint row
func (r *GormSprintRepository) Update(sprint *models.Sprint) error {
	return r.db.Save(sprint).Error
}

// AddTask links a task into the sprint. Re-adding is not an error.
func (r *GormSprintRepository) AddTask(sprintID, taskID uint64) error {
	return r.db.
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.SprintTask{SprintID: sprintID, TaskID: taskID}).Error
}

// RemoveTask unlinks a task from the sprint. Idempotent.
func (r *GormSprintRepository) RemoveTask(sprintID, taskID uint64) error {
	return r.db.
		Where("sprint_id = ? AND task_id = ?", sprintID, taskID).
		Delete(&models.SprintTask{}).Error
}

// ListTasks returns the sprint's tasks ordered by priority then creation
func (r *GormSprintRepository) ListTasks(sprintID uint64) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.
		Joins("JOIN sprint_tasks st ON st.task_id = tasks.id").
		Where("st.sprint_id = ?", sprintID).
		Order(priorityOrder).
		Order("tasks.created_at ASC").
		Preload("AssignedTo").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}
