package dto

import (
	"time"

	"github.com/champquest/champquest-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID          uint64 `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID            uint64              `json:"id"`
	TeamID        uint64              `json:"team_id"`
	Title         string              `json:"title"`
	Priority      models.TaskPriority `json:"priority"`
	Status        models.TaskStatus   `json:"status"`
	Category      string              `json:"category,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	DueDate       *time.Time          `json:"due_date"`
	AssignedToID  *uint64             `json:"assigned_to_id"`
	BlockerNote   *string             `json:"blocker_note,omitempty"`
	BlockerSince  *time.Time          `json:"blocker_since,omitempty"`
	Completed     bool                `json:"completed"`
	CompletedByID *uint64             `json:"completed_by_id,omitempty"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
	CreatedByID   uint64              `json:"created_by_id"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	CreatedBy     *UserDTO            `json:"created_by,omitempty"`
	AssignedTo    *UserDTO            `json:"assigned_to,omitempty"`
	CompletedBy   *UserDTO            `json:"completed_by,omitempty"`
}

// CommentDTO represents a task comment in API responses
type CommentDTO struct {
	ID        uint64    `json:"id"`
	TaskID    uint64    `json:"task_id"`
	UserID    uint64    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	User      *UserDTO  `json:"user,omitempty"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:          user.ID,
		DisplayName: user.DisplayName,
	}
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:            task.ID,
		TeamID:        task.TeamID,
		Title:         task.Title,
		Priority:      task.Priority,
		Status:        task.Status,
		Category:      task.Category,
		Notes:         task.Notes,
		DueDate:       task.DueDate,
		AssignedToID:  task.AssignedToID,
		BlockerNote:   task.BlockerNote,
		BlockerSince:  task.BlockerSince,
		Completed:     task.Completed,
		CompletedByID: task.CompletedByID,
		CompletedAt:   task.CompletedAt,
		CreatedByID:   task.CreatedByID,
		CreatedAt:     task.CreatedAt,
		UpdatedAt:     task.UpdatedAt,
	}

	// Include relations only when preloaded
	if task.CreatedBy.ID != 0 {
		createdBy := ToUserDTO(task.CreatedBy)
		dto.CreatedBy = &createdBy
	}
	if task.AssignedTo != nil && task.AssignedTo.ID != 0 {
		assignedTo := ToUserDTO(*task.AssignedTo)
		dto.AssignedTo = &assignedTo
	}
	if task.CompletedBy != nil && task.CompletedBy.ID != 0 {
		completedBy := ToUserDTO(*task.CompletedBy)
		dto.CompletedBy = &completedBy
	}

	return dto
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	dtos := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		dtos[i] = ToTaskDTO(task)
	}
	return dtos
}

// ToCommentDTO converts a TaskComment model to CommentDTO
func ToCommentDTO(comment models.TaskComment) CommentDTO {
	dto := CommentDTO{
		ID:        comment.ID,
		TaskID:    comment.TaskID,
		UserID:    comment.UserID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}
	if comment.User.ID != 0 {
		user := ToUserDTO(comment.User)
		dto.User = &user
	}
	return dto
}

// ToCommentDTOs converts a slice of comments
func ToCommentDTOs(comments []models.TaskComment) []CommentDTO {
	dtos := make([]CommentDTO, len(comments))
	for i, comment := range comments {
		dtos[i] = ToCommentDTO(comment)
	}
	return dtos
}
