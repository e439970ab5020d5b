package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusInReview   TaskStatus = "in_review"
	TaskStatusDone       TaskStatus = "done"
)

// ParseTaskStatus validates a status string at the boundary. Unknown values
// are rejected rather than defaulted.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch TaskStatus(s) {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusBlocked, TaskStatusInReview, TaskStatusDone:
		return TaskStatus(s), true
	}
	return "", false
}

type TaskPriority string

const (
	PriorityP0 TaskPriority = "P0"
	PriorityP1 TaskPriority = "P1"
	PriorityP2 TaskPriority = "P2"
	PriorityP3 TaskPriority = "P3"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityP0, PriorityP1, PriorityP2, PriorityP3:
		return true
	}
	return false
}

// Task is a unit of work owned by exactly one team. Completed stays in sync
// with Status == done; blocker fields are only set while Status == blocked.
type Task struct {
	ID              uint64         `gorm:"primarykey" json:"id"`
	TeamID          uint64         `gorm:"not null;index" json:"team_id"`
	Title           string         `gorm:"not null" json:"title"`
	Priority        TaskPriority   `gorm:"type:varchar(2);not null;default:'P2'" json:"priority"`
	Status          TaskStatus     `gorm:"type:varchar(20);not null;default:'todo'" json:"status"`
	Category        string         `gorm:"type:varchar(100)" json:"category"`
	Notes           string         `gorm:"type:text" json:"notes"`
	DueDate         *time.Time     `json:"due_date"`
	AssignedToID    *uint64        `json:"assigned_to_id"`
	BlockerNote     *string        `gorm:"type:text" json:"blocker_note"`
	BlockerSince    *time.Time     `json:"blocker_since"`
	StatusUpdatedAt time.Time      `json:"status_updated_at"`
	Completed       bool           `gorm:"not null;default:false" json:"completed"`
	CompletedByID   *uint64        `json:"completed_by_id"`
	CompletedAt     *time.Time     `json:"completed_at"`
	CreatedByID     uint64         `gorm:"not null" json:"created_by_id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Team        Team  `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	CreatedBy   User  `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	AssignedTo  *User `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
	CompletedBy *User `gorm:"foreignKey:CompletedByID" json:"completed_by,omitempty"`
}
