package models

import "time"

type SprintStatus string

const (
	SprintStatusActive    SprintStatus = "active"
	SprintStatusCompleted SprintStatus = "completed"
)

// Sprint is a named time-box of team work. Tasks join and leave freely;
// sprint membership never affects the task lifecycle or rewards.
type Sprint struct {
	ID          uint64       `gorm:"primarykey" json:"id"`
	TeamID      uint64       `gorm:"not null;index" json:"team_id"`
	Name        string       `gorm:"not null" json:"name"`
	StartDate   time.Time    `json:"start_date"`
	EndDate     time.Time    `json:"end_date"`
	GoalsJSON   string       `gorm:"type:text" json:"goals_json"`
	Status      SprintStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedByID uint64       `gorm:"not null" json:"created_by_id"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	// Relations
	CreatedBy User `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
}

// SprintTask links one task into one sprint.
type SprintTask struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	SprintID  uint64    `gorm:"not null;uniqueIndex:idx_sprint_task" json:"sprint_id"`
	TaskID    uint64    `gorm:"not null;uniqueIndex:idx_sprint_task" json:"task_id"`
	CreatedAt time.Time `json:"created_at"`
}
