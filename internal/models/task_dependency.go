package models

import "time"

// TaskDependency is a directed edge "TaskID depends on DependsOnID", scoped
// to one team. No self-loops, no duplicate pairs, and no edge that would
// close a cycle within the team's graph.
type TaskDependency struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	TeamID      uint64    `gorm:"not null;index" json:"team_id"`
	TaskID      uint64    `gorm:"not null;uniqueIndex:idx_task_depends_on" json:"task_id"`
	DependsOnID uint64    `gorm:"not null;uniqueIndex:idx_task_depends_on" json:"depends_on_id"`
	CreatedAt   time.Time `json:"created_at"`

	// Relations
	Task      Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	DependsOn Task `gorm:"foreignKey:DependsOnID" json:"depends_on,omitempty"`
}
