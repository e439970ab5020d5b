package models

import "time"

// AnalyticsSnapshot is a per-team weekly digest written by the snapshot job.
type AnalyticsSnapshot struct {
	ID                uint64    `gorm:"primarykey" json:"id"`
	TeamID            uint64    `gorm:"not null;index" json:"team_id"`
	Period            string    `gorm:"type:varchar(20);not null" json:"period"`
	PeriodStart       time.Time `json:"period_start"`
	PeriodEnd         time.Time `json:"period_end"`
	MVPUserID         *uint64   `json:"mvp_user_id"`
	MVPTasksCompleted int       `json:"mvp_tasks_completed"`
	DataJSON          string    `gorm:"type:text" json:"data_json"`
	CreatedAt         time.Time `json:"created_at"`
}
