package models

import "time"

type ActivityAction string

const (
	ActionTaskCreated   ActivityAction = "task_created"
	ActionTaskCompleted ActivityAction = "task_completed"
	ActionTaskDeleted   ActivityAction = "task_deleted"
	ActionTaskAssigned  ActivityAction = "task_assigned"
	ActionTaskEdited    ActivityAction = "task_edited"
	ActionStatusChanged ActivityAction = "status_changed"
	ActionLevelUp       ActivityAction = "level_up"
	ActionTeamJoined    ActivityAction = "team_joined"
	ActionRoleChanged   ActivityAction = "role_changed"
	ActionCommentAdded  ActivityAction = "comment_added"
)

// ActivityEntry is an append-only audit record. Entries are never mutated or
// deleted; TaskTitle is a snapshot so the entry survives task deletion.
type ActivityEntry struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	TeamID      uint64         `gorm:"not null;index:idx_activity_team_created" json:"team_id"`
	UserID      uint64         `gorm:"not null" json:"user_id"`
	Action      ActivityAction `gorm:"type:varchar(30);not null" json:"action"`
	TaskID      *uint64        `json:"task_id"`
	TaskTitle   string         `gorm:"type:varchar(255)" json:"task_title"`
	XPEarned    *int           `json:"xp_earned"`
	DetailsJSON string         `gorm:"type:text" json:"details_json"`
	CreatedAt   time.Time      `gorm:"index:idx_activity_team_created" json:"created_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
