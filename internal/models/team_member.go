package models

import "time"

type TeamRole string

const (
	RoleAdmin  TeamRole = "admin"
	RoleMember TeamRole = "member"
)

// TeamMember is one (user, team) membership row and carries the member's
// reward aggregate. XP is cumulative and never decreases; TodayXP only ever
// reflects XP earned on LastCompletedDate; Streak is 0 or a run-length of
// consecutive calendar days with at least one completion.
type TeamMember struct {
	TeamID            uint64    `gorm:"primarykey" json:"team_id"`
	UserID            uint64    `gorm:"primarykey" json:"user_id"`
	Role              TeamRole  `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	XP                int       `gorm:"not null;default:0" json:"xp"`
	TodayXP           int       `gorm:"not null;default:0" json:"today_xp"`
	Streak            int       `gorm:"not null;default:0" json:"streak"`
	TasksCompleted    int       `gorm:"not null;default:0" json:"tasks_completed"`
	LastCompletedDate string    `gorm:"type:varchar(10)" json:"last_completed_date"`
	MascotColor       string    `gorm:"type:varchar(20);default:'red'" json:"mascot_color"`
	JoinedAt          time.Time `json:"joined_at"`

	// Relations
	Team Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
