package models

import "time"

type ChallengeType string

const (
	ChallengeTypeTask   ChallengeType = "task"
	ChallengeTypeSocial ChallengeType = "social"
	ChallengeTypeStreak ChallengeType = "streak"
)

func (t ChallengeType) Valid() bool {
	switch t {
	case ChallengeTypeTask, ChallengeTypeSocial, ChallengeTypeStreak:
		return true
	}
	return false
}

// Challenge is a repeatable side quest worth bonus XP, completable once per
// member per calendar day. Team challenges belong to one team; global
// challenges (IsGlobal, TeamID nil) are shared and rotate into every team's
// daily list.
type Challenge struct {
	ID          uint64        `gorm:"primarykey" json:"id"`
	TeamID      *uint64       `gorm:"index" json:"team_id"`
	Title       string        `gorm:"not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	XPReward    int           `gorm:"not null;default:20" json:"xp_reward"`
	Type        ChallengeType `gorm:"type:varchar(20);not null;default:'task'" json:"type"`
	Active      bool          `gorm:"not null;default:true" json:"active"`
	IsGlobal    bool          `gorm:"not null;default:false" json:"is_global"`
	CreatedByID *uint64       `json:"created_by_id"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// Relations
	CreatedBy *User `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
}

// ChallengeCompletion records one member finishing a challenge on one
// calendar day. The unique index makes once-per-day a database constraint; a
// global challenge can still be completed separately in each of the member's
// teams.
type ChallengeCompletion struct {
	ID            uint64    `gorm:"primarykey" json:"id"`
	ChallengeID   uint64    `gorm:"not null;uniqueIndex:idx_challenge_user_team_date" json:"challenge_id"`
	UserID        uint64    `gorm:"not null;uniqueIndex:idx_challenge_user_team_date" json:"user_id"`
	TeamID        uint64    `gorm:"not null;uniqueIndex:idx_challenge_user_team_date" json:"team_id"`
	CompletedDate string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_challenge_user_team_date" json:"completed_date"`
	CreatedAt     time.Time `json:"created_at"`
}
