package dto

import (
	"time"

	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/rewards"
)

// TeamDTO represents a team in API responses
type TeamDTO struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberDTO represents a team member in API responses, including the
// member's current rank derived from their XP.
type MemberDTO struct {
	UserID         uint64          `json:"user_id"`
	Role           models.TeamRole `json:"role"`
	XP             int             `json:"xp"`
	TodayXP        int             `json:"today_xp"`
	Streak         int             `json:"streak"`
	TasksCompleted int             `json:"tasks_completed"`
	Level          int             `json:"level"`
	Rank           string          `json:"rank"`
	MascotColor    string          `json:"mascot_color"`
	JoinedAt       time.Time       `json:"joined_at"`
	User           *UserDTO        `json:"user,omitempty"`
}

// MembershipDTO represents one of the caller's team memberships
type MembershipDTO struct {
	Team TeamDTO         `json:"team"`
	Role models.TeamRole `json:"role"`
	XP   int             `json:"xp"`
}

// ActivityEntryDTO represents a journal entry in API responses
type ActivityEntryDTO struct {
	ID        uint64                `json:"id"`
	UserID    uint64                `json:"user_id"`
	Action    models.ActivityAction `json:"action"`
	TaskID    *uint64               `json:"task_id,omitempty"`
	TaskTitle string                `json:"task_title,omitempty"`
	XPEarned  *int                  `json:"xp_earned,omitempty"`
	Details   string                `json:"details,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	User      *UserDTO              `json:"user,omitempty"`
}

// ToTeamDTO converts a Team model to TeamDTO. The join code is exposed only
// to members.
func ToTeamDTO(team models.Team, includeCode bool) TeamDTO {
	dto := TeamDTO{
		ID:        team.ID,
		Name:      team.Name,
		CreatedAt: team.CreatedAt,
	}
	if includeCode {
		dto.Code = team.Code
	}
	return dto
}

// ToMemberDTO converts a TeamMember model to MemberDTO
func ToMemberDTO(member models.TeamMember) MemberDTO {
	rank := rewards.RankForXP(member.XP)
	dto := MemberDTO{
		UserID:         member.UserID,
		Role:           member.Role,
		XP:             member.XP,
		TodayXP:        member.TodayXP,
		Streak:         member.Streak,
		TasksCompleted: member.TasksCompleted,
		Level:          rank.Level,
		Rank:           rank.Name,
		MascotColor:    member.MascotColor,
		JoinedAt:       member.JoinedAt,
	}
	if member.User.ID != 0 {
		user := ToUserDTO(member.User)
		dto.User = &user
	}
	return dto
}

// ToMemberDTOs converts a slice of members
func ToMemberDTOs(members []models.TeamMember) []MemberDTO {
	dtos := make([]MemberDTO, len(members))
	for i, member := range members {
		dtos[i] = ToMemberDTO(member)
	}
	return dtos
}

// ToMembershipDTO converts a membership row with its preloaded team
func ToMembershipDTO(member models.TeamMember) MembershipDTO {
	return MembershipDTO{
		Team: ToTeamDTO(member.Team, true),
		Role: member.Role,
		XP:   member.XP,
	}
}

// ToMembershipDTOs converts a slice of membership rows
func ToMembershipDTOs(members []models.TeamMember) []MembershipDTO {
	dtos := make([]MembershipDTO, len(members))
	for i, member := range members {
		dtos[i] = ToMembershipDTO(member)
	}
	return dtos
}

// ToActivityEntryDTO converts an ActivityEntry model
func ToActivityEntryDTO(entry models.ActivityEntry) ActivityEntryDTO {
	dto := ActivityEntryDTO{
		ID:        entry.ID,
		UserID:    entry.UserID,
		Action:    entry.Action,
		TaskID:    entry.TaskID,
		TaskTitle: entry.TaskTitle,
		XPEarned:  entry.XPEarned,
		Details:   entry.DetailsJSON,
		CreatedAt: entry.CreatedAt,
	}
	if entry.User.ID != 0 {
		user := ToUserDTO(entry.User)
		dto.User = &user
	}
	return dto
}

// ToActivityEntryDTOs converts a slice of journal entries
func ToActivityEntryDTOs(entries []models.ActivityEntry) []ActivityEntryDTO {
	dtos := make([]ActivityEntryDTO, len(entries))
	for i, entry := range entries {
		dtos[i] = ToActivityEntryDTO(entry)
	}
	return dtos
}
