// Package rewards holds the XP, rank, and streak math triggered by task
// completion. Everything here is pure: callers read the member's current
// aggregate, compute the new one, and persist both inside the same
// transaction as the task's completion fields.
package rewards

import (
	"time"

	"github.com/champquest/champquest-api/internal/models"
)

// DateLayout is the calendar-date format used for streak bookkeeping.
// Streaks compare dates, not timestamps: 23:59 and 00:01 the next day
// are one day apart.
const DateLayout = "2006-01-02"

// Rank is one row of the level progression table.
type Rank struct {
	Level int    `json:"level"`
	XP    int    `json:"xp"`
	Name  string `json:"rank"`
}

// Levels is the ascending rank table. Names are cosmetic and may be
// reskinned per team theme.
var Levels = []Rank{
	{Level: 1, XP: 0, Name: "Rookie Trainer"},
	{Level: 3, XP: 150, Name: "Bug Catcher"},
	{Level: 5, XP: 400, Name: "Ranger"},
	{Level: 8, XP: 800, Name: "Breeder"},
	{Level: 12, XP: 1500, Name: "Ace Trainer"},
	{Level: 18, XP: 3000, Name: "Gym Challenger"},
	{Level: 25, XP: 5500, Name: "Gym Leader"},
	{Level: 35, XP: 10000, Name: "Elite Four"},
	{Level: 50, XP: 20000, Name: "Champion"},
	{Level: 75, XP: 40000, Name: "Master"},
	{Level: 100, XP: 75000, Name: "Legendary Trainer"},
}

var xpByPriority = map[models.TaskPriority]int{
	models.PriorityP0: 50,
	models.PriorityP1: 30,
	models.PriorityP2: 20,
	models.PriorityP3: 10,
}

// DefaultXP is awarded for priorities outside the known set. The fallback is
// deliberate: legacy rows may carry values predating the P0-P3 scheme.
const DefaultXP = 20

// XPForPriority returns the XP award for completing a task of the given
// priority.
func XPForPriority(p models.TaskPriority) int {
	if xp, ok := xpByPriority[p]; ok {
		return xp
	}
	return DefaultXP
}

// XPValues returns the priority→XP map for the config endpoint.
func XPValues() map[models.TaskPriority]int {
	out := make(map[models.TaskPriority]int, len(xpByPriority))
	for p, xp := range xpByPriority {
		out[p] = xp
	}
	return out
}

// RankForXP returns the highest rank whose threshold is <= xp. Saturates at
// the top tier.
func RankForXP(xp int) Rank {
	for i := len(Levels) - 1; i >= 0; i-- {
		if xp >= Levels[i].XP {
			return Levels[i]
		}
	}
	return Levels[0]
}

// AdvanceStreak computes the new consecutive-day streak given the member's
// prior completion date. A second completion on the same day leaves the
// streak unchanged; a gap of two or more days resets it to 1.
func AdvanceStreak(streak int, lastCompleted, today string) int {
	switch lastCompleted {
	case previousDay(today):
		return streak + 1
	case today:
		return streak
	default:
		return 1
	}
}

// previousDay does calendar arithmetic on a DateLayout string. An
// unparseable input (blank for a member who never completed anything) can
// never equal a valid date, so the zero value is fine.
func previousDay(today string) string {
	t, err := time.Parse(DateLayout, today)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(DateLayout)
}

// CompletionResult is the member aggregate after one completion, plus the
// level-up signal for the caller's response and journal entries.
type CompletionResult struct {
	XPEarned          int
	NewXP             int
	NewTodayXP        int
	NewStreak         int
	NewTasksCompleted int
	LastCompletedDate string
	LeveledUp         bool
	NewLevel          int
	NewRank           string
}

// BonusResult is the member aggregate after a challenge completion. Streak
// and TasksCompleted count task completions only and stay untouched.
type BonusResult struct {
	XPEarned          int
	NewXP             int
	NewTodayXP        int
	LastCompletedDate string
	LeveledUp         bool
	NewLevel          int
	NewRank           string
}

// ApplyBonus credits flat XP outside the task path. Same-day bonuses
// accumulate into TodayXP the way task completions do.
func ApplyBonus(member *models.TeamMember, xp int, today string) BonusResult {
	newTodayXP := xp
	if member.LastCompletedDate == today {
		newTodayXP = member.TodayXP + xp
	}

	newXP := member.XP + xp
	newRank := RankForXP(newXP)
	oldRank := RankForXP(member.XP)

	return BonusResult{
		XPEarned:          xp,
		NewXP:             newXP,
		NewTodayXP:        newTodayXP,
		LastCompletedDate: today,
		LeveledUp:         newRank.Level > oldRank.Level,
		NewLevel:          newRank.Level,
		NewRank:           newRank.Name,
	}
}

// ApplyCompletion composes the reward computation for one task completion.
// The result must be written to storage in the same atomic unit as the
// task's completion fields.
func ApplyCompletion(member *models.TeamMember, priority models.TaskPriority, today string) CompletionResult {
	earned := XPForPriority(priority)

	newTodayXP := earned
	if member.LastCompletedDate == today {
		newTodayXP = member.TodayXP + earned
	}

	newXP := member.XP + earned
	newRank := RankForXP(newXP)
	oldRank := RankForXP(member.XP)

	return CompletionResult{
		XPEarned:          earned,
		NewXP:             newXP,
		NewTodayXP:        newTodayXP,
		NewStreak:         AdvanceStreak(member.Streak, member.LastCompletedDate, today),
		NewTasksCompleted: member.TasksCompleted + 1,
		LastCompletedDate: today,
		LeveledUp:         newRank.Level > oldRank.Level,
		NewLevel:          newRank.Level,
		NewRank:           newRank.Name,
	}
}
