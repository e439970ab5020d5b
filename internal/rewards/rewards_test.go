package rewards

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/champquest/champquest-api/internal/models"
)

func TestXPForPriority(t *testing.T) {
	tests := []struct {
		priority models.TaskPriority
		want     int
	}{
		{models.PriorityP0, 50},
		{models.PriorityP1, 30},
		{models.PriorityP2, 20},
		{models.PriorityP3, 10},
		{models.TaskPriority("P9"), 20},
		{models.TaskPriority(""), 20},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, XPForPriority(tt.priority), "priority %q", tt.priority)
	}
}

func TestRankForXP(t *testing.T) {
	tests := []struct {
		xp        int
		wantLevel int
	}{
		{0, 1},
		{149, 1},
		{150, 3},
		{399, 3},
		{400, 5},
		{1500, 12},
		{75000, 100},
		{100000, 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.wantLevel, RankForXP(tt.xp).Level, "xp %d", tt.xp)
	}
}

func TestAdvanceStreak(t *testing.T) {
	today := "2026-09-01"
	yesterday := "2026-08-31"

	tests := []struct {
		name          string
		streak        int
		lastCompleted string
		want          int
	}{
		{"continues from yesterday", 4, yesterday, 5},
		{"same day does not increment", 5, today, 5},
		{"gap resets to one", 7, "2026-08-29", 1},
		{"never completed starts at one", 0, "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AdvanceStreak(tt.streak, tt.lastCompleted, today))
		})
	}
}

func TestAdvanceStreak_MonthBoundary(t *testing.T) {
	// Calendar arithmetic, not string arithmetic.
	assert.Equal(t, 3, AdvanceStreak(2, "2026-08-31", "2026-09-01"))
	assert.Equal(t, 2, AdvanceStreak(1, "2025-12-31", "2026-01-01"))
}

func TestApplyCompletion_FirstOfDay(t *testing.T) {
	member := &models.TeamMember{
		XP:                100,
		TodayXP:           40,
		Streak:            4,
		TasksCompleted:    9,
		LastCompletedDate: "2026-08-31",
	}

	result := ApplyCompletion(member, models.PriorityP0, "2026-09-01")

	assert.Equal(t, 50, result.XPEarned)
	assert.Equal(t, 150, result.NewXP)
	assert.Equal(t, 50, result.NewTodayXP, "today_xp resets when the day changes")
	assert.Equal(t, 5, result.NewStreak)
	assert.Equal(t, 10, result.NewTasksCompleted)
	assert.Equal(t, "2026-09-01", result.LastCompletedDate)
	assert.True(t, result.LeveledUp, "crossing 150 XP reaches level 3")
	assert.Equal(t, 3, result.NewLevel)
	assert.Equal(t, "Bug Catcher", result.NewRank)
}

func TestApplyCompletion_SecondOfDay(t *testing.T) {
	member := &models.TeamMember{
		XP:                150,
		TodayXP:           50,
		Streak:            5,
		TasksCompleted:    10,
		LastCompletedDate: "2026-09-01",
	}

	result := ApplyCompletion(member, models.PriorityP3, "2026-09-01")

	assert.Equal(t, 10, result.XPEarned)
	assert.Equal(t, 160, result.NewXP)
	assert.Equal(t, 60, result.NewTodayXP, "same-day completions accumulate")
	assert.Equal(t, 5, result.NewStreak, "same-day completions do not extend the streak")
	assert.False(t, result.LeveledUp)
}

func TestApplyCompletion_NoHiddenState(t *testing.T) {
	member := &models.TeamMember{XP: 0, Streak: 0}
	today := time.Now().Format(DateLayout)

	first := ApplyCompletion(member, models.PriorityP2, today)
	second := ApplyCompletion(member, models.PriorityP2, today)

	assert.Equal(t, first, second, "pure function: same inputs, same outputs")
}
