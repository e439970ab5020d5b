package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/champquest/champquest-api/internal/logger"
	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/repository"
)

func setupJobDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
		&models.Task{},
		&models.ActivityEntry{},
		&models.AnalyticsSnapshot{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}

func TestSnapshotScheduler_RunOnce(t *testing.T) {
	db := setupJobDB(t)

	user := &models.User{Email: "alice@example.com", DisplayName: "alice", PasswordHash: "hashedpassword"}
	require.NoError(t, db.Create(user).Error)
	team := &models.Team{Name: "Quest Squad", Code: "QSCODE", CreatedByID: user.ID}
	require.NoError(t, db.Create(team).Error)
	require.NoError(t, db.Create(&models.TeamMember{
		TeamID: team.ID, UserID: user.ID, Role: models.RoleAdmin, XP: 90, JoinedAt: time.Now(),
	}).Error)

	// Two completions this week, one outside the window
	now := time.Now()
	for _, age := range []time.Duration{time.Hour, 48 * time.Hour, 10 * 24 * time.Hour} {
		require.NoError(t, db.Create(&models.ActivityEntry{
			TeamID:    team.ID,
			UserID:    user.ID,
			Action:    models.ActionTaskCompleted,
			TaskTitle: "Task",
			CreatedAt: now.Add(-age),
		}).Error)
	}

	scheduler := NewSnapshotScheduler(
		repository.NewTeamRepository(db),
		repository.NewSnapshotRepository(db),
		0,
		logger.NewNop(),
	)
	scheduler.RunOnce(now)

	var snapshot models.AnalyticsSnapshot
	require.NoError(t, db.Where("team_id = ?", team.ID).First(&snapshot).Error)
	assert.Equal(t, "weekly", snapshot.Period)
	require.NotNil(t, snapshot.MVPUserID)
	assert.Equal(t, user.ID, *snapshot.MVPUserID)
	assert.Equal(t, 2, snapshot.MVPTasksCompleted)
	assert.Contains(t, snapshot.DataJSON, `"completed_in_window":2`)
}

func TestSnapshotScheduler_StartStop(t *testing.T) {
	db := setupJobDB(t)

	scheduler := NewSnapshotScheduler(
		repository.NewTeamRepository(db),
		repository.NewSnapshotRepository(db),
		time.Hour,
		logger.NewNop(),
	)
	scheduler.Start()
	scheduler.Stop()

	// No teams, no snapshots
	var count int64
	db.Model(&models.AnalyticsSnapshot{}).Count(&count)
	assert.Equal(t, int64(0), count)
}
