package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/champquest/champquest-api/internal/models"
)

// SnapshotRepository defines the interface for analytics snapshot data access
type SnapshotRepository interface {
	// Create stores one snapshot
	Create(snapshot *models.AnalyticsSnapshot) error

	// ListByTeam returns a team's snapshots newest-first
	ListByTeam(teamID uint64, limit int) ([]models.AnalyticsSnapshot, error)

	// CompletionLeader finds the member who completed the most tasks in the
	// window. count is zero when nobody completed anything.
	CompletionLeader(teamID uint64, start, end time.Time) (userID uint64, count int64, err error)

	// CountCompletedInWindow counts a team's completions in the window
	CountCompletedInWindow(teamID uint64, start, end time.Time) (int64, error)

	// MemberCompletionCounts returns per-member completion counts for the
	// window, keyed by user ID
	MemberCompletionCounts(teamID uint64, start, end time.Time) (map[uint64]int64, error)
}

// GormSnapshotRepository is a GORM implementation of SnapshotRepository
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a new SnapshotRepository
func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &GormSnapshotRepository{db: db}
}

// Create stores one snapshot
func (r *GormSnapshotRepository) Create(snapshot *models.AnalyticsSnapshot) error {
	return r.db.Create(snapshot).Error
}

// ListByTeam returns a team's snapshots newest-first
func (r *GormSnapshotRepository) ListByTeam(teamID uint64, limit int) ([]models.AnalyticsSnapshot, error) {
	var snapshots []models.AnalyticsSnapshot
	err := r.db.
		Where("team_id = ?", teamID).
		Order("created_at DESC").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

// CompletionLeader finds the member who completed the most tasks in the
// window, counted from the journal so deleted tasks still count.
func (r *GormSnapshotRepository) CompletionLeader(teamID uint64, start, end time.Time) (uint64, int64, error) {
	var row struct {
		UserID uint64
		Count  int64
	}
	err := r.db.
		Model(&models.ActivityEntry{}).
		Select("user_id, COUNT(*) AS count").
		Where("team_id = ? AND action = ? AND created_at >= ? AND created_at < ?",
			teamID, models.ActionTaskCompleted, start, end).
		Group("user_id").
		Order("count DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.UserID, row.Count, nil
}

// MemberCompletionCounts returns per-member completion counts for the
// window, counted from the journal so deleted tasks still count.
func (r *GormSnapshotRepository) MemberCompletionCounts(teamID uint64, start, end time.Time) (map[uint64]int64, error) {
	var rows []struct {
		UserID uint64
		Count  int64
	}
	err := r.db.
		Model(&models.ActivityEntry{}).
		Select("user_id, COUNT(*) AS count").
		Where("team_id = ? AND action = ? AND created_at >= ? AND created_at < ?",
			teamID, models.ActionTaskCompleted, start, end).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint64]int64, len(rows))
	for _, row := range rows {
		counts[row.UserID] = row.Count
	}
	return counts, nil
}

// CountCompletedInWindow counts a team's completions in the window
func (r *GormSnapshotRepository) CountCompletedInWindow(teamID uint64, start, end time.Time) (int64, error) {
	var count int64
	err := r.db.
		Model(&models.ActivityEntry{}).
		Where("team_id = ? AND action = ? AND created_at >= ? AND created_at < ?",
			teamID, models.ActionTaskCompleted, start, end).
		Count(&count).Error
	return count, err
}
