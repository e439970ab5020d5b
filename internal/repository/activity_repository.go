package repository

import (
	"gorm.io/gorm"

	"github.com/champquest/champquest-api/internal/database"
	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/utils"
)

// GormActivityRepository is a GORM implementation of ActivityRepository
type GormActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &GormActivityRepository{db: db}
}

// Create appends one entry. Entries are never updated or deleted.
func (r *GormActivityRepository) Create(entry *models.ActivityEntry) error {
	return r.db.Create(entry).Error
}

// ListByTeam returns one page of a team's entries newest-first, along with
// the team's total entry count
func (r *GormActivityRepository) ListByTeam(teamID uint64, params utils.PaginationParams) ([]models.ActivityEntry, int64, error) {
	var total int64
	if err := r.db.
		Model(&models.ActivityEntry{}).
		Where("team_id = ?", teamID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.ActivityEntry
	err := r.db.
		Where("team_id = ?", teamID).
		Order("created_at DESC").
		Scopes(database.Paginate(params)).
		Preload("User").
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
