package services

import (
	"fmt"

	"github.com/champquest/champquest-api/internal/logger"
	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/repository"
	"github.com/champquest/champquest-api/internal/utils"
)

// ActivityService owns the append-only journal. A failed write is logged
// and swallowed, never rolled back into the operation that triggered it.
type ActivityService struct {
	activityRepo repository.ActivityRepository
	log          *logger.Logger
}

// NewActivityService creates a new ActivityService
func NewActivityService(activityRepo repository.ActivityRepository, log *logger.Logger) *ActivityService {
	return &ActivityService{
		activityRepo: activityRepo,
		log:          log,
	}
}

// Record appends one journal entry. Errors are logged, not returned.
func (s *ActivityService) Record(entry *models.ActivityEntry) {
	if err := s.activityRepo.Create(entry); err != nil {
		s.log.Error("activity journal write failed",
			"team_id", entry.TeamID,
			"action", entry.Action,
			"error", err,
		)
	}
}

// ListActivity returns one page of a team's journal newest-first, along
// with the total entry count.
func (s *ActivityService) ListActivity(teamID uint64, params utils.PaginationParams) ([]models.ActivityEntry, int64, error) {
	entries, total, err := s.activityRepo.ListByTeam(teamID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activity: %w", err)
	}

	return entries, total, nil
}
