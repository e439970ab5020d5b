package jobs

import (
	"encoding/json"
	"time"

	"github.com/champquest/champquest-api/internal/logger"
	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/repository"
)

const snapshotPeriod = "weekly"

// SnapshotScheduler periodically writes per-team analytics snapshots. Each
// run covers the seven days ending at run time.
type SnapshotScheduler struct {
	teamRepo     repository.TeamRepository
	snapshotRepo repository.SnapshotRepository
	interval     time.Duration
	log          *logger.Logger
	stop         chan struct{}
	done         chan struct{}
}

// NewSnapshotScheduler creates a SnapshotScheduler. A zero interval defaults
// to weekly.
func NewSnapshotScheduler(
	teamRepo repository.TeamRepository,
	snapshotRepo repository.SnapshotRepository,
	interval time.Duration,
	log *logger.Logger,
) *SnapshotScheduler {
	if interval <= 0 {
		interval = 7 * 24 * time.Hour
	}
	return &SnapshotScheduler{
		teamRepo:     teamRepo,
		snapshotRepo: snapshotRepo,
		interval:     interval,
		log:          log,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start launches the scheduler loop in its own goroutine.
func (s *SnapshotScheduler) Start() {
	go s.run()
}

// Stop signals the loop to exit and waits for the in-flight run to finish.
func (s *SnapshotScheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *SnapshotScheduler) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(time.Now())
		case <-s.stop:
			return
		}
	}
}

// RunOnce writes one snapshot per team for the week ending at now. Failures
// are logged per team so one bad team does not stop the sweep.
func (s *SnapshotScheduler) RunOnce(now time.Time) {
	teamIDs, err := s.teamRepo.ListTeamIDs()
	if err != nil {
		s.log.Error("failed to list teams for snapshots", "error", err)
		return
	}

	start := now.Add(-7 * 24 * time.Hour)

	for _, teamID := range teamIDs {
		if err := s.snapshotTeam(teamID, start, now); err != nil {
			s.log.Error("failed to write team snapshot", "team_id", teamID, "error", err)
		}
	}
}

func (s *SnapshotScheduler) snapshotTeam(teamID uint64, start, end time.Time) error {
	completed, err := s.snapshotRepo.CountCompletedInWindow(teamID, start, end)
	if err != nil {
		return err
	}

	mvpID, mvpCount, err := s.snapshotRepo.CompletionLeader(teamID, start, end)
	if err != nil {
		return err
	}

	stats, err := s.teamRepo.Stats(teamID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(map[string]interface{}{
		"completed_in_window": completed,
		"total_tasks":         stats.TotalTasks,
		"completed_tasks":     stats.CompletedTasks,
		"total_team_xp":       stats.TotalTeamXP,
	})
	if err != nil {
		return err
	}

	snapshot := &models.AnalyticsSnapshot{
		TeamID:            teamID,
		Period:            snapshotPeriod,
		PeriodStart:       start,
		PeriodEnd:         end,
		MVPTasksCompleted: int(mvpCount),
		DataJSON:          string(data),
	}
	if mvpCount > 0 {
		mvp := mvpID
		snapshot.MVPUserID = &mvp
	}

	return s.snapshotRepo.Create(snapshot)
}
