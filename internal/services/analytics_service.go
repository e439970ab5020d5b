package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/repository"
)

var ErrInvalidPeriod = errors.New("period must be weekly or monthly")

// AnalyticsService serves period leaderboards and the snapshot history. The
// period counts come from the journal, so completions of since-deleted
// tasks still show up.
type AnalyticsService struct {
	teamRepo     repository.TeamRepository
	snapshotRepo repository.SnapshotRepository
	userRepo     repository.UserRepository
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(
	teamRepo repository.TeamRepository,
	snapshotRepo repository.SnapshotRepository,
	userRepo repository.UserRepository,
) *AnalyticsService {
	return &AnalyticsService{
		teamRepo:     teamRepo,
		snapshotRepo: snapshotRepo,
		userRepo:     userRepo,
	}
}

// PeriodMember is one row of a period leaderboard, ranked by total XP.
type PeriodMember struct {
	UserID         uint64 `json:"id"`
	DisplayName    string `json:"displayName"`
	XP             int    `json:"xp"`
	TasksCompleted int    `json:"tasksCompleted"`
	Streak         int    `json:"streak"`
	MascotColor    string `json:"mascotColor"`
	PeriodTasks    int64  `json:"periodTasks"`
	Rank           int    `json:"rank"`
}

// PeriodReport is a team's leaderboard over one period. MVP is the member
// with the most completions inside the window, which may differ from the XP
// leader.
type PeriodReport struct {
	Period      string         `json:"period"`
	PeriodStart time.Time      `json:"periodStart"`
	PeriodEnd   time.Time      `json:"periodEnd"`
	Members     []PeriodMember `json:"members"`
	MVP         *PeriodMember  `json:"mvp"`
}

// Weekly reports the current calendar week, Monday through Sunday.
func (s *AnalyticsService) Weekly(teamID, userID uint64, now time.Time) (*PeriodReport, error) {
	start, end := weekBounds(now)
	return s.report(teamID, userID, "weekly", start, end)
}

// Monthly reports the current calendar month.
func (s *AnalyticsService) Monthly(teamID, userID uint64, now time.Time) (*PeriodReport, error) {
	start, end := monthBounds(now)
	return s.report(teamID, userID, "monthly", start, end)
}

// HistoryEntry is one stored snapshot with the MVP's name resolved.
type HistoryEntry struct {
	Snapshot models.AnalyticsSnapshot
	MVPName  string
}

// History returns the team's stored snapshots newest-first
func (s *AnalyticsService) History(teamID, userID uint64, limit int) ([]HistoryEntry, error) {
	if err := s.checkMember(teamID, userID); err != nil {
		return nil, err
	}

	snapshots, err := s.snapshotRepo.ListByTeam(teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(snapshots))
	for _, snapshot := range snapshots {
		entry := HistoryEntry{Snapshot: snapshot}
		if snapshot.MVPUserID != nil {
			if user, err := s.userRepo.FindByID(*snapshot.MVPUserID); err == nil {
				entry.MVPName = user.DisplayName
			}
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Snapshot stores the current period report on demand. Admin only; the
// scheduled job covers the weekly cadence, this covers end-of-period
// ceremonies.
func (s *AnalyticsService) Snapshot(teamID, actorID uint64, period string, now time.Time) (*models.AnalyticsSnapshot, error) {
	member, err := s.teamRepo.FindMember(teamID, actorID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotTeamMember
		}
		return nil, fmt.Errorf("failed to verify team membership: %w", err)
	}
	if member.Role != models.RoleAdmin {
		return nil, ErrNotTeamAdmin
	}

	var start, end time.Time
	switch period {
	case "weekly":
		start, end = weekBounds(now)
	case "monthly":
		start, end = monthBounds(now)
	default:
		return nil, ErrInvalidPeriod
	}

	report, err := s.buildReport(teamID, period, start, end)
	if err != nil {
		return nil, err
	}

	dataJSON, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	snapshot := &models.AnalyticsSnapshot{
		TeamID:      teamID,
		Period:      period,
		PeriodStart: start,
		PeriodEnd:   end,
		DataJSON:    string(dataJSON),
	}
	if report.MVP != nil {
		mvpID := report.MVP.UserID
		snapshot.MVPUserID = &mvpID
		snapshot.MVPTasksCompleted = int(report.MVP.PeriodTasks)
	}

	if err := s.snapshotRepo.Create(snapshot); err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}

	return snapshot, nil
}

func (s *AnalyticsService) report(teamID, userID uint64, period string, start, end time.Time) (*PeriodReport, error) {
	if err := s.checkMember(teamID, userID); err != nil {
		return nil, err
	}
	return s.buildReport(teamID, period, start, end)
}

func (s *AnalyticsService) buildReport(teamID uint64, period string, start, end time.Time) (*PeriodReport, error) {
	members, err := s.teamRepo.ListMembers(teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	counts, err := s.snapshotRepo.MemberCompletionCounts(teamID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to count completions: %w", err)
	}

	report := &PeriodReport{
		Period:      period,
		PeriodStart: start,
		PeriodEnd:   end,
		Members:     make([]PeriodMember, 0, len(members)),
	}

	// Members arrive XP-descending; rank follows that order. MVP is picked
	// by period completions instead.
	var mvp *PeriodMember
	for i, m := range members {
		row := PeriodMember{
			UserID:         m.UserID,
			DisplayName:    m.User.DisplayName,
			XP:             m.XP,
			TasksCompleted: m.TasksCompleted,
			Streak:         m.Streak,
			MascotColor:    m.MascotColor,
			PeriodTasks:    counts[m.UserID],
			Rank:           i + 1,
		}
		report.Members = append(report.Members, row)
		if row.PeriodTasks > 0 && (mvp == nil || row.PeriodTasks > mvp.PeriodTasks) {
			copied := row
			mvp = &copied
		}
	}
	report.MVP = mvp

	return report, nil
}

func (s *AnalyticsService) checkMember(teamID, userID uint64) error {
	if _, err := s.teamRepo.FindMember(teamID, userID); err != nil {
		if isNotFound(err) {
			return ErrNotTeamMember
		}
		return fmt.Errorf("failed to verify team membership: %w", err)
	}
	return nil
}

// weekBounds returns the Monday 00:00 opening the week of t and the Monday
// 00:00 closing it (exclusive).
func weekBounds(t time.Time) (time.Time, time.Time) {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	start := day.AddDate(0, 0, 1-weekday)
	return start, start.AddDate(0, 0, 7)
}

// monthBounds returns the first of the month and the first of the next
// month (exclusive).
func monthBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}
