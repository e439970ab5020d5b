package dto

import (
	"encoding/json"
	"time"

	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/repository"
	"github.com/champquest/champquest-api/internal/services"
)

// SprintDTO represents a sprint in API responses
type SprintDTO struct {
	ID             uint64              `json:"id"`
	Name           string              `json:"name"`
	StartDate      time.Time           `json:"start_date"`
	EndDate        time.Time           `json:"end_date"`
	Goals          []string            `json:"goals"`
	Status         models.SprintStatus `json:"status"`
	CreatedBy      string              `json:"created_by,omitempty"`
	TaskCount      *int64              `json:"task_count,omitempty"`
	CompletedCount *int64              `json:"completed_count,omitempty"`
	Tasks          []TaskDTO           `json:"tasks,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// ToSprintDTO converts a Sprint model to SprintDTO
func ToSprintDTO(sprint models.Sprint) SprintDTO {
	dto := SprintDTO{
		ID:        sprint.ID,
		Name:      sprint.Name,
		StartDate: sprint.StartDate,
		EndDate:   sprint.EndDate,
		Goals:     []string{},
		Status:    sprint.Status,
		CreatedAt: sprint.CreatedAt,
	}
	if sprint.GoalsJSON != "" {
		// A corrupted goals blob renders as an empty list, not an error.
		_ = json.Unmarshal([]byte(sprint.GoalsJSON), &dto.Goals)
	}
	if sprint.CreatedBy.ID != 0 {
		dto.CreatedBy = sprint.CreatedBy.DisplayName
	}
	return dto
}

// ToSprintSummaryDTOs converts sprint listings with their progress counts
func ToSprintSummaryDTOs(summaries []repository.SprintSummary) []SprintDTO {
	dtos := make([]SprintDTO, len(summaries))
	for i, summary := range summaries {
		dto := ToSprintDTO(summary.Sprint)
		taskCount := summary.TaskCount
		completedCount := summary.CompletedCount
		dto.TaskCount = &taskCount
		dto.CompletedCount = &completedCount
		dtos[i] = dto
	}
	return dtos
}

// SnapshotDTO represents a stored analytics snapshot in API responses
type SnapshotDTO struct {
	ID                uint64          `json:"id"`
	Period            string          `json:"period"`
	PeriodStart       time.Time       `json:"period_start"`
	PeriodEnd         time.Time       `json:"period_end"`
	MVP               string          `json:"mvp,omitempty"`
	MVPTasksCompleted int             `json:"mvp_tasks_completed"`
	Data              json.RawMessage `json:"data,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ToSnapshotDTO converts a history entry to SnapshotDTO
func ToSnapshotDTO(entry services.HistoryEntry) SnapshotDTO {
	return SnapshotDTO{
		ID:                entry.Snapshot.ID,
		Period:            entry.Snapshot.Period,
		PeriodStart:       entry.Snapshot.PeriodStart,
		PeriodEnd:         entry.Snapshot.PeriodEnd,
		MVP:               entry.MVPName,
		MVPTasksCompleted: entry.Snapshot.MVPTasksCompleted,
		Data:              json.RawMessage(entry.Snapshot.DataJSON),
		CreatedAt:         entry.Snapshot.CreatedAt,
	}
}

// ToSnapshotDTOs converts a slice of history entries
func ToSnapshotDTOs(entries []services.HistoryEntry) []SnapshotDTO {
	dtos := make([]SnapshotDTO, len(entries))
	for i, entry := range entries {
		dtos[i] = ToSnapshotDTO(entry)
	}
	return dtos
}
