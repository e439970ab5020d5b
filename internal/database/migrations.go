package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AddIndexes adds performance-critical indexes to the database
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Task indexes for filtering and sorting
		{"tasks", "idx_tasks_team_id", "team_id"},
		{"tasks", "idx_tasks_status", "status"},
		{"tasks", "idx_tasks_assigned_to_id", "assigned_to_id"},
		{"tasks", "idx_tasks_due_date", "due_date"},
		{"tasks", "idx_tasks_created_at", "created_at"},

		// Team member indexes
		{"team_members", "idx_team_members_team_id", "team_id"},
		{"team_members", "idx_team_members_user_id", "user_id"},

		// Dependency edges are looked up from either side
		{"task_dependencies", "idx_task_dependencies_team_id", "team_id"},
		{"task_dependencies", "idx_task_dependencies_depends_on", "depends_on_id"},

		// Activity feed reads newest-first per team
		{"activity_entries", "idx_activity_entries_team_created", "team_id, created_at"},

		{"task_comments", "idx_task_comments_task_id", "task_id"},
		{"teams", "idx_teams_code", "code"},

		// Daily challenge lists scan by team, completions by challenge and date
		{"challenges", "idx_challenges_team_id", "team_id"},
		{"challenge_completions", "idx_challenge_completions_date", "challenge_id, completed_date"},

		{"sprints", "idx_sprints_team_id", "team_id"},
		{"sprint_tasks", "idx_sprint_tasks_sprint_id", "sprint_id"},
	}

	for _, idx := range indexes {
		// Check if index already exists
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Count(&count).Error

		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
