package repository

import (
	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/rewards"
	"github.com/champquest/champquest-api/internal/utils"
)

// CompletionApplier computes the reward for a completion. It runs inside the
// completion transaction, after the task and member rows have been locked,
// so the read-modify-write of the member aggregate cannot race another
// completion.
type CompletionApplier func(task *models.Task, member *models.TeamMember) rewards.CompletionResult

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByIDInTeam finds a task by ID scoped to a team, with optional preloading
	FindByIDInTeam(taskID, teamID uint64, preload ...string) (*models.Task, error)

	// ListByTeam retrieves a team's tasks: open before completed, then by
	// priority, then newest-first
	ListByTeam(filter TaskFilter) ([]models.Task, error)

	// Update updates a task
	Update(task *models.Task) error

	// Delete soft deletes a task and removes its dependency edges and
	// comments in the same transaction
	Delete(taskID, teamID uint64) error

	// CompleteWithReward marks the task done and applies the member's reward
	// atomically. Exactly one of two concurrent calls wins; the loser gets
	// ErrTaskAlreadyCompleted.
	CompleteWithReward(taskID, teamID, actorID uint64, apply CompletionApplier) (*models.Task, *rewards.CompletionResult, error)

	// ListOverdue returns incomplete tasks whose due date has passed
	ListOverdue(teamID uint64) ([]models.Task, error)
}

// TaskFilter holds filtering options for listing a team's tasks
type TaskFilter struct {
	TeamID       uint64
	AssignedToID *uint64
	Status       *models.TaskStatus
}

// DependencyLink is one side of a task's dependency listing.
type DependencyLink struct {
	DepID    uint64              `json:"depId"`
	TaskID   uint64              `json:"id"`
	Title    string              `json:"title"`
	Status   models.TaskStatus   `json:"status"`
	Priority models.TaskPriority `json:"priority"`
}

// DependencyRepository defines the interface for dependency edge data access
type DependencyRepository interface {
	// Create inserts an edge after checking, inside one transaction, that the
	// exact edge does not already exist and that it would not close a cycle
	// in the team's graph
	Create(dep *models.TaskDependency) error

	// Remove deletes an edge touching the given task. Removing a nonexistent
	// edge is not an error.
	Remove(teamID, depID, taskID uint64) error

	// ListForTask returns the tasks blocking taskID and the tasks it blocks,
	// ordered by priority then creation order
	ListForTask(teamID, taskID uint64) (blockedBy, blocking []DependencyLink, err error)
}

// ActivityRepository defines the interface for the append-only journal
type ActivityRepository interface {
	// Create appends one entry
	Create(entry *models.ActivityEntry) error

	// ListByTeam returns one page of a team's entries newest-first, plus the
	// total entry count
	ListByTeam(teamID uint64, params utils.PaginationParams) ([]models.ActivityEntry, int64, error)
}

// TeamRepository defines the interface for team data access
type TeamRepository interface {
	// Create creates a team and its admin membership in one transaction
	Create(team *models.Team, admin *models.TeamMember) error

	// FindByID finds a team by ID
	FindByID(id uint64) (*models.Team, error)

	// FindByCode finds a team by join code
	FindByCode(code string) (*models.Team, error)

	// Update updates a team
	Update(team *models.Team) error

	// AddMember adds a member to a team
	AddMember(member *models.TeamMember) error

	// RemoveMember removes a member from a team
	RemoveMember(teamID, userID uint64) error

	// FindMember finds a specific team member
	FindMember(teamID, userID uint64) (*models.TeamMember, error)

	// UpdateMember saves a member row (role changes)
	UpdateMember(member *models.TeamMember) error

	// CountAdmins counts a team's admins
	CountAdmins(teamID uint64) (int64, error)

	// ListMembersByUserID lists all teams a user is a member of
	ListMembersByUserID(userID uint64) ([]models.TeamMember, error)

	// ListMembers lists a team's members ordered by XP descending
	ListMembers(teamID uint64) ([]models.TeamMember, error)

	// ListTeamIDs returns every team ID (snapshot job)
	ListTeamIDs() ([]uint64, error)

	// Stats aggregates task and XP totals for a team
	Stats(teamID uint64) (*TeamStats, error)
}

// TeamStats is the aggregate served by the team stats endpoint.
type TeamStats struct {
	TotalTasks     int64  `json:"totalTasks"`
	CompletedTasks int64  `json:"completedTasks"`
	TotalTeamXP    int64  `json:"totalTeamXP"`
	TopMember      string `json:"topMember"`
}

// CommentRepository defines the interface for task comment data access
type CommentRepository interface {
	// Create adds a comment
	Create(comment *models.TaskComment) error

	// ListByTask returns a task's comments oldest-first
	ListByTask(taskID uint64) ([]models.TaskComment, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// CreateWithPersonalTeam creates a user, their personal team, and the
	// admin membership within a single transaction.
	CreateWithPersonalTeam(user *models.User, team *models.Team, member *models.TeamMember) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)
}
