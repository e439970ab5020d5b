package constants

// Context keys
const (
	ContextKeyUserID     = "user_id"
	ContextKeyTeam       = "team"
	ContextKeyTeamMember = "team_member"
	ContextKeyTask       = "task"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Auth
const (
	MinPasswordLength = 8
	SessionCookieName = "champquest_session"
)

// AI task extraction
const (
	MaxExtractedTasks = 20
)
