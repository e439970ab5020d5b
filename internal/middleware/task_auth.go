package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/champquest/champquest-api/internal/constants"
	"github.com/champquest/champquest-api/internal/database"
	"github.com/champquest/champquest-api/internal/models"
)

// RequireTaskAccess loads the task named by the taskID parameter and checks
// it belongs to the team resolved by RequireTeamAccess
func RequireTaskAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get task ID from URL parameter
		taskIDStr := c.Param("taskID")
		taskID, err := strconv.ParseUint(taskIDStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid task ID",
			})
			c.Abort()
			return
		}

		// Get team from context (set by RequireTeamAccess)
		teamInterface, exists := c.Get(constants.ContextKeyTeam)
		if !exists {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Team access required",
			})
			c.Abort()
			return
		}
		team, ok := teamInterface.(models.Team)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Invalid team data",
			})
			c.Abort()
			return
		}

		// Check if task exists within the team
		var task models.Task
		if err := database.GetDB().
			Where("team_id = ?", team.ID).
			First(&task, taskID).Error; err != nil {
			// Return 404 for tasks outside the team to avoid leaking existence
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Task not found",
			})
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}

// GetTask retrieves the task loaded by RequireTaskAccess
func GetTask(c *gin.Context) (models.Task, bool) {
	taskInterface, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return models.Task{}, false
	}
	task, ok := taskInterface.(models.Task)
	return task, ok
}

// GetTeam retrieves the team loaded by RequireTeamAccess
func GetTeam(c *gin.Context) (models.Team, bool) {
	teamInterface, exists := c.Get(constants.ContextKeyTeam)
	if !exists {
		return models.Team{}, false
	}
	team, ok := teamInterface.(models.Team)
	return team, ok
}

// GetTeamMember retrieves the membership loaded by RequireTeamAccess
func GetTeamMember(c *gin.Context) (models.TeamMember, bool) {
	memberInterface, exists := c.Get(constants.ContextKeyTeamMember)
	if !exists {
		return models.TeamMember{}, false
	}
	member, ok := memberInterface.(models.TeamMember)
	return member, ok
}
