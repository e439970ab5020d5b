package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/champquest/champquest-api/internal/rewards"
)

// GetRewardConfig exposes the XP and rank tables so clients render the same
// numbers the server awards.
func GetRewardConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"xp_values": rewards.XPValues(),
		"levels":    rewards.Levels,
	})
}
