package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/champquest/champquest-api/internal/dto"
	apierrors "github.com/champquest/champquest-api/internal/errors"
	"github.com/champquest/champquest-api/internal/services"
)

const defaultHistoryLimit = 10

// AnalyticsHandler coordinates analytics HTTP handlers.
type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
	}
}

// Weekly returns the current calendar week's leaderboard.
func (h *AnalyticsHandler) Weekly(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	report, err := h.analyticsService.Weekly(team.ID, userID, time.Now())
	if err != nil {
		respondAnalyticsError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Monthly returns the current calendar month's leaderboard.
func (h *AnalyticsHandler) Monthly(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	report, err := h.analyticsService.Monthly(team.ID, userID, time.Now())
	if err != nil {
		respondAnalyticsError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// History returns past snapshots newest-first. ?limit= caps the page.
func (h *AnalyticsHandler) History(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.analyticsService.History(team.ID, userID, limit)
	if err != nil {
		respondAnalyticsError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"snapshots": dto.ToSnapshotDTOs(entries),
	})
}

// Snapshot stores the current period report on demand.
func (h *AnalyticsHandler) Snapshot(c *gin.Context) {
	type SnapshotRequest struct {
		Period string `json:"period" binding:"required"`
	}

	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	var req SnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	snapshot, err := h.analyticsService.Snapshot(team.ID, userID, req.Period, time.Now())
	if err != nil {
		respondAnalyticsError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":                  snapshot.ID,
		"period":              snapshot.Period,
		"period_start":        snapshot.PeriodStart,
		"period_end":          snapshot.PeriodEnd,
		"mvp_tasks_completed": snapshot.MVPTasksCompleted,
		"created_at":          snapshot.CreatedAt,
	})
}

func respondAnalyticsError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidPeriod):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrNotTeamMember):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotTeamAdmin):
		apierrors.Forbidden(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
