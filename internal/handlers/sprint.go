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

// SprintHandler coordinates sprint-related HTTP handlers.
type SprintHandler struct {
	sprintService *services.SprintService
}

// NewSprintHandler creates a new SprintHandler.
func NewSprintHandler(sprintService *services.SprintService) *SprintHandler {
	return &SprintHandler{
		sprintService: sprintService,
	}
}

// ListSprints returns the team's sprints with task progress counts.
func (h *SprintHandler) ListSprints(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	summaries, err := h.sprintService.ListSprints(team.ID, userID)
	if err != nil {
		respondSprintError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sprints": dto.ToSprintSummaryDTOs(summaries),
	})
}

// CreateSprint creates a sprint.
func (h *SprintHandler) CreateSprint(c *gin.Context) {
	type CreateSprintRequest struct {
		Name      string    `json:"name" binding:"required,min=1,max=255"`
		StartDate time.Time `json:"start_date" binding:"required"`
		EndDate   time.Time `json:"end_date" binding:"required"`
		Goals     []string  `json:"goals"`
	}

	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	var req CreateSprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	sprint, err := h.sprintService.CreateSprint(services.CreateSprintInput{
		TeamID:    team.ID,
		ActorID:   userID,
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Goals:     req.Goals,
	})
	if err != nil {
		respondSprintError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToSprintDTO(*sprint))
}

// GetSprint returns one sprint with its tasks.
func (h *SprintHandler) GetSprint(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	sprintID, ok := sprintParam(c)
	if !ok {
		return
	}

	sprint, tasks, err := h.sprintService.GetSprint(team.ID, sprintID, userID)
	if err != nil {
		respondSprintError(c, err)
		return
	}

	resp := dto.ToSprintDTO(*sprint)
	resp.Tasks = dto.ToTaskDTOs(tasks)
	c.JSON(http.StatusOK, resp)
}

// UpdateSprint edits a sprint's name, status, or goals.
func (h *SprintHandler) UpdateSprint(c *gin.Context) {
	type UpdateSprintRequest struct {
		Name   *string  `json:"name"`
		Status *string  `json:"status"`
		Goals  []string `json:"goals"`
	}

	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	sprintID, ok := sprintParam(c)
	if !ok {
		return
	}

	var req UpdateSprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	sprint, err := h.sprintService.UpdateSprint(team.ID, sprintID, userID, services.UpdateSprintInput{
		Name:   req.Name,
		Status: req.Status,
		Goals:  req.Goals,
	})
	if err != nil {
		respondSprintError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToSprintDTO(*sprint))
}

// AddTask links a task into the sprint.
func (h *SprintHandler) AddTask(c *gin.Context) {
	type AddTaskRequest struct {
		TaskID uint64 `json:"task_id" binding:"required"`
	}

	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	sprintID, ok := sprintParam(c)
	if !ok {
		return
	}

	var req AddTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.sprintService.AddTask(team.ID, sprintID, req.TaskID, userID); err != nil {
		respondSprintError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task added to sprint",
	})
}

// RemoveTask unlinks a task from the sprint. Idempotent.
func (h *SprintHandler) RemoveTask(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	sprintID, ok := sprintParam(c)
	if !ok {
		return
	}

	taskID, err := strconv.ParseUint(c.Param("taskID"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	if err := h.sprintService.RemoveTask(team.ID, sprintID, taskID, userID); err != nil {
		respondSprintError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task removed from sprint",
	})
}

func sprintParam(c *gin.Context) (uint64, bool) {
	sprintID, err := strconv.ParseUint(c.Param("sprintID"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid sprint ID")
		return 0, false
	}
	return sprintID, true
}

func respondSprintError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSprintFieldsRequired),
		errors.Is(err, services.ErrInvalidSprintStatus):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrSprintNotFound),
		errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrNotTeamMember):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotTeamAdmin):
		apierrors.Forbidden(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
