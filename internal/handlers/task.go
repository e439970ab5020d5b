package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/champquest/champquest-api/internal/dto"
	apierrors "github.com/champquest/champquest-api/internal/errors"
	"github.com/champquest/champquest-api/internal/logger"
	"github.com/champquest/champquest-api/internal/middleware"
	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/services"
)

// TaskHandler coordinates task-related HTTP handlers.
type TaskHandler struct {
	taskService    *services.TaskService
	depService     *services.DependencyService
	commentService *services.CommentService
	aiService      *services.AIService
	teamService    *services.TeamService
	log            *logger.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(
	taskService *services.TaskService,
	depService *services.DependencyService,
	commentService *services.CommentService,
	aiService *services.AIService,
	teamService *services.TeamService,
	log *logger.Logger,
) *TaskHandler {
	return &TaskHandler{
		taskService:    taskService,
		depService:     depService,
		commentService: commentService,
		aiService:      aiService,
		teamService:    teamService,
		log:            log,
	}
}

// CreateTask creates a new task in todo status.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	type CreateTaskRequest struct {
		Title        string     `json:"title" binding:"required,min=1,max=255"`
		Priority     string     `json:"priority"`
		Category     string     `json:"category"`
		Notes        string     `json:"notes"`
		DueDate      *time.Time `json:"due_date"`
		AssignedToID *uint64    `json:"assigned_to_id"`
	}

	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(services.CreateTaskInput{
		TeamID:       team.ID,
		CreatorID:    userID,
		Title:        req.Title,
		Priority:     models.TaskPriority(req.Priority),
		Category:     req.Category,
		Notes:        req.Notes,
		DueDate:      req.DueDate,
		AssignedToID: req.AssignedToID,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// ListTasks returns the team's tasks. ?filter=mine restricts to the caller's
// assignments.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	mineOnly := c.Query("filter") == "mine"

	tasks, err := h.taskService.ListTasks(team.ID, userID, mineOnly)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": dto.ToTaskDTOs(tasks),
	})
}

// GetTask returns one task.
func (h *TaskHandler) GetTask(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not loaded")
		return
	}

	loaded, err := h.taskService.GetTask(team.ID, task.ID, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*loaded))
}

// ListOverdueTasks returns incomplete tasks past their due date.
func (h *TaskHandler) ListOverdueTasks(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.ListOverdueTasks(team.ID, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": dto.ToTaskDTOs(tasks),
	})
}

// UpdateTask edits task fields outside the status machine.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	type UpdateTaskRequest struct {
		Title        *string    `json:"title"`
		Priority     *string    `json:"priority"`
		Category     *string    `json:"category"`
		Notes        *string    `json:"notes"`
		DueDate      *time.Time `json:"due_date"`
		ClearDueDate bool       `json:"clear_due_date"`
	}

	team, userID, ok := teamContext(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not loaded")
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTaskInput{
		Title:        req.Title,
		Category:     req.Category,
		Notes:        req.Notes,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
	}
	if req.Priority != nil {
		priority := models.TaskPriority(*req.Priority)
		input.Priority = &priority
	}

	updated, err := h.taskService.UpdateTask(team.ID, task.ID, userID, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// DeleteTask removes a task along with its dependency edges and comments.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not loaded")
		return
	}

	if err := h.taskService.DeleteTask(team.ID, task.ID, userID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted",
	})
}

// SetStatus applies a status transition, awarding XP when the transition
// completes the task.
func (h *TaskHandler) SetStatus(c *gin.Context) {
	type SetStatusRequest struct {
		Status      string  `json:"status" binding:"required"`
		BlockerNote *string `json:"blockerNote"`
	}

	team, userID, ok := teamContext(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not loaded")
		return
	}

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.taskService.SetStatus(services.SetStatusInput{
		TeamID:      team.ID,
		TaskID:      task.ID,
		ActorID:     userID,
		Status:      req.Status,
		BlockerNote: req.BlockerNote,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, statusChangeResponse(result))
}

// CompleteTask marks a task done.
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not loaded")
		return
	}

	result, err := h.taskService.CompleteTask(team.ID, task.ID, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, statusChangeResponse(result))
}

// UncompleteTask reopens a completed task. Earned XP stays.
func (h *TaskHandler) UncompleteTask(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not loaded")
		return
	}

	result, err := h.taskService.UncompleteTask(team.ID, task.ID, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, statusChangeResponse(result))
}

// AssignTask sets or clears the task's assignee.
func (h *TaskHandler) AssignTask(c *gin.Context) {
	type AssignTaskRequest struct {
		AssignedToID *uint64 `json:"assigned_to_id"`
	}

	team, userID, ok := teamContext(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not loaded")
		return
	}

	var req AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.taskService.AssignTask(team.ID, task.ID, userID, req.AssignedToID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// GetDependencies lists the tasks blocking this one and the tasks it blocks.
func (h *TaskHandler) GetDependencies(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not loaded")
		return
	}

	deps, err := h.depService.GetDependencies(team.ID, task.ID, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, deps)
}

// AddDependency records that this task depends on another.
func (h *TaskHandler) AddDependency(c *gin.Context) {
	type AddDependencyRequest struct {
		DependsOnID uint64 `json:"depends_on_id" binding:"required"`
	}

	team, userID, ok := teamContext(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not loaded")
		return
	}

	var req AddDependencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	dep, err := h.depService.AddDependency(team.ID, task.ID, req.DependsOnID, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":            dep.ID,
		"task_id":       dep.TaskID,
		"depends_on_id": dep.DependsOnID,
	})
}

// RemoveDependency deletes a dependency edge. Idempotent.
func (h *TaskHandler) RemoveDependency(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not loaded")
		return
	}

	depID, err := strconv.ParseUint(c.Param("depID"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid dependency ID")
		return
	}

	if err := h.depService.RemoveDependency(team.ID, task.ID, depID, userID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Dependency removed",
	})
}

// AddComment appends a comment to the task.
func (h *TaskHandler) AddComment(c *gin.Context) {
	type AddCommentRequest struct {
		Content string `json:"content" binding:"required"`
	}

	team, userID, ok := teamContext(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not loaded")
		return
	}

	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	comment, err := h.commentService.AddComment(team.ID, task.ID, userID, req.Content)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCommentDTO(*comment))
}

// ListComments returns the task's comments oldest-first.
func (h *TaskHandler) ListComments(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not loaded")
		return
	}

	comments, err := h.commentService.ListComments(team.ID, task.ID, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": dto.ToCommentDTOs(comments),
	})
}

// ExtractTasks runs the AI extractor over free-form text and creates the
// resulting tasks, linking extracted dependency hints through the normal
// dependency path.
func (h *TaskHandler) ExtractTasks(c *gin.Context) {
	type ExtractRequest struct {
		Text string `json:"text" binding:"required"`
	}

	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	if !h.aiService.Enabled() {
		apierrors.ServiceUnavailable(c, "AI task extraction is not configured")
		return
	}

	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	members, err := h.teamService.ListMembers(team.ID, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}
	names := make([]string, 0, len(members))
	byName := make(map[string]uint64, len(members))
	for _, m := range members {
		if m.User.ID == 0 {
			continue
		}
		names = append(names, m.User.DisplayName)
		byName[strings.ToLower(m.User.DisplayName)] = m.User.ID
	}

	extracted, err := h.aiService.ExtractTasksFromText(c.Request.Context(), req.Text, names)
	if err != nil {
		apierrors.InternalError(c, "Failed to extract tasks")
		return
	}

	created := make([]dto.TaskDTO, 0, len(extracted))
	byTitle := make(map[string]uint64, len(extracted))
	for _, candidate := range extracted {
		input := services.CreateTaskInput{
			TeamID:    team.ID,
			CreatorID: userID,
			Title:     candidate.Title,
			Priority:  models.TaskPriority(candidate.Priority),
			Notes:     candidate.Notes,
			DueDate:   candidate.DueDate,
		}
		if id, found := byName[strings.ToLower(candidate.AssignedTo)]; found && candidate.AssignedTo != "" {
			assignee := id
			input.AssignedToID = &assignee
		}

		task, err := h.taskService.CreateTask(input)
		if err != nil {
			h.log.Warn("skipping extracted task", "team_id", team.ID, "title", candidate.Title, "error", err)
			continue
		}
		byTitle[strings.ToLower(task.Title)] = task.ID
		created = append(created, dto.ToTaskDTO(*task))
	}

	h.linkExtracted(team.ID, userID, extracted, byTitle)

	c.JSON(http.StatusCreated, gin.H{
		"tasks": created,
	})
}

// linkExtracted wires dependency hints between the created tasks. Hints that
// point at unknown titles or fail validation are logged and skipped, not
// fatal.
func (h *TaskHandler) linkExtracted(teamID, userID uint64, extracted []services.ExtractedTask, byTitle map[string]uint64) {
	for _, candidate := range extracted {
		taskID, found := byTitle[strings.ToLower(strings.TrimSpace(candidate.Title))]
		if !found {
			continue
		}
		for _, depTitle := range candidate.DependsOnTitles {
			depID, found := byTitle[strings.ToLower(strings.TrimSpace(depTitle))]
			if !found {
				continue
			}
			if _, err := h.depService.AddDependency(teamID, taskID, depID, userID); err != nil {
				h.log.Warn("skipping extracted dependency link",
					"team_id", teamID, "task_id", taskID, "depends_on_id", depID, "error", err)
			}
		}
	}
}

func statusChangeResponse(result *services.StatusChangeResult) gin.H {
	resp := gin.H{
		"task": dto.ToTaskDTO(*result.Task),
	}
	if result.Rewarded {
		resp["reward"] = gin.H{
			"xp_earned":  result.XPEarned,
			"new_xp":     result.NewXP,
			"streak":     result.Streak,
			"leveled_up": result.LeveledUp,
			"new_level":  result.NewLevel,
			"new_rank":   result.NewRank,
		}
	}
	return resp
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidAssignee),
		errors.Is(err, services.ErrSelfDependency),
		errors.Is(err, services.ErrCommentBodyRequired):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrNotTeamMember):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotCreatorOrAdmin):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrTaskAlreadyCompleted),
		errors.Is(err, services.ErrDuplicateDependency):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrDependencyCycle):
		apierrors.CycleDetected(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
