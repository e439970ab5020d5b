package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/champquest/champquest-api/internal/dto"
	apierrors "github.com/champquest/champquest-api/internal/errors"
	"github.com/champquest/champquest-api/internal/middleware"
	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/services"
	"github.com/champquest/champquest-api/internal/utils"
)

// TeamHandler coordinates team-related HTTP handlers.
type TeamHandler struct {
	teamService *services.TeamService
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
	}
}

// CreateTeam creates a new team with the caller as admin.
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	type CreateTeamRequest struct {
		Name string `json:"name" binding:"required,min=1,max=255"`
	}

	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	team, err := h.teamService.CreateTeam(req.Name, userID)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTeamDTO(*team, true))
}

// JoinTeam adds the caller to the team matching the join code.
func (h *TeamHandler) JoinTeam(c *gin.Context) {
	type JoinTeamRequest struct {
		Code string `json:"code" binding:"required"`
	}

	var req JoinTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	team, err := h.teamService.JoinTeam(req.Code, userID)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamDTO(*team, true))
}

// ListMyTeams returns every team the caller belongs to.
func (h *TeamHandler) ListMyTeams(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	memberships, err := h.teamService.ListMyTeams(userID)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"teams": dto.ToMembershipDTOs(memberships),
	})
}

// GetTeam returns the team loaded by the access middleware.
func (h *TeamHandler) GetTeam(c *gin.Context) {
	team, ok := middleware.GetTeam(c)
	if !ok {
		apierrors.InternalError(c, "Team not loaded")
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamDTO(team, true))
}

// ListMembers returns the team's leaderboard, highest XP first.
func (h *TeamHandler) ListMembers(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	members, err := h.teamService.ListMembers(team.ID, userID)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"members": dto.ToMemberDTOs(members),
	})
}

// ChangeMemberRole promotes or demotes a member.
func (h *TeamHandler) ChangeMemberRole(c *gin.Context) {
	type ChangeRoleRequest struct {
		Role string `json:"role" binding:"required"`
	}

	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	targetID, err := strconv.ParseUint(c.Param("userID"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, err := h.teamService.ChangeMemberRole(team.ID, userID, targetID, models.TeamRole(req.Role))
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMemberDTO(*member))
}

// RemoveMember kicks a member out of the team.
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	targetID, err := strconv.ParseUint(c.Param("userID"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	if err := h.teamService.RemoveMember(team.ID, userID, targetID); err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Member removed",
	})
}

// UpdateSettings replaces the team's settings blob.
func (h *TeamHandler) UpdateSettings(c *gin.Context) {
	type UpdateSettingsRequest struct {
		Settings string `json:"settings" binding:"required"`
	}

	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.teamService.UpdateSettings(team.ID, userID, req.Settings)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamDTO(*updated, true))
}

// Stats returns aggregate task and XP totals for the team.
func (h *TeamHandler) Stats(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	stats, err := h.teamService.Stats(team.ID, userID)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Activity returns the team's recent journal entries, newest first.
func (h *TeamHandler) Activity(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)

	entries, total, err := h.teamService.Activity(team.ID, userID, params)
	if err != nil {
		respondTeamError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activity": dto.ToActivityEntryDTOs(entries),
		"pagination": utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

// teamContext pulls the team and caller out of the request context. It
// writes the error response itself when either is missing.
func teamContext(c *gin.Context) (models.Team, uint64, bool) {
	team, ok := middleware.GetTeam(c)
	if !ok {
		apierrors.InternalError(c, "Team not loaded")
		return models.Team{}, 0, false
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return models.Team{}, 0, false
	}

	return team, userID, true
}

func respondTeamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTeamNameRequired),
		errors.Is(err, services.ErrInvalidMemberRole):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrInvalidJoinCode),
		errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrNotTeamMember),
		errors.Is(err, services.ErrMemberNotInTeam):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrAlreadyMember):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrNotTeamAdmin),
		errors.Is(err, services.ErrLastAdmin),
		errors.Is(err, services.ErrCannotRemoveSelf):
		apierrors.Forbidden(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
