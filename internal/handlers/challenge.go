package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/champquest/champquest-api/internal/dto"
	apierrors "github.com/champquest/champquest-api/internal/errors"
	"github.com/champquest/champquest-api/internal/models"
	"github.com/champquest/champquest-api/internal/services"
)

// ChallengeHandler coordinates challenge-related HTTP handlers.
type ChallengeHandler struct {
	challengeService *services.ChallengeService
}

// NewChallengeHandler creates a new ChallengeHandler.
func NewChallengeHandler(challengeService *services.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
	}
}

// ListDaily returns today's challenges: the team's own plus the day's
// global rotation, with the caller's completion flags.
func (h *ChallengeHandler) ListDaily(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	daily, err := h.challengeService.ListDaily(team.ID, userID, time.Now())
	if err != nil {
		respondChallengeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenges": dto.ToDailyChallengeDTOs(daily),
	})
}

// ListAll returns every challenge for admin management, inactive included.
func (h *ChallengeHandler) ListAll(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	challenges, err := h.challengeService.ListAll(team.ID, userID)
	if err != nil {
		respondChallengeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenges": dto.ToChallengeDTOs(challenges),
	})
}

// CreateChallenge creates a team challenge.
func (h *ChallengeHandler) CreateChallenge(c *gin.Context) {
	type CreateChallengeRequest struct {
		Title       string `json:"title" binding:"required,min=1,max=255"`
		Description string `json:"description"`
		XPReward    int    `json:"xp_reward"`
		Type        string `json:"type"`
	}

	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	var req CreateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	challenge, err := h.challengeService.CreateChallenge(services.CreateChallengeInput{
		TeamID:      team.ID,
		ActorID:     userID,
		Title:       req.Title,
		Description: req.Description,
		XPReward:    req.XPReward,
		Type:        models.ChallengeType(req.Type),
	})
	if err != nil {
		respondChallengeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToChallengeDTO(*challenge))
}

// UpdateChallenge edits a team challenge.
func (h *ChallengeHandler) UpdateChallenge(c *gin.Context) {
	type UpdateChallengeRequest struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		XPReward    *int    `json:"xp_reward"`
		Type        *string `json:"type"`
		Active      *bool   `json:"active"`
	}

	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	challengeID, err := strconv.ParseUint(c.Param("challengeID"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid challenge ID")
		return
	}

	var req UpdateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateChallengeInput{
		Title:       req.Title,
		Description: req.Description,
		XPReward:    req.XPReward,
		Active:      req.Active,
	}
	if req.Type != nil {
		challengeType := models.ChallengeType(*req.Type)
		input.Type = &challengeType
	}

	challenge, err := h.challengeService.UpdateChallenge(team.ID, challengeID, userID, input)
	if err != nil {
		respondChallengeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToChallengeDTO(*challenge))
}

// DeleteChallenge removes a team challenge.
func (h *ChallengeHandler) DeleteChallenge(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	challengeID, err := strconv.ParseUint(c.Param("challengeID"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid challenge ID")
		return
	}

	if err := h.challengeService.DeleteChallenge(team.ID, challengeID, userID); err != nil {
		respondChallengeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Challenge deleted",
	})
}

// CompleteChallenge records today's completion and credits the XP.
func (h *ChallengeHandler) CompleteChallenge(c *gin.Context) {
	team, userID, ok := teamContext(c)
	if !ok {
		return
	}

	challengeID, err := strconv.ParseUint(c.Param("challengeID"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid challenge ID")
		return
	}

	result, err := h.challengeService.Complete(team.ID, challengeID, userID, time.Now())
	if err != nil {
		respondChallengeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"xp_earned":  result.XPEarned,
		"new_xp":     result.NewXP,
		"leveled_up": result.LeveledUp,
		"new_level":  result.NewLevel,
		"new_rank":   result.NewRank,
	})
}

func respondChallengeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrChallengeTitleRequired):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrChallengeNotFound),
		errors.Is(err, services.ErrNotTeamMember):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotTeamAdmin):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrChallengeAlreadyCompleted):
		apierrors.Conflict(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
