package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-achievement-api/internal/dto"
	"github.com/noah-isme/sma-achievement-api/internal/models"
	"github.com/noah-isme/sma-achievement-api/pkg/response"
)

type scoreService interface {
	GetScoreProfile(ctx context.Context, studentID string) (*models.ScoreProfile, error)
	Recompute(ctx context.Context, studentID string) (*models.ScoreProfile, error)
	Scoreboard(ctx context.Context, query dto.ScoreboardQuery) ([]models.ScoreboardEntry, *models.Pagination, error)
}

type recomputeScheduler interface {
	FullRecompute(ctx context.Context) (*models.CascadeResult, error)
	RecomputeForItemChange(ctx context.Context, itemID string) (*models.CascadeResult, error)
}

// ScoreHandler serves score profiles and the scoreboard.
type ScoreHandler struct {
	scores  scoreService
	cascade recomputeScheduler
}

// NewScoreHandler constructs the handler.
func NewScoreHandler(scores scoreService, cascade recomputeScheduler) *ScoreHandler {
	return &ScoreHandler{scores: scores, cascade: cascade}
}

// StudentScore godoc
// @Summary Get a student's score profile
// @Description Returns the stored composite, computing it on first access
// @Tags Scores
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /students/{id}/score [get]
func (h *ScoreHandler) StudentScore(c *gin.Context) {
	h.respondProfile(c, c.Param("id"))
}

// MyScore godoc
// @Summary Get the caller's score profile
// @Tags Scores
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/score [get]
func (h *ScoreHandler) MyScore(c *gin.Context) {
	studentID, err := currentStudentID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondProfile(c, studentID)
}

func (h *ScoreHandler) respondProfile(c *gin.Context, studentID string) {
	profile, err := h.scores.GetScoreProfile(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil, map[string]interface{}{"stale": profile.Stale})
}

// Scoreboard godoc
// @Summary Ranked scoreboard
// @Tags Scores
// @Produce json
// @Param tier query string false "Tier filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /scoreboard [get]
func (h *ScoreHandler) Scoreboard(c *gin.Context) {
	var query dto.ScoreboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid scoreboard query"))
		return
	}
	query.Tier = strings.ToUpper(strings.TrimSpace(query.Tier))

	entries, pagination, err := h.scores.Scoreboard(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// RecomputeStudent godoc
// @Summary Recompute one student synchronously
// @Tags Administration
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /admin/students/{id}/recompute [post]
func (h *ScoreHandler) RecomputeStudent(c *gin.Context) {
	profile, err := h.scores.Recompute(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// RecomputeAll godoc
// @Summary Schedule a recompute for every student
// @Tags Administration
// @Produce json
// @Success 202 {object} response.Envelope
// @Router /admin/recompute [post]
func (h *ScoreHandler) RecomputeAll(c *gin.Context) {
	result, err := h.cascade.FullRecompute(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, result)
}

// RecomputeItem godoc
// @Summary Recompute every student sharing an item's denominator
// @Tags Administration
// @Produce json
// @Param id path string true "Item ID"
// @Success 202 {object} response.Envelope
// @Router /admin/items/{id}/recompute [post]
func (h *ScoreHandler) RecomputeItem(c *gin.Context) {
	result, err := h.cascade.RecomputeForItemChange(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, result)
}
