package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-achievement-api/internal/dto"
	"github.com/noah-isme/sma-achievement-api/internal/models"
	"github.com/noah-isme/sma-achievement-api/internal/service"
	"github.com/noah-isme/sma-achievement-api/pkg/response"
)

type weightService interface {
	List(ctx context.Context) (*models.WeightTable, error)
	SetWeight(ctx context.Context, category string, req dto.SetWeightRequest, actorID string) (*service.WeightChange, error)
}

// WeightHandler administers category weights.
type WeightHandler struct {
	service weightService
}

// NewWeightHandler constructs the handler.
func NewWeightHandler(service weightService) *WeightHandler {
	return &WeightHandler{service: service}
}

// List godoc
// @Summary Effective category weights
// @Tags Administration
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/weights [get]
func (h *WeightHandler) List(c *gin.Context) {
	table, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, table, nil)
}

// Set godoc
// @Summary Change a category weight
// @Description Publishes a new config version and schedules a recompute of every student
// @Tags Administration
// @Accept json
// @Produce json
// @Param category path string true "Category"
// @Param payload body dto.SetWeightRequest true "Weight between 0 and 100"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope "Weight stored but the sweep was deferred"
// @Router /admin/weights/{category} [put]
func (h *WeightHandler) Set(c *gin.Context) {
	var req dto.SetWeightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid weight payload"))
		return
	}
	change, err := h.service.SetWeight(c.Request.Context(), c.Param("category"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, change)
}
