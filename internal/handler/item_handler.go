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

type itemService interface {
	Create(ctx context.Context, req dto.CreateItemRequest) (*service.ItemChange, error)
	Get(ctx context.Context, id string, withKeys bool) (*models.AssessableItem, error)
	List(ctx context.Context, query dto.ItemListQuery) ([]models.AssessableItem, *models.Pagination, error)
	Update(ctx context.Context, id string, req dto.UpdateItemRequest) (*service.ItemChange, error)
	Delete(ctx context.Context, id string) (*service.ItemChange, error)
	AddQuestion(ctx context.Context, itemID string, req dto.QuestionRequest) (*service.QuestionChange, error)
	UpdateQuestion(ctx context.Context, itemID, questionID string, req dto.QuestionRequest) (*service.QuestionChange, error)
	DeleteQuestion(ctx context.Context, itemID, questionID string) (*service.QuestionChange, error)
	AddExclusion(ctx context.Context, itemID string, req dto.ExclusionRequest) (*models.CascadeResult, error)
	RemoveExclusion(ctx context.Context, itemID string, req dto.ExclusionRequest) (*models.CascadeResult, error)
}

// ItemHandler manages challenges, mastery tests and their questions.
type ItemHandler struct {
	service itemService
}

// NewItemHandler constructs the handler.
func NewItemHandler(service itemService) *ItemHandler {
	return &ItemHandler{service: service}
}

// Create godoc
// @Summary Create an item
// @Tags Items
// @Accept json
// @Produce json
// @Param payload body dto.CreateItemRequest true "Item"
// @Success 201 {object} response.Envelope
// @Router /items [post]
func (h *ItemHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid item payload"))
		return
	}
	req.CreatorID = actorID(c)
	change, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, change)
}

// List godoc
// @Summary List items
// @Tags Items
// @Produce json
// @Param kind query string false "CHALLENGE or MASTERY"
// @Param tag query string false "Mastery tag"
// @Param active query bool false "Active flag"
// @Success 200 {object} response.Envelope
// @Router /items [get]
func (h *ItemHandler) List(c *gin.Context) {
	var query dto.ItemListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid item query"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !canSeeAnswerKeys(c) {
		for i := range items {
			items[i] = items[i].Redacted()
		}
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get an item with its questions
// @Description Answer keys are only returned to staff
// @Tags Items
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /items/{id} [get]
func (h *ItemHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"), canSeeAnswerKeys(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Update godoc
// @Summary Update item metadata
// @Tags Items
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body dto.UpdateItemRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /items/{id} [patch]
func (h *ItemHandler) Update(c *gin.Context) {
	var req dto.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid item payload"))
		return
	}
	change, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, change, nil)
}

// Delete godoc
// @Summary Delete an item and its submissions
// @Tags Items
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /items/{id} [delete]
func (h *ItemHandler) Delete(c *gin.Context) {
	change, err := h.service.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, change, nil)
}

// AddQuestion godoc
// @Summary Add a question
// @Tags Items
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body dto.QuestionRequest true "Question"
// @Success 201 {object} response.Envelope
// @Router /items/{id}/questions [post]
func (h *ItemHandler) AddQuestion(c *gin.Context) {
	var req dto.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid question payload"))
		return
	}
	change, err := h.service.AddQuestion(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, change)
}

// UpdateQuestion godoc
// @Summary Replace a question
// @Tags Items
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param questionId path string true "Question ID"
// @Param payload body dto.QuestionRequest true "Question"
// @Success 200 {object} response.Envelope
// @Router /items/{id}/questions/{questionId} [put]
func (h *ItemHandler) UpdateQuestion(c *gin.Context) {
	var req dto.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid question payload"))
		return
	}
	change, err := h.service.UpdateQuestion(c.Request.Context(), c.Param("id"), c.Param("questionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, change, nil)
}

// DeleteQuestion godoc
// @Summary Delete a question
// @Tags Items
// @Produce json
// @Param id path string true "Item ID"
// @Param questionId path string true "Question ID"
// @Success 200 {object} response.Envelope
// @Router /items/{id}/questions/{questionId} [delete]
func (h *ItemHandler) DeleteQuestion(c *gin.Context) {
	change, err := h.service.DeleteQuestion(c.Request.Context(), c.Param("id"), c.Param("questionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, change, nil)
}

// AddExclusion godoc
// @Summary Exclude a challenge from one student's denominator
// @Tags Items
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body dto.ExclusionRequest true "Student"
// @Success 200 {object} response.Envelope
// @Router /items/{id}/exclusions [post]
func (h *ItemHandler) AddExclusion(c *gin.Context) {
	h.toggleExclusion(c, h.service.AddExclusion)
}

// RemoveExclusion godoc
// @Summary Restore a challenge to one student's denominator
// @Tags Items
// @Produce json
// @Param id path string true "Item ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /items/{id}/exclusions/{studentId} [delete]
func (h *ItemHandler) RemoveExclusion(c *gin.Context) {
	h.toggleExclusion(c, h.service.RemoveExclusion)
}

func (h *ItemHandler) toggleExclusion(c *gin.Context, fn func(context.Context, string, dto.ExclusionRequest) (*models.CascadeResult, error)) {
	req := dto.ExclusionRequest{StudentID: c.Param("studentId")}
	if req.StudentID == "" {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, bindError(err, "invalid exclusion payload"))
			return
		}
	}
	result, err := fn(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func canSeeAnswerKeys(c *gin.Context) bool {
	claims := claimsFromContext(c)
	return claims != nil && (claims.Role == models.RoleAdmin || claims.Role == models.RoleTeacher)
}
