package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-achievement-api/internal/dto"
	"github.com/noah-isme/sma-achievement-api/internal/models"
	"github.com/noah-isme/sma-achievement-api/internal/service"
	appErrors "github.com/noah-isme/sma-achievement-api/pkg/errors"
	"github.com/noah-isme/sma-achievement-api/pkg/response"
)

type activityService interface {
	Record(ctx context.Context, req dto.RecordActivityRequest) (*service.ActivityChange, error)
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error)
	SetVerified(ctx context.Context, id string, req dto.VerifyActivityRequest) (*service.ActivityChange, error)
	Delete(ctx context.Context, id string) (*service.ActivityChange, error)
}

// ActivityHandler records seminars and extracurriculars.
type ActivityHandler struct {
	service activityService
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service activityService) *ActivityHandler {
	return &ActivityHandler{service: service}
}

// Record godoc
// @Summary Record an activity
// @Tags Activities
// @Accept json
// @Produce json
// @Param payload body dto.RecordActivityRequest true "Activity"
// @Success 201 {object} response.Envelope
// @Router /activities [post]
func (h *ActivityHandler) Record(c *gin.Context) {
	var req dto.RecordActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid activity payload"))
		return
	}
	req.Category = strings.ToUpper(strings.TrimSpace(req.Category))
	change, err := h.service.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, change)
}

// ListForStudent godoc
// @Summary List a student's activities
// @Tags Activities
// @Produce json
// @Param id path string true "Student ID"
// @Param category query string false "SEMINAR or EXTRACURRICULAR"
// @Param verified query bool false "Verification filter"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/activities [get]
func (h *ActivityHandler) ListForStudent(c *gin.Context) {
	filter := models.ActivityFilter{
		StudentID: c.Param("id"),
		Category:  models.ActivityCategory(strings.ToUpper(c.Query("category"))),
	}
	if raw := c.Query("verified"); raw != "" {
		verified, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "verified must be a boolean"))
			return
		}
		filter.Verified = &verified
	}
	activities, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activities, nil)
}

// Verify godoc
// @Summary Verify or unverify an activity
// @Tags Activities
// @Accept json
// @Produce json
// @Param id path string true "Activity ID"
// @Param payload body dto.VerifyActivityRequest true "Verification"
// @Success 200 {object} response.Envelope
// @Router /activities/{id}/verification [put]
func (h *ActivityHandler) Verify(c *gin.Context) {
	var req dto.VerifyActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid verification payload"))
		return
	}
	change, err := h.service.SetVerified(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, change, nil)
}

// Delete godoc
// @Summary Delete an activity
// @Tags Activities
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Router /activities/{id} [delete]
func (h *ActivityHandler) Delete(c *gin.Context) {
	change, err := h.service.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, change, nil)
}
