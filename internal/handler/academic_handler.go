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

type academicService interface {
	Get(ctx context.Context, studentID string) (*service.AcademicView, error)
	UpsertAcademicRecord(ctx context.Context, req dto.UpsertAcademicRecordRequest) (*service.AcademicView, error)
	BulkUpsert(ctx context.Context, req dto.BulkAcademicRecordRequest) (*models.CascadeResult, error)
}

// AcademicHandler maintains year grades.
type AcademicHandler struct {
	service academicService
}

// NewAcademicHandler constructs the handler.
func NewAcademicHandler(service academicService) *AcademicHandler {
	return &AcademicHandler{service: service}
}

// Get godoc
// @Summary Academic record and standing
// @Tags Academics
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/academic [get]
func (h *AcademicHandler) Get(c *gin.Context) {
	view, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Upsert godoc
// @Summary Replace a student's year grades
// @Tags Academics
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.UpsertAcademicRecordRequest true "Grades"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/academic [put]
func (h *AcademicHandler) Upsert(c *gin.Context) {
	var req dto.UpsertAcademicRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid academic record"))
		return
	}
	req.StudentID = c.Param("id")
	view, err := h.service.UpsertAcademicRecord(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Import godoc
// @Summary Bulk import academic records
// @Tags Academics
// @Accept json
// @Produce json
// @Param payload body dto.BulkAcademicRecordRequest true "Records"
// @Success 202 {object} response.Envelope
// @Router /admin/academic-records [post]
func (h *AcademicHandler) Import(c *gin.Context) {
	var req dto.BulkAcademicRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid academic import"))
		return
	}
	result, err := h.service.BulkUpsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, result)
}
