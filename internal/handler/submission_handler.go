package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-achievement-api/internal/dto"
	"github.com/noah-isme/sma-achievement-api/internal/models"
	appErrors "github.com/noah-isme/sma-achievement-api/pkg/errors"
	"github.com/noah-isme/sma-achievement-api/pkg/response"
)

type submissionService interface {
	SubmitAttempt(ctx context.Context, req dto.SubmitAttemptRequest) (*models.SubmissionResult, error)
	GetSubmission(ctx context.Context, id string) (*models.Submission, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error)
	DeleteSubmission(ctx context.Context, id string) (*models.CascadeResult, error)
}

// SubmissionHandler accepts and serves item attempts.
type SubmissionHandler struct {
	service submissionService
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(service submissionService) *SubmissionHandler {
	return &SubmissionHandler{service: service}
}

// Submit godoc
// @Summary Submit an attempt
// @Description Grades the answers, stores the single allowed attempt and refreshes the caller's profile
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body dto.SubmitAttemptRequest true "Answers keyed by question id"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /items/{id}/submissions [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	studentID, err := currentStudentID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid submission payload"))
		return
	}
	req.StudentID = studentID
	req.ItemID = c.Param("id")

	result, err := h.service.SubmitAttempt(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Get godoc
// @Summary Get a submission
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	sub, err := h.service.GetSubmission(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	claims := claimsFromContext(c)
	if claims != nil && claims.Role == models.RoleStudent && claims.UserID != sub.StudentID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// ListForStudent godoc
// @Summary List a student's submissions
// @Tags Submissions
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/submissions [get]
func (h *SubmissionHandler) ListForStudent(c *gin.Context) {
	subs, err := h.service.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subs, nil)
}

// Delete godoc
// @Summary Delete a submission
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /admin/submissions/{id} [delete]
func (h *SubmissionHandler) Delete(c *gin.Context) {
	result, err := h.service.DeleteSubmission(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
