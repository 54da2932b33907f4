package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-achievement-api/internal/dto"
	"github.com/noah-isme/sma-achievement-api/internal/models"
	"github.com/noah-isme/sma-achievement-api/internal/service"
	appErrors "github.com/noah-isme/sma-achievement-api/pkg/errors"
	"github.com/noah-isme/sma-achievement-api/pkg/response"
)

type exportService interface {
	ExportScoreboard(ctx context.Context, req dto.ExportScoreboardRequest) (*models.ExportResult, error)
	Open(token string) (*service.ExportDownload, error)
}

// ExportHandler produces scoreboard files and serves them through signed links.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// ExportScoreboard godoc
// @Summary Export the scoreboard
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.ExportScoreboardRequest true "Format and optional tier"
// @Success 201 {object} response.Envelope
// @Router /admin/exports/scoreboard [post]
func (h *ExportHandler) ExportScoreboard(c *gin.Context) {
	var req dto.ExportScoreboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid export payload"))
		return
	}
	req.Format = strings.ToLower(strings.TrimSpace(req.Format))
	req.Tier = strings.ToUpper(strings.TrimSpace(req.Tier))
	result, err := h.service.ExportScoreboard(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download an export via signed token
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	download, err := h.service.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", download.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), service.ContentType(download.Format), download.File, nil)
}
