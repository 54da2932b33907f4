package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-achievement-api/internal/dto"
	"github.com/noah-isme/sma-achievement-api/internal/models"
	appErrors "github.com/noah-isme/sma-achievement-api/pkg/errors"
	"github.com/noah-isme/sma-achievement-api/pkg/export"
	"github.com/noah-isme/sma-achievement-api/pkg/storage"
)

const exportPageSize = 100

var scoreboardHeaders = []string{
	"Rank", "Student ID", "Academic", "Challenges", "Mastery", "Seminars", "Extracurricular",
	"Composite", "Tier", "Degraded", "Computed At",
}

type scoreboardSource interface {
	Scoreboard(ctx context.Context, filter models.ScoreboardFilter) ([]models.ScoreboardEntry, int, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportDownload is a resolved download token.
type ExportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ExportFormat
	ExpiresAt time.Time
}

// ExportService renders the scoreboard to files handed out through signed URLs.
type ExportService struct {
	source    scoreboardSource
	storage   fileStorage
	renderers map[models.ExportFormat]datasetRenderer
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService with the CSV, PDF and XLSX renderers.
func NewExportService(source scoreboardSource, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		source:  source,
		storage: files,
		renderers: map[models.ExportFormat]datasetRenderer{
			models.ExportFormatCSV:  export.NewCSVExporter(),
			models.ExportFormatPDF:  export.NewPDFExporter(),
			models.ExportFormatXLSX: export.NewXLSXExporter(),
		},
		signer:    signer,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// ExportScoreboard renders every ranked profile, optionally filtered by tier.
func (s *ExportService) ExportScoreboard(ctx context.Context, req dto.ExportScoreboardRequest) (*models.ExportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}
	format := models.ExportFormat(req.Format)
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	dataset, err := s.buildDataset(ctx, req.Tier)
	if err != nil {
		return nil, err
	}
	title := "Achievement Scoreboard"
	if req.Tier != "" {
		title = fmt.Sprintf("%s (%s)", title, req.Tier)
	}
	payload, err := renderer.Render(dataset, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	id := uuid.NewString()
	relPath, err := s.storage.Save(s.buildFilename(req.Tier, format), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Info("scoreboard exported", zap.String("export_id", id), zap.String("format", string(format)), zap.Int("rows", len(dataset.Rows)))
	return &models.ExportResult{
		ID:          id,
		Format:      format,
		Rows:        len(dataset.Rows),
		DownloadURL: fmt.Sprintf("%s/exports/%s", prefix, token),
		ExpiresAt:   expiresAt,
	}, nil
}

// Open resolves a download token to the stored file.
func (s *ExportService) Open(token string) (*ExportDownload, error) {
	_, relPath, expiresAt, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download link")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	filename := path.Base(relPath)
	return &ExportDownload{
		File:      file,
		Filename:  filename,
		Format:    models.ExportFormat(strings.TrimPrefix(path.Ext(filename), ".")),
		ExpiresAt: expiresAt,
	}, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// ContentType maps an export format to its MIME type.
func ContentType(format models.ExportFormat) string {
	switch format {
	case models.ExportFormatCSV:
		return "text/csv"
	case models.ExportFormatPDF:
		return "application/pdf"
	case models.ExportFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

func (s *ExportService) buildDataset(ctx context.Context, tier string) (export.Dataset, error) {
	dataset := export.Dataset{Headers: scoreboardHeaders, Rows: make([]map[string]string, 0)}
	for page := 1; ; page++ {
		entries, total, err := s.source.Scoreboard(ctx, models.ScoreboardFilter{Tier: tier, Page: page, PageSize: exportPageSize})
		if err != nil {
			return export.Dataset{}, appErrors.Storage(err, "failed to load scoreboard")
		}
		for _, e := range entries {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Rank":            fmt.Sprintf("%d", e.Rank),
				"Student ID":      e.StudentID,
				"Academic":        e.Academic.StringFixed(2),
				"Challenges":      e.Challenges.StringFixed(2),
				"Mastery":         e.Mastery.StringFixed(2),
				"Seminars":        e.Seminars.StringFixed(2),
				"Extracurricular": e.Extracurricular.StringFixed(2),
				"Composite":       e.Composite.StringFixed(2),
				"Tier":            e.Tier,
				"Degraded":        strings.Join(e.Degraded, " "),
				"Computed At":     e.ComputedAt.UTC().Format(time.RFC3339),
			})
		}
		if len(entries) == 0 || page*exportPageSize >= total {
			return dataset, nil
		}
	}
}

func (s *ExportService) buildFilename(tier string, format models.ExportFormat) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	scope := "all"
	if tier != "" {
		scope = sanitizeFilename(strings.ToLower(tier))
	}
	return fmt.Sprintf("scoreboard_%s_%s.%s", scope, timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
