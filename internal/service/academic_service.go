package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-achievement-api/internal/dto"
	"github.com/noah-isme/sma-achievement-api/internal/models"
	"github.com/noah-isme/sma-achievement-api/internal/scoring"
	appErrors "github.com/noah-isme/sma-achievement-api/pkg/errors"
)

type academicStore interface {
	Get(ctx context.Context, studentID string) (*models.AcademicRecord, error)
	Upsert(ctx context.Context, rec *models.AcademicRecord) error
	BulkUpsert(ctx context.Context, records []models.AcademicRecord) error
}

type factCascader interface {
	Dispatch(ctx context.Context, trigger models.CascadeTrigger, studentIDs []string) *models.CascadeResult
	ForStudent(ctx context.Context, trigger models.CascadeTrigger, studentID string) *models.CascadeResult
}

// AcademicView pairs a record with the standing inferred from it.
type AcademicView struct {
	Record   *models.AcademicRecord  `json:"record"`
	Standing models.AcademicStanding `json:"standing"`
	Cascade  *models.CascadeResult   `json:"cascade,omitempty"`
}

// AcademicService maintains year grades feeding the academic category.
type AcademicService struct {
	repo      academicStore
	registry  *scoring.Registry
	cascade   factCascader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAcademicService constructs the service.
func NewAcademicService(repo academicStore, registry *scoring.Registry, cascade factCascader, validate *validator.Validate, logger *zap.Logger) *AcademicService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AcademicService{repo: repo, registry: registry, cascade: cascade, validator: validate, logger: logger, now: time.Now}
}

// Get returns a student's record and standing.
func (s *AcademicService) Get(ctx context.Context, studentID string) (*AcademicView, error) {
	rec, err := s.repo.Get(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic record not found")
		}
		return nil, appErrors.Storage(err, "failed to load academic record")
	}
	return &AcademicView{Record: rec, Standing: rec.Standing()}, nil
}

// UpsertAcademicRecord replaces a student's grades and recomputes them.
func (s *AcademicService) UpsertAcademicRecord(ctx context.Context, req dto.UpsertAcademicRecordRequest) (*AcademicView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic record")
	}
	rec, err := s.toRecord(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return nil, appErrors.Storage(err, "failed to store academic record")
	}
	return &AcademicView{
		Record:   rec,
		Standing: rec.Standing(),
		Cascade:  s.cascade.ForStudent(ctx, models.TriggerAcademicRecord, rec.StudentID),
	}, nil
}

// BulkUpsert imports many records in one transaction.
func (s *AcademicService) BulkUpsert(ctx context.Context, req dto.BulkAcademicRecordRequest) (*models.CascadeResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic import")
	}
	records := make([]models.AcademicRecord, 0, len(req.Records))
	students := make([]string, 0, len(req.Records))
	for i, r := range req.Records {
		rec, err := s.toRecord(r)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("record %d: %s", i, appErrors.FromError(err).Message))
		}
		records = append(records, *rec)
		students = append(students, rec.StudentID)
	}
	if err := s.repo.BulkUpsert(ctx, records); err != nil {
		return nil, appErrors.Storage(err, "failed to import academic records")
	}
	s.logger.Info("academic records imported", zap.Int("records", len(records)))
	return s.cascade.Dispatch(ctx, models.TriggerAcademicRecord, students), nil
}

func (s *AcademicService) toRecord(req dto.UpsertAcademicRecordRequest) (*models.AcademicRecord, error) {
	maxGrade := s.registry.Current().AcademicMaxGrade
	rec := &models.AcademicRecord{StudentID: req.StudentID, UpdatedAt: s.now().UTC()}
	targets := []*decimal.NullDecimal{&rec.Year1, &rec.Year2, &rec.Year3, &rec.Year4}
	for i, grade := range []*decimal.Decimal{req.Year1, req.Year2, req.Year3, req.Year4} {
		if grade == nil {
			continue
		}
		if grade.IsNegative() || grade.GreaterThan(maxGrade) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("year %d grade must be between 0 and %s", i+1, maxGrade.String()))
		}
		*targets[i] = decimal.NewNullDecimal(*grade)
	}
	return rec, nil
}
