package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-achievement-api/internal/dto"
	"github.com/noah-isme/sma-achievement-api/internal/models"
	appErrors "github.com/noah-isme/sma-achievement-api/pkg/errors"
)

type activityStore interface {
	Create(ctx context.Context, a *models.Activity) error
	Get(ctx context.Context, id string) (*models.Activity, error)
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error)
	SetVerified(ctx context.Context, id string, verified bool, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// ActivityChange is an activity mutation with the recomputation it scheduled.
type ActivityChange struct {
	Activity *models.Activity      `json:"activity,omitempty"`
	Cascade  *models.CascadeResult `json:"cascade,omitempty"`
}

// ActivityService records seminars and extracurriculars. Only verified rows count toward scores.
type ActivityService struct {
	repo      activityStore
	cascade   factCascader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewActivityService constructs the service.
func NewActivityService(repo activityStore, cascade factCascader, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ActivityService{repo: repo, cascade: cascade, validator: validate, logger: logger, now: time.Now}
}

// Record stores an activity. Verified entries recompute their owner immediately.
func (s *ActivityService) Record(ctx context.Context, req dto.RecordActivityRequest) (*ActivityChange, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}
	points := decimal.NewFromInt(1)
	if req.Points != nil {
		if req.Points.IsNegative() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "points must not be negative")
		}
		points = *req.Points
	}
	now := s.now().UTC()
	activity := &models.Activity{
		ID:         uuid.NewString(),
		StudentID:  req.StudentID,
		Category:   models.ActivityCategory(req.Category),
		Title:      req.Title,
		Points:     points,
		Verified:   req.Verified,
		OccurredAt: req.OccurredAt.UTC(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, activity); err != nil {
		return nil, appErrors.Storage(err, "failed to record activity")
	}
	change := &ActivityChange{Activity: activity}
	if activity.Verified {
		change.Cascade = s.cascade.ForStudent(ctx, models.TriggerActivity, activity.StudentID)
	}
	return change, nil
}

// ListVerifiedActivities returns a student's verified activities in one category.
func (s *ActivityService) ListVerifiedActivities(ctx context.Context, studentID string, category models.ActivityCategory) ([]models.Activity, error) {
	verified := true
	return s.List(ctx, models.ActivityFilter{StudentID: studentID, Category: category, Verified: &verified})
}

// List returns activities matching the filter.
func (s *ActivityService) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error) {
	switch filter.Category {
	case "", models.ActivitySeminar, models.ActivityExtracurricular:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown activity category")
	}
	out, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list activities")
	}
	return out, nil
}

// SetVerified toggles verification and recomputes the owner when it changed.
func (s *ActivityService) SetVerified(ctx context.Context, id string, req dto.VerifyActivityRequest) (*ActivityChange, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verification payload")
	}
	activity, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if activity.Verified == *req.Verified {
		return &ActivityChange{Activity: activity}, nil
	}
	now := s.now().UTC()
	if err := s.repo.SetVerified(ctx, id, *req.Verified, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Storage(err, "failed to verify activity")
	}
	activity.Verified = *req.Verified
	activity.UpdatedAt = now
	return &ActivityChange{
		Activity: activity,
		Cascade:  s.cascade.ForStudent(ctx, models.TriggerActivity, activity.StudentID),
	}, nil
}

// Delete removes an activity, recomputing its owner when it was counted.
func (s *ActivityService) Delete(ctx context.Context, id string) (*ActivityChange, error) {
	activity, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Storage(err, "failed to delete activity")
	}
	change := &ActivityChange{}
	if activity.Verified {
		change.Cascade = s.cascade.ForStudent(ctx, models.TriggerActivity, activity.StudentID)
	}
	return change, nil
}

func (s *ActivityService) get(ctx context.Context, id string) (*models.Activity, error) {
	activity, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Storage(err, "failed to load activity")
	}
	return activity, nil
}
