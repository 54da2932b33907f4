package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-achievement-api/internal/dto"
	"github.com/noah-isme/sma-achievement-api/internal/models"
	"github.com/noah-isme/sma-achievement-api/internal/scoring"
	appErrors "github.com/noah-isme/sma-achievement-api/pkg/errors"
)

type weightStore interface {
	List(ctx context.Context) ([]models.CategoryWeight, error)
	Upsert(ctx context.Context, w *models.CategoryWeight) error
}

type weightCascader interface {
	RecomputeForWeightChange(ctx context.Context, category scoring.Category) (*models.CascadeResult, error)
}

// WeightChange reports a stored weight and the recomputation it triggered.
type WeightChange struct {
	Weight  models.CategoryWeight `json:"weight"`
	Cascade *models.CascadeResult `json:"cascade,omitempty"`
}

// WeightService administers category weights on top of the scoring config registry.
type WeightService struct {
	repo      weightStore
	registry  *scoring.Registry
	cascade   weightCascader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewWeightService constructs the service.
func NewWeightService(repo weightStore, registry *scoring.Registry, cascade weightCascader, validate *validator.Validate, logger *zap.Logger) *WeightService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &WeightService{repo: repo, registry: registry, cascade: cascade, validator: validate, logger: logger, now: time.Now}
}

// Load overlays persisted overrides onto the configured defaults. Called once at startup.
func (s *WeightService) Load(ctx context.Context) error {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return appErrors.Storage(err, "failed to load weights")
	}
	weights := make(map[scoring.Category]decimal.Decimal, len(stored))
	var version int64
	for _, w := range stored {
		cat, ok := scoring.ParseCategory(w.Category)
		if !ok {
			s.logger.Warn("ignoring weight for unknown category", zap.String("category", w.Category))
			continue
		}
		if err := scoring.ValidateWeight(w.Weight); err != nil {
			s.logger.Warn("ignoring out of range weight", zap.String("category", w.Category), zap.String("weight", w.Weight.String()))
			continue
		}
		weights[cat] = w.Weight
		if w.Version > version {
			version = w.Version
		}
	}
	cfg, _ := s.registry.Update(func(current *scoring.Config) (*scoring.Config, error) {
		return current.WithWeights(weights, version), nil
	})
	s.logger.Info("scoring weights loaded", zap.Int("overrides", len(weights)), zap.Int64("config_version", cfg.Version))
	return nil
}

// List returns the effective weight of every category.
func (s *WeightService) List(ctx context.Context) (*models.WeightTable, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list weights")
	}
	byCategory := make(map[string]models.CategoryWeight, len(stored))
	for _, w := range stored {
		byCategory[w.Category] = w
	}

	cfg := s.registry.Current()
	table := &models.WeightTable{Version: cfg.Version, Weights: make([]models.CategoryWeight, 0, len(scoring.Categories))}
	for _, cat := range scoring.Categories {
		entry := models.CategoryWeight{Category: string(cat), Weight: cfg.Weight(cat), Version: cfg.Version}
		if w, ok := byCategory[string(cat)]; ok {
			entry.Version = w.Version
			entry.UpdatedBy = w.UpdatedBy
			entry.UpdatedAt = w.UpdatedAt
		}
		table.Weights = append(table.Weights, entry)
	}
	return table, nil
}

// GetWeight returns the current weight of a category.
func (s *WeightService) GetWeight(_ context.Context, category string) (decimal.Decimal, error) {
	cat, ok := scoring.ParseCategory(category)
	if !ok {
		return decimal.Zero, appErrors.Clone(appErrors.ErrValidation, "unknown category")
	}
	return s.registry.Current().Weight(cat), nil
}

// SetWeight stores a new weight, publishes the next config version and sweeps every student.
func (s *WeightService) SetWeight(ctx context.Context, category string, req dto.SetWeightRequest, actorID string) (*WeightChange, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid weight payload")
	}
	cat, ok := scoring.ParseCategory(category)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown category")
	}

	var stored models.CategoryWeight
	_, err := s.registry.Update(func(current *scoring.Config) (*scoring.Config, error) {
		next, err := current.WithWeight(cat, *req.Weight)
		if err != nil {
			return nil, err
		}
		stored = models.CategoryWeight{
			Category:  string(cat),
			Weight:    *req.Weight,
			Version:   next.Version,
			UpdatedAt: s.now().UTC(),
		}
		if actorID != "" {
			stored.UpdatedBy = &actorID
		}
		if err := s.repo.Upsert(ctx, &stored); err != nil {
			return nil, err
		}
		return next, nil
	})
	if err != nil {
		if errors.Is(err, scoring.ErrInvalidWeight) {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidWeights.Code, appErrors.ErrInvalidWeights.Status, "weight must be between 0 and 100")
		}
		return nil, appErrors.Storage(err, "failed to store weight")
	}
	s.logger.Info("category weight changed",
		zap.String("category", string(cat)),
		zap.String("weight", stored.Weight.String()),
		zap.Int64("config_version", stored.Version),
		zap.String("actor_id", actorID),
	)

	result, err := s.cascade.RecomputeForWeightChange(ctx, cat)
	if err != nil {
		// the weight stays live; profiles on an older config version refresh when read
		s.logger.Error("weight change cascade failed", zap.String("category", string(cat)), zap.Error(err))
		return nil, err
	}
	return &WeightChange{Weight: stored, Cascade: result}, nil
}
