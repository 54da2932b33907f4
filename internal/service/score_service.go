package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-achievement-api/internal/dto"
	"github.com/noah-isme/sma-achievement-api/internal/models"
	"github.com/noah-isme/sma-achievement-api/internal/scoring"
	appErrors "github.com/noah-isme/sma-achievement-api/pkg/errors"
	"github.com/noah-isme/sma-achievement-api/pkg/observability"
)

const (
	profileCachePrefix    = "score:profile:"
	scoreboardCachePrefix = "score:board:"
)

type profileRepository interface {
	Get(ctx context.Context, studentID string) (*models.ScoreProfile, error)
	Save(ctx context.Context, p *models.ScoreProfile) error
	Scoreboard(ctx context.Context, filter models.ScoreboardFilter) ([]models.ScoreboardEntry, int, error)
	AllStudentIDs(ctx context.Context) ([]string, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type scoreboardPage struct {
	Entries []models.ScoreboardEntry `json:"entries"`
	Total   int                      `json:"total"`
}

// ScoreService computes, persists and serves composite score profiles.
type ScoreService struct {
	profiles   profileRepository
	users      studentLookup
	registry   *scoring.Registry
	aggregator *scoring.Aggregator
	tracker    *ProfileTracker
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time

	// set by every persisted recompute, cleared when the cached scoreboard pages are dropped
	boardDirty atomic.Bool
}

// ScoreServiceConfig groups the collaborators of ScoreService.
type ScoreServiceConfig struct {
	Profiles profileRepository
	Users    studentLookup
	Facts    scoring.FactSource
	Registry *scoring.Registry
	Tracker  *ProfileTracker
	Cache    *CacheService
	Metrics  *MetricsService
	Reporter observability.Reporter
	Logger   *zap.Logger
}

// NewScoreService constructs the recalculator.
func NewScoreService(cfg ScoreServiceConfig) *ScoreService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Tracker == nil {
		cfg.Tracker = NewProfileTracker()
	}
	s := &ScoreService{
		profiles: cfg.Profiles,
		users:    cfg.Users,
		registry: cfg.Registry,
		tracker:  cfg.Tracker,
		cache:    cfg.Cache,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		now:      time.Now,
	}
	// pages cached by a previous process may predate its last recomputes
	s.boardDirty.Store(true)
	reporter := cfg.Reporter
	s.aggregator = scoring.NewAggregator(cfg.Facts, cfg.Logger, func(studentID string, category scoring.Category, err error) {
		s.metrics.RecordDegraded(string(category))
		if reporter != nil {
			reporter(err, map[string]string{"student_id": studentID, "category": string(category), "fault": "partial_computation"})
		}
	})
	return s
}

// Tracker exposes the profile state tracker shared with the cascade.
func (s *ScoreService) Tracker() *ProfileTracker {
	return s.tracker
}

// GetScoreProfile returns the stored profile, computing it on first access for a known student.
// A profile computed under an older config version is recomputed before it is served.
func (s *ScoreService) GetScoreProfile(ctx context.Context, studentID string) (*models.ScoreProfile, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}

	var cached models.ScoreProfile
	if s.cache.Get(ctx, profileCachePrefix+studentID, &cached) {
		return s.serve(ctx, &cached), nil
	}

	profile, err := s.profiles.Get(ctx, studentID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Storage(err, "failed to load score profile")
		}
		if err := s.ensureStudent(ctx, studentID); err != nil {
			return nil, err
		}
		return s.Recompute(ctx, studentID)
	}

	s.cache.Set(ctx, profileCachePrefix+studentID, profile, 0)
	return s.serve(ctx, profile), nil
}

// serve flags the stored profile and refreshes it when the weights moved on since it was
// computed. A refresh that fails still returns the stored profile, marked stale.
func (s *ScoreService) serve(ctx context.Context, profile *models.ScoreProfile) *models.ScoreProfile {
	if profile.ConfigVersion < s.registry.Current().Version {
		fresh, err := s.Recompute(ctx, profile.StudentID)
		if err == nil {
			return fresh
		}
		s.logger.Warn("config version lag refresh failed",
			zap.String("student_id", profile.StudentID),
			zap.Int64("profile_version", profile.ConfigVersion),
			zap.Error(err),
		)
		profile.Stale = true
		return profile
	}
	profile.Stale = s.tracker.State(profile.StudentID) != ProfileCurrent
	return profile
}

// Recompute recalculates and persists the student's profile. Concurrent calls for the same
// student collapse onto at most one follow-up pass.
func (s *ScoreService) Recompute(ctx context.Context, studentID string) (*models.ScoreProfile, error) {
	profile, joined, err := s.tracker.Run(ctx, studentID, func(ctx context.Context) (*models.ScoreProfile, error) {
		return s.compute(ctx, studentID)
	})
	if err != nil {
		return nil, err
	}
	if joined {
		s.metrics.ObserveRecompute(OutcomeCollapsed, 0)
	}
	if profile == nil {
		profile, err = s.profiles.Get(ctx, studentID)
		if err != nil {
			return nil, appErrors.Storage(err, "failed to load score profile")
		}
	}
	return profile, nil
}

func (s *ScoreService) compute(ctx context.Context, studentID string) (*models.ScoreProfile, error) {
	start := time.Now()
	cfg := s.registry.Current()

	scores, err := s.aggregator.Aggregate(ctx, studentID, cfg)
	if err != nil {
		s.metrics.ObserveRecompute(OutcomeFailed, time.Since(start))
		s.logger.Warn("score recompute aborted", zap.String("student_id", studentID), zap.Error(err))
		return nil, appErrors.Storage(err, "failed to compute score profile")
	}

	result := scoring.Compose(studentID, scores, cfg)
	profile := profileFromResult(result, s.now().UTC())
	if err := s.profiles.Save(ctx, profile); err != nil {
		s.metrics.ObserveRecompute(OutcomeFailed, time.Since(start))
		return nil, appErrors.Storage(err, "failed to save score profile")
	}

	s.cache.Set(ctx, profileCachePrefix+studentID, profile, 0)
	s.boardDirty.Store(true)
	s.metrics.ObserveRecompute(OutcomeCurrent, time.Since(start))
	s.logger.Debug("score profile recomputed",
		zap.String("student_id", studentID),
		zap.String("composite", profile.Composite.String()),
		zap.String("tier", profile.Tier),
		zap.Int64("config_version", profile.ConfigVersion),
	)
	return profile, nil
}

// Scoreboard returns ranked profiles, optionally filtered by tier.
func (s *ScoreService) Scoreboard(ctx context.Context, query dto.ScoreboardQuery) ([]models.ScoreboardEntry, *models.Pagination, error) {
	page, size := models.NormalizePage(query.Page, query.PageSize)
	filter := models.ScoreboardFilter{Tier: query.Tier, Page: page, PageSize: size}

	if s.boardDirty.Swap(false) {
		s.cache.Invalidate(ctx, scoreboardCachePrefix+"*")
	}
	key := fmt.Sprintf("%s%s:%d:%d", scoreboardCachePrefix, query.Tier, page, size)
	var cached scoreboardPage
	if s.cache.Get(ctx, key, &cached) {
		return cached.Entries, &models.Pagination{Page: page, PageSize: size, TotalCount: cached.Total}, nil
	}

	entries, total, err := s.profiles.Scoreboard(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Storage(err, "failed to load scoreboard")
	}
	s.cache.Set(ctx, key, scoreboardPage{Entries: entries, Total: total}, 0)
	return entries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *ScoreService) ensureStudent(ctx context.Context, studentID string) error {
	if s.users == nil {
		return nil
	}
	user, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Storage(err, "failed to load student")
	}
	if user.Role != models.RoleStudent {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return nil
}

func profileFromResult(result scoring.Result, computedAt time.Time) *models.ScoreProfile {
	return &models.ScoreProfile{
		StudentID:       result.StudentID,
		Academic:        result.Value(scoring.CategoryAcademic),
		Challenges:      result.Value(scoring.CategoryChallenges),
		Mastery:         result.Value(scoring.CategoryMastery),
		Seminars:        result.Value(scoring.CategorySeminars),
		Extracurricular: result.Value(scoring.CategoryExtracurricular),
		Composite:       result.Composite,
		Tier:            result.Tier,
		Degraded:        result.DegradedCategories(),
		ConfigVersion:   result.ConfigVersion,
		ComputedAt:      computedAt,
	}
}
