package scoring

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appErrors "github.com/noah-isme/sma-achievement-api/pkg/errors"
)

// CategoryScore is one weighted sub-score. A degraded score is zero because its facts could not be read.
type CategoryScore struct {
	Category Category        `json:"category"`
	Value    decimal.Decimal `json:"value"`
	Degraded bool            `json:"degraded,omitempty"`
	Fault    string          `json:"fault,omitempty"`
}

// FaultHandler observes degraded categories.
type FaultHandler func(studentID string, category Category, err error)

// Aggregator computes all five category scores for a student.
type Aggregator struct {
	facts   FactSource
	logger  *zap.Logger
	onFault FaultHandler
}

// NewAggregator wires a fact source. onFault may be nil.
func NewAggregator(facts FactSource, logger *zap.Logger, onFault FaultHandler) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{facts: facts, logger: logger, onFault: onFault}
}

// Aggregate evaluates every category concurrently. A failed lookup degrades only its own
// category; a transient storage failure aborts the whole pass so the caller can retry.
func (a *Aggregator) Aggregate(ctx context.Context, studentID string, cfg *Config) ([]CategoryScore, error) {
	scores := make([]CategoryScore, len(Categories))
	g, gctx := errgroup.WithContext(ctx)
	for i, cat := range Categories {
		i, cat := i, cat
		g.Go(func() error {
			value, err := a.safeScore(gctx, studentID, cat, cfg)
			if err != nil {
				if appErrors.IsTransient(err) || gctx.Err() != nil {
					return fmt.Errorf("score %s: %w", cat, err)
				}
				a.logger.Warn("category degraded",
					zap.String("student_id", studentID),
					zap.String("category", string(cat)),
					zap.Error(err),
				)
				if a.onFault != nil {
					a.onFault(studentID, cat, err)
				}
				scores[i] = CategoryScore{Category: cat, Value: decimal.Zero, Degraded: true, Fault: err.Error()}
				return nil
			}
			scores[i] = CategoryScore{Category: cat, Value: value}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

func (a *Aggregator) safeScore(ctx context.Context, studentID string, cat Category, cfg *Config) (value decimal.Decimal, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic computing %s: %v", cat, r)
		}
	}()
	return a.score(ctx, studentID, cat, cfg)
}

func (a *Aggregator) score(ctx context.Context, studentID string, cat Category, cfg *Config) (decimal.Decimal, error) {
	weight := cfg.Weight(cat)
	switch cat {
	case CategoryChallenges:
		facts, err := a.facts.ChallengeFacts(ctx, studentID)
		if err != nil {
			return decimal.Zero, err
		}
		return ChallengeScore(facts, weight), nil
	case CategoryMastery:
		facts, err := a.facts.MasteryFacts(ctx, studentID)
		if err != nil {
			return decimal.Zero, err
		}
		return MasteryScore(facts, weight), nil
	case CategoryAcademic:
		grades, err := a.facts.AcademicGrades(ctx, studentID)
		if err != nil {
			return decimal.Zero, err
		}
		return AcademicScore(grades, cfg.AcademicMaxGrade, weight), nil
	case CategorySeminars, CategoryExtracurricular:
		points, err := a.facts.VerifiedActivityPoints(ctx, studentID, cat)
		if err != nil {
			return decimal.Zero, err
		}
		var ceiling *decimal.Decimal
		if c, ok := cfg.Ceiling(cat); ok {
			ceiling = &c
		}
		return ActivityScore(points, cfg.ActivityRule, weight, ceiling), nil
	default:
		return decimal.Zero, fmt.Errorf("unknown category %s", cat)
	}
}
