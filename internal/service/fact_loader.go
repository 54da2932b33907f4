package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-achievement-api/internal/models"
	"github.com/noah-isme/sma-achievement-api/internal/scoring"
	appErrors "github.com/noah-isme/sma-achievement-api/pkg/errors"
)

type factItemRepository interface {
	ExcludedItemIDs(ctx context.Context, studentID string) (map[string]struct{}, error)
	ActiveChallengeItems(ctx context.Context) ([]scoring.ChallengeItem, error)
	ActiveMasteryTotals(ctx context.Context) (map[scoring.Tag]int, error)
}

type factSubmissionRepository interface {
	ChallengeSubmissions(ctx context.Context, studentID string) ([]scoring.ChallengeSubmission, error)
	MasterySubmissions(ctx context.Context, studentID string) ([]scoring.MasterySubmission, error)
}

type factAcademicRepository interface {
	Get(ctx context.Context, studentID string) (*models.AcademicRecord, error)
}

type factActivityRepository interface {
	VerifiedPoints(ctx context.Context, studentID string, category models.ActivityCategory) ([]decimal.Decimal, error)
}

// FactLoader reads scoring facts from the repositories, bounding every lookup by a query timeout.
type FactLoader struct {
	items       factItemRepository
	submissions factSubmissionRepository
	academics   factAcademicRepository
	activities  factActivityRepository
	timeout     time.Duration
}

var _ scoring.FactSource = (*FactLoader)(nil)

// NewFactLoader wires the fact repositories. A non-positive timeout disables the bound.
func NewFactLoader(items factItemRepository, submissions factSubmissionRepository, academics factAcademicRepository, activities factActivityRepository, timeout time.Duration) *FactLoader {
	return &FactLoader{items: items, submissions: submissions, academics: academics, activities: activities, timeout: timeout}
}

func (l *FactLoader) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.timeout)
}

// ChallengeFacts loads submissions, active challenge items and exclusions.
func (l *FactLoader) ChallengeFacts(ctx context.Context, studentID string) (scoring.ChallengeFacts, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	subs, err := l.submissions.ChallengeSubmissions(ctx, studentID)
	if err != nil {
		return scoring.ChallengeFacts{}, appErrors.Storage(err, "failed to load challenge submissions")
	}
	if len(subs) == 0 {
		return scoring.ChallengeFacts{}, nil
	}
	items, err := l.items.ActiveChallengeItems(ctx)
	if err != nil {
		return scoring.ChallengeFacts{}, appErrors.Storage(err, "failed to load challenge items")
	}
	excluded, err := l.items.ExcludedItemIDs(ctx, studentID)
	if err != nil {
		return scoring.ChallengeFacts{}, appErrors.Storage(err, "failed to load exclusions")
	}
	return scoring.ChallengeFacts{Submissions: subs, ActiveItems: items, Excluded: excluded}, nil
}

// MasteryFacts loads mastery submissions and live per-tag totals.
func (l *FactLoader) MasteryFacts(ctx context.Context, studentID string) (scoring.MasteryFacts, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	subs, err := l.submissions.MasterySubmissions(ctx, studentID)
	if err != nil {
		return scoring.MasteryFacts{}, appErrors.Storage(err, "failed to load mastery submissions")
	}
	if len(subs) == 0 {
		return scoring.MasteryFacts{}, nil
	}
	totals, err := l.items.ActiveMasteryTotals(ctx)
	if err != nil {
		return scoring.MasteryFacts{}, appErrors.Storage(err, "failed to load mastery totals")
	}
	return scoring.MasteryFacts{Submissions: subs, ActiveTotals: totals}, nil
}

// AcademicGrades returns the present year grades; a student without a record has none.
func (l *FactLoader) AcademicGrades(ctx context.Context, studentID string) ([]decimal.Decimal, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	rec, err := l.academics.Get(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Storage(err, "failed to load academic record")
	}
	return rec.Grades(), nil
}

// VerifiedActivityPoints lists verified activity points for the seminar or extracurricular category.
func (l *FactLoader) VerifiedActivityPoints(ctx context.Context, studentID string, category scoring.Category) ([]decimal.Decimal, error) {
	var activity models.ActivityCategory
	switch category {
	case scoring.CategorySeminars:
		activity = models.ActivitySeminar
	case scoring.CategoryExtracurricular:
		activity = models.ActivityExtracurricular
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "category has no activities")
	}

	ctx, cancel := l.bound(ctx)
	defer cancel()

	points, err := l.activities.VerifiedPoints(ctx, studentID, activity)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load activities")
	}
	return points, nil
}
