package scoring

import (
	"context"

	"github.com/shopspring/decimal"
)

// ChallengeSubmission is a frozen challenge attempt joined with its item's year level.
type ChallengeSubmission struct {
	ItemID       string `db:"item_id"`
	YearLevel    int    `db:"year_level"`
	PointsEarned int    `db:"points_earned"`
}

// ChallengeItem is an active challenge item with its live point total.
type ChallengeItem struct {
	ID          string `db:"id"`
	YearLevel   int    `db:"year_level"`
	TotalPoints int    `db:"total_points"`
}

// ChallengeFacts is everything the challenges formula reads for one student.
type ChallengeFacts struct {
	Submissions []ChallengeSubmission
	ActiveItems []ChallengeItem
	Excluded    map[string]struct{}
}

// MasterySubmission is a frozen mastery attempt tagged with its item's language.
type MasterySubmission struct {
	ItemID       string `db:"item_id"`
	Tag          Tag    `db:"tag"`
	PointsEarned int    `db:"points_earned"`
	Active       bool   `db:"active"`
}

// MasteryFacts carries the student's mastery attempts and the live totals of active items per tag.
type MasteryFacts struct {
	Submissions  []MasterySubmission
	ActiveTotals map[Tag]int
}

// FactSource reads the raw facts each category formula consumes.
type FactSource interface {
	ChallengeFacts(ctx context.Context, studentID string) (ChallengeFacts, error)
	MasteryFacts(ctx context.Context, studentID string) (MasteryFacts, error)
	AcademicGrades(ctx context.Context, studentID string) ([]decimal.Decimal, error)
	VerifiedActivityPoints(ctx context.Context, studentID string, category Category) ([]decimal.Decimal, error)
}
