package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFacts struct {
	challenge    ChallengeFacts
	mastery      MasteryFacts
	grades       []decimal.Decimal
	activities   map[Category][]decimal.Decimal
	challengeErr error
	masteryErr   error
	panicAcademy bool
}

func (s *stubFacts) ChallengeFacts(context.Context, string) (ChallengeFacts, error) {
	return s.challenge, s.challengeErr
}

func (s *stubFacts) MasteryFacts(context.Context, string) (MasteryFacts, error) {
	return s.mastery, s.masteryErr
}

func (s *stubFacts) AcademicGrades(context.Context, string) ([]decimal.Decimal, error) {
	if s.panicAcademy {
		panic("corrupt record")
	}
	return s.grades, nil
}

func (s *stubFacts) VerifiedActivityPoints(_ context.Context, _ string, cat Category) ([]decimal.Decimal, error) {
	return s.activities[cat], nil
}

func fullFacts() *stubFacts {
	return &stubFacts{
		challenge: ChallengeFacts{
			Submissions: []ChallengeSubmission{{ItemID: "c1", YearLevel: 1, PointsEarned: 7}},
			ActiveItems: []ChallengeItem{{ID: "c1", YearLevel: 1, TotalPoints: 9}},
		},
		mastery: MasteryFacts{
			Submissions:  []MasterySubmission{{ItemID: "p1", Tag: TagPython, PointsEarned: 2, Active: true}},
			ActiveTotals: map[Tag]int{TagPython: 3},
		},
		grades: []decimal.Decimal{dec("77.3"), dec("81.9"), dec("90")},
		activities: map[Category][]decimal.Decimal{
			CategorySeminars:        {dec("1"), dec("1"), dec("1")},
			CategoryExtracurricular: {dec("2")},
		},
	}
}

func TestAggregateCompositeIsExactSum(t *testing.T) {
	cfg, err := NewConfig(testSettings())
	require.NoError(t, err)

	agg := NewAggregator(fullFacts(), nil, nil)
	scores, err := agg.Aggregate(context.Background(), "s-1", cfg)
	require.NoError(t, err)
	require.Len(t, scores, len(Categories))

	result := Compose("s-1", scores, cfg)
	sum := decimal.Zero
	for _, cat := range Categories {
		sum = sum.Add(result.Value(cat))
	}
	assert.True(t, sum.Equal(result.Composite))
	assert.Empty(t, result.DegradedCategories())

	again, err := agg.Aggregate(context.Background(), "s-1", cfg)
	require.NoError(t, err)
	assert.True(t, Compose("s-1", again, cfg).Composite.Equal(result.Composite))
}

func TestAggregateDegradesFailedCategory(t *testing.T) {
	cfg, err := NewConfig(testSettings())
	require.NoError(t, err)

	facts := fullFacts()
	facts.masteryErr = errors.New("relation does not exist")
	facts.panicAcademy = true

	var mu sync.Mutex
	faults := map[Category]bool{}
	agg := NewAggregator(facts, nil, func(_ string, cat Category, _ error) {
		mu.Lock()
		defer mu.Unlock()
		faults[cat] = true
	})

	scores, err := agg.Aggregate(context.Background(), "s-1", cfg)
	require.NoError(t, err)

	result := Compose("s-1", scores, cfg)
	assert.ElementsMatch(t, []string{"ACADEMIC", "MASTERY"}, result.DegradedCategories())
	assert.True(t, faults[CategoryMastery])
	assert.True(t, faults[CategoryAcademic])
	assert.True(t, result.Value(CategoryMastery).IsZero())
	assert.True(t, result.Value(CategoryChallenges).IsPositive())
}

func TestAggregateTransientFailureAborts(t *testing.T) {
	cfg, err := NewConfig(testSettings())
	require.NoError(t, err)

	facts := fullFacts()
	facts.challengeErr = fmt.Errorf("query: %w", context.DeadlineExceeded)

	_, err = NewAggregator(facts, nil, nil).Aggregate(context.Background(), "s-1", cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
