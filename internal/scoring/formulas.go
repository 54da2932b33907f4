package scoring

import "github.com/shopspring/decimal"

// Precision is the number of decimal places kept per category sub-score.
const Precision = 4

var masteryMultipliers = []decimal.Decimal{
	decimal.Zero,
	decimal.RequireFromString("0.25"),
	decimal.RequireFromString("0.50"),
	decimal.RequireFromString("0.75"),
	decimal.NewFromInt(1),
}

// MasteryMultiplier maps distinct attempts in a tag to its step multiplier.
func MasteryMultiplier(attempts int) decimal.Decimal {
	if attempts <= 0 {
		return decimal.Zero
	}
	if attempts >= len(masteryMultipliers) {
		return masteryMultipliers[len(masteryMultipliers)-1]
	}
	return masteryMultipliers[attempts]
}

// ChallengeScore applies the eligibility floor, exclusions and the weight cap.
func ChallengeScore(facts ChallengeFacts, weight decimal.Decimal) decimal.Decimal {
	if len(facts.Submissions) == 0 {
		return decimal.Zero
	}
	firstYear := facts.Submissions[0].YearLevel
	for _, s := range facts.Submissions[1:] {
		if s.YearLevel < firstYear {
			firstYear = s.YearLevel
		}
	}

	inScope := make(map[string]struct{}, len(facts.ActiveItems))
	totalPossible := 0
	for _, item := range facts.ActiveItems {
		if item.YearLevel < firstYear {
			continue
		}
		if _, excluded := facts.Excluded[item.ID]; excluded {
			continue
		}
		inScope[item.ID] = struct{}{}
		totalPossible += item.TotalPoints
	}
	if totalPossible <= 0 {
		return decimal.Zero
	}

	earned := 0
	for _, s := range facts.Submissions {
		if _, ok := inScope[s.ItemID]; ok {
			earned += s.PointsEarned
		}
	}

	value := decimal.NewFromInt(int64(earned)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(totalPossible))).
		Mul(weight).
		Div(hundred)
	return round(decimal.Min(value, weight))
}

// MasteryScore averages per-tag raw values over the full tag set, then applies the weight.
func MasteryScore(facts MasteryFacts, weight decimal.Decimal) decimal.Decimal {
	attempts := make(map[Tag]map[string]struct{}, len(Tags))
	earned := make(map[Tag]int, len(Tags))
	for _, s := range facts.Submissions {
		if attempts[s.Tag] == nil {
			attempts[s.Tag] = make(map[string]struct{})
		}
		attempts[s.Tag][s.ItemID] = struct{}{}
		if s.Active {
			earned[s.Tag] += s.PointsEarned
		}
	}

	sum := decimal.Zero
	for _, tag := range Tags {
		sum = sum.Add(MasteryTagRaw(earned[tag], facts.ActiveTotals[tag], len(attempts[tag])))
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(Tags))))
	return round(mean.Mul(weight).Div(hundred))
}

// MasteryTagRaw is earned/total*100*multiplier for one tag, clamped to [0, 100].
func MasteryTagRaw(earned, total, attempts int) decimal.Decimal {
	if total <= 0 || attempts <= 0 {
		return decimal.Zero
	}
	ratio := decimal.NewFromInt(int64(earned)).Mul(hundred).Div(decimal.NewFromInt(int64(total)))
	if ratio.GreaterThan(hundred) {
		ratio = hundred
	}
	return ratio.Mul(MasteryMultiplier(attempts))
}

// AcademicScore is the mean of present grades over the grade scale, scaled by weight.
func AcademicScore(grades []decimal.Decimal, maxGrade, weight decimal.Decimal) decimal.Decimal {
	if len(grades) == 0 || !maxGrade.IsPositive() {
		return decimal.Zero
	}
	mean := decimal.Avg(grades[0], grades[1:]...)
	value := mean.Div(maxGrade).Mul(weight)
	return round(decimal.Max(decimal.Zero, decimal.Min(value, weight)))
}

// ActivityScore counts or sums verified activities, scales by weight and applies an optional ceiling.
func ActivityScore(points []decimal.Decimal, rule ActivityRule, weight decimal.Decimal, ceiling *decimal.Decimal) decimal.Decimal {
	raw := decimal.Zero
	switch rule {
	case ActivityRuleSum:
		if len(points) > 0 {
			raw = decimal.Sum(points[0], points[1:]...)
		}
	default:
		raw = decimal.NewFromInt(int64(len(points)))
	}
	value := raw.Mul(weight).Div(hundred)
	if ceiling != nil && ceiling.IsPositive() {
		value = decimal.Min(value, *ceiling)
	}
	return round(value)
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Precision)
}
