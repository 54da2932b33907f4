package scoring

import (
	"github.com/shopspring/decimal"
)

// Result is a fully resolved composite for one student.
type Result struct {
	StudentID     string
	Categories    []CategoryScore
	Composite     decimal.Decimal
	Tier          string
	ConfigVersion int64
}

// Compose sums the sub-scores and resolves the tier. It is total and idempotent.
func Compose(studentID string, scores []CategoryScore, cfg *Config) Result {
	composite := decimal.Zero
	for _, s := range scores {
		composite = composite.Add(s.Value)
	}
	return Result{
		StudentID:     studentID,
		Categories:    scores,
		Composite:     composite,
		Tier:          cfg.ResolveTier(composite),
		ConfigVersion: cfg.Version,
	}
}

// Value returns the sub-score of a category, zero when absent.
func (r Result) Value(cat Category) decimal.Decimal {
	for _, s := range r.Categories {
		if s.Category == cat {
			return s.Value
		}
	}
	return decimal.Zero
}

// DegradedCategories lists the categories computed from a failed lookup.
func (r Result) DegradedCategories() []string {
	out := make([]string, 0)
	for _, s := range r.Categories {
		if s.Degraded {
			out = append(out, string(s.Category))
		}
	}
	return out
}
