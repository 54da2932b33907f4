package scoring

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-achievement-api/pkg/config"
)

// ActivityRule selects how verified activities turn into a raw value.
type ActivityRule string

const (
	ActivityRuleCount ActivityRule = "count"
	ActivityRuleSum   ActivityRule = "sum"
)

// ErrInvalidWeight is returned for weights outside [0, 100].
var ErrInvalidWeight = errors.New("weight must be between 0 and 100")

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Tier is one row of the badge threshold table.
type Tier struct {
	Name    string          `json:"name"`
	Minimum decimal.Decimal `json:"minimum"`
}

// Config is an immutable, versioned snapshot handed to every aggregation.
// Mutations go through WithWeight which returns a new version.
type Config struct {
	Version          int64
	Weights          map[Category]decimal.Decimal
	Tiers            []Tier
	DefaultTier      string
	AcademicMaxGrade decimal.Decimal
	ActivityRule     ActivityRule
	Ceilings         map[Category]decimal.Decimal
}

// NewConfig builds the initial snapshot from environment settings.
func NewConfig(settings config.ScoringConfig) (*Config, error) {
	cfg := &Config{
		Version:          1,
		Weights:          make(map[Category]decimal.Decimal, len(Categories)),
		DefaultTier:      strings.TrimSpace(settings.DefaultTier),
		AcademicMaxGrade: decimal.NewFromInt(100),
		ActivityRule:     ActivityRuleCount,
		Ceilings:         make(map[Category]decimal.Decimal, 2),
	}
	if cfg.DefaultTier == "" {
		cfg.DefaultTier = "NONE"
	}

	for raw, value := range settings.DefaultWeights {
		cat, ok := ParseCategory(raw)
		if !ok {
			return nil, fmt.Errorf("unknown scoring category %q", raw)
		}
		w, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("parse weight %s: %w", raw, err)
		}
		if err := ValidateWeight(w); err != nil {
			return nil, fmt.Errorf("weight %s: %w", raw, err)
		}
		cfg.Weights[cat] = w
	}

	tiers := make([]Tier, 0, len(settings.TierThresholds))
	for name, value := range settings.TierThresholds {
		minimum, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("parse tier threshold %s: %w", name, err)
		}
		tiers = append(tiers, Tier{Name: name, Minimum: minimum})
	}
	cfg.Tiers = SortTiers(tiers)
	for i := 1; i < len(cfg.Tiers); i++ {
		prev, cur := cfg.Tiers[i-1], cfg.Tiers[i]
		if prev.Minimum.Equal(cur.Minimum) {
			names := []string{prev.Name, cur.Name}
			sort.Strings(names)
			return nil, fmt.Errorf("tiers %s and %s share minimum %s", names[0], names[1], cur.Minimum.String())
		}
	}

	if settings.AcademicMaxGrade != "" {
		maxGrade, err := decimal.NewFromString(settings.AcademicMaxGrade)
		if err != nil {
			return nil, fmt.Errorf("parse academic max grade: %w", err)
		}
		if !maxGrade.IsPositive() {
			return nil, fmt.Errorf("academic max grade must be positive")
		}
		cfg.AcademicMaxGrade = maxGrade
	}

	switch ActivityRule(strings.ToLower(strings.TrimSpace(settings.ActivityRule))) {
	case "", ActivityRuleCount:
		cfg.ActivityRule = ActivityRuleCount
	case ActivityRuleSum:
		cfg.ActivityRule = ActivityRuleSum
	default:
		return nil, fmt.Errorf("unknown activity rule %q", settings.ActivityRule)
	}

	for cat, raw := range map[Category]string{
		CategorySeminars:        settings.SeminarCeiling,
		CategoryExtracurricular: settings.ExtracurricularCeiling,
	} {
		if raw == "" {
			continue
		}
		ceiling, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s ceiling: %w", strings.ToLower(string(cat)), err)
		}
		if ceiling.IsPositive() {
			cfg.Ceilings[cat] = ceiling
		}
	}

	return cfg, nil
}

// SortTiers orders thresholds from highest to lowest minimum.
func SortTiers(tiers []Tier) []Tier {
	out := append([]Tier(nil), tiers...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Minimum.GreaterThan(out[j].Minimum)
	})
	return out
}

// ValidateWeight rejects weights outside [0, 100].
func ValidateWeight(w decimal.Decimal) error {
	if w.IsNegative() || w.GreaterThan(hundred) {
		return ErrInvalidWeight
	}
	return nil
}

// Weight returns the category weight, zero when unset.
func (c *Config) Weight(cat Category) decimal.Decimal {
	if w, ok := c.Weights[cat]; ok {
		return w
	}
	return zero
}

// Ceiling returns the configured cap for a category and whether one is set.
func (c *Config) Ceiling(cat Category) (decimal.Decimal, bool) {
	v, ok := c.Ceilings[cat]
	return v, ok && v.IsPositive()
}

// WithWeight returns a copy carrying the new weight and the next version.
func (c *Config) WithWeight(cat Category, w decimal.Decimal) (*Config, error) {
	if err := ValidateWeight(w); err != nil {
		return nil, err
	}
	next := c.clone()
	next.Weights[cat] = w
	next.Version = c.Version + 1
	return next, nil
}

// WithWeights overlays persisted weights onto the defaults at the given version.
func (c *Config) WithWeights(weights map[Category]decimal.Decimal, version int64) *Config {
	next := c.clone()
	for cat, w := range weights {
		next.Weights[cat] = w
	}
	if version > next.Version {
		next.Version = version
	}
	return next
}

// ResolveTier walks thresholds highest to lowest and returns the first met.
func (c *Config) ResolveTier(composite decimal.Decimal) string {
	for _, tier := range c.Tiers {
		if composite.GreaterThanOrEqual(tier.Minimum) {
			return tier.Name
		}
	}
	return c.DefaultTier
}

func (c *Config) clone() *Config {
	next := *c
	next.Weights = make(map[Category]decimal.Decimal, len(c.Weights))
	for k, v := range c.Weights {
		next.Weights[k] = v
	}
	next.Ceilings = make(map[Category]decimal.Decimal, len(c.Ceilings))
	for k, v := range c.Ceilings {
		next.Ceilings[k] = v
	}
	next.Tiers = append([]Tier(nil), c.Tiers...)
	return &next
}
