package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ScoreProfile is the persisted composite for a student. Written only by the recalculator.
type ScoreProfile struct {
	StudentID       string          `db:"student_id" json:"student_id"`
	Academic        decimal.Decimal `db:"academic" json:"academic"`
	Challenges      decimal.Decimal `db:"challenges" json:"challenges"`
	Mastery         decimal.Decimal `db:"mastery" json:"mastery"`
	Seminars        decimal.Decimal `db:"seminars" json:"seminars"`
	Extracurricular decimal.Decimal `db:"extracurricular" json:"extracurricular"`
	Composite       decimal.Decimal `db:"composite" json:"composite"`
	Tier            string          `db:"tier" json:"tier"`
	Degraded        pq.StringArray  `db:"degraded" json:"degraded,omitempty"`
	ConfigVersion   int64           `db:"config_version" json:"config_version"`
	ComputedAt      time.Time       `db:"computed_at" json:"computed_at"`
	Stale           bool            `db:"-" json:"stale"`
}

// ScoreboardEntry is a ranked profile row.
type ScoreboardEntry struct {
	Rank int `db:"rank" json:"rank"`
	ScoreProfile
}

// ScoreboardFilter narrows scoreboard listings.
type ScoreboardFilter struct {
	Tier     string
	Page     int
	PageSize int
}

// CategoryWeight is a persisted weight override.
type CategoryWeight struct {
	Category  string          `db:"category" json:"category"`
	Weight    decimal.Decimal `db:"weight" json:"weight"`
	Version   int64           `db:"version" json:"version"`
	UpdatedBy *string         `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// WeightTable is the effective weight set with its config version.
type WeightTable struct {
	Version int64            `json:"version"`
	Weights []CategoryWeight `json:"weights"`
}

// CascadeTrigger names the mutation that caused a recompute fan-out.
type CascadeTrigger string

const (
	TriggerSubmission     CascadeTrigger = "submission"
	TriggerItemChange     CascadeTrigger = "item_change"
	TriggerWeightChange   CascadeTrigger = "weight_change"
	TriggerExclusion      CascadeTrigger = "exclusion"
	TriggerAcademicRecord CascadeTrigger = "academic_record"
	TriggerActivity       CascadeTrigger = "activity"
	TriggerFullRecompute  CascadeTrigger = "full_recompute"
)

// CascadeResult summarises a fan-out.
type CascadeResult struct {
	Trigger    CascadeTrigger `json:"trigger"`
	Affected   int            `json:"affected"`
	StudentIDs []string       `json:"student_ids,omitempty"`
}
