package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActivityCategory classifies recorded activities.
type ActivityCategory string

const (
	ActivitySeminar         ActivityCategory = "SEMINAR"
	ActivityExtracurricular ActivityCategory = "EXTRACURRICULAR"
)

// Activity is a seminar attendance or extracurricular entry. Only verified rows score.
type Activity struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	Category   ActivityCategory `db:"category" json:"category"`
	Title      string           `db:"title" json:"title"`
	Points     decimal.Decimal  `db:"points" json:"points"`
	Verified   bool             `db:"verified" json:"verified"`
	OccurredAt time.Time        `db:"occurred_at" json:"occurred_at"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// ActivityFilter narrows activity listings.
type ActivityFilter struct {
	StudentID string
	Category  ActivityCategory
	Verified  *bool
}
