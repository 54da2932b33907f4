package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// UpsertAcademicRecordRequest replaces a student's year grades. Missing years are stored as null.
type UpsertAcademicRecordRequest struct {
	StudentID string           `json:"student_id" validate:"required"`
	Year1     *decimal.Decimal `json:"year1"`
	Year2     *decimal.Decimal `json:"year2"`
	Year3     *decimal.Decimal `json:"year3"`
	Year4     *decimal.Decimal `json:"year4"`
}

// BulkAcademicRecordRequest imports many records at once.
type BulkAcademicRecordRequest struct {
	Records []UpsertAcademicRecordRequest `json:"records" validate:"required,min=1,max=1000,dive"`
}

// RecordActivityRequest registers a seminar or extracurricular activity.
type RecordActivityRequest struct {
	StudentID  string           `json:"student_id" validate:"required"`
	Category   string           `json:"category" validate:"required,oneof=SEMINAR EXTRACURRICULAR"`
	Title      string           `json:"title" validate:"required,max=200"`
	Points     *decimal.Decimal `json:"points"`
	Verified   bool             `json:"verified"`
	OccurredAt time.Time        `json:"occurred_at" validate:"required"`
}

// VerifyActivityRequest toggles verification.
type VerifyActivityRequest struct {
	Verified *bool `json:"verified" validate:"required"`
}
