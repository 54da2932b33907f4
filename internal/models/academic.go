package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AcademicRecord stores up to four year-level grades for a student.
type AcademicRecord struct {
	StudentID string              `db:"student_id" json:"student_id"`
	Year1     decimal.NullDecimal `db:"year1" json:"year1"`
	Year2     decimal.NullDecimal `db:"year2" json:"year2"`
	Year3     decimal.NullDecimal `db:"year3" json:"year3"`
	Year4     decimal.NullDecimal `db:"year4" json:"year4"`
	UpdatedAt time.Time           `db:"updated_at" json:"updated_at"`
}

func (r *AcademicRecord) years() []decimal.NullDecimal {
	return []decimal.NullDecimal{r.Year1, r.Year2, r.Year3, r.Year4}
}

// Grades returns the present grades in year order.
func (r *AcademicRecord) Grades() []decimal.Decimal {
	out := make([]decimal.Decimal, 0, 4)
	for _, y := range r.years() {
		if y.Valid {
			out = append(out, y.Decimal)
		}
	}
	return out
}

// Standing infers the current year level and graduation from the latest graded year.
func (r *AcademicRecord) Standing() AcademicStanding {
	latest := 0
	for i, y := range r.years() {
		if y.Valid {
			latest = i + 1
		}
	}
	standing := AcademicStanding{StudentID: r.StudentID, YearLevel: latest + 1}
	if latest == 4 {
		standing.YearLevel = 4
		standing.Graduated = true
	}
	return standing
}

// AcademicStanding is derived from an AcademicRecord.
type AcademicStanding struct {
	StudentID string `json:"student_id"`
	YearLevel int    `json:"year_level"`
	Graduated bool   `json:"graduated"`
}
