package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-achievement-api/internal/models"
)

const academicUpsert = `INSERT INTO academic_records (student_id, year1, year2, year3, year4, updated_at)
VALUES (:student_id, :year1, :year2, :year3, :year4, :updated_at)
ON CONFLICT (student_id) DO UPDATE SET
	year1 = EXCLUDED.year1,
	year2 = EXCLUDED.year2,
	year3 = EXCLUDED.year3,
	year4 = EXCLUDED.year4,
	updated_at = EXCLUDED.updated_at`

// AcademicRepository persists year grades imported from the roster.
type AcademicRepository struct {
	db *sqlx.DB
}

// NewAcademicRepository constructs the repository.
func NewAcademicRepository(db *sqlx.DB) *AcademicRepository {
	return &AcademicRepository{db: db}
}

// Get returns a student's record or sql.ErrNoRows.
func (r *AcademicRepository) Get(ctx context.Context, studentID string) (*models.AcademicRecord, error) {
	var rec models.AcademicRecord
	const query = `SELECT student_id, year1, year2, year3, year4, updated_at FROM academic_records WHERE student_id = $1`
	if err := r.db.GetContext(ctx, &rec, query, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get academic record: %w", err)
	}
	return &rec, nil
}

// Upsert replaces a single record.
func (r *AcademicRepository) Upsert(ctx context.Context, rec *models.AcademicRecord) error {
	if _, err := r.db.NamedExecContext(ctx, academicUpsert, rec); err != nil {
		return fmt.Errorf("upsert academic record: %w", err)
	}
	return nil
}

// BulkUpsert replaces many records in one transaction.
func (r *AcademicRepository) BulkUpsert(ctx context.Context, records []models.AcademicRecord) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin academic import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for i := range records {
		if _, err = tx.NamedExecContext(ctx, academicUpsert, &records[i]); err != nil {
			return fmt.Errorf("upsert academic record %s: %w", records[i].StudentID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit academic import: %w", err)
	}
	return nil
}
