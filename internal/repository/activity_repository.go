package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-achievement-api/internal/models"
)

const activityColumns = `id, student_id, category, title, points, verified, occurred_at, created_at, updated_at`

// ActivityRepository persists seminar and extracurricular entries.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create inserts an activity.
func (r *ActivityRepository) Create(ctx context.Context, a *models.Activity) error {
	query := `INSERT INTO activities (` + activityColumns + `)
VALUES (:id, :student_id, :category, :title, :points, :verified, :occurred_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// Get returns an activity or sql.ErrNoRows.
func (r *ActivityRepository) Get(ctx context.Context, id string) (*models.Activity, error) {
	var a models.Activity
	if err := r.db.GetContext(ctx, &a, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return &a, nil
}

// List returns activities matching the filter.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error) {
	var conditions []string
	var args []interface{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Verified != nil {
		args = append(args, *filter.Verified)
		conditions = append(conditions, fmt.Sprintf("verified = $%d", len(args)))
	}
	query := `SELECT ` + activityColumns + ` FROM activities`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY occurred_at DESC"

	var out []models.Activity
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return out, nil
}

// SetVerified toggles verification.
func (r *ActivityRepository) SetVerified(ctx context.Context, id string, verified bool, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE activities SET verified = $2, updated_at = $3 WHERE id = $1`, id, verified, at)
	if err != nil {
		return fmt.Errorf("verify activity: %w", err)
	}
	return expectAffected(res, "verify activity")
}

// Delete removes an activity.
func (r *ActivityRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return expectAffected(res, "delete activity")
}

// VerifiedPoints returns the points of every verified activity in a category.
func (r *ActivityRepository) VerifiedPoints(ctx context.Context, studentID string, category models.ActivityCategory) ([]decimal.Decimal, error) {
	var points []decimal.Decimal
	const query = `SELECT points FROM activities WHERE student_id = $1 AND category = $2 AND verified`
	if err := r.db.SelectContext(ctx, &points, query, studentID, category); err != nil {
		return nil, fmt.Errorf("list verified activity points: %w", err)
	}
	return points, nil
}
