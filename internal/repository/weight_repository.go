package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-achievement-api/internal/models"
)

// WeightRepository persists administrator weight overrides.
type WeightRepository struct {
	db *sqlx.DB
}

// NewWeightRepository constructs the repository.
func NewWeightRepository(db *sqlx.DB) *WeightRepository {
	return &WeightRepository{db: db}
}

// List returns every persisted weight.
func (r *WeightRepository) List(ctx context.Context) ([]models.CategoryWeight, error) {
	var weights []models.CategoryWeight
	const query = `SELECT category, weight, version, updated_by, updated_at FROM category_weights ORDER BY category`
	if err := r.db.SelectContext(ctx, &weights, query); err != nil {
		return nil, fmt.Errorf("list weights: %w", err)
	}
	return weights, nil
}

// Upsert stores a weight override.
func (r *WeightRepository) Upsert(ctx context.Context, w *models.CategoryWeight) error {
	const query = `INSERT INTO category_weights (category, weight, version, updated_by, updated_at)
VALUES (:category, :weight, :version, :updated_by, :updated_at)
ON CONFLICT (category) DO UPDATE SET
	weight = EXCLUDED.weight,
	version = EXCLUDED.version,
	updated_by = EXCLUDED.updated_by,
	updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, w); err != nil {
		return fmt.Errorf("upsert weight: %w", err)
	}
	return nil
}
