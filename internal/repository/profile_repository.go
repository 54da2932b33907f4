package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-achievement-api/internal/models"
)

const profileColumns = `student_id, academic, challenges, mastery, seminars, extracurricular, composite, tier, degraded, config_version, computed_at`

// ProfileRepository stores score profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get returns a stored profile or sql.ErrNoRows.
func (r *ProfileRepository) Get(ctx context.Context, studentID string) (*models.ScoreProfile, error) {
	var p models.ScoreProfile
	if err := r.db.GetContext(ctx, &p, `SELECT `+profileColumns+` FROM score_profiles WHERE student_id = $1`, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get score profile: %w", err)
	}
	return &p, nil
}

// Save locks the student's row and upserts the recomputed profile in one transaction.
func (r *ProfileRepository) Save(ctx context.Context, p *models.ScoreProfile) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save profile: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	err = tx.GetContext(ctx, &locked, `SELECT student_id FROM score_profiles WHERE student_id = $1 FOR UPDATE`, p.StudentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lock score profile: %w", err)
	}

	const upsert = `INSERT INTO score_profiles (` + profileColumns + `)
VALUES (:student_id, :academic, :challenges, :mastery, :seminars, :extracurricular, :composite, :tier, :degraded, :config_version, :computed_at)
ON CONFLICT (student_id) DO UPDATE SET
	academic = EXCLUDED.academic,
	challenges = EXCLUDED.challenges,
	mastery = EXCLUDED.mastery,
	seminars = EXCLUDED.seminars,
	extracurricular = EXCLUDED.extracurricular,
	composite = EXCLUDED.composite,
	tier = EXCLUDED.tier,
	degraded = EXCLUDED.degraded,
	config_version = EXCLUDED.config_version,
	computed_at = EXCLUDED.computed_at`
	if _, err = tx.NamedExecContext(ctx, upsert, p); err != nil {
		return fmt.Errorf("upsert score profile: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit score profile: %w", err)
	}
	return nil
}

// Scoreboard ranks profiles by composite. Ties share a rank.
func (r *ProfileRepository) Scoreboard(ctx context.Context, filter models.ScoreboardFilter) ([]models.ScoreboardEntry, int, error) {
	where := ""
	args := []interface{}{}
	if filter.Tier != "" {
		args = append(args, filter.Tier)
		where = " WHERE tier = $1"
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM score_profiles`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count scoreboard: %w", err)
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	args = append(args, size, (page-1)*size)
	query := fmt.Sprintf(`
SELECT * FROM (
	SELECT RANK() OVER (ORDER BY composite DESC) AS rank, %s
	FROM score_profiles
) ranked%s
ORDER BY rank ASC, student_id ASC
LIMIT $%d OFFSET $%d`, profileColumns, where, len(args)-1, len(args))

	var entries []models.ScoreboardEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list scoreboard: %w", err)
	}
	return entries, total, nil
}

// AllStudentIDs returns every student with a profile or any scoring fact.
func (r *ProfileRepository) AllStudentIDs(ctx context.Context) ([]string, error) {
	const query = `
SELECT student_id FROM score_profiles
UNION SELECT student_id FROM submissions
UNION SELECT student_id FROM academic_records
UNION SELECT student_id FROM activities
UNION SELECT id FROM users WHERE role = 'STUDENT'`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return ids, nil
}
