package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-achievement-api/internal/models"
	"github.com/noah-isme/sma-achievement-api/internal/scoring"
)

const submissionColumns = `id, student_id, item_id, points_earned, total_points, percentage, submitted_at`

// SubmissionRepository persists graded attempts.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Exists reports whether the student already submitted the item.
func (r *SubmissionRepository) Exists(ctx context.Context, studentID, itemID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM submissions WHERE student_id = $1 AND item_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, studentID, itemID); err != nil {
		return false, fmt.Errorf("check submission: %w", err)
	}
	return exists, nil
}

// Insert stores the submission and its answers atomically. It returns false without
// writing anything when a submission for the same (student, item) already exists.
func (r *SubmissionRepository) Insert(ctx context.Context, sub *models.Submission) (inserted bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin submission: %w", err)
	}
	defer func() {
		if err != nil || !inserted {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `INSERT INTO submissions (id, student_id, item_id, points_earned, total_points, percentage, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (student_id, item_id) DO NOTHING
RETURNING id`
	var id string
	err = tx.GetContext(ctx, &id, insertQuery,
		sub.ID, sub.StudentID, sub.ItemID, sub.PointsEarned, sub.TotalPoints, sub.Percentage, sub.SubmittedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert submission: %w", err)
	}

	const answerQuery = `INSERT INTO submission_answers (submission_id, question_id, answer, awarded_points)
VALUES (:submission_id, :question_id, :answer, :awarded_points)`
	for i := range sub.Answers {
		sub.Answers[i].SubmissionID = id
		if _, err = tx.NamedExecContext(ctx, answerQuery, sub.Answers[i]); err != nil {
			return false, fmt.Errorf("insert submission answer: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit submission: %w", err)
	}
	return true, nil
}

// FindByID returns a submission with its answers.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	const answersQuery = `SELECT submission_id, question_id, answer, awarded_points FROM submission_answers WHERE submission_id = $1 ORDER BY question_id`
	if err := r.db.SelectContext(ctx, &sub.Answers, answersQuery, id); err != nil {
		return nil, fmt.Errorf("list submission answers: %w", err)
	}
	return &sub, nil
}

// ListByStudent returns a student's submissions, newest first.
func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error) {
	var subs []models.Submission
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE student_id = $1 ORDER BY submitted_at DESC`
	if err := r.db.SelectContext(ctx, &subs, query, studentID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// Delete removes a submission and its answers.
func (r *SubmissionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	return expectAffected(res, "delete submission")
}

// SubmittersByItems maps each item id to the students who submitted it.
func (r *SubmissionRepository) SubmittersByItems(ctx context.Context, itemIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ItemID    string `db:"item_id"`
		StudentID string `db:"student_id"`
	}
	const query = `SELECT item_id, student_id FROM submissions WHERE item_id = ANY($1)`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(itemIDs)); err != nil {
		return nil, fmt.Errorf("list submitters: %w", err)
	}
	for _, id := range itemIDs {
		out[id] = []string{}
	}
	for _, row := range rows {
		out[row.ItemID] = append(out[row.ItemID], row.StudentID)
	}
	return out, nil
}

// ChallengeSubmissions returns every challenge attempt of a student with the item's year level.
func (r *SubmissionRepository) ChallengeSubmissions(ctx context.Context, studentID string) ([]scoring.ChallengeSubmission, error) {
	const query = `
SELECT s.item_id, i.year_level, s.points_earned
FROM submissions s
JOIN assessable_items i ON i.id = s.item_id
WHERE s.student_id = $1 AND i.kind = 'CHALLENGE'`
	var rows []scoring.ChallengeSubmission
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list challenge submissions: %w", err)
	}
	return rows, nil
}

// MasterySubmissions returns every mastery attempt of a student with tag and item activity.
func (r *SubmissionRepository) MasterySubmissions(ctx context.Context, studentID string) ([]scoring.MasterySubmission, error) {
	const query = `
SELECT s.item_id, i.tag, s.points_earned, i.active
FROM submissions s
JOIN assessable_items i ON i.id = s.item_id
WHERE s.student_id = $1 AND i.kind = 'MASTERY'`
	var rows []scoring.MasterySubmission
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list mastery submissions: %w", err)
	}
	return rows, nil
}
