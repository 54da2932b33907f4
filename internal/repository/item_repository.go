package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-achievement-api/internal/models"
	"github.com/noah-isme/sma-achievement-api/internal/scoring"
)

const itemSelect = `
SELECT
	i.id, i.kind, i.creator_id, i.title, i.tag, i.year_level, i.active, i.not_before, i.expires_at,
	COALESCE((SELECT SUM(q.points) FROM questions q WHERE q.item_id = i.id), 0) AS total_points,
	i.created_at, i.updated_at
FROM assessable_items i`

const questionColumns = `id, item_id, position, prompt, points, answer_key, created_at, updated_at`

// ItemRepository persists assessable items, their questions and per-student exclusions.
type ItemRepository struct {
	db *sqlx.DB
}

// NewItemRepository constructs the repository.
func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts an item together with its initial questions.
func (r *ItemRepository) Create(ctx context.Context, item *models.AssessableItem) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create item: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO assessable_items (id, kind, creator_id, title, tag, year_level, active, not_before, expires_at, created_at, updated_at)
VALUES (:id, :kind, :creator_id, :title, :tag, :year_level, :active, :not_before, :expires_at, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	for i := range item.Questions {
		if err = insertQuestion(ctx, tx, &item.Questions[i]); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create item: %w", err)
	}
	return nil
}

// Get returns an item with its derived point total. Missing items yield sql.ErrNoRows.
func (r *ItemRepository) Get(ctx context.Context, id string) (*models.AssessableItem, error) {
	var item models.AssessableItem
	if err := r.db.GetContext(ctx, &item, itemSelect+` WHERE i.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}

// GetWithQuestions loads the item and its live questions ordered by position.
func (r *ItemRepository) GetWithQuestions(ctx context.Context, id string) (*models.AssessableItem, error) {
	item, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	questions, err := r.ListQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Questions = questions
	return item, nil
}

// List returns items matching the filter with the total count.
func (r *ItemRepository) List(ctx context.Context, filter models.ItemFilter) ([]models.AssessableItem, int, error) {
	var conditions []string
	var args []interface{}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conditions = append(conditions, fmt.Sprintf("i.kind = $%d", len(args)))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		conditions = append(conditions, fmt.Sprintf("i.tag = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("i.active = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM assessable_items i`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	args = append(args, size, (page-1)*size)
	query := itemSelect + where + fmt.Sprintf(" ORDER BY i.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var items []models.AssessableItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	return items, total, nil
}

// Update writes mutable item fields.
func (r *ItemRepository) Update(ctx context.Context, item *models.AssessableItem) error {
	const query = `UPDATE assessable_items
SET title = :title, tag = :tag, year_level = :year_level, active = :active, not_before = :not_before, expires_at = :expires_at, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, item)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return expectAffected(res, "update item")
}

// Delete removes an item; questions, submissions and exclusions cascade in the schema.
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assessable_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return expectAffected(res, "delete item")
}

// ListQuestions returns the live questions of an item.
func (r *ItemRepository) ListQuestions(ctx context.Context, itemID string) ([]models.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE item_id = $1 ORDER BY position ASC, created_at ASC`
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, itemID); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// GetQuestion returns a question scoped to its item.
func (r *ItemRepository) GetQuestion(ctx context.Context, itemID, questionID string) (*models.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE item_id = $1 AND id = $2`
	var q models.Question
	if err := r.db.GetContext(ctx, &q, query, itemID, questionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get question: %w", err)
	}
	return &q, nil
}

// AddQuestion appends a question to an item.
func (r *ItemRepository) AddQuestion(ctx context.Context, q *models.Question) error {
	return insertQuestion(ctx, r.db, q)
}

// UpdateQuestion replaces prompt, points, key and position.
func (r *ItemRepository) UpdateQuestion(ctx context.Context, q *models.Question) error {
	const query = `UPDATE questions SET position = :position, prompt = :prompt, points = :points, answer_key = :answer_key, updated_at = :updated_at
WHERE id = :id AND item_id = :item_id`
	res, err := r.db.NamedExecContext(ctx, query, q)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	return expectAffected(res, "update question")
}

// DeleteQuestion removes a question from its item.
func (r *ItemRepository) DeleteQuestion(ctx context.Context, itemID, questionID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE item_id = $1 AND id = $2`, itemID, questionID)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return expectAffected(res, "delete question")
}

// AddExclusion hides an item from a student's denominator. It reports whether a row was added.
func (r *ItemRepository) AddExclusion(ctx context.Context, studentID, itemID string) (bool, error) {
	const query = `INSERT INTO item_exclusions (student_id, item_id, created_at) VALUES ($1, $2, NOW())
ON CONFLICT (student_id, item_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, studentID, itemID)
	if err != nil {
		return false, fmt.Errorf("add exclusion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add exclusion: %w", err)
	}
	return n > 0, nil
}

// RemoveExclusion reverses AddExclusion. It reports whether a row was removed.
func (r *ItemRepository) RemoveExclusion(ctx context.Context, studentID, itemID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM item_exclusions WHERE student_id = $1 AND item_id = $2`, studentID, itemID)
	if err != nil {
		return false, fmt.Errorf("remove exclusion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove exclusion: %w", err)
	}
	return n > 0, nil
}

// ExcludedItemIDs returns the items excluded for a student.
func (r *ItemRepository) ExcludedItemIDs(ctx context.Context, studentID string) (map[string]struct{}, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT item_id FROM item_exclusions WHERE student_id = $1`, studentID); err != nil {
		return nil, fmt.Errorf("list exclusions: %w", err)
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// ActiveChallengeItems returns every active challenge with its live point total.
func (r *ItemRepository) ActiveChallengeItems(ctx context.Context) ([]scoring.ChallengeItem, error) {
	const query = `
SELECT i.id, i.year_level, COALESCE(SUM(q.points), 0) AS total_points
FROM assessable_items i
LEFT JOIN questions q ON q.item_id = i.id
WHERE i.kind = 'CHALLENGE' AND i.active
GROUP BY i.id, i.year_level`
	var items []scoring.ChallengeItem
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list active challenge items: %w", err)
	}
	return items, nil
}

// ActiveMasteryTotals sums live points of active mastery items per tag.
func (r *ItemRepository) ActiveMasteryTotals(ctx context.Context) (map[scoring.Tag]int, error) {
	const query = `
SELECT i.tag, COALESCE(SUM(q.points), 0) AS total_points
FROM assessable_items i
LEFT JOIN questions q ON q.item_id = i.id
WHERE i.kind = 'MASTERY' AND i.active
GROUP BY i.tag`
	var rows []struct {
		Tag         scoring.Tag `db:"tag"`
		TotalPoints int         `db:"total_points"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("sum mastery totals: %w", err)
	}
	out := make(map[scoring.Tag]int, len(rows))
	for _, row := range rows {
		out[row.Tag] = row.TotalPoints
	}
	return out, nil
}

// ScopeItemIDs lists every item, active or not, whose submitters share the scope's denominator.
// Challenges reach down to the given year level; mastery items share a tag.
func (r *ItemRepository) ScopeItemIDs(ctx context.Context, scope models.ItemScope) ([]string, error) {
	var (
		query string
		arg   interface{}
	)
	switch scope.Kind {
	case models.ItemKindChallenge:
		query = `SELECT id FROM assessable_items WHERE kind = 'CHALLENGE' AND year_level <= $1`
		arg = scope.YearLevel
	case models.ItemKindMastery:
		query = `SELECT id FROM assessable_items WHERE kind = 'MASTERY' AND tag = $1`
		arg = scope.Tag
	default:
		return nil, fmt.Errorf("unknown item kind %q", scope.Kind)
	}
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, arg); err != nil {
		return nil, fmt.Errorf("list scope items: %w", err)
	}
	return ids, nil
}

type namedExecer interface {
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

func insertQuestion(ctx context.Context, exec namedExecer, q *models.Question) error {
	const query = `INSERT INTO questions (id, item_id, position, prompt, points, answer_key, created_at, updated_at)
VALUES (:id, :item_id, :position, :prompt, :points, :answer_key, :created_at, :updated_at)`
	if _, err := exec.NamedExecContext(ctx, query, q); err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func expectAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
