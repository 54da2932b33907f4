package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-achievement-api/internal/models"
	"github.com/noah-isme/sma-achievement-api/internal/scoring"
)

var itemRowColumns = []string{"id", "kind", "creator_id", "title", "tag", "year_level", "active", "not_before", "expires_at", "total_points", "created_at", "updated_at"}

func TestItemGetWithQuestions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewItemRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE i.id = $1")).
		WithArgs("item-1").
		WillReturnRows(sqlmock.NewRows(itemRowColumns).
			AddRow("item-1", "CHALLENGE", "teacher-1", "Loops", nil, 1, true, nil, nil, 10, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM questions WHERE item_id = $1")).
		WithArgs("item-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "item_id", "position", "prompt", "points", "answer_key", "created_at", "updated_at"}).
			AddRow("q1", "item-1", 1, "keyword?", 10, "for", now, now))

	item, err := repo.GetWithQuestions(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, models.ItemKindChallenge, item.Kind)
	assert.Equal(t, 10, item.TotalPoints)
	require.Len(t, item.Questions, 1)
	assert.Equal(t, "for", item.Questions[0].AnswerKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemGetMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewItemRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE i.id = $1")).WillReturnError(sql.ErrNoRows)
	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestItemCreateWithQuestions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewItemRepository(db)

	now := time.Now().UTC()
	item := &models.AssessableItem{
		ID: "item-1", Kind: models.ItemKindChallenge, CreatorID: "t-1", Title: "Loops", YearLevel: 1, Active: true,
		CreatedAt: now, UpdatedAt: now,
		Questions: []models.Question{{ID: "q1", ItemID: "item-1", Prompt: "?", Points: 5, AnswerKey: "x", CreatedAt: now, UpdatedAt: now}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO assessable_items").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO questions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), item))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemDeleteQuestionMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewItemRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM questions WHERE item_id = $1 AND id = $2")).
		WithArgs("item-1", "q9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteQuestion(context.Background(), "item-1", "q9")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestItemActiveMasteryTotals(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewItemRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE i.kind = 'MASTERY' AND i.active")).
		WillReturnRows(sqlmock.NewRows([]string{"tag", "total_points"}).
			AddRow("PYTHON", 100).
			AddRow("JAVA", 40))

	totals, err := repo.ActiveMasteryTotals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, totals[scoring.TagPython])
	assert.Equal(t, 40, totals[scoring.TagJava])
}

func TestItemScopeItemIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewItemRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("kind = 'CHALLENGE' AND year_level <= $1")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c-1").AddRow("c-2"))

	ids, err := repo.ScopeItemIDs(context.Background(), models.ItemScope{Kind: models.ItemKindChallenge, YearLevel: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"c-1", "c-2"}, ids)

	_, err = repo.ScopeItemIDs(context.Background(), models.ItemScope{Kind: "QUIZ"})
	assert.Error(t, err)
}

func TestItemExclusions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewItemRepository(db)

	mock.ExpectExec("INSERT INTO item_exclusions").
		WithArgs("stu-1", "item-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT item_id FROM item_exclusions WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"item_id"}).AddRow("item-1"))

	added, err := repo.AddExclusion(context.Background(), "stu-1", "item-1")
	require.NoError(t, err)
	assert.True(t, added)

	excluded, err := repo.ExcludedItemIDs(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Contains(t, excluded, "item-1")
}
