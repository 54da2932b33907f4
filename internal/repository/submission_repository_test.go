package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-achievement-api/internal/models"
)

func sampleSubmission() *models.Submission {
	return &models.Submission{
		ID:           "sub-1",
		StudentID:    "stu-1",
		ItemID:       "item-1",
		PointsEarned: 10,
		TotalPoints:  10,
		Percentage:   100,
		SubmittedAt:  time.Now().UTC(),
		Answers: []models.SubmissionAnswer{
			{QuestionID: "q1", Answer: "go", AwardedPoints: 10},
		},
	}
}

func TestSubmissionInsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, item_id) DO NOTHING")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sub-1"))
	mock.ExpectExec("INSERT INTO submission_answers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	inserted, err := repo.Insert(context.Background(), sampleSubmission())
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionInsertConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, item_id) DO NOTHING")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	inserted, err := repo.Insert(context.Background(), sampleSubmission())
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionExists(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("stu-1", "item-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), "stu-1", "item-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSubmittersByItems(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT item_id, student_id FROM submissions WHERE item_id = ANY($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"item_id", "student_id"}).
			AddRow("item-1", "stu-1").
			AddRow("item-1", "stu-2"))

	got, err := repo.SubmittersByItems(context.Background(), []string{"item-1", "item-2"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"stu-1", "stu-2"}, got["item-1"])
	assert.Empty(t, got["item-2"])
	_, tracked := got["item-2"]
	assert.True(t, tracked)
}

func TestMasterySubmissions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.item_id, i.tag, s.points_earned, i.active")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"item_id", "tag", "points_earned", "active"}).
			AddRow("m-1", "PYTHON", 30, true))

	rows, err := repo.MasterySubmissions(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, "PYTHON", rows[0].Tag)
	assert.True(t, rows[0].Active)
}
