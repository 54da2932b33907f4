package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-achievement-api/internal/dto"
	"github.com/noah-isme/sma-achievement-api/internal/models"
	"github.com/noah-isme/sma-achievement-api/internal/scoring"
	appErrors "github.com/noah-isme/sma-achievement-api/pkg/errors"
)

// Submission outcomes recorded in metrics.
const (
	submissionAccepted  = "accepted"
	submissionDuplicate = "duplicate"
	submissionRejected  = "rejected"
)

type submissionItemReader interface {
	GetWithQuestions(ctx context.Context, id string) (*models.AssessableItem, error)
}

type submissionStore interface {
	Exists(ctx context.Context, studentID, itemID string) (bool, error)
	Insert(ctx context.Context, sub *models.Submission) (bool, error)
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error)
	Delete(ctx context.Context, id string) error
}

type studentCascader interface {
	ForStudent(ctx context.Context, trigger models.CascadeTrigger, studentID string) *models.CascadeResult
}

// SubmissionService grades attempts and keeps the submitter index and profiles in step.
type SubmissionService struct {
	items       submissionItemReader
	submissions submissionStore
	index       *SubmitterIndex
	scores      profileRecomputer
	cascade     studentCascader
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubmissionService constructs the grader.
func NewSubmissionService(items submissionItemReader, submissions submissionStore, index *SubmitterIndex, scores profileRecomputer, cascade studentCascader, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubmissionService{
		items:       items,
		submissions: submissions,
		index:       index,
		scores:      scores,
		cascade:     cascade,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// SubmitAttempt grades and stores a student's single attempt at an item, then refreshes the
// student's profile. A failed refresh never undoes the stored attempt; it is retried via the cascade.
func (s *SubmissionService) SubmitAttempt(ctx context.Context, req dto.SubmitAttemptRequest) (*models.SubmissionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordSubmission(submissionRejected)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	item, err := s.items.GetWithQuestions(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordSubmission(submissionRejected)
			return nil, appErrors.Clone(appErrors.ErrItemNotFound, "item not found")
		}
		return nil, appErrors.Storage(err, "failed to load item")
	}
	now := s.now().UTC()
	if !item.OpenAt(now) {
		s.metrics.RecordSubmission(submissionRejected)
		return nil, appErrors.Clone(appErrors.ErrItemClosed, "item is not open for submissions")
	}
	if len(item.Questions) == 0 {
		s.metrics.RecordSubmission(submissionRejected)
		return nil, appErrors.Clone(appErrors.ErrItemHasNoQuestions, "item has no questions")
	}
	if err := checkAnswerKeys(item.Questions, req.Answers); err != nil {
		s.metrics.RecordSubmission(submissionRejected)
		return nil, err
	}

	exists, err := s.submissions.Exists(ctx, req.StudentID, req.ItemID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to check submission")
	}
	if exists {
		s.metrics.RecordSubmission(submissionDuplicate)
		return nil, appErrors.Clone(appErrors.ErrDuplicateSubmission, "already completed")
	}

	graded := scoring.Grade(gradingQuestions(item.Questions), req.Answers)
	sub := &models.Submission{
		ID:           uuid.NewString(),
		StudentID:    req.StudentID,
		ItemID:       req.ItemID,
		PointsEarned: graded.PointsEarned,
		TotalPoints:  graded.TotalPoints,
		Percentage:   graded.Percentage,
		SubmittedAt:  now,
		Answers:      make([]models.SubmissionAnswer, 0, len(item.Questions)),
	}
	for _, q := range item.Questions {
		sub.Answers = append(sub.Answers, models.SubmissionAnswer{
			QuestionID:    q.ID,
			Answer:        req.Answers[q.ID],
			AwardedPoints: graded.Awarded[q.ID],
		})
	}

	inserted, err := s.submissions.Insert(ctx, sub)
	if err != nil {
		if appErrors.IsUniqueViolation(err) {
			s.metrics.RecordSubmission(submissionDuplicate)
			return nil, appErrors.Clone(appErrors.ErrDuplicateSubmission, "already completed")
		}
		return nil, appErrors.Storage(err, "failed to store submission")
	}
	if !inserted {
		s.metrics.RecordSubmission(submissionDuplicate)
		return nil, appErrors.Clone(appErrors.ErrDuplicateSubmission, "already completed")
	}
	s.metrics.RecordSubmission(submissionAccepted)
	s.index.Add(sub.ItemID, sub.StudentID)

	result := &models.SubmissionResult{
		SubmissionID: sub.ID,
		PointsEarned: sub.PointsEarned,
		TotalPoints:  sub.TotalPoints,
		Percentage:   sub.Percentage,
	}

	profile, err := s.scores.Recompute(ctx, sub.StudentID)
	if err != nil {
		s.logger.Warn("post-submission recompute failed, scheduling retry",
			zap.String("student_id", sub.StudentID),
			zap.String("submission_id", sub.ID),
			zap.Error(err),
		)
		s.cascade.ForStudent(context.WithoutCancel(ctx), models.TriggerSubmission, sub.StudentID)
		return result, nil
	}
	result.Profile = profile
	return result, nil
}

// GetSubmission returns a stored attempt with its per-question awards.
func (s *SubmissionService) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.submissions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Storage(err, "failed to load submission")
	}
	return sub, nil
}

// ListByStudent returns a student's attempts, newest first.
func (s *SubmissionService) ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error) {
	subs, err := s.submissions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list submissions")
	}
	return subs, nil
}

// DeleteSubmission removes an attempt and recomputes its owner.
func (s *SubmissionService) DeleteSubmission(ctx context.Context, id string) (*models.CascadeResult, error) {
	sub, err := s.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.submissions.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Storage(err, "failed to delete submission")
	}
	s.index.Remove(sub.ItemID, sub.StudentID)
	return s.cascade.ForStudent(ctx, models.TriggerSubmission, sub.StudentID), nil
}

func gradingQuestions(questions []models.Question) []scoring.Question {
	out := make([]scoring.Question, 0, len(questions))
	for _, q := range questions {
		out = append(out, scoring.Question{ID: q.ID, Points: q.Points, AnswerKey: q.AnswerKey})
	}
	return out
}

// checkAnswerKeys rejects answers addressed to questions the item does not have.
func checkAnswerKeys(questions []models.Question, answers map[string]string) error {
	known := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		known[q.ID] = struct{}{}
	}
	unknown := make([]string, 0)
	for id := range answers {
		if _, ok := known[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return appErrors.Clone(appErrors.ErrValidation, "unknown question ids: "+strings.Join(unknown, ", "))
}
