package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-achievement-api/internal/dto"
	"github.com/noah-isme/sma-achievement-api/internal/models"
	"github.com/noah-isme/sma-achievement-api/internal/scoring"
	appErrors "github.com/noah-isme/sma-achievement-api/pkg/errors"
)

type itemStore interface {
	Create(ctx context.Context, item *models.AssessableItem) error
	Get(ctx context.Context, id string) (*models.AssessableItem, error)
	GetWithQuestions(ctx context.Context, id string) (*models.AssessableItem, error)
	List(ctx context.Context, filter models.ItemFilter) ([]models.AssessableItem, int, error)
	Update(ctx context.Context, item *models.AssessableItem) error
	Delete(ctx context.Context, id string) error
	GetQuestion(ctx context.Context, itemID, questionID string) (*models.Question, error)
	AddQuestion(ctx context.Context, q *models.Question) error
	UpdateQuestion(ctx context.Context, q *models.Question) error
	DeleteQuestion(ctx context.Context, itemID, questionID string) error
	AddExclusion(ctx context.Context, studentID, itemID string) (bool, error)
	RemoveExclusion(ctx context.Context, studentID, itemID string) (bool, error)
}

type itemCascader interface {
	ScopeStudents(ctx context.Context, item *models.AssessableItem) ([]string, error)
	Dispatch(ctx context.Context, trigger models.CascadeTrigger, studentIDs []string) *models.CascadeResult
	DeferSweep(trigger models.CascadeTrigger, cause error) error
	ForStudent(ctx context.Context, trigger models.CascadeTrigger, studentID string) *models.CascadeResult
}

// ItemChange is an item mutation with the recomputation it scheduled.
type ItemChange struct {
	Item    *models.AssessableItem `json:"item,omitempty"`
	Cascade *models.CascadeResult  `json:"cascade"`
}

// QuestionChange is a question mutation with the recomputation it scheduled.
type QuestionChange struct {
	Question *models.Question      `json:"question,omitempty"`
	Cascade  *models.CascadeResult `json:"cascade"`
}

// ItemService administers challenges, mastery tests, their questions and exclusions.
type ItemService struct {
	repo      itemStore
	index     *SubmitterIndex
	cascade   itemCascader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewItemService constructs the service.
func NewItemService(repo itemStore, index *SubmitterIndex, cascade itemCascader, validate *validator.Validate, logger *zap.Logger) *ItemService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ItemService{repo: repo, index: index, cascade: cascade, validator: validate, logger: logger, now: time.Now}
}

// Create stores a new item with its questions.
func (s *ItemService) Create(ctx context.Context, req dto.CreateItemRequest) (*ItemChange, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid item payload")
	}
	now := s.now().UTC()
	item := &models.AssessableItem{
		ID:        uuid.NewString(),
		Kind:      models.ItemKind(req.Kind),
		CreatorID: req.CreatorID,
		Title:     req.Title,
		YearLevel: req.YearLevel,
		Active:    true,
		NotBefore: req.NotBefore,
		ExpiresAt: req.ExpiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Tag != "" {
		tag := req.Tag
		item.Tag = &tag
	}
	if req.Active != nil {
		item.Active = *req.Active
	}
	if err := checkItemShape(item); err != nil {
		return nil, err
	}
	for i, qr := range req.Questions {
		q := newQuestion(item.ID, qr, now)
		if q.Position == 0 {
			q.Position = i + 1
		}
		item.Questions = append(item.Questions, q)
		item.TotalPoints += q.Points
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Storage(err, "failed to create item")
	}
	s.logger.Info("item created", zap.String("item_id", item.ID), zap.String("kind", string(item.Kind)), zap.Int("questions", len(item.Questions)))

	cascade, err := s.cascadeScope(ctx, item)
	if err != nil {
		return nil, err
	}
	return &ItemChange{Item: item, Cascade: cascade}, nil
}

// Get returns an item with its questions. Answer keys are stripped unless withKeys is set.
func (s *ItemService) Get(ctx context.Context, id string, withKeys bool) (*models.AssessableItem, error) {
	item, err := s.repo.GetWithQuestions(ctx, id)
	if err != nil {
		return nil, itemLookupError(err)
	}
	if !withKeys {
		redacted := item.Redacted()
		return &redacted, nil
	}
	return item, nil
}

// List returns items matching the query.
func (s *ItemService) List(ctx context.Context, query dto.ItemListQuery) ([]models.AssessableItem, *models.Pagination, error) {
	page, size := models.NormalizePage(query.Page, query.PageSize)
	filter := models.ItemFilter{Kind: models.ItemKind(query.Kind), Active: query.Active, Page: page, PageSize: size}
	if query.Tag != "" {
		tag, ok := scoring.ParseTag(query.Tag)
		if !ok {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown tag")
		}
		filter.Tag = string(tag)
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Storage(err, "failed to list items")
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Update patches an item and recomputes everyone in its old or new scope.
func (s *ItemService) Update(ctx context.Context, id string, req dto.UpdateItemRequest) (*ItemChange, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid item payload")
	}
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, itemLookupError(err)
	}
	before, err := s.cascade.ScopeStudents(ctx, item)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Tag != nil {
		tag := *req.Tag
		item.Tag = &tag
	}
	if req.YearLevel != nil {
		item.YearLevel = *req.YearLevel
	}
	if req.Active != nil {
		item.Active = *req.Active
	}
	if req.NotBefore != nil {
		item.NotBefore = req.NotBefore
	}
	if req.ExpiresAt != nil {
		item.ExpiresAt = req.ExpiresAt
	}
	if err := checkItemShape(item); err != nil {
		return nil, err
	}
	item.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, itemLookupError(err)
	}
	after, err := s.cascade.ScopeStudents(ctx, item)
	if err != nil {
		return nil, s.cascade.DeferSweep(models.TriggerItemChange, err)
	}
	return &ItemChange{Item: item, Cascade: s.cascade.Dispatch(ctx, models.TriggerItemChange, append(before, after...))}, nil
}

// Delete removes an item and its submissions. Affected students are resolved first.
func (s *ItemService) Delete(ctx context.Context, id string) (*ItemChange, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, itemLookupError(err)
	}
	students, err := s.cascade.ScopeStudents(ctx, item)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, itemLookupError(err)
	}
	s.index.Forget(id)
	s.logger.Info("item deleted", zap.String("item_id", id), zap.Int("affected_students", len(students)))
	return &ItemChange{Cascade: s.cascade.Dispatch(ctx, models.TriggerItemChange, students)}, nil
}

// AddQuestion appends a question and recomputes the item's scope.
func (s *ItemService) AddQuestion(ctx context.Context, itemID string, req dto.QuestionRequest) (*QuestionChange, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid question payload")
	}
	item, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return nil, itemLookupError(err)
	}
	q := newQuestion(itemID, req, s.now().UTC())
	if err := s.repo.AddQuestion(ctx, &q); err != nil {
		return nil, appErrors.Storage(err, "failed to add question")
	}
	cascade, err := s.cascadeScope(ctx, item)
	if err != nil {
		return nil, err
	}
	return &QuestionChange{Question: &q, Cascade: cascade}, nil
}

// UpdateQuestion replaces a question and recomputes the item's scope.
func (s *ItemService) UpdateQuestion(ctx context.Context, itemID, questionID string, req dto.QuestionRequest) (*QuestionChange, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid question payload")
	}
	item, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return nil, itemLookupError(err)
	}
	q, err := s.repo.GetQuestion(ctx, itemID, questionID)
	if err != nil {
		return nil, questionLookupError(err)
	}
	q.Position = req.Position
	q.Prompt = req.Prompt
	q.Points = req.Points
	q.AnswerKey = req.AnswerKey
	q.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateQuestion(ctx, q); err != nil {
		return nil, questionLookupError(err)
	}
	cascade, err := s.cascadeScope(ctx, item)
	if err != nil {
		return nil, err
	}
	return &QuestionChange{Question: q, Cascade: cascade}, nil
}

// DeleteQuestion removes a question and recomputes the item's scope.
func (s *ItemService) DeleteQuestion(ctx context.Context, itemID, questionID string) (*QuestionChange, error) {
	item, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return nil, itemLookupError(err)
	}
	if err := s.repo.DeleteQuestion(ctx, itemID, questionID); err != nil {
		return nil, questionLookupError(err)
	}
	cascade, err := s.cascadeScope(ctx, item)
	if err != nil {
		return nil, err
	}
	return &QuestionChange{Cascade: cascade}, nil
}

// AddExclusion hides a challenge from one student's denominator.
func (s *ItemService) AddExclusion(ctx context.Context, itemID string, req dto.ExclusionRequest) (*models.CascadeResult, error) {
	return s.toggleExclusion(ctx, itemID, req, true)
}

// RemoveExclusion restores a challenge to one student's denominator.
func (s *ItemService) RemoveExclusion(ctx context.Context, itemID string, req dto.ExclusionRequest) (*models.CascadeResult, error) {
	return s.toggleExclusion(ctx, itemID, req, false)
}

func (s *ItemService) toggleExclusion(ctx context.Context, itemID string, req dto.ExclusionRequest, add bool) (*models.CascadeResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exclusion payload")
	}
	item, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return nil, itemLookupError(err)
	}
	if item.Kind != models.ItemKindChallenge {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only challenges can be excluded")
	}

	var changed bool
	if add {
		changed, err = s.repo.AddExclusion(ctx, req.StudentID, itemID)
	} else {
		changed, err = s.repo.RemoveExclusion(ctx, req.StudentID, itemID)
	}
	if err != nil {
		return nil, appErrors.Storage(err, "failed to update exclusion")
	}
	if !changed {
		return &models.CascadeResult{Trigger: models.TriggerExclusion, StudentIDs: []string{}}, nil
	}
	return s.cascade.ForStudent(ctx, models.TriggerExclusion, req.StudentID), nil
}

// cascadeScope runs after the mutation is stored, so an unresolved scope defers a full sweep.
func (s *ItemService) cascadeScope(ctx context.Context, item *models.AssessableItem) (*models.CascadeResult, error) {
	students, err := s.cascade.ScopeStudents(ctx, item)
	if err != nil {
		return nil, s.cascade.DeferSweep(models.TriggerItemChange, err)
	}
	return s.cascade.Dispatch(ctx, models.TriggerItemChange, students), nil
}

func newQuestion(itemID string, req dto.QuestionRequest, now time.Time) models.Question {
	return models.Question{
		ID:        uuid.NewString(),
		ItemID:    itemID,
		Position:  req.Position,
		Prompt:    req.Prompt,
		Points:    req.Points,
		AnswerKey: req.AnswerKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// checkItemShape enforces the kind/tag pairing and a sane visibility window.
func checkItemShape(item *models.AssessableItem) error {
	switch item.Kind {
	case models.ItemKindMastery:
		tag, ok := scoring.ParseTag(item.TagValue())
		if !ok {
			return appErrors.Clone(appErrors.ErrValidation, "mastery tests require a language tag")
		}
		normalized := string(tag)
		item.Tag = &normalized
	case models.ItemKindChallenge:
		if item.TagValue() != "" {
			return appErrors.Clone(appErrors.ErrValidation, "challenges do not take a tag")
		}
		item.Tag = nil
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown item kind")
	}
	if item.NotBefore != nil && item.ExpiresAt != nil && !item.NotBefore.Before(*item.ExpiresAt) {
		return appErrors.Clone(appErrors.ErrValidation, "not_before must precede expires_at")
	}
	return nil
}

func itemLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrItemNotFound, "item not found")
	}
	return appErrors.Storage(err, "failed to load item")
}

func questionLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "question not found")
	}
	return appErrors.Storage(err, "failed to load question")
}
