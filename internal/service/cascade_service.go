package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-achievement-api/internal/models"
	"github.com/noah-isme/sma-achievement-api/internal/scoring"
	appErrors "github.com/noah-isme/sma-achievement-api/pkg/errors"
	"github.com/noah-isme/sma-achievement-api/pkg/jobs"
	"github.com/noah-isme/sma-achievement-api/pkg/observability"
)

const (
	// RecomputeJobType tags cascade jobs on the queue. The job id is the student id.
	RecomputeJobType = "recompute_profile"
	// RecomputeSweepJobType tags a deferred sweep over every student. The payload is the trigger.
	RecomputeSweepJobType = "recompute_sweep"
)

type cascadeItemRepository interface {
	Get(ctx context.Context, id string) (*models.AssessableItem, error)
	ScopeItemIDs(ctx context.Context, scope models.ItemScope) ([]string, error)
}

type studentDirectory interface {
	AllStudentIDs(ctx context.Context) ([]string, error)
}

type profileRecomputer interface {
	Recompute(ctx context.Context, studentID string) (*models.ScoreProfile, error)
}

type jobDispatcher interface {
	TryEnqueue(job jobs.Job) error
	Enqueue(job jobs.Job) error
}

// CascadeService resolves which students a mutation affects and schedules their recomputation.
type CascadeService struct {
	items    cascadeItemRepository
	students studentDirectory
	index    *SubmitterIndex
	scores   profileRecomputer
	tracker  *ProfileTracker
	queue    jobDispatcher
	metrics  *MetricsService
	logger   *zap.Logger

	drains sync.WaitGroup
}

// NewCascadeService wires the cascade. When queue is nil every recompute runs inline.
func NewCascadeService(items cascadeItemRepository, students studentDirectory, index *SubmitterIndex, scores profileRecomputer, tracker *ProfileTracker, queue jobDispatcher, metrics *MetricsService, logger *zap.Logger) *CascadeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracker == nil {
		tracker = NewProfileTracker()
	}
	return &CascadeService{
		items:    items,
		students: students,
		index:    index,
		scores:   scores,
		tracker:  tracker,
		queue:    queue,
		metrics:  metrics,
		logger:   logger,
	}
}

// ForStudent schedules a single student's recomputation.
func (s *CascadeService) ForStudent(ctx context.Context, trigger models.CascadeTrigger, studentID string) *models.CascadeResult {
	return s.Dispatch(ctx, trigger, []string{studentID})
}

// RecomputeForItemChange recomputes every student whose denominator includes the item.
func (s *CascadeService) RecomputeForItemChange(ctx context.Context, itemID string) (*models.CascadeResult, error) {
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrItemNotFound, "item not found")
		}
		return nil, appErrors.Storage(err, "failed to load item")
	}
	students, err := s.ScopeStudents(ctx, item)
	if err != nil {
		return nil, err
	}
	return s.Dispatch(ctx, models.TriggerItemChange, students), nil
}

// ScopeStudents lists the students sharing the item's denominator: challenge submitters whose
// first year is at or below the item's year, or mastery submitters in the item's tag.
func (s *CascadeService) ScopeStudents(ctx context.Context, item *models.AssessableItem) ([]string, error) {
	scope := models.ItemScope{Kind: item.Kind, Tag: item.TagValue(), YearLevel: item.YearLevel}
	itemIDs, err := s.items.ScopeItemIDs(ctx, scope)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to resolve item scope")
	}
	students, err := s.index.Students(ctx, itemIDs)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to resolve submitters")
	}
	return students, nil
}

// RecomputeForWeightChange sweeps every student with a profile or any scoring fact. The new
// weight is already live, so a failed listing defers the sweep instead of dropping it.
func (s *CascadeService) RecomputeForWeightChange(ctx context.Context, category scoring.Category) (*models.CascadeResult, error) {
	students, err := s.students.AllStudentIDs(ctx)
	if err != nil {
		return nil, s.DeferSweep(models.TriggerWeightChange, err)
	}
	s.logger.Info("weight change cascade", zap.String("category", string(category)), zap.Int("students", len(students)))
	return s.Dispatch(ctx, models.TriggerWeightChange, students), nil
}

// FullRecompute schedules every known student.
func (s *CascadeService) FullRecompute(ctx context.Context) (*models.CascadeResult, error) {
	students, err := s.students.AllStudentIDs(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list students")
	}
	result := s.Dispatch(ctx, models.TriggerFullRecompute, students)
	s.tracker.ClearSweep()
	return result, nil
}

// DeferSweep handles a mutation that is already stored but whose affected students could not
// be resolved. Every profile reads as stale and a full sweep is queued for retry. The returned
// error is always STORAGE_UNAVAILABLE.
func (s *CascadeService) DeferSweep(trigger models.CascadeTrigger, cause error) error {
	s.tracker.MarkAllStale()
	s.logger.Error("cascade scope unresolved, deferring full sweep", zap.String("trigger", string(trigger)), zap.Error(cause))

	scheduled := false
	if s.queue != nil {
		job := jobs.Job{ID: "sweep:" + string(trigger), Type: RecomputeSweepJobType, Payload: string(trigger)}
		err := s.queue.TryEnqueue(job)
		switch {
		case err == nil:
			scheduled = true
		case errors.Is(err, jobs.ErrQueueFull):
			scheduled = true
			s.drains.Add(1)
			go func() {
				defer s.drains.Done()
				if err := s.queue.Enqueue(job); err != nil {
					s.logger.Error("deferred sweep enqueue failed", zap.String("trigger", string(trigger)), zap.Error(err))
				}
			}()
		default:
			s.logger.Error("deferred sweep enqueue failed", zap.String("trigger", string(trigger)), zap.Error(err))
		}
	}
	message := "change saved but affected profiles could not be resolved; run a full recompute"
	if scheduled {
		message = "change saved but affected profiles could not be resolved; a full recompute is scheduled"
	}
	return appErrors.Wrap(cause, appErrors.ErrTransientStorage.Code, appErrors.ErrTransientStorage.Status, message)
}

// Sweep runs a deferred sweep. An error leaves every profile stale and lets the queue retry.
func (s *CascadeService) Sweep(ctx context.Context, trigger models.CascadeTrigger) error {
	students, err := s.students.AllStudentIDs(ctx)
	if err != nil {
		return appErrors.Storage(err, "failed to list students")
	}
	s.Dispatch(ctx, trigger, students)
	s.tracker.ClearSweep()
	return nil
}

// Dispatch marks students stale and enqueues one job each without waiting on the buffer.
// Jobs that do not fit are handed to a background drain, and a job the queue rejects is
// recomputed inline so the change is never dropped.
func (s *CascadeService) Dispatch(ctx context.Context, trigger models.CascadeTrigger, studentIDs []string) *models.CascadeResult {
	students := uniqueSorted(studentIDs)
	s.metrics.ObserveCascade(string(trigger), len(students))

	var overflow []string
	for _, id := range students {
		s.tracker.MarkStale(id)
		if s.queue != nil {
			err := s.queue.TryEnqueue(recomputeJob(trigger, id))
			if err == nil {
				continue
			}
			if errors.Is(err, jobs.ErrQueueFull) {
				overflow = append(overflow, id)
				continue
			}
			s.logger.Warn("cascade enqueue failed, recomputing inline", zap.String("student_id", id), zap.Error(err))
		}
		s.recomputeInline(ctx, trigger, id)
	}

	if len(overflow) > 0 {
		s.logger.Info("cascade buffer full, draining in background", zap.String("trigger", string(trigger)), zap.Int("pending", len(overflow)))
		s.drains.Add(1)
		go s.drain(context.WithoutCancel(ctx), trigger, overflow)
	}

	return &models.CascadeResult{Trigger: trigger, Affected: len(students), StudentIDs: students}
}

// Wait blocks until background drains started by Dispatch have finished.
func (s *CascadeService) Wait() {
	s.drains.Wait()
}

func (s *CascadeService) drain(ctx context.Context, trigger models.CascadeTrigger, studentIDs []string) {
	defer s.drains.Done()
	for i, id := range studentIDs {
		err := s.queue.Enqueue(recomputeJob(trigger, id))
		if err == nil {
			continue
		}
		if errors.Is(err, jobs.ErrQueueStopped) {
			// profiles stay stale until the next cascade or read refresh
			s.logger.Warn("queue stopped during cascade drain", zap.String("trigger", string(trigger)), zap.Int("dropped", len(studentIDs)-i))
			return
		}
		s.recomputeInline(ctx, trigger, id)
	}
}

func (s *CascadeService) recomputeInline(ctx context.Context, trigger models.CascadeTrigger, studentID string) {
	if _, err := s.scores.Recompute(ctx, studentID); err != nil {
		s.logger.Error("inline recompute failed", zap.String("student_id", studentID), zap.String("trigger", string(trigger)), zap.Error(err))
	}
}

func recomputeJob(trigger models.CascadeTrigger, studentID string) jobs.Job {
	return jobs.Job{ID: studentID, Type: RecomputeJobType, Payload: string(trigger)}
}

type sweepRunner interface {
	Sweep(ctx context.Context, trigger models.CascadeTrigger) error
}

// RecomputeWorker drains cascade jobs from the queue.
type RecomputeWorker struct {
	scores   profileRecomputer
	sweeper  sweepRunner
	reporter observability.Reporter
	logger   *zap.Logger
}

// NewRecomputeWorker constructs a worker. reporter may be nil.
func NewRecomputeWorker(scores profileRecomputer, reporter observability.Reporter, logger *zap.Logger) *RecomputeWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecomputeWorker{scores: scores, reporter: reporter, logger: logger}
}

// BindSweeper attaches the cascade that runs deferred sweeps. It must be called before the
// queue starts.
func (w *RecomputeWorker) BindSweeper(sweeper sweepRunner) {
	w.sweeper = sweeper
}

// Handle processes a queue job.
func (w *RecomputeWorker) Handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case RecomputeJobType:
		_, err := w.scores.Recompute(ctx, job.ID)
		return err
	case RecomputeSweepJobType:
		if w.sweeper == nil {
			w.logger.Warn("sweep job without sweeper", zap.String("job_id", job.ID))
			return nil
		}
		trigger, _ := job.Payload.(string)
		return w.sweeper.Sweep(ctx, models.CascadeTrigger(trigger))
	default:
		w.logger.Warn("unexpected job type", zap.String("type", job.Type), zap.String("job_id", job.ID))
		return nil
	}
}

// Exhausted reports a student, or a deferred sweep, whose profiles stay stale after every retry.
func (w *RecomputeWorker) Exhausted(job jobs.Job, err error) {
	w.logger.Error("recompute retries exhausted", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempts", job.Attempt), zap.Error(err))
	if w.reporter == nil {
		return
	}
	trigger, _ := job.Payload.(string)
	tags := map[string]string{"trigger": trigger, "fault": "cascade_exhausted"}
	if job.Type == RecomputeSweepJobType {
		tags["fault"] = "sweep_exhausted"
	} else {
		tags["student_id"] = job.ID
	}
	w.reporter(err, tags)
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
