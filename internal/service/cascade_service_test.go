package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-achievement-api/internal/dto"
	"github.com/noah-isme/sma-achievement-api/internal/models"
	"github.com/noah-isme/sma-achievement-api/internal/scoring"
	appErrors "github.com/noah-isme/sma-achievement-api/pkg/errors"
	"github.com/noah-isme/sma-achievement-api/pkg/jobs"
)

func submit(h *harness, id, studentID, itemID string, earned int) {
	h.db.submissions[id] = &models.Submission{ID: id, StudentID: studentID, ItemID: itemID, PointsEarned: earned}
}

func question(points int) dto.QuestionRequest {
	return dto.QuestionRequest{Prompt: "p", Points: points, AnswerKey: "k"}
}

func TestChallengeChangeReachesOnlyStudentsInScope(t *testing.T) {
	h := newHarness(t, true)
	h.db.addItem("A", models.ItemKindChallenge, "", 1, 10)
	h.db.addItem("B", models.ItemKindChallenge, "", 2, 10)
	h.db.addItem("C", models.ItemKindChallenge, "", 3, 10)
	submit(h, "x1", "s1", "A", 10)
	submit(h, "x2", "s2", "C", 10)

	change, err := h.items.AddQuestion(context.Background(), "B", question(5))
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, change.Cascade.StudentIDs)
	assert.Equal(t, models.TriggerItemChange, change.Cascade.Trigger)
	assert.Equal(t, []string{"s1"}, h.queue.studentIDs())
	assert.Equal(t, ProfileStale, h.tracker.State("s1"))
	assert.Equal(t, ProfileCurrent, h.tracker.State("s2"))
}

func TestMasteryChangeReachesOnlySameTag(t *testing.T) {
	h := newHarness(t, true)
	h.db.addItem("P1", models.ItemKindMastery, "PYTHON", 1, 10)
	h.db.addItem("J1", models.ItemKindMastery, "JAVA", 1, 10)
	submit(h, "x1", "s1", "P1", 10)
	submit(h, "x2", "s2", "J1", 10)

	change, err := h.items.Create(context.Background(), dto.CreateItemRequest{
		Kind: "MASTERY", Title: "loops", Tag: "PYTHON", YearLevel: 1,
		Questions: []dto.QuestionRequest{question(10)},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, change.Cascade.StudentIDs)
	assert.Equal(t, 10, change.Item.TotalPoints)
}

func TestRecomputeForItemChange(t *testing.T) {
	h := newHarness(t, false)
	h.db.addItem("A", models.ItemKindChallenge, "", 1, 10)
	submit(h, "x1", "s1", "A", 10)

	res, err := h.cascade.RecomputeForItemChange(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Affected)
	assert.True(t, dec("20").Equal(h.profile(t, "s1").Challenges))

	_, err = h.cascade.RecomputeForItemChange(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrItemNotFound))
}

func TestWeightChangeSweepsEveryStudent(t *testing.T) {
	h := newHarness(t, true)
	h.db.addItem("A", models.ItemKindChallenge, "", 1, 10)
	submit(h, "x1", "s1", "A", 10)
	submit(h, "x2", "s2", "A", 0)
	seedAcademic(h, "s3", "90")

	weight := decimal.NewFromInt(40)
	change, err := h.weights.SetWeight(context.Background(), "academic", dto.SetWeightRequest{Weight: &weight}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), change.Weight.Version)
	require.NotNil(t, change.Weight.UpdatedBy)
	assert.Equal(t, "admin-1", *change.Weight.UpdatedBy)
	assert.Equal(t, 3, change.Cascade.Affected)
	assert.Equal(t, []string{"s1", "s2", "s3"}, h.queue.studentIDs())

	cfg := h.registry.Current()
	assert.Equal(t, int64(2), cfg.Version)
	assert.True(t, weight.Equal(cfg.Weight(scoring.CategoryAcademic)))

	for _, j := range h.queue.jobs {
		assert.Equal(t, RecomputeJobType, j.Type)
		assert.Equal(t, string(models.TriggerWeightChange), j.Payload)
	}
}

func TestWeightChangeAppliesToNextRecompute(t *testing.T) {
	h := newHarness(t, false)
	seedAcademic(h, "s1", "50")
	before, err := h.scores.Recompute(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, dec("15").Equal(before.Academic))

	weight := decimal.NewFromInt(60)
	_, err = h.weights.SetWeight(context.Background(), "ACADEMIC", dto.SetWeightRequest{Weight: &weight}, "")
	require.NoError(t, err)

	after := h.profile(t, "s1")
	assert.True(t, dec("30").Equal(after.Academic), after.Academic.String())
	assert.Equal(t, int64(2), after.ConfigVersion)
}

func TestSetWeightRejectsOutOfRange(t *testing.T) {
	h := newHarness(t, true)
	for _, raw := range []string{"-1", "100.5"} {
		weight := dec(raw)
		_, err := h.weights.SetWeight(context.Background(), "MASTERY", dto.SetWeightRequest{Weight: &weight}, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, appErrors.ErrInvalidWeights), raw)
	}
	weight := dec("10")
	_, err := h.weights.SetWeight(context.Background(), "SPORTS", dto.SetWeightRequest{Weight: &weight}, "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	assert.Equal(t, int64(1), h.registry.Current().Version)
	assert.Empty(t, h.db.weights)
	assert.Empty(t, h.queue.studentIDs())
}

func TestSetWeightStorageFailureKeepsOldConfig(t *testing.T) {
	h := newHarness(t, true)
	h.db.fail["UpsertWeight"] = errors.New("disk full")
	weight := dec("10")

	_, err := h.weights.SetWeight(context.Background(), "MASTERY", dto.SetWeightRequest{Weight: &weight}, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Equal(t, int64(1), h.registry.Current().Version)
	assert.True(t, dec("20").Equal(h.registry.Current().Weight(scoring.CategoryMastery)))
}

func TestWeightLoadOverlaysPersistedWeights(t *testing.T) {
	h := newHarness(t, false)
	h.db.weights["SEMINARS"] = models.CategoryWeight{Category: "SEMINARS", Weight: dec("5"), Version: 7}
	h.db.weights["BOGUS"] = models.CategoryWeight{Category: "BOGUS", Weight: dec("5"), Version: 9}

	require.NoError(t, h.weights.Load(context.Background()))
	cfg := h.registry.Current()
	assert.Equal(t, int64(7), cfg.Version)
	assert.True(t, dec("5").Equal(cfg.Weight(scoring.CategorySeminars)))
	assert.True(t, dec("30").Equal(cfg.Weight(scoring.CategoryAcademic)))

	table, err := h.weights.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, table.Weights, len(scoring.Categories))
	assert.Equal(t, int64(7), table.Version)
}

func TestExclusionShrinksDenominator(t *testing.T) {
	h := newHarness(t, false)
	h.db.addItem("A", models.ItemKindChallenge, "", 1, 20)
	h.db.addItem("B", models.ItemKindChallenge, "", 1, 20)
	submit(h, "x1", "s1", "A", 10)

	before, err := h.scores.Recompute(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, dec("5").Equal(before.Challenges), before.Challenges.String())

	res, err := h.items.AddExclusion(context.Background(), "B", dto.ExclusionRequest{StudentID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, models.TriggerExclusion, res.Trigger)
	assert.True(t, dec("10").Equal(h.profile(t, "s1").Challenges))

	res, err = h.items.AddExclusion(context.Background(), "B", dto.ExclusionRequest{StudentID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Affected)

	_, err = h.items.RemoveExclusion(context.Background(), "B", dto.ExclusionRequest{StudentID: "s1"})
	require.NoError(t, err)
	assert.True(t, dec("5").Equal(h.profile(t, "s1").Challenges))
}

func TestExclusionRejectsMasteryItems(t *testing.T) {
	h := newHarness(t, false)
	h.db.addItem("P", models.ItemKindMastery, "PYTHON", 1, 10)

	_, err := h.items.AddExclusion(context.Background(), "P", dto.ExclusionRequest{StudentID: "s1"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestItemDeleteRecomputesSubmitters(t *testing.T) {
	h := newHarness(t, false)
	h.db.addItem("A", models.ItemKindChallenge, "", 1, 10)
	h.db.addItem("B", models.ItemKindChallenge, "", 1, 30)
	submit(h, "x1", "s1", "A", 10)
	submit(h, "x2", "s1", "B", 30)
	submit(h, "x3", "s2", "B", 0)

	before, err := h.scores.Recompute(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, dec("20").Equal(before.Challenges))

	change, err := h.items.Delete(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, change.Cascade.StudentIDs)
	assert.True(t, dec("20").Equal(h.profile(t, "s1").Challenges))
	assert.True(t, h.profile(t, "s2").Challenges.IsZero())

	_, err = h.items.Get(context.Background(), "A", false)
	assert.True(t, errors.Is(err, appErrors.ErrItemNotFound))
}

func TestDispatchFallsBackInlineWhenQueueRejects(t *testing.T) {
	h := newHarness(t, true)
	h.queue.err = errors.New("queue full")
	seedAcademic(h, "s1", "100")

	res := h.cascade.Dispatch(context.Background(), models.TriggerFullRecompute, []string{"s1", "s1", ""})
	assert.Equal(t, 1, res.Affected)
	assert.True(t, dec("30").Equal(h.profile(t, "s1").Academic))
	assert.Equal(t, ProfileCurrent, h.tracker.State("s1"))
}

func TestFullRecompute(t *testing.T) {
	h := newHarness(t, true)
	h.db.addStudent("s1")
	seedAcademic(h, "s2", "10")

	res, err := h.cascade.FullRecompute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.TriggerFullRecompute, res.Trigger)
	assert.Equal(t, []string{"s1", "s2"}, res.StudentIDs)
}

type countingRecomputer struct {
	calls []string
	err   error
}

func (r *countingRecomputer) Recompute(ctx context.Context, studentID string) (*models.ScoreProfile, error) {
	r.calls = append(r.calls, studentID)
	if r.err != nil {
		return nil, r.err
	}
	return &models.ScoreProfile{StudentID: studentID}, nil
}

func TestRecomputeWorker(t *testing.T) {
	scores := &countingRecomputer{}
	var reported []map[string]string
	worker := NewRecomputeWorker(scores, func(err error, tags map[string]string) {
		reported = append(reported, tags)
	}, nil)

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "s1", Type: RecomputeJobType, Payload: "submission"}))
	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "s2", Type: "other"}))
	assert.Equal(t, []string{"s1"}, scores.calls)

	scores.err = context.DeadlineExceeded
	err := worker.Handle(context.Background(), jobs.Job{ID: "s3", Type: RecomputeJobType})
	require.Error(t, err)

	worker.Exhausted(jobs.Job{ID: "s3", Type: RecomputeJobType, Payload: "weight_change", Attempt: 4}, err)
	require.Len(t, reported, 1)
	assert.Equal(t, "s3", reported[0]["student_id"])
	assert.Equal(t, "weight_change", reported[0]["trigger"])
	assert.Equal(t, "cascade_exhausted", reported[0]["fault"])
}

func TestWeightChangeListingFailureDefersSweep(t *testing.T) {
	h := newHarness(t, true)
	seedAcademic(h, "s1", "50")
	_, err := h.scores.Recompute(context.Background(), "s1")
	require.NoError(t, err)
	h.db.setFailure("AllStudentIDs", errors.New("connection reset by peer"))

	weight := dec("60")
	change, err := h.weights.SetWeight(context.Background(), "ACADEMIC", dto.SetWeightRequest{Weight: &weight}, "admin-1")
	require.Error(t, err)
	assert.Nil(t, change)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrTransientStorage.Code, appErr.Code)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Status)

	assert.Equal(t, int64(2), h.registry.Current().Version)
	assert.Equal(t, ProfileStale, h.tracker.State("s1"))
	assert.Equal(t, ProfileStale, h.tracker.State("unseen"))
	require.Len(t, h.queue.jobs, 1)
	assert.Equal(t, RecomputeSweepJobType, h.queue.jobs[0].Type)
	assert.Equal(t, string(models.TriggerWeightChange), h.queue.jobs[0].Payload)

	profile, err := h.scores.GetScoreProfile(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, dec("30").Equal(profile.Academic), profile.Academic.String())
	assert.Equal(t, int64(2), profile.ConfigVersion)

	// the queued sweep fails while the directory is down, then succeeds once it recovers
	worker := NewRecomputeWorker(h.scores, nil, nil)
	worker.BindSweeper(h.cascade)
	sweep := h.queue.jobs[0]
	require.Error(t, worker.Handle(context.Background(), sweep))
	assert.Equal(t, ProfileStale, h.tracker.State("unseen"))

	h.db.setFailure("AllStudentIDs", nil)
	require.NoError(t, worker.Handle(context.Background(), sweep))
	assert.Equal(t, ProfileCurrent, h.tracker.State("unseen"))
	assert.Contains(t, h.queue.studentIDs(), "s1")
}

func TestItemMutationScopeFailureDefersSweep(t *testing.T) {
	h := newHarness(t, true)
	h.db.addItem("A", models.ItemKindChallenge, "", 1, 10)
	submit(h, "x1", "s1", "A", 10)
	h.db.setFailure("ScopeItemIDs", errors.New("connection reset by peer"))

	_, err := h.items.AddQuestion(context.Background(), "A", question(5))
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, appErrors.FromError(err).Status)
	assert.Len(t, h.db.items["A"].Questions, 2)
	assert.Equal(t, ProfileStale, h.tracker.State("s1"))
	require.Len(t, h.queue.jobs, 1)
	assert.Equal(t, RecomputeSweepJobType, h.queue.jobs[0].Type)
	assert.Equal(t, string(models.TriggerItemChange), h.queue.jobs[0].Payload)

	h.db.setFailure("ScopeItemIDs", nil)
	res, err := h.cascade.FullRecompute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, res.StudentIDs)
	assert.Equal(t, ProfileCurrent, h.tracker.State("unseen"))
}

func TestItemScopeFailureBeforeMutationLeavesProfilesCurrent(t *testing.T) {
	h := newHarness(t, true)
	h.db.addItem("A", models.ItemKindChallenge, "", 1, 10)
	submit(h, "x1", "s1", "A", 10)
	h.db.setFailure("ScopeItemIDs", errors.New("connection reset by peer"))

	_, err := h.items.Delete(context.Background(), "A")
	require.Error(t, err)
	assert.Contains(t, h.db.items, "A")
	assert.Equal(t, ProfileCurrent, h.tracker.State("s1"))
	assert.Empty(t, h.queue.jobs)
}

func TestDispatchDrainsOverflowInBackground(t *testing.T) {
	h := newHarness(t, true)
	h.queue.capacity = 2
	gate := make(chan struct{})
	h.queue.gate = gate

	students := []string{"s1", "s2", "s3", "s4", "s5"}
	res := h.cascade.Dispatch(context.Background(), models.TriggerWeightChange, students)
	assert.Equal(t, 5, res.Affected)
	assert.Equal(t, 2, h.queue.count())
	for _, id := range students {
		assert.Equal(t, ProfileStale, h.tracker.State(id), id)
	}

	close(gate)
	h.cascade.Wait()
	assert.Equal(t, students, h.queue.studentIDs())
	assert.Zero(t, h.db.saves)
}

type stubSweeper struct {
	triggers []models.CascadeTrigger
	err      error
}

func (s *stubSweeper) Sweep(ctx context.Context, trigger models.CascadeTrigger) error {
	s.triggers = append(s.triggers, trigger)
	return s.err
}

func TestRecomputeWorkerRunsSweep(t *testing.T) {
	scores := &countingRecomputer{}
	sweeper := &stubSweeper{}
	var reported []map[string]string
	worker := NewRecomputeWorker(scores, func(err error, tags map[string]string) {
		reported = append(reported, tags)
	}, nil)

	job := jobs.Job{ID: "sweep:item_change", Type: RecomputeSweepJobType, Payload: "item_change"}
	require.NoError(t, worker.Handle(context.Background(), job))

	worker.BindSweeper(sweeper)
	require.NoError(t, worker.Handle(context.Background(), job))
	assert.Equal(t, []models.CascadeTrigger{models.TriggerItemChange}, sweeper.triggers)
	assert.Empty(t, scores.calls)

	worker.Exhausted(job, errors.New("still down"))
	require.Len(t, reported, 1)
	assert.Equal(t, "sweep_exhausted", reported[0]["fault"])
	assert.NotContains(t, reported[0], "student_id")
}
