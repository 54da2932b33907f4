package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-achievement-api/internal/models"
	"github.com/noah-isme/sma-achievement-api/internal/scoring"
	"github.com/noah-isme/sma-achievement-api/pkg/config"
	"github.com/noah-isme/sma-achievement-api/pkg/jobs"
)

// memoryDB backs the in-memory repositories used by service tests.
type memoryDB struct {
	mu          sync.Mutex
	items       map[string]*models.AssessableItem
	exclusions  map[string]map[string]struct{}
	submissions map[string]*models.Submission
	profiles    map[string]*models.ScoreProfile
	academics   map[string]*models.AcademicRecord
	activities  map[string]*models.Activity
	users       map[string]*models.User
	weights     map[string]models.CategoryWeight
	saves       int
	fail        map[string]error
	hooks       map[string]func()
	forceDup    bool
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		items:       make(map[string]*models.AssessableItem),
		exclusions:  make(map[string]map[string]struct{}),
		submissions: make(map[string]*models.Submission),
		profiles:    make(map[string]*models.ScoreProfile),
		academics:   make(map[string]*models.AcademicRecord),
		activities:  make(map[string]*models.Activity),
		users:       make(map[string]*models.User),
		weights:     make(map[string]models.CategoryWeight),
		fail:        make(map[string]error),
		hooks:       make(map[string]func()),
	}
}

// failure runs the hook registered for op, then returns its injected error.
func (db *memoryDB) failure(op string) error {
	db.mu.Lock()
	hook := db.hooks[op]
	err := db.fail[op]
	db.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (db *memoryDB) setFailure(op string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err == nil {
		delete(db.fail, op)
		return
	}
	db.fail[op] = err
}

func (db *memoryDB) addItem(id string, kind models.ItemKind, tag string, year int, points ...int) *models.AssessableItem {
	db.mu.Lock()
	defer db.mu.Unlock()
	item := &models.AssessableItem{ID: id, Kind: kind, Title: id, YearLevel: year, Active: true}
	if tag != "" {
		t := tag
		item.Tag = &t
	}
	for i, p := range points {
		item.Questions = append(item.Questions, models.Question{
			ID: id + "-q" + string(rune('1'+i)), ItemID: id, Position: i + 1, Points: p, AnswerKey: "yes",
		})
	}
	db.items[id] = item
	return item
}

func (db *memoryDB) addStudent(id string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users[id] = &models.User{ID: id, Role: models.RoleStudent, Active: true}
}

func (db *memoryDB) totalPoints(item *models.AssessableItem) int {
	total := 0
	for _, q := range item.Questions {
		total += q.Points
	}
	return total
}

func (db *memoryDB) copyItem(item *models.AssessableItem) *models.AssessableItem {
	out := *item
	out.Questions = append([]models.Question(nil), item.Questions...)
	out.TotalPoints = db.totalPoints(item)
	return &out
}

type memItems struct{ db *memoryDB }

func (r memItems) Create(ctx context.Context, item *models.AssessableItem) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.items[item.ID] = r.db.copyItem(item)
	return nil
}

func (r memItems) Get(ctx context.Context, id string) (*models.AssessableItem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	item, ok := r.db.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := r.db.copyItem(item)
	out.Questions = nil
	return out, nil
}

func (r memItems) GetWithQuestions(ctx context.Context, id string) (*models.AssessableItem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	item, ok := r.db.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return r.db.copyItem(item), nil
}

func (r memItems) List(ctx context.Context, filter models.ItemFilter) ([]models.AssessableItem, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.AssessableItem, 0)
	for _, item := range r.db.items {
		if filter.Kind != "" && item.Kind != filter.Kind {
			continue
		}
		if filter.Tag != "" && item.TagValue() != filter.Tag {
			continue
		}
		out = append(out, *r.db.copyItem(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r memItems) Update(ctx context.Context, item *models.AssessableItem) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.items[item.ID]
	if !ok {
		return sql.ErrNoRows
	}
	questions := existing.Questions
	updated := *item
	updated.Questions = questions
	r.db.items[item.ID] = &updated
	return nil
}

func (r memItems) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.db.items, id)
	for sid, sub := range r.db.submissions {
		if sub.ItemID == id {
			delete(r.db.submissions, sid)
		}
	}
	return nil
}

func (r memItems) GetQuestion(ctx context.Context, itemID, questionID string) (*models.Question, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	item, ok := r.db.items[itemID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	for _, q := range item.Questions {
		if q.ID == questionID {
			out := q
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memItems) AddQuestion(ctx context.Context, q *models.Question) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	item, ok := r.db.items[q.ItemID]
	if !ok {
		return sql.ErrNoRows
	}
	item.Questions = append(item.Questions, *q)
	return nil
}

func (r memItems) UpdateQuestion(ctx context.Context, q *models.Question) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	item, ok := r.db.items[q.ItemID]
	if !ok {
		return sql.ErrNoRows
	}
	for i := range item.Questions {
		if item.Questions[i].ID == q.ID {
			item.Questions[i] = *q
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r memItems) DeleteQuestion(ctx context.Context, itemID, questionID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	item, ok := r.db.items[itemID]
	if !ok {
		return sql.ErrNoRows
	}
	for i := range item.Questions {
		if item.Questions[i].ID == questionID {
			item.Questions = append(item.Questions[:i], item.Questions[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r memItems) AddExclusion(ctx context.Context, studentID, itemID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	set, ok := r.db.exclusions[studentID]
	if !ok {
		set = make(map[string]struct{})
		r.db.exclusions[studentID] = set
	}
	if _, exists := set[itemID]; exists {
		return false, nil
	}
	set[itemID] = struct{}{}
	return true, nil
}

func (r memItems) RemoveExclusion(ctx context.Context, studentID, itemID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, exists := r.db.exclusions[studentID][itemID]; !exists {
		return false, nil
	}
	delete(r.db.exclusions[studentID], itemID)
	return true, nil
}

func (r memItems) ExcludedItemIDs(ctx context.Context, studentID string) (map[string]struct{}, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make(map[string]struct{})
	for id := range r.db.exclusions[studentID] {
		out[id] = struct{}{}
	}
	return out, nil
}

func (r memItems) ActiveChallengeItems(ctx context.Context) ([]scoring.ChallengeItem, error) {
	if err := r.db.failure("ActiveChallengeItems"); err != nil {
		return nil, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]scoring.ChallengeItem, 0)
	for _, item := range r.db.items {
		if item.Kind == models.ItemKindChallenge && item.Active {
			out = append(out, scoring.ChallengeItem{ID: item.ID, YearLevel: item.YearLevel, TotalPoints: r.db.totalPoints(item)})
		}
	}
	return out, nil
}

func (r memItems) ActiveMasteryTotals(ctx context.Context) (map[scoring.Tag]int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make(map[scoring.Tag]int)
	for _, item := range r.db.items {
		if item.Kind == models.ItemKindMastery && item.Active {
			out[scoring.Tag(item.TagValue())] += r.db.totalPoints(item)
		}
	}
	return out, nil
}

func (r memItems) ScopeItemIDs(ctx context.Context, scope models.ItemScope) ([]string, error) {
	if err := r.db.failure("ScopeItemIDs"); err != nil {
		return nil, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]string, 0)
	for _, item := range r.db.items {
		if item.Kind != scope.Kind {
			continue
		}
		switch scope.Kind {
		case models.ItemKindChallenge:
			if item.YearLevel <= scope.YearLevel {
				out = append(out, item.ID)
			}
		case models.ItemKindMastery:
			if item.TagValue() == scope.Tag {
				out = append(out, item.ID)
			}
		}
	}
	return out, nil
}

type memSubmissions struct{ db *memoryDB }

func (r memSubmissions) Exists(ctx context.Context, studentID, itemID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, sub := range r.db.submissions {
		if sub.StudentID == studentID && sub.ItemID == itemID {
			return true, nil
		}
	}
	return false, nil
}

func (r memSubmissions) Insert(ctx context.Context, sub *models.Submission) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.forceDup {
		return false, nil
	}
	for _, existing := range r.db.submissions {
		if existing.StudentID == sub.StudentID && existing.ItemID == sub.ItemID {
			return false, nil
		}
	}
	stored := *sub
	r.db.submissions[sub.ID] = &stored
	return true, nil
}

func (r memSubmissions) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	sub, ok := r.db.submissions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *sub
	return &out, nil
}

func (r memSubmissions) ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Submission, 0)
	for _, sub := range r.db.submissions {
		if sub.StudentID == studentID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (r memSubmissions) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.submissions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.db.submissions, id)
	return nil
}

func (r memSubmissions) SubmittersByItems(ctx context.Context, itemIDs []string) (map[string][]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make(map[string][]string, len(itemIDs))
	wanted := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = struct{}{}
		out[id] = []string{}
	}
	for _, sub := range r.db.submissions {
		if _, ok := wanted[sub.ItemID]; ok {
			out[sub.ItemID] = append(out[sub.ItemID], sub.StudentID)
		}
	}
	return out, nil
}

func (r memSubmissions) ChallengeSubmissions(ctx context.Context, studentID string) ([]scoring.ChallengeSubmission, error) {
	if err := r.db.failure("ChallengeSubmissions"); err != nil {
		return nil, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]scoring.ChallengeSubmission, 0)
	for _, sub := range r.db.submissions {
		item, ok := r.db.items[sub.ItemID]
		if sub.StudentID == studentID && ok && item.Kind == models.ItemKindChallenge {
			out = append(out, scoring.ChallengeSubmission{ItemID: sub.ItemID, YearLevel: item.YearLevel, PointsEarned: sub.PointsEarned})
		}
	}
	return out, nil
}

func (r memSubmissions) MasterySubmissions(ctx context.Context, studentID string) ([]scoring.MasterySubmission, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]scoring.MasterySubmission, 0)
	for _, sub := range r.db.submissions {
		item, ok := r.db.items[sub.ItemID]
		if sub.StudentID == studentID && ok && item.Kind == models.ItemKindMastery {
			out = append(out, scoring.MasterySubmission{ItemID: sub.ItemID, Tag: scoring.Tag(item.TagValue()), PointsEarned: sub.PointsEarned, Active: item.Active})
		}
	}
	return out, nil
}

type memProfiles struct{ db *memoryDB }

func (r memProfiles) Get(ctx context.Context, studentID string) (*models.ScoreProfile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.profiles[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *p
	return &out, nil
}

func (r memProfiles) Save(ctx context.Context, p *models.ScoreProfile) error {
	if err := r.db.failure("SaveProfile"); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored := *p
	r.db.profiles[p.StudentID] = &stored
	r.db.saves++
	return nil
}

func (r memProfiles) Scoreboard(ctx context.Context, filter models.ScoreboardFilter) ([]models.ScoreboardEntry, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.ScoreboardEntry, 0)
	for _, p := range r.db.profiles {
		if filter.Tier == "" || p.Tier == filter.Tier {
			out = append(out, models.ScoreboardEntry{ScoreProfile: *p})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Composite.GreaterThan(out[j].Composite) })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, len(out), nil
}

func (r memProfiles) AllStudentIDs(ctx context.Context) ([]string, error) {
	if err := r.db.failure("AllStudentIDs"); err != nil {
		return nil, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	seen := make(map[string]struct{})
	for id := range r.db.profiles {
		seen[id] = struct{}{}
	}
	for _, sub := range r.db.submissions {
		seen[sub.StudentID] = struct{}{}
	}
	for id := range r.db.academics {
		seen[id] = struct{}{}
	}
	for _, a := range r.db.activities {
		seen[a.StudentID] = struct{}{}
	}
	for id, u := range r.db.users {
		if u.Role == models.RoleStudent {
			seen[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

type memAcademics struct{ db *memoryDB }

func (r memAcademics) Get(ctx context.Context, studentID string) (*models.AcademicRecord, error) {
	if err := r.db.failure("AcademicGet"); err != nil {
		return nil, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rec, ok := r.db.academics[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *rec
	return &out, nil
}

func (r memAcademics) Upsert(ctx context.Context, rec *models.AcademicRecord) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored := *rec
	r.db.academics[rec.StudentID] = &stored
	return nil
}

func (r memAcademics) BulkUpsert(ctx context.Context, records []models.AcademicRecord) error {
	for i := range records {
		if err := r.Upsert(ctx, &records[i]); err != nil {
			return err
		}
	}
	return nil
}

type memActivities struct{ db *memoryDB }

func (r memActivities) Create(ctx context.Context, a *models.Activity) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored := *a
	r.db.activities[a.ID] = &stored
	return nil
}

func (r memActivities) Get(ctx context.Context, id string) (*models.Activity, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.activities[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *a
	return &out, nil
}

func (r memActivities) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Activity, 0)
	for _, a := range r.db.activities {
		if filter.StudentID != "" && a.StudentID != filter.StudentID {
			continue
		}
		if filter.Category != "" && a.Category != filter.Category {
			continue
		}
		if filter.Verified != nil && a.Verified != *filter.Verified {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (r memActivities) SetVerified(ctx context.Context, id string, verified bool, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.activities[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Verified = verified
	a.UpdatedAt = at
	return nil
}

func (r memActivities) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.activities[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.db.activities, id)
	return nil
}

func (r memActivities) VerifiedPoints(ctx context.Context, studentID string, category models.ActivityCategory) ([]decimal.Decimal, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]decimal.Decimal, 0)
	for _, a := range r.db.activities {
		if a.StudentID == studentID && a.Category == category && a.Verified {
			out = append(out, a.Points)
		}
	}
	return out, nil
}

type memUsers struct{ db *memoryDB }

func (r memUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *u
	return &out, nil
}

type memWeights struct{ db *memoryDB }

func (r memWeights) List(ctx context.Context) ([]models.CategoryWeight, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.CategoryWeight, 0, len(r.db.weights))
	for _, w := range r.db.weights {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (r memWeights) Upsert(ctx context.Context, w *models.CategoryWeight) error {
	if err := r.db.failure("UpsertWeight"); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.weights[w.Category] = *w
	return nil
}

// recordingQueue captures cascade jobs instead of running them. With capacity set, TryEnqueue
// reports a full buffer once that many jobs are held, and Enqueue waits on gate when it is set.
type recordingQueue struct {
	mu       sync.Mutex
	jobs     []jobs.Job
	err      error
	capacity int
	gate     chan struct{}
}

func (q *recordingQueue) TryEnqueue(job jobs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	if q.capacity > 0 && len(q.jobs) >= q.capacity {
		return jobs.ErrQueueFull
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	q.mu.Lock()
	gate := q.gate
	q.mu.Unlock()
	if gate != nil {
		<-gate
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *recordingQueue) studentIDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.jobs))
	for _, j := range q.jobs {
		out = append(out, j.ID)
	}
	sort.Strings(out)
	return out
}

type reportedFault struct {
	err  error
	tags map[string]string
}

type harness struct {
	db          *memoryDB
	registry    *scoring.Registry
	tracker     *ProfileTracker
	index       *SubmitterIndex
	metrics     *MetricsService
	scores      *ScoreService
	cascade     *CascadeService
	submissions *SubmissionService
	items       *ItemService
	weights     *WeightService
	academics   *AcademicService
	activities  *ActivityService
	queue       *recordingQueue
	faults      []reportedFault
}

func testScoringConfig(t *testing.T) *scoring.Config {
	t.Helper()
	cfg, err := scoring.NewConfig(config.ScoringConfig{
		DefaultWeights: map[string]string{
			"ACADEMIC": "30", "CHALLENGES": "20", "MASTERY": "20", "SEMINARS": "15", "EXTRACURRICULAR": "15",
		},
		TierThresholds:   map[string]string{"PLATINUM": "28.5", "GOLD": "20", "SILVER": "10"},
		DefaultTier:      "NONE",
		AcademicMaxGrade: "100",
		ActivityRule:     "count",
	})
	require.NoError(t, err)
	return cfg
}

// newHarness wires every scoring service over memory repositories. With queued set, cascades
// are captured by a recording queue; otherwise they recompute inline.
func newHarness(t *testing.T, queued bool) *harness {
	t.Helper()
	h := &harness{db: newMemoryDB()}
	h.registry = scoring.NewRegistry(testScoringConfig(t))
	h.tracker = NewProfileTracker()
	h.metrics = NewMetricsService()

	items := memItems{db: h.db}
	subs := memSubmissions{db: h.db}
	profiles := memProfiles{db: h.db}
	h.index = NewSubmitterIndex(subs)

	facts := NewFactLoader(items, subs, memAcademics{db: h.db}, memActivities{db: h.db}, time.Second)
	h.scores = NewScoreService(ScoreServiceConfig{
		Profiles: profiles,
		Users:    memUsers{db: h.db},
		Facts:    facts,
		Registry: h.registry,
		Tracker:  h.tracker,
		Metrics:  h.metrics,
		Reporter: func(err error, tags map[string]string) {
			h.faults = append(h.faults, reportedFault{err: err, tags: tags})
		},
		Logger: zap.NewNop(),
	})

	var queue jobDispatcher
	if queued {
		h.queue = &recordingQueue{}
		queue = h.queue
	}
	h.cascade = NewCascadeService(items, profiles, h.index, h.scores, h.tracker, queue, h.metrics, zap.NewNop())
	h.submissions = NewSubmissionService(items, subs, h.index, h.scores, h.cascade, h.metrics, nil, zap.NewNop())
	h.items = NewItemService(items, h.index, h.cascade, nil, zap.NewNop())
	h.weights = NewWeightService(memWeights{db: h.db}, h.registry, h.cascade, nil, zap.NewNop())
	h.academics = NewAcademicService(memAcademics{db: h.db}, h.registry, h.cascade, nil, zap.NewNop())
	h.activities = NewActivityService(memActivities{db: h.db}, h.cascade, nil, zap.NewNop())
	return h
}

func (h *harness) profile(t *testing.T, studentID string) *models.ScoreProfile {
	t.Helper()
	p, err := memProfiles{db: h.db}.Get(context.Background(), studentID)
	require.NoError(t, err)
	return p
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
