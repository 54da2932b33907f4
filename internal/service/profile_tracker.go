package service

import (
	"context"
	"sync"

	"github.com/noah-isme/sma-achievement-api/internal/models"
)

// ProfileState is the in-process lifecycle of a student's score profile.
type ProfileState string

const (
	ProfileStale       ProfileState = "stale"
	ProfileRecomputing ProfileState = "recomputing"
	ProfileCurrent     ProfileState = "current"
)

// RecomputeFunc computes and persists one student's profile.
type RecomputeFunc func(context.Context) (*models.ScoreProfile, error)

// trackerPass holds the outcome of one pass. Fields are written before done is closed.
type trackerPass struct {
	done    chan struct{}
	profile *models.ScoreProfile
	err     error
}

func newTrackerPass() *trackerPass {
	return &trackerPass{done: make(chan struct{})}
}

type trackerEntry struct {
	state   ProfileState
	running bool
	next    *trackerPass
}

// ProfileTracker serializes recomputation per student. While a pass runs, further requests
// for the same student share a single follow-up pass instead of queueing one each.
type ProfileTracker struct {
	mu           sync.Mutex
	entries      map[string]*trackerEntry
	sweepPending bool
}

// NewProfileTracker constructs an empty tracker.
func NewProfileTracker() *ProfileTracker {
	return &ProfileTracker{entries: make(map[string]*trackerEntry)}
}

// State reports the tracked state. Untracked students are current unless a sweep is pending.
func (t *ProfileTracker) State(studentID string) ProfileState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[studentID]; ok {
		return e.state
	}
	if t.sweepPending {
		return ProfileStale
	}
	return ProfileCurrent
}

// MarkStale flags a student whose facts changed before a recompute was scheduled.
func (t *ProfileTracker) MarkStale(studentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entry(studentID)
	if !e.running {
		e.state = ProfileStale
	}
}

// MarkAllStale flags every student until ClearSweep is called. Used when the affected set
// could not be resolved.
func (t *ProfileTracker) MarkAllStale() {
	t.mu.Lock()
	t.sweepPending = true
	t.mu.Unlock()
}

// ClearSweep drops the flag set by MarkAllStale.
func (t *ProfileTracker) ClearSweep() {
	t.mu.Lock()
	t.sweepPending = false
	t.mu.Unlock()
}

// Run executes fn for the student unless a pass is already running, in which case the caller
// joins the next pass. It returns the result of the pass the caller was attached to and
// whether that pass was started by another caller.
func (t *ProfileTracker) Run(ctx context.Context, studentID string, fn RecomputeFunc) (*models.ScoreProfile, bool, error) {
	t.mu.Lock()
	e := t.entry(studentID)
	if e.running {
		if e.next == nil {
			e.next = newTrackerPass()
		}
		pass := e.next
		t.mu.Unlock()
		select {
		case <-pass.done:
			return pass.profile, true, pass.err
		case <-ctx.Done():
			return nil, true, ctx.Err()
		}
	}
	e.running = true
	e.state = ProfileRecomputing
	t.mu.Unlock()

	own := newTrackerPass()
	t.execute(ctx, studentID, e, own, fn)
	return own.profile, false, own.err
}

func (t *ProfileTracker) execute(ctx context.Context, studentID string, e *trackerEntry, pass *trackerPass, fn RecomputeFunc) {
	profile, err := fn(ctx)

	t.mu.Lock()
	pass.profile, pass.err = profile, err
	close(pass.done)
	next := e.next
	e.next = nil
	switch {
	case next != nil:
		e.state = ProfileRecomputing
	case err != nil:
		e.state = ProfileStale
		e.running = false
	default:
		e.running = false
		delete(t.entries, studentID)
	}
	t.mu.Unlock()

	if next != nil {
		// the follow-up outlives the request that started this pass
		go t.execute(context.WithoutCancel(ctx), studentID, e, next, fn)
	}
}

func (t *ProfileTracker) entry(studentID string) *trackerEntry {
	e, ok := t.entries[studentID]
	if !ok {
		e = &trackerEntry{state: ProfileStale}
		t.entries[studentID] = e
	}
	return e
}
