package status

import (
	"sync"
	"time"
)

// Tracker holds per-course sync status in memory. State is process-local:
// a restart silently resets every course to idle, and pollers must tolerate
// that. All methods are safe for concurrent use.
//
// A fresh MarkStarted for a course overwrites whatever record existed, so
// the latest attempt always wins. There is no sequence token guarding
// terminal writes from an older, slower cycle; see DESIGN.md.
type Tracker struct {
	mu      sync.Mutex
	records map[string]Record

	// now is injected for tests
	now func() time.Time
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithTrackerClock overrides the time source. Intended for tests.
func WithTrackerClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker creates an empty status tracker.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		records: make(map[string]Record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// MarkStarted records a new in-progress attempt for the course, replacing
// any previous record.
func (t *Tracker) MarkStarted(courseRef, sessionTag string) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[courseRef] = Record{
		CourseRef:  courseRef,
		State:      StateInProgress,
		SessionTag: sessionTag,
		StartedAt:  &now,
	}
}

// MarkCompleted transitions the course to completed.
func (t *Tracker) MarkCompleted(courseRef string, recordCount int) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()
	rec := t.records[courseRef]
	rec.CourseRef = courseRef
	rec.State = StateCompleted
	rec.FinishedAt = &now
	rec.RecordCount = recordCount
	rec.ErrorDetail = ""
	t.records[courseRef] = rec
}

// MarkError transitions the course to error.
func (t *Tracker) MarkError(courseRef, detail string) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()
	rec := t.records[courseRef]
	rec.CourseRef = courseRef
	rec.State = StateError
	rec.FinishedAt = &now
	rec.ErrorDetail = detail
	t.records[courseRef] = rec
}

// Get returns the current record for the course. Unknown courses report
// idle; polling never errors.
func (t *Tracker) Get(courseRef string) Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec, ok := t.records[courseRef]; ok {
		return rec
	}
	return Record{CourseRef: courseRef, State: StateIdle}
}
