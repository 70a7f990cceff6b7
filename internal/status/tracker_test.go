package status

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUnknownCourseIsIdle(t *testing.T) {
	t.Parallel()
	tracker := NewTracker()

	rec := tracker.Get("never-synced")
	assert.Equal(t, StateIdle, rec.State)
	assert.Equal(t, "never-synced", rec.CourseRef)
	assert.Nil(t, rec.StartedAt)
	assert.Nil(t, rec.FinishedAt)
}

func TestLifecycleCompleted(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	current := base
	tracker := NewTracker(WithTrackerClock(func() time.Time { return current }))

	tracker.MarkStarted("C1", "sync_1_abc")

	rec := tracker.Get("C1")
	assert.Equal(t, StateInProgress, rec.State)
	assert.Equal(t, "sync_1_abc", rec.SessionTag)
	require.NotNil(t, rec.StartedAt)
	assert.Equal(t, base, *rec.StartedAt)
	assert.Nil(t, rec.FinishedAt)

	current = base.Add(30 * time.Second)
	tracker.MarkCompleted("C1", 12)

	rec = tracker.Get("C1")
	assert.Equal(t, StateCompleted, rec.State)
	assert.Equal(t, 12, rec.RecordCount)
	require.NotNil(t, rec.FinishedAt)
	assert.Equal(t, base.Add(30*time.Second), *rec.FinishedAt)
	assert.Empty(t, rec.ErrorDetail)
	// StartedAt survives the terminal transition.
	require.NotNil(t, rec.StartedAt)
	assert.Equal(t, base, *rec.StartedAt)
}

func TestLifecycleError(t *testing.T) {
	t.Parallel()
	tracker := NewTracker()

	tracker.MarkStarted("C2", "sync_2_def")
	tracker.MarkError("C2", "remote fetch failed")

	rec := tracker.Get("C2")
	assert.Equal(t, StateError, rec.State)
	assert.Equal(t, "remote fetch failed", rec.ErrorDetail)
	require.NotNil(t, rec.FinishedAt)
}

func TestRestartClearsErrorDetail(t *testing.T) {
	t.Parallel()
	tracker := NewTracker()

	tracker.MarkStarted("C3", "sync_3_aaa")
	tracker.MarkError("C3", "boom")

	// A new attempt replaces the failed record entirely.
	tracker.MarkStarted("C3", "sync_3_bbb")

	rec := tracker.Get("C3")
	assert.Equal(t, StateInProgress, rec.State)
	assert.Equal(t, "sync_3_bbb", rec.SessionTag)
	assert.Empty(t, rec.ErrorDetail)
	assert.Nil(t, rec.FinishedAt)

	tracker.MarkCompleted("C3", 4)
	rec = tracker.Get("C3")
	assert.Equal(t, StateCompleted, rec.State)
	assert.Empty(t, rec.ErrorDetail)
}

func TestCoursesAreIndependent(t *testing.T) {
	t.Parallel()
	tracker := NewTracker()

	tracker.MarkStarted("A", "s1")
	tracker.MarkStarted("B", "s2")
	tracker.MarkCompleted("A", 1)

	assert.Equal(t, StateCompleted, tracker.Get("A").State)
	assert.Equal(t, StateInProgress, tracker.Get("B").State)
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()
	tracker := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ref := fmt.Sprintf("course-%d", n%4)
			tracker.MarkStarted(ref, "tag")
			tracker.Get(ref)
			tracker.MarkCompleted(ref, n)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		rec := tracker.Get(fmt.Sprintf("course-%d", i))
		assert.Equal(t, StateCompleted, rec.State)
	}
}
