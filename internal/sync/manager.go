// Package sync orchestrates declaration synchronization: it joins prepared
// sessions with posted-back browser cookies, drives the remote scraping
// call, and feeds results through reconciliation while keeping the status
// tracker current.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/andestraining/sence-sync-server/internal/courses"
	"github.com/andestraining/sence-sync-server/internal/reconcile"
	"github.com/andestraining/sence-sync-server/internal/scraper"
	"github.com/andestraining/sence-sync-server/internal/session"
	"github.com/andestraining/sence-sync-server/internal/status"
	"github.com/andestraining/sence-sync-server/internal/telemetry"
)

// The degraded callback mode only validates that the extension captured a
// live SENCE platform session. The platform runs on ASP.NET and issues its
// session cookie under the sence.cl domain.
const (
	senceSessionCookieName   = "ASP.NET_SessionId"
	senceSessionCookieDomain = "sence.cl"
)

// CallbackRequest is what the companion browser extension posts back after
// the operator authenticates against SENCE.
type CallbackRequest struct {
	// SessionID references a prepared sync session, when the flow started
	// from one. Optional: manual test flows post cookies without it.
	SessionID string `json:"sessionId,omitempty"`

	// Cookies are the captured browser cookies
	Cookies []scraper.Cookie `json:"cookies"`

	// ScraperData carries extension-side context, passed through unused
	ScraperData json.RawMessage `json:"scraperData,omitempty"`
}

// CallbackResult reports what the callback handling did.
type CallbackResult struct {
	// TestMode is set when no session could be resolved and the call only
	// validated cookie presence
	TestMode bool `json:"testMode,omitempty"`

	// CourseRef is the course the sync ran for
	CourseRef string `json:"courseRef,omitempty"`

	// SessionID echoes the consumed session identifier
	SessionID string `json:"sessionId,omitempty"`

	// Summary is the reconciliation outcome on a successful sync
	Summary *reconcile.Summary `json:"summary,omitempty"`

	// SyncError describes a remote or reconciliation failure. The callback
	// itself still succeeds; the failure lives in the status tracker.
	SyncError string `json:"syncError,omitempty"`
}

// SyncOutcome is the senceSync sub-object attached to course create/update
// responses. The local mutation always stands regardless of this outcome.
type SyncOutcome struct {
	// Attempted is false when no identifier change required a remote call
	Attempted bool `json:"attempted"`

	Success bool `json:"success,omitempty"`

	// Duplicate marks the soft already-registered condition
	Duplicate bool `json:"duplicate,omitempty"`

	Warning string `json:"warning,omitempty"`

	Error string `json:"error,omitempty"`
}

// Manager coordinates the sync flow end to end.
type Manager struct {
	sessions *session.Store
	client   scraper.Client
	engine   *reconcile.Engine
	tracker  *status.Tracker
	metrics  *telemetry.SyncMetrics
	timeout  time.Duration
	logger   *slog.Logger
}

// NewManager creates a sync manager. metrics may be nil. A non-positive
// timeout disables the per-call deadline.
func NewManager(
	sessions *session.Store,
	client scraper.Client,
	engine *reconcile.Engine,
	tracker *status.Tracker,
	metrics *telemetry.SyncMetrics,
	timeout time.Duration,
) *Manager {
	return &Manager{
		sessions: sessions,
		client:   client,
		engine:   engine,
		tracker:  tracker,
		metrics:  metrics,
		timeout:  timeout,
		logger:   slog.Default().With("component", "sync"),
	}
}

// HandleCallback processes a cookie handoff from the browser extension.
//
// When the request references a resolvable session, the full sync runs:
// remote fetch, reconciliation, status tracking. When it does not (absent,
// expired or already consumed), the call degrades to cookie validation only
// and answers with a test-mode acknowledgment. Remote and reconciliation
// failures are recorded on the tracker and reported in the result, not
// returned as errors; only missing credentials fail the call itself.
func (m *Manager) HandleCallback(ctx context.Context, req CallbackRequest) (CallbackResult, error) {
	var stored session.Request
	resolved := false

	if req.SessionID != "" {
		var err error
		stored, err = m.sessions.Consume(req.SessionID)
		if err == nil {
			resolved = true
		} else if errors.Is(err, session.ErrNotFound) {
			m.logger.Info("Callback session not resolvable, degrading to cookie validation",
				"sessionId", req.SessionID)
		} else {
			return CallbackResult{}, err
		}
	}

	if !resolved {
		if !hasSenceSessionCookie(req.Cookies) {
			return CallbackResult{}, scraper.ErrInvalidCredentials
		}
		return CallbackResult{TestMode: true}, nil
	}

	courseRef := stored.CourseRef
	if courseRef == "" && len(stored.InputData) > 0 {
		courseRef = stored.InputData[0]
	}

	result := CallbackResult{CourseRef: courseRef, SessionID: req.SessionID}
	m.tracker.MarkStarted(courseRef, req.SessionID)
	started := time.Now()

	if len(req.Cookies) == 0 {
		m.tracker.MarkError(courseRef, scraper.ErrInvalidCredentials.Error())
		return result, scraper.ErrInvalidCredentials
	}

	fetchCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	fetched, err := m.client.FetchDeclarations(fetchCtx, scraper.FetchRequest{
		Cookies:         req.Cookies,
		Otec:            stored.Otec,
		DeclarationType: stored.DeclarationType,
		InputData:       stored.InputData,
		ContactEmail:    stored.ContactEmail,
	})
	if err != nil {
		m.tracker.MarkError(courseRef, err.Error())
		m.metrics.RecordSyncDuration(ctx, courseRef, time.Since(started), false)
		m.logger.Error("Remote declaration fetch failed", "course", courseRef, "error", err)
		result.SyncError = err.Error()
		return result, nil
	}

	summary, err := m.engine.Reconcile(ctx, fetched.Payload)
	if err != nil {
		m.tracker.MarkError(courseRef, err.Error())
		m.metrics.RecordSyncDuration(ctx, courseRef, time.Since(started), false)
		m.logger.Error("Reconciliation failed", "course", courseRef, "error", err)
		result.SyncError = err.Error()
		return result, nil
	}

	m.tracker.MarkCompleted(courseRef, summary.Processed)
	m.metrics.RecordSyncDuration(ctx, courseRef, time.Since(started), true)
	m.metrics.RecordDeclarations(ctx, summary.Processed, summary.Failed)

	result.Summary = &summary
	return result, nil
}

// TriggerCourseSync decides, after a course create or update, whether the
// identifier change requires registering the course remotely, and performs
// that single remote call. The returned outcome is informational: the
// caller's local mutation is never rolled back because of it.
func (m *Manager) TriggerCourseSync(ctx context.Context, previous *string, current courses.Record) SyncOutcome {
	if current.SenceCode == nil || strings.TrimSpace(*current.SenceCode) == "" {
		return SyncOutcome{Attempted: false}
	}
	if previous != nil && *previous == *current.SenceCode {
		return SyncOutcome{Attempted: false}
	}

	callCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	result, err := m.client.RegisterCourse(callCtx, scraper.RegisterRequest{
		SenceCode:    *current.SenceCode,
		CourseName:   current.Name,
		ContactEmail: current.ContactEmail,
	})
	if err != nil {
		m.logger.Error("Remote course registration failed",
			"course", current.ID, "senceCode", *current.SenceCode, "error", err)
		return SyncOutcome{Attempted: true, Error: err.Error()}
	}

	if !result.Success {
		classified := classifyRemoteError(result.RemoteError)

		var dup *DuplicateRemoteRecordError
		if errors.As(classified, &dup) {
			m.logger.Warn("Course already registered remotely",
				"course", current.ID, "senceCode", *current.SenceCode)
			return SyncOutcome{Attempted: true, Duplicate: true, Warning: dup.RemoteMessage}
		}

		m.logger.Error("Remote course registration rejected",
			"course", current.ID, "senceCode", *current.SenceCode, "remoteError", result.RemoteError)
		return SyncOutcome{Attempted: true, Error: classified.Error()}
	}

	return SyncOutcome{Attempted: true, Success: true}
}

// hasSenceSessionCookie reports whether the captured cookies include a live
// SENCE platform session cookie.
func hasSenceSessionCookie(cookies []scraper.Cookie) bool {
	for _, c := range cookies {
		if c.Name == senceSessionCookieName && strings.Contains(c.Domain, senceSessionCookieDomain) {
			return c.Value != ""
		}
	}
	return false
}
