// Package session contains the short-lived sync session store.
//
// A session bridges a local declaration-sync request to the external
// browser-based automation flow: it is prepared before the user opens the
// SENCE login window, and consumed exactly once when the browser extension
// posts the captured cookies back with the session identifier.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is the lifetime of a prepared session.
const DefaultTTL = 10 * time.Minute

// ErrNotFound is returned by Consume when the session does not exist,
// has expired, or was already consumed.
var ErrNotFound = errors.New("session not found")

// ValidationError indicates a session-prepare request missing required fields.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// Request is the payload stored for a pending sync session.
type Request struct {
	// CourseRef identifies the local course this sync is for
	CourseRef string `json:"courseRef,omitempty"`

	// Otec is the training-provider code used against the remote system
	Otec string `json:"otec"`

	// DeclarationType selects the declaration flow (e.g. "inicio", "termino")
	DeclarationType string `json:"declarationType"`

	// InputData is the list of target SENCE course identifiers
	InputData []string `json:"inputData"`

	// ContactEmail receives remote-side notifications
	ContactEmail string `json:"contactEmail,omitempty"`

	// RequesterRef identifies the requesting user
	RequesterRef string `json:"requesterRef,omitempty"`

	// OriginHint records where the request came from (UI page, test flow)
	OriginHint string `json:"originHint,omitempty"`
}

// stored pairs a request with its creation time.
type stored struct {
	request   Request
	createdAt time.Time
}

// Store holds pending sync sessions in memory. Sessions are process-local
// and reset on restart. All methods are safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]stored
	ttl      time.Duration

	// now is injected for tests
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides the session TTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty session store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]stored),
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Prepare validates the request, stores it under a fresh opaque identifier
// and returns that identifier. The identifier does not need cryptographic
// unpredictability: sessions are short-lived and single-use.
func (s *Store) Prepare(req Request) (string, error) {
	if err := validate(req); err != nil {
		return "", err
	}

	id := newSessionID(s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = stored{request: req, createdAt: s.now()}

	return id, nil
}

// Consume atomically looks up and removes the session with the given
// identifier. A session is returned at most once; concurrent calls for the
// same identifier cannot both succeed.
func (s *Store) Consume(sessionID string) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return Request{}, ErrNotFound
	}
	delete(s.sessions, sessionID)

	if s.now().Sub(entry.createdAt) > s.ttl {
		// Expired but not yet swept; treat the same as absent.
		return Request{}, ErrNotFound
	}

	return entry.request, nil
}

// Sweep removes all sessions older than the TTL and returns how many were
// purged. It is invoked periodically by the Sweeper.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, entry := range s.sessions {
		if now.Sub(entry.createdAt) > s.ttl {
			delete(s.sessions, id)
			purged++
		}
	}
	return purged
}

// Len returns the number of currently stored sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// validate checks the fields the remote flow cannot work without.
func validate(req Request) error {
	if strings.TrimSpace(req.Otec) == "" {
		return &ValidationError{Field: "otec"}
	}
	if strings.TrimSpace(req.DeclarationType) == "" {
		return &ValidationError{Field: "declarationType"}
	}
	if len(req.InputData) == 0 {
		return &ValidationError{Field: "inputData"}
	}
	return nil
}

// newSessionID builds an opaque identifier: millisecond timestamp plus a
// random suffix. Collision-resistant enough for a ten-minute window.
func newSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("sync_%d_%s", now.UnixMilli(), suffix)
}
