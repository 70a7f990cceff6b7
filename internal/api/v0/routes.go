// Package v0 provides the REST API handlers for the SENCE sync service.
package v0

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/andestraining/sence-sync-server/internal/api/common"
	"github.com/andestraining/sence-sync-server/internal/courses"
	"github.com/andestraining/sence-sync-server/internal/declarations"
	"github.com/andestraining/sence-sync-server/internal/scraper"
	"github.com/andestraining/sence-sync-server/internal/session"
	"github.com/andestraining/sence-sync-server/internal/status"
	syncmgr "github.com/andestraining/sence-sync-server/internal/sync"
	"github.com/andestraining/sence-sync-server/internal/versions"
)

// Routes defines the routes for the sync API with dependency injection
type Routes struct {
	sessions     *session.Store
	manager      *syncmgr.Manager
	tracker      *status.Tracker
	courses      courses.Store
	declarations declarations.Store
	handoffURL   string
}

// NewRoutes creates a new Routes instance with the provided dependencies
func NewRoutes(
	sessions *session.Store,
	manager *syncmgr.Manager,
	tracker *status.Tracker,
	courseStore courses.Store,
	declarationStore declarations.Store,
	handoffURL string,
) *Routes {
	return &Routes{
		sessions:     sessions,
		manager:      manager,
		tracker:      tracker,
		courses:      courseStore,
		declarations: declarationStore,
		handoffURL:   handoffURL,
	}
}

// Router creates a new router for the sync API
func Router(rr *Routes) http.Handler {
	r := chi.NewRouter()

	r.Post("/sence/sessions", rr.prepareSession)
	r.Post("/sence/callback", rr.handleCallback)

	r.Post("/courses", rr.createCourse)
	r.Get("/courses", rr.listCourses)
	r.Get("/courses/{id}", rr.getCourse)
	r.Put("/courses/{id}", rr.updateCourse)
	r.Get("/courses/{id}/sync-status", rr.getSyncStatus)
	r.Get("/courses/{id}/declarations", rr.listDeclarations)

	return r
}

// PrepareSessionResponse is the session-preparation reply.
type PrepareSessionResponse struct {
	SessionID        string `json:"sessionId"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
	HandoffURL       string `json:"handoffUrl,omitempty"`
}

// prepareSession handles POST /api/v0/sence/sessions
//
// @Summary		Prepare a sync session
// @Description	Store a pending sync request and return a single-use session identifier
// @Tags		sence
// @Accept		json
// @Produce		json
// @Success		200	{object}	PrepareSessionResponse
// @Failure		400	{object}	map[string]string	"Validation failure"
// @Router		/api/v0/sence/sessions [post]
func (rr *Routes) prepareSession(w http.ResponseWriter, r *http.Request) {
	var req session.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, err := rr.sessions.Prepare(req)
	if err != nil {
		var vErr *session.ValidationError
		if errors.As(err, &vErr) {
			common.WriteErrorResponse(w, vErr.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Failed to prepare sync session", "error", err)
		common.WriteErrorResponse(w, "Failed to prepare session", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, PrepareSessionResponse{
		SessionID:        id,
		ExpiresInSeconds: int(rr.sessions.TTL().Seconds()),
		HandoffURL:       rr.handoffURLFor(id),
	}, http.StatusOK)
}

// handoffURLFor embeds the session identifier in the configured handoff URL
// as a query parameter. The external system echoes it back on the callback,
// which is how the full sync flow resolves its pending session.
func (rr *Routes) handoffURLFor(sessionID string) string {
	if rr.handoffURL == "" {
		return ""
	}

	u, err := url.Parse(rr.handoffURL)
	if err != nil {
		slog.Error("Invalid handoff URL configured", "url", rr.handoffURL, "error", err)
		return rr.handoffURL
	}

	q := u.Query()
	q.Set("sessionId", sessionID)
	u.RawQuery = q.Encode()
	return u.String()
}

// handleCallback handles POST /api/v0/sence/callback
//
// @Summary		Cookie handoff callback
// @Description	Receive captured browser cookies from the companion extension and run the sync flow
// @Tags		sence
// @Accept		json
// @Produce		json
// @Success		200	{object}	sync.CallbackResult
// @Failure		400	{object}	map[string]string	"Bad request"
// @Failure		401	{object}	map[string]string	"No usable credentials"
// @Router		/api/v0/sence/callback [post]
func (rr *Routes) handleCallback(w http.ResponseWriter, r *http.Request) {
	var req syncmgr.CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := rr.manager.HandleCallback(r.Context(), req)
	if err != nil {
		if errors.Is(err, scraper.ErrInvalidCredentials) {
			common.WriteErrorResponse(w, "No valid SENCE session credentials", http.StatusUnauthorized)
			return
		}
		slog.Error("Callback handling failed", "error", err)
		common.WriteErrorResponse(w, "Callback handling failed", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, result, http.StatusOK)
}

// CourseRequest is the create/update payload for a course.
type CourseRequest struct {
	Name         string  `json:"name"`
	SenceCode    *string `json:"senceCode,omitempty"`
	ContactEmail string  `json:"contactEmail,omitempty"`
}

// CourseResponse pairs a course with the outcome of its triggered sync.
type CourseResponse struct {
	Course    courses.Record       `json:"course"`
	SenceSync *syncmgr.SyncOutcome `json:"senceSync,omitempty"`
}

// createCourse handles POST /api/v0/courses
//
// @Summary		Create course
// @Description	Create a course; a non-empty senceCode triggers remote registration after commit
// @Tags		courses
// @Accept		json
// @Produce		json
// @Success		201	{object}	CourseResponse
// @Failure		400	{object}	map[string]string	"Bad request"
// @Router		/api/v0/courses [post]
func (rr *Routes) createCourse(w http.ResponseWriter, r *http.Request) {
	var req CourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		common.WriteErrorResponse(w, "Course name is required", http.StatusBadRequest)
		return
	}

	created, err := rr.courses.Create(r.Context(), courses.CreateParams{
		Name:         req.Name,
		SenceCode:    req.SenceCode,
		ContactEmail: req.ContactEmail,
	})
	if err != nil {
		slog.Error("Failed to create course", "error", err)
		common.WriteErrorResponse(w, "Failed to create course", http.StatusInternalServerError)
		return
	}

	// The course is committed at this point. The remote registration is
	// best-effort and only reported, never rolled back into.
	outcome := rr.manager.TriggerCourseSync(r.Context(), nil, created)

	common.WriteJSONResponse(w, CourseResponse{Course: created, SenceSync: &outcome}, http.StatusCreated)
}

// updateCourse handles PUT /api/v0/courses/{id}
//
// @Summary		Update course
// @Description	Update a course; a changed senceCode triggers remote registration after commit
// @Tags		courses
// @Accept		json
// @Produce		json
// @Param		id	path		string	true	"Course ID"
// @Success		200	{object}	CourseResponse
// @Failure		400	{object}	map[string]string	"Bad request"
// @Failure		404	{object}	map[string]string	"Course not found"
// @Router		/api/v0/courses/{id} [put]
func (rr *Routes) updateCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := rr.courseID(w, r)
	if !ok {
		return
	}

	var req CourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	existing, err := rr.courses.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, courses.ErrNotFound) {
			common.WriteErrorResponse(w, "Course not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to load course", "course", id, "error", err)
		common.WriteErrorResponse(w, "Failed to load course", http.StatusInternalServerError)
		return
	}
	previousCode := existing.SenceCode

	params := courses.UpdateParams{SenceCode: req.SenceCode}
	if req.Name != "" {
		params.Name = &req.Name
	}
	if req.ContactEmail != "" {
		params.ContactEmail = &req.ContactEmail
	}

	updated, err := rr.courses.Update(r.Context(), id, params)
	if err != nil {
		slog.Error("Failed to update course", "course", id, "error", err)
		common.WriteErrorResponse(w, "Failed to update course", http.StatusInternalServerError)
		return
	}

	outcome := rr.manager.TriggerCourseSync(r.Context(), previousCode, updated)

	common.WriteJSONResponse(w, CourseResponse{Course: updated, SenceSync: &outcome}, http.StatusOK)
}

// getCourse handles GET /api/v0/courses/{id}
//
// @Summary		Get course
// @Tags		courses
// @Produce		json
// @Param		id	path		string	true	"Course ID"
// @Success		200	{object}	courses.Record
// @Failure		404	{object}	map[string]string	"Course not found"
// @Router		/api/v0/courses/{id} [get]
func (rr *Routes) getCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := rr.courseID(w, r)
	if !ok {
		return
	}

	rec, err := rr.courses.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, courses.ErrNotFound) {
			common.WriteErrorResponse(w, "Course not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to load course", "course", id, "error", err)
		common.WriteErrorResponse(w, "Failed to load course", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, rec, http.StatusOK)
}

// listCourses handles GET /api/v0/courses
//
// @Summary		List courses
// @Tags		courses
// @Produce		json
// @Success		200	{array}	courses.Record
// @Router		/api/v0/courses [get]
func (rr *Routes) listCourses(w http.ResponseWriter, r *http.Request) {
	records, err := rr.courses.List(r.Context())
	if err != nil {
		slog.Error("Failed to list courses", "error", err)
		common.WriteErrorResponse(w, "Failed to list courses", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []courses.Record{}
	}

	common.WriteJSONResponse(w, records, http.StatusOK)
}

// getSyncStatus handles GET /api/v0/courses/{id}/sync-status
//
// @Summary		Poll sync status
// @Description	Return the current sync status for a course; unknown courses report idle
// @Tags		courses
// @Produce		json
// @Param		id	path		string	true	"Course ID"
// @Success		200	{object}	status.Record
// @Router		/api/v0/courses/{id}/sync-status [get]
func (rr *Routes) getSyncStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		common.WriteErrorResponse(w, "Course ID is required", http.StatusBadRequest)
		return
	}

	// Polling never errors: unknown course references answer idle.
	common.WriteJSONResponse(w, rr.tracker.Get(id), http.StatusOK)
}

// listDeclarations handles GET /api/v0/courses/{id}/declarations
//
// @Summary		List declarations
// @Description	Return the persisted declaration records for a course's SENCE code
// @Tags		courses
// @Produce		json
// @Param		id	path		string	true	"Course ID"
// @Success		200	{array}		declarations.Record
// @Failure		404	{object}	map[string]string	"Course not found"
// @Router		/api/v0/courses/{id}/declarations [get]
func (rr *Routes) listDeclarations(w http.ResponseWriter, r *http.Request) {
	id, ok := rr.courseID(w, r)
	if !ok {
		return
	}

	course, err := rr.courses.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, courses.ErrNotFound) {
			common.WriteErrorResponse(w, "Course not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to load course", "course", id, "error", err)
		common.WriteErrorResponse(w, "Failed to load course", http.StatusInternalServerError)
		return
	}

	records := []declarations.Record{}
	if course.SenceCode != nil && *course.SenceCode != "" {
		records, err = rr.declarations.ListBySenceCode(r.Context(), *course.SenceCode)
		if err != nil {
			slog.Error("Failed to list declarations", "course", id, "error", err)
			common.WriteErrorResponse(w, "Failed to list declarations", http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []declarations.Record{}
		}
	}

	common.WriteJSONResponse(w, records, http.StatusOK)
}

// courseID extracts and validates the course UUID path parameter.
func (*Routes) courseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		common.WriteErrorResponse(w, "Invalid course ID", http.StatusBadRequest)
		return uuid.UUID{}, false
	}
	return id, true
}

// HealthRouter creates a router for health check endpoints
func HealthRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/version", versionHandler)

	return r
}

// healthHandler handles health check requests
//
// @Summary		Health check
// @Tags		system
// @Produce		json
// @Success		200	{object}	map[string]string
// @Router		/health [get]
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// versionHandler handles version information requests
//
// @Summary		Version information
// @Tags		system
// @Produce		json
// @Success		200	{object}	versions.VersionInfo
// @Router		/version [get]
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}
