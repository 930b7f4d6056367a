package api

import (
	"alcyxob/workout-tracker/internal/domain"
	"alcyxob/workout-tracker/internal/metrics"
	"alcyxob/workout-tracker/internal/service"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionHandler holds the session service dependency.
type SessionHandler struct {
	sessionService service.SessionService
	metrics        *metrics.Manager
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService service.SessionService, metricsManager *metrics.Manager) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, metrics: metricsManager}
}

// --- DTOs for API (Data Transfer Objects) ---

// StartSessionRequest starts from a template when TemplateID is set,
// otherwise a quick session with an optional name.
type StartSessionRequest struct {
	TemplateID *string `json:"templateId"`
	Name       string  `json:"name"`
}

// AddSessionExerciseRequest defines the expected JSON for adding an exercise mid-workout.
type AddSessionExerciseRequest struct {
	Name     string  `json:"name" binding:"required"`
	Sets     *int    `json:"sets"`
	Reps     *int    `json:"reps"`
	ImageKey *string `json:"imageKey"`
}

type AddSetRequest struct {
	Reps   *int     `json:"reps" binding:"required"`
	Weight *float64 `json:"weight"`
}

// UpdateSetRequest carries a partial update; absent fields are left untouched.
type UpdateSetRequest struct {
	Weight    *float64 `json:"weight"`
	Reps      *int     `json:"reps"`
	Completed *bool    `json:"completed"`
}

// --- Handler Methods ---

// StartSession godoc
// @Summary Start a workout session
// @Description With templateId the template's exercises and default sets are copied into the new session; without it an empty session is started.
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body StartSessionRequest false "Template or name"
// @Success 201 {object} IDResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Template or user not found"
// @Router /sessions [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req StartSessionRequest
	// An empty body starts an unnamed quick session.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	var (
		sessionID primitive.ObjectID
		source    string
		err       error
	)
	if req.TemplateID != nil {
		templateID, parseErr := primitive.ObjectIDFromHex(*req.TemplateID)
		if parseErr != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid template ID format")
			return
		}
		source = metrics.SourceTemplate
		sessionID, err = h.sessionService.StartFromTemplate(c.Request.Context(), identity, templateID)
	} else {
		source = metrics.SourceQuick
		sessionID, err = h.sessionService.StartQuick(c.Request.Context(), identity, req.Name)
	}
	if err != nil {
		respondWithError(c, err, "start session")
		return
	}

	h.metrics.CounterSessionsStarted.WithLabelValues(source).Inc()
	c.JSON(http.StatusCreated, IDResponse{ID: sessionID.Hex()})
}

// ListRecent godoc
// @Summary List recent sessions
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum number of sessions (default 10, max 100)"
// @Success 200 {array} domain.WorkoutSession
// @Router /sessions/recent [get]
func (h *SessionHandler) ListRecent(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}

	sessions, err := h.sessionService.ListRecent(c.Request.Context(), identity, limit)
	if err != nil {
		respondWithError(c, err, "list sessions")
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GetActiveSession returns the running session summary, or null.
func (h *SessionHandler) GetActiveSession(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	active, err := h.sessionService.GetActiveSession(c.Request.Context(), identity)
	if err != nil {
		respondWithError(c, err, "get active session")
		return
	}
	c.JSON(http.StatusOK, active)
}

func (h *SessionHandler) GetPastExercises(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	past, err := h.sessionService.GetPastExercises(c.Request.Context(), identity)
	if err != nil {
		respondWithError(c, err, "get exercise history")
		return
	}
	c.JSON(http.StatusOK, past)
}

// GetSession godoc
// @Summary Get a session with its exercises and sets
// @Description An unknown session yields null.
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} service.SessionDetails
// @Failure 400 {object} gin.H "Invalid ID"
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	sessionID, ok := parseObjectIDParam(c, "id", "session")
	if !ok {
		return
	}

	details, err := h.sessionService.GetSession(c.Request.Context(), identity, sessionID)
	if err != nil {
		respondWithError(c, err, "get session")
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *SessionHandler) GetProgress(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	sessionID, ok := parseObjectIDParam(c, "id", "session")
	if !ok {
		return
	}

	progress, err := h.sessionService.GetProgress(c.Request.Context(), identity, sessionID)
	if err != nil {
		respondWithError(c, err, "get progress")
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (h *SessionHandler) CompleteSession(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	sessionID, ok := parseObjectIDParam(c, "id", "session")
	if !ok {
		return
	}

	if err := h.sessionService.CompleteSession(c.Request.Context(), identity, sessionID); err != nil {
		respondWithError(c, err, "complete session")
		return
	}
	h.metrics.CounterSessionsCompleted.Inc()
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) RemoveSession(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	sessionID, ok := parseObjectIDParam(c, "id", "session")
	if !ok {
		return
	}

	if err := h.sessionService.RemoveSession(c.Request.Context(), identity, sessionID); err != nil {
		respondWithError(c, err, "remove session")
		return
	}
	c.Status(http.StatusNoContent)
}

// AddExercise godoc
// @Summary Append an exercise to a running session
// @Description Defaults to one set of ten reps. Completed sessions reject new exercises with 409.
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param exercise body AddSessionExerciseRequest true "Exercise details"
// @Success 201 {object} IDResponse
// @Failure 409 {object} gin.H "Session already completed"
// @Router /sessions/{id}/exercises [post]
func (h *SessionHandler) AddExercise(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	sessionID, ok := parseObjectIDParam(c, "id", "session")
	if !ok {
		return
	}
	var req AddSessionExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	exerciseID, err := h.sessionService.AddExerciseToSession(c.Request.Context(), identity, sessionID, service.NewSessionExercise{
		Name:     req.Name,
		Sets:     req.Sets,
		Reps:     req.Reps,
		ImageKey: req.ImageKey,
	})
	if err != nil {
		respondWithError(c, err, "add exercise")
		return
	}
	c.JSON(http.StatusCreated, IDResponse{ID: exerciseID.Hex()})
}

func (h *SessionHandler) AddSet(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	exerciseID, ok := parseObjectIDParam(c, "id", "exercise")
	if !ok {
		return
	}
	var req AddSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	setID, err := h.sessionService.AddSet(c.Request.Context(), identity, exerciseID, *req.Reps, req.Weight)
	if err != nil {
		respondWithError(c, err, "add set")
		return
	}
	c.JSON(http.StatusCreated, IDResponse{ID: setID.Hex()})
}

func (h *SessionHandler) UpdateSet(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	setID, ok := parseObjectIDParam(c, "id", "set")
	if !ok {
		return
	}
	var req UpdateSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	patch := domain.SetPatch{Weight: req.Weight, Reps: req.Reps, Completed: req.Completed}
	if err := h.sessionService.UpdateSet(c.Request.Context(), identity, setID, patch); err != nil {
		respondWithError(c, err, "update set")
		return
	}
	if req.Completed != nil && *req.Completed {
		h.metrics.CounterSetsCompleted.Inc()
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) RemoveSet(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	setID, ok := parseObjectIDParam(c, "id", "set")
	if !ok {
		return
	}

	if err := h.sessionService.RemoveSet(c.Request.Context(), identity, setID); err != nil {
		respondWithError(c, err, "remove set")
		return
	}
	c.Status(http.StatusNoContent)
}
