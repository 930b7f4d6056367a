package api

import (
	"alcyxob/workout-tracker/internal/domain"
	"alcyxob/workout-tracker/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// statusForError maps service errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrTemplateNotFound),
		errors.Is(err, service.ErrTemplateExerciseNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrSessionExerciseNotFound),
		errors.Is(err, service.ErrSetNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSessionCompleted):
		return http.StatusConflict
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondWithError writes the mapped status. Internal errors are logged
// and replaced by a generic message.
func respondWithError(c *gin.Context, err error, action string) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Errorf("failed to %s", action)
		_ = c.Error(err)
		abortWithError(c, status, "Failed to "+action)
		return
	}
	abortWithError(c, status, err.Error())
}

// parseObjectIDParam reads a hex ObjectID from a path parameter, writing
// a 400 response when it is malformed.
func parseObjectIDParam(c *gin.Context, name, label string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+label+" ID format")
		return primitive.NilObjectID, false
	}
	return id, true
}

// requireIdentity fetches the identity set by AuthMiddleware.
func requireIdentity(c *gin.Context) (domain.Identity, bool) {
	identity, err := getIdentityFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token")
		return domain.Identity{}, false
	}
	return identity, true
}
