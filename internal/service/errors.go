package service

import (
	"alcyxob/workout-tracker/internal/repository"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrUserNotFound             = errors.New("user not found")
	ErrTemplateNotFound         = errors.New("template not found")
	ErrTemplateExerciseNotFound = errors.New("template exercise not found")
	ErrSessionNotFound          = errors.New("session not found")
	ErrSessionExerciseNotFound  = errors.New("session exercise not found")
	ErrSetNotFound              = errors.New("set not found")
	ErrSessionCompleted         = errors.New("cannot add exercises to a completed workout")
	ErrValidation               = errors.New("validation failed")
	ErrUploadURLError           = errors.New("failed to generate upload URL")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// insertAtNextPosition runs an insert whose order or set number was read
// just before. A concurrent writer can take that position first; the
// unique index then reports a duplicate and the insert runs once more
// with a fresh read.
func insertAtNextPosition(insert func() (primitive.ObjectID, error)) (primitive.ObjectID, error) {
	id, err := insert()
	if errors.Is(err, repository.ErrDuplicate) {
		return insert()
	}
	return id, err
}
