package repository

import (
	"alcyxob/workout-tracker/internal/domain"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer
var (
	ErrNotFound  = RepositoryError("not found")
	ErrDuplicate = RepositoryError("duplicate key")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository maps identity provider subjects to local users.
type UserRepository interface {
	// UpsertBySubject returns the user for subject, creating it atomically
	// if it does not exist yet. Concurrent first calls yield one record.
	UpsertBySubject(ctx context.Context, subject, email string) (*domain.User, error)
	GetBySubject(ctx context.Context, subject string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// TemplateRepository persists workout templates.
type TemplateRepository interface {
	Create(ctx context.Context, template *domain.WorkoutTemplate) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutTemplate, error)
	// ListByUser returns the user's templates, newest first.
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.WorkoutTemplate, error)
	UpdateName(ctx context.Context, id primitive.ObjectID, name string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// TemplateExerciseRepository persists the exercises of a template.
type TemplateExerciseRepository interface {
	// Create fails with ErrDuplicate when the order is taken in the template.
	Create(ctx context.Context, exercise *domain.TemplateExercise) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TemplateExercise, error)
	// ListByTemplate returns the exercises ascending by order.
	ListByTemplate(ctx context.Context, templateID primitive.ObjectID) ([]domain.TemplateExercise, error)
	// MaxOrder returns the highest order in the template, or -1 if it has no exercises.
	MaxOrder(ctx context.Context, templateID primitive.ObjectID) (int, error)
	Update(ctx context.Context, id primitive.ObjectID, patch domain.TemplateExercisePatch) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByTemplate(ctx context.Context, templateID primitive.ObjectID) (int64, error)
}

// SessionRepository persists workout sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.WorkoutSession) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutSession, error)
	// ListByUser returns up to limit sessions newest first; limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]domain.WorkoutSession, error)
	// FindLatestIncomplete returns the incomplete session with the latest
	// start time, breaking ties by the larger ID.
	FindLatestIncomplete(ctx context.Context, userID primitive.ObjectID) (*domain.WorkoutSession, error)
	MarkCompleted(ctx context.Context, id primitive.ObjectID, at time.Time) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// SessionExerciseRepository persists the exercises of a session.
type SessionExerciseRepository interface {
	// Create fails with ErrDuplicate when the order is taken in the session.
	Create(ctx context.Context, exercise *domain.SessionExercise) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.SessionExercise, error)
	// ListBySession returns the exercises ascending by order.
	ListBySession(ctx context.Context, sessionID primitive.ObjectID) ([]domain.SessionExercise, error)
	ListBySessions(ctx context.Context, sessionIDs []primitive.ObjectID) ([]domain.SessionExercise, error)
	CountBySession(ctx context.Context, sessionID primitive.ObjectID) (int64, error)
	// MaxOrder returns the highest order value in the session, or -1 if it has no exercises.
	MaxOrder(ctx context.Context, sessionID primitive.ObjectID) (int, error)
	DeleteBySession(ctx context.Context, sessionID primitive.ObjectID) (int64, error)
}

// SetRepository persists the sets of session exercises.
type SetRepository interface {
	// Create and CreateMany fail with ErrDuplicate when a set number is
	// taken in the exercise.
	Create(ctx context.Context, set *domain.Set) (primitive.ObjectID, error)
	CreateMany(ctx context.Context, sets []*domain.Set) ([]primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Set, error)
	// ListByExercises returns the sets of all given exercises ascending by set number.
	ListByExercises(ctx context.Context, exerciseIDs []primitive.ObjectID) ([]domain.Set, error)
	// MaxSetNumber returns the highest set number of the exercise, or 0 if it has no sets.
	MaxSetNumber(ctx context.Context, exerciseID primitive.ObjectID) (int, error)
	Update(ctx context.Context, id primitive.ObjectID, patch domain.SetPatch) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByExercises(ctx context.Context, exerciseIDs []primitive.ObjectID) (int64, error)
}

// Repositories bundles one implementation of every repository.
type Repositories struct {
	Users             UserRepository
	Templates         TemplateRepository
	TemplateExercises TemplateExerciseRepository
	Sessions          SessionRepository
	SessionExercises  SessionExerciseRepository
	Sets              SetRepository
}
