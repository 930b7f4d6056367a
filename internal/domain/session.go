package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutSession is one performed (or in-progress) workout. Sessions
// started from a template hold a value copy of its structure.
type WorkoutSession struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID  `bson:"userId" json:"userId"`
	TemplateID  *primitive.ObjectID `bson:"templateId,omitempty" json:"templateId,omitempty"` // Nil for quick sessions
	Name        string              `bson:"name" json:"name"`
	StartedAt   time.Time           `bson:"startedAt" json:"startedAt"`
	Completed   bool                `bson:"completed" json:"completed"`
	CompletedAt *time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// SessionExercise is an exercise inside a session. Order is the number of
// exercises that existed when it was appended.
type SessionExercise struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	SessionID          primitive.ObjectID  `bson:"sessionId" json:"sessionId"`
	TemplateExerciseID *primitive.ObjectID `bson:"templateExerciseId,omitempty" json:"templateExerciseId,omitempty"`
	Name               string              `bson:"name" json:"name"`
	ImageKey           *string             `bson:"imageKey,omitempty" json:"imageKey,omitempty"`
	Order              int                 `bson:"order" json:"order"`
}

// Set is one unit of work within a session exercise. SetNumber starts at 1
// and a new set takes the highest existing number plus one, so gaps left by
// removed sets are not filled.
type Set struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionExerciseID primitive.ObjectID `bson:"sessionExerciseId" json:"sessionExerciseId"`
	SetNumber         int                `bson:"setNumber" json:"setNumber"`
	Weight            *float64           `bson:"weight,omitempty" json:"weight,omitempty"`
	Reps              int                `bson:"reps" json:"reps"`
	Completed         bool               `bson:"completed" json:"completed"`
}

// SetPatch carries the fields of a partial set update.
type SetPatch struct {
	Weight    *float64
	Reps      *int
	Completed *bool
}

// IsEmpty reports whether the patch would change nothing.
func (p SetPatch) IsEmpty() bool {
	return p.Weight == nil && p.Reps == nil && p.Completed == nil
}
