package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutTemplate is a reusable, named list of exercises.
type WorkoutTemplate struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Name      string             `bson:"name" json:"name"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// TemplateExercise belongs to one template. Order is assigned as max+1 on
// insert and never renumbered, so gaps are expected after removals.
type TemplateExercise struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TemplateID  primitive.ObjectID `bson:"templateId" json:"templateId"`
	Name        string             `bson:"name" json:"name"`
	ImageKey    *string            `bson:"imageKey,omitempty" json:"imageKey,omitempty"` // Object storage key
	DefaultSets int                `bson:"defaultSets" json:"defaultSets"`
	DefaultReps int                `bson:"defaultReps" json:"defaultReps"`
	Order       int                `bson:"order" json:"order"`
}

// TemplateExercisePatch carries the fields of a partial update. Nil fields
// are left untouched.
type TemplateExercisePatch struct {
	Name        *string
	DefaultSets *int
	DefaultReps *int
	ImageKey    *string
}

// IsEmpty reports whether the patch would change nothing.
func (p TemplateExercisePatch) IsEmpty() bool {
	return p.Name == nil && p.DefaultSets == nil && p.DefaultReps == nil && p.ImageKey == nil
}
