package service

import (
	"alcyxob/workout-tracker/internal/domain"
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Progress is the completed-set ratio of a session.
type Progress struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Percentage int `json:"percentage"`
}

// CurrentExercise is the first exercise, by order, that still has an
// incomplete set.
type CurrentExercise struct {
	ID            primitive.ObjectID `json:"id"`
	Name          string             `json:"name"`
	CompletedSets int                `json:"completedSets"`
	TotalSets     int                `json:"totalSets"`
}

// NewProgress builds a Progress, rounding the percentage to the nearest
// integer. An empty session is 0%.
func NewProgress(completed, total int) Progress {
	p := Progress{Total: total, Completed: completed}
	if total > 0 {
		p.Percentage = int(math.Round(float64(completed) * 100 / float64(total)))
	}
	return p
}

// groupSets indexes sets by their exercise, keeping the input order.
func groupSets(sets []domain.Set) map[primitive.ObjectID][]domain.Set {
	grouped := make(map[primitive.ObjectID][]domain.Set)
	for _, set := range sets {
		grouped[set.SessionExerciseID] = append(grouped[set.SessionExerciseID], set)
	}
	return grouped
}

func countCompleted(sets []domain.Set) int {
	n := 0
	for _, set := range sets {
		if set.Completed {
			n++
		}
	}
	return n
}

// summarize walks exercises in the given order (callers pass them sorted by
// Order) and returns the current exercise and the overall progress.
func summarize(exercises []domain.SessionExercise, setsByExercise map[primitive.ObjectID][]domain.Set) (*CurrentExercise, Progress) {
	var current *CurrentExercise
	total, completed := 0, 0

	for _, exercise := range exercises {
		sets := setsByExercise[exercise.ID]
		done := countCompleted(sets)
		total += len(sets)
		completed += done

		if current == nil && done < len(sets) {
			current = &CurrentExercise{
				ID:            exercise.ID,
				Name:          exercise.Name,
				CompletedSets: done,
				TotalSets:     len(sets),
			}
		}
	}
	return current, NewProgress(completed, total)
}
