package service

import (
	"alcyxob/workout-tracker/internal/domain"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PastExercise is one entry of the quick-select list offered when adding an
// exercise to a running session.
type PastExercise struct {
	Name            string    `json:"name"`
	ImageKey        *string   `json:"imageKey,omitempty"`
	ImageURL        *string   `json:"imageUrl"`
	Weight          *float64  `json:"weight,omitempty"`
	Reps            int       `json:"reps"`
	LastPerformedAt time.Time `json:"lastPerformedAt"`
}

func exerciseKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// referenceSet picks the set whose numbers represent an exercise instance:
// the last completed set, or the last set if none was completed.
func referenceSet(sets []domain.Set) *domain.Set {
	var last, lastCompleted *domain.Set
	for i := range sets {
		set := &sets[i]
		if last == nil || set.SetNumber > last.SetNumber {
			last = set
		}
		if set.Completed && (lastCompleted == nil || set.SetNumber > lastCompleted.SetNumber) {
			lastCompleted = set
		}
	}
	if lastCompleted != nil {
		return lastCompleted
	}
	return last
}

// buildPastExercises groups exercise instances by name and keeps, per
// name, the instance from the most recently started session. Ties on start
// time go to the larger session ID, then the larger exercise order.
func buildPastExercises(sessions []domain.WorkoutSession, exercises []domain.SessionExercise, sets []domain.Set) []PastExercise {
	sessionByID := make(map[primitive.ObjectID]domain.WorkoutSession, len(sessions))
	for _, s := range sessions {
		sessionByID[s.ID] = s
	}
	setsByExercise := groupSets(sets)

	type candidate struct {
		exercise domain.SessionExercise
		session  domain.WorkoutSession
	}
	newer := func(a, b candidate) bool {
		if !a.session.StartedAt.Equal(b.session.StartedAt) {
			return a.session.StartedAt.After(b.session.StartedAt)
		}
		if a.session.ID != b.session.ID {
			return a.session.ID.Hex() > b.session.ID.Hex()
		}
		return a.exercise.Order > b.exercise.Order
	}

	latest := make(map[string]candidate)
	for _, exercise := range exercises {
		session, ok := sessionByID[exercise.SessionID]
		if !ok {
			continue
		}
		key := exerciseKey(exercise.Name)
		if key == "" {
			continue
		}
		c := candidate{exercise: exercise, session: session}
		if prev, seen := latest[key]; !seen || newer(c, prev) {
			latest[key] = c
		}
	}

	result := make([]PastExercise, 0, len(latest))
	for _, c := range latest {
		entry := PastExercise{
			Name:            strings.TrimSpace(c.exercise.Name),
			ImageKey:        c.exercise.ImageKey,
			LastPerformedAt: c.session.StartedAt,
		}
		if ref := referenceSet(setsByExercise[c.exercise.ID]); ref != nil {
			entry.Weight = ref.Weight
			entry.Reps = ref.Reps
		}
		result = append(result, entry)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].LastPerformedAt.Equal(result[j].LastPerformedAt) {
			return result[i].LastPerformedAt.After(result[j].LastPerformedAt)
		}
		return result[i].Name < result[j].Name
	})
	return result
}
