// Package memory is an in-process implementation of the repository
// interfaces. It backs the server when database.driver is "memory" and
// serves as the store for service and handler tests.
package memory

import (
	"alcyxob/workout-tracker/internal/domain"
	"alcyxob/workout-tracker/internal/repository"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store holds every collection behind a single lock.
type Store struct {
	mu                sync.RWMutex
	users             map[primitive.ObjectID]domain.User
	templates         map[primitive.ObjectID]domain.WorkoutTemplate
	templateExercises map[primitive.ObjectID]domain.TemplateExercise
	sessions          map[primitive.ObjectID]domain.WorkoutSession
	sessionExercises  map[primitive.ObjectID]domain.SessionExercise
	sets              map[primitive.ObjectID]domain.Set
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:             make(map[primitive.ObjectID]domain.User),
		templates:         make(map[primitive.ObjectID]domain.WorkoutTemplate),
		templateExercises: make(map[primitive.ObjectID]domain.TemplateExercise),
		sessions:          make(map[primitive.ObjectID]domain.WorkoutSession),
		sessionExercises:  make(map[primitive.ObjectID]domain.SessionExercise),
		sets:              make(map[primitive.ObjectID]domain.Set),
	}
}

// Repositories returns all repository views over the store.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Users:             &userRepository{s},
		Templates:         &templateRepository{s},
		TemplateExercises: &templateExerciseRepository{s},
		Sessions:          &sessionRepository{s},
		SessionExercises:  &sessionExerciseRepository{s},
		Sets:              &setRepository{s},
	}
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func idSet(ids []primitive.ObjectID) map[primitive.ObjectID]struct{} {
	m := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

// newerFirst orders by timestamp descending, then by ID descending.
func newerFirst[T any](items []T, key func(T) (int64, primitive.ObjectID)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if ti != tj {
			return ti > tj
		}
		return idi.Hex() > idj.Hex()
	})
}
