package memory

import (
	"alcyxob/workout-tracker/internal/domain"
	"alcyxob/workout-tracker/internal/repository"
	"context"
	"errors"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type setRepository struct{ s *Store }

func validSet(set *domain.Set) error {
	if set.SessionExerciseID == primitive.NilObjectID || set.SetNumber < 1 {
		return errors.New("set requires sessionExerciseId and a positive set number")
	}
	return nil
}

func (r *setRepository) Create(_ context.Context, set *domain.Set) (primitive.ObjectID, error) {
	if err := validSet(set); err != nil {
		return primitive.NilObjectID, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.numberTaken(set.SessionExerciseID, set.SetNumber) {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	set.ID = primitive.NewObjectID()
	stored := *set
	stored.Weight = cloneFloat(set.Weight)
	r.s.sets[set.ID] = stored
	return set.ID, nil
}

func (r *setRepository) CreateMany(_ context.Context, sets []*domain.Set) ([]primitive.ObjectID, error) {
	for _, set := range sets {
		if err := validSet(set); err != nil {
			return nil, err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	type slot struct {
		exerciseID primitive.ObjectID
		number     int
	}
	batch := make(map[slot]struct{}, len(sets))
	for _, set := range sets {
		key := slot{set.SessionExerciseID, set.SetNumber}
		if _, dup := batch[key]; dup || r.numberTaken(set.SessionExerciseID, set.SetNumber) {
			return nil, repository.ErrDuplicate
		}
		batch[key] = struct{}{}
	}

	ids := make([]primitive.ObjectID, len(sets))
	for i, set := range sets {
		set.ID = primitive.NewObjectID()
		stored := *set
		stored.Weight = cloneFloat(set.Weight)
		r.s.sets[set.ID] = stored
		ids[i] = set.ID
	}
	return ids, nil
}

// numberTaken reports whether the exercise already has a set with number.
// Callers hold the lock.
func (r *setRepository) numberTaken(exerciseID primitive.ObjectID, number int) bool {
	for _, set := range r.s.sets {
		if set.SessionExerciseID == exerciseID && set.SetNumber == number {
			return true
		}
	}
	return false
}

func (r *setRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Set, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	set, ok := r.s.sets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &set, nil
}

func (r *setRepository) ListByExercises(_ context.Context, exerciseIDs []primitive.ObjectID) ([]domain.Set, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wanted := idSet(exerciseIDs)
	sets := []domain.Set{}
	for _, set := range r.s.sets {
		if _, ok := wanted[set.SessionExerciseID]; ok {
			sets = append(sets, set)
		}
	}
	sort.Slice(sets, func(i, j int) bool {
		if sets[i].SessionExerciseID != sets[j].SessionExerciseID {
			return sets[i].SessionExerciseID.Hex() < sets[j].SessionExerciseID.Hex()
		}
		return sets[i].SetNumber < sets[j].SetNumber
	})
	return sets, nil
}

func (r *setRepository) MaxSetNumber(_ context.Context, exerciseID primitive.ObjectID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	highest := 0
	for _, set := range r.s.sets {
		if set.SessionExerciseID == exerciseID && set.SetNumber > highest {
			highest = set.SetNumber
		}
	}
	return highest, nil
}

func (r *setRepository) Update(_ context.Context, id primitive.ObjectID, patch domain.SetPatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	set, ok := r.s.sets[id]
	if !ok {
		return repository.ErrNotFound
	}
	if patch.Weight != nil {
		set.Weight = cloneFloat(patch.Weight)
	}
	if patch.Reps != nil {
		set.Reps = *patch.Reps
	}
	if patch.Completed != nil {
		set.Completed = *patch.Completed
	}
	r.s.sets[id] = set
	return nil
}

func (r *setRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.sets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.sets, id)
	return nil
}

func (r *setRepository) DeleteByExercises(_ context.Context, exerciseIDs []primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	wanted := idSet(exerciseIDs)
	var n int64
	for id, set := range r.s.sets {
		if _, ok := wanted[set.SessionExerciseID]; ok {
			delete(r.s.sets, id)
			n++
		}
	}
	return n, nil
}
