package memory

import (
	"alcyxob/workout-tracker/internal/domain"
	"alcyxob/workout-tracker/internal/repository"
	"context"
	"errors"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type templateRepository struct{ s *Store }

func (r *templateRepository) Create(_ context.Context, t *domain.WorkoutTemplate) (primitive.ObjectID, error) {
	if t.Name == "" || t.UserID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("template name and user ID are required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t.ID = primitive.NewObjectID()
	r.s.templates[t.ID] = *t
	return t.ID, nil
}

func (r *templateRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.WorkoutTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *templateRepository) ListByUser(_ context.Context, userID primitive.ObjectID) ([]domain.WorkoutTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	templates := []domain.WorkoutTemplate{}
	for _, t := range r.s.templates {
		if t.UserID == userID {
			templates = append(templates, t)
		}
	}
	newerFirst(templates, func(t domain.WorkoutTemplate) (int64, primitive.ObjectID) {
		return t.CreatedAt.UnixNano(), t.ID
	})
	return templates, nil
}

func (r *templateRepository) UpdateName(_ context.Context, id primitive.ObjectID, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.templates[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.Name = name
	r.s.templates[id] = t
	return nil
}

func (r *templateRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.templates[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.templates, id)
	return nil
}

type templateExerciseRepository struct{ s *Store }

func (r *templateExerciseRepository) Create(_ context.Context, e *domain.TemplateExercise) (primitive.ObjectID, error) {
	if e.Name == "" || e.TemplateID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("exercise name and template ID are required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.templateExercises {
		if existing.TemplateID == e.TemplateID && existing.Order == e.Order {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	e.ID = primitive.NewObjectID()
	stored := *e
	stored.ImageKey = cloneString(e.ImageKey)
	r.s.templateExercises[e.ID] = stored
	return e.ID, nil
}

func (r *templateExerciseRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.TemplateExercise, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.templateExercises[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r *templateExerciseRepository) ListByTemplate(_ context.Context, templateID primitive.ObjectID) ([]domain.TemplateExercise, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	exercises := []domain.TemplateExercise{}
	for _, e := range r.s.templateExercises {
		if e.TemplateID == templateID {
			exercises = append(exercises, e)
		}
	}
	sort.Slice(exercises, func(i, j int) bool { return exercises[i].Order < exercises[j].Order })
	return exercises, nil
}

func (r *templateExerciseRepository) MaxOrder(_ context.Context, templateID primitive.ObjectID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	highest := -1
	for _, e := range r.s.templateExercises {
		if e.TemplateID == templateID && e.Order > highest {
			highest = e.Order
		}
	}
	return highest, nil
}

func (r *templateExerciseRepository) Update(_ context.Context, id primitive.ObjectID, patch domain.TemplateExercisePatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.templateExercises[id]
	if !ok {
		return repository.ErrNotFound
	}
	if patch.Name != nil {
		e.Name = *patch.Name
	}
	if patch.DefaultSets != nil {
		e.DefaultSets = *patch.DefaultSets
	}
	if patch.DefaultReps != nil {
		e.DefaultReps = *patch.DefaultReps
	}
	if patch.ImageKey != nil {
		e.ImageKey = cloneString(patch.ImageKey)
	}
	r.s.templateExercises[id] = e
	return nil
}

func (r *templateExerciseRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.templateExercises[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.templateExercises, id)
	return nil
}

func (r *templateExerciseRepository) DeleteByTemplate(_ context.Context, templateID primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, e := range r.s.templateExercises {
		if e.TemplateID == templateID {
			delete(r.s.templateExercises, id)
			n++
		}
	}
	return n, nil
}
