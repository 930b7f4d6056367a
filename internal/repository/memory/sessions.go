package memory

import (
	"alcyxob/workout-tracker/internal/domain"
	"alcyxob/workout-tracker/internal/repository"
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type sessionRepository struct{ s *Store }

func (r *sessionRepository) Create(_ context.Context, session *domain.WorkoutSession) (primitive.ObjectID, error) {
	if session.UserID == primitive.NilObjectID || session.Name == "" {
		return primitive.NilObjectID, errors.New("session requires userId and name")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session.ID = primitive.NewObjectID()
	r.s.sessions[session.ID] = *session
	return session.ID, nil
}

func (r *sessionRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.WorkoutSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	session, ok := r.s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &session, nil
}

func (r *sessionRepository) byUser(userID primitive.ObjectID, keep func(domain.WorkoutSession) bool) []domain.WorkoutSession {
	sessions := []domain.WorkoutSession{}
	for _, session := range r.s.sessions {
		if session.UserID == userID && keep(session) {
			sessions = append(sessions, session)
		}
	}
	newerFirst(sessions, func(s domain.WorkoutSession) (int64, primitive.ObjectID) {
		return s.StartedAt.UnixNano(), s.ID
	})
	return sessions
}

func (r *sessionRepository) ListByUser(_ context.Context, userID primitive.ObjectID, limit int64) ([]domain.WorkoutSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sessions := r.byUser(userID, func(domain.WorkoutSession) bool { return true })
	if limit > 0 && int64(len(sessions)) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (r *sessionRepository) FindLatestIncomplete(_ context.Context, userID primitive.ObjectID) (*domain.WorkoutSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sessions := r.byUser(userID, func(s domain.WorkoutSession) bool { return !s.Completed })
	if len(sessions) == 0 {
		return nil, repository.ErrNotFound
	}
	return &sessions[0], nil
}

func (r *sessionRepository) MarkCompleted(_ context.Context, id primitive.ObjectID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	session.Completed = true
	session.CompletedAt = &at
	r.s.sessions[id] = session
	return nil
}

func (r *sessionRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.sessions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.sessions, id)
	return nil
}

type sessionExerciseRepository struct{ s *Store }

func (r *sessionExerciseRepository) Create(_ context.Context, e *domain.SessionExercise) (primitive.ObjectID, error) {
	if e.SessionID == primitive.NilObjectID || e.Name == "" {
		return primitive.NilObjectID, errors.New("session exercise requires sessionId and name")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.sessionExercises {
		if existing.SessionID == e.SessionID && existing.Order == e.Order {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	e.ID = primitive.NewObjectID()
	stored := *e
	stored.ImageKey = cloneString(e.ImageKey)
	r.s.sessionExercises[e.ID] = stored
	return e.ID, nil
}

func (r *sessionExerciseRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.SessionExercise, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.sessionExercises[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r *sessionExerciseRepository) ListBySession(ctx context.Context, sessionID primitive.ObjectID) ([]domain.SessionExercise, error) {
	return r.ListBySessions(ctx, []primitive.ObjectID{sessionID})
}

func (r *sessionExerciseRepository) ListBySessions(_ context.Context, sessionIDs []primitive.ObjectID) ([]domain.SessionExercise, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wanted := idSet(sessionIDs)
	exercises := []domain.SessionExercise{}
	for _, e := range r.s.sessionExercises {
		if _, ok := wanted[e.SessionID]; ok {
			exercises = append(exercises, e)
		}
	}
	sort.Slice(exercises, func(i, j int) bool {
		if exercises[i].SessionID != exercises[j].SessionID {
			return exercises[i].SessionID.Hex() < exercises[j].SessionID.Hex()
		}
		return exercises[i].Order < exercises[j].Order
	})
	return exercises, nil
}

func (r *sessionExerciseRepository) CountBySession(_ context.Context, sessionID primitive.ObjectID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, e := range r.s.sessionExercises {
		if e.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

func (r *sessionExerciseRepository) MaxOrder(_ context.Context, sessionID primitive.ObjectID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	highest := -1
	for _, e := range r.s.sessionExercises {
		if e.SessionID == sessionID && e.Order > highest {
			highest = e.Order
		}
	}
	return highest, nil
}

func (r *sessionExerciseRepository) DeleteBySession(_ context.Context, sessionID primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, e := range r.s.sessionExercises {
		if e.SessionID == sessionID {
			delete(r.s.sessionExercises, id)
			n++
		}
	}
	return n, nil
}
