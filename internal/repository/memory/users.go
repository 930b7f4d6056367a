package memory

import (
	"alcyxob/workout-tracker/internal/domain"
	"alcyxob/workout-tracker/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userRepository struct{ s *Store }

func (r *userRepository) UpsertBySubject(_ context.Context, subject, email string) (*domain.User, error) {
	if subject == "" {
		return nil, errors.New("identity subject is required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Subject == subject {
			return &u, nil
		}
	}
	u := domain.User{
		ID:        primitive.NewObjectID(),
		Subject:   subject,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	r.s.users[u.ID] = u
	return &u, nil
}

func (r *userRepository) GetBySubject(_ context.Context, subject string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Subject == subject {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}
