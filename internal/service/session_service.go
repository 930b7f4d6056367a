package service

import (
	"alcyxob/workout-tracker/internal/domain"
	"alcyxob/workout-tracker/internal/repository"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	unknownTemplateName = "Unknown"

	defaultSessionExerciseSets = 1
	defaultSessionExerciseReps = 10

	defaultRecentLimit = 10
	maxRecentLimit     = 100

	// Budget for cleaning up a half-copied session after the request context is gone.
	compensationTimeout = 5 * time.Second
)

// SessionExerciseView is a session exercise with its image and sets.
type SessionExerciseView struct {
	domain.SessionExercise
	ImageURL *string      `json:"imageUrl"`
	Sets     []domain.Set `json:"sets"`
}

// SessionDetails is the full view of one session.
type SessionDetails struct {
	domain.WorkoutSession
	TemplateName string                `json:"templateName"`
	Exercises    []SessionExerciseView `json:"exercises"`
}

// ActiveSession summarizes the session a user is currently training in.
type ActiveSession struct {
	ID              primitive.ObjectID `json:"id"`
	Name            string             `json:"name"`
	StartedAt       time.Time          `json:"startedAt"`
	CurrentExercise *CurrentExercise   `json:"currentExercise"`
	Progress        Progress           `json:"progress"`
}

// NewSessionExercise is the input of AddExerciseToSession. Nil counts
// fall back to one set of ten reps.
type NewSessionExercise struct {
	Name     string
	Sets     *int
	Reps     *int
	ImageKey *string
}

type SessionService interface {
	StartFromTemplate(ctx context.Context, identity domain.Identity, templateID primitive.ObjectID) (primitive.ObjectID, error)
	StartQuick(ctx context.Context, identity domain.Identity, name string) (primitive.ObjectID, error)
	GetSession(ctx context.Context, identity domain.Identity, sessionID primitive.ObjectID) (*SessionDetails, error)
	GetActiveSession(ctx context.Context, identity domain.Identity) (*ActiveSession, error)
	AddExerciseToSession(ctx context.Context, identity domain.Identity, sessionID primitive.ObjectID, input NewSessionExercise) (primitive.ObjectID, error)
	AddSet(ctx context.Context, identity domain.Identity, sessionExerciseID primitive.ObjectID, reps int, weight *float64) (primitive.ObjectID, error)
	RemoveSet(ctx context.Context, identity domain.Identity, setID primitive.ObjectID) error
	UpdateSet(ctx context.Context, identity domain.Identity, setID primitive.ObjectID, patch domain.SetPatch) error
	CompleteSession(ctx context.Context, identity domain.Identity, sessionID primitive.ObjectID) error
	GetProgress(ctx context.Context, identity domain.Identity, sessionID primitive.ObjectID) (*Progress, error)
	RemoveSession(ctx context.Context, identity domain.Identity, sessionID primitive.ObjectID) error
	ListRecent(ctx context.Context, identity domain.Identity, limit int) ([]domain.WorkoutSession, error)
	GetPastExercises(ctx context.Context, identity domain.Identity) ([]PastExercise, error)
}

// sessionService implements the SessionService interface.
type sessionService struct {
	userRepo             repository.UserRepository
	templateRepo         repository.TemplateRepository
	templateExerciseRepo repository.TemplateExerciseRepository
	sessionRepo          repository.SessionRepository
	sessionExerciseRepo  repository.SessionExerciseRepository
	setRepo              repository.SetRepository
	images               *ImageURLs
	now                  func() time.Time
}

// NewSessionService creates a new instance of sessionService.
func NewSessionService(
	userRepo repository.UserRepository,
	templateRepo repository.TemplateRepository,
	templateExerciseRepo repository.TemplateExerciseRepository,
	sessionRepo repository.SessionRepository,
	sessionExerciseRepo repository.SessionExerciseRepository,
	setRepo repository.SetRepository,
	images *ImageURLs,
) SessionService {
	return &sessionService{
		userRepo:             userRepo,
		templateRepo:         templateRepo,
		templateExerciseRepo: templateExerciseRepo,
		sessionRepo:          sessionRepo,
		sessionExerciseRepo:  sessionExerciseRepo,
		setRepo:              setRepo,
		images:               images,
		now:                  func() time.Time { return time.Now().UTC() },
	}
}

// --- Ownership helpers ---

func (s *sessionService) ownedSession(ctx context.Context, identity domain.Identity, sessionID primitive.ObjectID) (*domain.User, *domain.WorkoutSession, error) {
	user, err := lookupUser(ctx, s.userRepo, identity)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, err
	}
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, err
	}
	if session.UserID != user.ID {
		return nil, nil, ErrSessionNotFound
	}
	return user, session, nil
}

func (s *sessionService) ownedSessionExercise(ctx context.Context, identity domain.Identity, exerciseID primitive.ObjectID) (*domain.SessionExercise, error) {
	exercise, err := s.sessionExerciseRepo.GetByID(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionExerciseNotFound
		}
		return nil, err
	}
	if _, _, err := s.ownedSession(ctx, identity, exercise.SessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionExerciseNotFound
		}
		return nil, err
	}
	return exercise, nil
}

func (s *sessionService) ownedSet(ctx context.Context, identity domain.Identity, setID primitive.ObjectID) (*domain.Set, error) {
	set, err := s.setRepo.GetByID(ctx, setID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSetNotFound
		}
		return nil, err
	}
	if _, err := s.ownedSessionExercise(ctx, identity, set.SessionExerciseID); err != nil {
		if errors.Is(err, ErrSessionExerciseNotFound) {
			return nil, ErrSetNotFound
		}
		return nil, err
	}
	return set, nil
}

func checkWeight(weight *float64) error {
	if weight != nil && *weight < 0 {
		return validationError("weight must not be negative")
	}
	return nil
}

// --- Starting sessions ---

// StartFromTemplate copies the template's current structure into a new
// session. Later template edits do not reach sessions already started.
func (s *sessionService) StartFromTemplate(ctx context.Context, identity domain.Identity, templateID primitive.ObjectID) (primitive.ObjectID, error) {
	user, err := lookupUser(ctx, s.userRepo, identity)
	if err != nil {
		return primitive.NilObjectID, err
	}

	template, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return primitive.NilObjectID, ErrTemplateNotFound
		}
		return primitive.NilObjectID, err
	}
	if template.UserID != user.ID {
		return primitive.NilObjectID, ErrTemplateNotFound
	}

	templateExercises, err := s.templateExerciseRepo.ListByTemplate(ctx, templateID)
	if err != nil {
		return primitive.NilObjectID, err
	}

	session := &domain.WorkoutSession{
		UserID:     user.ID,
		TemplateID: &template.ID,
		Name:       template.Name,
		StartedAt:  s.now(),
		Completed:  false,
	}
	sessionID, err := s.sessionRepo.Create(ctx, session)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("create session: %w", err)
	}

	if err := s.copyTemplateExercises(ctx, sessionID, templateExercises); err != nil {
		// Leave no half-populated session behind; the caller can simply retry.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), compensationTimeout)
		defer cancel()
		if cleanupErr := s.removeSessionTree(cleanupCtx, sessionID); cleanupErr != nil {
			log.WithError(cleanupErr).WithField("sessionId", sessionID.Hex()).Error("failed to clean up partially started session")
		}
		return primitive.NilObjectID, fmt.Errorf("copy template exercises: %w", err)
	}

	log.WithFields(log.Fields{
		"sessionId":  sessionID.Hex(),
		"templateId": templateID.Hex(),
		"exercises":  len(templateExercises),
	}).Info("session started from template")
	return sessionID, nil
}

func (s *sessionService) copyTemplateExercises(ctx context.Context, sessionID primitive.ObjectID, templateExercises []domain.TemplateExercise) error {
	for _, te := range templateExercises {
		templateExerciseID := te.ID
		exerciseID, err := s.sessionExerciseRepo.Create(ctx, &domain.SessionExercise{
			SessionID:          sessionID,
			TemplateExerciseID: &templateExerciseID,
			Name:               te.Name,
			ImageKey:           te.ImageKey,
			Order:              te.Order,
		})
		if err != nil {
			return err
		}
		if err := s.createSets(ctx, exerciseID, te.DefaultSets, te.DefaultReps); err != nil {
			return err
		}
	}
	return nil
}

// createSets inserts count fresh sets numbered 1..count in one batch.
func (s *sessionService) createSets(ctx context.Context, exerciseID primitive.ObjectID, count, reps int) error {
	if count <= 0 {
		return nil
	}
	sets := make([]*domain.Set, count)
	for i := range sets {
		sets[i] = &domain.Set{
			SessionExerciseID: exerciseID,
			SetNumber:         i + 1,
			Reps:              reps,
			Completed:         false,
		}
	}
	_, err := s.setRepo.CreateMany(ctx, sets)
	return err
}

// StartQuick starts an empty session. A blank name becomes "Workout Jan 2"
// for the session's own start date.
func (s *sessionService) StartQuick(ctx context.Context, identity domain.Identity, name string) (primitive.ObjectID, error) {
	user, err := s.userRepo.UpsertBySubject(ctx, identity.Subject, identity.Email)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("resolve user: %w", err)
	}

	startedAt := s.now()
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Workout " + startedAt.Format("Jan 2")
	}

	session := &domain.WorkoutSession{
		UserID:    user.ID,
		Name:      name,
		StartedAt: startedAt,
		Completed: false,
	}
	sessionID, err := s.sessionRepo.Create(ctx, session)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("create session: %w", err)
	}

	log.WithField("sessionId", sessionID.Hex()).Info("quick session started")
	return sessionID, nil
}

// --- Reads ---

// GetSession returns nil, nil when the session does not exist for the caller.
func (s *sessionService) GetSession(ctx context.Context, identity domain.Identity, sessionID primitive.ObjectID) (*SessionDetails, error) {
	_, session, err := s.ownedSession(ctx, identity, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	templateName := unknownTemplateName
	if session.TemplateID != nil {
		template, err := s.templateRepo.GetByID(ctx, *session.TemplateID)
		switch {
		case err == nil:
			templateName = template.Name
		case !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
	}

	exercises, setsByExercise, err := s.loadStructure(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	details := &SessionDetails{
		WorkoutSession: *session,
		TemplateName:   templateName,
		Exercises:      make([]SessionExerciseView, len(exercises)),
	}
	for i, exercise := range exercises {
		sets := setsByExercise[exercise.ID]
		if sets == nil {
			sets = []domain.Set{}
		}
		details.Exercises[i] = SessionExerciseView{
			SessionExercise: exercise,
			ImageURL:        s.images.resolve(ctx, exercise.ImageKey),
			Sets:            sets,
		}
	}
	return details, nil
}

// loadStructure returns the session's exercises by order and their sets
// by set number.
func (s *sessionService) loadStructure(ctx context.Context, sessionID primitive.ObjectID) ([]domain.SessionExercise, map[primitive.ObjectID][]domain.Set, error) {
	exercises, err := s.sessionExerciseRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if len(exercises) == 0 {
		return exercises, map[primitive.ObjectID][]domain.Set{}, nil
	}

	ids := make([]primitive.ObjectID, len(exercises))
	for i, exercise := range exercises {
		ids[i] = exercise.ID
	}
	sets, err := s.setRepo.ListByExercises(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return exercises, groupSets(sets), nil
}

// GetActiveSession returns nil, nil when the user has no incomplete session.
func (s *sessionService) GetActiveSession(ctx context.Context, identity domain.Identity) (*ActiveSession, error) {
	user, err := lookupUser(ctx, s.userRepo, identity)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}

	session, err := s.sessionRepo.FindLatestIncomplete(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	exercises, setsByExercise, err := s.loadStructure(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	current, progress := summarize(exercises, setsByExercise)

	return &ActiveSession{
		ID:              session.ID,
		Name:            session.Name,
		StartedAt:       session.StartedAt,
		CurrentExercise: current,
		Progress:        progress,
	}, nil
}

// GetProgress returns nil, nil when the session does not exist for the caller.
func (s *sessionService) GetProgress(ctx context.Context, identity domain.Identity, sessionID primitive.ObjectID) (*Progress, error) {
	if _, _, err := s.ownedSession(ctx, identity, sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	exercises, setsByExercise, err := s.loadStructure(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	_, progress := summarize(exercises, setsByExercise)
	return &progress, nil
}

// ListRecent returns the caller's newest sessions. limit <= 0 selects the
// default and larger values are capped.
func (s *sessionService) ListRecent(ctx context.Context, identity domain.Identity, limit int) ([]domain.WorkoutSession, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	user, err := lookupUser(ctx, s.userRepo, identity)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return []domain.WorkoutSession{}, nil
		}
		return nil, err
	}
	return s.sessionRepo.ListByUser(ctx, user.ID, int64(limit))
}

// GetPastExercises lists each exercise name the caller has trained, with
// the numbers from its most recent session.
func (s *sessionService) GetPastExercises(ctx context.Context, identity domain.Identity) ([]PastExercise, error) {
	user, err := lookupUser(ctx, s.userRepo, identity)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return []PastExercise{}, nil
		}
		return nil, err
	}

	sessions, err := s.sessionRepo.ListByUser(ctx, user.ID, 0)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return []PastExercise{}, nil
	}

	sessionIDs := make([]primitive.ObjectID, len(sessions))
	for i, session := range sessions {
		sessionIDs[i] = session.ID
	}
	exercises, err := s.sessionExerciseRepo.ListBySessions(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}

	exerciseIDs := make([]primitive.ObjectID, len(exercises))
	for i, exercise := range exercises {
		exerciseIDs[i] = exercise.ID
	}
	var sets []domain.Set
	if len(exerciseIDs) > 0 {
		if sets, err = s.setRepo.ListByExercises(ctx, exerciseIDs); err != nil {
			return nil, err
		}
	}

	past := buildPastExercises(sessions, exercises, sets)
	for i := range past {
		past[i].ImageURL = s.images.resolve(ctx, past[i].ImageKey)
	}
	return past, nil
}

// --- Mutations ---

// AddExerciseToSession appends an exercise with fresh sets. Completed
// sessions accept no new exercises.
func (s *sessionService) AddExerciseToSession(ctx context.Context, identity domain.Identity, sessionID primitive.ObjectID, input NewSessionExercise) (primitive.ObjectID, error) {
	name, err := cleanName(input.Name)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if err := checkExerciseCounts(input.Sets, input.Reps); err != nil {
		return primitive.NilObjectID, err
	}

	user, session, err := s.ownedSession(ctx, identity, sessionID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if session.Completed {
		return primitive.NilObjectID, ErrSessionCompleted
	}
	if err := checkImageKey(user, input.ImageKey); err != nil {
		return primitive.NilObjectID, err
	}

	sets, reps := defaultSessionExerciseSets, defaultSessionExerciseReps
	if input.Sets != nil {
		sets = *input.Sets
	}
	if input.Reps != nil {
		reps = *input.Reps
	}

	exerciseID, err := insertAtNextPosition(func() (primitive.ObjectID, error) {
		order, err := s.nextSessionOrder(ctx, sessionID)
		if err != nil {
			return primitive.NilObjectID, err
		}
		return s.sessionExerciseRepo.Create(ctx, &domain.SessionExercise{
			SessionID: sessionID,
			Name:      name,
			ImageKey:  input.ImageKey,
			Order:     order,
		})
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	if err := s.createSets(ctx, exerciseID, sets, reps); err != nil {
		return primitive.NilObjectID, fmt.Errorf("create sets: %w", err)
	}
	return exerciseID, nil
}

// nextSessionOrder is the exercise count. Orders copied from a template
// with gaps can already hold that value, in which case the exercise goes
// after the highest order instead.
func (s *sessionService) nextSessionOrder(ctx context.Context, sessionID primitive.ObjectID) (int, error) {
	count, err := s.sessionExerciseRepo.CountBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	highest, err := s.sessionExerciseRepo.MaxOrder(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if int(count) <= highest {
		return highest + 1, nil
	}
	return int(count), nil
}

// AddSet appends a set numbered after the highest existing number.
func (s *sessionService) AddSet(ctx context.Context, identity domain.Identity, sessionExerciseID primitive.ObjectID, reps int, weight *float64) (primitive.ObjectID, error) {
	if reps < 0 {
		return primitive.NilObjectID, validationError("reps must not be negative")
	}
	if err := checkWeight(weight); err != nil {
		return primitive.NilObjectID, err
	}

	if _, err := s.ownedSessionExercise(ctx, identity, sessionExerciseID); err != nil {
		return primitive.NilObjectID, err
	}

	return insertAtNextPosition(func() (primitive.ObjectID, error) {
		highest, err := s.setRepo.MaxSetNumber(ctx, sessionExerciseID)
		if err != nil {
			return primitive.NilObjectID, err
		}
		return s.setRepo.Create(ctx, &domain.Set{
			SessionExerciseID: sessionExerciseID,
			SetNumber:         highest + 1,
			Weight:            weight,
			Reps:              reps,
			Completed:         false,
		})
	})
}

// RemoveSet deletes one set. Remaining sets keep their numbers.
func (s *sessionService) RemoveSet(ctx context.Context, identity domain.Identity, setID primitive.ObjectID) error {
	if _, err := s.ownedSet(ctx, identity, setID); err != nil {
		return err
	}
	if err := s.setRepo.Delete(ctx, setID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSetNotFound
		}
		return err
	}
	return nil
}

// UpdateSet writes only the fields set in patch.
func (s *sessionService) UpdateSet(ctx context.Context, identity domain.Identity, setID primitive.ObjectID, patch domain.SetPatch) error {
	if patch.Reps != nil && *patch.Reps < 0 {
		return validationError("reps must not be negative")
	}
	if err := checkWeight(patch.Weight); err != nil {
		return err
	}

	if _, err := s.ownedSet(ctx, identity, setID); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}
	if err := s.setRepo.Update(ctx, setID, patch); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSetNotFound
		}
		return err
	}
	return nil
}

// CompleteSession marks the session completed now. Calling it again
// rewrites the completion time.
func (s *sessionService) CompleteSession(ctx context.Context, identity domain.Identity, sessionID primitive.ObjectID) error {
	if _, _, err := s.ownedSession(ctx, identity, sessionID); err != nil {
		return err
	}
	if err := s.sessionRepo.MarkCompleted(ctx, sessionID, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	log.WithField("sessionId", sessionID.Hex()).Info("session completed")
	return nil
}

// RemoveSession deletes the session with its exercises and sets. Images
// are kept since their keys may still be referenced by a template.
func (s *sessionService) RemoveSession(ctx context.Context, identity domain.Identity, sessionID primitive.ObjectID) error {
	if _, _, err := s.ownedSession(ctx, identity, sessionID); err != nil {
		return err
	}
	return s.removeSessionTree(ctx, sessionID)
}

// removeSessionTree deletes deepest first. Every step is a bulk delete by
// parent, so repeating the call after a partial failure finishes the job.
func (s *sessionService) removeSessionTree(ctx context.Context, sessionID primitive.ObjectID) error {
	exercises, err := s.sessionExerciseRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return err
	}

	if len(exercises) > 0 {
		ids := make([]primitive.ObjectID, len(exercises))
		for i, exercise := range exercises {
			ids[i] = exercise.ID
		}
		if _, err := s.setRepo.DeleteByExercises(ctx, ids); err != nil {
			return fmt.Errorf("delete sets: %w", err)
		}
	}

	if _, err := s.sessionExerciseRepo.DeleteBySession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session exercises: %w", err)
	}
	if err := s.sessionRepo.Delete(ctx, sessionID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
