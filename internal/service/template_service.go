package service

import (
	"alcyxob/workout-tracker/internal/domain"
	"alcyxob/workout-tracker/internal/repository"
	"alcyxob/workout-tracker/internal/storage"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/multierr"
)

// maxDefaultSets bounds how many sets one exercise may generate per session start.
const maxDefaultSets = 100

// TemplateExerciseView is a template exercise with its image resolved.
type TemplateExerciseView struct {
	domain.TemplateExercise
	ImageURL *string `json:"imageUrl"`
}

// TemplateDetails is a template with its exercises ordered by Order.
type TemplateDetails struct {
	domain.WorkoutTemplate
	Exercises []TemplateExerciseView `json:"exercises"`
}

// NewTemplateExercise is the input of AddExerciseToTemplate.
type NewTemplateExercise struct {
	Name        string
	DefaultSets int
	DefaultReps int
	ImageKey    *string
}

// UploadDescriptor tells the client where to PUT an image and which key to
// report back afterwards.
type UploadDescriptor struct {
	UploadURL string `json:"uploadUrl"`
	ImageKey  string `json:"imageKey"`
}

type TemplateService interface {
	ListTemplates(ctx context.Context, identity domain.Identity) ([]domain.WorkoutTemplate, error)
	GetTemplate(ctx context.Context, identity domain.Identity, templateID primitive.ObjectID) (*TemplateDetails, error)
	CreateTemplate(ctx context.Context, identity domain.Identity, name string) (primitive.ObjectID, error)
	UpdateTemplateName(ctx context.Context, identity domain.Identity, templateID primitive.ObjectID, name string) error
	AddExerciseToTemplate(ctx context.Context, identity domain.Identity, templateID primitive.ObjectID, input NewTemplateExercise) (primitive.ObjectID, error)
	UpdateTemplateExercise(ctx context.Context, identity domain.Identity, exerciseID primitive.ObjectID, patch domain.TemplateExercisePatch) error
	RemoveTemplateExercise(ctx context.Context, identity domain.Identity, exerciseID primitive.ObjectID) error
	RemoveTemplate(ctx context.Context, identity domain.Identity, templateID primitive.ObjectID) error
	IssueUploadDescriptor(ctx context.Context, identity domain.Identity, contentType string) (*UploadDescriptor, error)
}

// templateService implements the TemplateService interface.
type templateService struct {
	userRepo     repository.UserRepository
	templateRepo repository.TemplateRepository
	exerciseRepo repository.TemplateExerciseRepository
	fileStorage  storage.FileStorage
	images       *ImageURLs
	now          func() time.Time
}

// NewTemplateService creates a new instance of templateService.
func NewTemplateService(
	userRepo repository.UserRepository,
	templateRepo repository.TemplateRepository,
	exerciseRepo repository.TemplateExerciseRepository,
	fileStorage storage.FileStorage,
	images *ImageURLs,
) TemplateService {
	return &templateService{
		userRepo:     userRepo,
		templateRepo: templateRepo,
		exerciseRepo: exerciseRepo,
		fileStorage:  fileStorage,
		images:       images,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// lookupUser resolves the local user of an identity without creating it.
func lookupUser(ctx context.Context, users repository.UserRepository, identity domain.Identity) (*domain.User, error) {
	user, err := users.GetBySubject(ctx, identity.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationError("name is required")
	}
	return name, nil
}

func checkExerciseCounts(sets, reps *int) error {
	if sets != nil && (*sets < 0 || *sets > maxDefaultSets) {
		return validationError("sets must be between 0 and %d", maxDefaultSets)
	}
	if reps != nil && *reps < 0 {
		return validationError("reps must not be negative")
	}
	return nil
}

// ownedTemplate loads a template and hides it unless the identity owns it.
func (s *templateService) ownedTemplate(ctx context.Context, identity domain.Identity, templateID primitive.ObjectID) (*domain.User, *domain.WorkoutTemplate, error) {
	user, err := lookupUser(ctx, s.userRepo, identity)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrTemplateNotFound
		}
		return nil, nil, err
	}
	template, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrTemplateNotFound
		}
		return nil, nil, err
	}
	if template.UserID != user.ID {
		return nil, nil, ErrTemplateNotFound
	}
	return user, template, nil
}

// ownedExercise loads a template exercise through its owning template.
func (s *templateService) ownedExercise(ctx context.Context, identity domain.Identity, exerciseID primitive.ObjectID) (*domain.User, *domain.TemplateExercise, error) {
	exercise, err := s.exerciseRepo.GetByID(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrTemplateExerciseNotFound
		}
		return nil, nil, err
	}
	user, _, err := s.ownedTemplate(ctx, identity, exercise.TemplateID)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return nil, nil, ErrTemplateExerciseNotFound
		}
		return nil, nil, err
	}
	return user, exercise, nil
}

// ListTemplates returns the caller's templates, newest first. A caller
// without a user record simply has none.
func (s *templateService) ListTemplates(ctx context.Context, identity domain.Identity) ([]domain.WorkoutTemplate, error) {
	user, err := lookupUser(ctx, s.userRepo, identity)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return []domain.WorkoutTemplate{}, nil
		}
		return nil, err
	}
	return s.templateRepo.ListByUser(ctx, user.ID)
}

// GetTemplate returns nil, nil when the template does not exist for the caller.
func (s *templateService) GetTemplate(ctx context.Context, identity domain.Identity, templateID primitive.ObjectID) (*TemplateDetails, error) {
	_, template, err := s.ownedTemplate(ctx, identity, templateID)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return nil, nil
		}
		return nil, err
	}

	exercises, err := s.exerciseRepo.ListByTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	details := &TemplateDetails{
		WorkoutTemplate: *template,
		Exercises:       make([]TemplateExerciseView, len(exercises)),
	}
	for i, exercise := range exercises {
		details.Exercises[i] = TemplateExerciseView{
			TemplateExercise: exercise,
			ImageURL:         s.images.resolve(ctx, exercise.ImageKey),
		}
	}
	return details, nil
}

// CreateTemplate creates the caller's user record on first use, then the template.
func (s *templateService) CreateTemplate(ctx context.Context, identity domain.Identity, name string) (primitive.ObjectID, error) {
	name, err := cleanName(name)
	if err != nil {
		return primitive.NilObjectID, err
	}

	user, err := s.userRepo.UpsertBySubject(ctx, identity.Subject, identity.Email)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("resolve user: %w", err)
	}

	template := &domain.WorkoutTemplate{
		UserID:    user.ID,
		Name:      name,
		CreatedAt: s.now(),
	}
	return s.templateRepo.Create(ctx, template)
}

func (s *templateService) UpdateTemplateName(ctx context.Context, identity domain.Identity, templateID primitive.ObjectID, name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	if _, _, err := s.ownedTemplate(ctx, identity, templateID); err != nil {
		return err
	}
	if err := s.templateRepo.UpdateName(ctx, templateID, name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTemplateNotFound
		}
		return err
	}
	return nil
}

// AddExerciseToTemplate appends an exercise after the current highest order.
func (s *templateService) AddExerciseToTemplate(ctx context.Context, identity domain.Identity, templateID primitive.ObjectID, input NewTemplateExercise) (primitive.ObjectID, error) {
	name, err := cleanName(input.Name)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if err := checkExerciseCounts(&input.DefaultSets, &input.DefaultReps); err != nil {
		return primitive.NilObjectID, err
	}

	user, _, err := s.ownedTemplate(ctx, identity, templateID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if err := checkImageKey(user, input.ImageKey); err != nil {
		return primitive.NilObjectID, err
	}

	return insertAtNextPosition(func() (primitive.ObjectID, error) {
		maxOrder, err := s.exerciseRepo.MaxOrder(ctx, templateID)
		if err != nil {
			return primitive.NilObjectID, err
		}
		return s.exerciseRepo.Create(ctx, &domain.TemplateExercise{
			TemplateID:  templateID,
			Name:        name,
			ImageKey:    input.ImageKey,
			DefaultSets: input.DefaultSets,
			DefaultReps: input.DefaultReps,
			Order:       maxOrder + 1,
		})
	})
}

// UpdateTemplateExercise writes only the fields set in patch.
func (s *templateService) UpdateTemplateExercise(ctx context.Context, identity domain.Identity, exerciseID primitive.ObjectID, patch domain.TemplateExercisePatch) error {
	if patch.Name != nil {
		name, err := cleanName(*patch.Name)
		if err != nil {
			return err
		}
		patch.Name = &name
	}
	if err := checkExerciseCounts(patch.DefaultSets, patch.DefaultReps); err != nil {
		return err
	}

	user, _, err := s.ownedExercise(ctx, identity, exerciseID)
	if err != nil {
		return err
	}
	if err := checkImageKey(user, patch.ImageKey); err != nil {
		return err
	}

	if err := s.exerciseRepo.Update(ctx, exerciseID, patch); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTemplateExerciseNotFound
		}
		return err
	}
	return nil
}

// RemoveTemplateExercise deletes the exercise image, then the record.
// Sibling orders are left as they are.
func (s *templateService) RemoveTemplateExercise(ctx context.Context, identity domain.Identity, exerciseID primitive.ObjectID) error {
	_, exercise, err := s.ownedExercise(ctx, identity, exerciseID)
	if err != nil {
		return err
	}

	if exercise.ImageKey != nil && *exercise.ImageKey != "" {
		if err := s.fileStorage.DeleteObject(ctx, *exercise.ImageKey); err != nil {
			return fmt.Errorf("delete exercise image: %w", err)
		}
		s.images.forget(*exercise.ImageKey)
	}

	if err := s.exerciseRepo.Delete(ctx, exerciseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTemplateExerciseNotFound
		}
		return err
	}
	return nil
}

// RemoveTemplate deletes all exercise images, then the exercise records,
// then the template. If any image delete fails no record is touched, so
// the call can be repeated with the same ID.
func (s *templateService) RemoveTemplate(ctx context.Context, identity domain.Identity, templateID primitive.ObjectID) error {
	if _, _, err := s.ownedTemplate(ctx, identity, templateID); err != nil {
		return err
	}

	exercises, err := s.exerciseRepo.ListByTemplate(ctx, templateID)
	if err != nil {
		return err
	}

	var imageErrs error
	for _, exercise := range exercises {
		if exercise.ImageKey == nil || *exercise.ImageKey == "" {
			continue
		}
		imageErrs = multierr.Append(imageErrs, s.fileStorage.DeleteObject(ctx, *exercise.ImageKey))
		s.images.forget(*exercise.ImageKey)
	}
	if imageErrs != nil {
		return fmt.Errorf("delete template images: %w", imageErrs)
	}

	removed, err := s.exerciseRepo.DeleteByTemplate(ctx, templateID)
	if err != nil {
		return fmt.Errorf("delete template exercises: %w", err)
	}
	if err := s.templateRepo.Delete(ctx, templateID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	log.WithFields(log.Fields{
		"templateId": templateID.Hex(),
		"exercises":  removed,
	}).Info("template removed")
	return nil
}

// IssueUploadDescriptor presigns a PUT for a new image under the caller's prefix.
// The content type picks the key extension; the URL itself does not bind it.
func (s *templateService) IssueUploadDescriptor(ctx context.Context, identity domain.Identity, contentType string) (*UploadDescriptor, error) {
	ext, err := imageExtension(contentType)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.UpsertBySubject(ctx, identity.Subject, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	objectKey := path.Join(imageKeyRoot, user.ID.Hex(), fmt.Sprintf("%s.%s", uuid.NewString(), ext))
	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, s.images.expiry)
	if err != nil {
		return nil, ErrUploadURLError
	}

	return &UploadDescriptor{UploadURL: uploadURL, ImageKey: objectKey}, nil
}

// imageExtension derives a file extension from an image/* content type.
func imageExtension(contentType string) (string, error) {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	sub, ok := strings.CutPrefix(mediaType, "image/")
	if !ok || sub == "" {
		return "", validationError("content type must be image/*")
	}
	for _, r := range sub {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return "", validationError("invalid image content type %q", contentType)
		}
	}
	return sub, nil
}
