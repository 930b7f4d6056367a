package service

import (
	"alcyxob/workout-tracker/internal/repository/memory"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStorage mints a distinct URL per presign call.
type countingStorage struct {
	presigns int
	fail     bool
}

func (s *countingStorage) GeneratePresignedUploadURL(_ context.Context, objectKey string, _ string, _ time.Duration) (string, error) {
	return "https://upload.test/" + objectKey, nil
}

func (s *countingStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	if s.fail {
		return "", errors.New("presign unavailable")
	}
	s.presigns++
	return fmt.Sprintf("https://files.test/%s?sig=%d", objectKey, s.presigns), nil
}

func (s *countingStorage) DeleteObject(context.Context, string) error {
	return nil
}

func TestImageURLs_Resolve(t *testing.T) {
	ctx := context.Background()
	key := "images/abc/1.png"

	t.Run("nil and empty keys", func(t *testing.T) {
		urls := NewImageURLs(&countingStorage{}, time.Hour)
		assert.Nil(t, urls.resolve(ctx, nil))
		assert.Nil(t, urls.resolve(ctx, stringPtr("")))
	})

	t.Run("repeated reads reuse the url", func(t *testing.T) {
		files := &countingStorage{}
		urls := NewImageURLs(files, time.Hour)

		first := urls.resolve(ctx, &key)
		second := urls.resolve(ctx, &key)
		require.NotNil(t, first)
		require.NotNil(t, second)
		assert.Equal(t, *first, *second)
		assert.Equal(t, 1, files.presigns)
	})

	t.Run("forget presigns again", func(t *testing.T) {
		files := &countingStorage{}
		urls := NewImageURLs(files, time.Hour)

		first := urls.resolve(ctx, &key)
		urls.forget(key)
		second := urls.resolve(ctx, &key)
		require.NotNil(t, first)
		require.NotNil(t, second)
		assert.NotEqual(t, *first, *second)
		assert.Equal(t, 2, files.presigns)
	})

	t.Run("sub-second expiry is not cached", func(t *testing.T) {
		files := &countingStorage{}
		urls := NewImageURLs(files, time.Second)

		urls.resolve(ctx, &key)
		urls.resolve(ctx, &key)
		assert.Equal(t, 2, files.presigns)
	})

	t.Run("presign failure degrades to nil", func(t *testing.T) {
		urls := NewImageURLs(&countingStorage{fail: true}, time.Hour)
		assert.Nil(t, urls.resolve(ctx, &key))
	})
}

func TestImageURLs_DeleteEvictsForEveryService(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	files := &countingStorage{}
	images := NewImageURLs(files, time.Hour)
	templates := NewTemplateService(repos.Users, repos.Templates, repos.TemplateExercises, files, images)
	sessions := NewSessionService(
		repos.Users, repos.Templates, repos.TemplateExercises,
		repos.Sessions, repos.SessionExercises, repos.Sets,
		images,
	)

	templateID, err := templates.CreateTemplate(ctx, alice, "Pictured")
	require.NoError(t, err)
	user, err := repos.Users.GetBySubject(ctx, alice.Subject)
	require.NoError(t, err)
	key := "images/" + user.ID.Hex() + "/squat.png"
	exerciseID, err := templates.AddExerciseToTemplate(ctx, alice, templateID, NewTemplateExercise{Name: "Squat", DefaultSets: 1, DefaultReps: 5, ImageKey: &key})
	require.NoError(t, err)

	sessionID, err := sessions.StartFromTemplate(ctx, alice, templateID)
	require.NoError(t, err)
	imageURL := func() string {
		details, err := sessions.GetSession(ctx, alice, sessionID)
		require.NoError(t, err)
		require.Len(t, details.Exercises, 1)
		require.NotNil(t, details.Exercises[0].ImageURL)
		return *details.Exercises[0].ImageURL
	}

	first := imageURL()
	assert.Equal(t, first, imageURL())
	assert.Equal(t, 1, files.presigns)

	require.NoError(t, templates.RemoveTemplateExercise(ctx, alice, exerciseID))
	assert.NotEqual(t, first, imageURL(), "the session no longer gets the cached url of the deleted object")
	assert.Equal(t, 2, files.presigns)
}
