package service

import (
	"alcyxob/workout-tracker/internal/domain"
	"alcyxob/workout-tracker/internal/repository"
	"alcyxob/workout-tracker/internal/repository/memory"
	"alcyxob/workout-tracker/internal/storage"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	alice = domain.Identity{Subject: "user_alice", Email: "alice@example.com"}
	bob   = domain.Identity{Subject: "user_bob", Email: "bob@example.com"}
)

type fixture struct {
	repos     repository.Repositories
	files     *storage.MemoryStorage
	templates *templateService
	sessions  *sessionService
	clockMu   sync.Mutex
	clock     time.Time
}

// newFixture wires both services over a fresh memory store. The shared
// clock advances one minute per reading so start times are distinct.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repos: memory.NewStore().Repositories(),
		files: storage.NewMemoryStorage("https://files.test"),
		clock: time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC),
	}
	now := func() time.Time {
		f.clockMu.Lock()
		defer f.clockMu.Unlock()
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	}

	images := NewImageURLs(f.files, time.Hour)
	templates, ok := NewTemplateService(
		f.repos.Users, f.repos.Templates, f.repos.TemplateExercises,
		f.files, images,
	).(*templateService)
	require.True(t, ok)
	templates.now = now

	sessions, ok := NewSessionService(
		f.repos.Users, f.repos.Templates, f.repos.TemplateExercises,
		f.repos.Sessions, f.repos.SessionExercises, f.repos.Sets,
		images,
	).(*sessionService)
	require.True(t, ok)
	sessions.now = now

	f.templates = templates
	f.sessions = sessions
	return f
}

type exerciseSpec struct {
	name        string
	defaultSets int
	defaultReps int
}

// seedTemplate creates a template owned by identity with the given exercises.
func (f *fixture) seedTemplate(t *testing.T, identity domain.Identity, name string, exercises ...exerciseSpec) (primitive.ObjectID, []primitive.ObjectID) {
	t.Helper()
	ctx := context.Background()

	templateID, err := f.templates.CreateTemplate(ctx, identity, name)
	require.NoError(t, err)

	ids := make([]primitive.ObjectID, 0, len(exercises))
	for _, e := range exercises {
		id, err := f.templates.AddExerciseToTemplate(ctx, identity, templateID, NewTemplateExercise{
			Name:        e.name,
			DefaultSets: e.defaultSets,
			DefaultReps: e.defaultReps,
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return templateID, ids
}

func (f *fixture) userOf(t *testing.T, identity domain.Identity) *domain.User {
	t.Helper()
	user, err := f.repos.Users.GetBySubject(context.Background(), identity.Subject)
	require.NoError(t, err)
	return user
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func boolPtr(v bool) *bool { return &v }

func stringPtr(v string) *string { return &v }
