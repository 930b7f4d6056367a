package mongo

import (
	"alcyxob/workout-tracker/internal/repository"
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/multierr"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI
// and verifies it with a ping against the primary.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// The connect call is lazy; a ping tells us the server is really there.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes of every collection used by the
// repositories. Failures are logged and reported; the unique subject
// index is the only one correctness depends on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	steps := []struct {
		collection string
		ensure     func(context.Context, *mongo.Collection) error
	}{
		{userCollectionName, EnsureUserIndexes},
		{templateCollectionName, EnsureTemplateIndexes},
		{templateExerciseCollectionName, EnsureTemplateExerciseIndexes},
		{sessionCollectionName, EnsureSessionIndexes},
		{sessionExerciseCollectionName, EnsureSessionExerciseIndexes},
		{setCollectionName, EnsureSetIndexes},
	}

	var errs error
	for _, step := range steps {
		if err := step.ensure(ctx, db.Collection(step.collection)); err != nil {
			log.WithError(err).Warnf("failed to create indexes for collection %s", step.collection)
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// NewRepositories builds every Mongo repository over db.
func NewRepositories(db *mongo.Database) repository.Repositories {
	return repository.Repositories{
		Users:             NewMongoUserRepository(db),
		Templates:         NewMongoTemplateRepository(db),
		TemplateExercises: NewMongoTemplateExerciseRepository(db),
		Sessions:          NewMongoSessionRepository(db),
		SessionExercises:  NewMongoSessionExerciseRepository(db),
		Sets:              NewMongoSetRepository(db),
	}
}
