package mongo

import (
	"alcyxob/workout-tracker/internal/domain"
	"alcyxob/workout-tracker/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const userCollectionName = "users"

// mongoUserRepository implements the repository.UserRepository interface using MongoDB.
type mongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new instance of mongoUserRepository.
// It expects a connected *mongo.Database instance.
func NewMongoUserRepository(db *mongo.Database) repository.UserRepository {
	return &mongoUserRepository{
		collection: db.Collection(userCollectionName),
	}
}

// UpsertBySubject finds the user for subject or inserts it in the same
// round trip. The unique index on subject turns a lost race into a
// duplicate key error, after which the winner's record is read back.
func (r *mongoUserRepository) UpsertBySubject(ctx context.Context, subject, email string) (*domain.User, error) {
	if subject == "" {
		return nil, errors.New("identity subject is required")
	}

	filter := bson.M{"subject": subject}
	update := bson.M{
		"$setOnInsert": bson.M{
			"subject":   subject,
			"email":     email,
			"createdAt": time.Now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var user domain.User
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return r.GetBySubject(ctx, subject)
		}
		return nil, err
	}
	return &user, nil
}

// GetBySubject retrieves a user by the identity provider subject.
func (r *mongoUserRepository) GetBySubject(ctx context.Context, subject string) (*domain.User, error) {
	var user domain.User
	err := r.collection.FindOne(ctx, bson.M{"subject": subject}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by their MongoDB ObjectID.
func (r *mongoUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	var user domain.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// EnsureUserIndexes creates necessary indexes for the users collection.
// Call this once during application startup.
func EnsureUserIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// One local user per identity; makes the lazy upsert race-safe.
			Keys:    bson.D{{Key: "subject", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
