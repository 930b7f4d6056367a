package mongo

import (
	"alcyxob/workout-tracker/internal/domain"
	"alcyxob/workout-tracker/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sessionExerciseCollectionName = "session_exercises"

// mongoSessionExerciseRepository implements repository.SessionExerciseRepository
type mongoSessionExerciseRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionExerciseRepository creates a new SessionExercise repository.
func NewMongoSessionExerciseRepository(db *mongo.Database) repository.SessionExerciseRepository {
	return &mongoSessionExerciseRepository{
		collection: db.Collection(sessionExerciseCollectionName),
	}
}

// Create inserts a new session exercise.
func (r *mongoSessionExerciseRepository) Create(ctx context.Context, exercise *domain.SessionExercise) (primitive.ObjectID, error) {
	if exercise.SessionID == primitive.NilObjectID || exercise.Name == "" {
		return primitive.NilObjectID, errors.New("session exercise requires sessionId and name")
	}
	exercise.ID = primitive.NewObjectID()

	result, err := r.collection.InsertOne(ctx, exercise)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves a session exercise by its ID.
func (r *mongoSessionExerciseRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.SessionExercise, error) {
	var exercise domain.SessionExercise
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&exercise)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &exercise, nil
}

// ListBySession retrieves the exercises of one session sorted by order.
func (r *mongoSessionExerciseRepository) ListBySession(ctx context.Context, sessionID primitive.ObjectID) ([]domain.SessionExercise, error) {
	return r.find(ctx, bson.M{"sessionId": sessionID})
}

// ListBySessions retrieves the exercises of several sessions, sorted by order within each.
func (r *mongoSessionExerciseRepository) ListBySessions(ctx context.Context, sessionIDs []primitive.ObjectID) ([]domain.SessionExercise, error) {
	if len(sessionIDs) == 0 {
		return []domain.SessionExercise{}, nil
	}
	return r.find(ctx, bson.M{"sessionId": bson.M{"$in": sessionIDs}})
}

func (r *mongoSessionExerciseRepository) find(ctx context.Context, filter bson.M) ([]domain.SessionExercise, error) {
	exercises := []domain.SessionExercise{}
	findOptions := options.Find().SetSort(bson.D{{Key: "sessionId", Value: 1}, {Key: "order", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

// CountBySession counts the exercises currently in a session.
func (r *mongoSessionExerciseRepository) CountBySession(ctx context.Context, sessionID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"sessionId": sessionID})
}

// MaxOrder returns the highest order value in the session, -1 when empty.
func (r *mongoSessionExerciseRepository) MaxOrder(ctx context.Context, sessionID primitive.ObjectID) (int, error) {
	findOptions := options.FindOne().
		SetSort(bson.D{{Key: "order", Value: -1}}).
		SetProjection(bson.M{"order": 1})

	var top struct {
		Order int `bson:"order"`
	}
	err := r.collection.FindOne(ctx, bson.M{"sessionId": sessionID}, findOptions).Decode(&top)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return -1, nil
		}
		return 0, err
	}
	return top.Order, nil
}

// DeleteBySession removes every exercise of a session.
func (r *mongoSessionExerciseRepository) DeleteBySession(ctx context.Context, sessionID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"sessionId": sessionID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureSessionExerciseIndexes creates necessary indexes. Call during startup.
func EnsureSessionExerciseIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Order is unique within a session
			Keys:    bson.D{{Key: "sessionId", Value: 1}, {Key: "order", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
