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

const setCollectionName = "sets"

// mongoSetRepository implements repository.SetRepository
type mongoSetRepository struct {
	collection *mongo.Collection
}

// NewMongoSetRepository creates a new Set repository.
func NewMongoSetRepository(db *mongo.Database) repository.SetRepository {
	return &mongoSetRepository{
		collection: db.Collection(setCollectionName),
	}
}

// Create inserts a single set.
func (r *mongoSetRepository) Create(ctx context.Context, set *domain.Set) (primitive.ObjectID, error) {
	if set.SessionExerciseID == primitive.NilObjectID || set.SetNumber < 1 {
		return primitive.NilObjectID, errors.New("set requires sessionExerciseId and a positive set number")
	}
	set.ID = primitive.NewObjectID()

	result, err := r.collection.InsertOne(ctx, set)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted set ID")
	}
	return insertedID, nil
}

// CreateMany inserts a batch of sets in one round trip.
func (r *mongoSetRepository) CreateMany(ctx context.Context, sets []*domain.Set) ([]primitive.ObjectID, error) {
	if len(sets) == 0 {
		return []primitive.ObjectID{}, nil
	}
	docs := make([]interface{}, len(sets))
	ids := make([]primitive.ObjectID, len(sets))
	for i, set := range sets {
		if set.SessionExerciseID == primitive.NilObjectID || set.SetNumber < 1 {
			return nil, errors.New("set requires sessionExerciseId and a positive set number")
		}
		set.ID = primitive.NewObjectID()
		docs[i] = set
		ids[i] = set.ID
	}

	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	return ids, nil
}

// GetByID retrieves a set by its ID.
func (r *mongoSetRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Set, error) {
	var set domain.Set
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&set)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &set, nil
}

// ListByExercises retrieves the sets of the given exercises, sorted by set number.
func (r *mongoSetRepository) ListByExercises(ctx context.Context, exerciseIDs []primitive.ObjectID) ([]domain.Set, error) {
	sets := []domain.Set{}
	if len(exerciseIDs) == 0 {
		return sets, nil
	}
	filter := bson.M{"sessionExerciseId": bson.M{"$in": exerciseIDs}}
	findOptions := options.Find().SetSort(bson.D{{Key: "sessionExerciseId", Value: 1}, {Key: "setNumber", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &sets); err != nil {
		return nil, err
	}
	return sets, nil
}

// MaxSetNumber returns the highest set number of an exercise, 0 when it has none.
func (r *mongoSetRepository) MaxSetNumber(ctx context.Context, exerciseID primitive.ObjectID) (int, error) {
	findOptions := options.FindOne().
		SetSort(bson.D{{Key: "setNumber", Value: -1}}).
		SetProjection(bson.M{"setNumber": 1})

	var top struct {
		SetNumber int `bson:"setNumber"`
	}
	err := r.collection.FindOne(ctx, bson.M{"sessionExerciseId": exerciseID}, findOptions).Decode(&top)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}
	return top.SetNumber, nil
}

// Update writes only the fields present in the patch.
func (r *mongoSetRepository) Update(ctx context.Context, id primitive.ObjectID, patch domain.SetPatch) error {
	set := bson.M{}
	if patch.Weight != nil {
		set["weight"] = *patch.Weight
	}
	if patch.Reps != nil {
		set["reps"] = *patch.Reps
	}
	if patch.Completed != nil {
		set["completed"] = *patch.Completed
	}
	if len(set) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a single set.
func (r *mongoSetRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByExercises removes every set belonging to the given exercises.
func (r *mongoSetRepository) DeleteByExercises(ctx context.Context, exerciseIDs []primitive.ObjectID) (int64, error) {
	if len(exerciseIDs) == 0 {
		return 0, nil
	}
	result, err := r.collection.DeleteMany(ctx, bson.M{"sessionExerciseId": bson.M{"$in": exerciseIDs}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureSetIndexes creates necessary indexes. Call during startup.
func EnsureSetIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// One set per number within an exercise
			Keys:    bson.D{{Key: "sessionExerciseId", Value: 1}, {Key: "setNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
