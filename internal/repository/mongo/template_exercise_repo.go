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

const templateExerciseCollectionName = "template_exercises"

// mongoTemplateExerciseRepository implements repository.TemplateExerciseRepository
type mongoTemplateExerciseRepository struct {
	collection *mongo.Collection
}

// NewMongoTemplateExerciseRepository creates a new TemplateExercise repository backed by MongoDB.
func NewMongoTemplateExerciseRepository(db *mongo.Database) repository.TemplateExerciseRepository {
	return &mongoTemplateExerciseRepository{
		collection: db.Collection(templateExerciseCollectionName),
	}
}

// Create inserts a new template exercise. Order must already be assigned.
func (r *mongoTemplateExerciseRepository) Create(ctx context.Context, exercise *domain.TemplateExercise) (primitive.ObjectID, error) {
	if exercise.Name == "" || exercise.TemplateID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("exercise name and template ID are required")
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

// GetByID retrieves a template exercise by its ID.
func (r *mongoTemplateExerciseRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TemplateExercise, error) {
	var exercise domain.TemplateExercise
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&exercise)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &exercise, nil
}

// ListByTemplate retrieves the exercises of a template sorted by order.
func (r *mongoTemplateExerciseRepository) ListByTemplate(ctx context.Context, templateID primitive.ObjectID) ([]domain.TemplateExercise, error) {
	exercises := []domain.TemplateExercise{}
	findOptions := options.Find().SetSort(bson.D{{Key: "order", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"templateId": templateID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

// MaxOrder returns the highest order value in the template, -1 when empty.
func (r *mongoTemplateExerciseRepository) MaxOrder(ctx context.Context, templateID primitive.ObjectID) (int, error) {
	findOptions := options.FindOne().
		SetSort(bson.D{{Key: "order", Value: -1}}).
		SetProjection(bson.M{"order": 1})

	var top struct {
		Order int `bson:"order"`
	}
	err := r.collection.FindOne(ctx, bson.M{"templateId": templateID}, findOptions).Decode(&top)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return -1, nil
		}
		return 0, err
	}
	return top.Order, nil
}

// Update writes only the fields present in the patch.
func (r *mongoTemplateExerciseRepository) Update(ctx context.Context, id primitive.ObjectID, patch domain.TemplateExercisePatch) error {
	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.DefaultSets != nil {
		set["defaultSets"] = *patch.DefaultSets
	}
	if patch.DefaultReps != nil {
		set["defaultReps"] = *patch.DefaultReps
	}
	if patch.ImageKey != nil {
		set["imageKey"] = *patch.ImageKey
	}
	if len(set) == 0 {
		// Nothing to write; still report a missing document.
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

// Delete removes a single template exercise.
func (r *mongoTemplateExerciseRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByTemplate removes every exercise of a template. Deleting nothing is not an error.
func (r *mongoTemplateExerciseRepository) DeleteByTemplate(ctx context.Context, templateID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"templateId": templateID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureTemplateExerciseIndexes creates necessary indexes. Call during startup.
func EnsureTemplateExerciseIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Order is unique within a template
			Keys:    bson.D{{Key: "templateId", Value: 1}, {Key: "order", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
