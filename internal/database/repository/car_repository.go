package repository

import (
	"context"
	"fmt"

	"github.com/carcompare/compare-webserver/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CarCollection string = "cars"

// CarRepository contains the methods any db implementation needs to implement to interact with car documents
type CarRepository interface {
	Save(ctx context.Context, car *models.CarModel) (*models.CarModel, error)
	GetWithCarFilters(ctx context.Context, filters *bson.M, page *models.Page) ([]models.CarModel, error)
	CountWithCarFilters(ctx context.Context, filters *bson.M) (int64, error)
	GetCarFromId(ctx context.Context, id primitive.ObjectID) (*models.CarModel, error)
	GetCarsFromIds(ctx context.Context, ids []primitive.ObjectID) ([]models.CarModel, error)
	UpdateCarFromId(ctx context.Context, id primitive.ObjectID, car *models.CarModel) error
	SetCarImage(ctx context.Context, id primitive.ObjectID, objectKey string) error
	DeleteCarFromId(ctx context.Context, id primitive.ObjectID) error
}

type MongoCarRepository struct {
	dbClient   *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
}

func NewMongoCarRepository(dbClient *mongo.Client, database *mongo.Database) (*MongoCarRepository, error) {
	collection := database.Collection(CarCollection)
	if collection == nil {
		return nil, fmt.Errorf("could not get collection %s", CarCollection)
	}

	return &MongoCarRepository{
		dbClient:   dbClient,
		db:         database,
		collection: collection,
	}, nil
}

// EnsureIndexes creates the indexes the variant and listing queries rely on
func (repo *MongoCarRepository) EnsureIndexes(ctx context.Context) error {
	_, err := repo.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "model_id", Value: 1}, {Key: "variant", Value: 1}}},
		{Keys: bson.D{{Key: "brand", Value: 1}, {Key: "model", Value: 1}, {Key: "variant", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("could not create indexes on %s: %w", CarCollection, err)
	}
	return nil
}

// Inserts a CarModel into the MongoDB database
func (repo *MongoCarRepository) Save(ctx context.Context, car *models.CarModel) (*models.CarModel, error) {
	res, err := repo.collection.InsertOne(ctx, car)
	if err != nil {
		return nil, fmt.Errorf("could not insert car %s %s %s: %w", car.Brand, car.Model, car.Variant, err)
	}

	car.Id = res.InsertedID.(primitive.ObjectID)
	return car, nil
}

// Get cars from the MongoDB database with filters, ordered by brand, model and variant.
// A nil page returns every match.
func (repo *MongoCarRepository) GetWithCarFilters(ctx context.Context, filters *bson.M, page *models.Page) ([]models.CarModel, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "brand", Value: 1},
		{Key: "model", Value: 1},
		{Key: "variant", Value: 1},
	})
	if page != nil {
		opts.SetSkip(page.Skip()).SetLimit(int64(page.Size))
	}

	cursor, err := repo.collection.Find(ctx, filters, opts)
	if err != nil {
		return nil, fmt.Errorf("could not find cars with filters %v, received error: %w", filters, err)
	}

	var modelResults []models.CarModel
	if err = cursor.All(ctx, &modelResults); err != nil {
		return nil, err
	}

	if modelResults == nil {
		modelResults = make([]models.CarModel, 0)
	}

	return modelResults, nil
}

func (repo *MongoCarRepository) CountWithCarFilters(ctx context.Context, filters *bson.M) (int64, error) {
	count, err := repo.collection.CountDocuments(ctx, filters)
	if err != nil {
		return 0, fmt.Errorf("could not count cars with filters %v, received error: %w", filters, err)
	}
	return count, nil
}

// Get a CarModel from the MongoDB database from its ID. Returns mongo.ErrNoDocuments when absent.
func (repo *MongoCarRepository) GetCarFromId(ctx context.Context, id primitive.ObjectID) (*models.CarModel, error) {
	filter := bson.M{"_id": id}
	result := repo.collection.FindOne(ctx, filter)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var model models.CarModel
	err := result.Decode(&model)
	if err != nil {
		return nil, fmt.Errorf("could not decode result into model: %v", err)
	}

	return &model, nil
}

// GetCarsFromIds returns the cars matching ids in no particular order; missing ids are skipped
func (repo *MongoCarRepository) GetCarsFromIds(ctx context.Context, ids []primitive.ObjectID) ([]models.CarModel, error) {
	filter := bson.M{"_id": bson.M{"$in": ids}}
	cursor, err := repo.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("could not find cars %v, received error: %w", ids, err)
	}

	var cars []models.CarModel
	if err = cursor.All(ctx, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

// Replaces a CarModel in the MongoDB database. Returns mongo.ErrNoDocuments when absent.
func (repo *MongoCarRepository) UpdateCarFromId(ctx context.Context, id primitive.ObjectID, car *models.CarModel) error {
	filter := bson.M{"_id": id}
	resp := repo.collection.FindOneAndReplace(ctx, filter, car)
	if resp.Err() != nil {
		return resp.Err()
	}
	return nil
}

func (repo *MongoCarRepository) SetCarImage(ctx context.Context, id primitive.ObjectID, objectKey string) error {
	filter := bson.M{"_id": id}
	update := bson.M{"$set": bson.M{"image": objectKey}}
	res, err := repo.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("could not set image of car %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete a CarModel from the MongoDB database. Returns mongo.ErrNoDocuments when absent.
func (repo *MongoCarRepository) DeleteCarFromId(ctx context.Context, id primitive.ObjectID) error {
	filter := bson.M{"_id": id}
	res, err := repo.collection.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}

	return nil
}
