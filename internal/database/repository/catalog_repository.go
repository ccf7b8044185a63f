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

const (
	BrandCollection   string = "brands"
	CarLineCollection string = "car_models"
)

// CatalogRepository holds the brand and model line reference data used to fill the car picker
type CatalogRepository interface {
	GetAllBrands(ctx context.Context) ([]models.BrandModel, error)
	GetAllCarLines(ctx context.Context) ([]models.CarLineModel, error)
	UpsertBrand(ctx context.Context, name string) (*models.BrandModel, error)
	UpsertCarLine(ctx context.Context, brandId primitive.ObjectID, name string) (*models.CarLineModel, error)
	GetCarLineFromId(ctx context.Context, id primitive.ObjectID) (*models.CarLineModel, error)
}

type MongoCatalogRepository struct {
	dbClient          *mongo.Client
	db                *mongo.Database
	brandCollection   *mongo.Collection
	carLineCollection *mongo.Collection
}

func NewMongoCatalogRepository(dbClient *mongo.Client, database *mongo.Database) (*MongoCatalogRepository, error) {
	brands := database.Collection(BrandCollection)
	if brands == nil {
		return nil, fmt.Errorf("could not get collection %s", BrandCollection)
	}
	carLines := database.Collection(CarLineCollection)
	if carLines == nil {
		return nil, fmt.Errorf("could not get collection %s", CarLineCollection)
	}

	return &MongoCatalogRepository{
		dbClient:          dbClient,
		db:                database,
		brandCollection:   brands,
		carLineCollection: carLines,
	}, nil
}

// EnsureIndexes makes brand keys and model keys within a brand unique so concurrent upserts converge
func (repo *MongoCatalogRepository) EnsureIndexes(ctx context.Context) error {
	_, err := repo.brandCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("could not create indexes on %s: %w", BrandCollection, err)
	}

	_, err = repo.carLineCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "brand_id", Value: 1}, {Key: "name_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("could not create indexes on %s: %w", CarLineCollection, err)
	}
	return nil
}

func (repo *MongoCatalogRepository) GetAllBrands(ctx context.Context) ([]models.BrandModel, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := repo.brandCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}

	var brands []models.BrandModel
	if err = cursor.All(ctx, &brands); err != nil {
		return nil, err
	}

	return brands, nil
}

func (repo *MongoCatalogRepository) GetAllCarLines(ctx context.Context) ([]models.CarLineModel, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := repo.carLineCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}

	var carLines []models.CarLineModel
	if err = cursor.All(ctx, &carLines); err != nil {
		return nil, err
	}

	return carLines, nil
}

// UpsertBrand returns the brand whose key matches name, creating it first if needed.
// An existing brand keeps the display name it was created with.
func (repo *MongoCatalogRepository) UpsertBrand(ctx context.Context, name string) (*models.BrandModel, error) {
	nameKey := models.CatalogKey(name)
	filter := bson.M{"name_key": nameKey}
	update := bson.M{"$setOnInsert": bson.M{"name": name, "name_key": nameKey}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var brand models.BrandModel
	err := repo.brandCollection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&brand)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert brand %q in %s: %w", name, BrandCollection, err)
	}

	return &brand, nil
}

// UpsertCarLine returns the model line under brandId whose key matches name, creating it first if needed
func (repo *MongoCatalogRepository) UpsertCarLine(ctx context.Context, brandId primitive.ObjectID, name string) (*models.CarLineModel, error) {
	nameKey := models.CatalogKey(name)
	filter := bson.M{"brand_id": brandId, "name_key": nameKey}
	update := bson.M{"$setOnInsert": bson.M{"brand_id": brandId, "name": name, "name_key": nameKey}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var carLine models.CarLineModel
	err := repo.carLineCollection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&carLine)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert model %q in %s: %w", name, CarLineCollection, err)
	}

	return &carLine, nil
}

// GetCarLineFromId returns mongo.ErrNoDocuments when no model line has id
func (repo *MongoCatalogRepository) GetCarLineFromId(ctx context.Context, id primitive.ObjectID) (*models.CarLineModel, error) {
	var carLine models.CarLineModel
	if err := repo.carLineCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&carLine); err != nil {
		return nil, err
	}
	return &carLine, nil
}
