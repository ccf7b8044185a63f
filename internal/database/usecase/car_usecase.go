package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/carcompare/compare-webserver/internal/database/repository"
	"github.com/carcompare/compare-webserver/internal/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type CarUseCase struct {
	carRepo  repository.CarRepository
	catalog  *CatalogUseCase
	validate *validator.Validate
}

func NewCarUseCase(carRepo repository.CarRepository, catalog *CatalogUseCase) *CarUseCase {
	return &CarUseCase{
		carRepo:  carRepo,
		catalog:  catalog,
		validate: validator.New(),
	}
}

// CreateCar validates and stores a new car. When the car carries no model id
// the brand and model are registered in the catalog and the model id is filled in.
// A given model id must name an existing model line. The image is never taken
// from the input; it is set through SetCarImage only.
func (uc *CarUseCase) CreateCar(ctx context.Context, car *models.CarModel) (*models.CarModel, error) {
	if err := uc.prepare(ctx, car); err != nil {
		return nil, err
	}

	car.Id = primitive.NilObjectID
	car.Image = ""
	car.CreatedAt = time.Now().UTC()
	return uc.carRepo.Save(ctx, car)
}

// ValidateCar runs the same checks as CreateCar without touching the database
func (uc *CarUseCase) ValidateCar(car *models.CarModel) error {
	normalizeCar(car)
	if err := uc.validate.Struct(car); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

func (uc *CarUseCase) prepare(ctx context.Context, car *models.CarModel) error {
	if err := uc.ValidateCar(car); err != nil {
		return err
	}

	if car.ModelId.IsZero() {
		carLine, err := uc.catalog.ResolveCarLine(ctx, car.Brand, car.Model)
		if err != nil {
			return err
		}
		car.ModelId = carLine.Id
		return nil
	}

	if _, err := uc.catalog.GetCarLine(ctx, car.ModelId); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &ValidationError{Err: err}
		}
		return err
	}
	return nil
}

// GetCars returns the cars matching filters and the total number of matches.
// With a nil page every match is returned.
func (uc *CarUseCase) GetCars(ctx context.Context, filters *models.CarModelFilters, page *models.Page) ([]models.CarModel, int64, error) {
	bsonFilters := buildCarFilters(filters)

	cars, err := uc.carRepo.GetWithCarFilters(ctx, &bsonFilters, page)
	if err != nil {
		return nil, 0, err
	}

	if page == nil {
		return cars, int64(len(cars)), nil
	}

	total, err := uc.carRepo.CountWithCarFilters(ctx, &bsonFilters)
	if err != nil {
		return nil, 0, err
	}
	return cars, total, nil
}

// GetVariants returns every car of the model line modelIdHex
func (uc *CarUseCase) GetVariants(ctx context.Context, modelIdHex string) ([]models.CarModel, error) {
	modelId, err := parseID(modelIdHex)
	if err != nil {
		return nil, err
	}

	cars, _, err := uc.GetCars(ctx, &models.CarModelFilters{ModelId: &modelId}, nil)
	return cars, err
}

func (uc *CarUseCase) GetCarById(ctx context.Context, idHex string) (*models.CarModel, error) {
	id, err := parseID(idHex)
	if err != nil {
		return nil, err
	}

	car, err := uc.carRepo.GetCarFromId(ctx, id)
	if err != nil {
		return nil, notFound(err, idHex)
	}
	return car, nil
}

// UpdateCar replaces the car idHex. The id, creation time and image of the stored car are kept.
func (uc *CarUseCase) UpdateCar(ctx context.Context, idHex string, car *models.CarModel) (*models.CarModel, error) {
	existing, err := uc.GetCarById(ctx, idHex)
	if err != nil {
		return nil, err
	}

	if err := uc.prepare(ctx, car); err != nil {
		return nil, err
	}

	car.Id = existing.Id
	car.CreatedAt = existing.CreatedAt
	car.Image = existing.Image

	if err := uc.carRepo.UpdateCarFromId(ctx, existing.Id, car); err != nil {
		return nil, notFound(err, idHex)
	}
	return car, nil
}

func (uc *CarUseCase) DeleteCar(ctx context.Context, idHex string) error {
	id, err := parseID(idHex)
	if err != nil {
		return err
	}

	if err := uc.carRepo.DeleteCarFromId(ctx, id); err != nil {
		return notFound(err, idHex)
	}
	return nil
}

// SetCarImage records objectKey as the image of car idHex
func (uc *CarUseCase) SetCarImage(ctx context.Context, idHex string, objectKey string) error {
	id, err := parseID(idHex)
	if err != nil {
		return err
	}

	if err := uc.carRepo.SetCarImage(ctx, id, objectKey); err != nil {
		return notFound(err, idHex)
	}
	return nil
}

func buildCarFilters(filters *models.CarModelFilters) bson.M {
	bson_filters_m := bson.M{}
	if filters == nil {
		return bson_filters_m
	}

	if filters.ModelId != nil {
		bson_filters_m["model_id"] = *filters.ModelId
	}

	if filters.Brand != nil {
		bson_filters_m["brand"] = bson.M{"$regex": exactMatch(*filters.Brand)}
	}

	if filters.Model != nil {
		bson_filters_m["model"] = bson.M{"$regex": exactMatch(*filters.Model)}
	}

	if filters.SearchText != nil && *filters.SearchText != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(*filters.SearchText), Options: "i"}
		bson_filters_m["$or"] = bson.A{
			bson.M{"brand": bson.M{"$regex": pattern}},
			bson.M{"model": bson.M{"$regex": pattern}},
			bson.M{"variant": bson.M{"$regex": pattern}},
		}
	}

	return bson_filters_m
}

// exactMatch matches value case-insensitively as a whole string
func exactMatch(value string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(strings.TrimSpace(value)) + "$", Options: "i"}
}

func normalizeCar(car *models.CarModel) {
	car.Brand = strings.TrimSpace(car.Brand)
	car.Model = strings.TrimSpace(car.Model)
	car.Variant = strings.TrimSpace(car.Variant)
}

func parseID(idHex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, idHex)
	}
	return id, nil
}

func notFound(err error, idHex string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("car %s: %w", idHex, ErrNotFound)
	}
	return err
}
