package usecase

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/carcompare/compare-webserver/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MinCompareCars = 2
	MaxCompareCars = 4
)

type specField struct {
	name  string
	value func(car *models.CarModel) interface{}
}

// Rows of a comparison always come in this order, extra fields follow sorted by key
var specFields = []specField{
	{"price", func(c *models.CarModel) interface{} { return c.Price }},
	{"year", func(c *models.CarModel) interface{} { return c.Year }},
	{"engine", func(c *models.CarModel) interface{} { return c.Specification.Engine }},
	{"engine_cc", func(c *models.CarModel) interface{} { return c.Specification.EngineCC }},
	{"fuel_type", func(c *models.CarModel) interface{} { return c.Specification.FuelType }},
	{"transmission", func(c *models.CarModel) interface{} { return c.Specification.Transmission }},
	{"drive", func(c *models.CarModel) interface{} { return c.Specification.Drive }},
	{"body_type", func(c *models.CarModel) interface{} { return c.Specification.BodyType }},
	{"power_hp", func(c *models.CarModel) interface{} { return c.Specification.PowerHP }},
	{"torque_nm", func(c *models.CarModel) interface{} { return c.Specification.TorqueNM }},
	{"mileage", func(c *models.CarModel) interface{} { return c.Specification.Mileage }},
	{"seating", func(c *models.CarModel) interface{} { return c.Specification.Seating }},
}

// CompareCars loads the requested cars, in request order, and lines their specifications up field by field
func (uc *CarUseCase) CompareCars(ctx context.Context, idHexes []string) (*models.ComparisonModel, error) {
	if len(idHexes) < MinCompareCars || len(idHexes) > MaxCompareCars {
		return nil, &ValidationError{Err: fmt.Errorf("compare needs between %d and %d cars, got %d", MinCompareCars, MaxCompareCars, len(idHexes))}
	}

	ids := make([]primitive.ObjectID, 0, len(idHexes))
	seen := make(map[primitive.ObjectID]bool, len(idHexes))
	for _, idHex := range idHexes {
		id, err := parseID(idHex)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, &ValidationError{Err: fmt.Errorf("car %s requested more than once", idHex)}
		}
		seen[id] = true
		ids = append(ids, id)
	}

	found, err := uc.carRepo.GetCarsFromIds(ctx, ids)
	if err != nil {
		return nil, err
	}

	byId := make(map[primitive.ObjectID]models.CarModel, len(found))
	for _, car := range found {
		byId[car.Id] = car
	}

	cars := make([]models.CarModel, 0, len(ids))
	for i, id := range ids {
		car, ok := byId[id]
		if !ok {
			return nil, fmt.Errorf("car %s: %w", idHexes[i], ErrNotFound)
		}
		cars = append(cars, car)
	}

	return &models.ComparisonModel{
		Cars: cars,
		Rows: comparisonRows(cars),
	}, nil
}

func comparisonRows(cars []models.CarModel) []models.ComparisonRowModel {
	rows := make([]models.ComparisonRowModel, 0, len(specFields))
	for _, field := range specFields {
		values := make([]interface{}, len(cars))
		for i := range cars {
			values[i] = field.value(&cars[i])
		}
		rows = append(rows, newRow(field.name, values))
	}

	extraKeys := make(map[string]bool)
	for _, car := range cars {
		for key := range car.Extra {
			extraKeys[key] = true
		}
	}
	keys := make([]string, 0, len(extraKeys))
	for key := range extraKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		values := make([]interface{}, len(cars))
		for i, car := range cars {
			values[i] = car.Extra[key]
		}
		rows = append(rows, newRow(key, values))
	}
	return rows
}

func newRow(field string, values []interface{}) models.ComparisonRowModel {
	differs := false
	for _, v := range values[1:] {
		if !reflect.DeepEqual(v, values[0]) {
			differs = true
			break
		}
	}
	return models.ComparisonRowModel{
		Field:   field,
		Values:  values,
		Differs: differs,
	}
}
