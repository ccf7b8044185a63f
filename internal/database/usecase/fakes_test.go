package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/carcompare/compare-webserver/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// fakeCarRepo keeps cars in memory. It understands the model_id filter only.
type fakeCarRepo struct {
	mu      sync.Mutex
	cars    map[primitive.ObjectID]models.CarModel
	saveErr error
}

func newFakeCarRepo() *fakeCarRepo {
	return &fakeCarRepo{cars: make(map[primitive.ObjectID]models.CarModel)}
}

func (r *fakeCarRepo) Save(ctx context.Context, car *models.CarModel) (*models.CarModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	car.Id = primitive.NewObjectID()
	r.cars[car.Id] = *car
	return car, nil
}

func (r *fakeCarRepo) matching(filters *bson.M) []models.CarModel {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.CarModel
	for _, car := range r.cars {
		if modelId, ok := (*filters)["model_id"]; ok && car.ModelId != modelId.(primitive.ObjectID) {
			continue
		}
		out = append(out, car)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Brand != out[j].Brand {
			return out[i].Brand < out[j].Brand
		}
		if out[i].Model != out[j].Model {
			return out[i].Model < out[j].Model
		}
		return out[i].Variant < out[j].Variant
	})
	return out
}

func (r *fakeCarRepo) GetWithCarFilters(ctx context.Context, filters *bson.M, page *models.Page) ([]models.CarModel, error) {
	out := r.matching(filters)
	if page != nil {
		start := int(page.Skip())
		if start > len(out) {
			start = len(out)
		}
		end := start + page.Size
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	if out == nil {
		out = make([]models.CarModel, 0)
	}
	return out, nil
}

func (r *fakeCarRepo) CountWithCarFilters(ctx context.Context, filters *bson.M) (int64, error) {
	return int64(len(r.matching(filters))), nil
}

func (r *fakeCarRepo) GetCarFromId(ctx context.Context, id primitive.ObjectID) (*models.CarModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	car, ok := r.cars[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &car, nil
}

func (r *fakeCarRepo) GetCarsFromIds(ctx context.Context, ids []primitive.ObjectID) ([]models.CarModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CarModel
	for _, id := range ids {
		if car, ok := r.cars[id]; ok {
			out = append(out, car)
		}
	}
	return out, nil
}

func (r *fakeCarRepo) UpdateCarFromId(ctx context.Context, id primitive.ObjectID, car *models.CarModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cars[id]; !ok {
		return mongo.ErrNoDocuments
	}
	r.cars[id] = *car
	return nil
}

func (r *fakeCarRepo) SetCarImage(ctx context.Context, id primitive.ObjectID, objectKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	car, ok := r.cars[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	car.Image = objectKey
	r.cars[id] = car
	return nil
}

func (r *fakeCarRepo) DeleteCarFromId(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cars[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(r.cars, id)
	return nil
}

type fakeCatalogRepo struct {
	mu       sync.Mutex
	brands   []models.BrandModel
	carLines []models.CarLineModel
	reads    int
	// afterLinesRead runs once, after a GetAllCarLines snapshot was taken
	afterLinesRead func()
}

func (r *fakeCatalogRepo) GetAllBrands(ctx context.Context) ([]models.BrandModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	out := append([]models.BrandModel(nil), r.brands...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeCatalogRepo) GetAllCarLines(ctx context.Context) ([]models.CarLineModel, error) {
	r.mu.Lock()
	out := append([]models.CarLineModel(nil), r.carLines...)
	hook := r.afterLinesRead
	r.afterLinesRead = nil
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if hook != nil {
		hook()
	}
	return out, nil
}

func (r *fakeCatalogRepo) UpsertBrand(ctx context.Context, name string) (*models.BrandModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.brands {
		if b.NameKey == models.CatalogKey(name) {
			return &b, nil
		}
	}
	brand := models.BrandModel{Id: primitive.NewObjectID(), Name: name, NameKey: models.CatalogKey(name)}
	r.brands = append(r.brands, brand)
	return &brand, nil
}

func (r *fakeCatalogRepo) UpsertCarLine(ctx context.Context, brandId primitive.ObjectID, name string) (*models.CarLineModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.carLines {
		if l.BrandId == brandId && l.NameKey == models.CatalogKey(name) {
			return &l, nil
		}
	}
	line := models.CarLineModel{Id: primitive.NewObjectID(), BrandId: brandId, Name: name, NameKey: models.CatalogKey(name)}
	r.carLines = append(r.carLines, line)
	return &line, nil
}

func (r *fakeCatalogRepo) GetCarLineFromId(ctx context.Context, id primitive.ObjectID) (*models.CarLineModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.carLines {
		if l.Id == id {
			return &l, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

// fakeCache keeps one entry per generation like the redis cache does
type fakeCache struct {
	mu          sync.Mutex
	generation  int64
	entries     map[int64][]models.BrandItemModel
	invalidated int
	getErr      error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[int64][]models.BrandItemModel)}
}

func (c *fakeCache) GetBrandItems(ctx context.Context) ([]models.BrandItemModel, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, 0, false, c.getErr
	}
	items, ok := c.entries[c.generation]
	return items, c.generation, ok, nil
}

func (c *fakeCache) SetBrandItems(ctx context.Context, generation int64, items []models.BrandItemModel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[generation] = items
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.invalidated++
	return nil
}

func (c *fakeCache) present() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[c.generation]
	return ok
}

var errStore = errors.New("store unavailable")
