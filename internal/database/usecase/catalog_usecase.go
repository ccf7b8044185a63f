package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/carcompare/compare-webserver/internal/database/repository"
	"github.com/carcompare/compare-webserver/internal/logging"
	"github.com/carcompare/compare-webserver/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// CatalogCache stores the assembled brand dropdown between catalog writes.
// Entries are kept per generation: GetBrandItems reports the current one,
// SetBrandItems stores under the generation the caller read, and Invalidate
// moves to a new generation so a snapshot read before a write is never served.
type CatalogCache interface {
	GetBrandItems(ctx context.Context) (items []models.BrandItemModel, generation int64, ok bool, err error)
	SetBrandItems(ctx context.Context, generation int64, items []models.BrandItemModel) error
	Invalidate(ctx context.Context) error
}

type CatalogUseCase struct {
	catalogRepo repository.CatalogRepository
	cache       CatalogCache
}

// NewCatalogUseCase creates the use case. cache may be nil, in which case every
// read goes to the database.
func NewCatalogUseCase(catalogRepo repository.CatalogRepository, cache CatalogCache) *CatalogUseCase {
	return &CatalogUseCase{
		catalogRepo: catalogRepo,
		cache:       cache,
	}
}

// GetBrandItems returns all brands with their model lines, both sorted by name.
// A non-empty search keeps brands whose name matches, with all their models,
// and brands with matching models, with only those models.
func (uc *CatalogUseCase) GetBrandItems(ctx context.Context, search string) ([]models.BrandItemModel, error) {
	items, err := uc.brandItems(ctx)
	if err != nil {
		return nil, err
	}

	return filterBrandItems(items, search), nil
}

func (uc *CatalogUseCase) brandItems(ctx context.Context) ([]models.BrandItemModel, error) {
	var generation int64
	cacheable := false
	if uc.cache != nil {
		items, gen, ok, err := uc.cache.GetBrandItems(ctx)
		if err != nil {
			logging.GetLogger().Warn(fmt.Sprintf("catalog cache read failed: %v", err))
		} else if ok {
			return items, nil
		} else {
			generation = gen
			cacheable = true
		}
	}

	brands, err := uc.catalogRepo.GetAllBrands(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load brands: %w", err)
	}

	carLines, err := uc.catalogRepo.GetAllCarLines(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load models: %w", err)
	}

	items := assembleBrandItems(brands, carLines)

	if cacheable {
		if err := uc.cache.SetBrandItems(ctx, generation, items); err != nil {
			logging.GetLogger().Warn(fmt.Sprintf("catalog cache write failed: %v", err))
		}
	}
	return items, nil
}

// ResolveCarLine finds or creates the brand and its model line and returns the line
func (uc *CatalogUseCase) ResolveCarLine(ctx context.Context, brandName string, modelName string) (*models.CarLineModel, error) {
	brand, err := uc.catalogRepo.UpsertBrand(ctx, strings.TrimSpace(brandName))
	if err != nil {
		return nil, err
	}

	carLine, err := uc.catalogRepo.UpsertCarLine(ctx, brand.Id, strings.TrimSpace(modelName))
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if err := uc.cache.Invalidate(ctx); err != nil {
			logging.GetLogger().Warn(fmt.Sprintf("catalog cache invalidation failed: %v", err))
		}
	}
	return carLine, nil
}

// GetCarLine returns the model line with id, or ErrNotFound
func (uc *CatalogUseCase) GetCarLine(ctx context.Context, id primitive.ObjectID) (*models.CarLineModel, error) {
	carLine, err := uc.catalogRepo.GetCarLineFromId(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("model %s: %w", id.Hex(), ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return carLine, nil
}

// assembleBrandItems groups lines under their brands. Input order is kept, so
// callers pass both slices sorted by name.
func assembleBrandItems(brands []models.BrandModel, carLines []models.CarLineModel) []models.BrandItemModel {
	byBrand := make(map[primitive.ObjectID][]models.CarLineModel, len(brands))
	for _, carLine := range carLines {
		byBrand[carLine.BrandId] = append(byBrand[carLine.BrandId], carLine)
	}

	items := make([]models.BrandItemModel, 0, len(brands))
	for _, brand := range brands {
		lines := byBrand[brand.Id]
		if lines == nil {
			lines = make([]models.CarLineModel, 0)
		}
		items = append(items, models.BrandItemModel{
			Id:     brand.Id,
			Name:   brand.Name,
			Logo:   brand.Logo,
			Models: lines,
		})
	}
	return items
}

func filterBrandItems(items []models.BrandItemModel, search string) []models.BrandItemModel {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return items
	}

	filtered := make([]models.BrandItemModel, 0)
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			filtered = append(filtered, item)
			continue
		}

		var lines []models.CarLineModel
		for _, line := range item.Models {
			if strings.Contains(strings.ToLower(line.Name), needle) {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			item.Models = lines
			filtered = append(filtered, item)
		}
	}
	return filtered
}
