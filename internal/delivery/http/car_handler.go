package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/carcompare/compare-webserver/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

const maxCarBodyBytes = 1 << 20

// CarService is what the car endpoints need from the database layer
type CarService interface {
	CreateCar(ctx context.Context, car *models.CarModel) (*models.CarModel, error)
	GetCars(ctx context.Context, filters *models.CarModelFilters, page *models.Page) ([]models.CarModel, int64, error)
	GetCarById(ctx context.Context, idHex string) (*models.CarModel, error)
	UpdateCar(ctx context.Context, idHex string, car *models.CarModel) (*models.CarModel, error)
	DeleteCar(ctx context.Context, idHex string) error
	GetVariants(ctx context.Context, modelIdHex string) ([]models.CarModel, error)
	CompareCars(ctx context.Context, idHexes []string) (*models.ComparisonModel, error)
	SetCarImage(ctx context.Context, idHex string, objectKey string) error
}

type carHandler struct {
	cars   CarService
	images ImageStore
}

// NewCarHandler registers the car endpoints on r, which is the /cars route group.
// images may be nil; when set, deleting a car deletes its image too.
func NewCarHandler(r chi.Router, cars CarService, images ImageStore) {
	handler := &carHandler{
		cars:   cars,
		images: images,
	}

	r.Post("/", HandlerFunc(handler.CreateCar).ServeHTTP)
	r.Get("/", HandlerFunc(handler.GetCars).ServeHTTP)
	r.Get("/compare", HandlerFunc(handler.CompareCars).ServeHTTP)
	r.Get("/variant/{modelId}", HandlerFunc(handler.GetVariants).ServeHTTP)
	r.Get("/{id}", HandlerFunc(handler.GetCar).ServeHTTP)
	r.Put("/{id}", HandlerFunc(handler.UpdateCar).ServeHTTP)
	r.Delete("/{id}", HandlerFunc(handler.DeleteCar).ServeHTTP)
}

func decodeCar(w http.ResponseWriter, r *http.Request) (*models.CarModel, *HandlerError) {
	var car models.CarModel
	if err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, maxCarBodyBytes), &car); err != nil {
		return nil, NewHandlerError("invalid car body: "+err.Error(), http.StatusBadRequest)
	}
	return &car, nil
}

// POST a new car. Failures are reported with a 4xx/5xx status, never 201.
func (h *carHandler) CreateCar(w http.ResponseWriter, r *http.Request) *HandlerError {
	car, handlerErr := decodeCar(w, r)
	if handlerErr != nil {
		return handlerErr
	}

	created, err := h.cars.CreateCar(r.Context(), car)
	if err != nil {
		return errorFromUseCase(err)
	}

	respond(w, r, http.StatusCreated, created, "Car created successfully")
	return nil
}

// GET all cars; params -> (brand, model, search, page, pageSize), all optional
func (h *carHandler) GetCars(w http.ResponseWriter, r *http.Request) *HandlerError {
	query := r.URL.Query()
	filters := &models.CarModelFilters{}
	if brand := query.Get("brand"); brand != "" {
		filters.Brand = &brand
	}
	if model := query.Get("model"); model != "" {
		filters.Model = &model
	}
	if search := query.Get("search"); search != "" {
		filters.SearchText = &search
	}

	page := parsePage(r)
	cars, total, err := h.cars.GetCars(r.Context(), filters, page)
	if err != nil {
		return errorFromUseCase(err)
	}

	response := Response{
		Success: true,
		Data:    cars,
		Message: "",
	}
	if page != nil {
		response.Pagination = newPaginationInfo(page, total)
	}
	render.JSON(w, r, response)
	return nil
}

func (h *carHandler) GetCar(w http.ResponseWriter, r *http.Request) *HandlerError {
	car, err := h.cars.GetCarById(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return errorFromUseCase(err)
	}

	respond(w, r, http.StatusOK, car, "")
	return nil
}

func (h *carHandler) UpdateCar(w http.ResponseWriter, r *http.Request) *HandlerError {
	car, handlerErr := decodeCar(w, r)
	if handlerErr != nil {
		return handlerErr
	}

	updated, err := h.cars.UpdateCar(r.Context(), chi.URLParam(r, "id"), car)
	if err != nil {
		return errorFromUseCase(err)
	}

	respond(w, r, http.StatusOK, updated, "Car updated successfully")
	return nil
}

func (h *carHandler) DeleteCar(w http.ResponseWriter, r *http.Request) *HandlerError {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	car, err := h.cars.GetCarById(ctx, id)
	if err != nil {
		return errorFromUseCase(err)
	}

	if err := h.cars.DeleteCar(ctx, id); err != nil {
		return errorFromUseCase(err)
	}
	deleteCarImage(ctx, h.images, car)

	respond(w, r, http.StatusOK, nil, "Car deleted successfully")
	return nil
}

// GET every variant of a model line, used once a model is picked in the dropdown
func (h *carHandler) GetVariants(w http.ResponseWriter, r *http.Request) *HandlerError {
	variants, err := h.cars.GetVariants(r.Context(), chi.URLParam(r, "modelId"))
	if err != nil {
		return errorFromUseCase(err)
	}

	respond(w, r, http.StatusOK, variants, "")
	return nil
}

// GET a side by side comparison; params -> (ids, comma separated car ids)
func (h *carHandler) CompareCars(w http.ResponseWriter, r *http.Request) *HandlerError {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		return NewHandlerError("ids must not be empty", http.StatusBadRequest)
	}

	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	comparison, err := h.cars.CompareCars(r.Context(), ids)
	if err != nil {
		return errorFromUseCase(err)
	}

	respond(w, r, http.StatusOK, comparison, "")
	return nil
}
