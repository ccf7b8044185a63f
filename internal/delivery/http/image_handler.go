package http

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/carcompare/compare-webserver/internal/logging"
	"github.com/carcompare/compare-webserver/internal/models"
	"github.com/carcompare/compare-webserver/internal/s3"
	"github.com/go-chi/chi/v5"
)

const maxImageBytes = 20 << 20

// ImageStore is the object storage holding car images
type ImageStore interface {
	WriteObjectReader(ctx context.Context, reader io.Reader, objectName string, contentType string) error
	GetSignedUrl(ctx context.Context, objectPath string) (string, error)
	FileExists(ctx context.Context, objectPath string) (bool, error)
	DeleteObject(ctx context.Context, objectPath string) error
}

type imageHandler struct {
	cars   CarService
	images ImageStore
}

// NewImageHandler registers the car image endpoints on the /cars route group
func NewImageHandler(r chi.Router, cars CarService, images ImageStore) {
	handler := &imageHandler{
		cars:   cars,
		images: images,
	}

	r.Post("/{id}/image", HandlerFunc(handler.UploadImage).ServeHTTP)
	r.Get("/{id}/image", HandlerFunc(handler.GetImageUrl).ServeHTTP)
}

// POST a multipart "file" as the image of a car
func (h *imageHandler) UploadImage(w http.ResponseWriter, r *http.Request) *HandlerError {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	car, err := h.cars.GetCarById(ctx, id)
	if err != nil {
		return errorFromUseCase(err)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		return NewHandlerError("could not parse multipart form: "+err.Error(), http.StatusBadRequest)
	}
	defer r.MultipartForm.RemoveAll()

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		return NewHandlerError("could not get the image file", http.StatusBadRequest)
	}
	defer file.Close()

	objectKey := s3.CarImageKey(car.Id.Hex(), fileHeader.Filename)
	if err := h.images.WriteObjectReader(ctx, file, objectKey, fileHeader.Header.Get("Content-Type")); err != nil {
		return NewHandlerError(err.Error(), http.StatusBadGateway)
	}

	if err := h.cars.SetCarImage(ctx, id, objectKey); err != nil {
		return errorFromUseCase(err)
	}

	// The previous image is orphaned once the car points at a new key
	if car.Image != objectKey {
		deleteCarImage(ctx, h.images, car)
	}

	respond(w, r, http.StatusCreated, map[string]string{"image": objectKey}, "Image uploaded successfully")
	return nil
}

// GET a presigned url for the image of a car
func (h *imageHandler) GetImageUrl(w http.ResponseWriter, r *http.Request) *HandlerError {
	ctx := r.Context()
	car, err := h.cars.GetCarById(ctx, chi.URLParam(r, "id"))
	if err != nil {
		return errorFromUseCase(err)
	}

	if !s3.IsCarImageKey(car.Id.Hex(), car.Image) {
		return NewHandlerError("car has no image", http.StatusNotFound)
	}

	exists, err := h.images.FileExists(ctx, car.Image)
	if err != nil {
		return NewHandlerError(err.Error(), http.StatusBadGateway)
	}
	if !exists {
		return NewHandlerError("image "+car.Image+" is missing from storage", http.StatusNotFound)
	}

	signedUrl, err := h.images.GetSignedUrl(ctx, car.Image)
	if err != nil {
		return NewHandlerError(err.Error(), http.StatusBadGateway)
	}

	respond(w, r, http.StatusOK, map[string]interface{}{
		"image":      car.Image,
		"url":        signedUrl,
		"expires_in": int(s3.SignedUrlExpiry.Seconds()),
	}, "")
	return nil
}

// deleteCarImage removes the stored image of car. Keys outside the car's own
// prefix are left alone.
func deleteCarImage(ctx context.Context, images ImageStore, car *models.CarModel) {
	if images == nil || !s3.IsCarImageKey(car.Id.Hex(), car.Image) {
		return
	}
	if err := images.DeleteObject(ctx, car.Image); err != nil {
		logging.GetLogger().Warn(fmt.Sprintf("could not delete image %s: %s", car.Image, err))
	}
}
