package http

import (
	"context"
	"net/http"

	"github.com/carcompare/compare-webserver/internal/models"
	"github.com/go-chi/chi/v5"
)

type CatalogService interface {
	GetBrandItems(ctx context.Context, search string) ([]models.BrandItemModel, error)
}

type catalogHandler struct {
	catalog CatalogService
}

// NewCatalogHandler serves the brand/model reference data. It registers on the
// /cars route group, so call it from inside that group.
func NewCatalogHandler(r chi.Router, catalog CatalogService) {
	handler := &catalogHandler{
		catalog: catalog,
	}

	r.Get("/model/all", HandlerFunc(handler.GetBrandItems).ServeHTTP)
}

// GET brands with their models; params -> (search, string, optional)
func (h *catalogHandler) GetBrandItems(w http.ResponseWriter, r *http.Request) *HandlerError {
	items, err := h.catalog.GetBrandItems(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		return errorFromUseCase(err)
	}

	respond(w, r, http.StatusOK, items, "")
	return nil
}
