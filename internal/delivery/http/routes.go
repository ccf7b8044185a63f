package http

import (
	"github.com/carcompare/compare-webserver/internal/background"
	"github.com/go-chi/chi/v5"
)

// API holds everything the /api routes are served from. Images and
// FileProcessor are optional; their endpoints are left out when nil.
type API struct {
	Cars          CarService
	Catalog       CatalogService
	Images        ImageStore
	FileProcessor *background.FileProcessor
	Importer      background.JobProcessor
}

// Mount registers every API endpoint below r
func (api *API) Mount(r chi.Router) {
	r.Route("/cars", func(r chi.Router) {
		NewCarHandler(r, api.Cars, api.Images)
		NewCatalogHandler(r, api.Catalog)
		if api.Images != nil {
			NewImageHandler(r, api.Cars, api.Images)
		}
		if api.FileProcessor != nil && api.Importer != nil {
			NewImportHandler(r, api.FileProcessor, api.Importer)
		}
	})

	if api.FileProcessor != nil {
		NewUploadHandler(r, api.FileProcessor)
	}
}
