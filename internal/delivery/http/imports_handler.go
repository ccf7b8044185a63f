package http

import (
	"net/http"

	"github.com/carcompare/compare-webserver/internal/background"
	carcompare_middleware "github.com/carcompare/compare-webserver/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// This handles all requests dealing with bulk car imports
type importHandler struct {
	fileProcessor *background.FileProcessor
	importer      background.JobProcessor
}

// NewImportHandler registers the import endpoints on the /cars route group
func NewImportHandler(r chi.Router, fileProcessor *background.FileProcessor, importer background.JobProcessor) {
	handler := &importHandler{
		fileProcessor: fileProcessor,
		importer:      importer,
	}

	uploadLimiter := &carcompare_middleware.FileUploadMiddleware{FileProcessor: fileProcessor}
	r.With(uploadLimiter.FileUploadSizeLimitMiddleware).Post("/import", HandlerFunc(handler.ImportCars).ServeHTTP)
	r.Get("/import/{jobId}", HandlerFunc(handler.GetImportJob).ServeHTTP)
}

// POST a multipart "file" holding a JSON array or newline delimited JSON of cars
func (h *importHandler) ImportCars(w http.ResponseWriter, r *http.Request) *HandlerError {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return NewHandlerError("could not parse multipart form: "+err.Error(), http.StatusBadRequest)
	}
	defer r.MultipartForm.RemoveAll()

	_, fileHeader, err := r.FormFile("file")
	if err != nil {
		return NewHandlerError("could not get the import file", http.StatusBadRequest)
	}

	job, err := h.fileProcessor.EnqueueFile(fileHeader, h.importer)
	if err != nil {
		return errorFromUseCase(err)
	}

	respond(w, r, http.StatusAccepted, job, "Import queued")
	return nil
}

func (h *importHandler) GetImportJob(w http.ResponseWriter, r *http.Request) *HandlerError {
	jobId := chi.URLParam(r, "jobId")
	job, ok := h.fileProcessor.GetJob(jobId)
	if !ok {
		return NewHandlerError("no import job "+jobId, http.StatusNotFound)
	}

	respond(w, r, http.StatusOK, job, "")
	return nil
}
