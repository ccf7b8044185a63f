package http

import (
	"net/http"

	"github.com/carcompare/compare-webserver/internal/background"
	"github.com/go-chi/chi/v5"
)

// This handles all requests dealing with managing the uploads in the server
type uploadHandler struct {
	fileProcessor *background.FileProcessor
}

func NewUploadHandler(r chi.Router, fileProcessor *background.FileProcessor) {
	handler := &uploadHandler{
		fileProcessor: fileProcessor,
	}

	r.Route("/uploads", func(r chi.Router) {
		r.Get("/limits", handler.GetUploadLimits)
	})
}

func (handler *uploadHandler) GetUploadLimits(w http.ResponseWriter, r *http.Request) {
	currentFileSize := handler.fileProcessor.TotalSize.Load()
	maxFileSize := handler.fileProcessor.MaxTotalSize()

	data := make(map[string]interface{})
	data["current_file_size"] = currentFileSize
	data["max_file_size"] = maxFileSize
	data["available_file_size"] = maxFileSize - currentFileSize
	data["processing"] = handler.fileProcessor.IsProcessing()

	respond(w, r, http.StatusOK, data, "")
}
