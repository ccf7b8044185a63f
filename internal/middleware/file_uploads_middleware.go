package carcompare_middleware

import (
	"fmt"
	"net/http"

	"github.com/carcompare/compare-webserver/internal/background"
	"github.com/go-chi/render"
)

type FileUploadMiddleware struct {
	FileProcessor *background.FileProcessor
}

// FileUploadSizeLimitMiddleware admits an upload only when its declared size fits
// in what is left of the upload directory quota.
func (fp *FileUploadMiddleware) FileUploadSizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentLength := r.ContentLength
		if contentLength <= 0 {
			reject(w, r, "Content-Length required", http.StatusBadRequest)
			return
		}

		currentSize := fp.FileProcessor.MiddlewareEstimatedSize.Load()
		maxTotalSize := fp.FileProcessor.MaxTotalSize()
		if currentSize+contentLength > maxTotalSize {
			reject(w, r, fmt.Sprintf(
				"Upload would exceed size limit. Current: %d bytes, Max: %d bytes",
				currentSize,
				maxTotalSize,
			), http.StatusServiceUnavailable)
			return
		}

		fp.FileProcessor.MiddlewareEstimatedSize.Add(contentLength)
		next.ServeHTTP(w, r)
	})
}

func reject(w http.ResponseWriter, r *http.Request, message string, status int) {
	render.Status(r, status)
	render.JSON(w, r, map[string]interface{}{
		"success": false,
		"data":    nil,
		"message": message,
	})
}
