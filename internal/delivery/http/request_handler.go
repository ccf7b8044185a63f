package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/carcompare/compare-webserver/internal/background"
	"github.com/carcompare/compare-webserver/internal/database/usecase"
	"github.com/carcompare/compare-webserver/internal/logging"
	"github.com/go-chi/render"
)

// Response is the envelope of every API response
type Response struct {
	Success    bool            `json:"success"`
	Data       interface{}     `json:"data"`
	Message    string          `json:"message"`
	Pagination *PaginationInfo `json:"pagination,omitempty"`
}

type HandlerFunc func(w http.ResponseWriter, r *http.Request) *HandlerError

type HandlerError struct {
	Message    string
	StatusCode int
}

func NewHandlerError(message string, code int) *HandlerError {
	return &HandlerError{
		Message:    message,
		StatusCode: code,
	}
}

// errorFromUseCase maps a use case error onto the status code it deserves
func errorFromUseCase(err error) *HandlerError {
	var validationErr *usecase.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return NewHandlerError(err.Error(), http.StatusBadRequest)
	case errors.Is(err, usecase.ErrInvalidID):
		return NewHandlerError(err.Error(), http.StatusBadRequest)
	case errors.Is(err, usecase.ErrNotFound):
		return NewHandlerError(err.Error(), http.StatusNotFound)
	case errors.Is(err, background.ErrDuplicateFile):
		return NewHandlerError(err.Error(), http.StatusConflict)
	case errors.Is(err, background.ErrQueueFull), errors.Is(err, background.ErrProcessorStopped):
		return NewHandlerError(err.Error(), http.StatusServiceUnavailable)
	default:
		logging.GetLogger().Error(err.Error())
		return NewHandlerError(err.Error(), http.StatusInternalServerError)
	}
}

func (fn HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			logger := logging.GetLogger()
			logger.Error(fmt.Sprintf("panic serving %s %s: %v", r.Method, r.URL.Path, rec))
			logger.WriteCrashFile(rec)
			handleHTTPError(w, r, HandlerError{Message: "Internal Server Error", StatusCode: http.StatusInternalServerError})
		}
	}()

	if handlerError := fn(w, r); handlerError != nil {
		handleHTTPError(w, r, *handlerError)
	}
}

func handleHTTPError(w http.ResponseWriter, r *http.Request, err HandlerError) {
	render.Status(r, err.StatusCode)
	render.JSON(w, r, Response{
		Success: false,
		Data:    nil,
		Message: err.Message,
	})
}

func respond(w http.ResponseWriter, r *http.Request, status int, data interface{}, message string) {
	render.Status(r, status)
	render.JSON(w, r, Response{
		Success: true,
		Data:    data,
		Message: message,
	})
}
