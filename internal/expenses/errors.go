package expenses

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/expense-api/pkg/storage"
)

var (
	ErrNotFound           = errors.New("expense not found")
	ErrAttachmentNotFound = errors.New("attachment not found on expense")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidID          = errors.New("invalid expense id")
	ErrFileTooLarge       = errors.New("request exceeds maximum upload size")
)

// MapHTTPStatus converts domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidID), errors.Is(err, storage.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAttachmentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrWrite):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
