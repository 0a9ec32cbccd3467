package attachments

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/expense-api/pkg/storage"
)

// MapHTTPStatus converts attachment and storage errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrWrite):
		return http.StatusBadGateway
	case errors.Is(err, storage.ErrNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusNotFound
	}
}
