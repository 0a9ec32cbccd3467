// Package expensetypes provides the expense type catalog that expenses reference.
package expensetypes

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ExpenseType is a category an expense is filed under.
type ExpenseType struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SeedType is one entry of a seed file.
type SeedType struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	IsActive    *bool  `yaml:"is_active"`
}

var (
	ErrNotFound  = errors.New("expense type not found")
	ErrDuplicate = errors.New("expense type name already exists")
)

// MapHTTPStatus converts domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
