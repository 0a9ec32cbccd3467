package storage

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidateID reports ErrInvalidID unless id is a canonical UUID string.
func ValidateID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func newID() string {
	return uuid.NewString()
}
