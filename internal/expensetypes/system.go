package expensetypes

import (
	"context"

	"github.com/google/uuid"
)

// System defines expense type operations.
type System interface {
	Handler() *Handler
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, activeOnly bool) ([]ExpenseType, error)
	Seed(ctx context.Context, types []SeedType) (int, error)
}
