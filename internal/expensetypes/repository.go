package expensetypes

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/expense-api/pkg/query"
	"github.com/JaimeStill/expense-api/pkg/repository"
	"github.com/google/uuid"
)

var projection = query.NewProjectionMap("public", "expense_types", "t").
	Project("id", "ID").
	Project("name", "Name").
	Project("description", "Description").
	Project("is_active", "IsActive").
	Project("created_at", "CreatedAt")

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a Postgres-backed expense type system.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "expensetypes"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM expense_types WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check expense type: %w", err)
	}
	return exists, nil
}

func (r *repo) List(ctx context.Context, activeOnly bool) ([]ExpenseType, error) {
	q, args := query.NewBuilder(projection, query.SortField{Field: "Name"}).
		WhereTrue("IsActive", activeOnly).
		BuildSelect()

	types, err := repository.QueryMany(ctx, r.db, q, args, scanExpenseType)
	if err != nil {
		return nil, fmt.Errorf("query expense types: %w", err)
	}
	return types, nil
}

// Seed inserts or refreshes expense types by name and returns how many rows were written.
func (r *repo) Seed(ctx context.Context, types []SeedType) (int, error) {
	q := `INSERT INTO expense_types(name, description, is_active)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, is_active = EXCLUDED.is_active`

	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (int, error) {
		for i, t := range types {
			if t.Name == "" {
				return 0, fmt.Errorf("seed entry %d: name required", i)
			}

			active := true
			if t.IsActive != nil {
				active = *t.IsActive
			}

			if _, err := tx.ExecContext(ctx, q, t.Name, t.Description, active); err != nil {
				return 0, fmt.Errorf("seed %s: %w", t.Name, repository.MapError(err, ErrNotFound, ErrDuplicate))
			}
		}
		r.logger.Info("expense types seeded", "count", len(types))
		return len(types), nil
	})
}

func scanExpenseType(s repository.Scanner) (ExpenseType, error) {
	var t ExpenseType
	err := s.Scan(&t.ID, &t.Name, &t.Description, &t.IsActive, &t.CreatedAt)
	return t, err
}
