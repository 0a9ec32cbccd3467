package expenses

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JaimeStill/expense-api/internal/attachments"
	"github.com/JaimeStill/expense-api/pkg/query"
	"github.com/JaimeStill/expense-api/pkg/repository"
	"github.com/google/uuid"
)

// Repository persists expense records.
type Repository interface {
	List(ctx context.Context, userEmail string) ([]Expense, error)
	Find(ctx context.Context, id uuid.UUID) (Expense, error)
	Insert(ctx context.Context, e Expense) (Expense, error)
	// Update applies patch and replaces the attachment list in one statement.
	Update(ctx context.Context, id uuid.UUID, patch Patch, atts attachments.List) (Expense, error)
	// Delete removes the record and returns the attachments it held.
	Delete(ctx context.Context, id uuid.UUID) (attachments.List, error)
	// PullAttachment removes every reference to blobID from the record.
	PullAttachment(ctx context.Context, id uuid.UUID, blobID string) (Expense, error)
	// ReferencedBlobIDs returns every blob id referenced by any record.
	ReferencedBlobIDs(ctx context.Context) (map[string]struct{}, error)
}

// columns is the RETURNING list, in scanExpense order.
const columns = `id, expense_type_id, title, date, amount, payment_mode, bill_available,
	user_email, description, car_number, service_type, location, equipment_name,
	equipment_type, attachments, created_at, updated_at`

type postgres struct {
	db *sql.DB
}

// NewRepository creates a Postgres expense repository.
func NewRepository(db *sql.DB) Repository {
	return &postgres{db: db}
}

func (p *postgres) List(ctx context.Context, userEmail string) ([]Expense, error) {
	q, args := query.NewBuilder(projection, defaultSort...).
		WhereEquals("UserEmail", userEmail).
		BuildSelect()

	items, err := repository.QueryMany(ctx, p.db, q, args, scanExpense)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	return items, nil
}

func (p *postgres) Find(ctx context.Context, id uuid.UUID) (Expense, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	e, err := repository.QueryOne(ctx, p.db, q, args, scanExpense)
	if err != nil {
		return Expense{}, repository.MapError(err, ErrNotFound, ErrValidation)
	}
	return e, nil
}

func (p *postgres) Insert(ctx context.Context, e Expense) (Expense, error) {
	q := `INSERT INTO expenses(id, expense_type_id, title, date, amount, payment_mode,
		bill_available, user_email, description, car_number, service_type, location,
		equipment_name, equipment_type, attachments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + columns

	args := []any{
		e.ID, e.ExpenseTypeID, e.Title, e.Date, e.Amount, e.PaymentMode,
		e.BillAvailable, e.UserEmail, e.Description, e.CarNumber, e.ServiceType, e.Location,
		e.EquipmentName, e.EquipmentType, e.Attachments,
	}

	created, err := repository.WithTx(ctx, p.db, func(tx *sql.Tx) (Expense, error) {
		return repository.QueryOne(ctx, tx, q, args, scanExpense)
	})
	if err != nil {
		return Expense{}, mapWriteError(err)
	}
	return created, nil
}

func (p *postgres) Update(ctx context.Context, id uuid.UUID, patch Patch, atts attachments.List) (Expense, error) {
	q := `UPDATE expenses SET
		expense_type_id = COALESCE($2, expense_type_id),
		title = COALESCE($3, title),
		date = COALESCE($4, date),
		amount = COALESCE($5, amount),
		payment_mode = COALESCE($6, payment_mode),
		bill_available = COALESCE($7, bill_available),
		user_email = COALESCE($8, user_email),
		description = COALESCE($9, description),
		car_number = COALESCE($10, car_number),
		service_type = COALESCE($11, service_type),
		location = COALESCE($12, location),
		equipment_name = COALESCE($13, equipment_name),
		equipment_type = COALESCE($14, equipment_type),
		attachments = $15,
		updated_at = NOW()
		WHERE id = $1
		RETURNING ` + columns

	args := []any{
		id, patch.ExpenseTypeID, patch.Title, patch.Date, patch.Amount, patch.PaymentMode,
		patch.BillAvailable, patch.UserEmail, patch.Description, patch.CarNumber,
		patch.ServiceType, patch.Location, patch.EquipmentName, patch.EquipmentType, atts,
	}

	updated, err := repository.WithTx(ctx, p.db, func(tx *sql.Tx) (Expense, error) {
		return repository.QueryOne(ctx, tx, q, args, scanExpense)
	})
	if err != nil {
		return Expense{}, mapWriteError(err)
	}
	return updated, nil
}

func (p *postgres) Delete(ctx context.Context, id uuid.UUID) (attachments.List, error) {
	q := `DELETE FROM expenses WHERE id = $1 RETURNING attachments`

	atts, err := repository.WithTx(ctx, p.db, func(tx *sql.Tx) (attachments.List, error) {
		return repository.QueryOne(ctx, tx, q, []any{id}, func(s repository.Scanner) (attachments.List, error) {
			var l attachments.List
			err := s.Scan(&l)
			return l, err
		})
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrValidation)
	}
	return atts, nil
}

func (p *postgres) PullAttachment(ctx context.Context, id uuid.UUID, blobID string) (Expense, error) {
	q := `UPDATE expenses SET
		attachments = COALESCE((
			SELECT jsonb_agg(t.elem ORDER BY t.ord)
			FROM jsonb_array_elements(attachments) WITH ORDINALITY AS t(elem, ord)
			WHERE COALESCE(t.elem->>'id', t.elem #>> '{}') <> $2
		), '[]'::jsonb),
		updated_at = NOW()
		WHERE id = $1
		RETURNING ` + columns

	e, err := repository.WithTx(ctx, p.db, func(tx *sql.Tx) (Expense, error) {
		return repository.QueryOne(ctx, tx, q, []any{id, blobID}, scanExpense)
	})
	if err != nil {
		return Expense{}, repository.MapError(err, ErrNotFound, ErrValidation)
	}
	return e, nil
}

func (p *postgres) ReferencedBlobIDs(ctx context.Context) (map[string]struct{}, error) {
	q := `SELECT DISTINCT COALESCE(elem->>'id', elem #>> '{}')
		FROM expenses CROSS JOIN LATERAL jsonb_array_elements(attachments) AS elem`

	ids, err := repository.QueryMany(ctx, p.db, q, nil, func(s repository.Scanner) (string, error) {
		var id string
		err := s.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, fmt.Errorf("query referenced blobs: %w", err)
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func mapWriteError(err error) error {
	if repository.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: expense type does not exist", ErrValidation)
	}
	return repository.MapError(err, ErrNotFound, ErrValidation)
}

func scanExpense(s repository.Scanner) (Expense, error) {
	var e Expense
	err := s.Scan(
		&e.ID,
		&e.ExpenseTypeID,
		&e.Title,
		&e.Date,
		&e.Amount,
		&e.PaymentMode,
		&e.BillAvailable,
		&e.UserEmail,
		&e.Description,
		&e.CarNumber,
		&e.ServiceType,
		&e.Location,
		&e.EquipmentName,
		&e.EquipmentType,
		&e.Attachments,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}
