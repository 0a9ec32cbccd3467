package api

import (
	"github.com/JaimeStill/expense-api/internal/attachments"
	"github.com/JaimeStill/expense-api/internal/expenses"
	"github.com/JaimeStill/expense-api/internal/expensetypes"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	ExpenseTypes expensetypes.System
	Expenses     expenses.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	typesSys := expensetypes.New(db, runtime.Logger)

	expensesSys := expenses.New(
		expenses.NewRepository(db),
		typesSys,
		runtime.Storage,
		attachments.NewUploader(runtime.Storage, runtime.UploadPool, runtime.UploadPolicy, runtime.Logger),
		attachments.NewResolver(runtime.Storage, runtime.Logger),
		runtime.Logger,
	)

	return &Domain{
		ExpenseTypes: typesSys,
		Expenses:     expensesSys,
	}
}
