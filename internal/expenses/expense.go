// Package expenses provides expense records and the attachment lifecycle
// around them: upload on create, reconciliation on update, and blob
// cleanup on delete.
package expenses

import (
	"time"

	"github.com/JaimeStill/expense-api/internal/attachments"
	"github.com/google/uuid"
)

// Expense is a stored expense record. Attachments holds the persisted
// references in either shape; API responses use View instead.
type Expense struct {
	ID            uuid.UUID        `json:"id"`
	ExpenseTypeID uuid.UUID        `json:"expenseTypeId"`
	Title         string           `json:"title"`
	Date          time.Time        `json:"date"`
	Amount        float64          `json:"amount"`
	PaymentMode   string           `json:"paymentMode"`
	BillAvailable bool             `json:"billAvailable"`
	UserEmail     string           `json:"userEmail"`
	Description   string           `json:"description"`
	CarNumber     string           `json:"carNumber"`
	ServiceType   string           `json:"serviceType"`
	Location      string           `json:"location"`
	EquipmentName string           `json:"equipmentName"`
	EquipmentType string           `json:"equipmentType"`
	Attachments   attachments.List `json:"attachments"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// View is an expense with attachments resolved to display descriptors.
type View struct {
	Expense
	Attachments []attachments.Descriptor `json:"attachments"`
}

// Fields are the scalar values supplied on create.
type Fields struct {
	ExpenseTypeID uuid.UUID
	Title         string
	Date          time.Time
	Amount        float64
	PaymentMode   string
	BillAvailable bool
	UserEmail     string
	Description   string
	CarNumber     string
	ServiceType   string
	Location      string
	EquipmentName string
	EquipmentType string
}

// CreateCommand carries a new expense and its uploaded files.
type CreateCommand struct {
	Fields
	Files []attachments.Upload
}

// Patch holds the scalar fields present in an update request.
// Nil fields keep their stored value.
type Patch struct {
	ExpenseTypeID *uuid.UUID
	Title         *string
	Date          *time.Time
	Amount        *float64
	PaymentMode   *string
	BillAvailable *bool
	UserEmail     *string
	Description   *string
	CarNumber     *string
	ServiceType   *string
	Location      *string
	EquipmentName *string
	EquipmentType *string
}

// UpdateCommand carries a patch, the client's kept set, and new files.
type UpdateCommand struct {
	Patch
	// Kept is the raw keptAttachments JSON. An empty value keeps nothing.
	Kept     string
	NewFiles []attachments.Upload
}

// DeleteResult reports the outcome of a delete request.
type DeleteResult struct {
	Message             string   `json:"message"`
	DeletedCount        int      `json:"deletedCount"`
	DeletedExpenseIDs   []string `json:"deletedExpenseIds"`
	NotFoundExpenseIDs  []string `json:"notFoundExpenseIds"`
	FailedAttachmentIDs []string `json:"failedAttachmentIds"`
}

// CreateResponse is returned by the create endpoint.
type CreateResponse struct {
	Message   string    `json:"message"`
	ExpenseID uuid.UUID `json:"expense_id"`
}

// UpdateResponse is returned by the update endpoint.
type UpdateResponse struct {
	Message string `json:"message"`
	Expense View   `json:"expense"`
}
