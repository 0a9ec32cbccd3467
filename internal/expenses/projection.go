package expenses

import "github.com/JaimeStill/expense-api/pkg/query"

// projection follows the scanExpense column order.
var projection = query.NewProjectionMap("public", "expenses", "e").
	Project("id", "ID").
	Project("expense_type_id", "ExpenseTypeID").
	Project("title", "Title").
	Project("date", "Date").
	Project("amount", "Amount").
	Project("payment_mode", "PaymentMode").
	Project("bill_available", "BillAvailable").
	Project("user_email", "UserEmail").
	Project("description", "Description").
	Project("car_number", "CarNumber").
	Project("service_type", "ServiceType").
	Project("location", "Location").
	Project("equipment_name", "EquipmentName").
	Project("equipment_type", "EquipmentType").
	Project("attachments", "Attachments").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = []query.SortField{
	{Field: "Date", Descending: true},
	{Field: "CreatedAt", Descending: true},
}
