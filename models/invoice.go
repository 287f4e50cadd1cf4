package models

import "time"

type Invoice struct {
	ID              int64         `json:"id"`
	InvoiceID       string        `json:"invoice_id"`
	InvoiceNumber   string        `json:"invoice_number"`
	Status          string        `json:"status"`
	Date            string        `json:"date,omitempty"`
	DueDate         string        `json:"due_date,omitempty"`
	CustomerID      string        `json:"customer_id,omitempty"`
	CustomerName    string        `json:"customer_name,omitempty"`
	Total           float64       `json:"total"`
	Balance         float64       `json:"balance"`
	SalesPerson     string        `json:"cf_sales_person,omitempty"`
	SalespersonName string        `json:"salesperson_name,omitempty"`
	OverdueByDays   int           `json:"overdue_by_days,omitempty"`
	Notes           []InvoiceNote `json:"invoice_notes,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

type InvoiceNote struct {
	ID            int64     `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	Note          string    `json:"note"`
	CreatedBy     string    `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
