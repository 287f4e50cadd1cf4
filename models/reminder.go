package models

import "time"

const (
	ReminderOneWeekBefore = "one_week_before"
	ReminderDueDate       = "due_date"
)

// ReminderPayload carries everything needed to render the WhatsApp
// payment-reminder template when the job fires.
type ReminderPayload struct {
	To              string  `json:"to"`
	InvoiceNumber   string  `json:"invoice_number"`
	InvoiceDate     string  `json:"created_at"`
	DueDate         string  `json:"due_date"`
	CustomerName    string  `json:"customer_name"`
	Total           float64 `json:"total"`
	Balance         float64 `json:"balance"`
	SalespersonName string  `json:"salesperson_name"`
	Kind            string  `json:"type"`
}

type Reminder struct {
	ID        string          `json:"id"`
	InvoiceID string          `json:"invoice_id"`
	RunAt     time.Time       `json:"run_at"`
	Payload   ReminderPayload `json:"payload"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}
