package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invoiceSeed struct {
	invoiceID   string
	number      string
	status      string
	dueDate     string
	salesPerson string
	balance     float64
}

func seedInvoice(t *testing.T, s *Server, inv invoiceSeed) {
	t.Helper()
	if inv.status == "" {
		inv.status = "sent"
	}
	_, err := s.db.Exec(`INSERT INTO invoices (invoice_id, invoice_number, status, date, due_date,
		customer_id, customer_name, total, balance, sales_person, salesperson_name)
		VALUES (?, ?, ?, '2026-01-01', ?, 'c1', 'Happy Tails', ?, ?, ?, ?)`,
		inv.invoiceID, inv.number, inv.status, inv.dueDate, inv.balance, inv.balance,
		inv.salesPerson, inv.salesPerson)
	require.NoError(t, err)
}

func TestListOverdueInvoices(t *testing.T) {
	s := newTestServer(t)
	userID := seedUser(t, s, "sales@pupscribe.in", "hunter2", "Rohan", "RO", "", "salesperson")

	pastDue := time.Now().AddDate(0, 0, -10).Format("2006-01-02")
	future := time.Now().AddDate(0, 0, 10).Format("2006-01-02")

	seedInvoice(t, s, invoiceSeed{invoiceID: "1", number: "INV-001", dueDate: pastDue, salesPerson: "RO", balance: 500})
	seedInvoice(t, s, invoiceSeed{invoiceID: "2", number: "INV-002", dueDate: future, salesPerson: "RO", balance: 300})
	seedInvoice(t, s, invoiceSeed{invoiceID: "3", number: "INV-003", dueDate: pastDue, salesPerson: "RO", balance: 200, status: "paid"})
	seedInvoice(t, s, invoiceSeed{invoiceID: "4", number: "INV-004", dueDate: pastDue, salesPerson: "SK", balance: 100})

	rec, _ := doRequest(t, s, http.MethodGet, "/api/invoices", nil, "")
	requireStatus(t, rec, http.StatusBadRequest)

	rec, _ = doRequest(t, s, http.MethodGet, "/api/invoices?created_by=9999", nil, "")
	requireStatus(t, rec, http.StatusNotFound)

	rec, body := doRequest(t, s, http.MethodGet, "/api/invoices?created_by="+strconv64(userID), nil, "")
	requireStatus(t, rec, http.StatusOK)

	invoices := body["invoices"].([]any)
	require.Len(t, invoices, 1)
	inv := invoices[0].(map[string]any)
	assert.Equal(t, "INV-001", inv["invoice_number"])
	assert.Equal(t, "Overdue", inv["status"])
	assert.InDelta(t, 10, inv["overdue_by_days"], 1)
}

func TestOverdueListSkipsHouseAccounts(t *testing.T) {
	s := newTestServer(t)
	userID := seedUser(t, s, "house@pupscribe.in", "hunter2", "House", "Defaulter", "", "salesperson")

	pastDue := time.Now().AddDate(0, 0, -5).Format("2006-01-02")
	seedInvoice(t, s, invoiceSeed{invoiceID: "1", number: "INV-001", dueDate: pastDue, salesPerson: "Defaulter", balance: 500})

	rec, body := doRequest(t, s, http.MethodGet, "/api/invoices?created_by="+strconv64(userID), nil, "")
	requireStatus(t, rec, http.StatusOK)
	assert.Len(t, body["invoices"].([]any), 0)
}

func TestInvoiceNotes(t *testing.T) {
	s := newTestServer(t)
	seedInvoice(t, s, invoiceSeed{invoiceID: "1", number: "INV-001",
		dueDate: time.Now().Format("2006-01-02"), salesPerson: "RO", balance: 500})

	rec, _ := doRequest(t, s, http.MethodPost, "/api/invoices/INV-001/notes", map[string]string{
		"note": "Promised payment next week", "created_by": "Rohan",
	}, "")
	requireStatus(t, rec, http.StatusOK)

	rec, _ = doRequest(t, s, http.MethodPost, "/api/invoices/INV-001/notes", map[string]string{
		"created_by": "Rohan",
	}, "")
	requireStatus(t, rec, http.StatusBadRequest)

	rec, body := doRequest(t, s, http.MethodGet, "/api/invoices/1", nil, "")
	requireStatus(t, rec, http.StatusOK)
	notes := body["invoice_notes"].([]any)
	require.Len(t, notes, 1)
	note := notes[0].(map[string]any)
	assert.Equal(t, "Promised payment next week", note["note"])
	assert.Equal(t, "Rohan", note["created_by"])

	rec, _ = doRequest(t, s, http.MethodGet, "/api/invoices/9999", nil, "")
	requireStatus(t, rec, http.StatusNotFound)
}
