package server

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pupscribe/orderform/models"
)

// houseAccountKeywords mark invoices that belong to house accounts rather
// than a field salesperson; those never show up in reminder lists.
var houseAccountKeywords = []string{
	"company customers", "defaulter", "amazon", "staff purchase", "marketing inv",
}

const invoiceColumns = `id, invoice_id, invoice_number, status, date, due_date,
	customer_id, customer_name, total, balance, sales_person, salesperson_name, created_at`

func scanInvoice(row interface{ Scan(...any) error }) (models.Invoice, error) {
	var inv models.Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceID, &inv.InvoiceNumber, &inv.Status, &inv.Date,
		&inv.DueDate, &inv.CustomerID, &inv.CustomerName, &inv.Total, &inv.Balance,
		&inv.SalesPerson, &inv.SalespersonName, &inv.CreatedAt)
	return inv, err
}

func isHouseAccount(salesPerson, salespersonName string) bool {
	for _, keyword := range houseAccountKeywords {
		if strings.Contains(strings.ToLower(salesPerson), keyword) ||
			strings.Contains(strings.ToLower(salespersonName), keyword) {
			return true
		}
	}
	return false
}

// ListOverdueInvoicesHandler returns the calling salesperson's overdue
// invoices, each annotated with how many days past due it is and any notes
// colleagues left on it.
func (s *Server) ListOverdueInvoicesHandler(w http.ResponseWriter, r *http.Request) {
	createdBy := r.URL.Query().Get("created_by")
	if createdBy == "" {
		writeError(w, http.StatusBadRequest, "created_by is required")
		return
	}

	var code string
	err := s.db.QueryRow(`SELECT code FROM users WHERE id = ?`, createdBy).Scan(&code)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch invoices.")
		return
	}

	rows, err := s.db.Query(`SELECT `+invoiceColumns+`,
		CAST(julianday('now') - julianday(due_date) AS INTEGER) AS overdue_by_days
		FROM invoices
		WHERE due_date < date('now')
		  AND status NOT IN ('paid', 'void')
		  AND (lower(sales_person) = lower(?) OR lower(salesperson_name) = lower(?))
		ORDER BY due_date ASC`, code, code)
	if err != nil {
		s.Logger.Errorf("Failed to query invoices: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch invoices.")
		return
	}
	defer rows.Close()

	invoices := []models.Invoice{}
	for rows.Next() {
		var inv models.Invoice
		if err := rows.Scan(&inv.ID, &inv.InvoiceID, &inv.InvoiceNumber, &inv.Status, &inv.Date,
			&inv.DueDate, &inv.CustomerID, &inv.CustomerName, &inv.Total, &inv.Balance,
			&inv.SalesPerson, &inv.SalespersonName, &inv.CreatedAt, &inv.OverdueByDays); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to fetch invoices.")
			return
		}
		if isHouseAccount(inv.SalesPerson, inv.SalespersonName) {
			continue
		}
		inv.Status = "Overdue"
		inv.Notes, err = s.invoiceNotes(inv.InvoiceNumber)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to fetch invoices.")
			return
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		s.Logger.Errorf("Invoice rows failed mid-scan: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch invoices.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (s *Server) invoiceNotes(invoiceNumber string) ([]models.InvoiceNote, error) {
	rows, err := s.db.Query(`SELECT id, invoice_number, note, created_by, created_at
		FROM invoice_notes WHERE invoice_number = ? ORDER BY created_at DESC`, invoiceNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []models.InvoiceNote{}
	for rows.Next() {
		var n models.InvoiceNote
		if err := rows.Scan(&n.ID, &n.InvoiceNumber, &n.Note, &n.CreatedBy, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (s *Server) GetInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inv, err := scanInvoice(s.db.QueryRow("SELECT "+invoiceColumns+" FROM invoices WHERE id = ?", id))
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "Invoice not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch invoice.")
		return
	}

	inv.Notes, _ = s.invoiceNotes(inv.InvoiceNumber)
	writeJSON(w, http.StatusOK, inv)
}

type invoiceNoteRequest struct {
	Note      string `json:"note"`
	CreatedBy string `json:"created_by"`
}

func (s *Server) AddInvoiceNoteHandler(w http.ResponseWriter, r *http.Request) {
	invoiceNumber := chi.URLParam(r, "invoiceNumber")

	var req invoiceNoteRequest
	if err := decodeJSON(r, &req); err != nil || req.Note == "" {
		writeError(w, http.StatusBadRequest, "note is required")
		return
	}

	res, err := s.db.Exec(`INSERT INTO invoice_notes (invoice_number, note, created_by) VALUES (?, ?, ?)`,
		invoiceNumber, req.Note, req.CreatedBy)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to add note.")
		return
	}
	noteID, _ := res.LastInsertId()

	writeJSON(w, http.StatusOK, map[string]any{"message": "Note added", "note_id": noteID})
}
