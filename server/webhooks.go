package server

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/pupscribe/orderform/models"
)

// reminderHour is the UTC hour at which payment reminders fire (mid-morning
// in IST, where the sales team works).
const reminderHour = 4

type itemWebhook struct {
	Item ZohoItem `json:"item"`
}

// ItemWebhookHandler receives Zoho item create/update events. New items
// additionally fan out a WhatsApp notification to the configured contacts.
func (s *Server) ItemWebhookHandler(w http.ResponseWriter, r *http.Request) {
	var payload itemWebhook
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}
	if payload.Item.ItemID == "" {
		writeError(w, http.StatusBadRequest, "item_id is required")
		return
	}

	inserted, err := s.upsertProduct(payload.Item)
	if err != nil {
		s.Logger.Errorf("Failed to upsert item %s: %v", payload.Item.ItemID, err)
		writeError(w, http.StatusInternalServerError, "Failed to process item")
		return
	}

	if inserted {
		language := s.templateLanguage("item_creation_update")
		for _, contact := range s.config.NotifyContacts {
			contact := contact
			go func() {
				err := s.notifier.SendWhatsApp(contact.Phone, "item_creation_update", language,
					[]string{contact.Name, payload.Item.Name}, "")
				if err != nil {
					s.Logger.Errorf("Failed to notify %s about new item: %v", contact.Name, err)
				}
			}()
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Item processed", "created": inserted})
}

func (s *Server) templateLanguage(name string) string {
	language := "en_US"
	s.db.QueryRow(`SELECT language FROM templates WHERE name = ?`, name).Scan(&language)
	return language
}

type invoiceWebhook struct {
	Invoice ZohoInvoice `json:"invoice"`
}

// InvoiceWebhookHandler receives Zoho invoice events, mirrors the invoice
// locally and keeps the payment-reminder schedule in step with its status.
func (s *Server) InvoiceWebhookHandler(w http.ResponseWriter, r *http.Request) {
	var payload invoiceWebhook
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}
	inv := payload.Invoice
	if inv.InvoiceID == "" {
		writeError(w, http.StatusBadRequest, "invoice_id is required")
		return
	}

	if _, err := s.upsertInvoice(inv); err != nil {
		s.Logger.Errorf("Failed to upsert invoice %s: %v", inv.InvoiceID, err)
		writeError(w, http.StatusInternalServerError, "Failed to process invoice")
		return
	}

	status := strings.ToLower(inv.Status)
	if status == "paid" || status == "void" {
		if err := s.reminders.RemoveForInvoice(inv.InvoiceID); err != nil {
			s.Logger.Errorf("Failed to remove reminders for invoice %s: %v", inv.InvoiceID, err)
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Invoice processed"})
		return
	}

	scheduled := s.scheduleInvoiceReminders(inv)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Invoice processed", "reminders": scheduled})
}

// scheduleInvoiceReminders books the one-week-before and due-date reminders
// for an unpaid invoice, addressed to the invoice's salesperson. Reminders
// whose run time already passed are skipped.
func (s *Server) scheduleInvoiceReminders(inv ZohoInvoice) int {
	if inv.DueDate == "" {
		return 0
	}

	dueDate, err := time.Parse("2006-01-02", inv.DueDate)
	if err != nil {
		s.Logger.Errorf("Invoice %s has unparseable due_date %q: %v", inv.InvoiceID, inv.DueDate, err)
		return 0
	}

	phone := s.salespersonPhone(inv.SalesPerson, inv.SalespersonName)
	if phone == "" {
		s.Logger.Warnf("No phone for salesperson %q, skipping reminders for invoice %s",
			inv.SalesPerson, inv.InvoiceID)
		return 0
	}

	payload := models.ReminderPayload{
		To:              phone,
		InvoiceNumber:   inv.InvoiceNumber,
		InvoiceDate:     inv.Date,
		DueDate:         inv.DueDate,
		CustomerName:    inv.CustomerName,
		Total:           inv.Total,
		Balance:         inv.Balance,
		SalespersonName: inv.SalespersonName,
	}

	fireAt := func(day time.Time) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), reminderHour, 0, 0, 0, time.UTC)
	}

	scheduled := 0
	now := time.Now()
	if runAt := fireAt(dueDate.AddDate(0, 0, -7)); runAt.After(now) {
		if _, err := s.reminders.Schedule(inv.InvoiceID, models.ReminderOneWeekBefore, runAt, payload); err != nil {
			s.Logger.Errorf("Failed to schedule reminder for invoice %s: %v", inv.InvoiceID, err)
		} else {
			scheduled++
		}
	}
	if runAt := fireAt(dueDate); runAt.After(now) {
		if _, err := s.reminders.Schedule(inv.InvoiceID, models.ReminderDueDate, runAt, payload); err != nil {
			s.Logger.Errorf("Failed to schedule reminder for invoice %s: %v", inv.InvoiceID, err)
		} else {
			scheduled++
		}
	}
	return scheduled
}

func (s *Server) salespersonPhone(code, name string) string {
	var phone string
	err := s.db.QueryRow(`SELECT phone FROM users
		WHERE (lower(code) = lower(?) OR lower(name) = lower(?)) AND phone != ''`,
		code, name).Scan(&phone)
	if err == sql.ErrNoRows {
		return ""
	}
	if err != nil {
		s.Logger.Errorf("Failed to look up salesperson phone: %v", err)
		return ""
	}
	return phone
}

type estimateWebhook struct {
	Estimate struct {
		EstimateID string `json:"estimate_id"`
		Status     string `json:"status"`
	} `json:"estimate"`
}

// EstimateWebhookHandler mirrors estimate status changes back onto the
// originating order.
func (s *Server) EstimateWebhookHandler(w http.ResponseWriter, r *http.Request) {
	var payload estimateWebhook
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}
	if payload.Estimate.EstimateID == "" {
		writeError(w, http.StatusBadRequest, "estimate_id is required")
		return
	}

	res, err := s.db.Exec(`UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE estimate_id = ?`,
		strings.ToLower(payload.Estimate.Status), payload.Estimate.EstimateID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to process estimate")
		return
	}
	updated, _ := res.RowsAffected()

	writeJSON(w, http.StatusOK, map[string]any{"message": "Estimate processed", "orders_updated": updated})
}
