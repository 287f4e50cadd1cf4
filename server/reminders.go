package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pupscribe/orderform/models"
)

const reminderPollInterval = 30 * time.Second

// misfireGrace matches how far past its run time a job may still fire; jobs
// older than this are dropped as stale instead of spamming customers.
const misfireGrace = 24 * time.Hour

// ReminderScheduler is a persistent one-shot job scheduler for invoice
// payment reminders. Jobs survive restarts because they live in the
// database; a polling dispatcher fires the ones that have come due.
type ReminderScheduler struct {
	db       *sql.DB
	notifier *Notifier
	logger   *zap.SugaredLogger

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewReminderScheduler(db *sql.DB, notifier *Notifier, logger *zap.SugaredLogger) *ReminderScheduler {
	return &ReminderScheduler{
		db:       db,
		notifier: notifier,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

func reminderJobID(invoiceID, suffix string) string {
	return fmt.Sprintf("job_%s_%s", invoiceID, suffix)
}

// Schedule registers a one-shot reminder. Scheduling the same invoice and
// suffix again replaces the previous job.
func (rs *ReminderScheduler) Schedule(invoiceID, suffix string, runAt time.Time, payload models.ReminderPayload) (string, error) {
	jobID := reminderJobID(invoiceID, suffix)

	payload.Kind = suffix
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	_, err = rs.db.Exec(`INSERT INTO reminders (id, invoice_id, run_at, payload, sent_at)
		VALUES (?, ?, ?, ?, NULL)
		ON CONFLICT(id) DO UPDATE SET run_at = excluded.run_at, payload = excluded.payload, sent_at = NULL`,
		jobID, invoiceID, runAt.UTC(), string(raw))
	if err != nil {
		return "", err
	}

	rs.logger.Infof("Scheduled job %s at %s", jobID, runAt.UTC().Format(time.RFC3339))
	return jobID, nil
}

// RemoveForInvoice drops every pending reminder for an invoice, e.g. when
// it gets paid or voided.
func (rs *ReminderScheduler) RemoveForInvoice(invoiceID string) error {
	res, err := rs.db.Exec(`DELETE FROM reminders WHERE invoice_id = ? AND sent_at IS NULL`, invoiceID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		rs.logger.Infof("Removed %d scheduled jobs for invoice %s", n, invoiceID)
	}
	return nil
}

func (rs *ReminderScheduler) Start() {
	rs.wg.Add(1)
	go func() {
		defer rs.wg.Done()
		ticker := time.NewTicker(reminderPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-rs.stop:
				return
			case <-ticker.C:
				if err := rs.DispatchDue(time.Now()); err != nil {
					rs.logger.Errorf("Reminder dispatch failed: %v", err)
				}
			}
		}
	}()
}

func (rs *ReminderScheduler) Stop() {
	rs.once.Do(func() { close(rs.stop) })
	rs.wg.Wait()
}

// DispatchDue fires every unsent reminder whose run time has passed.
func (rs *ReminderScheduler) DispatchDue(now time.Time) error {
	rows, err := rs.db.Query(`SELECT id, invoice_id, run_at, payload FROM reminders
		WHERE sent_at IS NULL AND run_at <= ? ORDER BY run_at`, now.UTC())
	if err != nil {
		return err
	}
	defer rows.Close()

	type dueJob struct {
		id        string
		invoiceID string
		runAt     time.Time
		raw       string
	}
	var due []dueJob
	for rows.Next() {
		var j dueJob
		if err := rows.Scan(&j.id, &j.invoiceID, &j.runAt, &j.raw); err != nil {
			return err
		}
		due = append(due, j)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, job := range due {
		if now.Sub(job.runAt) > misfireGrace {
			rs.logger.Warnf("Dropping stale reminder %s (due %s)", job.id, job.runAt.Format(time.RFC3339))
			rs.markSent(job.id, now)
			continue
		}

		var payload models.ReminderPayload
		if err := json.Unmarshal([]byte(job.raw), &payload); err != nil {
			rs.logger.Errorf("Job %s has a corrupt payload: %v", job.id, err)
			rs.markSent(job.id, now)
			continue
		}

		if err := rs.send(payload); err != nil {
			rs.logger.Errorf("Job %s raised an exception: %v", job.id, err)
			continue
		}

		rs.logger.Infof("Job %s completed successfully", job.id)
		remindersSent.Inc()
		rs.markSent(job.id, now)
	}
	return nil
}

func (rs *ReminderScheduler) markSent(jobID string, now time.Time) {
	if _, err := rs.db.Exec(`UPDATE reminders SET sent_at = ? WHERE id = ?`, now.UTC(), jobID); err != nil {
		rs.logger.Errorf("Failed to mark reminder %s sent: %v", jobID, err)
	}
}

func (rs *ReminderScheduler) send(p models.ReminderPayload) error {
	templateName := "payment_reminder_due"
	if p.Kind == models.ReminderOneWeekBefore {
		templateName = "payment_reminder"
	}

	params := []string{
		p.InvoiceNumber,
		p.InvoiceDate,
		p.DueDate,
		p.CustomerName,
		fmt.Sprintf("%.2f", p.Total),
		fmt.Sprintf("%.2f", p.Balance),
	}
	return rs.notifier.SendWhatsApp(p.To, templateName, "en_US", params, "")
}
