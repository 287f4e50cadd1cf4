package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pupscribe/orderform/pkg"
)

// brandFromName derives the brand from the item name's first word. The
// FOFOS house brand keeps its all-caps spelling.
func brandFromName(name string) string {
	brand, _, _ := strings.Cut(name, " ")
	if brand == "" || brand == "FOFOS" {
		return brand
	}
	return strings.ToUpper(brand[:1]) + strings.ToLower(brand[1:])
}

// upsertProduct writes one Zoho item into the products table. Returns true
// when the item was new.
func (s *Server) upsertProduct(item ZohoItem) (bool, error) {
	if item.ItemID == "" {
		return false, nil
	}

	sku := item.CustomFieldHash.CFSKUCode
	if sku == "" {
		sku = item.SKU
	}
	var taxPercentage float64
	if len(item.ItemTaxPreferences) > 0 {
		taxPercentage = item.ItemTaxPreferences[0].TaxPercentage
	}
	status := item.Status
	if status == "" {
		status = "inactive"
	}

	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM products WHERE item_id = ?`, item.ItemID).Scan(&exists); err != nil {
		return false, err
	}

	if exists > 0 {
		_, err := s.db.Exec(`UPDATE products SET name = ?, status = ?, rate = ?, purchase_rate = ?,
			stock = ?, sku = ?, tax_percentage = ?, hsn_or_sac = ?, image_url = ?,
			is_combo_product = ?, updated_at = CURRENT_TIMESTAMP WHERE item_id = ?`,
			item.Name, status, item.Rate, item.PurchaseRate, int64(item.StockOnHand), sku,
			taxPercentage, item.HSNOrSAC, item.ImageURL, item.IsComboProduct, item.ItemID)
		return false, err
	}

	_, err := s.db.Exec(`INSERT INTO products (item_id, name, brand, sku, status, rate,
		purchase_rate, stock, tax_percentage, hsn_or_sac, image_url, is_combo_product)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ItemID, item.Name, brandFromName(item.Name), sku, status, item.Rate,
		item.PurchaseRate, int64(item.StockOnHand), taxPercentage, item.HSNOrSAC,
		item.ImageURL, item.IsComboProduct)
	return err == nil, err
}

// upsertInvoice writes one Zoho invoice into the invoices table. Returns
// true when the invoice was new.
func (s *Server) upsertInvoice(inv ZohoInvoice) (bool, error) {
	if inv.InvoiceID == "" {
		return false, nil
	}

	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM invoices WHERE invoice_id = ?`, inv.InvoiceID).Scan(&exists); err != nil {
		return false, err
	}

	if exists > 0 {
		_, err := s.db.Exec(`UPDATE invoices SET invoice_number = ?, status = ?, date = ?, due_date = ?,
			customer_id = ?, customer_name = ?, total = ?, balance = ?, sales_person = ?, salesperson_name = ?
			WHERE invoice_id = ?`,
			inv.InvoiceNumber, inv.Status, inv.Date, inv.DueDate, inv.CustomerID, inv.CustomerName,
			inv.Total, inv.Balance, inv.SalesPerson, inv.SalespersonName, inv.InvoiceID)
		return false, err
	}

	_, err := s.db.Exec(`INSERT INTO invoices (invoice_id, invoice_number, status, date, due_date,
		customer_id, customer_name, total, balance, sales_person, salesperson_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.InvoiceID, inv.InvoiceNumber, inv.Status, inv.Date, inv.DueDate, inv.CustomerID,
		inv.CustomerName, inv.Total, inv.Balance, inv.SalesPerson, inv.SalespersonName)
	return err == nil, err
}

// RunProductSync walks every page of Zoho Inventory items and mirrors them
// locally, reporting the outcome to Slack.
func (s *Server) RunProductSync(ctx context.Context) (pkg.SyncReport, error) {
	start := time.Now()
	report := pkg.SyncReport{Job: "product_sync"}

	s.Logger.Infof("Starting product sync...")
	for page := 1; ; page++ {
		items, hasMore, err := s.zoho.FetchItems(ctx, page)
		if err != nil {
			syncRunsTotal.WithLabelValues(report.Job, "failure").Inc()
			s.notifier.SendSlackReport("Product Sync", nil, err)
			return report, err
		}

		report.Pages = page
		for _, item := range items {
			inserted, err := s.upsertProduct(item)
			if err != nil {
				syncRunsTotal.WithLabelValues(report.Job, "failure").Inc()
				s.notifier.SendSlackReport("Product Sync", nil, err)
				return report, err
			}
			report.Processed++
			if inserted {
				report.Inserted++
			} else {
				report.Updated++
			}
		}

		if !hasMore {
			break
		}
	}

	report.Duration = time.Since(start).Seconds()
	syncRunsTotal.WithLabelValues(report.Job, "success").Inc()
	s.notifier.SendSlackReport("Product Sync", &report, nil)
	s.Logger.Infof("Product sync done: %d processed, %d new in %.1fs",
		report.Processed, report.Inserted, report.Duration)
	return report, nil
}

// RunInvoiceSync mirrors Zoho Books invoices locally, the same way.
func (s *Server) RunInvoiceSync(ctx context.Context) (pkg.SyncReport, error) {
	start := time.Now()
	report := pkg.SyncReport{Job: "invoice_sync"}

	s.Logger.Infof("Starting invoice sync...")
	for page := 1; ; page++ {
		invoices, hasMore, err := s.zoho.FetchInvoices(ctx, page)
		if err != nil {
			syncRunsTotal.WithLabelValues(report.Job, "failure").Inc()
			s.notifier.SendSlackReport("Invoice Sync", nil, err)
			return report, err
		}

		report.Pages = page
		for _, inv := range invoices {
			inserted, err := s.upsertInvoice(inv)
			if err != nil {
				syncRunsTotal.WithLabelValues(report.Job, "failure").Inc()
				s.notifier.SendSlackReport("Invoice Sync", nil, err)
				return report, err
			}
			report.Processed++
			if inserted {
				report.Inserted++
			} else {
				report.Updated++
			}
		}

		if !hasMore {
			break
		}
	}

	report.Duration = time.Since(start).Seconds()
	syncRunsTotal.WithLabelValues(report.Job, "success").Inc()
	s.notifier.SendSlackReport("Invoice Sync", &report, nil)
	s.Logger.Infof("Invoice sync done: %d processed, %d new in %.1fs",
		report.Processed, report.Inserted, report.Duration)
	return report, nil
}

func (s *Server) SyncProductsHandler(w http.ResponseWriter, r *http.Request) {
	go func() {
		if _, err := s.RunProductSync(context.Background()); err != nil {
			s.Logger.Errorf("Product sync failed: %v", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Product sync started"})
}

func (s *Server) SyncInvoicesHandler(w http.ResponseWriter, r *http.Request) {
	go func() {
		if _, err := s.RunInvoiceSync(context.Background()); err != nil {
			s.Logger.Errorf("Invoice sync failed: %v", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Invoice sync started"})
}
