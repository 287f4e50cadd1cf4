package server

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pupscribe/orderform/models"
)

const orderColumns = `id, created_by, customer_id, customer_name, gst_type, status,
	total_amount, estimate_created, estimate_id, estimate_number, estimate_url, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (models.Order, error) {
	var o models.Order
	var customerID sql.NullInt64
	err := row.Scan(&o.ID, &o.CreatedBy, &customerID, &o.CustomerName, &o.GSTType, &o.Status,
		&o.TotalAmount, &o.EstimateCreated, &o.EstimateID, &o.EstimateNumber, &o.EstimateURL,
		&o.CreatedAt, &o.UpdatedAt)
	if customerID.Valid {
		o.CustomerID = &customerID.Int64
	}
	return o, err
}

func (s *Server) orderItems(orderID int64) ([]models.OrderItem, error) {
	rows, err := s.db.Query(`SELECT product_id, name, brand, product_code, image_url,
		quantity, price, tax_percentage, margin, added_by FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Brand, &it.ProductCode, &it.ImageURL,
			&it.Quantity, &it.Price, &it.TaxPercentage, &it.Margin, &it.AddedBy); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Server) loadOrder(id string) (*models.Order, error) {
	o, err := scanOrder(s.db.QueryRow("SELECT "+orderColumns+" FROM orders WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o.Products, err = s.orderItems(o.ID)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

type createOrderRequest struct {
	CreatedBy int64 `json:"created_by"`
}

// CreateOrderHandler hands back the caller's existing draft if one exists,
// creating a fresh one otherwise. Salespeople work on a single draft at a
// time.
func (s *Server) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil || req.CreatedBy == 0 {
		writeError(w, http.StatusBadRequest, "created_by is required")
		return
	}

	existing, err := scanOrder(s.db.QueryRow("SELECT "+orderColumns+
		" FROM orders WHERE created_by = ? AND status = 'draft' AND deleted_at IS NULL", req.CreatedBy))
	if err == nil {
		existing.Products, _ = s.orderItems(existing.ID)
		writeJSON(w, http.StatusOK, map[string]any{"order": existing, "existing": true})
		return
	}
	if err != sql.ErrNoRows {
		s.Logger.Errorf("Failed to query draft order: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create order.")
		return
	}

	res, err := s.db.Exec(`INSERT INTO orders (created_by, status) VALUES (?, 'draft')`, req.CreatedBy)
	if err != nil {
		s.Logger.Errorf("Failed to insert order: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create order.")
		return
	}
	orderID, _ := res.LastInsertId()

	order, err := s.loadOrder(strconv64(orderID))
	if err != nil || order == nil {
		writeError(w, http.StatusInternalServerError, "Failed to create order.")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"order": order, "existing": false})
}

func (s *Server) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	role := q.Get("role")
	if role == "" {
		role = "salesperson"
	}
	createdBy := q.Get("created_by")
	status := q.Get("status")

	where := []string{"1=1"}
	args := []any{}
	if role == "salesperson" {
		if createdBy == "" {
			writeError(w, http.StatusBadRequest, "Salesperson role requires 'created_by'")
			return
		}
		where = append(where, "created_by = ?", "deleted_at IS NULL", "total_amount > 0")
		args = append(args, createdBy)
	}
	if status != "" {
		where = append(where, "status = ?")
		args = append(args, status)
	}

	rows, err := s.db.Query("SELECT "+orderColumns+" FROM orders WHERE "+
		strings.Join(where, " AND ")+" ORDER BY created_at DESC", args...)
	if err != nil {
		s.Logger.Errorf("Failed to query orders: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch orders.")
		return
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to fetch orders.")
			return
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		s.Logger.Errorf("Order rows failed mid-scan: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch orders.")
		return
	}

	// Admins get the creator joined in.
	if strings.Contains(role, "admin") {
		for i := range orders {
			var info models.UserInfo
			err := s.db.QueryRow(`SELECT id, name, email FROM users WHERE id = ?`, orders[i].CreatedBy).
				Scan(&info.ID, &info.Name, &info.Email)
			if err == nil {
				orders[i].CreatedByInfo = &info
			}
		}
	}

	for i := range orders {
		orders[i].Products, _ = s.orderItems(orders[i].ID)
	}

	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (s *Server) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, err := s.loadOrder(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch order.")
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (s *Server) UpdateOrderHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var raw map[string]any
	if err := decodeJSON(r, &raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := s.loadOrder(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update order.")
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update order.")
		return
	}
	defer tx.Rollback()

	sets := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []any{}

	// Attaching a customer denormalises its name and GST treatment onto the
	// order, the way estimates expect them.
	if rawID, ok := raw["customer_id"]; ok && rawID != nil {
		customerID := int64(toFloat(rawID))
		c, err := scanCustomer(tx.QueryRow("SELECT "+customerColumns+" FROM customers WHERE id = ?", customerID))
		if err == sql.ErrNoRows {
			writeError(w, http.StatusBadRequest, "Customer not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to update order.")
			return
		}
		gstType := c.GSTType
		if gstType == "" {
			gstType = "Exclusive"
		}
		sets = append(sets, "customer_id = ?", "customer_name = ?", "gst_type = ?")
		args = append(args, customerID, c.DisplayName(), gstType)
	}

	if status, ok := raw["status"].(string); ok && status != "" {
		sets = append(sets, "status = ?")
		args = append(args, strings.ToLower(status))
	}
	if total, ok := raw["total_amount"]; ok && total != nil {
		sets = append(sets, "total_amount = ?")
		args = append(args, toFloat(total))
	}

	args = append(args, order.ID)
	if _, err := tx.Exec("UPDATE orders SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
		s.Logger.Errorf("Failed to update order: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update order.")
		return
	}

	// A products payload replaces the line-item list wholesale.
	if rawProducts, ok := raw["products"]; ok {
		items, err := decodeOrderItems(rawProducts)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid products payload")
			return
		}
		if _, err := tx.Exec(`DELETE FROM order_items WHERE order_id = ?`, order.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to update order.")
			return
		}
		for _, it := range items {
			if it.Quantity < 1 {
				it.Quantity = 1
			}
			if _, err := tx.Exec(`INSERT INTO order_items (order_id, product_id, name, brand,
				product_code, image_url, quantity, price, tax_percentage, margin, added_by)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				order.ID, it.ProductID, it.Name, it.Brand, it.ProductCode, it.ImageURL,
				it.Quantity, it.Price, it.TaxPercentage, it.Margin, it.AddedBy); err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to update order.")
				return
			}
		}
	}

	if err := tx.Commit(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update order.")
		return
	}

	updated, err := s.loadOrder(id)
	if err != nil || updated == nil {
		writeError(w, http.StatusInternalServerError, "Failed to update order.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Order updated", "order": updated})
}

func (s *Server) DeleteOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, err := s.loadOrder(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete order.")
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	if order.EstimateCreated {
		writeError(w, http.StatusBadRequest, "Order With Estimate Created Cannot Be Marked As Deleted")
		return
	}

	if _, err := s.db.Exec(`UPDATE orders SET status = 'deleted', deleted_at = CURRENT_TIMESTAMP,
		updated_at = CURRENT_TIMESTAMP WHERE id = ?`, order.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete order.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Order deleted"})
}

// ClearEmptyOrdersHandler drops the caller's drafts that never got a
// customer attached.
func (s *Server) ClearEmptyOrdersHandler(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil || req.CreatedBy == 0 {
		writeError(w, http.StatusBadRequest, "created_by is required")
		return
	}

	res, err := s.db.Exec(`DELETE FROM orders WHERE created_by = ? AND customer_id IS NULL AND status = 'draft'`,
		req.CreatedBy)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear orders.")
		return
	}
	cleared, _ := res.RowsAffected()

	writeJSON(w, http.StatusOK, map[string]any{"message": "Empty orders cleared", "cleared": cleared})
}
