package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pupscribe/orderform/models"
)

type createEstimateRequest struct {
	// Status optionally moves the estimate straight to accepted or declined
	// after creation, which Zoho only allows via sent.
	Status string `json:"status"`
}

// CreateEstimateHandler turns a finished order into a Zoho Books estimate
// and records the estimate identifiers on the order.
func (s *Server) CreateEstimateHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req createEstimateRequest
	decodeJSON(r, &req)

	order, err := s.loadOrder(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create estimate.")
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	if order.CustomerID == nil {
		writeError(w, http.StatusBadRequest, "Order has no customer attached")
		return
	}
	if len(order.Products) == 0 {
		writeError(w, http.StatusBadRequest, "Order has no products")
		return
	}

	lineItems := make([]EstimateLineItem, 0, len(order.Products))
	for _, item := range order.Products {
		lineItems = append(lineItems, EstimateLineItem{
			Name:     item.Name,
			Rate:     item.Price,
			Quantity: item.Quantity,
		})
	}

	payload := EstimatePayload{
		CustomerName: order.CustomerName,
		ReferenceNum: "order-" + strconv64(order.ID),
		LineItems:    lineItems,
	}

	// An order that already has an estimate updates it in place rather than
	// creating a duplicate on Zoho.
	var result *EstimateResult
	message := "Estimate created"
	if order.EstimateCreated && order.EstimateID != "" {
		result, err = s.zoho.UpdateEstimate(r.Context(), order.EstimateID, payload)
		message = "Estimate updated"
	} else {
		result, err = s.zoho.CreateEstimate(r.Context(), payload)
	}
	if err != nil {
		s.Logger.Errorf("Failed to create estimate for order %d: %v", order.ID, err)
		writeError(w, http.StatusBadGateway, "Failed to create estimate on Zoho")
		return
	}

	status := models.OrderStatusSent
	if req.Status == models.OrderStatusAccepted || req.Status == models.OrderStatusDeclined {
		// Zoho requires the sent transition before accept/decline.
		if err := s.zoho.MarkEstimateStatus(r.Context(), result.EstimateID, "sent"); err != nil {
			s.Logger.Errorf("Failed to mark estimate sent: %v", err)
		} else if err := s.zoho.MarkEstimateStatus(r.Context(), result.EstimateID, req.Status); err != nil {
			s.Logger.Errorf("Failed to mark estimate %s: %v", req.Status, err)
		} else {
			status = strings.ToLower(req.Status)
		}
	}

	if _, err := s.db.Exec(`UPDATE orders SET status = ?, estimate_created = 1, estimate_id = ?,
		estimate_number = ?, estimate_url = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, result.EstimateID, result.EstimateNumber, result.EstimateURL, order.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record estimate.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":         message,
		"estimate_id":     result.EstimateID,
		"estimate_number": result.EstimateNumber,
		"estimate_url":    result.EstimateURL,
		"status":          status,
	})
}
