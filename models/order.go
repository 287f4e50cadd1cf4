package models

import "time"

const (
	OrderStatusDraft    = "draft"
	OrderStatusSent     = "sent"
	OrderStatusAccepted = "accepted"
	OrderStatusDeclined = "declined"
	OrderStatusDeleted  = "deleted"
)

type Order struct {
	ID              int64       `json:"id"`
	CreatedBy       int64       `json:"created_by"`
	CustomerID      *int64      `json:"customer_id,omitempty"`
	CustomerName    string      `json:"customer_name,omitempty"`
	GSTType         string      `json:"gst_type,omitempty"`
	Status          string      `json:"status"`
	TotalAmount     float64     `json:"total_amount"`
	EstimateCreated bool        `json:"estimate_created"`
	EstimateID      string      `json:"estimate_id,omitempty"`
	EstimateNumber  string      `json:"estimate_number,omitempty"`
	EstimateURL     string      `json:"estimate_url,omitempty"`
	Products        []OrderItem `json:"products"`
	CreatedByInfo   *UserInfo   `json:"created_by_info,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ProductID     int64   `json:"product_id"`
	Name          string  `json:"name"`
	Brand         string  `json:"brand,omitempty"`
	ProductCode   string  `json:"product_code,omitempty"`
	ImageURL      string  `json:"image_url,omitempty"`
	Quantity      int64   `json:"quantity"`
	Price         float64 `json:"price"`
	TaxPercentage float64 `json:"tax_percentage"`
	Margin        string  `json:"margin,omitempty"`
	AddedBy       string  `json:"added_by,omitempty"`
}

// UserInfo is the creator summary attached to orders on the admin surface.
type UserInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
