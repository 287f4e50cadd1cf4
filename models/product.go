package models

import "time"

type Product struct {
	ID             int64     `json:"id"`
	ItemID         string    `json:"item_id"`
	Name           string    `json:"name"`
	Brand          string    `json:"brand,omitempty"`
	SKU            string    `json:"cf_sku_code,omitempty"`
	Status         string    `json:"status"`
	Rate           float64   `json:"rate"`
	PurchaseRate   float64   `json:"purchase_rate,omitempty"`
	Stock          int64     `json:"stock"`
	TaxPercentage  float64   `json:"tax_percentage,omitempty"`
	HSNOrSAC       string    `json:"hsn_or_sac,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	IsComboProduct bool      `json:"is_combo_product,omitempty"`
	New            bool      `json:"new"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
