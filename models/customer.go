package models

import "time"

type Customer struct {
	ID          int64     `json:"id"`
	ContactID   string    `json:"contact_id,omitempty"`
	ContactName string    `json:"contact_name,omitempty"`
	CompanyName string    `json:"company_name,omitempty"`
	GSTNumber   string    `json:"gst_number,omitempty"`
	GSTType     string    `json:"cf_in_ex,omitempty"`
	SalesPerson string    `json:"cf_sales_person,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DisplayName prefers the company name, falling back to the contact name.
func (c Customer) DisplayName() string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	return c.ContactName
}
