// Package company manages companies and their segments. A segment is the
// tenancy unit: client data is scoped to a segment, and a segment belongs to
// exactly one company.
package company

import "time"

// Company maps to the companies table.
type Company struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	AddressLine  *string   `db:"address_line" json:"addressLine,omitempty"`
	City         *string   `db:"city" json:"city,omitempty"`
	State        *string   `db:"state" json:"state,omitempty"`
	PostalCode   *string   `db:"postal_code" json:"postalCode,omitempty"`
	ContactPhone *string   `db:"contact_phone" json:"contactPhone,omitempty"`
	ContactEmail *string   `db:"contact_email" json:"contactEmail,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Segment maps to the segments table.
type Segment struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CompanyID int64     `db:"company_id" json:"companyId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
