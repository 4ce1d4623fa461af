// Package masterdata manages the service catalog: the canonical
// (category, type, provider) triples a client service may reference, scoped
// to a segment or global.
package masterdata

import "time"

// MasterData maps to the master_data table.
type MasterData struct {
	ID              int64     `db:"id" json:"id"`
	ServiceCategory string    `db:"service_category" json:"serviceCategory"`
	ServiceType     string    `db:"service_type" json:"serviceType"`
	ServiceProvider string    `db:"service_provider" json:"serviceProvider"`
	SegmentID       *int64    `db:"segment_id" json:"segmentId,omitempty"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// VerifyResult is the body of the verify endpoint.
type VerifyResult struct {
	Exists bool  `json:"exists"`
	ID     int64 `json:"id,omitempty"`
}

// ServiceRef identifies a client service referencing a catalog row. Returned
// in the conflict report when a referenced row is modified.
type ServiceRef struct {
	ServiceID  int64  `db:"service_id" json:"serviceId"`
	ClientName string `db:"client_name" json:"clientName"`
	Status     string `db:"status" json:"status"`
}
