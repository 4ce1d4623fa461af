// Package client manages person info records: the people receiving care.
// Records are never hard-deleted; their lifecycle is the status enum.
package client

import "time"

// Statuses a person info record moves through.
const (
	StatusNew    = "New"
	StatusActive = "Active"
	StatusPaused = "Paused"
	StatusClosed = "Closed"
)

var validStatuses = map[string]bool{
	StatusNew: true, StatusActive: true, StatusPaused: true, StatusClosed: true,
}

// PersonInfo maps to the person_info table.
type PersonInfo struct {
	ID          int64      `db:"id" json:"id"`
	FirstName   string     `db:"first_name" json:"firstName"`
	LastName    string     `db:"last_name" json:"lastName"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"dateOfBirth,omitempty"`
	Gender      *string    `db:"gender" json:"gender,omitempty"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	Email       *string    `db:"email" json:"email,omitempty"`
	AddressLine *string    `db:"address_line" json:"addressLine,omitempty"`
	City        *string    `db:"city" json:"city,omitempty"`
	State       *string    `db:"state" json:"state,omitempty"`
	PostalCode  *string    `db:"postal_code" json:"postalCode,omitempty"`

	NextOfKinName     *string `db:"next_of_kin_name" json:"nextOfKinName,omitempty"`
	NextOfKinRelation *string `db:"next_of_kin_relation" json:"nextOfKinRelation,omitempty"`
	NextOfKinPhone    *string `db:"next_of_kin_phone" json:"nextOfKinPhone,omitempty"`

	HCPLevel     *int       `db:"hcp_level" json:"hcpLevel,omitempty"`
	HCPStartDate *time.Time `db:"hcp_start_date" json:"hcpStartDate,omitempty"`

	Status    string    `db:"status" json:"status"`
	SegmentID *int64    `db:"segment_id" json:"segmentId,omitempty"`
	CreatedBy *int64    `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// ListFilter narrows person info listings. SegmentIDs nil means unrestricted.
type ListFilter struct {
	SegmentIDs []int64
	Status     string
	SegmentID  *int64
	Limit      int
	Offset     int
}
