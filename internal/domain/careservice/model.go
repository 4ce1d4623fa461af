// Package careservice manages the services assigned to clients and the case
// notes written against them. A service's (category, type, provider) triple
// must resolve to an active catalog row before it can be created.
package careservice

import "time"

// Statuses a client service moves through.
const (
	StatusPlanned    = "Planned"
	StatusInProgress = "In Progress"
	StatusClosed     = "Closed"
)

var validStatuses = map[string]bool{
	StatusPlanned: true, StatusInProgress: true, StatusClosed: true,
}

// ClientService maps to the client_services table.
type ClientService struct {
	ID              int64     `db:"id" json:"id"`
	ClientID        int64     `db:"client_id" json:"clientId"`
	ServiceCategory string    `db:"service_category" json:"serviceCategory"`
	ServiceType     string    `db:"service_type" json:"serviceType"`
	ServiceProvider string    `db:"service_provider" json:"serviceProvider"`
	MasterDataID    *int64    `db:"master_data_id" json:"masterDataId,omitempty"`
	ScheduleDays    []string  `db:"schedule_days" json:"scheduleDays,omitempty"`
	HoursPerWeek    *float64  `db:"hours_per_week" json:"hoursPerWeek,omitempty"`
	Status          string    `db:"status" json:"status"`
	SegmentID       *int64    `db:"segment_id" json:"segmentId,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// ServiceCaseNote maps to the service_case_notes table. LinkedDocuments is
// populated on reads from the case_note_documents join table.
type ServiceCaseNote struct {
	ID              int64          `db:"id" json:"id"`
	ClientServiceID int64          `db:"client_service_id" json:"clientServiceId"`
	Note            string         `db:"note" json:"note"`
	CreatedBy       *int64         `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	LinkedDocuments []DocumentLink `json:"documents,omitempty"`
}

// DocumentLink is the document metadata surfaced alongside a case note.
type DocumentLink struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	FileName string `db:"file_name" json:"fileName"`
}

type createCaseNoteRequest struct {
	ClientServiceID int64   `json:"clientServiceId"`
	Note            string  `json:"note"`
	DocumentIDs     []int64 `json:"documentIds"`
}

type statusRequest struct {
	Status string `json:"status"`
}
