package careservice

import "context"

// ListFilter narrows client service listings. SegmentIDs nil means
// unrestricted.
type ListFilter struct {
	SegmentIDs []int64
	ClientID   *int64
	Status     string
	Limit      int
	Offset     int
}

type ClientServiceRepository interface {
	Create(ctx context.Context, cs *ClientService) error
	GetByID(ctx context.Context, id int64) (*ClientService, error)
	Update(ctx context.Context, cs *ClientService) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	List(ctx context.Context, f ListFilter) ([]*ClientService, int, error)

	CreateCaseNote(ctx context.Context, note *ServiceCaseNote) error
	LinkCaseNoteDocument(ctx context.Context, caseNoteID, documentID int64) error
	ListCaseNotes(ctx context.Context, clientServiceID int64) ([]*ServiceCaseNote, error)
}
