package careservice

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caretrack/caretrack/internal/domain/masterdata"
	"github.com/caretrack/caretrack/internal/platform/apierror"
	"github.com/caretrack/caretrack/internal/platform/auth"
	"github.com/caretrack/caretrack/internal/platform/db"
	"github.com/caretrack/caretrack/internal/platform/tenancy"
)

// Catalog answers whether a service triple exists as an active catalog row.
// Satisfied by masterdata.Service.
type Catalog interface {
	Verify(ctx context.Context, category, svcType, provider string, segmentID *int64) (*masterdata.VerifyResult, error)
}

type Service struct {
	repo    ClientServiceRepository
	catalog Catalog
	pool    *pgxpool.Pool
}

// NewService wires the client service domain. pool drives the case note
// transaction and may be nil in tests, in which case writes run untransacted.
func NewService(repo ClientServiceRepository, catalog Catalog, pool *pgxpool.Pool) *Service {
	return &Service{repo: repo, catalog: catalog, pool: pool}
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.WithTx(ctx, s.pool, fn)
}

func segmentEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func validateService(cs *ClientService) error {
	details := map[string]string{}
	if cs.ClientID <= 0 {
		details["clientId"] = "required"
	}
	if strings.TrimSpace(cs.ServiceCategory) == "" {
		details["serviceCategory"] = "required"
	}
	if strings.TrimSpace(cs.ServiceType) == "" {
		details["serviceType"] = "required"
	}
	if strings.TrimSpace(cs.ServiceProvider) == "" {
		details["serviceProvider"] = "required"
	}
	if cs.Status != "" && !validStatuses[cs.Status] {
		details["status"] = "must be one of Planned, In Progress, Closed"
	}
	if len(details) > 0 {
		return apierror.Validation("invalid client service payload", details)
	}
	return nil
}

// Create validates the triple against the catalog before writing. A triple
// with no matching active catalog row is rejected and nothing is stored.
func (s *Service) Create(ctx context.Context, cs *ClientService) error {
	if err := validateService(cs); err != nil {
		return err
	}
	scope := tenancy.ScopeFromContext(ctx)
	if !scope.Allows(cs.SegmentID) {
		return apierror.Forbidden(apierror.CodeSegmentAccessDenied, "segment access denied")
	}

	result, err := s.catalog.Verify(ctx, cs.ServiceCategory, cs.ServiceType, cs.ServiceProvider, cs.SegmentID)
	if err != nil {
		return err
	}
	if !result.Exists {
		return apierror.BadRequest(apierror.CodeServiceNotInCatalog,
			"service combination is not in the catalog")
	}
	cs.MasterDataID = &result.ID

	if cs.Status == "" {
		cs.Status = StatusPlanned
	}
	if err := s.repo.Create(ctx, cs); err != nil {
		return apierror.FromPG(err, "create client service")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*ClientService, error) {
	cs, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierror.NotFound("client service not found")
	}
	if err != nil {
		return nil, apierror.FromPG(err, "get client service")
	}
	scope := tenancy.ScopeFromContext(ctx)
	if !scope.Allows(cs.SegmentID) {
		return nil, apierror.NotFound("client service not found")
	}
	return cs, nil
}

func (s *Service) Update(ctx context.Context, cs *ClientService) (*ClientService, error) {
	if err := validateService(cs); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, cs.ID)
	if err != nil {
		return nil, err
	}
	scope := tenancy.ScopeFromContext(ctx)
	if !scope.Allows(cs.SegmentID) {
		return nil, apierror.Forbidden(apierror.CodeSegmentAccessDenied, "segment access denied")
	}

	tripleChanged := existing.ServiceCategory != cs.ServiceCategory ||
		existing.ServiceType != cs.ServiceType ||
		existing.ServiceProvider != cs.ServiceProvider
	// Moving to another segment can land the triple where no active catalog
	// row covers it, so the segment change re-verifies too.
	if tripleChanged || !segmentEqual(existing.SegmentID, cs.SegmentID) {
		result, err := s.catalog.Verify(ctx, cs.ServiceCategory, cs.ServiceType, cs.ServiceProvider, cs.SegmentID)
		if err != nil {
			return nil, err
		}
		if !result.Exists {
			return nil, apierror.BadRequest(apierror.CodeServiceNotInCatalog,
				"service combination is not in the catalog")
		}
		cs.MasterDataID = &result.ID
	} else {
		cs.MasterDataID = existing.MasterDataID
	}

	cs.ClientID = existing.ClientID
	cs.Status = existing.Status
	if err := s.repo.Update(ctx, cs); err != nil {
		return nil, apierror.FromPG(err, "update client service")
	}
	return cs, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*ClientService, error) {
	if !validStatuses[status] {
		return nil, apierror.Validation("invalid status", map[string]string{
			"status": "must be one of Planned, In Progress, Closed",
		})
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, apierror.FromPG(err, "update client service status")
	}
	return s.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, clientID *int64, status string, limit, offset int) ([]*ClientService, int, error) {
	scope := tenancy.ScopeFromContext(ctx)
	if scope == nil {
		return nil, 0, apierror.Forbidden(apierror.CodeSegmentAccessDenied, "segment access denied")
	}
	if status != "" && !validStatuses[status] {
		return nil, 0, apierror.Validation("invalid status filter", nil)
	}
	items, total, err := s.repo.List(ctx, ListFilter{
		SegmentIDs: scope.FilterIDs(),
		ClientID:   clientID,
		Status:     status,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, 0, apierror.FromPG(err, "list client services")
	}
	return items, total, nil
}

// CreateCaseNote inserts the note and its document links in one transaction.
// A failed link rolls back the note.
func (s *Service) CreateCaseNote(ctx context.Context, clientServiceID int64, text string, documentIDs []int64) (*ServiceCaseNote, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apierror.Validation("note text is required", map[string]string{"note": "required"})
	}
	if _, err := s.Get(ctx, clientServiceID); err != nil {
		return nil, err
	}

	note := &ServiceCaseNote{ClientServiceID: clientServiceID, Note: text}
	if p := auth.PrincipalFromContext(ctx); p != nil {
		note.CreatedBy = &p.UserID
	}

	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateCaseNote(ctx, note); err != nil {
			return err
		}
		for _, docID := range documentIDs {
			if err := s.repo.LinkCaseNoteDocument(ctx, note.ID, docID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apierror.FromPG(err, "create case note")
	}
	return note, nil
}

func (s *Service) ListCaseNotes(ctx context.Context, clientServiceID int64) ([]*ServiceCaseNote, error) {
	if _, err := s.Get(ctx, clientServiceID); err != nil {
		return nil, err
	}
	notes, err := s.repo.ListCaseNotes(ctx, clientServiceID)
	if err != nil {
		return nil, apierror.FromPG(err, "list case notes")
	}
	return notes, nil
}
