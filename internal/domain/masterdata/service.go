package masterdata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/caretrack/caretrack/internal/platform/apierror"
	"github.com/caretrack/caretrack/internal/platform/db"
	"github.com/caretrack/caretrack/internal/platform/tenancy"
)

type Service struct {
	repo MasterDataRepository
}

func NewService(repo MasterDataRepository) *Service {
	return &Service{repo: repo}
}

func validateTriple(md *MasterData) error {
	details := map[string]string{}
	if strings.TrimSpace(md.ServiceCategory) == "" {
		details["serviceCategory"] = "required"
	}
	if strings.TrimSpace(md.ServiceType) == "" {
		details["serviceType"] = "required"
	}
	if strings.TrimSpace(md.ServiceProvider) == "" {
		details["serviceProvider"] = "required"
	}
	if len(details) > 0 {
		return apierror.Validation("invalid master data payload", details)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, md *MasterData) error {
	if err := validateTriple(md); err != nil {
		return err
	}
	scope := tenancy.ScopeFromContext(ctx)
	if !scope.Allows(md.SegmentID) {
		return apierror.Forbidden(apierror.CodeSegmentAccessDenied, "segment access denied")
	}
	md.Active = true
	if err := s.repo.Create(ctx, md); err != nil {
		return apierror.FromPG(err, "create master data")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*MasterData, error) {
	md, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierror.NotFound("master data not found")
	}
	if err != nil {
		return nil, apierror.FromPG(err, "get master data")
	}
	scope := tenancy.ScopeFromContext(ctx)
	if !scope.Allows(md.SegmentID) {
		return nil, apierror.NotFound("master data not found")
	}
	return md, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*MasterData, int, error) {
	scope := tenancy.ScopeFromContext(ctx)
	if scope == nil {
		return nil, 0, apierror.Forbidden(apierror.CodeSegmentAccessDenied, "segment access denied")
	}
	items, total, err := s.repo.List(ctx, scope.FilterIDs(), limit, offset)
	if err != nil {
		return nil, 0, apierror.FromPG(err, "list master data")
	}
	return items, total, nil
}

// Verify reports whether an active catalog row matches the triple in the
// given segment or globally. Read-only, so repeated calls with the same
// arguments return the same answer absent writes.
func (s *Service) Verify(ctx context.Context, category, svcType, provider string, segmentID *int64) (*VerifyResult, error) {
	if strings.TrimSpace(category) == "" || strings.TrimSpace(svcType) == "" || strings.TrimSpace(provider) == "" {
		return nil, apierror.Validation("serviceCategory, serviceType and serviceProvider are required", nil)
	}
	md, err := s.repo.FindActiveTriple(ctx, category, svcType, provider, segmentID)
	if err != nil {
		return nil, apierror.FromPG(err, "verify master data")
	}
	if md == nil {
		return &VerifyResult{Exists: false}, nil
	}
	return &VerifyResult{Exists: true, ID: md.ID}, nil
}

func sameSegment(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// conflictReport builds the 409 returned when a catalog row in use is
// modified or removed.
func conflictReport(refs []*ServiceRef) *apierror.ApiError {
	return apierror.Conflict(apierror.CodeConflict,
		fmt.Sprintf("service is assigned to %d client(s)", len(refs))).
		WithDetails(map[string]interface{}{
			"conflictType": "referenced_by_services",
			"services":     refs,
		})
}

func (s *Service) Update(ctx context.Context, md *MasterData) (*MasterData, error) {
	if err := validateTriple(md); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, md.ID)
	if err != nil {
		return nil, err
	}
	scope := tenancy.ScopeFromContext(ctx)
	if !scope.Allows(md.SegmentID) {
		return nil, apierror.Forbidden(apierror.CodeSegmentAccessDenied, "segment access denied")
	}

	tripleChanged := existing.ServiceCategory != md.ServiceCategory ||
		existing.ServiceType != md.ServiceType ||
		existing.ServiceProvider != md.ServiceProvider
	deactivating := existing.Active && !md.Active
	segmentMoved := !sameSegment(existing.SegmentID, md.SegmentID)

	if tripleChanged || deactivating || segmentMoved {
		refs, err := s.repo.ListReferencingServices(ctx, md.ID)
		if err != nil {
			return nil, apierror.FromPG(err, "check master data references")
		}
		if len(refs) > 0 {
			return nil, conflictReport(refs)
		}
	}

	if err := s.repo.Update(ctx, md); err != nil {
		return nil, apierror.FromPG(err, "update master data")
	}
	return md, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	refs, err := s.repo.ListReferencingServices(ctx, id)
	if err != nil {
		return apierror.FromPG(err, "check master data references")
	}
	if len(refs) > 0 {
		return conflictReport(refs)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		// A service created between the reference check and the delete
		// trips the FK. Report it the same way as a detected reference.
		if db.IsForeignKeyViolation(err) {
			refs, refErr := s.repo.ListReferencingServices(ctx, id)
			if refErr == nil && len(refs) > 0 {
				return conflictReport(refs)
			}
		}
		return apierror.FromPG(err, "delete master data")
	}
	return nil
}
