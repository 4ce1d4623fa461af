package client

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/caretrack/caretrack/internal/platform/apierror"
	"github.com/caretrack/caretrack/internal/platform/auth"
	"github.com/caretrack/caretrack/internal/platform/tenancy"
)

type Service struct {
	repo PersonInfoRepository
}

func NewService(repo PersonInfoRepository) *Service {
	return &Service{repo: repo}
}

func validatePerson(p *PersonInfo) error {
	details := map[string]string{}
	if strings.TrimSpace(p.FirstName) == "" {
		details["firstName"] = "required"
	}
	if strings.TrimSpace(p.LastName) == "" {
		details["lastName"] = "required"
	}
	if p.Status != "" && !validStatuses[p.Status] {
		details["status"] = "must be one of New, Active, Paused, Closed"
	}
	if len(details) > 0 {
		return apierror.Validation("invalid person info payload", details)
	}
	return nil
}

// Create stores a new person record. The segmentId the caller supplied is
// echoed back unchanged (or stays null when omitted).
func (s *Service) Create(ctx context.Context, p *PersonInfo) error {
	if err := validatePerson(p); err != nil {
		return err
	}
	scope := tenancy.ScopeFromContext(ctx)
	if !scope.Allows(p.SegmentID) {
		return apierror.Forbidden(apierror.CodeSegmentAccessDenied, "segment access denied")
	}
	if p.Status == "" {
		p.Status = StatusNew
	}
	if principal := auth.PrincipalFromContext(ctx); principal != nil {
		p.CreatedBy = &principal.UserID
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return apierror.FromPG(err, "create person info")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*PersonInfo, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierror.NotFound("person info not found")
	}
	if err != nil {
		return nil, apierror.FromPG(err, "get person info")
	}
	scope := tenancy.ScopeFromContext(ctx)
	if !scope.Allows(p.SegmentID) {
		return nil, apierror.NotFound("person info not found")
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, p *PersonInfo) (*PersonInfo, error) {
	if err := validatePerson(p); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	scope := tenancy.ScopeFromContext(ctx)
	if !scope.Allows(p.SegmentID) {
		return nil, apierror.Forbidden(apierror.CodeSegmentAccessDenied, "segment access denied")
	}
	p.Status = existing.Status
	p.CreatedBy = existing.CreatedBy
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apierror.FromPG(err, "update person info")
	}
	return p, nil
}

// UpdateStatus moves a record through its lifecycle. Records are never
// hard-deleted; Closed is the terminal state.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*PersonInfo, error) {
	if !validStatuses[status] {
		return nil, apierror.Validation("invalid status", map[string]string{
			"status": "must be one of New, Active, Paused, Closed",
		})
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, apierror.FromPG(err, "update person status")
	}
	return s.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, status string, segmentID *int64, limit, offset int) ([]*PersonInfo, int, error) {
	scope := tenancy.ScopeFromContext(ctx)
	if scope == nil {
		return nil, 0, apierror.Forbidden(apierror.CodeSegmentAccessDenied, "segment access denied")
	}
	if status != "" && !validStatuses[status] {
		return nil, 0, apierror.Validation("invalid status filter", nil)
	}
	if segmentID != nil && !scope.Allows(segmentID) {
		return nil, 0, apierror.Forbidden(apierror.CodeSegmentAccessDenied, "segment access denied")
	}
	items, total, err := s.repo.List(ctx, ListFilter{
		SegmentIDs: scope.FilterIDs(),
		Status:     status,
		SegmentID:  segmentID,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, 0, apierror.FromPG(err, "list person info")
	}
	return items, total, nil
}
