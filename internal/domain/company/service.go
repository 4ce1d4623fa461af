package company

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/caretrack/caretrack/internal/platform/apierror"
	"github.com/caretrack/caretrack/internal/platform/auth"
)

type Service struct {
	repo CompanyRepository
}

func NewService(repo CompanyRepository) *Service {
	return &Service{repo: repo}
}

// ListSegmentIDsByCompany satisfies tenancy.SegmentLister.
func (s *Service) ListSegmentIDsByCompany(ctx context.Context, companyID int64) ([]int64, error) {
	return s.repo.ListSegmentIDsByCompany(ctx, companyID)
}

func (s *Service) CreateCompany(ctx context.Context, c *Company) error {
	if strings.TrimSpace(c.Name) == "" {
		return apierror.Validation("company name is required", map[string]string{"name": "required"})
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return apierror.FromPG(err, "create company")
	}
	return nil
}

func (s *Service) GetCompany(ctx context.Context, id int64) (*Company, error) {
	c, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierror.NotFound("company not found")
	}
	if err != nil {
		return nil, apierror.FromPG(err, "get company")
	}
	return c, nil
}

func (s *Service) UpdateCompany(ctx context.Context, c *Company) error {
	if strings.TrimSpace(c.Name) == "" {
		return apierror.Validation("company name is required", map[string]string{"name": "required"})
	}
	err := s.repo.Update(ctx, c)
	if errors.Is(err, pgx.ErrNoRows) {
		return apierror.NotFound("company not found")
	}
	if err != nil {
		return apierror.FromPG(err, "update company")
	}
	return nil
}

func (s *Service) DeleteCompany(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return apierror.NotFound("company not found")
	}
	if err != nil {
		return apierror.FromPG(err, "delete company")
	}
	return nil
}

func (s *Service) ListCompanies(ctx context.Context, limit, offset int) ([]*Company, int, error) {
	items, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apierror.FromPG(err, "list companies")
	}
	return items, total, nil
}

func (s *Service) CreateSegment(ctx context.Context, seg *Segment) error {
	if strings.TrimSpace(seg.Name) == "" {
		return apierror.Validation("segment name is required", map[string]string{"name": "required"})
	}
	if seg.CompanyID <= 0 {
		return apierror.Validation("companyId is required", map[string]string{"companyId": "required"})
	}
	if err := s.repo.CreateSegment(ctx, seg); err != nil {
		return apierror.FromPG(err, "create segment")
	}
	return nil
}

func (s *Service) GetSegment(ctx context.Context, id int64) (*Segment, error) {
	seg, err := s.repo.GetSegmentByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierror.NotFound("segment not found")
	}
	if err != nil {
		return nil, apierror.FromPG(err, "get segment")
	}
	return seg, nil
}

func (s *Service) UpdateSegment(ctx context.Context, seg *Segment) error {
	if strings.TrimSpace(seg.Name) == "" {
		return apierror.Validation("segment name is required", map[string]string{"name": "required"})
	}
	err := s.repo.UpdateSegment(ctx, seg)
	if errors.Is(err, pgx.ErrNoRows) {
		return apierror.NotFound("segment not found")
	}
	if err != nil {
		return apierror.FromPG(err, "update segment")
	}
	return nil
}

func (s *Service) DeleteSegment(ctx context.Context, id int64) error {
	err := s.repo.DeleteSegment(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return apierror.NotFound("segment not found")
	}
	if err != nil {
		return apierror.FromPG(err, "delete segment")
	}
	return nil
}

func (s *Service) ListSegments(ctx context.Context, companyID *int64) ([]*Segment, error) {
	items, err := s.repo.ListSegments(ctx, companyID)
	if err != nil {
		return nil, apierror.FromPG(err, "list segments")
	}
	return items, nil
}

// UserSegments returns the segments visible to the caller. Super admins see
// every segment; everyone else sees their company's segments.
func (s *Service) UserSegments(ctx context.Context, p *auth.Principal) ([]*Segment, error) {
	if p == nil {
		return nil, apierror.Unauthorized("not authenticated")
	}
	if p.IsSuperAdmin() {
		return s.ListSegments(ctx, nil)
	}
	if p.CompanyID == nil {
		return nil, apierror.Forbidden(apierror.CodeNoCompanyAssigned, "no company assigned")
	}
	return s.ListSegments(ctx, p.CompanyID)
}
