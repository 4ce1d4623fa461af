package company

import "context"

type CompanyRepository interface {
	Create(ctx context.Context, c *Company) error
	GetByID(ctx context.Context, id int64) (*Company, error)
	Update(ctx context.Context, c *Company) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*Company, int, error)

	CreateSegment(ctx context.Context, s *Segment) error
	GetSegmentByID(ctx context.Context, id int64) (*Segment, error)
	UpdateSegment(ctx context.Context, s *Segment) error
	DeleteSegment(ctx context.Context, id int64) error
	ListSegments(ctx context.Context, companyID *int64) ([]*Segment, error)
	ListSegmentIDsByCompany(ctx context.Context, companyID int64) ([]int64, error)
}
