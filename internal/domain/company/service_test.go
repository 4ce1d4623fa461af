package company

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/caretrack/caretrack/internal/platform/apierror"
	"github.com/caretrack/caretrack/internal/platform/auth"
)

// -- Mock Repository --

type mockCompanyRepo struct {
	companies map[int64]*Company
	segments  map[int64]*Segment
	nextID    int64
}

func newMockCompanyRepo() *mockCompanyRepo {
	return &mockCompanyRepo{
		companies: make(map[int64]*Company),
		segments:  make(map[int64]*Segment),
	}
}

func (m *mockCompanyRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockCompanyRepo) Create(_ context.Context, c *Company) error {
	c.ID = m.id()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.companies[c.ID] = c
	return nil
}

func (m *mockCompanyRepo) GetByID(_ context.Context, id int64) (*Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return c, nil
}

func (m *mockCompanyRepo) Update(_ context.Context, c *Company) error {
	if _, ok := m.companies[c.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.companies[c.ID] = c
	return nil
}

func (m *mockCompanyRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.companies[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.companies, id)
	return nil
}

func (m *mockCompanyRepo) List(_ context.Context, limit, offset int) ([]*Company, int, error) {
	var r []*Company
	for _, c := range m.companies {
		r = append(r, c)
	}
	return r, len(r), nil
}

func (m *mockCompanyRepo) CreateSegment(_ context.Context, s *Segment) error {
	s.ID = m.id()
	m.segments[s.ID] = s
	return nil
}

func (m *mockCompanyRepo) GetSegmentByID(_ context.Context, id int64) (*Segment, error) {
	s, ok := m.segments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s, nil
}

func (m *mockCompanyRepo) UpdateSegment(_ context.Context, s *Segment) error {
	if _, ok := m.segments[s.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.segments[s.ID] = s
	return nil
}

func (m *mockCompanyRepo) DeleteSegment(_ context.Context, id int64) error {
	if _, ok := m.segments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.segments, id)
	return nil
}

func (m *mockCompanyRepo) ListSegments(_ context.Context, companyID *int64) ([]*Segment, error) {
	var r []*Segment
	for _, s := range m.segments {
		if companyID == nil || s.CompanyID == *companyID {
			r = append(r, s)
		}
	}
	return r, nil
}

func (m *mockCompanyRepo) ListSegmentIDsByCompany(_ context.Context, companyID int64) ([]int64, error) {
	var ids []int64
	for _, s := range m.segments {
		if s.CompanyID == companyID {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

func newTestService() *Service {
	return NewService(newMockCompanyRepo())
}

// -- Tests --

func TestCreateCompany_RequiresName(t *testing.T) {
	svc := newTestService()
	err := svc.CreateCompany(context.Background(), &Company{Name: "  "})
	apiErr, ok := err.(*apierror.ApiError)
	if !ok {
		t.Fatalf("expected ApiError, got %v", err)
	}
	if apiErr.Code != apierror.CodeValidation {
		t.Errorf("expected VALIDATION_ERROR, got %s", apiErr.Code)
	}
}

func TestCompanyRoundTrip(t *testing.T) {
	svc := newTestService()
	c := &Company{Name: "Harbor Care"}
	if err := svc.CreateCompany(context.Background(), c); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if c.ID == 0 {
		t.Fatal("expected id to be assigned")
	}
	got, err := svc.GetCompany(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "Harbor Care" {
		t.Errorf("expected name round-trip, got %q", got.Name)
	}
}

func TestGetCompany_NotFound(t *testing.T) {
	svc := newTestService()
	_, err := svc.GetCompany(context.Background(), 999)
	apiErr, ok := err.(*apierror.ApiError)
	if !ok || apiErr.Status != 404 {
		t.Fatalf("expected 404 ApiError, got %v", err)
	}
}

func TestCreateSegment_RequiresCompany(t *testing.T) {
	svc := newTestService()
	err := svc.CreateSegment(context.Background(), &Segment{Name: "North"})
	apiErr, ok := err.(*apierror.ApiError)
	if !ok || apiErr.Code != apierror.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUserSegments_SuperAdminSeesAll(t *testing.T) {
	repo := newMockCompanyRepo()
	svc := NewService(repo)
	repo.CreateSegment(context.Background(), &Segment{Name: "A", CompanyID: 1})
	repo.CreateSegment(context.Background(), &Segment{Name: "B", CompanyID: 2})

	p := &auth.Principal{UserID: 1, Role: auth.RoleAdmin}
	segs, err := svc.UserSegments(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 2 {
		t.Errorf("expected 2 segments, got %d", len(segs))
	}
}

func TestUserSegments_ScopedToCompany(t *testing.T) {
	repo := newMockCompanyRepo()
	svc := NewService(repo)
	repo.CreateSegment(context.Background(), &Segment{Name: "A", CompanyID: 1})
	repo.CreateSegment(context.Background(), &Segment{Name: "B", CompanyID: 2})

	companyID := int64(1)
	p := &auth.Principal{UserID: 2, Role: auth.RoleUser, CompanyID: &companyID}
	segs, err := svc.UserSegments(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 1 || segs[0].Name != "A" {
		t.Errorf("expected only company 1 segments, got %v", segs)
	}
}

func TestUserSegments_NoCompanyForbidden(t *testing.T) {
	svc := newTestService()
	p := &auth.Principal{UserID: 3, Role: auth.RoleUser}
	_, err := svc.UserSegments(context.Background(), p)
	apiErr, ok := err.(*apierror.ApiError)
	if !ok || apiErr.Code != apierror.CodeNoCompanyAssigned {
		t.Fatalf("expected NO_COMPANY_ASSIGNED, got %v", err)
	}
}
