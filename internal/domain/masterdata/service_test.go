package masterdata

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/caretrack/caretrack/internal/platform/apierror"
	"github.com/caretrack/caretrack/internal/platform/tenancy"
)

// -- Mock Repository --

type mockMasterDataRepo struct {
	store  map[int64]*MasterData
	refs   map[int64][]*ServiceRef
	nextID int64
}

func newMockMasterDataRepo() *mockMasterDataRepo {
	return &mockMasterDataRepo{
		store: make(map[int64]*MasterData),
		refs:  make(map[int64][]*ServiceRef),
	}
}

func (m *mockMasterDataRepo) Create(_ context.Context, md *MasterData) error {
	for _, existing := range m.store {
		if existing.ServiceCategory == md.ServiceCategory &&
			existing.ServiceType == md.ServiceType &&
			existing.ServiceProvider == md.ServiceProvider &&
			segEq(existing.SegmentID, md.SegmentID) {
			return errDuplicate
		}
	}
	m.nextID++
	md.ID = m.nextID
	cp := *md
	m.store[md.ID] = &cp
	return nil
}

var errDuplicate = &mockDuplicate{}

type mockDuplicate struct{}

func (e *mockDuplicate) Error() string { return "duplicate key value" }

func segEq(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (m *mockMasterDataRepo) GetByID(_ context.Context, id int64) (*MasterData, error) {
	md, ok := m.store[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *md
	return &cp, nil
}

func (m *mockMasterDataRepo) Update(_ context.Context, md *MasterData) error {
	if _, ok := m.store[md.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *md
	m.store[md.ID] = &cp
	return nil
}

func (m *mockMasterDataRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.store[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.store, id)
	return nil
}

func (m *mockMasterDataRepo) List(_ context.Context, segmentIDs []int64, limit, offset int) ([]*MasterData, int, error) {
	var r []*MasterData
	for _, md := range m.store {
		if segmentIDs == nil || md.SegmentID == nil || containsID(segmentIDs, *md.SegmentID) {
			r = append(r, md)
		}
	}
	return r, len(r), nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (m *mockMasterDataRepo) FindActiveTriple(_ context.Context, category, svcType, provider string, segmentID *int64) (*MasterData, error) {
	for _, md := range m.store {
		if md.Active && md.ServiceCategory == category && md.ServiceType == svcType && md.ServiceProvider == provider {
			if md.SegmentID == nil || segEq(md.SegmentID, segmentID) {
				cp := *md
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (m *mockMasterDataRepo) ListReferencingServices(_ context.Context, id int64) ([]*ServiceRef, error) {
	return m.refs[id], nil
}

func scopedCtx(segmentIDs ...int64) context.Context {
	return tenancy.WithScope(context.Background(), &tenancy.Scope{SegmentIDs: segmentIDs})
}

func adminCtx() context.Context {
	return tenancy.WithScope(context.Background(), &tenancy.Scope{Unrestricted: true})
}

func sampleMD(segmentID *int64) *MasterData {
	return &MasterData{
		ServiceCategory: "Nursing",
		ServiceType:     "Wound Care",
		ServiceProvider: "Harbor Health",
		SegmentID:       segmentID,
	}
}

// -- Tests --

func TestCreateAndRoundTrip(t *testing.T) {
	repo := newMockMasterDataRepo()
	svc := NewService(repo)
	seg := int64(1)

	md := sampleMD(&seg)
	if err := svc.Create(scopedCtx(1), md); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !md.Active {
		t.Error("new rows must start active")
	}

	md.ServiceProvider = "Coastal Care"
	updated, err := svc.Update(scopedCtx(1), md)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := svc.Get(scopedCtx(1), md.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ServiceProvider != updated.ServiceProvider || got.ServiceProvider != "Coastal Care" {
		t.Errorf("round trip lost update: %+v", got)
	}
}

func TestCreate_SegmentScopeDenied(t *testing.T) {
	svc := NewService(newMockMasterDataRepo())
	seg := int64(9)
	err := svc.Create(scopedCtx(1, 2), sampleMD(&seg))
	apiErr, ok := err.(*apierror.ApiError)
	if !ok || apiErr.Code != apierror.CodeSegmentAccessDenied {
		t.Fatalf("expected SEGMENT_ACCESS_DENIED, got %v", err)
	}
}

func TestVerify_Idempotent(t *testing.T) {
	repo := newMockMasterDataRepo()
	svc := NewService(repo)
	seg := int64(1)
	md := sampleMD(&seg)
	if err := svc.Create(scopedCtx(1), md); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	first, err := svc.Verify(scopedCtx(1), "Nursing", "Wound Care", "Harbor Health", &seg)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	second, err := svc.Verify(scopedCtx(1), "Nursing", "Wound Care", "Harbor Health", &seg)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !first.Exists || first.ID != md.ID {
		t.Errorf("expected match, got %+v", first)
	}
	if *first != *second {
		t.Errorf("verify is not idempotent: %+v vs %+v", first, second)
	}

	missing, err := svc.Verify(scopedCtx(1), "Nursing", "Unknown", "Harbor Health", &seg)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if missing.Exists {
		t.Error("expected no match for unknown type")
	}
}

func TestUpdate_ReferencedConflict(t *testing.T) {
	repo := newMockMasterDataRepo()
	svc := NewService(repo)
	md := sampleMD(nil)
	if err := svc.Create(adminCtx(), md); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	repo.refs[md.ID] = []*ServiceRef{
		{ServiceID: 10, ClientName: "Alice Smith", Status: "In Progress"},
		{ServiceID: 11, ClientName: "Bob Jones", Status: "Planned"},
	}

	md.Active = false
	_, err := svc.Update(adminCtx(), md)
	apiErr, ok := err.(*apierror.ApiError)
	if !ok || apiErr.Status != 409 {
		t.Fatalf("expected 409 conflict, got %v", err)
	}
	details, ok := apiErr.Details.(map[string]interface{})
	if !ok || details["conflictType"] != "referenced_by_services" {
		t.Fatalf("expected conflict report, got %v", apiErr.Details)
	}
	refs, ok := details["services"].([]*ServiceRef)
	if !ok || len(refs) != 2 {
		t.Errorf("expected 2 referencing services, got %v", details["services"])
	}
}

func TestUpdate_SegmentMoveOnReferencedConflict(t *testing.T) {
	repo := newMockMasterDataRepo()
	svc := NewService(repo)
	md := sampleMD(nil)
	if err := svc.Create(adminCtx(), md); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	repo.refs[md.ID] = []*ServiceRef{{ServiceID: 10, ClientName: "Alice Smith", Status: "Planned"}}

	// Moving a referenced catalog row into a segment would strand the
	// services pointing at it, so it conflicts like a triple change.
	seg := int64(3)
	md.SegmentID = &seg
	_, err := svc.Update(adminCtx(), md)
	apiErr, ok := err.(*apierror.ApiError)
	if !ok || apiErr.Status != 409 {
		t.Fatalf("expected 409 conflict on segment move, got %v", err)
	}
}

func TestUpdate_UnreferencedDeactivateAllowed(t *testing.T) {
	repo := newMockMasterDataRepo()
	svc := NewService(repo)
	md := sampleMD(nil)
	if err := svc.Create(adminCtx(), md); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	md.Active = false
	if _, err := svc.Update(adminCtx(), md); err != nil {
		t.Fatalf("expected deactivate to succeed, got %v", err)
	}
	got, _ := svc.Get(adminCtx(), md.ID)
	if got.Active {
		t.Error("row still active after deactivate")
	}
}

func TestDelete_ReferencedConflict(t *testing.T) {
	repo := newMockMasterDataRepo()
	svc := NewService(repo)
	md := sampleMD(nil)
	if err := svc.Create(adminCtx(), md); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	repo.refs[md.ID] = []*ServiceRef{{ServiceID: 10, ClientName: "Alice Smith", Status: "Planned"}}

	err := svc.Delete(adminCtx(), md.ID)
	apiErr, ok := err.(*apierror.ApiError)
	if !ok || apiErr.Status != 409 {
		t.Fatalf("expected 409 conflict, got %v", err)
	}
}
