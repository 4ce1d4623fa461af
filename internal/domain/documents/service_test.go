package documents

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/caretrack/caretrack/internal/platform/apierror"
	"github.com/caretrack/caretrack/internal/platform/blobstore"
	"github.com/caretrack/caretrack/internal/platform/tenancy"
)

// -- Mock Repository --

type mockDocumentRepo struct {
	store      map[int64]*Document
	nextID     int64
	failCreate bool
}

func newMockDocumentRepo() *mockDocumentRepo {
	return &mockDocumentRepo{store: make(map[int64]*Document)}
}

func (m *mockDocumentRepo) Create(_ context.Context, d *Document) error {
	if m.failCreate {
		return errors.New("insert failed")
	}
	m.nextID++
	d.ID = m.nextID
	d.CreatedAt = time.Now()
	cp := *d
	m.store[d.ID] = &cp
	return nil
}

func (m *mockDocumentRepo) GetByID(_ context.Context, id int64) (*Document, error) {
	d, ok := m.store[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (m *mockDocumentRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.store[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.store, id)
	return nil
}

func (m *mockDocumentRepo) ListByClient(_ context.Context, clientID int64, _ []int64) ([]*Document, error) {
	var r []*Document
	for _, d := range m.store {
		if d.ClientID == clientID {
			r = append(r, d)
		}
	}
	return r, nil
}

func (m *mockDocumentRepo) ExistsByClientAndFileName(_ context.Context, clientID int64, fileName string) (bool, error) {
	for _, d := range m.store {
		if d.ClientID == clientID && d.FileName == fileName {
			return true, nil
		}
	}
	return false, nil
}

func adminCtx() context.Context {
	return tenancy.WithScope(context.Background(), &tenancy.Scope{Unrestricted: true})
}

func newFixture() (*Service, *mockDocumentRepo, *blobstore.MemoryStore) {
	repo := newMockDocumentRepo()
	store := blobstore.NewMemoryStore()
	return NewService(repo, store, zerolog.Nop()), repo, store
}

func pdfUpload(clientID int64, fileName string) UploadInput {
	return UploadInput{
		ClientID:    clientID,
		FileName:    fileName,
		ContentType: "application/pdf",
		Size:        128,
		Content:     strings.NewReader("%PDF-1.4 test content"),
	}
}

// -- Tests --

func TestUpload_Success(t *testing.T) {
	svc, _, store := newFixture()

	d, err := svc.Upload(adminCtx(), pdfUpload(10, "care-plan.pdf"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if d.ID == 0 || d.Name != "care-plan.pdf" {
		t.Errorf("unexpected document: %+v", d)
	}
	exists, _ := store.Exists(context.Background(), d.StorageKey)
	if !exists {
		t.Error("blob not stored")
	}
}

func TestUpload_DuplicateFilenameConflict(t *testing.T) {
	svc, _, _ := newFixture()

	if _, err := svc.Upload(adminCtx(), pdfUpload(10, "care-plan.pdf")); err != nil {
		t.Fatalf("first upload failed: %v", err)
	}
	_, err := svc.Upload(adminCtx(), pdfUpload(10, "care-plan.pdf"))
	apiErr, ok := err.(*apierror.ApiError)
	if !ok || apiErr.Status != 409 {
		t.Fatalf("expected 409, got %v", err)
	}
	details, ok := apiErr.Details.(map[string]string)
	if !ok || details["conflictType"] != "filename_exists" {
		t.Errorf("expected conflictType filename_exists, got %v", apiErr.Details)
	}

	// Same filename for a different client is fine.
	if _, err := svc.Upload(adminCtx(), pdfUpload(11, "care-plan.pdf")); err != nil {
		t.Errorf("different client upload failed: %v", err)
	}
}

func TestUpload_ExtensionWhitelist(t *testing.T) {
	svc, _, _ := newFixture()

	for _, fileName := range []string{"script.exe", "notes.txt", "archive.zip", "noextension"} {
		_, err := svc.Upload(adminCtx(), pdfUpload(10, fileName))
		apiErr, ok := err.(*apierror.ApiError)
		if !ok || apiErr.Code != apierror.CodeValidation {
			t.Errorf("%s: expected validation rejection, got %v", fileName, err)
		}
	}

	for i, fileName := range []string{"a.pdf", "b.doc", "c.docx", "d.jpg", "e.jpeg", "f.png", "G.PDF"} {
		if _, err := svc.Upload(adminCtx(), pdfUpload(int64(20+i), fileName)); err != nil {
			t.Errorf("%s: expected accept, got %v", fileName, err)
		}
	}
}

func TestUpload_SizeLimit(t *testing.T) {
	svc, _, _ := newFixture()
	in := pdfUpload(10, "big.pdf")
	in.Size = MaxUploadSize + 1
	_, err := svc.Upload(adminCtx(), in)
	apiErr, ok := err.(*apierror.ApiError)
	if !ok || apiErr.Code != apierror.CodeValidation {
		t.Fatalf("expected validation rejection, got %v", err)
	}
}

func TestUpload_BlobCleanupOnMetadataFailure(t *testing.T) {
	svc, repo, store := newFixture()
	repo.failCreate = true

	_, err := svc.Upload(adminCtx(), pdfUpload(10, "care-plan.pdf"))
	if err == nil {
		t.Fatal("expected upload to fail")
	}
	if n := store.Len(); n != 0 {
		t.Errorf("expected orphaned blob removed, %d blobs left", n)
	}
}

func TestDownload_RoundTrip(t *testing.T) {
	svc, _, _ := newFixture()
	d, err := svc.Upload(adminCtx(), pdfUpload(10, "care-plan.pdf"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	meta, rc, err := svc.Download(adminCtx(), d.ID)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	defer rc.Close()
	content, _ := io.ReadAll(rc)
	if meta.FileName != "care-plan.pdf" || !strings.Contains(string(content), "%PDF") {
		t.Errorf("round trip mismatch: %q", content)
	}
}

func TestDelete_RemovesBlobAndRow(t *testing.T) {
	svc, repo, store := newFixture()
	d, err := svc.Upload(adminCtx(), pdfUpload(10, "care-plan.pdf"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if err := svc.Delete(adminCtx(), d.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(repo.store) != 0 {
		t.Error("metadata row not removed")
	}
	if store.Len() != 0 {
		t.Error("blob not removed")
	}
}

func TestGet_OutOfScopeLooksLikeNotFound(t *testing.T) {
	svc, _, _ := newFixture()
	seg := int64(4)
	in := pdfUpload(10, "care-plan.pdf")
	in.SegmentID = &seg
	d, err := svc.Upload(adminCtx(), in)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	scoped := tenancy.WithScope(context.Background(), &tenancy.Scope{SegmentIDs: []int64{1}})
	_, err = svc.Get(scoped, d.ID)
	apiErr, ok := err.(*apierror.ApiError)
	if !ok || apiErr.Status != 404 {
		t.Fatalf("expected 404 for out-of-scope document, got %v", err)
	}
}
