package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/caretrack/caretrack/internal/platform/apierror"
	"github.com/caretrack/caretrack/internal/platform/auth"
	"github.com/caretrack/caretrack/internal/platform/blobstore"
	"github.com/caretrack/caretrack/internal/platform/db"
	"github.com/caretrack/caretrack/internal/platform/tenancy"
)

type Service struct {
	repo   DocumentRepository
	store  blobstore.BlobStore
	logger zerolog.Logger
}

func NewService(repo DocumentRepository, store blobstore.BlobStore, logger zerolog.Logger) *Service {
	return &Service{repo: repo, store: store, logger: logger}
}

// UploadInput carries the multipart fields of a document upload.
type UploadInput struct {
	ClientID    int64
	Name        string
	Type        *string
	FileName    string
	ContentType string
	Size        int64
	SegmentID   *int64
	Content     io.Reader
}

func filenameConflict() *apierror.ApiError {
	return apierror.Conflict(apierror.CodeDuplicateEntry,
		"a document with this filename already exists for the client").
		WithDetails(map[string]string{"conflictType": "filename_exists"})
}

func storageUnavailable() *apierror.ApiError {
	return apierror.New(http.StatusServiceUnavailable, apierror.CodeStorageUnavailable,
		"storage service not available")
}

// Upload stores the blob first and the metadata row second. If the metadata
// insert fails the blob is removed again, best effort.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*Document, error) {
	details := map[string]string{}
	if in.ClientID <= 0 {
		details["clientId"] = "required"
	}
	if strings.TrimSpace(in.FileName) == "" {
		details["file"] = "required"
	}
	if len(details) > 0 {
		return nil, apierror.Validation("invalid document upload", details)
	}
	if in.Size > MaxUploadSize {
		return nil, apierror.Validation(
			fmt.Sprintf("file exceeds the %d MB limit", MaxUploadSize/(1024*1024)), nil)
	}

	ext := strings.ToLower(filepath.Ext(in.FileName))
	if !allowedExtensions[ext] {
		return nil, apierror.Validation(
			"file type not allowed; accepted: .pdf .doc .docx .jpg .jpeg .png",
			map[string]string{"fileName": "unsupported extension"})
	}

	scope := tenancy.ScopeFromContext(ctx)
	if !scope.Allows(in.SegmentID) {
		return nil, apierror.Forbidden(apierror.CodeSegmentAccessDenied, "segment access denied")
	}

	exists, err := s.repo.ExistsByClientAndFileName(ctx, in.ClientID, in.FileName)
	if err != nil {
		return nil, apierror.FromPG(err, "check document filename")
	}
	if exists {
		return nil, filenameConflict()
	}

	key := uuid.New().String() + ext
	if err := s.store.Upload(ctx, key, in.ContentType, in.Content); err != nil {
		if errors.Is(err, blobstore.ErrUnavailable) {
			return nil, storageUnavailable()
		}
		return nil, apierror.Internal("failed to store file")
	}

	name := in.Name
	if strings.TrimSpace(name) == "" {
		name = in.FileName
	}
	d := &Document{
		ClientID:    in.ClientID,
		Name:        name,
		Type:        in.Type,
		FileName:    in.FileName,
		StorageKey:  key,
		ContentType: in.ContentType,
		Size:        in.Size,
		SegmentID:   in.SegmentID,
	}
	if p := auth.PrincipalFromContext(ctx); p != nil {
		d.UploadedBy = &p.UserID
	}

	if err := s.repo.Create(ctx, d); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Warn().Err(delErr).Str("key", key).Msg("orphaned blob after failed metadata insert")
		}
		// Concurrent upload of the same filename loses the race at the
		// partial unique index.
		if db.IsUniqueViolation(err) {
			return nil, filenameConflict()
		}
		return nil, apierror.FromPG(err, "create document")
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Document, error) {
	d, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierror.NotFound("document not found")
	}
	if err != nil {
		return nil, apierror.FromPG(err, "get document")
	}
	scope := tenancy.ScopeFromContext(ctx)
	if !scope.Allows(d.SegmentID) {
		return nil, apierror.NotFound("document not found")
	}
	return d, nil
}

func (s *Service) ListByClient(ctx context.Context, clientID int64) ([]*Document, error) {
	scope := tenancy.ScopeFromContext(ctx)
	if scope == nil {
		return nil, apierror.Forbidden(apierror.CodeSegmentAccessDenied, "segment access denied")
	}
	items, err := s.repo.ListByClient(ctx, clientID, scope.FilterIDs())
	if err != nil {
		return nil, apierror.FromPG(err, "list documents")
	}
	return items, nil
}

// Download returns the metadata and a reader over the blob content. The
// caller closes the reader.
func (s *Service) Download(ctx context.Context, id int64) (*Document, io.ReadCloser, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Download(ctx, d.StorageKey)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, nil, apierror.NotFound("document content not found")
	}
	if errors.Is(err, blobstore.ErrUnavailable) {
		return nil, nil, storageUnavailable()
	}
	if err != nil {
		return nil, nil, apierror.Internal("failed to read file")
	}
	return d, rc, nil
}

// Delete removes the metadata row, then the blob best effort. A missing blob
// is not an error.
func (s *Service) Delete(ctx context.Context, id int64) error {
	d, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apierror.FromPG(err, "delete document")
	}
	if err := s.store.Delete(ctx, d.StorageKey); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		s.logger.Warn().Err(err).Str("key", d.StorageKey).Msg("blob delete failed after metadata removal")
	}
	return nil
}
