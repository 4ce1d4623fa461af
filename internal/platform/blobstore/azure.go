package blobstore

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// ContainerName is the blob container holding uploaded documents.
const ContainerName = "documentsroot"

// AzureConfig selects the credential path for AzureStore. Managed identity
// is tried first when an account name is set; the connection string is the
// fallback.
type AzureConfig struct {
	AccountName      string
	ConnectionString string
}

// AzureStore stores blobs in an Azure Blob Storage container. Construction
// never returns an error: credential or client failures are captured and
// surface as ErrUnavailable on the first call, so a misconfigured storage
// account degrades the documents feature instead of crashing the server.
type AzureStore struct {
	client  *azblob.Client
	initErr error
}

// NewAzureStore builds the client, preferring managed identity over the
// connection string.
func NewAzureStore(cfg AzureConfig) *AzureStore {
	s := &AzureStore{}

	if cfg.AccountName != "" {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err == nil {
			serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
			client, cerr := azblob.NewClient(serviceURL, cred, nil)
			if cerr == nil {
				s.client = client
				return s
			}
			err = cerr
		}
		if cfg.ConnectionString == "" {
			s.initErr = fmt.Errorf("%w: managed identity auth failed: %v", ErrUnavailable, err)
			return s
		}
	}

	if cfg.ConnectionString != "" {
		client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
		if err != nil {
			s.initErr = fmt.Errorf("%w: connection string auth failed: %v", ErrUnavailable, err)
			return s
		}
		s.client = client
		return s
	}

	s.initErr = fmt.Errorf("%w: no Azure credentials configured", ErrUnavailable)
	return s
}

func (s *AzureStore) ready() error {
	if s.initErr != nil {
		return s.initErr
	}
	if s.client == nil {
		return ErrUnavailable
	}
	return nil
}

func (s *AzureStore) Upload(ctx context.Context, key, contentType string, content io.Reader) error {
	if err := s.ready(); err != nil {
		return err
	}
	opts := &azblob.UploadStreamOptions{}
	if contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &contentType}
	}
	if _, err := s.client.UploadStream(ctx, ContainerName, key, content, opts); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func (s *AzureStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	resp, err := s.client.DownloadStream(ctx, ContainerName, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	return resp.Body, nil
}

func (s *AzureStore) Delete(ctx context.Context, key string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.client.DeleteBlob(ctx, ContainerName, key, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *AzureStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	blobClient := s.client.ServiceClient().NewContainerClient(ContainerName).NewBlobClient(key)
	if _, err := blobClient.GetProperties(ctx, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return true, nil
}
