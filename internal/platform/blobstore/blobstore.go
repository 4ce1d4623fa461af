// Package blobstore provides document file storage. It defines the BlobStore
// interface and three implementations: in-memory (tests and development),
// local filesystem, and Azure Blob Storage. The backend is chosen by
// configuration at startup and injected into the documents service.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

var (
	// ErrNotFound is returned when the requested key does not exist.
	ErrNotFound = errors.New("blob not found")

	// ErrUnavailable is returned by a store whose backend failed to
	// initialize. Construction never fails; calls do, with this error.
	ErrUnavailable = errors.New("storage service not available")
)

// BlobStore is the contract for file storage backends. Keys are opaque
// slash-separated paths generated by the caller.
type BlobStore interface {
	Upload(ctx context.Context, key, contentType string, content io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// MemoryStore is a thread-safe, in-memory BlobStore for tests and
// development.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore returns a ready-to-use MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Upload(_ context.Context, key, _ string, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.blobs[key] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return ErrNotFound
	}
	delete(s.blobs, key)
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[key]
	return ok, nil
}

// Len reports the number of stored blobs. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
