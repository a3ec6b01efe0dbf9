package records

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var ErrBlobNotFound = errors.New("blob not found")

// BlobStore holds the raw uploaded file content; the metadata row lives in
// the repository. Keys are opaque and assigned by the service.
type BlobStore interface {
	Put(ctx context.Context, key string, content io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// DiskStore writes blobs under a root directory, one file per key.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) path(key string) (string, error) {
	// Keys are generated UUID strings; reject anything path-like outright.
	if strings.ContainsAny(key, `/\`) || key == "" || key == "." || key == ".." {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, key), nil
}

func (s *DiskStore) Put(ctx context.Context, key string, content io.Reader) (int64, error) {
	p, err := s.path(key)
	if err != nil {
		return 0, err
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create blob file: %w", err)
	}

	n, err := io.Copy(f, content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(p)
		return 0, fmt.Errorf("write blob: %w", err)
	}

	return n, nil
}

func (s *DiskStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}

	return f, nil
}

func (s *DiskStore) Remove(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return ErrBlobNotFound
		}
		return fmt.Errorf("remove blob: %w", err)
	}

	return nil
}

// MemStore is an in-memory BlobStore for tests.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

func (s *MemStore) Put(ctx context.Context, key string, content io.Reader) (int64, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.blobs[key] = data
	s.mu.Unlock()

	return int64(len(data)), nil
}

func (s *MemStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.blobs[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrBlobNotFound
	}

	return io.NopCloser(strings.NewReader(string(data))), nil
}

// Len reports the number of stored blobs.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

func (s *MemStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[key]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, key)
	return nil
}
