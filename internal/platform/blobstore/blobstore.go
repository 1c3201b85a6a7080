// Package blobstore stores uploaded report files addressed by their SHA-256
// content hash. A filesystem implementation backs the server; the in-memory
// implementation backs tests and development.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrBlobTooLarge = errors.New("file exceeds maximum allowed size")
)

// MaxBlobSize caps a single upload at 25 MB.
const MaxBlobSize = 25 * 1024 * 1024

// Store holds file content keyed by content hash. Writing the same bytes
// twice returns the same key.
type Store interface {
	Put(ctx context.Context, content io.Reader) (hash string, size int64, err error)
	Open(ctx context.Context, hash string) (io.ReadCloser, error)
	Delete(ctx context.Context, hash string) error
}

func readAndHash(content io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(content, MaxBlobSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxBlobSize {
		return nil, "", ErrBlobTooLarge
	}
	sum := sha256.Sum256(data)
	return data, fmt.Sprintf("%x", sum), nil
}

// -- Filesystem store --

// FSStore lays blobs out as <root>/<hash[:2]>/<hash> so no single directory
// grows unbounded.
type FSStore struct {
	root string
}

func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob root: %w", err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) path(hash string) string {
	return filepath.Join(s.root, hash[:2], hash)
}

func (s *FSStore) Put(_ context.Context, content io.Reader) (string, int64, error) {
	data, hash, err := readAndHash(content)
	if err != nil {
		return "", 0, err
	}

	p := s.path(hash)
	if _, err := os.Stat(p); err == nil {
		return hash, int64(len(data)), nil
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", 0, err
	}

	// Write through a temp file and rename so readers never see partial content.
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return "", 0, err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", 0, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", 0, err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return "", 0, err
	}
	return hash, int64(len(data)), nil
}

func (s *FSStore) Open(_ context.Context, hash string) (io.ReadCloser, error) {
	if len(hash) < 2 {
		return nil, ErrBlobNotFound
	}
	f, err := os.Open(s.path(hash))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	return f, err
}

func (s *FSStore) Delete(_ context.Context, hash string) error {
	if len(hash) < 2 {
		return ErrBlobNotFound
	}
	err := os.Remove(s.path(hash))
	if errors.Is(err, os.ErrNotExist) {
		return ErrBlobNotFound
	}
	return err
}

// -- In-memory store --

type MemStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

func (s *MemStore) Put(_ context.Context, content io.Reader) (string, int64, error) {
	data, hash, err := readAndHash(content)
	if err != nil {
		return "", 0, err
	}
	s.mu.Lock()
	s.blobs[hash] = data
	s.mu.Unlock()
	return hash, int64(len(data)), nil
}

func (s *MemStore) Open(_ context.Context, hash string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.blobs[hash]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemStore) Delete(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[hash]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, hash)
	return nil
}
