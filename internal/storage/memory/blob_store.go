// Package memory stores blob content in-memory for development and tests.
package memory

import (
	"context"
	"crypto/md5" //nolint:gosec // fingerprint scheme, not a security boundary
	"encoding/hex"
	"sort"
	"strings"
	"sync"

	"github.com/JakeFAU/laborsync/internal/storage"
)

// BlobStore keeps objects in a map and fingerprints them like a real
// object store would (hex MD5 of the content).
type BlobStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		data: make(map[string][]byte),
	}
}

// List returns all objects under prefix in key order.
func (s *BlobStore) List(_ context.Context, prefix string) ([]storage.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var objects []storage.Object
	for key, content := range s.data {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		objects = append(objects, storage.Object{Key: key, Fingerprint: fingerprint(content)})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Get returns a copy of the stored content.
func (s *BlobStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), content...), nil
}

// Put stores the content and returns its fingerprint.
func (s *BlobStore) Put(_ context.Context, key string, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), data...)
	return fingerprint(data), nil
}

// Delete removes the object at key. Deleting a missing key is a no-op.
func (s *BlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Head returns the fingerprint of the object at key.
func (s *BlobStore) Head(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.data[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return fingerprint(content), nil
}

// Len reports the number of stored objects.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func fingerprint(content []byte) string {
	sum := md5.Sum(content) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
