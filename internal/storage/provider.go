// Package storage defines the interface for a fingerprinting blob store.
// This abstraction keeps the sync and analytics pipelines independent of
// a specific backend (Google Cloud Storage, AWS S3, or in-memory fakes).
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Head and Get when no object exists at the
// requested key. Callers branch on it with errors.Is; a missing object
// is a first-class outcome, not a fault.
var ErrNotFound = errors.New("object not found")

// Object pairs a stored key with the content fingerprint the store
// assigned at write time.
type Object struct {
	Key         string `json:"key"`
	Fingerprint string `json:"fingerprint"`
}

// BlobStore is the common interface for a blob storage backend. The
// fingerprint returned by Put and Head is the hex MD5 of the stored
// content, matching the digest scheme of pipeline.Hasher so local and
// stored fingerprints compare directly.
type BlobStore interface {
	// List returns every object under the given key prefix.
	List(ctx context.Context, prefix string) ([]Object, error)

	// Get returns the content stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes content at key and returns the store-assigned fingerprint.
	Put(ctx context.Context, key string, contentType string, data []byte) (string, error)

	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error

	// Head returns the fingerprint of the object at key, or ErrNotFound.
	Head(ctx context.Context, key string) (string, error)
}
