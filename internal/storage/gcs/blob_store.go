// Package gcs provides a BlobStore backed by Google Cloud Storage.
package gcs

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	store "github.com/JakeFAU/laborsync/internal/storage"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
}

// BlobStore reads and writes objects in a configured GCS bucket. Object
// fingerprints are the hex encoding of the content MD5 GCS computes at
// write time.
type BlobStore struct {
	client *storage.Client
	bucket string
}

// New creates a GCS-backed blob store.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &BlobStore{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// Connect initializes a GCS client and verifies bucket access.
// Authentication is handled via Application Default Credentials.
func Connect(ctx context.Context, cfg Config) (*BlobStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	// Fail fast on startup if the bucket is missing or unreadable.
	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		closeErr := client.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("get bucket %q attributes: %w (close client: %v)", cfg.Bucket, err, closeErr)
		}
		return nil, fmt.Errorf("get bucket %q attributes: %w", cfg.Bucket, err)
	}
	return New(client, cfg)
}

// List returns every object under prefix with its MD5 fingerprint.
func (s *BlobStore) List(ctx context.Context, prefix string) ([]store.Object, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var objects []store.Object
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects under %q: %w", prefix, err)
		}
		objects = append(objects, store.Object{
			Key:         attrs.Name,
			Fingerprint: hex.EncodeToString(attrs.MD5),
		})
	}
	return objects, nil
}

// Get downloads the content of the object at key.
func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("open object %q: %w", key, err)
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", key, err)
	}
	return data, nil
}

// Put uploads data to key and returns the MD5 fingerprint GCS assigned.
func (s *BlobStore) Put(ctx context.Context, key string, contentType string, data []byte) (string, error) {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		closeErr := w.Close()
		if closeErr != nil {
			return "", fmt.Errorf("write object %q: %w (close writer: %v)", key, err, closeErr)
		}
		return "", fmt.Errorf("write object %q: %w", key, err)
	}
	// Close finalizes the upload; the writer attributes are only valid after it.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close writer for object %q: %w", key, err)
	}
	return hex.EncodeToString(w.Attrs().MD5), nil
}

// Delete removes the object at key.
func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return store.ErrNotFound
		}
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}

// Head returns the MD5 fingerprint of the object at key without
// downloading its content.
func (s *BlobStore) Head(ctx context.Context, key string) (string, error) {
	attrs, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", store.ErrNotFound
		}
		return "", fmt.Errorf("stat object %q: %w", key, err)
	}
	return hex.EncodeToString(attrs.MD5), nil
}

// Close releases the underlying client.
func (s *BlobStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close GCS client: %w", err)
	}
	return nil
}
