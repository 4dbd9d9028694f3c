// Package storage persists partition groups as NDJSON objects in object
// storage.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // local driver
	_ "gocloud.dev/blob/s3blob"   // S3 driver
)

// PutOptions carries object metadata for a write.
type PutOptions struct {
	ContentType     string
	ContentEncoding string
}

// ObjectStore abstracts writing immutable objects at a key. Objects are
// never overwritten or read back by this system.
type ObjectStore interface {
	// Put durably writes body at key.
	Put(ctx context.Context, key string, body []byte, opts PutOptions) error

	// URI returns the canonical URI for the given key.
	URI(key string) string

	// Close releases any resources.
	Close() error
}

// Config configures the storage backend.
type Config struct {
	Backend string // "s3" | "local"

	// S3 (also works for B2, R2, MinIO)
	Bucket   string
	Endpoint string // custom endpoint for B2/MinIO/R2
	Region   string

	// Local filesystem
	LocalDir string
}

// NewObjectStore creates a storage backend based on configuration.
func NewObjectStore(ctx context.Context, cfg Config) (ObjectStore, error) {
	switch cfg.Backend {
	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("Bucket required for s3 backend")
		}
		return newBlobStore(ctx, s3URL(cfg), "s3://"+cfg.Bucket+"/")
	case "local":
		if cfg.LocalDir == "" {
			return nil, fmt.Errorf("LocalDir required for local backend")
		}
		dir, err := filepath.Abs(cfg.LocalDir)
		if err != nil {
			return nil, fmt.Errorf("resolve local dir %s: %w", cfg.LocalDir, err)
		}
		return newBlobStore(ctx, "file://"+dir+"?create_dir=true", "file://"+dir+"/")
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

func s3URL(cfg Config) string {
	bucketURL := "s3://" + cfg.Bucket

	params := url.Values{}
	if cfg.Region != "" {
		params.Set("region", cfg.Region)
	}
	if cfg.Endpoint != "" {
		params.Set("endpoint", cfg.Endpoint)
		params.Set("s3ForcePathStyle", "true")
	}
	if len(params) > 0 {
		bucketURL = bucketURL + "?" + params.Encode()
	}
	return bucketURL
}

// blobStore writes objects through a gocloud.dev bucket.
type blobStore struct {
	bucket  *blob.Bucket
	baseURI string
}

func newBlobStore(ctx context.Context, bucketURL, baseURI string) (*blobStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}
	return &blobStore{bucket: bucket, baseURI: baseURI}, nil
}

// Put writes body at key with the given metadata.
func (s *blobStore) Put(ctx context.Context, key string, body []byte, opts PutOptions) error {
	w, err := s.bucket.NewWriter(ctx, key, &blob.WriterOptions{
		ContentType:     opts.ContentType,
		ContentEncoding: opts.ContentEncoding,
	})
	if err != nil {
		return fmt.Errorf("create writer for %s: %w", key, err)
	}

	if _, err := w.Write(body); err != nil {
		w.Close()
		return fmt.Errorf("write data to %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", key, err)
	}

	return nil
}

// URI returns the canonical URI for the given key.
func (s *blobStore) URI(key string) string {
	return s.baseURI + strings.TrimPrefix(key, "/")
}

// Close releases the bucket connection.
func (s *blobStore) Close() error {
	if s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}
