// internal/adapters/out/gcs/metadata_object_store.go
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// MetadataObjectStore reads published metadata JSON objects from the GCS
// bucket the storefront uploads them to. The HTTP metadata endpoint only
// calls it after the path has passed identity.DeriveFromURI, so object
// keys are always well-formed.
type MetadataObjectStore struct {
	client *storage.Client
	bucket string
}

var ErrObjectNotFound = errors.New("gcs: metadata object not found")

func NewMetadataObjectStore(client *storage.Client, bucket string) *MetadataObjectStore {
	return &MetadataObjectStore{client: client, bucket: strings.TrimSpace(bucket)}
}

// Enabled reports whether a bucket is configured.
func (s *MetadataObjectStore) Enabled() bool {
	return s != nil && s.client != nil && s.bucket != ""
}

// ReadObject returns the raw JSON bytes stored under the given metadata
// path (leading slash stripped).
func (s *MetadataObjectStore) ReadObject(ctx context.Context, path string) ([]byte, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("gcs: metadata store not configured")
	}
	key := strings.TrimPrefix(strings.TrimSpace(path), "/")

	rc, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("gcs: open %s/%s: %w", s.bucket, key, err)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("gcs: read %s/%s: %w", s.bucket, key, err)
	}
	return b, nil
}
