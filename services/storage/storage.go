package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ObjectStore defines the object operations the thumbnail trigger needs.
type ObjectStore interface {
	// Download copies bucket/name into the local file dst.
	Download(ctx context.Context, bucket, name, dst string) error
	// Upload writes the local file src to bucket/name.
	Upload(ctx context.Context, bucket, src, name, contentType string) error
}

// GCSObjectStore implements ObjectStore using Cloud Storage for Firebase.
type GCSObjectStore struct {
	client *storage.Client
}

// NewGCSObjectStore creates a new GCSObjectStore.
func NewGCSObjectStore(ctx context.Context, opts ...option.ClientOption) (*GCSObjectStore, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSObjectStore{client: client}, nil
}

// Download streams the object into dst, truncating any existing file.
func (s *GCSObjectStore) Download(ctx context.Context, bucket, name, dst string) error {
	r, err := s.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to open object %s/%s: %w", bucket, name, err)
	}
	defer r.Close()

	file, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		return fmt.Errorf("failed to copy object to file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

// Upload writes src to the bucket under name with the given content type.
func (s *GCSObjectStore) Upload(ctx context.Context, bucket, src, name, contentType string) error {
	file, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	// Cancelling the writer's context is the only way to abandon an upload;
	// Close would commit whatever was written so far.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.client.Bucket(bucket).Object(name).NewWriter(ctx)
	if contentType != "" {
		w.ObjectAttrs.ContentType = contentType
	}
	return copyToObject(w, file, cancel)
}

// copyToObject streams src into w and commits it. A failed copy cancels the
// upload and leaves w unclosed.
func copyToObject(w io.WriteCloser, src io.Reader, cancel context.CancelFunc) error {
	if _, err := io.Copy(w, src); err != nil {
		cancel()
		return fmt.Errorf("failed to copy file to storage: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *GCSObjectStore) Close() error {
	return s.client.Close()
}
