package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalObjectStore keeps each bucket as a directory under Root. The replay
// command uses it to run the thumbnail trigger against files on disk.
type LocalObjectStore struct {
	Root string
}

func NewLocalObjectStore(root string) *LocalObjectStore {
	return &LocalObjectStore{Root: root}
}

func (s *LocalObjectStore) Download(_ context.Context, bucket, name, dst string) error {
	src, err := s.path(bucket, name)
	if err != nil {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("failed to read object %s/%s: %w", bucket, name, err)
	}
	return nil
}

// Upload ignores contentType; files carry none.
func (s *LocalObjectStore) Upload(_ context.Context, bucket, src, name, _ string) error {
	dst, err := s.path(bucket, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create folder for %s/%s: %w", bucket, name, err)
	}
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("failed to write object %s/%s: %w", bucket, name, err)
	}
	return nil
}

// path maps bucket/name below Root, refusing names that climb out of it.
func (s *LocalObjectStore) path(bucket, name string) (string, error) {
	p := filepath.Join(s.Root, bucket, filepath.FromSlash(name))
	rel, err := filepath.Rel(s.Root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("object %s/%s is outside %s", bucket, name, s.Root)
	}
	return p, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
