package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const DefaultLocalBaseURL = "/files"

// LocalStorage keeps artifacts under root/bucket/key. The API serves root at
// the base URL.
type LocalStorage struct {
	root    string
	baseURL string
}

func NewLocalStorage(root, baseURL string) *LocalStorage {
	if baseURL == "" {
		baseURL = DefaultLocalBaseURL
	}
	return &LocalStorage{
		root:    root,
		baseURL: baseURL,
	}
}

func (s *LocalStorage) Root() string {
	return s.root
}

func (s *LocalStorage) Put(ctx context.Context, bucket, key string, body io.Reader, _ int64, _ string) error {
	if err := validateKey(bucket, key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(s.root, bucket, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close object: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move object into place: %w", err)
	}
	return nil
}

func (s *LocalStorage) PublicURL(bucket, key string) string {
	return joinURL(s.baseURL, bucket, key)
}

func (s *LocalStorage) EnsureDirectories(buckets ...string) error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	for _, b := range buckets {
		if err := os.MkdirAll(filepath.Join(s.root, b), 0755); err != nil {
			return fmt.Errorf("failed to create bucket directory: %w", err)
		}
	}
	return nil
}
