package storage

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsPublicBaseURL = "https://storage.googleapis.com"

type GCSStorage struct {
	client  *storage.Client
	baseURL string
}

type GCSOptions struct {
	CredentialsFile string
	PublicBaseURL   string
}

func NewGCSStorage(ctx context.Context, opts GCSOptions) (*GCSStorage, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	baseURL := opts.PublicBaseURL
	if baseURL == "" {
		baseURL = gcsPublicBaseURL
	}

	return &GCSStorage{
		client:  client,
		baseURL: baseURL,
	}, nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}

func (s *GCSStorage) Put(ctx context.Context, bucket, key string, body io.Reader, _ int64, contentType string) error {
	if err := validateKey(bucket, key); err != nil {
		return err
	}

	w := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to upload gs://%s/%s: %w", bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize gs://%s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *GCSStorage) PublicURL(bucket, key string) string {
	return joinURL(s.baseURL, bucket, key)
}
