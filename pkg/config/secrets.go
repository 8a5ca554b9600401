package config

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"go.uber.org/zap"
)

type SecretSource interface {
	Access(ctx context.Context, name string) (string, error)
	Close() error
}

type gcpSecrets struct {
	client  *secretmanager.Client
	project string
}

func newGCPSecrets(ctx context.Context, project string) (*gcpSecrets, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}
	return &gcpSecrets{client: client, project: project}, nil
}

func (s *gcpSecrets) Access(ctx context.Context, name string) (string, error) {
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.project, name),
	})
	if err != nil {
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}
	return strings.TrimSpace(string(resp.GetPayload().GetData())), nil
}

func (s *gcpSecrets) Close() error {
	return s.client.Close()
}

type secretBinding struct {
	name   string
	target *string
}

func (c *Config) secretBindings() []secretBinding {
	return []secretBinding{
		{"elevenlabs-api-key", &c.ElevenLabsAPIKey},
		{"redis-password", &c.RedisPassword},
		{"aws-secret-access-key", &c.AWSSecretAccessKey},
		{"minio-secret-key", &c.MinIOSecretKey},
	}
}

// resolveSecrets fills secrets that the environment left empty. It does
// nothing without a GCP project. Secrets that cannot be read stay empty.
func resolveSecrets(ctx context.Context, cfg *Config, source SecretSource) error {
	if cfg.GCPProject == "" {
		return nil
	}

	var missing []secretBinding
	for _, b := range cfg.secretBindings() {
		if *b.target == "" {
			missing = append(missing, b)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	if source == nil {
		gcp, err := newGCPSecrets(ctx, cfg.GCPProject)
		if err != nil {
			return err
		}
		source = gcp
	}
	defer func() { _ = source.Close() }()

	for _, b := range missing {
		value, err := source.Access(ctx, b.name)
		if err != nil {
			zap.L().Debug("Secret not resolved", zap.String("secret", b.name), zap.Error(err))
			continue
		}
		*b.target = value
	}
	return nil
}
