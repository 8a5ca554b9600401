package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeSecrets struct {
	values   map[string]string
	accessed []string
	closed   bool
}

func (f *fakeSecrets) Access(_ context.Context, name string) (string, error) {
	f.accessed = append(f.accessed, name)
	v, ok := f.values[name]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (f *fakeSecrets) Close() error {
	f.closed = true
	return nil
}

func chdirTemp(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	orig, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(orig) })
	_ = os.Chdir(tmp)
	return tmp
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ELEVENLABS_API_KEY", "REDIS_PASSWORD", "AWS_SECRET_ACCESS_KEY", "MINIO_SECRET_KEY",
		"GOOGLE_CLOUD_PROJECT", "SERVER_ADDR", "LOG_LEVEL", "SYNTHESIZER", "STORAGE_BACKEND", "STORE_BACKEND",
		"REDIS_ADDR", "AWS_ACCESS_KEY_ID", "MINIO_ACCESS_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	clearEnv(t)
	t.Setenv("ELEVENLABS_API_KEY", "key")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Pipeline.Workers != 2 || cfg.Pipeline.QueueSize != 64 {
		t.Errorf("Pipeline = %+v, want 2 workers and queue 64", cfg.Pipeline)
	}
	if cfg.Pipeline.SynthesisRetries != 0 {
		t.Errorf("SynthesisRetries = %d, want 0", cfg.Pipeline.SynthesisRetries)
	}
	if cfg.Video.ProbeFallbackSeconds != 120 {
		t.Errorf("ProbeFallbackSeconds = %v, want 120", cfg.Video.ProbeFallbackSeconds)
	}
	if cfg.Slides.MaxSlides != 5 || cfg.Slides.DefaultCount != 3 || cfg.Slides.SlideSeconds != 3 {
		t.Errorf("Slides = %+v", cfg.Slides)
	}
	if cfg.Storage.Backend != StorageLocal || cfg.Store.Backend != StoreMemory {
		t.Errorf("backends = %s/%s, want local/memory", cfg.Storage.Backend, cfg.Store.Backend)
	}
	want := BucketsConfig{Video: "videos", Audio: "audio", Subtitle: "subtitles", Thumbnail: "thumbnails"}
	if cfg.Storage.Buckets != want {
		t.Errorf("Buckets = %+v, want %+v", cfg.Storage.Buckets, want)
	}
}

func TestLoadFromYAML(t *testing.T) {
	tmp := chdirTemp(t)
	clearEnv(t)

	yaml := `
server:
  addr: ":9090"
  shutdown_timeout: 5s
pipeline:
  synthesizer: stub
  workers: 4
  synthesis_retries: 2
video:
  preset: ultrafast
storage:
  backend: minio
  buckets:
    video: media
  minio:
    endpoint: localhost:9000
store:
  backend: redis
  redis:
    addr: redis:6379
    ttl: 24h
`
	_ = os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte(yaml), 0644)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Addr != ":9090" || cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Pipeline.Synthesizer != SynthesizerStub || cfg.Pipeline.Workers != 4 || cfg.Pipeline.SynthesisRetries != 2 {
		t.Errorf("Pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Video.Preset != "ultrafast" {
		t.Errorf("Video.Preset = %q, want ultrafast", cfg.Video.Preset)
	}
	if cfg.Storage.Buckets.Video != "media" || cfg.Storage.Buckets.Audio != "audio" {
		t.Errorf("Buckets = %+v", cfg.Storage.Buckets)
	}
	if cfg.Store.Redis.Addr != "redis:6379" || cfg.Store.Redis.TTL != 24*time.Hour {
		t.Errorf("Redis = %+v", cfg.Store.Redis)
	}
}

func TestLoadFromEnv(t *testing.T) {
	tmp := chdirTemp(t)
	clearEnv(t)
	_ = os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte("log:\n  level: warn\n"), 0644)

	t.Setenv("ELEVENLABS_API_KEY", "test-key")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("SYNTHESIZER", SynthesizerStub)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ElevenLabsAPIKey != "test-key" {
		t.Errorf("ElevenLabsAPIKey = %q, want test-key", cfg.ElevenLabsAPIKey)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, env should override yaml", cfg.Log.Level)
	}
	if cfg.Store.Redis.Addr != "cache:6379" {
		t.Errorf("Redis.Addr = %q, want cache:6379", cfg.Store.Redis.Addr)
	}
	if cfg.Pipeline.Synthesizer != SynthesizerStub {
		t.Errorf("Pipeline.Synthesizer = %q, want %q", cfg.Pipeline.Synthesizer, SynthesizerStub)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmp := chdirTemp(t)
	clearEnv(t)
	_ = os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte("server: [unclosed"), 0644)

	if _, err := Load(context.Background()); err == nil {
		t.Error("Load() should fail on malformed config.yaml")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missingAPIKey", mutate: func(c *Config) { c.ElevenLabsAPIKey = "" }, wantErr: true},
		{name: "stubNeedsNoKey", mutate: func(c *Config) { c.ElevenLabsAPIKey = ""; c.Pipeline.Synthesizer = SynthesizerStub }},
		{name: "unknownSynthesizer", mutate: func(c *Config) { c.Pipeline.Synthesizer = "polly" }, wantErr: true},
		{name: "unknownStorage", mutate: func(c *Config) { c.Storage.Backend = "ftp" }, wantErr: true},
		{name: "minioWithoutEndpoint", mutate: func(c *Config) { c.Storage.Backend = StorageMinIO }, wantErr: true},
		{name: "unknownStore", mutate: func(c *Config) { c.Store.Backend = "postgres" }, wantErr: true},
		{name: "defaultCountAboveMax", mutate: func(c *Config) { c.Slides.DefaultCount = 6 }, wantErr: true},
		{name: "defaultCountBelowThree", mutate: func(c *Config) { c.Slides.DefaultCount = 2 }, wantErr: true},
		{name: "maxSlidesAboveFive", mutate: func(c *Config) { c.Slides.MaxSlides = 6 }, wantErr: true},
		{name: "maxSlidesLowered", mutate: func(c *Config) { c.Slides.MaxSlides = 4 }},
		{name: "slideSecondsChanged", mutate: func(c *Config) { c.Slides.SlideSeconds = 5 }, wantErr: true},
		{name: "negativeTimeout", mutate: func(c *Config) { c.ElevenLabs.Timeout = -time.Second }, wantErr: true},
		{name: "explicitTimeout", mutate: func(c *Config) { c.ElevenLabs.Timeout = 30 * time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{ElevenLabsAPIKey: "key"}
			applyDefaults(cfg)
			tt.mutate(cfg)

			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestElevenLabsTimeoutIsOptIn(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	if cfg.ElevenLabs.Timeout != 0 {
		t.Errorf("ElevenLabs.Timeout = %v, want no deadline by default", cfg.ElevenLabs.Timeout)
	}

	cfg = &Config{ElevenLabs: ElevenLabsConfig{Timeout: 45 * time.Second}}
	applyDefaults(cfg)
	if cfg.ElevenLabs.Timeout != 45*time.Second {
		t.Errorf("ElevenLabs.Timeout = %v, configured value should be kept", cfg.ElevenLabs.Timeout)
	}
}

func TestResolveSecrets(t *testing.T) {
	tmp := chdirTemp(t)
	clearEnv(t)
	t.Setenv("GOOGLE_CLOUD_PROJECT", "test-project")
	t.Setenv("REDIS_PASSWORD", "from-env")

	source := &fakeSecrets{values: map[string]string{
		"elevenlabs-api-key": "from-secret-manager",
		"redis-password":     "ignored",
	}}

	cfg, err := load(context.Background(), filepath.Join(tmp, "config.yaml"), source)
	if err != nil {
		t.Fatalf("load() error: %v", err)
	}

	if cfg.ElevenLabsAPIKey != "from-secret-manager" {
		t.Errorf("ElevenLabsAPIKey = %q, want from-secret-manager", cfg.ElevenLabsAPIKey)
	}
	if cfg.RedisPassword != "from-env" {
		t.Errorf("RedisPassword = %q, env value should win", cfg.RedisPassword)
	}
	if cfg.GCPProject != "test-project" {
		t.Errorf("GCPProject = %q, want test-project", cfg.GCPProject)
	}
	for _, name := range source.accessed {
		if name == "redis-password" {
			t.Error("secret manager should not be queried for secrets already set")
		}
	}
	if !source.closed {
		t.Error("secret source should be closed")
	}
}

func TestResolveSecretsWithoutProject(t *testing.T) {
	cfg := &Config{}
	source := &fakeSecrets{values: map[string]string{"elevenlabs-api-key": "x"}}

	if err := resolveSecrets(context.Background(), cfg, source); err != nil {
		t.Fatalf("resolveSecrets() error: %v", err)
	}
	if len(source.accessed) != 0 || cfg.ElevenLabsAPIKey != "" {
		t.Error("secrets should not be resolved without a project")
	}
}
