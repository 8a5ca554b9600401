package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath       = "config.yaml"
	defaultServerAddr       = ":8080"
	defaultShutdownTimeout  = 30 * time.Second
	defaultLogLevel         = "info"
	defaultLogEncoding      = "json"
	defaultSynthesizer      = SynthesizerElevenLabs
	defaultElevenLabsModel  = "eleven_multilingual_v2"
	defaultElevenLabsSpeed  = 1.0
	defaultStability        = 0.5
	defaultSimilarity       = 0.75
	defaultStubWPM          = 150
	defaultWorkers          = 2
	defaultQueueSize        = 64
	defaultTempDir          = "./tmp"
	defaultSlideWidth       = 1280
	defaultSlideHeight      = 720
	defaultMaxSlides        = 5
	defaultSlideCount       = 3
	defaultSlideSeconds     = 3
	defaultFontSize         = 48
	defaultFFmpegPath       = "ffmpeg"
	defaultPreset           = "veryfast"
	defaultFrameRate        = 25
	defaultProbeFallback    = 120.0
	defaultThumbnailWidth   = 640
	defaultThumbnailQuality = 85
	defaultStorageBackend   = StorageLocal
	defaultLocalDir         = "./published"
	defaultStoreBackend     = StoreMemory
	defaultRedisAddr        = "localhost:6379"
	defaultRedisKeyPrefix   = "script2vid:video:"
)

const (
	SynthesizerElevenLabs = "elevenlabs"
	SynthesizerStub       = "stub"

	StorageLocal = "local"
	StorageGCS   = "gcs"
	StorageS3    = "s3"
	StorageMinIO = "minio"

	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	ElevenLabsAPIKey   string `yaml:"-"`
	RedisPassword      string `yaml:"-"`
	AWSSecretAccessKey string `yaml:"-"`
	MinIOSecretKey     string `yaml:"-"`
	GCPProject         string `yaml:"-"`

	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Slides     SlidesConfig     `yaml:"slides"`
	Video      VideoConfig      `yaml:"video"`
	Thumbnail  ThumbnailConfig  `yaml:"thumbnail"`
	Storage    StorageConfig    `yaml:"storage"`
	Store      StoreConfig      `yaml:"store"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Encoding   string `yaml:"encoding"`
	OutputPath string `yaml:"output_path"`
}

type ElevenLabsConfig struct {
	Model      string        `yaml:"model"`
	Speed      float64       `yaml:"speed"`
	Stability  float64       `yaml:"stability"`
	Similarity float64       `yaml:"similarity"`
	// Timeout is opt-in. Zero leaves synthesis calls without a deadline.
	Timeout time.Duration `yaml:"timeout"`
}

type PipelineConfig struct {
	Synthesizer      string `yaml:"synthesizer"`
	StubWPM          int    `yaml:"stub_wpm"`
	Workers          int    `yaml:"workers"`
	QueueSize        int    `yaml:"queue_size"`
	TempDir          string `yaml:"temp_dir"`
	SynthesisRetries int    `yaml:"synthesis_retries"`
}

type SlidesConfig struct {
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	MaxSlides    int     `yaml:"max_slides"`
	DefaultCount int     `yaml:"default_count"`
	SlideSeconds int     `yaml:"slide_seconds"`
	FontSize     float64 `yaml:"font_size"`
}

type VideoConfig struct {
	FFmpegPath           string  `yaml:"ffmpeg_path"`
	Preset               string  `yaml:"preset"`
	FrameRate            int     `yaml:"frame_rate"`
	ProbeFallbackSeconds float64 `yaml:"probe_fallback_seconds"`
}

type ThumbnailConfig struct {
	Width   int `yaml:"width"`
	Quality int `yaml:"quality"`
}

type StorageConfig struct {
	Backend       string        `yaml:"backend"`
	PublicBaseURL string        `yaml:"public_base_url"`
	Buckets       BucketsConfig `yaml:"buckets"`
	Local         LocalConfig   `yaml:"local"`
	GCS           GCSConfig     `yaml:"gcs"`
	S3            S3Config      `yaml:"s3"`
	MinIO         MinIOConfig   `yaml:"minio"`
}

type BucketsConfig struct {
	Video     string `yaml:"video"`
	Audio     string `yaml:"audio"`
	Subtitle  string `yaml:"subtitle"`
	Thumbnail string `yaml:"thumbnail"`
}

type LocalConfig struct {
	Dir string `yaml:"dir"`
}

type GCSConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
}

type S3Config struct {
	Region       string `yaml:"region"`
	Profile      string `yaml:"profile"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
	AccessKeyID  string `yaml:"access_key_id"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type StoreConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

func Load(ctx context.Context) (*Config, error) {
	return load(ctx, defaultConfigPath, nil)
}

// load reads dotenv, environment and yaml, then fills empty secrets from
// Secret Manager. A nil secrets source builds the GCP client on demand.
func load(ctx context.Context, path string, secrets SecretSource) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		zap.L().Warn("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		ElevenLabsAPIKey:   os.Getenv("ELEVENLABS_API_KEY"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		MinIOSecretKey:     os.Getenv("MINIO_SECRET_KEY"),
		GCPProject:         os.Getenv("GOOGLE_CLOUD_PROJECT"),
	}

	if err := loadYAMLConfig(cfg, path); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	if err := resolveSecrets(ctx, cfg, secrets); err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAMLConfig(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		zap.L().Warn("No config file found, using defaults", zap.String("path", path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SYNTHESIZER"); v != "" {
		cfg.Pipeline.Synthesizer = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Store.Redis.Addr = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.Storage.S3.AccessKeyID = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.Storage.MinIO.AccessKey = v
	}
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(cfg)
	applyLogDefaults(cfg)
	applyElevenLabsDefaults(cfg)
	applyPipelineDefaults(cfg)
	applySlidesDefaults(cfg)
	applyVideoDefaults(cfg)
	applyThumbnailDefaults(cfg)
	applyStorageDefaults(cfg)
	applyStoreDefaults(cfg)
}

func applyServerDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultServerAddr
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}
}

func applyLogDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	if cfg.Log.Encoding == "" {
		cfg.Log.Encoding = defaultLogEncoding
	}
}

func applyElevenLabsDefaults(cfg *Config) {
	if cfg.ElevenLabs.Model == "" {
		cfg.ElevenLabs.Model = defaultElevenLabsModel
	}
	if cfg.ElevenLabs.Speed == 0 {
		cfg.ElevenLabs.Speed = defaultElevenLabsSpeed
	}
	if cfg.ElevenLabs.Stability == 0 {
		cfg.ElevenLabs.Stability = defaultStability
	}
	if cfg.ElevenLabs.Similarity == 0 {
		cfg.ElevenLabs.Similarity = defaultSimilarity
	}
}

func applyPipelineDefaults(cfg *Config) {
	if cfg.Pipeline.Synthesizer == "" {
		cfg.Pipeline.Synthesizer = defaultSynthesizer
	}
	if cfg.Pipeline.StubWPM <= 0 {
		cfg.Pipeline.StubWPM = defaultStubWPM
	}
	if cfg.Pipeline.Workers <= 0 {
		cfg.Pipeline.Workers = defaultWorkers
	}
	if cfg.Pipeline.QueueSize <= 0 {
		cfg.Pipeline.QueueSize = defaultQueueSize
	}
	if cfg.Pipeline.TempDir == "" {
		cfg.Pipeline.TempDir = defaultTempDir
	}
	if cfg.Pipeline.SynthesisRetries < 0 {
		cfg.Pipeline.SynthesisRetries = 0
	}
}

func applySlidesDefaults(cfg *Config) {
	if cfg.Slides.Width <= 0 {
		cfg.Slides.Width = defaultSlideWidth
	}
	if cfg.Slides.Height <= 0 {
		cfg.Slides.Height = defaultSlideHeight
	}
	if cfg.Slides.MaxSlides <= 0 {
		cfg.Slides.MaxSlides = defaultMaxSlides
	}
	if cfg.Slides.DefaultCount <= 0 {
		cfg.Slides.DefaultCount = defaultSlideCount
	}
	if cfg.Slides.SlideSeconds <= 0 {
		cfg.Slides.SlideSeconds = defaultSlideSeconds
	}
	if cfg.Slides.FontSize <= 0 {
		cfg.Slides.FontSize = defaultFontSize
	}
}

func applyVideoDefaults(cfg *Config) {
	if cfg.Video.FFmpegPath == "" {
		cfg.Video.FFmpegPath = defaultFFmpegPath
	}
	if cfg.Video.Preset == "" {
		cfg.Video.Preset = defaultPreset
	}
	if cfg.Video.FrameRate <= 0 {
		cfg.Video.FrameRate = defaultFrameRate
	}
	if cfg.Video.ProbeFallbackSeconds <= 0 {
		cfg.Video.ProbeFallbackSeconds = defaultProbeFallback
	}
}

func applyThumbnailDefaults(cfg *Config) {
	if cfg.Thumbnail.Width <= 0 {
		cfg.Thumbnail.Width = defaultThumbnailWidth
	}
	if cfg.Thumbnail.Quality <= 0 || cfg.Thumbnail.Quality > 100 {
		cfg.Thumbnail.Quality = defaultThumbnailQuality
	}
}

func applyStorageDefaults(cfg *Config) {
	s := &cfg.Storage
	if s.Backend == "" {
		s.Backend = defaultStorageBackend
	}
	if s.Buckets.Video == "" {
		s.Buckets.Video = "videos"
	}
	if s.Buckets.Audio == "" {
		s.Buckets.Audio = "audio"
	}
	if s.Buckets.Subtitle == "" {
		s.Buckets.Subtitle = "subtitles"
	}
	if s.Buckets.Thumbnail == "" {
		s.Buckets.Thumbnail = "thumbnails"
	}
	if s.Local.Dir == "" {
		s.Local.Dir = defaultLocalDir
	}
}

func applyStoreDefaults(cfg *Config) {
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = defaultStoreBackend
	}
	if cfg.Store.Redis.Addr == "" {
		cfg.Store.Redis.Addr = defaultRedisAddr
	}
	if cfg.Store.Redis.KeyPrefix == "" {
		cfg.Store.Redis.KeyPrefix = defaultRedisKeyPrefix
	}
}

func (c *Config) validate() error {
	switch c.Pipeline.Synthesizer {
	case SynthesizerElevenLabs:
		if c.ElevenLabsAPIKey == "" {
			return errors.New("ELEVENLABS_API_KEY is required for the elevenlabs synthesizer")
		}
	case SynthesizerStub:
	default:
		return fmt.Errorf("unknown synthesizer %q", c.Pipeline.Synthesizer)
	}

	switch c.Storage.Backend {
	case StorageLocal, StorageGCS, StorageS3:
	case StorageMinIO:
		if c.Storage.MinIO.Endpoint == "" {
			return errors.New("storage.minio.endpoint is required for the minio backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Store.Backend {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Slides.MaxSlides < 1 || c.Slides.MaxSlides > defaultMaxSlides {
		return fmt.Errorf("slides.max_slides must be between 1 and %d, got %d", defaultMaxSlides, c.Slides.MaxSlides)
	}
	if c.Slides.DefaultCount != defaultSlideCount {
		return fmt.Errorf("slides.default_count must be %d, got %d", defaultSlideCount, c.Slides.DefaultCount)
	}
	if c.Slides.SlideSeconds != defaultSlideSeconds {
		return fmt.Errorf("slides.slide_seconds must be %d, got %d", defaultSlideSeconds, c.Slides.SlideSeconds)
	}
	if c.ElevenLabs.Timeout < 0 {
		return fmt.Errorf("elevenlabs.timeout must not be negative, got %s", c.ElevenLabs.Timeout)
	}
	return nil
}
