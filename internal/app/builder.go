package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"script2vid/internal/metrics"
	"script2vid/internal/publish"
	"script2vid/internal/record"
	"script2vid/internal/speech"
	"script2vid/internal/speech/elevenlabs"
	"script2vid/internal/storage"
	"script2vid/internal/video"
	"script2vid/internal/visuals"
	"script2vid/pkg/config"
	"script2vid/pkg/retry"
)

type BuildResult struct {
	Service *Service
	Metrics *metrics.Metrics
	// Local is set when artifacts are published to the local filesystem.
	Local   *storage.LocalStorage
	closers []func() error
}

func (r *BuildResult) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

func BuildService(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (*BuildResult, error) {
	result := &BuildResult{Metrics: metrics.New(reg)}

	synth := buildSynthesizer(cfg)

	slides, err := visuals.NewSlideGenerator(visuals.Options{
		Width:         cfg.Slides.Width,
		Height:        cfg.Slides.Height,
		MaxSlides:     cfg.Slides.MaxSlides,
		DefaultCount:  cfg.Slides.DefaultCount,
		SlideDuration: time.Duration(cfg.Slides.SlideSeconds) * time.Second,
		FontSize:      cfg.Slides.FontSize,
	})
	if err != nil {
		return nil, err
	}

	scratch := video.NewScratch(cfg.Pipeline.TempDir)
	if err := scratch.EnsureDir(); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	compiler := video.NewCompiler(video.CompilerOptions{
		FFmpegPath:       cfg.Video.FFmpegPath,
		Scratch:          scratch,
		Resolution:       fmt.Sprintf("%dx%d", cfg.Slides.Width, cfg.Slides.Height),
		FrameRate:        cfg.Video.FrameRate,
		Preset:           cfg.Video.Preset,
		ProbeFallback:    cfg.Video.ProbeFallbackSeconds,
		ThumbnailWidth:   cfg.Thumbnail.Width,
		ThumbnailQuality: cfg.Thumbnail.Quality,
		Logger:           logger.Named("compiler"),
	})

	buckets := publish.Buckets{
		Video:     cfg.Storage.Buckets.Video,
		Audio:     cfg.Storage.Buckets.Audio,
		Subtitle:  cfg.Storage.Buckets.Subtitle,
		Thumbnail: cfg.Storage.Buckets.Thumbnail,
	}

	objects, err := result.buildObjectStore(ctx, cfg, buckets)
	if err != nil {
		_ = result.Close()
		return nil, err
	}

	store, err := result.buildRecordStore(ctx, cfg, logger)
	if err != nil {
		_ = result.Close()
		return nil, err
	}

	orch, err := NewOrchestrator(Dependencies{
		Store:       store,
		Synthesizer: synth,
		Slides:      slides,
		Aligner:     video.NewSubtitleAligner(video.SubtitleOptions{}),
		Compiler:    compiler,
		Publisher:   publish.NewPublisher(objects, buckets, logger.Named("publisher")),
		Scratch:     scratch,
		Metrics:     result.Metrics,
		Logger:      logger.Named("pipeline"),
		SynthesisRetry: synthesisRetry(cfg.Pipeline.SynthesisRetries),
	})
	if err != nil {
		_ = result.Close()
		return nil, err
	}

	pool := NewWorkerPool(orch, PoolOptions{
		Workers:   cfg.Pipeline.Workers,
		QueueSize: cfg.Pipeline.QueueSize,
		Metrics:   result.Metrics,
		Logger:    logger.Named("pool"),
	})

	result.Service = NewService(ServiceOptions{
		Orchestrator: orch,
		Pool:         pool,
		Store:        store,
	})
	return result, nil
}

// synthesisRetry keeps the default backoff and only takes the attempt count
// from config.
func synthesisRetry(retries int) retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxRetries = retries
	return rc
}

func buildSynthesizer(cfg *config.Config) speech.Synthesizer {
	if cfg.Pipeline.Synthesizer == config.SynthesizerStub {
		return speech.NewStubProvider(float64(cfg.Pipeline.StubWPM))
	}
	return elevenlabs.NewClient(elevenlabs.Config{
		APIKey:     cfg.ElevenLabsAPIKey,
		Model:      cfg.ElevenLabs.Model,
		Speed:      cfg.ElevenLabs.Speed,
		Stability:  cfg.ElevenLabs.Stability,
		Similarity: cfg.ElevenLabs.Similarity,
		Timeout:    cfg.ElevenLabs.Timeout,
	})
}

func (r *BuildResult) buildObjectStore(ctx context.Context, cfg *config.Config, buckets publish.Buckets) (storage.ObjectStore, error) {
	sc := cfg.Storage

	switch sc.Backend {
	case config.StorageGCS:
		gcs, err := storage.NewGCSStorage(ctx, storage.GCSOptions{
			CredentialsFile: sc.GCS.CredentialsFile,
			PublicBaseURL:   sc.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, gcs.Close)
		return gcs, nil

	case config.StorageS3:
		return storage.NewS3Storage(ctx, storage.S3Config{
			Region:          sc.S3.Region,
			Profile:         sc.S3.Profile,
			Endpoint:        sc.S3.Endpoint,
			UsePathStyle:    sc.S3.UsePathStyle,
			AccessKeyID:     sc.S3.AccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			PublicBaseURL:   sc.PublicBaseURL,
		})

	case config.StorageMinIO:
		mc, err := storage.NewMinIOStorage(storage.MinIOConfig{
			Endpoint:      sc.MinIO.Endpoint,
			AccessKey:     sc.MinIO.AccessKey,
			SecretKey:     cfg.MinIOSecretKey,
			UseSSL:        sc.MinIO.UseSSL,
			PublicBaseURL: sc.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		if err := mc.EnsureBuckets(ctx, buckets.All()...); err != nil {
			return nil, err
		}
		return mc, nil

	default:
		local := storage.NewLocalStorage(sc.Local.Dir, sc.PublicBaseURL)
		if err := local.EnsureDirectories(buckets.All()...); err != nil {
			return nil, err
		}
		r.Local = local
		return local, nil
	}
}

func (r *BuildResult) buildRecordStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (record.Store, error) {
	if cfg.Store.Backend != config.StoreRedis {
		return record.NewMemoryStore(), nil
	}

	client, err := record.NewRedisClient(ctx, record.RedisConfig{
		Addr:     cfg.Store.Redis.Addr,
		Password: cfg.RedisPassword,
		DB:       cfg.Store.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, client.Close)

	return record.NewRedisStore(client, record.RedisOptions{
		KeyPrefix: cfg.Store.Redis.KeyPrefix,
		TTL:       cfg.Store.Redis.TTL,
	}, logger), nil
}
