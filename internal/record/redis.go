package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"script2vid/internal/app/model"
)

const DefaultKeyPrefix = "script2vid:video:"

type RedisOptions struct {
	KeyPrefix string
	// TTL of zero keeps records forever.
	TTL time.Duration
}

type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisStore(client *redis.Client, opts RedisOptions, logger *zap.Logger) *RedisStore {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client: client,
		prefix: opts.KeyPrefix,
		ttl:    opts.TTL,
		logger: logger.Named("RedisStore"),
	}
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects and pings, so a bad address fails at startup.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Create(ctx context.Context, rec *model.VideoRecord) error {
	if err := checkRecord(rec); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(rec.ID), data, s.ttl).Result()
	if err != nil {
		s.logger.Error("Failed to create record", zap.String("id", rec.ID), zap.Error(err))
		return fmt.Errorf("failed to create record in redis: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, rec.ID)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*model.VideoRecord, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record from redis: %w", err)
	}

	var rec model.VideoRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", id, err)
	}
	return &rec, nil
}

func (s *RedisStore) Update(ctx context.Context, rec *model.VideoRecord) error {
	if err := checkRecord(rec); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	ok, err := s.client.SetXX(ctx, s.key(rec.ID), data, s.ttl).Result()
	if err != nil {
		s.logger.Error("Failed to update record", zap.String("id", rec.ID), zap.Error(err))
		return fmt.Errorf("failed to update record in redis: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrNotFound, rec.ID)
	}
	return nil
}
