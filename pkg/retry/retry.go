package retry

import (
	"context"
	"math/rand"
	"time"
)

type Config struct {
	// MaxRetries counts attempts after the first. Zero disables retrying.
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2.0
	}
	return c
}

// Do calls fn until it succeeds, retryable reports false, retries run out or
// ctx is done. A nil retryable retries every error. The last error is returned.
func Do[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error), retryable func(error) bool) (T, error) {
	cfg = cfg.withDefaults()
	delay := cfg.InitialDelay

	var result T
	var err error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(applyJitter(delay))
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, err
			case <-timer.C:
			}
			delay = min(time.Duration(float64(delay)*cfg.Multiplier), cfg.MaxDelay)
		}

		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		if retryable != nil && !retryable(err) {
			return result, err
		}
	}

	return result, err
}

func applyJitter(delay time.Duration) time.Duration {
	jitterFactor := 0.9 + rand.Float64()*0.2
	return time.Duration(float64(delay) * jitterFactor)
}
