package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"script2vid/pkg/retry"
)

func TestSynthesisRetry(t *testing.T) {
	tests := []struct {
		name    string
		retries int
	}{
		{name: "configuredAttempts", retries: 2},
		{name: "retriesDisabled", retries: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := synthesisRetry(tt.retries)

			want := retry.DefaultConfig()
			want.MaxRetries = tt.retries
			assert.Equal(t, want, got)
			assert.Equal(t, 500*time.Millisecond, got.InitialDelay)
			assert.Equal(t, 5*time.Second, got.MaxDelay)
		})
	}
}
