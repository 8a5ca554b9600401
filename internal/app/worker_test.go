package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"script2vid/internal/app/model"
	"script2vid/internal/record"
	"script2vid/internal/speech"
	"script2vid/internal/video"
)

// blockingSynth holds every call until release is closed.
type blockingSynth struct {
	started chan string
	release chan struct{}
}

func (s *blockingSynth) Synthesize(ctx context.Context, text, _ string) (*speech.SpeechResult, error) {
	s.started <- text
	<-s.release
	return &speech.SpeechResult{Audio: []byte("mp3")}, nil
}

func newPoolFixture(t *testing.T, synth speech.Synthesizer, workers, queue int) (*WorkerPool, *record.MemoryStore) {
	t.Helper()
	store := record.NewMemoryStore()
	slides := &mockSlides{}
	slides.On("Generate", mock.Anything, mock.Anything).Return(twoSlides(), nil)
	compiler := &mockCompiler{}
	compiler.On("Compile", mock.Anything, mock.Anything).Return(&video.CompileResult{Data: []byte("mp4"), Duration: 6}, nil)
	compiler.On("Thumbnail", mock.Anything).Return([]byte("jpg"), nil)
	publisher := &mockPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything).Return(fullURLs, nil)

	var seq atomic.Int64
	orch, err := NewOrchestrator(Dependencies{
		Store:       store,
		Synthesizer: synth,
		Slides:      slides,
		Compiler:    compiler,
		Publisher:   publisher,
		Scratch:     newCountingScratch(),
		Logger:      zaptest.NewLogger(t),
		NewID:       func() string { return fmt.Sprintf("req-%d", seq.Add(1)) },
	})
	require.NoError(t, err)

	return NewWorkerPool(orch, PoolOptions{Workers: workers, QueueSize: queue, Logger: zaptest.NewLogger(t)}), store
}

func waitStatus(t *testing.T, store record.Store, id string, want model.VideoStatus) *model.VideoRecord {
	t.Helper()
	var rec *model.VideoRecord
	require.Eventually(t, func() bool {
		var err error
		rec, err = store.Get(context.Background(), id)
		return err == nil && rec.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return rec
}

func TestWorkerPoolCompletes(t *testing.T) {
	synth := &blockingSynth{started: make(chan string, 4), release: make(chan struct{})}
	close(synth.release)
	pool, store := newPoolFixture(t, synth, 2, 4)

	rec, err := pool.Submit(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, rec.Status)
	assert.Equal(t, model.ArtifactURLs{}, rec.URLs)

	final := waitStatus(t, store, rec.ID, model.StatusCompleted)
	assert.True(t, final.URLs.Complete())
	assert.Equal(t, "0:06", final.Duration)

	require.NoError(t, pool.Shutdown(context.Background()))
}

func TestWorkerPoolQueueFull(t *testing.T) {
	synth := &blockingSynth{started: make(chan string, 4), release: make(chan struct{})}
	pool, store := newPoolFixture(t, synth, 1, 1)
	ctx := context.Background()

	first, err := pool.Submit(ctx, testRequest())
	require.NoError(t, err)
	<-synth.started

	second, err := pool.Submit(ctx, testRequest())
	require.NoError(t, err)

	third, err := pool.Submit(ctx, testRequest())
	require.ErrorIs(t, err, model.ErrQueueFull)
	require.NotNil(t, third)
	assert.Equal(t, model.StatusFailed, third.Status)

	stored, err := store.Get(ctx, third.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, stored.Status)
	assert.Equal(t, model.ErrQueueFull.Error(), stored.Metadata.ErrorDetail)

	close(synth.release)
	require.NoError(t, pool.Shutdown(ctx))

	for _, id := range []string{first.ID, second.ID} {
		rec, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCompleted, rec.Status, "queued work drains on shutdown")
	}
}

func TestWorkerPoolRejectsAfterShutdown(t *testing.T) {
	synth := &blockingSynth{started: make(chan string, 1), release: make(chan struct{})}
	close(synth.release)
	pool, store := newPoolFixture(t, synth, 1, 1)

	require.NoError(t, pool.Shutdown(context.Background()))
	require.NoError(t, pool.Shutdown(context.Background()), "shutdown is idempotent")

	rec, err := pool.Submit(context.Background(), testRequest())
	require.ErrorIs(t, err, ErrPoolClosed)

	stored, err := store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, stored.Status)
}

func TestWorkerPoolShutdownTimeout(t *testing.T) {
	synth := &blockingSynth{started: make(chan string, 1), release: make(chan struct{})}
	pool, _ := newPoolFixture(t, synth, 1, 1)

	_, err := pool.Submit(context.Background(), testRequest())
	require.NoError(t, err)
	<-synth.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Shutdown(ctx), context.DeadlineExceeded)

	close(synth.release)
	require.NoError(t, pool.Shutdown(context.Background()))
}
