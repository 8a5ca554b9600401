package app

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"script2vid/internal/app/model"
	"script2vid/internal/publish"
	"script2vid/internal/speech"
	"script2vid/internal/video"
	"script2vid/internal/visuals"
)

type mockSynthesizer struct {
	mock.Mock
}

func (m *mockSynthesizer) Synthesize(ctx context.Context, text, voiceID string) (*speech.SpeechResult, error) {
	args := m.Called(ctx, text, voiceID)
	res, _ := args.Get(0).(*speech.SpeechResult)
	return res, args.Error(1)
}

type mockSlides struct {
	mock.Mock
}

func (m *mockSlides) Generate(content string, autoGenerate bool) (*visuals.SlideSet, error) {
	args := m.Called(content, autoGenerate)
	set, _ := args.Get(0).(*visuals.SlideSet)
	return set, args.Error(1)
}

type mockCompiler struct {
	mock.Mock
}

func (m *mockCompiler) Compile(ctx context.Context, req video.CompileRequest) (*video.CompileResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*video.CompileResult)
	return res, args.Error(1)
}

func (m *mockCompiler) Thumbnail(slide []byte) ([]byte, error) {
	args := m.Called(slide)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, req publish.PublishRequest) (model.ArtifactURLs, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.ArtifactURLs), args.Error(1)
}

type countingScratch struct {
	mu    sync.Mutex
	calls map[string]int
}

func newCountingScratch() *countingScratch {
	return &countingScratch{calls: make(map[string]int)}
}

func (s *countingScratch) Cleanup(requestID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[requestID]++
	return 0, nil
}

func (s *countingScratch) count(requestID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[requestID]
}
