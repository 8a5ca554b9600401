package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClient(t *testing.T) {
	client := newTestClient(Config{
		APIKey: "test-key",
		Speed:  1.0,
	})

	if client.apiKey != "test-key" {
		t.Errorf("apiKey = %q, want test-key", client.apiKey)
	}
	if client.model != defaultModel {
		t.Errorf("model = %q, want %q", client.model, defaultModel)
	}
	if client.baseURL != baseURL {
		t.Errorf("baseURL = %q, want %q", client.baseURL, baseURL)
	}
}

func mockTimestampResponse(audio []byte) []byte {
	resp := timestampResponse{
		AudioBase64: base64.StdEncoding.EncodeToString(audio),
		Alignment: &alignment{
			Characters:          []string{"H", "e", "l", "l", "o", " ", "w", "o", "r", "l", "d"},
			CharacterStartTimes: []float64{0.0, 0.05, 0.1, 0.15, 0.2, 0.25, 0.3, 0.35, 0.4, 0.45, 0.5},
			CharacterEndTimes:   []float64{0.05, 0.1, 0.15, 0.2, 0.25, 0.3, 0.35, 0.4, 0.45, 0.5, 0.55},
		},
	}
	data, _ := json.Marshal(resp)
	return data
}

func TestSynthesize(t *testing.T) {
	fakeAudio := []byte("fake audio data")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Error("missing or incorrect API key header")
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Error("missing Content-Type header")
		}
		if r.URL.Path != "/text-to-speech/test-voice/with-timestamps" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("output_format") != outputFormat {
			t.Errorf("output_format = %q, want %q", r.URL.Query().Get("output_format"), outputFormat)
		}

		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		_ = json.Unmarshal(body, &payload)
		if payload["text"] != "Hello world" {
			t.Errorf("text = %v, want Hello world", payload["text"])
		}
		if payload["model_id"] != defaultModel {
			t.Errorf("model_id = %v, want %s", payload["model_id"], defaultModel)
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(mockTimestampResponse(fakeAudio))
	}))
	defer server.Close()

	client := newTestClient(Config{
		APIKey:     "test-key",
		Speed:      1.0,
		Stability:  0.5,
		Similarity: 0.75,
	}, withBaseURL(server.URL), withHTTPClient(server.Client()))

	result, err := client.Synthesize(context.Background(), "Hello world", "test-voice")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	if string(result.Audio) != "fake audio data" {
		t.Errorf("audio = %q, want 'fake audio data'", string(result.Audio))
	}

	if len(result.Timings) != 2 {
		t.Fatalf("got %d timings, want 2 (Hello, world)", len(result.Timings))
	}
	if result.Timings[0].Word != "Hello" || result.Timings[1].Word != "world" {
		t.Errorf("words = %q, %q", result.Timings[0].Word, result.Timings[1].Word)
	}
	if result.Timings[0].StartTime != 0.0 {
		t.Errorf("first word start = %f, want 0.0", result.Timings[0].StartTime)
	}
	if result.Timings[1].EndTime != 0.55 {
		t.Errorf("last word end = %f, want 0.55", result.Timings[1].EndTime)
	}
}

func TestSynthesizeProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "invalid api key"}`))
	}))
	defer server.Close()

	client := newTestClient(Config{APIKey: "bad-key"}, withBaseURL(server.URL), withHTTPClient(server.Client()))

	_, err := client.Synthesize(context.Background(), "Hello", "test-voice")
	if err == nil {
		t.Fatal("expected error for unauthorized request")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error %q should carry the provider status", err)
	}
	if !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("error %q should carry the provider message", err)
	}
}

func TestSynthesizeNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(Config{APIKey: "k"}, withBaseURL(url))

	if _, err := client.Synthesize(context.Background(), "Hello", "v"); err == nil {
		t.Error("expected error when the provider is unreachable")
	}
}

func TestSynthesizeValidatesInput(t *testing.T) {
	client := newTestClient(Config{APIKey: "k"})

	tests := []struct {
		name    string
		text    string
		voiceID string
	}{
		{name: "emptyText", text: " ", voiceID: "v"},
		{name: "emptyVoice", text: "Hello", voiceID: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := client.Synthesize(context.Background(), tt.text, tt.voiceID); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestParseTimingsNoAlignment(t *testing.T) {
	if timings := parseTimings("Hello world", nil); timings != nil {
		t.Errorf("got %d timings, want nil", len(timings))
	}
}

func TestParseTimingsPartialAlignment(t *testing.T) {
	align := &alignment{
		Characters:          []string{"H", "i"},
		CharacterStartTimes: []float64{0, 0.1},
		CharacterEndTimes:   []float64{0.1, 0.2},
	}
	if timings := parseTimings("Hi there", align); timings != nil {
		t.Errorf("partial alignment should yield nil, got %v", timings)
	}
}

func newTestClient(cfg Config, opts ...option) *Client {
	return newClient(cfg, opts...)
}
