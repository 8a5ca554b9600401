package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"script2vid/internal/speech"
)

const (
	baseURL      = "https://api.elevenlabs.io/v1"
	defaultModel = "eleven_multilingual_v2"
	outputFormat = "mp3_44100_128"
)

type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
	speed      float64
	stability  float64
	similarity float64
}

type Config struct {
	APIKey     string
	Model      string
	Speed      float64
	Stability  float64
	Similarity float64
	// Timeout of zero means no client-side deadline.
	Timeout time.Duration
}

type option func(*Client)

type timestampResponse struct {
	AudioBase64 string     `json:"audio_base64"`
	Alignment   *alignment `json:"alignment"`
}

type alignment struct {
	Characters          []string  `json:"characters"`
	CharacterStartTimes []float64 `json:"character_start_times_seconds"`
	CharacterEndTimes   []float64 `json:"character_end_times_seconds"`
}

func withBaseURL(url string) option {
	return func(c *Client) {
		c.baseURL = url
	}
}

func withHTTPClient(client *http.Client) option {
	return func(c *Client) {
		c.httpClient = client
	}
}

func NewClient(cfg Config) *Client {
	return newClient(cfg)
}

func newClient(cfg Config, opts ...option) *Client {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	c := &Client{
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    baseURL,
		model:      model,
		speed:      cfg.Speed,
		stability:  cfg.Stability,
		similarity: cfg.Similarity,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Synthesize(ctx context.Context, text, voiceID string) (*speech.SpeechResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("elevenlabs: text is empty")
	}
	if voiceID == "" {
		return nil, errors.New("elevenlabs: voice id is empty")
	}

	req, err := c.buildRequest(ctx, c.buildURL(voiceID), text)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("elevenlabs: %s - %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return parseResponse(text, body)
}

func (c *Client) buildURL(voiceID string) string {
	return fmt.Sprintf("%s/text-to-speech/%s/with-timestamps?output_format=%s",
		strings.TrimRight(c.baseURL, "/"), url.PathEscape(voiceID), outputFormat)
}

func (c *Client) buildRequest(ctx context.Context, url, text string) (*http.Request, error) {
	settings := map[string]any{
		"stability":        c.stability,
		"similarity_boost": c.similarity,
	}
	if c.speed > 0 {
		settings["speed"] = c.speed
	}
	payload := map[string]any{
		"text":           text,
		"model_id":       c.model,
		"voice_settings": settings,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	return req, nil
}

func parseResponse(text string, body []byte) (*speech.SpeechResult, error) {
	var tsResp timestampResponse
	if err := json.Unmarshal(body, &tsResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(tsResp.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("elevenlabs: response contained no audio")
	}

	return &speech.SpeechResult{
		Audio:   audio,
		Timings: parseTimings(text, tsResp.Alignment),
	}, nil
}

// parseTimings turns each whitespace-delimited run of aligned characters
// into the matching word of text. A partial or missing alignment yields nil
// so callers fall back to estimated timing.
func parseTimings(text string, align *alignment) []speech.WordTiming {
	if align == nil {
		return nil
	}
	words := strings.Fields(text)
	n := min(len(align.Characters), len(align.CharacterStartTimes), len(align.CharacterEndTimes))
	if n == 0 || len(words) == 0 {
		return nil
	}

	timings := make([]speech.WordTiming, 0, len(words))
	first := -1
	for i := 0; i <= n; i++ {
		if i < n && !isSpace(align.Characters[i]) {
			if first < 0 {
				first = i
			}
			continue
		}
		if first < 0 {
			continue
		}
		if len(timings) == len(words) {
			return nil
		}
		timings = append(timings, speech.WordTiming{
			Word:      words[len(timings)],
			StartTime: align.CharacterStartTimes[first],
			EndTime:   align.CharacterEndTimes[i-1],
		})
		first = -1
	}

	if len(timings) != len(words) {
		return nil
	}
	return timings
}

func isSpace(s string) bool {
	return strings.TrimSpace(s) == ""
}
