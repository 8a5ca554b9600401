package speech

import (
	"context"
	"strings"
)

const DefaultWordsPerMinute = 150.0

type WordTiming struct {
	Word      string
	StartTime float64
	EndTime   float64
}

// SpeechResult holds synthesized audio. Timings is empty when the provider
// cannot report word alignment.
type SpeechResult struct {
	Audio   []byte
	Timings []WordTiming
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (*SpeechResult, error)
}

func WordCount(text string) int {
	return len(strings.Fields(text))
}
