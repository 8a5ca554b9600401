package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"strings"
)

const (
	wavSampleRate    = 22050
	wavChannels      = 1
	wavBitsPerSample = 16
	wavFormatPCM     = 1
)

// StubProvider produces silence sized to the text. It is used when no
// synthesis API key is configured.
type StubProvider struct {
	wordsPerMinute float64
}

func NewStubProvider(wordsPerMinute float64) *StubProvider {
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}
	return &StubProvider{wordsPerMinute: wordsPerMinute}
}

func (s *StubProvider) Synthesize(ctx context.Context, text, voiceID string) (*SpeechResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("stub: text is empty")
	}
	return &SpeechResult{Audio: generateSilentWAV(s.estimateDuration(text))}, nil
}

func (s *StubProvider) estimateDuration(text string) float64 {
	return float64(WordCount(text)) / s.wordsPerMinute * 60.0
}

// wavHeader is the canonical 44-byte PCM RIFF header.
type wavHeader struct {
	RIFF          [4]byte
	ChunkSize     uint32
	WAVE          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

func generateSilentWAV(seconds float64) []byte {
	const blockAlign = wavChannels * wavBitsPerSample / 8

	dataSize := uint32(seconds*wavSampleRate) * blockAlign
	header := wavHeader{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   wavFormatPCM,
		Channels:      wavChannels,
		SampleRate:    wavSampleRate,
		ByteRate:      wavSampleRate * blockAlign,
		BlockAlign:    blockAlign,
		BitsPerSample: wavBitsPerSample,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      dataSize,
	}

	var buf bytes.Buffer
	buf.Grow(binary.Size(header) + int(dataSize))
	_ = binary.Write(&buf, binary.LittleEndian, header)
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}
