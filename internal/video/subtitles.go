package video

import (
	"fmt"
	"math"
	"strings"

	"script2vid/internal/speech"
)

const (
	DefaultWordsPerCue    = 10
	DefaultWordsPerSecond = 2.5
)

type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

type SubtitleAligner struct {
	wordsPerCue    int
	wordsPerSecond float64
}

type SubtitleOptions struct {
	WordsPerCue    int
	WordsPerSecond float64
}

func NewSubtitleAligner(opts SubtitleOptions) *SubtitleAligner {
	wordsPerCue := opts.WordsPerCue
	if wordsPerCue <= 0 {
		wordsPerCue = DefaultWordsPerCue
	}
	wordsPerSecond := opts.WordsPerSecond
	if wordsPerSecond <= 0 {
		wordsPerSecond = DefaultWordsPerSecond
	}
	return &SubtitleAligner{wordsPerCue: wordsPerCue, wordsPerSecond: wordsPerSecond}
}

// Align estimates cue timing from a fixed speaking rate.
func (a *SubtitleAligner) Align(content string) []Cue {
	words := strings.Fields(content)
	if len(words) == 0 {
		return nil
	}

	total := float64(len(words)) / a.wordsPerSecond
	cues := make([]Cue, 0, (len(words)+a.wordsPerCue-1)/a.wordsPerCue)

	for start := 0; start < len(words); start += a.wordsPerCue {
		end := min(start+a.wordsPerCue, len(words))
		cues = append(cues, Cue{
			Index: len(cues) + 1,
			Start: float64(start) / a.wordsPerSecond,
			End:   math.Min(float64(start+a.wordsPerCue)/a.wordsPerSecond, total),
			Text:  strings.Join(words[start:end], " "),
		})
	}

	return cues
}

// AlignFromTimings groups synthesized word timings into cues of the same size
// as Align.
func (a *SubtitleAligner) AlignFromTimings(timings []speech.WordTiming) []Cue {
	if len(timings) == 0 {
		return nil
	}

	cues := make([]Cue, 0, (len(timings)+a.wordsPerCue-1)/a.wordsPerCue)
	lastEnd := 0.0

	for start := 0; start < len(timings); start += a.wordsPerCue {
		end := min(start+a.wordsPerCue, len(timings))
		chunk := timings[start:end]

		words := make([]string, len(chunk))
		for i, t := range chunk {
			words[i] = t.Word
		}

		cueStart := math.Max(chunk[0].StartTime, lastEnd)
		cueEnd := math.Max(chunk[len(chunk)-1].EndTime, cueStart)
		lastEnd = cueEnd

		cues = append(cues, Cue{
			Index: len(cues) + 1,
			Start: cueStart,
			End:   cueEnd,
			Text:  strings.Join(words, " "),
		})
	}

	return cues
}

func FormatSRT(cues []Cue) string {
	var sb strings.Builder
	for i, cue := range cues {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n", cue.Index, FormatSRTTime(cue.Start), FormatSRTTime(cue.End), cue.Text)
	}
	return sb.String()
}

func FormatSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int64(math.Round(seconds * 1000))
	hours := totalMillis / 3_600_000
	minutes := (totalMillis % 3_600_000) / 60_000
	secs := (totalMillis % 60_000) / 1000
	millis := totalMillis % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
