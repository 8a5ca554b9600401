package app

import (
	"fmt"
	"math"

	"script2vid/internal/video"
)

// formatDuration renders whole seconds as M:SS. Minutes are not capped at 59.
func formatDuration(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(math.Round(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func estimateSeconds(words int) float64 {
	return float64(words) / video.DefaultWordsPerSecond
}
