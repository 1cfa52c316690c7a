// Package subtitle renders processed transcript segments as SRT.
package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klangab/whisper-batch-worker/internal/pipeline"
)

// Render writes segments as an SRT document. Pre-wrapped subtitle lines are
// used when the text-processing step produced them, otherwise the processed
// or raw segment text.
func Render(w io.Writer, segments []pipeline.Segment) error {
	writer := bufio.NewWriter(w)

	index := 0
	for _, segment := range segments {
		text := cueText(segment)
		if text == "" {
			continue
		}
		index++

		// write index
		fmt.Fprintf(writer, "%d\n", index)

		// write time
		start := formatDuration(secondsDuration(segment.Start))
		end := formatDuration(secondsDuration(segment.End))
		fmt.Fprintf(writer, "%s --> %s\n", start, end)

		fmt.Fprintf(writer, "%s\n\n", text)
	}

	return writer.Flush()
}

func cueText(segment pipeline.Segment) string {
	var text string
	switch {
	case len(segment.SubtitleLines) > 0:
		text = strings.Join(segment.SubtitleLines, "\n")
	case segment.ProcessedText != "":
		text = segment.ProcessedText
	default:
		text = strings.TrimSpace(segment.Text)
	}
	if text == "" {
		return ""
	}
	if segment.SpeakerID != "" && segment.SpeakerID != pipeline.UnknownSpeaker {
		text = fmt.Sprintf("[%s] %s", segment.SpeakerID, text)
	}
	return text
}

func secondsDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// formatDuration formats time.Duration to SRT time format
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	milliseconds := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, milliseconds)
}
