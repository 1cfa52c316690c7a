package pipeline

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Casing profiles for text processing.
const (
	CasingVerbatim         = "verbatim"
	CasingMeetingNotes     = "meeting_notes"
	CasingSubtitleFriendly = "subtitle_friendly"
)

// Subtitle layout limits for the subtitle_friendly profile.
const (
	subtitleMaxChars = 42
	subtitleMaxLines = 2
)

// TextOptions tune the text processing step.
type TextOptions struct {
	CasingProfile        string
	NormalizePunctuation bool
}

// Unicode punctuation mapped to its ASCII equivalent.
var punctuationReplacer = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"–", "-", // en dash
	"—", "-", // em dash
	"…", "...", // ellipsis
	" ", " ", // non-breaking space
)

var sentenceStartRe = regexp.MustCompile(`[.!?]\s+\p{L}`)

// ProcessText normalizes casing and punctuation per the configured profile
// and writes processed_text. Deterministic and idempotent: the output is
// always derived from the raw text, so re-running rewrites the same value.
// The verbatim profile performs no work at all.
func ProcessText(segments []Segment, opts TextOptions) []Segment {
	if opts.CasingProfile == CasingVerbatim || opts.CasingProfile == "" {
		return segments
	}

	for i := range segments {
		seg := &segments[i]
		text := seg.Text
		if opts.NormalizePunctuation {
			text = punctuationReplacer.Replace(text)
		}

		switch opts.CasingProfile {
		case CasingMeetingNotes:
			text = capitalizeSentences(text)
		case CasingSubtitleFriendly:
			text = capitalizeSentences(text)
			seg.SubtitleLines = splitSubtitleLines(text, subtitleMaxChars, subtitleMaxLines)
		}

		seg.ProcessedText = text
	}
	return segments
}

// capitalizeSentences upper-cases the first letter of the text and of every
// sentence following ". ", "! " or "? ".
func capitalizeSentences(text string) string {
	result := sentenceStartRe.ReplaceAllStringFunc(text, func(m string) string {
		r, size := utf8.DecodeLastRuneInString(m)
		return m[:len(m)-size] + string(unicode.ToUpper(r))
	})

	if r, size := utf8.DecodeRuneInString(result); size > 0 && unicode.IsLetter(r) {
		result = string(unicode.ToUpper(r)) + result[size:]
	}
	return result
}

// splitSubtitleLines wraps words greedily into at most maxLines lines of at
// most maxChars characters; overflow is appended to the last line.
func splitSubtitleLines(text string, maxChars, maxLines int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	lines := make([]string, 0, maxLines)
	current := ""
	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if utf8.RuneCountInString(candidate) <= maxChars || current == "" {
			current = candidate
			continue
		}
		if len(lines) == maxLines-1 {
			// Last allowed line: keep accumulating regardless of width.
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
