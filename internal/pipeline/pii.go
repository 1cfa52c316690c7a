package pipeline

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// PII flag types.
const (
	PIIPersonnummer = "personnummer"
	PIIEmail        = "email"
	PIITelefon      = "telefon"
	PIIProfanity    = "profanity"
)

// Regex patterns for Swedish PII.
var piiPatterns = []struct {
	piiType string
	pattern *regexp.Regexp
}{
	{PIIPersonnummer, regexp.MustCompile(`\d{6,8}[-\s]?\d{4}`)},
	{PIIEmail, regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{PIITelefon, regexp.MustCompile(`(?:\+46|0)\s*[1-9]\d{0,2}[\s-]?\d{2,3}[\s-]?\d{2}[\s-]?\d{2}`)},
}

// Common Swedish profanity.
var profanityWords = []string{
	"fan", "jävla", "jävlar", "helvete", "skit", "skita",
	"förbannad", "förbannade", "satan", "satans",
	"jävel", "jävligt", "faen", "fy fan",
}

var profanityPattern = buildProfanityPattern()

func buildProfanityPattern() *regexp.Regexp {
	escaped := make([]string, 0, len(profanityWords))
	for _, w := range profanityWords {
		escaped = append(escaped, regexp.QuoteMeta(w))
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
}

// FlagPII scans every segment for sensitive patterns and profanity. Flags
// only, never masks. Offsets are rune offsets into the scanned text, which is
// processed_text when present, raw text otherwise. Pure, no I/O.
func FlagPII(segments []Segment) []Segment {
	for i := range segments {
		seg := &segments[i]
		text := seg.ScanText()

		flags := make([]PIIFlag, 0)
		for _, entry := range piiPatterns {
			flags = append(flags, findFlags(text, entry.piiType, entry.pattern)...)
		}
		flags = append(flags, findFlags(text, PIIProfanity, profanityPattern)...)

		seg.PIIFlags = flags
		seg.HasPII = len(flags) > 0
	}
	return segments
}

func findFlags(text, piiType string, pattern *regexp.Regexp) []PIIFlag {
	var flags []PIIFlag
	for _, loc := range pattern.FindAllStringIndex(text, -1) {
		flags = append(flags, PIIFlag{
			Type:      piiType,
			StartChar: utf8.RuneCountInString(text[:loc[0]]),
			EndChar:   utf8.RuneCountInString(text[:loc[1]]),
			Text:      text[loc[0]:loc[1]],
		})
	}
	return flags
}
