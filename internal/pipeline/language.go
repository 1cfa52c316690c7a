package pipeline

import (
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"

	"github.com/klangab/whisper-batch-worker/pkg/log"
)

// Segments shorter than this carry too little signal for text-based
// detection and inherit the session language.
const minDetectableRunes = 10

// DetectLanguages classifies the language of every segment and flags
// segments that switch away from the session's dominant language. Pure; a
// segment that cannot be classified inherits the session language with zero
// confidence.
func DetectLanguages(segments []Segment, sessionLanguage string) []Segment {
	sessionISO := canonicalISO(sessionLanguage)

	switches := 0
	for i := range segments {
		seg := &segments[i]
		text := strings.TrimSpace(seg.Text)

		if utf8.RuneCountInString(text) < minDetectableRunes {
			seg.DetectedLanguage = sessionISO
			seg.LanguageConfidence = 1.0
			seg.LanguageSwitch = false
			continue
		}

		info := whatlanggo.Detect(text)
		iso := info.Lang.Iso6391()
		if iso == "" {
			seg.DetectedLanguage = sessionISO
			seg.LanguageConfidence = 0.0
			seg.LanguageSwitch = false
			continue
		}

		seg.DetectedLanguage = iso
		seg.LanguageConfidence = round4(info.Confidence)
		seg.LanguageSwitch = iso != sessionISO
		if seg.LanguageSwitch {
			switches++
		}
	}

	if switches > 0 {
		log.Info("Language switches detected: %d/%d segments", switches, len(segments))
	}
	return segments
}

// canonicalISO reduces a language identifier ("sv", "sv-SE", "swe") to its
// two-letter base code where one exists.
func canonicalISO(lang string) string {
	if strings.TrimSpace(lang) == "" {
		return "sv"
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return strings.ToLower(lang)
	}
	base, _ := tag.Base()
	return base.String()
}
