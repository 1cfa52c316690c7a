package pipeline

// Pipeline step names, in execution order. A job's current_step is always one
// of these or the "done" sentinel.
const (
	StepConfidence     = "confidence"
	StepRetry          = "retry"
	StepDiarization    = "diarization"
	StepLanguageDetect = "language_detect"
	StepTextProcessing = "text_processing"
	StepPIIFlagging    = "pii_flagging"
	StepSummary        = "summary"
	StepDone           = "done"
)

// Word is a single recognized word with its ASR probability.
type Word struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start,omitempty"`
	End         float64 `json:"end,omitempty"`
	Probability float64 `json:"probability"`
}

// PIIFlag marks a detected span of sensitive text. Offsets are rune offsets
// into the text the flagging step scanned.
type PIIFlag struct {
	Type      string `json:"type"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
	Text      string `json:"text"`
}

// Segment is one time-bounded span of transcript text. Steps mutate segments
// in place; later steps tolerate fields left unset by disabled earlier steps.
type Segment struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`

	// Raw ASR quality signals.
	AvgLogprob       float64 `json:"avg_logprob,omitempty"`
	CompressionRatio float64 `json:"compression_ratio,omitempty"`
	NoSpeechProb     float64 `json:"no_speech_prob,omitempty"`
	Words            []Word  `json:"words,omitempty"`

	// Set by the confidence step.
	LowConfidence      bool     `json:"low_confidence"`
	WordConfidenceAvg  *float64 `json:"word_confidence_avg,omitempty"`
	WordConfidenceMin  *float64 `json:"word_confidence_min,omitempty"`
	LowConfidenceWords []Word   `json:"low_confidence_words,omitempty"`

	// Set by the retry step.
	Retried    bool   `json:"retried,omitempty"`
	RetryModel string `json:"retry_model,omitempty"`

	// Set by the diarization step.
	SpeakerID string `json:"speaker_id,omitempty"`

	// Set by the language detection step.
	DetectedLanguage   string  `json:"detected_language,omitempty"`
	LanguageConfidence float64 `json:"language_confidence,omitempty"`
	LanguageSwitch     bool    `json:"language_switch,omitempty"`

	// Set by the text processing step.
	ProcessedText string   `json:"processed_text,omitempty"`
	SubtitleLines []string `json:"subtitle_lines,omitempty"`

	// Set by the PII flagging step.
	HasPII   bool      `json:"has_pii"`
	PIIFlags []PIIFlag `json:"pii_flags,omitempty"`
}

// ScanText is the text PII flagging and export operate on: processed text
// when the text processing step produced it, raw text otherwise.
func (s Segment) ScanText() string {
	if s.ProcessedText != "" {
		return s.ProcessedText
	}
	return s.Text
}

// Summary is the LLM-produced session summary with optional action items.
type Summary struct {
	Summary     string   `json:"summary"`
	ActionItems []string `json:"action_items"`
}

// SessionContext carries the session-level inputs a step may need.
type SessionContext struct {
	SessionID   string
	Language    string
	AudioBase64 string
	AudioPath   string
}

// Result is the merged artifact of a completed job.
type Result struct {
	Language       string    `json:"language"`
	ContextProfile string    `json:"context_profile,omitempty"`
	Segments       []Segment `json:"segments"`
	Summary        *Summary  `json:"summary,omitempty"`
}
