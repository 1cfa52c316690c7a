package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all batch worker configuration.
// Loaded once at process start from environment variables; immutable after.
//
// Environment Variables:
// Feature flags:
// - FEATURE_RETRY: retry low-confidence segments (default: true)
// - FEATURE_RETRY_LARGE: escalate retry to the large model (default: false)
// - FEATURE_LANG_DETECT: per-segment language detection (default: true)
// - FEATURE_TEXT_PROCESSING: casing/punctuation normalization (default: true)
// - FEATURE_PII: PII flagging (default: true)
// - FEATURE_DIARIZATION: speaker diarization (default: false)
// - FEATURE_SUMMARY: LLM summary (default: false)
//
// External endpoints:
// - WHISPER_API_URL: ASR backend base URL (default: http://localhost:8123)
// - LLM_URL: OpenAI-compatible LLM base URL (default: empty)
// - LLM_MODEL: model name for summarization (default: empty)
//
// HTTP client:
// - HTTP_TIMEOUT: per-attempt timeout in seconds (default: 60)
// - HTTP_RETRIES: attempts per external call (default: 3)
// - HTTP_RETRY_BACKOFF: base backoff in seconds, doubling per attempt (default: 1)
//
// Worker:
// - MAX_CONCURRENT_JOBS: pipeline worker pool size (default: 1)
// - RETRY_BEAM_SIZE: beam width for retry transcription (default: 10)
// - CASING_PROFILE: verbatim | meeting_notes | subtitle_friendly (default: verbatim)
// - NORMALIZE_PUNCTUATION: unicode punctuation normalization (default: true)
//
// Storage:
// - JOBS_DB_PATH: SQLite job store path (default: jobs.db)
// - SESSIONS_DIR: saved session directory (default: /app/transcriptions/sessions)
//
// Server:
// - LISTEN_ADDR: HTTP listen address (default: :8400)
// - SWEEP_CRON: cron expression for the session sweeper (default: empty = disabled)
type Config struct {
	Server   ServerConfig   `json:"server"`
	ASR      ASRConfig      `json:"asr"`
	LLM      LLMConfig      `json:"llm"`
	HTTP     HTTPConfig     `json:"http"`
	Pipeline PipelineConfig `json:"pipeline"`
	Store    StoreConfig    `json:"store"`
	Sessions SessionsConfig `json:"sessions"`
	Sweep    SweepConfig    `json:"sweep"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	ListenAddr string `json:"listen_addr"`
}

// ASRConfig holds the configuration for the external ASR backend.
type ASRConfig struct {
	BaseURL string `json:"base_url"`
}

// LLMConfig holds the configuration for the OpenAI-compatible LLM endpoint.
type LLMConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

// HTTPConfig bounds every outbound call made by the pipeline.
type HTTPConfig struct {
	Timeout time.Duration `json:"timeout"`
	Retries int           `json:"retries"`
	Backoff time.Duration `json:"backoff"`
}

// PipelineConfig carries the step feature flags and step tuning knobs.
// Threaded explicitly into the runner and each step; steps never read the
// environment themselves.
type PipelineConfig struct {
	RetryEnabled          bool   `json:"retry"`
	RetryBeamSize         int    `json:"retry_beam_size"`
	RetryWithLarge        bool   `json:"retry_large_model"`
	LanguageDetectEnabled bool   `json:"language_detect"`
	TextProcessingEnabled bool   `json:"text_processing"`
	CasingProfile         string `json:"casing_profile"`
	NormalizePunctuation  bool   `json:"normalize_punctuation"`
	PIIFlaggingEnabled    bool   `json:"pii_flagging"`
	DiarizationEnabled    bool   `json:"diarization"`
	SummaryEnabled        bool   `json:"summary"`
	MaxConcurrentJobs     int    `json:"max_concurrent_jobs"`
}

// StoreConfig holds the job store location.
type StoreConfig struct {
	DBPath string `json:"db_path"`
}

// SessionsConfig holds the saved session directory.
type SessionsConfig struct {
	Dir string `json:"dir"`
}

// SweepConfig holds the optional session sweeper schedule.
type SweepConfig struct {
	CronExpr string `json:"cron_expr"`
}

// CasingProfiles are the recognized text-processing profiles.
var CasingProfiles = []string{"verbatim", "meeting_notes", "subtitle_friendly"}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			ListenAddr: getEnvString("LISTEN_ADDR", ":8400"),
		},
		ASR: ASRConfig{
			BaseURL: getEnvString("WHISPER_API_URL", "http://localhost:8123"),
		},
		LLM: LLMConfig{
			BaseURL: getEnvString("LLM_URL", ""),
			Model:   getEnvString("LLM_MODEL", ""),
			APIKey:  getEnvString("LLM_API_KEY", ""),
		},
		HTTP: HTTPConfig{
			Timeout: secondsDuration(getEnvFloat("HTTP_TIMEOUT", 60)),
			Retries: getEnvInt("HTTP_RETRIES", 3),
			Backoff: secondsDuration(getEnvFloat("HTTP_RETRY_BACKOFF", 1)),
		},
		Pipeline: PipelineConfig{
			RetryEnabled:          getEnvBool("FEATURE_RETRY", true),
			RetryBeamSize:         getEnvInt("RETRY_BEAM_SIZE", 10),
			RetryWithLarge:        getEnvBool("FEATURE_RETRY_LARGE", false),
			LanguageDetectEnabled: getEnvBool("FEATURE_LANG_DETECT", true),
			TextProcessingEnabled: getEnvBool("FEATURE_TEXT_PROCESSING", true),
			CasingProfile:         getEnvString("CASING_PROFILE", "verbatim"),
			NormalizePunctuation:  getEnvBool("NORMALIZE_PUNCTUATION", true),
			PIIFlaggingEnabled:    getEnvBool("FEATURE_PII", true),
			DiarizationEnabled:    getEnvBool("FEATURE_DIARIZATION", false),
			SummaryEnabled:        getEnvBool("FEATURE_SUMMARY", false),
			MaxConcurrentJobs:     getEnvInt("MAX_CONCURRENT_JOBS", 1),
		},
		Store: StoreConfig{
			DBPath: getEnvString("JOBS_DB_PATH", "jobs.db"),
		},
		Sessions: SessionsConfig{
			Dir: getEnvString("SESSIONS_DIR", "/app/transcriptions/sessions"),
		},
		Sweep: SweepConfig{
			CronExpr: getEnvString("SWEEP_CRON", ""),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if strings.TrimSpace(c.ASR.BaseURL) == "" {
		return fmt.Errorf("WHISPER_API_URL is required")
	}
	if c.Pipeline.MaxConcurrentJobs < 1 {
		return fmt.Errorf("MAX_CONCURRENT_JOBS must be at least 1")
	}
	if c.HTTP.Retries < 1 {
		return fmt.Errorf("HTTP_RETRIES must be at least 1")
	}
	if !validCasingProfile(c.Pipeline.CasingProfile) {
		return fmt.Errorf("unknown CASING_PROFILE %q", c.Pipeline.CasingProfile)
	}
	if c.Pipeline.SummaryEnabled && strings.TrimSpace(c.LLM.BaseURL) == "" {
		return fmt.Errorf("LLM_URL is required when FEATURE_SUMMARY is enabled")
	}
	return nil
}

func validCasingProfile(name string) bool {
	for _, p := range CasingProfiles {
		if p == name {
			return true
		}
	}
	return false
}

func secondsDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment variables with default
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}
