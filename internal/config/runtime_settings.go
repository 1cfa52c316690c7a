package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const DefaultRuntimeSettingsFile = "/app/config/settings.json"

// RuntimeSettings are the endpoint knobs operators may change without a
// restart. They apply to jobs submitted after the update.
type RuntimeSettings struct {
	WhisperAPIURL string `json:"whisper_api_url"`
	LLMURL        string `json:"llm_url"`
	LLMModel      string `json:"llm_model"`
}

func RuntimeSettingsFilePath() string {
	return getEnvString("SETTINGS_FILE", DefaultRuntimeSettingsFile)
}

func (s RuntimeSettings) Validate() error {
	if strings.TrimSpace(s.WhisperAPIURL) == "" {
		return fmt.Errorf("whisper_api_url is required")
	}
	if _, err := url.Parse(s.WhisperAPIURL); err != nil {
		return fmt.Errorf("invalid whisper_api_url: %w", err)
	}
	if strings.TrimSpace(s.LLMURL) != "" {
		if _, err := url.Parse(s.LLMURL); err != nil {
			return fmt.Errorf("invalid llm_url: %w", err)
		}
	}
	return nil
}

func (c *Config) RuntimeSettings() RuntimeSettings {
	return RuntimeSettings{
		WhisperAPIURL: c.ASR.BaseURL,
		LLMURL:        c.LLM.BaseURL,
		LLMModel:      c.LLM.Model,
	}
}

func WithRuntimeSettings(settings RuntimeSettings) Option {
	return func(c *Config) {
		if strings.TrimSpace(settings.WhisperAPIURL) != "" {
			c.ASR.BaseURL = settings.WhisperAPIURL
		}
		if strings.TrimSpace(settings.LLMURL) != "" {
			c.LLM.BaseURL = settings.LLMURL
		}
		if strings.TrimSpace(settings.LLMModel) != "" {
			c.LLM.Model = settings.LLMModel
		}
	}
}

// LoadRuntimeSettingsFile reads persisted settings overrides. A missing file
// is the normal first-boot state and yields zero settings without error.
func LoadRuntimeSettingsFile(path string) (RuntimeSettings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return RuntimeSettings{}, nil
	}
	if err != nil {
		return RuntimeSettings{}, err
	}
	var settings RuntimeSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return RuntimeSettings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	return settings, nil
}

func WriteRuntimeSettingsFile(path string, settings RuntimeSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	content, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	content = append(content, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

type RuntimeSettingsStore struct {
	path string

	mu      sync.RWMutex
	current RuntimeSettings
}

func NewRuntimeSettingsStore(path string, initial RuntimeSettings) (*RuntimeSettingsStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("settings file path is required")
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &RuntimeSettingsStore{
		path:    path,
		current: initial,
	}, nil
}

func (s *RuntimeSettingsStore) GetRuntimeSettings() (RuntimeSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

func (s *RuntimeSettingsStore) UpdateRuntimeSettings(next RuntimeSettings) (RuntimeSettings, error) {
	if err := next.Validate(); err != nil {
		return RuntimeSettings{}, err
	}
	if err := WriteRuntimeSettingsFile(s.path, next); err != nil {
		return RuntimeSettings{}, err
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return next, nil
}
