package llm

import (
	"fmt"
	"strings"
)

// Summarization runs at low temperature for stable, factual output.
const defaultTemperature = 0.3

// Config holds the configuration for the LLM client. Works against any
// OpenAI-compatible endpoint (Ollama, vLLM, hosted APIs).
type Config struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("llm base url is required")
	}
	return nil
}

func (c *Config) temperature() float64 {
	if c.Temperature > 0 {
		return c.Temperature
	}
	return defaultTemperature
}

func (c *Config) model() string {
	if strings.TrimSpace(c.Model) == "" {
		return "default"
	}
	return c.Model
}
