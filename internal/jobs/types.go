package jobs

import (
	"encoding/json"
	"time"

	"github.com/klangab/whisper-batch-worker/internal/pipeline"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether a job in this status will never change again.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SubmitRequest is the payload accepted for a new processing job. Either
// Segments are passed inline or SessionID points at a stored session on disk.
type SubmitRequest struct {
	SessionID      string             `json:"session_id,omitempty"`
	ContextProfile string             `json:"context_profile,omitempty"`
	Language       string             `json:"language,omitempty"`
	Segments       []pipeline.Segment `json:"segments,omitempty"`
	AudioBase64    string             `json:"audio_base64,omitempty"`
	AudioPath      string             `json:"audio_path,omitempty"`
}

// Job is a single post-processing run over one session's segments.
type Job struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"session_id,omitempty"`
	ContextProfile string          `json:"context_profile"`
	Status         Status          `json:"status"`
	CurrentStep    string          `json:"current_step,omitempty"`
	Error          string          `json:"error,omitempty"`
	Input          json.RawMessage `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
