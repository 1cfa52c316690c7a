// Package asr talks to the external Whisper-style speech backend. Only two
// of its endpoints matter to the batch worker: segment re-transcription and
// speaker diarization.
package asr

import (
	"context"
	"strings"
	"sync"

	"github.com/klangab/whisper-batch-worker/internal/retryhttp"
)

// Swedish Whisper models used for retry transcription.
const (
	ModelMedium = "KBLab/kb-whisper-medium"
	ModelLarge  = "KBLab/kb-whisper-large"
)

// RetryRequest re-transcribes one time window of the session audio.
type RetryRequest struct {
	AudioBase64 string  `json:"audio_base64,omitempty"`
	AudioPath   string  `json:"audio_path,omitempty"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	BeamSize    int     `json:"beam_size"`
	Model       string  `json:"model"`
	Language    string  `json:"language"`
}

// RetrySegment is a candidate transcript returned by the retry endpoint.
type RetrySegment struct {
	Text             string  `json:"text"`
	AvgLogprob       float64 `json:"avg_logprob"`
	CompressionRatio float64 `json:"compression_ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
	LowConfidence    bool    `json:"low_confidence"`
}

// RetryResponse wraps the retry endpoint response.
type RetryResponse struct {
	Segments []RetrySegment `json:"segments"`
}

// SpeakerTurn is one speaker-attributed time interval from diarization.
type SpeakerTurn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

type diarizeRequest struct {
	AudioPath string `json:"audio_path"`
}

type diarizeResponse struct {
	Turns []SpeakerTurn `json:"turns"`
}

// Client calls the ASR backend through the bounded-retry HTTP client.
// Safe for concurrent use; the base URL may be swapped at runtime.
type Client struct {
	httpClient *retryhttp.Client

	mu      sync.RWMutex
	baseURL string
}

func NewClient(baseURL string, httpClient *retryhttp.Client) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// SetBaseURL applies a runtime settings update. Affects subsequent calls only.
func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	c.baseURL = strings.TrimRight(baseURL, "/")
	c.mu.Unlock()
}

func (c *Client) url(path string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL + path
}

// RetryTranscribe asks the backend to re-transcribe one segment window with a
// higher beam width or a different model.
func (c *Client) RetryTranscribe(ctx context.Context, req RetryRequest) (*RetryResponse, error) {
	var resp RetryResponse
	if err := c.httpClient.PostJSON(ctx, c.url("/transcribe/retry"), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Diarize runs speaker separation over the session audio and returns the
// speaker turns.
func (c *Client) Diarize(ctx context.Context, audioPath string) ([]SpeakerTurn, error) {
	var resp diarizeResponse
	if err := c.httpClient.PostJSON(ctx, c.url("/diarize"), diarizeRequest{AudioPath: audioPath}, &resp); err != nil {
		return nil, err
	}
	return resp.Turns, nil
}
