package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klangab/whisper-batch-worker/internal/config"
	"github.com/klangab/whisper-batch-worker/internal/jobs"
	"github.com/klangab/whisper-batch-worker/internal/persistence"
	"github.com/klangab/whisper-batch-worker/internal/pipeline"
)

type memoryResults struct {
	mu      sync.Mutex
	results map[string]*pipeline.Result
}

func newMemoryResults() *memoryResults {
	return &memoryResults{results: make(map[string]*pipeline.Result)}
}

func (m *memoryResults) GetResult(_ context.Context, jobID string) (*pipeline.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result, ok := m.results[jobID]
	if !ok {
		return nil, persistence.ErrNoResult
	}
	return result, nil
}

func (m *memoryResults) put(jobID string, result *pipeline.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[jobID] = result
}

func getJSON(t *testing.T, server *httptest.Server, path string, status int, out any) {
	t.Helper()
	resp, err := http.Get(server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, status, resp.StatusCode)
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
}

func TestServer_Health(t *testing.T) {
	queue := jobs.NewQueue(1, nil)
	server := httptest.NewServer(NewServer(queue, newMemoryResults()).Handler())
	defer server.Close()

	var body map[string]any
	getJSON(t, server, "/health", http.StatusOK, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "batch-worker", body["service"])
}

func TestServer_SubmitAndPollJob(t *testing.T) {
	queue := jobs.NewQueue(1, nil)
	server := httptest.NewServer(NewServer(queue, newMemoryResults()).Handler())
	defer server.Close()

	payload := `{"segments":[{"start":0,"end":2,"text":"Hej och välkomna."}],"language":"sv","context_profile":"meeting"}`
	resp, err := http.Post(server.URL+"/jobs", "application/json", bytes.NewBufferString(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var submitted submitJobResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&submitted))
	require.NotEmpty(t, submitted.JobID)
	assert.Equal(t, jobs.StatusQueued, submitted.Status)

	var job jobs.Job
	getJSON(t, server, "/jobs/"+submitted.JobID, http.StatusOK, &job)
	assert.Equal(t, submitted.JobID, job.ID)
	assert.Equal(t, "meeting", job.ContextProfile)

	var list []jobs.Job
	getJSON(t, server, "/jobs", http.StatusOK, &list)
	require.Len(t, list, 1)
}

func TestServer_SubmitJobValidation(t *testing.T) {
	queue := jobs.NewQueue(1, nil)
	server := httptest.NewServer(NewServer(queue, newMemoryResults()).Handler())
	defer server.Close()

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"no segments or session", `{"language":"sv"}`, http.StatusBadRequest},
		{"unknown profile", `{"segments":[{"text":"a"}],"context_profile":"podcast"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(server.URL+"/jobs", "application/json", bytes.NewBufferString(tc.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestServer_ResultLifecycle(t *testing.T) {
	queue := jobs.NewQueue(1, nil)
	results := newMemoryResults()
	server := httptest.NewServer(NewServer(queue, results).Handler())
	defer server.Close()

	// Queue not started: job stays queued, result is a conflict.
	job := queue.Enqueue("", "", []byte(`{}`))
	var conflict map[string]any
	getJSON(t, server, "/jobs/"+job.ID+"/result", http.StatusConflict, &conflict)
	assert.Equal(t, "queued", conflict["status"])

	queue.Start(func(ctx context.Context, j *jobs.Job) error {
		results.put(j.ID, &pipeline.Result{
			Language: "sv",
			Segments: []pipeline.Segment{{Start: 0, End: 2, Text: "Hej och välkomna."}},
		})
		return queue.SetCurrentStep(ctx, j.ID, "done")
	})
	defer queue.Stop()

	require.Eventually(t, func() bool {
		got, ok := queue.Get(job.ID)
		return ok && got.Status == jobs.StatusCompleted
	}, time.Second, 10*time.Millisecond)

	var polled map[string]any
	getJSON(t, server, "/jobs/"+job.ID, http.StatusOK, &polled)
	assert.Equal(t, "done", polled["current_step"])

	var body struct {
		ID     string          `json:"id"`
		Status jobs.Status     `json:"status"`
		Result pipeline.Result `json:"result"`
	}
	getJSON(t, server, "/jobs/"+job.ID+"/result", http.StatusOK, &body)
	assert.Equal(t, job.ID, body.ID)
	assert.Equal(t, "sv", body.Result.Language)
	require.Len(t, body.Result.Segments, 1)

	resp, err := http.Get(server.URL + "/jobs/" + job.ID + "/export.srt")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	srt, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(srt), "00:00:00,000 --> 00:00:02,000")
	assert.Contains(t, string(srt), "Hej och välkomna.")
}

func TestServer_UnknownJob(t *testing.T) {
	queue := jobs.NewQueue(1, nil)
	server := httptest.NewServer(NewServer(queue, newMemoryResults()).Handler())
	defer server.Close()

	getJSON(t, server, "/jobs/does-not-exist", http.StatusNotFound, nil)
	getJSON(t, server, "/jobs/does-not-exist/result", http.StatusNotFound, nil)
}

func TestServer_Profiles(t *testing.T) {
	queue := jobs.NewQueue(1, nil)
	server := httptest.NewServer(NewServer(queue, newMemoryResults()).Handler())
	defer server.Close()

	var list []map[string]any
	getJSON(t, server, "/profiles", http.StatusOK, &list)
	require.Len(t, list, 5)
	assert.Equal(t, "raw", list[0]["name"])
	assert.NotEmpty(t, list[0]["label"])
}

func TestServer_Settings(t *testing.T) {
	queue := jobs.NewQueue(1, nil)

	store, err := config.NewRuntimeSettingsStore(
		filepath.Join(t.TempDir(), "settings.json"),
		config.RuntimeSettings{WhisperAPIURL: "http://localhost:8123"},
	)
	require.NoError(t, err)

	var applied config.RuntimeSettings
	server := httptest.NewServer(NewServer(queue, newMemoryResults(),
		WithRuntimeSettingsStore(store),
		WithRuntimeSettingsApplier(func(next config.RuntimeSettings) error {
			applied = next
			return nil
		}),
	).Handler())
	defer server.Close()

	var current config.RuntimeSettings
	getJSON(t, server, "/settings", http.StatusOK, &current)
	assert.Equal(t, "http://localhost:8123", current.WhisperAPIURL)

	update := `{"whisper_api_url":"http://asr:9000","llm_url":"http://llm:8080","llm_model":"gpt-oss-20b"}`
	req, err := http.NewRequest(http.MethodPut, server.URL+"/settings", bytes.NewBufferString(update))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://asr:9000", applied.WhisperAPIURL)
	assert.Equal(t, "gpt-oss-20b", applied.LLMModel)

	// Missing required field is rejected.
	req, err = http.NewRequest(http.MethodPut, server.URL+"/settings", bytes.NewBufferString(`{"llm_url":"http://x"}`))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Sweep(t *testing.T) {
	queue := jobs.NewQueue(1, nil)

	disabled := httptest.NewServer(NewServer(queue, newMemoryResults()).Handler())
	defer disabled.Close()
	getJSON(t, disabled, "/sweep", http.StatusNotFound, nil)

	enabled := httptest.NewServer(NewServer(queue, newMemoryResults(), WithSweepSchedule("0 * * * *")).Handler())
	defer enabled.Close()

	var info map[string]any
	getJSON(t, enabled, "/sweep", http.StatusOK, &info)
	assert.NotEmpty(t, fmt.Sprint(info["Next"]))
}
