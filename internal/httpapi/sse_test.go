package httpapi

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klangab/whisper-batch-worker/internal/jobs"
)

// readEvent consumes one SSE event (up to the blank separator line).
func readEvent(t *testing.T, r *bufio.Reader) (event, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return event, data
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestServer_JobStream(t *testing.T) {
	queue := jobs.NewQueue(1, nil)
	server := httptest.NewServer(NewServer(queue, newMemoryResults()).Handler())
	defer server.Close()

	job := queue.Enqueue("session-1", "raw", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/jobs/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	event, data := readEvent(t, bufio.NewReader(resp.Body))
	assert.Equal(t, "jobs", event)
	assert.Contains(t, data, job.ID)
	assert.Contains(t, data, `"queued"`)
}

func TestServer_JobStreamStatusFilter(t *testing.T) {
	queue := jobs.NewQueue(1, nil)
	server := httptest.NewServer(NewServer(queue, newMemoryResults()).Handler())
	defer server.Close()

	queue.Enqueue("session-1", "raw", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/jobs/stream?status=completed", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// The only job is queued, so the completed view starts out empty.
	event, data := readEvent(t, bufio.NewReader(resp.Body))
	assert.Equal(t, "jobs", event)
	assert.Equal(t, "[]", data)
}

func TestServer_JobStreamRejectsUnknownStatus(t *testing.T) {
	queue := jobs.NewQueue(1, nil)
	server := httptest.NewServer(NewServer(queue, newMemoryResults()).Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/jobs/stream?status=paused")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
