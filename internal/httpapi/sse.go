package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/klangab/whisper-batch-worker/internal/jobs"
)

// handleJobStream pushes the job list as server-sent "jobs" events. An
// optional ?status= query narrows the stream to one lifecycle state, and
// unchanged snapshots are not resent, so clients only wake up on actual
// progress (new jobs, step changes, terminal transitions).
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	statusFilter := jobs.Status(r.URL.Query().Get("status"))
	switch statusFilter {
	case "", jobs.StatusQueued, jobs.StatusRunning, jobs.StatusCompleted, jobs.StatusFailed:
	default:
		writeError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	snapshot := func() ([]byte, error) {
		list := s.queue.List()
		if statusFilter != "" {
			filtered := make([]*jobs.Job, 0, len(list))
			for _, job := range list {
				if job.Status == statusFilter {
					filtered = append(filtered, job)
				}
			}
			list = filtered
		}
		return json.Marshal(list)
	}

	var lastSent []byte
	send := func() bool {
		payload, err := snapshot()
		if err != nil {
			return false
		}
		if string(payload) == string(lastSent) {
			return true
		}
		if _, err := fmt.Fprintf(w, "event: jobs\ndata: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		lastSent = payload
		return true
	}

	if !send() {
		return
	}

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if !send() {
				return
			}
		}
	}
}
