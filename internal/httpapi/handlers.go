package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/klangab/whisper-batch-worker/internal/config"
	"github.com/klangab/whisper-batch-worker/internal/jobs"
	"github.com/klangab/whisper-batch-worker/internal/persistence"
	"github.com/klangab/whisper-batch-worker/internal/pipeline"
	"github.com/klangab/whisper-batch-worker/internal/profiles"
	"github.com/klangab/whisper-batch-worker/internal/subtitle"
	"github.com/klangab/whisper-batch-worker/pkg/icron"
	"github.com/klangab/whisper-batch-worker/pkg/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": serviceVersion,
	})
}

type submitJobResponse struct {
	JobID  string      `json:"job_id"`
	Status jobs.Status `json:"status"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.queue.List())
	case http.MethodPost:
		s.handleSubmitJob(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req jobs.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if len(req.Segments) == 0 && req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "segments or session_id is required")
		return
	}
	if req.ContextProfile != "" {
		if _, ok := profiles.Get(req.ContextProfile); !ok {
			writeError(w, http.StatusBadRequest, "unknown context profile: "+req.ContextProfile)
			return
		}
	}
	if len(req.Segments) == 0 && s.sessions != nil {
		if _, err := s.sessions.Get(req.SessionID); err != nil {
			writeError(w, http.StatusNotFound, "session not found: "+req.SessionID)
			return
		}
	}

	input, err := json.Marshal(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	job := s.queue.Enqueue(req.SessionID, req.ContextProfile, input)
	writeJSON(w, http.StatusCreated, submitJobResponse{
		JobID:  job.ID,
		Status: job.Status,
	})
}

func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/jobs/")
	jobID, suffix, _ := strings.Cut(rest, "/")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "missing job id")
		return
	}

	job, ok := s.queue.Get(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	switch suffix {
	case "":
		writeJSON(w, http.StatusOK, job)
	case "result":
		s.handleJobResult(w, r, job)
	case "export.srt":
		s.handleJobExportSRT(w, r, job)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) loadResult(w http.ResponseWriter, r *http.Request, job *jobs.Job) (*pipeline.Result, bool) {
	if job.Status != jobs.StatusCompleted {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  "job is not completed",
			"status": job.Status,
		})
		return nil, false
	}
	result, err := s.results.GetResult(r.Context(), job.ID)
	if err != nil {
		if errors.Is(err, persistence.ErrNoResult) || errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "no result stored for job")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return result, true
}

func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request, job *jobs.Job) {
	result, ok := s.loadResult(w, r, job)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     job.ID,
		"status": job.Status,
		"result": result,
	})
}

func (s *Server) handleJobExportSRT(w http.ResponseWriter, r *http.Request, job *jobs.Job) {
	result, ok := s.loadResult(w, r, job)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/x-subrip; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+job.ID+`.srt"`)
	w.WriteHeader(http.StatusOK)
	if err := subtitle.Render(w, result.Segments); err != nil {
		log.Error("Failed to render SRT for job %s: %v", job.ID, err)
	}
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, profiles.List())
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		settings, err := s.settings.GetRuntimeSettings()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var req config.RuntimeSettings
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		saved, err := s.settings.UpdateRuntimeSettings(req)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if s.apply != nil {
			if err := s.apply(saved); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.sweepCronExpr == "" {
		writeError(w, http.StatusNotFound, "sweeper is not configured")
		return
	}
	info, err := icron.GetTriggerInfo(s.sweepCronExpr, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
