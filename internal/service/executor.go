package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/klangab/whisper-batch-worker/internal/config"
	"github.com/klangab/whisper-batch-worker/internal/jobs"
	"github.com/klangab/whisper-batch-worker/internal/pipeline"
	"github.com/klangab/whisper-batch-worker/internal/profiles"
	"github.com/klangab/whisper-batch-worker/internal/session"
	"github.com/klangab/whisper-batch-worker/pkg/log"
)

// ResultStore persists pipeline output for finished jobs.
type ResultStore interface {
	SaveResult(ctx context.Context, jobID string, result *pipeline.Result) error
}

// DurationProber backfills missing audio durations.
type DurationProber interface {
	ProbeDuration(path string) (float64, error)
}

// Processor executes one job end to end: resolve input and flags, run the
// pipeline, persist the result and mirror it into the session directory.
type Processor struct {
	pipelineConfig config.PipelineConfig
	runner         *pipeline.Runner
	results        ResultStore
	sessions       *session.Storage
	prober         DurationProber
}

func NewProcessor(
	pipelineConfig config.PipelineConfig,
	runner *pipeline.Runner,
	results ResultStore,
	sessions *session.Storage,
	prober DurationProber,
) *Processor {
	return &Processor{
		pipelineConfig: pipelineConfig,
		runner:         runner,
		results:        results,
		sessions:       sessions,
		prober:         prober,
	}
}

// Execute runs the pipeline for one job. Used as the queue's executor; the
// returned error becomes the job's failure reason.
func (p *Processor) Execute(ctx context.Context, job *jobs.Job) error {
	err := p.execute(ctx, job)
	if err != nil && job.SessionID != "" && p.sessions != nil {
		if statusErr := p.sessions.UpdateStatus(job.SessionID, job.ID, "failed", err.Error()); statusErr != nil {
			log.Error("Failed to mark session %s failed: %v", job.SessionID, statusErr)
		}
	}
	return err
}

func (p *Processor) execute(ctx context.Context, job *jobs.Job) error {
	var req jobs.SubmitRequest
	if len(job.Input) > 0 {
		if err := json.Unmarshal(job.Input, &req); err != nil {
			return fmt.Errorf("decode job input: %w", err)
		}
	}

	segments := req.Segments
	language := req.Language
	audioPath := req.AudioPath

	if job.SessionID != "" && p.sessions != nil {
		meta, err := p.sessions.Get(job.SessionID)
		if err != nil {
			return err
		}
		if len(segments) == 0 {
			segments = meta.Segments
		}
		if language == "" {
			language = meta.Language
		}
		if audioPath == "" {
			audioPath = p.sessions.AudioPath(job.SessionID)
		}
		p.backfillDuration(job.SessionID, meta, audioPath)
	}
	if len(segments) == 0 {
		return fmt.Errorf("job has no segments to process")
	}

	flags, err := profiles.Resolve(job.ContextProfile, p.pipelineConfig)
	if err != nil {
		return err
	}

	result, err := p.runner.Run(ctx, job.ID, segments, pipeline.SessionContext{
		SessionID:   job.SessionID,
		Language:    language,
		AudioBase64: req.AudioBase64,
		AudioPath:   audioPath,
	}, flags)
	if err != nil {
		return err
	}
	result.ContextProfile = job.ContextProfile

	if err := p.results.SaveResult(ctx, job.ID, result); err != nil {
		return fmt.Errorf("persist result: %w", err)
	}

	if job.SessionID != "" && p.sessions != nil {
		if err := p.sessions.WriteResult(job.SessionID, result, job.ContextProfile); err != nil {
			log.Error("Failed to write result for session %s: %v", job.SessionID, err)
		} else if err := p.sessions.UpdateStatus(job.SessionID, job.ID, "completed", ""); err != nil {
			log.Error("Failed to mark session %s completed: %v", job.SessionID, err)
		}
	}
	return nil
}

func (p *Processor) backfillDuration(sessionID string, meta *session.Metadata, audioPath string) {
	if p.prober == nil || meta.Duration > 0 || audioPath == "" {
		return
	}
	duration, err := p.prober.ProbeDuration(audioPath)
	if err != nil {
		log.Warn("Failed to probe duration for session %s: %v", sessionID, err)
		return
	}
	if err := p.sessions.UpdateDuration(sessionID, duration); err != nil {
		log.Warn("Failed to update duration for session %s: %v", sessionID, err)
	}
}
