package pipeline

import (
	"context"
	"errors"

	"github.com/klangab/whisper-batch-worker/pkg/log"
)

// Flags are the effective step switches for one job: process configuration
// with any context profile overrides already applied. Immutable during a run;
// steps never read ambient configuration.
type Flags struct {
	Retry          bool
	RetryBeamSize  int
	RetryWithLarge bool

	Diarization    bool
	LanguageDetect bool

	TextProcessing       bool
	CasingProfile        string
	NormalizePunctuation bool

	PIIFlagging bool

	Summary       bool
	SummaryPrompt string
}

// ProgressStore records which step a job is currently in. Implemented by the
// job store; the runner never touches job rows directly.
type ProgressStore interface {
	SetCurrentStep(ctx context.Context, jobID, step string) error
}

// DiarizerFactory builds the diarization backend on demand. It is invoked
// only when the diarization flag is enabled, so a disabled flag costs zero
// resources.
type DiarizerFactory func() (Diarizer, error)

// Runner executes the step chain for one job. Steps run sequentially in a
// fixed order; a skipped step performs zero work and acquires no dependencies.
type Runner struct {
	transcriber Transcriber
	summarizer  Summarizer
	newDiarizer DiarizerFactory
	progress    ProgressStore
}

func NewRunner(transcriber Transcriber, summarizer Summarizer, newDiarizer DiarizerFactory, progress ProgressStore) *Runner {
	return &Runner{
		transcriber: transcriber,
		summarizer:  summarizer,
		newDiarizer: newDiarizer,
		progress:    progress,
	}
}

type step struct {
	name    string
	enabled bool
	run     func(ctx context.Context) error
}

// Run executes all enabled steps over the job's segments and returns the
// merged artifact. On a fatal step error the run stops immediately; earlier
// step mutations are additive and stay in place. The failing step's name is
// attached to the returned error and remains the job's current_step.
func (r *Runner) Run(ctx context.Context, jobID string, segments []Segment, session SessionContext, flags Flags) (*Result, error) {
	if session.Language == "" {
		session.Language = "sv"
	}

	var summary *Summary

	// The ordering is a declared data structure, not an artifact of code
	// layout: pii_flagging reads text_processing output when present, and
	// every step past confidence reads its low_confidence marks.
	steps := []step{
		{
			name:    StepConfidence,
			enabled: true,
			run: func(ctx context.Context) error {
				segments = EvaluateConfidence(segments)
				return nil
			},
		},
		{
			name:    StepRetry,
			enabled: flags.Retry,
			run: func(ctx context.Context) error {
				opts := RetryOptions{BeamSize: flags.RetryBeamSize, WithLarge: flags.RetryWithLarge}
				segments = RetryLowConfidence(ctx, segments, session, opts, r.transcriber)
				return nil
			},
		},
		{
			name:    StepDiarization,
			enabled: flags.Diarization,
			run: func(ctx context.Context) error {
				if r.newDiarizer == nil {
					return NewError(StepDiarization, ErrDependency, "diarization backend not configured")
				}
				diarizer, err := r.newDiarizer()
				if err != nil {
					return WrapError(StepDiarization, ErrDependency, "load diarization backend", err)
				}
				segments, err = Diarize(ctx, segments, session, diarizer)
				return err
			},
		},
		{
			name:    StepLanguageDetect,
			enabled: flags.LanguageDetect,
			run: func(ctx context.Context) error {
				segments = DetectLanguages(segments, session.Language)
				return nil
			},
		},
		{
			name:    StepTextProcessing,
			enabled: flags.TextProcessing,
			run: func(ctx context.Context) error {
				opts := TextOptions{CasingProfile: flags.CasingProfile, NormalizePunctuation: flags.NormalizePunctuation}
				segments = ProcessText(segments, opts)
				return nil
			},
		},
		{
			name:    StepPIIFlagging,
			enabled: flags.PIIFlagging,
			run: func(ctx context.Context) error {
				segments = FlagPII(segments)
				return nil
			},
		},
		{
			name:    StepSummary,
			enabled: flags.Summary,
			run: func(ctx context.Context) error {
				if r.summarizer == nil {
					return NewError(StepSummary, ErrDependency, "summary backend not configured")
				}
				var err error
				summary, err = GenerateSummary(ctx, segments, flags.SummaryPrompt, r.summarizer)
				return err
			},
		},
	}

	for _, s := range steps {
		if !s.enabled {
			continue
		}
		if err := r.setStep(ctx, jobID, s.name); err != nil {
			return nil, err
		}
		if err := s.run(ctx); err != nil {
			var stepErr *Error
			if !errors.As(err, &stepErr) {
				err = WrapError(s.name, ErrUnknown, "step failed", err)
			}
			return nil, err
		}
	}

	if err := r.setStep(ctx, jobID, StepDone); err != nil {
		return nil, err
	}

	log.Info("Job %s done: %d segments processed", jobID, len(segments))
	return &Result{
		Language: canonicalISO(session.Language),
		Segments: segments,
		Summary:  summary,
	}, nil
}

func (r *Runner) setStep(ctx context.Context, jobID, name string) error {
	if r.progress == nil {
		return nil
	}
	return r.progress.SetCurrentStep(ctx, jobID, name)
}
