package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepRecorder struct {
	mu    sync.Mutex
	steps []string
}

func (r *stepRecorder) SetCurrentStep(_ context.Context, _ string, step string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step)
	return nil
}

func (r *stepRecorder) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.steps...)
}

type fakeSummarizer struct {
	content string
	err     error
	calls   int
}

func (f *fakeSummarizer) Complete(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.content, f.err
}

func allFlagsOff() Flags {
	return Flags{RetryBeamSize: 10, CasingProfile: CasingVerbatim}
}

func TestRunner_RecordsStepsInFixedOrder(t *testing.T) {
	recorder := &stepRecorder{}
	runner := NewRunner(&fakeTranscriber{}, &fakeSummarizer{content: `{"summary":"kort","action_items":[]}`}, func() (Diarizer, error) {
		return &fakeDiarizer{}, nil
	}, recorder)

	flags := Flags{
		Retry:          true,
		RetryBeamSize:  10,
		Diarization:    true,
		LanguageDetect: true,
		TextProcessing: true,
		CasingProfile:  CasingMeetingNotes,
		PIIFlagging:    true,
		Summary:        true,
	}
	session := SessionContext{Language: "sv", AudioPath: "/audio/s1.wav", AudioBase64: "UklGRg=="}

	result, err := runner.Run(context.Background(), "job-1", []Segment{{Text: "hej på er allihopa"}}, session, flags)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, []string{
		StepConfidence, StepRetry, StepDiarization, StepLanguageDetect,
		StepTextProcessing, StepPIIFlagging, StepSummary, StepDone,
	}, recorder.recorded())
	require.NotNil(t, result.Summary)
	assert.Equal(t, "kort", result.Summary.Summary)
}

func TestRunner_DisabledStepsAreNeverEntered(t *testing.T) {
	recorder := &stepRecorder{}
	diarizerLoads := 0
	summarizer := &fakeSummarizer{}
	runner := NewRunner(&fakeTranscriber{}, summarizer, func() (Diarizer, error) {
		diarizerLoads++
		return &fakeDiarizer{}, nil
	}, recorder)

	result, err := runner.Run(context.Background(), "job-1", []Segment{{Text: "hej"}}, SessionContext{}, allFlagsOff())
	require.NoError(t, err)

	assert.Equal(t, []string{StepConfidence, StepDone}, recorder.recorded())
	assert.Zero(t, diarizerLoads)
	assert.Zero(t, summarizer.calls)
	assert.Empty(t, result.Segments[0].SpeakerID)
}

func TestRunner_SummaryFailureIsJobFatal(t *testing.T) {
	recorder := &stepRecorder{}
	runner := NewRunner(&fakeTranscriber{}, &fakeSummarizer{err: assert.AnError}, nil, recorder)

	flags := allFlagsOff()
	flags.Summary = true

	_, err := runner.Run(context.Background(), "job-1", []Segment{{Text: "hej hej hej"}}, SessionContext{}, flags)
	require.Error(t, err)
	assert.Equal(t, StepSummary, FailedStep(err))

	steps := recorder.recorded()
	assert.Equal(t, StepSummary, steps[len(steps)-1])
	assert.NotContains(t, steps, StepDone)
}

func TestRunner_DiarizationWithoutBackendFails(t *testing.T) {
	runner := NewRunner(&fakeTranscriber{}, nil, nil, &stepRecorder{})

	flags := allFlagsOff()
	flags.Diarization = true

	_, err := runner.Run(context.Background(), "job-1", []Segment{{Text: "hej"}}, SessionContext{AudioPath: "/a.wav"}, flags)
	require.Error(t, err)
	assert.Equal(t, StepDiarization, FailedStep(err))
	assert.True(t, IsErrorType(err, ErrDependency))
}

func TestRunner_RetryFailuresDoNotFailJob(t *testing.T) {
	recorder := &stepRecorder{}
	runner := NewRunner(&fakeTranscriber{err: assert.AnError}, nil, nil, recorder)

	flags := allFlagsOff()
	flags.Retry = true

	segments := []Segment{{Text: "svag mening", AvgLogprob: -0.9}}
	result, err := runner.Run(context.Background(), "job-1", segments, sessionWithAudio(), flags)
	require.NoError(t, err)

	assert.Equal(t, "svag mening", result.Segments[0].Text)
	assert.Contains(t, recorder.recorded(), StepDone)
}

func TestRunner_ResultCarriesSessionLanguage(t *testing.T) {
	runner := NewRunner(nil, nil, nil, &stepRecorder{})

	result, err := runner.Run(context.Background(), "job-1", []Segment{{Text: "hej"}}, SessionContext{Language: "sv-SE"}, allFlagsOff())
	require.NoError(t, err)
	assert.Equal(t, "sv", result.Language)
}
