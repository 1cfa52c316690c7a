package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klangab/whisper-batch-worker/internal/asr"
)

type fakeDiarizer struct {
	turns []asr.SpeakerTurn
	err   error
}

func (f *fakeDiarizer) Diarize(_ context.Context, _ string) ([]asr.SpeakerTurn, error) {
	return f.turns, f.err
}

func TestAssignSpeakers_PicksLargestOverlap(t *testing.T) {
	segments := []Segment{
		{Start: 0, End: 4},
		{Start: 4, End: 8},
		{Start: 20, End: 22},
	}
	turns := []asr.SpeakerTurn{
		{Start: 0, End: 3, Speaker: "SPEAKER_00"},
		{Start: 3, End: 9, Speaker: "SPEAKER_01"},
	}

	AssignSpeakers(segments, turns)

	assert.Equal(t, "SPEAKER_00", segments[0].SpeakerID)
	assert.Equal(t, "SPEAKER_01", segments[1].SpeakerID)
	assert.Equal(t, UnknownSpeaker, segments[2].SpeakerID)
}

func TestDiarize_BackendFailureIsJobFatal(t *testing.T) {
	segments := []Segment{{Start: 0, End: 1}}
	session := SessionContext{AudioPath: "/audio/s1.wav"}

	_, err := Diarize(context.Background(), segments, session, &fakeDiarizer{err: assert.AnError})
	require.Error(t, err)
	assert.Equal(t, StepDiarization, FailedStep(err))
	assert.True(t, IsErrorType(err, ErrDependency))
}

func TestDiarize_MissingAudioPathIsJobFatal(t *testing.T) {
	_, err := Diarize(context.Background(), []Segment{{}}, SessionContext{}, &fakeDiarizer{})
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrMalformedInput))
}
