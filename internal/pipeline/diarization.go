package pipeline

import (
	"context"

	"github.com/klangab/whisper-batch-worker/internal/asr"
	"github.com/klangab/whisper-batch-worker/pkg/log"
)

// UnknownSpeaker labels segments no diarization turn overlaps.
const UnknownSpeaker = "UNKNOWN"

// Diarizer produces speaker turns for a session's audio.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string) ([]asr.SpeakerTurn, error)
}

// Diarize assigns a speaker_id to every segment. The downstream UI depends on
// consistent speaker labels once the flag is on, so any failure here is
// job-fatal.
func Diarize(ctx context.Context, segments []Segment, session SessionContext, diarizer Diarizer) ([]Segment, error) {
	if session.AudioPath == "" {
		return nil, NewError(StepDiarization, ErrMalformedInput, "session has no audio path")
	}

	turns, err := diarizer.Diarize(ctx, session.AudioPath)
	if err != nil {
		return nil, WrapError(StepDiarization, ErrDependency, "speaker separation failed", err)
	}

	AssignSpeakers(segments, turns)

	speakers := make(map[string]struct{})
	for i := range segments {
		speakers[segments[i].SpeakerID] = struct{}{}
	}
	log.Info("Diarization done: %d speakers across %d segments", len(speakers), len(segments))
	return segments, nil
}

// AssignSpeakers gives each segment the speaker whose turns overlap it the
// most, or UNKNOWN when nothing overlaps.
func AssignSpeakers(segments []Segment, turns []asr.SpeakerTurn) {
	for i := range segments {
		seg := &segments[i]
		bestSpeaker := UnknownSpeaker
		bestOverlap := 0.0

		for _, turn := range turns {
			overlapStart := max(seg.Start, turn.Start)
			overlapEnd := min(seg.End, turn.End)
			overlap := overlapEnd - overlapStart
			if overlap > bestOverlap {
				bestOverlap = overlap
				bestSpeaker = turn.Speaker
			}
		}
		seg.SpeakerID = bestSpeaker
	}
}
