package pipeline

import (
	"context"

	"github.com/klangab/whisper-batch-worker/internal/asr"
	"github.com/klangab/whisper-batch-worker/pkg/log"
)

// Transcriber re-transcribes a single segment window against the ASR backend.
type Transcriber interface {
	RetryTranscribe(ctx context.Context, req asr.RetryRequest) (*asr.RetryResponse, error)
}

// RetryOptions tune the retry-transcription step.
type RetryOptions struct {
	BeamSize  int
	WithLarge bool
}

// RetryLowConfidence re-transcribes every low-confidence segment. Strategy 1
// retries with the medium model at a higher beam width and accepts the result
// only if it is no longer low confidence. Strategy 2, gated separately,
// escalates to the large model and accepts whatever it returns.
//
// A failing segment is logged and left unmodified; retry failures never fail
// the job.
func RetryLowConfidence(ctx context.Context, segments []Segment, session SessionContext, opts RetryOptions, client Transcriber) []Segment {
	if session.AudioBase64 == "" && session.AudioPath == "" {
		log.Warn("No session audio available, skipping retry transcription")
		return segments
	}

	low := 0
	for i := range segments {
		if !segments[i].LowConfidence {
			continue
		}
		low++
		retrySegment(ctx, &segments[i], i, session, opts, client)
	}
	if low == 0 {
		log.Debug("No low-confidence segments, nothing to retry")
	}
	return segments
}

func retrySegment(ctx context.Context, seg *Segment, idx int, session SessionContext, opts RetryOptions, client Transcriber) {
	language := seg.Language
	if language == "" {
		language = session.Language
	}
	req := asr.RetryRequest{
		AudioBase64: session.AudioBase64,
		AudioPath:   session.AudioPath,
		Start:       seg.Start,
		End:         seg.End,
		BeamSize:    opts.BeamSize,
		Model:       asr.ModelMedium,
		Language:    language,
	}

	resp, err := client.RetryTranscribe(ctx, req)
	if err != nil {
		log.Error("Retry with medium model failed for segment %d: %v", idx, err)
	} else if best, ok := firstSegment(resp); ok && !best.LowConfidence {
		applyRetry(seg, best, "medium")
		log.Info("Segment %d improved with medium beam=%d", idx, opts.BeamSize)
		return
	}

	if !opts.WithLarge {
		return
	}

	req.Model = asr.ModelLarge
	resp, err = client.RetryTranscribe(ctx, req)
	if err != nil {
		log.Error("Retry with large model failed for segment %d: %v", idx, err)
		return
	}
	if best, ok := firstSegment(resp); ok {
		applyRetry(seg, best, "large")
		log.Info("Segment %d re-transcribed with large model", idx)
	}
}

func firstSegment(resp *asr.RetryResponse) (asr.RetrySegment, bool) {
	if resp == nil || len(resp.Segments) == 0 {
		return asr.RetrySegment{}, false
	}
	return resp.Segments[0], true
}

func applyRetry(seg *Segment, retried asr.RetrySegment, model string) {
	seg.Text = retried.Text
	seg.AvgLogprob = retried.AvgLogprob
	seg.CompressionRatio = retried.CompressionRatio
	seg.NoSpeechProb = retried.NoSpeechProb
	seg.LowConfidence = retried.LowConfidence
	seg.Retried = true
	seg.RetryModel = model
}
