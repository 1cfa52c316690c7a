package pipeline

import "math"

// Confidence thresholds mirroring the ASR quality heuristics used upstream.
const (
	lowAvgLogprob       = -0.8
	highCompressionRate = 2.4
	highNoSpeechProb    = 0.6
	lowWordProbability  = 0.3
	lowWordShare        = 0.3
)

// EvaluateConfidence flags low-quality segments and derives word-level
// confidence aggregates. Pure, no I/O; segments are mutated in place.
func EvaluateConfidence(segments []Segment) []Segment {
	for i := range segments {
		seg := &segments[i]
		seg.LowConfidence = isLowConfidence(seg)

		if len(seg.Words) == 0 {
			seg.WordConfidenceAvg = nil
			seg.WordConfidenceMin = nil
			seg.LowConfidenceWords = nil
			continue
		}

		sum := 0.0
		min := math.Inf(1)
		lowWords := make([]Word, 0)
		for _, w := range seg.Words {
			sum += w.Probability
			if w.Probability < min {
				min = w.Probability
			}
			if w.Probability < lowWordProbability {
				lowWords = append(lowWords, w)
			}
		}
		avg := round4(sum / float64(len(seg.Words)))
		minRounded := round4(min)
		seg.WordConfidenceAvg = &avg
		seg.WordConfidenceMin = &minRounded
		seg.LowConfidenceWords = lowWords
	}
	return segments
}

func isLowConfidence(seg *Segment) bool {
	if seg.AvgLogprob < lowAvgLogprob {
		return true
	}
	if seg.CompressionRatio > highCompressionRate {
		return true
	}
	if seg.NoSpeechProb > highNoSpeechProb {
		return true
	}
	if len(seg.Words) > 0 {
		low := 0
		for _, w := range seg.Words {
			if w.Probability < lowWordProbability {
				low++
			}
		}
		if float64(low)/float64(len(seg.Words)) > lowWordShare {
			return true
		}
	}
	return false
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
