package pipeline

import (
	"context"
	"encoding/json"
	"strings"
)

// Summary input is truncated to keep the prompt within model context.
const maxSummaryInputRunes = 8000

// DefaultSummaryPrompt asks for a short Swedish summary with action items.
// Context profiles may replace it; {text} is the transcript placeholder.
const DefaultSummaryPrompt = "Du är en assistent som sammanfattar transkriptioner på svenska.\n\n" +
	"Ge en kort sammanfattning (max 3 meningar) och lista eventuella action items.\n\n" +
	"Transkription:\n{text}\n\n" +
	`Svara i JSON-format: {"summary": "...", "action_items": ["..."]}`

// Summarizer produces a completion for a prompt, typically one LLM call.
type Summarizer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GenerateSummary runs one LLM call over the concatenated segment text. When
// the summary flag is enabled this step is the reason the job exists, so an
// unreachable LLM is job-fatal.
func GenerateSummary(ctx context.Context, segments []Segment, promptTemplate string, summarizer Summarizer) (*Summary, error) {
	parts := make([]string, 0, len(segments))
	for i := range segments {
		parts = append(parts, segments[i].Text)
	}
	fullText := strings.TrimSpace(strings.Join(parts, " "))
	if fullText == "" {
		return nil, nil
	}
	fullText = truncateRunes(fullText, maxSummaryInputRunes)

	template := promptTemplate
	if template == "" {
		template = DefaultSummaryPrompt
	}
	prompt := strings.ReplaceAll(template, "{text}", fullText)

	content, err := summarizer.Complete(ctx, prompt)
	if err != nil {
		return nil, WrapError(StepSummary, ErrDependency, "summary generation failed", err)
	}

	var summary Summary
	if err := json.Unmarshal([]byte(extractJSON(content)), &summary); err != nil {
		// Model ignored the JSON instruction; keep the raw text.
		return &Summary{Summary: content, ActionItems: []string{}}, nil
	}
	if summary.ActionItems == nil {
		summary.ActionItems = []string{}
	}
	return &summary, nil
}

// extractJSON pulls the outermost JSON object out of a completion that may be
// wrapped in prose or code fences.
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}

func truncateRunes(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
