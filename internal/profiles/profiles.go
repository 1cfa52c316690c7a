// Package profiles holds the named context profiles of the interpretation
// layer. A profile is a preset that overrides which pipeline steps run for a
// job and which prompt the summarizer uses.
package profiles

import (
	"fmt"

	"github.com/klangab/whisper-batch-worker/internal/config"
	"github.com/klangab/whisper-batch-worker/internal/pipeline"
)

// Profile is one named preset. Nil override fields mean "keep the process
// default"; set fields replace it for the job.
type Profile struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`

	Summary        *bool  `json:"-"`
	PII            *bool  `json:"-"`
	Diarization    *bool  `json:"-"`
	TextProcessing *bool  `json:"-"`
	Casing         string `json:"-"`
	Prompt         string `json:"-"`
}

func boolPtr(v bool) *bool { return &v }

var catalogue = []Profile{
	{
		Name:           "raw",
		Label:          "Rått transkript",
		Description:    "Ingen efterbearbetning, rått text från ASR",
		Summary:        boolPtr(false),
		PII:            boolPtr(false),
		Diarization:    boolPtr(false),
		TextProcessing: boolPtr(false),
	},
	{
		Name:        "meeting",
		Label:       "Möte",
		Description: "Mötesanteckningar med beslut och actions",
		Summary:     boolPtr(true),
		Prompt: "Du är en assistent som sammanfattar mötesanteckningar på svenska.\n\n" +
			"Identifiera:\n" +
			"1. Viktiga beslut som fattades\n" +
			"2. Action items (vem ska göra vad)\n" +
			"3. Nästa steg\n\n" +
			"Ge en kort sammanfattning (max 5 meningar) och lista alla action items.\n\n" +
			"Transkription:\n{text}\n\n" +
			`Svara i JSON-format: {"summary": "...", "action_items": ["..."]}`,
		PII:            boolPtr(true),
		Diarization:    boolPtr(true),
		TextProcessing: boolPtr(true),
		Casing:         "meeting_notes",
	},
	{
		Name:        "brainstorm",
		Label:       "Brainstorm",
		Description: "Lista och gruppera idéer från brainstorming",
		Summary:     boolPtr(true),
		Prompt: "Du är en assistent som sammanfattar brainstorming-sessioner på svenska.\n\n" +
			"Identifiera alla idéer som diskuterats och gruppera dem i kategorier.\n" +
			"Lista varje idé kort och koncist.\n\n" +
			"Transkription:\n{text}\n\n" +
			`Svara i JSON-format: {"summary": "...", "action_items": ["idé 1", "idé 2", ...]}`,
		PII:            boolPtr(false),
		Diarization:    boolPtr(false),
		TextProcessing: boolPtr(true),
		Casing:         "meeting_notes",
	},
	{
		Name:        "journal",
		Label:       "Dagbok",
		Description: "Dagboksanteckningar och reflektioner",
		Summary:     boolPtr(true),
		Prompt: "Du är en assistent som sammanfattar dagboksanteckningar på svenska.\n\n" +
			"Fånga:\n" +
			"1. Huvudsakliga reflektioner och känslor\n" +
			"2. Viktiga händelser\n" +
			"3. Insikter och lärdomar\n\n" +
			"Skriv sammanfattningen i första person.\n\n" +
			"Transkription:\n{text}\n\n" +
			`Svara i JSON-format: {"summary": "...", "action_items": []}`,
		PII:            boolPtr(true),
		Diarization:    boolPtr(false),
		TextProcessing: boolPtr(true),
		Casing:         "meeting_notes",
	},
	{
		Name:        "tech_notes",
		Label:       "Tekniska anteckningar",
		Description: "Teknisk dokumentation, bevara facktermer",
		Summary:     boolPtr(true),
		Prompt: "Du är en assistent som sammanfattar tekniska anteckningar på svenska.\n\n" +
			"Bevara alla tekniska termer, kodnamn och akronymer exakt som de nämnts.\n" +
			"Strukturera sammanfattningen med tydliga punkter.\n\n" +
			"Transkription:\n{text}\n\n" +
			`Svara i JSON-format: {"summary": "...", "action_items": []}`,
		PII:            boolPtr(false),
		Diarization:    boolPtr(false),
		TextProcessing: boolPtr(false),
		Casing:         "verbatim",
	},
}

// Get returns the profile with the given name.
func Get(name string) (Profile, bool) {
	for _, p := range catalogue {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// List returns all profiles in catalogue order.
func List() []Profile {
	ret := make([]Profile, len(catalogue))
	copy(ret, catalogue)
	return ret
}

// Resolve produces the effective step flags for a job: process configuration
// with the named profile's overrides applied on top. An empty name keeps the
// configured defaults; an unknown name is an error.
func Resolve(name string, cfg config.PipelineConfig) (pipeline.Flags, error) {
	flags := pipeline.Flags{
		Retry:                cfg.RetryEnabled,
		RetryBeamSize:        cfg.RetryBeamSize,
		RetryWithLarge:       cfg.RetryWithLarge,
		Diarization:          cfg.DiarizationEnabled,
		LanguageDetect:       cfg.LanguageDetectEnabled,
		TextProcessing:       cfg.TextProcessingEnabled,
		CasingProfile:        cfg.CasingProfile,
		NormalizePunctuation: cfg.NormalizePunctuation,
		PIIFlagging:          cfg.PIIFlaggingEnabled,
		Summary:              cfg.SummaryEnabled,
		SummaryPrompt:        pipeline.DefaultSummaryPrompt,
	}
	if name == "" {
		return flags, nil
	}

	p, ok := Get(name)
	if !ok {
		return pipeline.Flags{}, fmt.Errorf("unknown context profile %q", name)
	}
	if p.Summary != nil {
		flags.Summary = *p.Summary
	}
	if p.PII != nil {
		flags.PIIFlagging = *p.PII
	}
	if p.Diarization != nil {
		flags.Diarization = *p.Diarization
	}
	if p.TextProcessing != nil {
		flags.TextProcessing = *p.TextProcessing
	}
	if p.Casing != "" {
		flags.CasingProfile = p.Casing
	}
	if p.Prompt != "" {
		flags.SummaryPrompt = p.Prompt
	}
	return flags, nil
}
