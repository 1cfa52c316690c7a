// Package session reads and writes the on-disk session directories produced
// by the recorder: one directory per session holding audio.wav, session.json
// and the written pipeline outputs.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klangab/whisper-batch-worker/internal/pipeline"
	"github.com/klangab/whisper-batch-worker/pkg/file"
)

const (
	metadataFile  = "session.json"
	audioFile     = "audio.wav"
	processedFile = "processed.json"
)

// Metadata is the typed view of session.json. Only the fields the worker
// reads are typed; unknown keys written by the recorder are preserved on
// update through raw-map merging.
type Metadata struct {
	SessionID        string             `json:"session_id"`
	Profile          string             `json:"profile,omitempty"`
	StartedAt        string             `json:"started_at,omitempty"`
	EndedAt          string             `json:"ended_at,omitempty"`
	Duration         float64            `json:"duration,omitempty"`
	Chunks           int                `json:"chunks,omitempty"`
	Text             string             `json:"text,omitempty"`
	Language         string             `json:"language,omitempty"`
	Segments         []pipeline.Segment `json:"segments,omitempty"`
	JobID            string             `json:"job_id,omitempty"`
	ProcessingStatus string             `json:"processing_status,omitempty"`
	ProcessedAt      string             `json:"processed_at,omitempty"`
	ProcessingError  string             `json:"processing_error,omitempty"`
}

// Storage accesses session directories under a fixed root.
type Storage struct {
	root string
}

func NewStorage(root string) *Storage {
	return &Storage{root: root}
}

func (s *Storage) dir(sessionID string) string {
	return filepath.Join(s.root, sessionID)
}

// Get loads session.json for one session.
func (s *Storage) Get(sessionID string) (*Metadata, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir(sessionID), metadataFile))
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", sessionID, err)
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", sessionID, err)
	}
	if meta.SessionID == "" {
		meta.SessionID = sessionID
	}
	return &meta, nil
}

// List returns metadata for all sessions, newest directory first. Directories
// without a readable session.json are skipped.
func (s *Storage) List() ([]*Metadata, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	ret := make([]*Metadata, 0, len(names))
	for _, name := range names {
		meta, err := s.Get(name)
		if err != nil {
			continue
		}
		ret = append(ret, meta)
	}
	return ret, nil
}

// AudioPath returns the path to the session's audio file, or "" when the
// session has no audio on disk.
func (s *Storage) AudioPath(sessionID string) string {
	path := filepath.Join(s.dir(sessionID), audioFile)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// WriteResult stores a pipeline result inside the session directory. With a
// context profile the file is interpreted_{profile}.json, otherwise
// processed.json.
func (s *Storage) WriteResult(sessionID string, result *pipeline.Result, contextProfile string) error {
	dir := s.dir(sessionID)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("session directory not found: %s", sessionID)
	}

	name := processedFile
	if contextProfile != "" {
		name = fmt.Sprintf("interpreted_%s.json", contextProfile)
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return file.WriteAtomic(filepath.Join(dir, name), payload, 0o644)
}

// Interpretations loads all interpreted_*.json files for a session, keyed by
// context profile name.
func (s *Storage) Interpretations(sessionID string) (map[string]*pipeline.Result, error) {
	entries, err := os.ReadDir(s.dir(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	ret := make(map[string]*pipeline.Result)
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "interpreted_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.dir(sessionID), name))
		if err != nil {
			continue
		}
		var result pipeline.Result
		if err := json.Unmarshal(raw, &result); err != nil {
			continue
		}
		context := strings.TrimSuffix(strings.TrimPrefix(name, "interpreted_"), ".json")
		ret[context] = &result
	}
	return ret, nil
}

// UpdateStatus merges processing bookkeeping into session.json without
// touching keys the worker does not own.
func (s *Storage) UpdateStatus(sessionID, jobID, status, processingError string) error {
	path := filepath.Join(s.dir(sessionID), metadataFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read session %s: %w", sessionID, err)
	}

	meta := make(map[string]any)
	if err := json.Unmarshal(raw, &meta); err != nil {
		return fmt.Errorf("parse session %s: %w", sessionID, err)
	}

	meta["job_id"] = jobID
	meta["processing_status"] = status
	meta["processed_at"] = time.Now().UTC().Format(time.RFC3339)
	if processingError != "" {
		meta["processing_error"] = processingError
	} else {
		delete(meta, "processing_error")
	}

	payload, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sessionID, err)
	}
	return file.WriteAtomic(path, payload, 0o644)
}

// UpdateDuration backfills the audio duration in session.json.
func (s *Storage) UpdateDuration(sessionID string, seconds float64) error {
	path := filepath.Join(s.dir(sessionID), metadataFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read session %s: %w", sessionID, err)
	}

	meta := make(map[string]any)
	if err := json.Unmarshal(raw, &meta); err != nil {
		return fmt.Errorf("parse session %s: %w", sessionID, err)
	}
	meta["duration"] = seconds

	payload, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sessionID, err)
	}
	return file.WriteAtomic(path, payload, 0o644)
}

// Processed reports whether any pipeline output exists for the session.
func (s *Storage) Processed(sessionID string) bool {
	dir := s.dir(sessionID)
	if _, err := os.Stat(filepath.Join(dir, processedFile)); err == nil {
		return true
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "interpreted_") && strings.HasSuffix(name, ".json") {
			return true
		}
	}
	return false
}
