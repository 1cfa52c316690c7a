// Package service wires the periodic session sweep: sessions that were saved
// to disk but never picked up for post-processing get enqueued on a cron
// schedule.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/klangab/whisper-batch-worker/internal/jobs"
	"github.com/klangab/whisper-batch-worker/internal/session"
	"github.com/klangab/whisper-batch-worker/pkg/file"
	"github.com/klangab/whisper-batch-worker/pkg/icron"
	"github.com/klangab/whisper-batch-worker/pkg/log"
)

// Enqueuer is the job queue surface the sweeper needs.
type Enqueuer interface {
	Enqueue(sessionID, contextProfile string, input []byte) *jobs.Job
	List() []*jobs.Job
}

type Sweeper struct {
	sessionsDir     string
	storage         *session.Storage
	queue           Enqueuer
	cronExpr        string
	cron            *cron.Cron
	lastTriggerTime time.Time
}

func NewSweeper(sessionsDir string, storage *session.Storage, queue Enqueuer, cronExpr string, c *cron.Cron) *Sweeper {
	return &Sweeper{
		sessionsDir: sessionsDir,
		storage:     storage,
		queue:       queue,
		cronExpr:    cronExpr,
		cron:        c,
	}
}

var singleflightGroup singleflight.Group

// Schedule registers the sweep on the cron schedule. Overlapping triggers
// collapse into one run.
func (s *Sweeper) Schedule(ctx context.Context) error {
	log.Info("Scheduling session sweep: %s", s.cronExpr)

	runFunc := func() {
		_, _, _ = singleflightGroup.Do("sweep", func() (any, error) {
			enqueued, err := s.RunOnce(ctx)
			if err != nil {
				log.Error("Session sweep failed: %v", err)
				return nil, err
			}
			if enqueued > 0 {
				log.Info("Session sweep enqueued %d jobs", enqueued)
			}
			return nil, nil
		})
	}
	_, err := s.cron.AddFunc(s.cronExpr, runFunc)
	return err
}

// RunOnce scans the sessions directory for sessions with recent activity and
// no post-processing output, and enqueues a job for each. Returns the number
// of jobs enqueued.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	startTime, err := s.startTime()
	if err != nil {
		return 0, err
	}
	log.Info("Sweeping sessions modified after %v", startTime)

	recentFiles, err := file.FindRecentAfter(s.sessionsDir, startTime)
	if err != nil {
		return 0, fmt.Errorf("scan sessions dir: %w", err)
	}

	candidates := make(map[string]bool)
	for _, path := range recentFiles {
		rel, err := filepath.Rel(s.sessionsDir, path)
		if err != nil {
			continue
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 2 {
			continue
		}
		candidates[parts[0]] = true
	}

	// Sessions already in the queue should not be enqueued twice.
	active := make(map[string]bool)
	for _, job := range s.queue.List() {
		if job.SessionID != "" && !job.Status.IsTerminal() {
			active[job.SessionID] = true
		}
	}

	enqueued := 0
	for sessionID := range candidates {
		if err := ctx.Err(); err != nil {
			return enqueued, err
		}
		if active[sessionID] || s.storage.Processed(sessionID) {
			continue
		}
		meta, err := s.storage.Get(sessionID)
		if err != nil {
			continue
		}
		if len(meta.Segments) == 0 {
			continue
		}

		input := fmt.Sprintf(`{"session_id":%q}`, sessionID)
		job := s.queue.Enqueue(sessionID, "", []byte(input))
		log.Info("Swept unprocessed session %s into job %s", sessionID, job.ID)
		enqueued++
	}

	s.lastTriggerTime = time.Now()
	return enqueued, nil
}

func (s *Sweeper) startTime() (time.Time, error) {
	if s.lastTriggerTime.IsZero() {
		triggerInfo, err := icron.GetTriggerInfo(s.cronExpr, time.Now())
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to get cron schedule: %w", err)
		}

		if time.Now().Add(-24 * time.Hour).Before(triggerInfo.Last) {
			return time.Now().Add(-24 * 7 * time.Hour), nil
		}
		return triggerInfo.Last, nil
	}

	return s.lastTriggerTime, nil
}
