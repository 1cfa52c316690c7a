package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/klangab/whisper-batch-worker/pkg/log"
)

// Executor runs the processing pipeline for one job. A nil return marks the
// job completed, any error marks it failed.
type Executor func(ctx context.Context, job *Job) error

// Queue is a bounded-concurrency FIFO job queue backed by a durable store.
// At most workerCount jobs run concurrently; everything else waits in
// queued state.
type Queue struct {
	workerCount int
	store       Store

	mu         sync.RWMutex
	jobs       map[string]*Job
	started    bool
	pendingIDs chan string
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

func NewQueue(workerCount int, store Store) *Queue {
	if workerCount <= 0 {
		workerCount = 1
	}
	q := &Queue{
		workerCount: workerCount,
		store:       store,
		jobs:        make(map[string]*Job),
		pendingIDs:  make(chan string, 1024),
		stopCh:      make(chan struct{}),
	}
	q.hydrateFromStore(context.Background())
	return q
}

// Enqueue registers a new job in queued state and hands it to a worker once
// one is free.
func (q *Queue) Enqueue(sessionID, contextProfile string, input []byte) *Job {
	now := time.Now()
	job := &Job{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		ContextProfile: contextProfile,
		Status:         StatusQueued,
		Input:          input,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	q.mu.Lock()
	q.jobs[job.ID] = job
	started := q.started
	snapshot := cloneJob(job)
	q.mu.Unlock()

	q.persistJob(snapshot)
	if started {
		q.enqueuePendingID(job.ID)
	}
	return snapshot
}

func (q *Queue) Get(id string) (*Job, bool) {
	q.mu.RLock()
	job, ok := q.jobs[id]
	q.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return cloneJob(job), true
}

// List returns a snapshot of all known jobs, newest first.
func (q *Queue) List() []*Job {
	q.mu.RLock()
	ret := make([]*Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		ret = append(ret, cloneJob(job))
	}
	q.mu.RUnlock()

	sort.Slice(ret, func(i, j int) bool {
		return ret[i].CreatedAt.After(ret[j].CreatedAt)
	})
	return ret
}

// SetCurrentStep records which pipeline step a running job is in, for both
// pollers and the durable store. A persistence failure is logged, not fatal:
// losing one progress tick must not fail the job.
func (q *Queue) SetCurrentStep(_ context.Context, id, stepName string) error {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok || job.Status != StatusRunning {
		q.mu.Unlock()
		return nil
	}
	job.CurrentStep = stepName
	job.UpdatedAt = time.Now()
	snapshot := cloneJob(job)
	q.mu.Unlock()

	q.persistJob(snapshot)
	return nil
}

// Start dispatches all queued jobs and launches the worker pool. Idempotent.
func (q *Queue) Start(exec Executor) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true

	pending := make([]*Job, 0)
	for _, job := range q.jobs {
		if job.Status == StatusQueued {
			pending = append(pending, job)
		}
	}
	q.mu.Unlock()

	// Dispatch surviving queued jobs oldest first.
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	for _, job := range pending {
		q.enqueuePendingID(job.ID)
	}

	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(exec)
	}
}

func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stopCh)
		q.wg.Wait()
	})
}

func (q *Queue) worker(exec Executor) {
	defer q.wg.Done()

	for {
		select {
		case <-q.stopCh:
			return
		case id := <-q.pendingIDs:
			job, ok := q.markRunning(id)
			if !ok {
				continue
			}

			if err := exec(context.Background(), job); err != nil {
				q.markFailed(id, err)
				continue
			}
			q.markCompleted(id)
		}
	}
}

func (q *Queue) enqueuePendingID(id string) {
	select {
	case q.pendingIDs <- id:
	default:
		go func() { q.pendingIDs <- id }()
	}
}

func (q *Queue) markRunning(id string) (*Job, bool) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok || !isValidTransition(job.Status, StatusRunning) {
		q.mu.Unlock()
		return nil, false
	}
	job.Status = StatusRunning
	job.UpdatedAt = time.Now()
	snapshot := cloneJob(job)
	q.mu.Unlock()

	q.persistJob(snapshot)
	return snapshot, true
}

func (q *Queue) markCompleted(id string) {
	q.transition(id, StatusCompleted, nil)
}

func (q *Queue) markFailed(id string, err error) {
	q.transition(id, StatusFailed, err)
}

func (q *Queue) transition(id string, to Status, cause error) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok || !isValidTransition(job.Status, to) {
		q.mu.Unlock()
		return
	}
	// CurrentStep is left untouched: a completed job reads "done", a
	// failed one names the step that raised the error.
	job.Status = to
	job.Error = ""
	if cause != nil {
		job.Error = cause.Error()
	}
	job.UpdatedAt = time.Now()
	snapshot := cloneJob(job)
	q.mu.Unlock()

	q.persistJob(snapshot)
}

func (q *Queue) hydrateFromStore(ctx context.Context) {
	if q.store == nil {
		return
	}
	loaded, err := q.store.LoadJobs(ctx)
	if err != nil {
		log.Error("Failed to load jobs from store: %v", err)
		return
	}

	now := time.Now()
	orphans := make([]*Job, 0)
	q.mu.Lock()
	for _, raw := range loaded {
		if raw == nil || raw.ID == "" {
			continue
		}
		job := cloneJob(raw)
		// A job still marked running was interrupted mid-pipeline. Side
		// effects of already finished steps may exist, so it is failed
		// rather than silently re-run. The step it was in stays visible.
		if job.Status == StatusRunning {
			job.Status = StatusFailed
			job.Error = "interrupted by worker restart"
			job.UpdatedAt = now
			orphans = append(orphans, cloneJob(job))
		}
		q.jobs[job.ID] = job
	}
	q.mu.Unlock()

	for _, job := range orphans {
		log.Warn("Job %s was running at shutdown, marking failed", job.ID)
		q.persistJob(job)
	}
}

func (q *Queue) persistJob(job *Job) {
	if q.store == nil || job == nil {
		return
	}
	if err := q.store.UpsertJob(context.Background(), job); err != nil {
		log.Error("Failed to persist job %s: %v", job.ID, err)
	}
}

func cloneJob(job *Job) *Job {
	if job == nil {
		return nil
	}
	tmp := *job
	return &tmp
}
