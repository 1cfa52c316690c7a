package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func newMemoryStore() *memoryStore {
	return &memoryStore{jobs: make(map[string]*Job)}
}

func (m *memoryStore) LoadJobs(_ context.Context) ([]*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ret := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		ret = append(ret, cloneJob(j))
	}
	return ret, nil
}

func (m *memoryStore) UpsertJob(_ context.Context, job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = cloneJob(job)
	return nil
}

func (m *memoryStore) get(id string) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneJob(m.jobs[id])
}

func TestQueue_RedispatchesQueuedJobsFromStore(t *testing.T) {
	store := newMemoryStore()
	now := time.Now()
	store.jobs["a"] = &Job{ID: "a", SessionID: "s1", Status: StatusQueued, CreatedAt: now, UpdatedAt: now}

	q := NewQueue(1, store)
	q.Start(func(_ context.Context, _ *Job) error { return nil })
	defer q.Stop()

	require.Eventually(t, func() bool {
		got, ok := q.Get("a")
		return ok && got.Status == StatusCompleted
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, StatusCompleted, store.get("a").Status)
}

func TestQueue_MarksInterruptedRunningJobsFailed(t *testing.T) {
	store := newMemoryStore()
	now := time.Now()
	store.jobs["b"] = &Job{
		ID:          "b",
		SessionID:   "s2",
		Status:      StatusRunning,
		CurrentStep: "diarization",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	q := NewQueue(1, store)

	got, ok := q.Get("b")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.Error, "restart")
	assert.Equal(t, "diarization", got.CurrentStep)

	persisted := store.get("b")
	require.NotNil(t, persisted)
	assert.Equal(t, StatusFailed, persisted.Status)
	assert.Equal(t, "diarization", persisted.CurrentStep)
}

func TestQueue_TerminalJobsSurviveHydration(t *testing.T) {
	store := newMemoryStore()
	now := time.Now()
	store.jobs["done"] = &Job{ID: "done", Status: StatusCompleted, CreatedAt: now, UpdatedAt: now}
	store.jobs["bad"] = &Job{ID: "bad", Status: StatusFailed, Error: "boom", CreatedAt: now, UpdatedAt: now}

	q := NewQueue(1, store)

	got, ok := q.Get("done")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, got.Status)

	got, ok = q.Get("bad")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)
}
