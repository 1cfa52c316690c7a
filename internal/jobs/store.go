package jobs

import "context"

// Store persists job rows so queued work and finished results survive a
// process restart.
type Store interface {
	LoadJobs(ctx context.Context) ([]*Job, error)
	UpsertJob(ctx context.Context, job *Job) error
}
