// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package scheduler runs fetch and processing jobs in the background and
// owns every job state transition. Handlers submit work and poll the job
// store; they never mutate job records themselves.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crisislab/reliefweb-ingest/pkg/core/state"
	"github.com/crisislab/reliefweb-ingest/pkg/observability/logging"
)

// DefaultTTL is how long terminal jobs are kept before the sweeper
// removes them.
const DefaultTTL = 24 * time.Hour

const sweepInterval = 10 * time.Minute

// JobFunc is the body of a background job. It reports progress through
// the tracker and returns an error to mark the job failed.
type JobFunc func(ctx context.Context, tracker *Tracker) error

// Scheduler runs jobs and sweeps expired ones.
type Scheduler struct {
	store  state.JobStore
	logger *logging.Logger
	ttl    time.Duration

	// Serializes read-modify-write cycles on job records.
	mu sync.Mutex

	jobCtx    context.Context
	cancelAll context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a Scheduler. A ttl of zero means DefaultTTL.
func New(store state.JobStore, logger *logging.Logger, ttl time.Duration) *Scheduler {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	// Jobs outlive the HTTP request that submitted them, so they run
	// under a scheduler-owned context instead of the request context.
	jobCtx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:     store,
		logger:    logger,
		ttl:       ttl,
		jobCtx:    jobCtx,
		cancelAll: cancel,
	}
}

// Submit registers a pending job and starts fn in a goroutine. The
// returned job is a snapshot of the initial record.
func (s *Scheduler) Submit(ctx context.Context, kind state.Kind, message string, fn JobFunc) (*state.Job, error) {
	now := time.Now().UTC()
	job := &state.Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    state.StatusPending,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch kind {
	case state.KindFetch:
		job.Fetch = &state.FetchResult{}
	case state.KindProcess:
		job.Process = &state.ProcessResult{}
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(job.ID, kind, fn)
	}()

	return job.Clone(), nil
}

func (s *Scheduler) run(jobID string, kind state.Kind, fn JobFunc) {
	tracker := &Tracker{sched: s, jobID: jobID}
	tracker.Update(func(j *state.Job) {
		j.Status = state.StatusRunning
	})

	err := fn(s.jobCtx, tracker)

	tracker.Update(func(j *state.Job) {
		if err != nil {
			j.Status = state.StatusError
			j.Message = err.Error()
			return
		}
		j.Status = state.StatusCompleted
		j.Progress = 100
	})

	if err != nil {
		s.logger.Error("job failed", "job_id", jobID, "kind", kind, "error", err)
		return
	}
	s.logger.Info("job completed", "job_id", jobID, "kind", kind)
}

// Run sweeps expired terminal jobs until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.ttl)
	removed, err := s.store.DeleteJobsBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("job sweep failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("swept expired jobs", "removed", removed)
	}
}

// Shutdown cancels running jobs and waits for them to finish, or for ctx
// to expire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.cancelAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tracker lets a running job publish progress and results.
type Tracker struct {
	sched *Scheduler
	jobID string
}

// JobID returns the ID of the tracked job.
func (t *Tracker) JobID() string {
	return t.jobID
}

// Advance sets the job's progress percentage and message.
func (t *Tracker) Advance(progress int, message string) {
	t.Update(func(j *state.Job) {
		j.Progress = progress
		j.Message = message
	})
}

// Update applies mutate to the job record under the scheduler's lock and
// persists the result. Store errors are logged, not returned: a job must
// not abort because a progress write failed.
func (t *Tracker) Update(mutate func(*state.Job)) {
	s := t.sched
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	job, err := s.store.GetJob(ctx, t.jobID)
	if err != nil {
		s.logger.Error("load job for update", "job_id", t.jobID, "error", err)
		return
	}
	mutate(job)
	job.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateJob(ctx, job); err != nil {
		s.logger.Error("persist job update", "job_id", t.jobID, "error", err)
	}
}
