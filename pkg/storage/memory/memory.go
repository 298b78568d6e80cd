// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/crisislab/reliefweb-ingest/pkg/core/state"
)

func init() {
	state.Providers.Register("memory", func(_ context.Context, _ map[string]string) (state.JobStore, error) {
		return New(), nil
	})
}

// compile-time check
var _ state.JobStore = (*Store)(nil)

// Store is an in-memory job store.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*state.Job
}

// New creates a new in-memory job store.
func New() *Store {
	return &Store{
		jobs: make(map[string]*state.Job),
	}
}

// CreateJob stores a new job record.
func (s *Store) CreateJob(_ context.Context, job *state.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}

	s.jobs[job.ID] = job.Clone()
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(_ context.Context, jobID string) (*state.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job %s: %w", jobID, state.ErrJobNotFound)
	}

	return job.Clone(), nil
}

// UpdateJob replaces an existing job record.
func (s *Store) UpdateJob(_ context.Context, job *state.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; !exists {
		return fmt.Errorf("job %s: %w", job.ID, state.ErrJobNotFound)
	}

	s.jobs[job.ID] = job.Clone()
	return nil
}

// ListJobs returns all jobs ordered by creation time, newest first.
func (s *Store) ListJobs(_ context.Context) ([]*state.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*state.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.Clone())
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs, nil
}

// DeleteJobsBefore removes terminal jobs last updated before the cutoff.
func (s *Store) DeleteJobsBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, job := range s.jobs {
		if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }
