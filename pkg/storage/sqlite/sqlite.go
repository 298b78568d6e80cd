// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/crisislab/reliefweb-ingest/pkg/core/state"

	_ "modernc.org/sqlite"
)

func init() {
	state.Providers.Register("sqlite", func(_ context.Context, params map[string]string) (state.JobStore, error) {
		return New(params["path"])
	})
}

// compile-time check
var _ state.JobStore = (*Store)(nil)

// Store is a SQLite-backed job store. Suitable for single-node
// deployments that need job history to survive restarts.
type Store struct {
	db *sql.DB
}

// New creates a SQLite store at the given database file path.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite job store: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		message TEXT NOT NULL DEFAULT '',
		fetch TEXT,
		process TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create jobs table: %w", err)
	}
	return nil
}

// CreateJob inserts a new job record.
func (s *Store) CreateJob(ctx context.Context, job *state.Job) error {
	fetch, process, err := encodeResults(job)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, kind, status, progress, message, fetch, process, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.Kind), string(job.Status), job.Progress, job.Message,
		fetch, process, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*state.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, status, progress, message, fetch, process, created_at, updated_at
		 FROM jobs WHERE id = ?`, jobID)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", jobID, state.ErrJobNotFound)
	}
	return job, err
}

// UpdateJob replaces an existing job record.
func (s *Store) UpdateJob(ctx context.Context, job *state.Job) error {
	fetch, process, err := encodeResults(job)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, progress = ?, message = ?, fetch = ?, process = ?, updated_at = ?
		 WHERE id = ?`,
		string(job.Status), job.Progress, job.Message, fetch, process, job.UpdatedAt, job.ID)
	if err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s: %w", job.ID, state.ErrJobNotFound)
	}
	return nil
}

// ListJobs returns all jobs ordered by creation time, newest first.
func (s *Store) ListJobs(ctx context.Context) ([]*state.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, status, progress, message, fetch, process, created_at, updated_at
		 FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*state.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// DeleteJobsBefore removes terminal jobs last updated before the cutoff.
func (s *Store) DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE status IN (?, ?) AND updated_at < ?`,
		string(state.StatusCompleted), string(state.StatusError), cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete jobs: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func encodeResults(job *state.Job) (fetch, process sql.NullString, err error) {
	if job.Fetch != nil {
		data, err := json.Marshal(job.Fetch)
		if err != nil {
			return fetch, process, fmt.Errorf("encode fetch result: %w", err)
		}
		fetch = sql.NullString{String: string(data), Valid: true}
	}
	if job.Process != nil {
		data, err := json.Marshal(job.Process)
		if err != nil {
			return fetch, process, fmt.Errorf("encode process result: %w", err)
		}
		process = sql.NullString{String: string(data), Valid: true}
	}
	return fetch, process, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*state.Job, error) {
	var (
		job            state.Job
		kind, status   string
		fetch, process sql.NullString
	)
	err := row.Scan(&job.ID, &kind, &status, &job.Progress, &job.Message,
		&fetch, &process, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}

	job.Kind = state.Kind(kind)
	job.Status = state.Status(status)
	if fetch.Valid {
		job.Fetch = &state.FetchResult{}
		if err := json.Unmarshal([]byte(fetch.String), job.Fetch); err != nil {
			return nil, fmt.Errorf("decode fetch result: %w", err)
		}
	}
	if process.Valid {
		job.Process = &state.ProcessResult{}
		if err := json.Unmarshal([]byte(process.String), job.Process); err != nil {
			return nil, fmt.Errorf("decode process result: %w", err)
		}
	}
	return &job, nil
}
