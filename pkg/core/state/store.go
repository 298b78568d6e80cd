// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package state defines the job registry types and the storage interface
// job records persist through.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/crisislab/reliefweb-ingest/pkg/core/schema"
	"github.com/crisislab/reliefweb-ingest/pkg/provider"
)

// ErrJobNotFound is returned when a job ID is unknown.
var ErrJobNotFound = errors.New("job not found")

// Providers is the registry of job store backend implementations.
// Import implementation packages with blank imports to register them:
//
//	import _ "github.com/crisislab/reliefweb-ingest/pkg/storage/memory"
//	import _ "github.com/crisislab/reliefweb-ingest/pkg/storage/sqlite"
//	import _ "github.com/crisislab/reliefweb-ingest/pkg/storage/postgres"
var Providers = provider.NewRegistry[JobStore]("job_store")

// Kind of background job.
type Kind string

const (
	KindFetch   Kind = "fetch"   // query ReliefWeb, download PDFs, package dataset
	KindProcess Kind = "process" // extract text, match, merge output JSON
)

// Status of a job. Transitions are linear: pending → running →
// completed | error.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// FetchResult tracks a fetch job's counters and, once completed, the
// artifacts it produced.
type FetchResult struct {
	TotalReports   int    `json:"total_reports"`
	DownloadedPDFs int    `json:"downloaded_pdfs"`
	Dataset        string `json:"dataset,omitempty"`
	JSONFilename   string `json:"json_filename,omitempty"`
	ZipFilename    string `json:"zip_filename,omitempty"`
}

// ProcessResult tracks a processing job's counters and output.
type ProcessResult struct {
	TotalArticles      int               `json:"total_articles"`
	ArticlesWithPDF    int               `json:"articles_with_pdf"`
	ArticlesWithoutPDF int               `json:"articles_without_pdf"`
	TotalPDFsProcessed int               `json:"total_pdfs_processed"`
	MatchingStatistics schema.MatchStats `json:"matching_statistics"`
	Dataset            string            `json:"dataset,omitempty"`
	OutputFilename     string            `json:"output_filename,omitempty"`
}

// Job is one registry entry. Jobs are mutated only through the
// scheduler's transition operations, never directly by handlers.
type Job struct {
	ID       string
	Kind     Kind
	Status   Status
	Progress int
	Message  string

	Fetch   *FetchResult
	Process *ProcessResult

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so callers can read a job without racing the
// scheduler's updates.
func (j *Job) Clone() *Job {
	cp := *j
	if j.Fetch != nil {
		f := *j.Fetch
		cp.Fetch = &f
	}
	if j.Process != nil {
		p := *j.Process
		cp.Process = &p
	}
	return &cp
}

// JobStore persists job records.
type JobStore interface {
	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, jobID string) (*Job, error)
	UpdateJob(ctx context.Context, job *Job) error
	ListJobs(ctx context.Context) ([]*Job, error)

	// DeleteJobsBefore removes terminal jobs last updated before the
	// cutoff and returns how many were removed.
	DeleteJobsBefore(ctx context.Context, cutoff time.Time) (int, error)

	Close() error
}
