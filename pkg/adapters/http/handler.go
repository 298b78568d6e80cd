// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package http is the HTTP adapter: it exposes the fetch and processing
// pipelines as the service API.
package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/crisislab/reliefweb-ingest/pkg/core/schema"
	"github.com/crisislab/reliefweb-ingest/pkg/core/state"
	"github.com/crisislab/reliefweb-ingest/pkg/filestore"
	"github.com/crisislab/reliefweb-ingest/pkg/ingest"
	"github.com/crisislab/reliefweb-ingest/pkg/observability/logging"
	"github.com/crisislab/reliefweb-ingest/pkg/reliefweb"
	"github.com/crisislab/reliefweb-ingest/pkg/scheduler"
)

// Handler implements the HTTP adapter
type Handler struct {
	logger    *logging.Logger
	mux       *http.ServeMux
	scheduler *scheduler.Scheduler
	jobs      state.JobStore
	artifacts filestore.Store
	client    *reliefweb.Client
	fetcher   *ingest.Fetcher
	processor *ingest.Processor

	countriesMu    sync.Mutex
	countriesCache []schema.Country
}

// New creates a new HTTP handler
func New(logger *logging.Logger, sched *scheduler.Scheduler, jobs state.JobStore, artifacts filestore.Store, client *reliefweb.Client, fetcher *ingest.Fetcher, processor *ingest.Processor) *Handler {
	h := &Handler{
		logger:    logger,
		mux:       http.NewServeMux(),
		scheduler: sched,
		jobs:      jobs,
		artifacts: artifacts,
		client:    client,
		fetcher:   fetcher,
		processor: processor,
	}

	// Fetch API
	h.mux.HandleFunc("POST /api/fetch", h.handleFetch)
	h.mux.HandleFunc("GET /api/status/{id}", h.handleFetchStatus)
	h.mux.HandleFunc("GET /api/download/zip/{id}", h.handleDownloadZip)
	h.mux.HandleFunc("GET /api/download/json/{id}", h.handleDownloadJSON)

	// Processing API
	h.mux.HandleFunc("GET /api/folders", h.handleListFolders)
	h.mux.HandleFunc("POST /api/process", h.handleProcess)
	h.mux.HandleFunc("GET /api/process/status/{id}", h.handleProcessStatus)
	h.mux.HandleFunc("GET /api/process/download/{id}", h.handleProcessDownload)

	// Utility API
	h.mux.HandleFunc("GET /api/countries", h.handleCountries)
	h.mux.HandleFunc("GET /api/health", h.handleHealth)

	return h
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Request",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	h.mux.ServeHTTP(w, r)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "online",
		"message":   "ReliefWeb ingest service is running",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// getJob loads a job of the expected kind, writing a 404 on any miss.
func (h *Handler) getJob(w http.ResponseWriter, r *http.Request, kind state.Kind) *state.Job {
	jobID := r.PathValue("id")
	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil || job.Kind != kind {
		h.writeError(w, http.StatusNotFound, "job_not_found", "Job not found")
		return nil
	}
	return job
}

// jobStatus projects a job record to the wire shape.
func jobStatus(job *state.Job) schema.JobStatus {
	status := schema.JobStatus{
		Status:   string(job.Status),
		Progress: job.Progress,
		Message:  job.Message,
	}
	if f := job.Fetch; f != nil {
		status.TotalReports = f.TotalReports
		status.DownloadedPDFs = f.DownloadedPDFs
	}
	if p := job.Process; p != nil {
		status.TotalArticles = p.TotalArticles
		status.ArticlesWithPDF = p.ArticlesWithPDF
		status.ArticlesWithoutPDF = p.ArticlesWithoutPDF
		status.TotalPDFsProcessed = p.TotalPDFsProcessed
		status.OutputFilename = p.OutputFilename
		if job.Status == state.StatusCompleted {
			stats := p.MatchingStatistics
			status.MatchingStatistics = &stats
		}
	}
	return status
}

// serveArtifact writes an artifact as a file attachment.
func (h *Handler) serveArtifact(w http.ResponseWriter, r *http.Request, dataset, name, contentType string) {
	artifact, err := h.artifacts.GetArtifact(r.Context(), dataset, name)
	if err != nil {
		h.logger.Error("Failed to load artifact", "dataset", dataset, "name", name, "error", err)
		h.writeError(w, http.StatusNotFound, "file_not_found", "File not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Content)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, errType, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"type":    errType,
			"message": message,
		},
	})
}
