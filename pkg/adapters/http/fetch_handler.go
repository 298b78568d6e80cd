// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/crisislab/reliefweb-ingest/pkg/core/schema"
	"github.com/crisislab/reliefweb-ingest/pkg/core/state"
	"github.com/crisislab/reliefweb-ingest/pkg/ingest"
	"github.com/crisislab/reliefweb-ingest/pkg/scheduler"
)

// handleFetch handles POST /api/fetch
func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	var req schema.FetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to parse fetch request", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}
	if req.DisasterName == "" || req.CountryCode == "" || req.CountryName == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing required parameters")
		return
	}

	h.logger.Info("New fetch job",
		"disaster", req.DisasterName,
		"country", req.CountryName,
		"country_code", req.CountryCode)

	params := ingest.FetchParams{
		DisasterName: req.DisasterName,
		CountryCode:  req.CountryCode,
		CountryName:  req.CountryName,
	}
	job, err := h.scheduler.Submit(r.Context(), state.KindFetch, "Fetching report list from ReliefWeb...",
		func(ctx context.Context, tracker *scheduler.Tracker) error {
			summary, err := h.fetcher.Fetch(ctx, params, fetchObserver(tracker))
			if err != nil {
				return err
			}
			tracker.Update(func(j *state.Job) {
				j.Fetch.Dataset = summary.Dataset
				j.Fetch.JSONFilename = summary.JSONFilename
				j.Fetch.ZipFilename = summary.ZipFilename
				j.Fetch.TotalReports = summary.TotalReports
				j.Fetch.DownloadedPDFs = summary.DownloadedPDFs
				j.Message = "Download complete!"
			})
			return nil
		})
	if err != nil {
		h.logger.Error("Failed to submit fetch job", "error", err)
		h.writeError(w, http.StatusInternalServerError, "job_error", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, schema.JobRef{JobID: job.ID})
}

func fetchObserver(tracker *scheduler.Tracker) ingest.Observer {
	return ingest.Observer{
		Progress: tracker.Advance,
		Counters: func(totalReports, downloadedPDFs int) {
			tracker.Update(func(j *state.Job) {
				j.Fetch.TotalReports = totalReports
				j.Fetch.DownloadedPDFs = downloadedPDFs
			})
		},
	}
}

// handleFetchStatus handles GET /api/status/{id}
func (h *Handler) handleFetchStatus(w http.ResponseWriter, r *http.Request) {
	job := h.getJob(w, r, state.KindFetch)
	if job == nil {
		return
	}
	h.writeJSON(w, http.StatusOK, jobStatus(job))
}

// handleDownloadZip handles GET /api/download/zip/{id}
func (h *Handler) handleDownloadZip(w http.ResponseWriter, r *http.Request) {
	job := h.getJob(w, r, state.KindFetch)
	if job == nil {
		return
	}
	if job.Fetch.Dataset == "" || job.Fetch.ZipFilename == "" {
		h.writeError(w, http.StatusNotFound, "file_not_found", "ZIP file not found")
		return
	}
	h.serveArtifact(w, r, job.Fetch.Dataset, job.Fetch.ZipFilename, "application/zip")
}

// handleDownloadJSON handles GET /api/download/json/{id}
func (h *Handler) handleDownloadJSON(w http.ResponseWriter, r *http.Request) {
	job := h.getJob(w, r, state.KindFetch)
	if job == nil {
		return
	}
	if job.Fetch.Dataset == "" || job.Fetch.JSONFilename == "" {
		h.writeError(w, http.StatusNotFound, "file_not_found", "JSON file not found")
		return
	}
	h.serveArtifact(w, r, job.Fetch.Dataset, job.Fetch.JSONFilename, "application/json")
}
