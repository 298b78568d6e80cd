// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"path"

	"github.com/crisislab/reliefweb-ingest/pkg/core/schema"
	"github.com/crisislab/reliefweb-ingest/pkg/core/state"
	"github.com/crisislab/reliefweb-ingest/pkg/ingest"
	"github.com/crisislab/reliefweb-ingest/pkg/scheduler"
)

// handleListFolders handles GET /api/folders
func (h *Handler) handleListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.artifacts.ListDatasets(r.Context())
	if err != nil {
		h.logger.Error("Failed to list datasets", "error", err)
		h.writeError(w, http.StatusInternalServerError, "list_error", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, folders)
}

// handleProcess handles POST /api/process
func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req schema.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to parse process request", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}
	if req.FolderPath == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing folder_path parameter")
		return
	}

	// Clients may send the dataset name or its full path.
	dataset := path.Base(req.FolderPath)
	if _, err := h.artifacts.ListArtifacts(r.Context(), dataset); err != nil {
		h.writeError(w, http.StatusNotFound, "folder_not_found", "Folder not found: "+req.FolderPath)
		return
	}

	h.logger.Info("New process job", "dataset", dataset)

	job, err := h.scheduler.Submit(r.Context(), state.KindProcess, "Starting PDF text extraction...",
		func(ctx context.Context, tracker *scheduler.Tracker) error {
			summary, err := h.processor.Process(ctx, dataset, ingest.Observer{Progress: tracker.Advance})
			if err != nil {
				return err
			}
			tracker.Update(func(j *state.Job) {
				j.Process.Dataset = summary.Dataset
				j.Process.OutputFilename = summary.OutputFilename
				j.Process.TotalArticles = summary.TotalArticles
				j.Process.ArticlesWithPDF = summary.ArticlesWithPDF
				j.Process.ArticlesWithoutPDF = summary.ArticlesWithoutPDF
				j.Process.TotalPDFsProcessed = summary.TotalPDFsProcessed
				j.Process.MatchingStatistics = summary.MatchingStatistics
				j.Message = "PDF processing complete!"
			})
			return nil
		})
	if err != nil {
		h.logger.Error("Failed to submit process job", "error", err)
		h.writeError(w, http.StatusInternalServerError, "job_error", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, schema.JobRef{JobID: job.ID})
}

// handleProcessStatus handles GET /api/process/status/{id}
func (h *Handler) handleProcessStatus(w http.ResponseWriter, r *http.Request) {
	job := h.getJob(w, r, state.KindProcess)
	if job == nil {
		return
	}
	h.writeJSON(w, http.StatusOK, jobStatus(job))
}

// handleProcessDownload handles GET /api/process/download/{id}
func (h *Handler) handleProcessDownload(w http.ResponseWriter, r *http.Request) {
	job := h.getJob(w, r, state.KindProcess)
	if job == nil {
		return
	}
	if job.Process.Dataset == "" || job.Process.OutputFilename == "" {
		h.writeError(w, http.StatusNotFound, "file_not_found", "Output file not found")
		return
	}
	h.serveArtifact(w, r, job.Process.Dataset, job.Process.OutputFilename, "application/json")
}
