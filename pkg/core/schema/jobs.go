// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// FetchRequest starts a fetch job: query ReliefWeb for reports about a
// disaster in a country and download their PDF attachments.
type FetchRequest struct {
	DisasterName string `json:"disaster_name"`
	CountryCode  string `json:"country_code"`
	CountryName  string `json:"country_name"`
}

// ProcessRequest starts a processing job for a previously fetched dataset
// folder.
type ProcessRequest struct {
	FolderPath string `json:"folder_path"`
}

// JobRef is returned when a job is accepted.
type JobRef struct {
	JobID string `json:"job_id"`
}

// JobStatus is the wire shape of a job's current state.
type JobStatus struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`

	// Fetch jobs.
	TotalReports   int `json:"total_reports,omitempty"`
	DownloadedPDFs int `json:"downloaded_pdfs,omitempty"`

	// Processing jobs.
	TotalArticles      int         `json:"total_articles,omitempty"`
	ArticlesWithPDF    int         `json:"articles_with_pdf,omitempty"`
	ArticlesWithoutPDF int         `json:"articles_without_pdf,omitempty"`
	TotalPDFsProcessed int         `json:"total_pdfs_processed,omitempty"`
	MatchingStatistics *MatchStats `json:"matching_statistics,omitempty"`
	OutputFilename     string      `json:"output_filename,omitempty"`
}

// FolderInfo describes one fetched dataset folder on disk.
type FolderInfo struct {
	Name             string `json:"name"`
	Path             string `json:"path"`
	HasPDFs          bool   `json:"has_pdfs"`
	HasJSON          bool   `json:"has_json"`
	PDFCount         int    `json:"pdf_count"`
	JSONFile         string `json:"json_file,omitempty"`
	AlreadyProcessed bool   `json:"already_processed"`
	FullTextFile     string `json:"full_text_file,omitempty"`
}

// Country is one entry of the countries listing.
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
