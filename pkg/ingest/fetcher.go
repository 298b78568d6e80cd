// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package ingest implements the two pipelines behind the service: fetching
// a disaster's reports with their PDF attachments into a dataset, and
// processing a fetched dataset into the merged full-text document.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/crisislab/reliefweb-ingest/pkg/core/schema"
	"github.com/crisislab/reliefweb-ingest/pkg/filestore"
	"github.com/crisislab/reliefweb-ingest/pkg/observability/logging"
	"github.com/crisislab/reliefweb-ingest/pkg/reliefweb"
)

// Observer receives progress updates from a running pipeline. Either
// field may be nil.
type Observer struct {
	Progress func(percent int, message string)
	Counters func(totalReports, downloadedPDFs int)
}

func (o Observer) progress(percent int, message string) {
	if o.Progress != nil {
		o.Progress(percent, message)
	}
}

func (o Observer) counters(totalReports, downloadedPDFs int) {
	if o.Counters != nil {
		o.Counters(totalReports, downloadedPDFs)
	}
}

// FetchParams identifies the disaster to fetch reports for.
type FetchParams struct {
	DisasterName string
	CountryCode  string // ISO3
	CountryName  string
}

// FetchSummary describes what a completed fetch produced.
type FetchSummary struct {
	Dataset        string
	TotalReports   int
	DownloadedPDFs int
	JSONFilename   string
	ZipFilename    string
}

// Fetcher downloads a disaster's reports and attachments into a dataset.
type Fetcher struct {
	client *reliefweb.Client
	store  filestore.Store
	logger *logging.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(client *reliefweb.Client, store filestore.Store, logger *logging.Logger) *Fetcher {
	return &Fetcher{client: client, store: store, logger: logger}
}

// Fetch queries ReliefWeb for the disaster's reports, downloads each PDF
// attachment, writes the reports metadata JSON and packages everything
// into a ZIP. Individual download failures are logged and skipped; only
// the report query itself and artifact writes are fatal.
func (f *Fetcher) Fetch(ctx context.Context, params FetchParams, obs Observer) (*FetchSummary, error) {
	obs.progress(0, "Fetching report list from ReliefWeb...")

	reports, err := f.client.Reports(ctx, reliefweb.ReportsQuery{
		DisasterName: params.DisasterName,
		CountryISO3:  params.CountryCode,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch reports: %w", err)
	}

	total := len(reports)
	obs.counters(total, 0)
	obs.progress(0, fmt.Sprintf("Found %d reports. Downloading PDFs...", total))

	dataset := datasetName(params.DisasterName, params.CountryCode, time.Now())
	f.logger.Info("fetch started",
		"dataset", dataset,
		"disaster", params.DisasterName,
		"country", params.CountryName,
		"reports", total)

	totalPDFs := 0
	for i, report := range reports {
		report.Files = f.downloadAttachments(ctx, dataset, report, &totalPDFs)

		percent := int(float64(i+1) / float64(max(total, 1)) * 90)
		obs.counters(total, totalPDFs)
		obs.progress(percent, fmt.Sprintf("Processed %d/%d reports, downloaded %d PDFs...", i+1, total, totalPDFs))
	}

	obs.progress(90, "Creating JSON metadata file...")

	source := &schema.SourceDocument{
		Disaster:       params.DisasterName,
		Country:        params.CountryName,
		CountryCode:    params.CountryCode,
		TotalDocuments: total,
		TotalPDFs:      totalPDFs,
		FetchedOn:      time.Now().Format(time.RFC3339),
		Reports:        reports,
	}
	sourceJSON, err := json.MarshalIndent(source, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal source document: %w", err)
	}

	jsonName := underscored(params.DisasterName) + "_" + params.CountryCode + filestore.MetadataSuffix
	err = f.store.PutArtifact(ctx, &filestore.Artifact{
		Dataset: dataset,
		Name:    jsonName,
		Kind:    filestore.KindMetadata,
		Content: sourceJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("store metadata: %w", err)
	}

	obs.progress(95, "Creating ZIP file...")

	zipName := underscored(params.DisasterName) + "_" + params.CountryCode + "_pdfs.zip"
	archive, err := f.buildArchive(ctx, dataset, reports, jsonName, sourceJSON)
	if err != nil {
		return nil, fmt.Errorf("build archive: %w", err)
	}
	err = f.store.PutArtifact(ctx, &filestore.Artifact{
		Dataset: dataset,
		Name:    zipName,
		Kind:    filestore.KindArchive,
		Content: archive,
	})
	if err != nil {
		return nil, fmt.Errorf("store archive: %w", err)
	}

	obs.progress(100, "Download complete!")
	f.logger.Info("fetch completed", "dataset", dataset, "reports", total, "pdfs", totalPDFs)

	return &FetchSummary{
		Dataset:        dataset,
		TotalReports:   total,
		DownloadedPDFs: totalPDFs,
		JSONFilename:   jsonName,
		ZipFilename:    zipName,
	}, nil
}

// downloadAttachments fetches a report's PDF attachments into the dataset
// and returns the descriptors of the files that made it.
func (f *Fetcher) downloadAttachments(ctx context.Context, dataset string, report *schema.Report, totalPDFs *int) []schema.FileDescriptor {
	var saved []schema.FileDescriptor
	for _, file := range report.Files {
		if file.URL == "" || !strings.Contains(strings.ToLower(file.Filename), "pdf") {
			continue
		}

		content, err := f.client.Download(ctx, file.URL)
		if err != nil {
			f.logger.Warn("download failed",
				"dataset", dataset,
				"report_id", report.ReliefWebID.String(),
				"filename", file.Filename,
				"error", err)
			continue
		}

		safeName := sanitizeFilename(report.ReliefWebID.String() + "_" + file.Filename)
		err = f.store.PutArtifact(ctx, &filestore.Artifact{
			Dataset: dataset,
			Name:    safeName,
			Kind:    filestore.KindPDF,
			Content: content,
		})
		if err != nil {
			f.logger.Warn("store pdf failed",
				"dataset", dataset,
				"filename", safeName,
				"error", err)
			continue
		}

		saved = append(saved, schema.FileDescriptor{
			Filename: safeName,
			Path:     dataset + "/pdfs/" + safeName,
			URL:      file.URL,
			Size:     int64(len(content)),
		})
		*totalPDFs++
	}
	return saved
}

// buildArchive packages the downloaded PDFs and the metadata JSON.
func (f *Fetcher) buildArchive(ctx context.Context, dataset string, reports []*schema.Report, jsonName string, sourceJSON []byte) ([]byte, error) {
	var entries []archiveEntry
	for _, report := range reports {
		for _, file := range report.Files {
			artifact, err := f.store.GetArtifact(ctx, dataset, file.Filename)
			if err != nil {
				f.logger.Warn("pdf missing from store, skipping in archive",
					"dataset", dataset,
					"filename", file.Filename,
					"error", err)
				continue
			}
			entries = append(entries, archiveEntry{Name: file.Filename, Content: artifact.Content})
		}
	}
	entries = append(entries, archiveEntry{Name: jsonName, Content: sourceJSON})
	return buildZip(entries)
}

// datasetName builds the dataset identifier a fetch writes into:
// <disaster>_<ISO3>_<timestamp>, spaces replaced with underscores.
func datasetName(disaster, countryCode string, now time.Time) string {
	return underscored(disaster) + "_" + countryCode + "_" + now.Format("20060102_150405")
}

func underscored(s string) string {
	return strings.ReplaceAll(s, " ", "_")
}

// sanitizeFilename keeps letters, digits, underscores, hyphens and dots.
func sanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
