// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/crisislab/reliefweb-ingest/pkg/core/schema"
	"github.com/crisislab/reliefweb-ingest/pkg/filestore/memory"
	"github.com/crisislab/reliefweb-ingest/pkg/reliefweb"
)

func TestFetchDownloadsAndPackages(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/reports":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{
					{
						"id": 101,
						"fields": map[string]any{
							"title":     "Situation Report No. 3",
							"url_alias": "https://reliefweb.int/report/101",
							"body":      "Overview.",
							"source":    []map[string]any{{"name": "OCHA"}},
							"language":  []map[string]any{{"name": "English"}},
							"file": []map[string]any{
								{"url": server.URL + "/files/sitrep 3.pdf", "filename": "sitrep 3.pdf"},
								{"url": server.URL + "/files/photo.jpg", "filename": "photo.jpg"},
								{"url": server.URL + "/files/broken.pdf", "filename": "broken.pdf"},
							},
						},
					},
					{
						"id": 202,
						"fields": map[string]any{
							"title": "Flash Update",
						},
					},
				},
			})
		case r.URL.Path == "/files/sitrep 3.pdf":
			_, _ = w.Write([]byte("%PDF-1.4 sitrep"))
		case r.URL.Path == "/files/broken.pdf":
			http.Error(w, "gone", http.StatusNotFound)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	store := memory.New()
	client := reliefweb.NewClient(server.URL, "test-app")
	f := NewFetcher(client, store, testLogger())

	var lastCounters [2]int
	obs := Observer{Counters: func(total, pdfs int) {
		lastCounters = [2]int{total, pdfs}
	}}

	summary, err := f.Fetch(context.Background(), FetchParams{
		DisasterName: "hurricane maria",
		CountryCode:  "HTI",
		CountryName:  "Haiti",
	}, obs)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if summary.TotalReports != 2 || summary.DownloadedPDFs != 1 {
		t.Errorf("summary = %+v, want 2 reports and 1 PDF", summary)
	}
	if !strings.HasPrefix(summary.Dataset, "hurricane_maria_HTI_") {
		t.Errorf("dataset = %q, want hurricane_maria_HTI_<timestamp>", summary.Dataset)
	}
	if summary.JSONFilename != "hurricane_maria_HTI_reports.json" {
		t.Errorf("json filename = %q", summary.JSONFilename)
	}
	if summary.ZipFilename != "hurricane_maria_HTI_pdfs.zip" {
		t.Errorf("zip filename = %q", summary.ZipFilename)
	}
	if lastCounters != [2]int{2, 1} {
		t.Errorf("final counters = %v, want [2 1]", lastCounters)
	}

	ctx := context.Background()

	// The PDF is stored under its sanitized <id>_<filename> name.
	pdf, err := store.GetArtifact(ctx, summary.Dataset, "101_sitrep3.pdf")
	if err != nil {
		t.Fatalf("stored pdf: %v", err)
	}
	if string(pdf.Content) != "%PDF-1.4 sitrep" {
		t.Errorf("pdf content = %q", pdf.Content)
	}

	// The metadata JSON carries only the files that downloaded.
	meta, err := store.GetArtifact(ctx, summary.Dataset, summary.JSONFilename)
	if err != nil {
		t.Fatalf("stored metadata: %v", err)
	}
	var source schema.SourceDocument
	if err := json.Unmarshal(meta.Content, &source); err != nil {
		t.Fatalf("parse metadata: %v", err)
	}
	if source.Disaster != "hurricane maria" || source.CountryCode != "HTI" || source.Country != "Haiti" {
		t.Errorf("source header = %+v", source)
	}
	if source.TotalDocuments != 2 || source.TotalPDFs != 1 {
		t.Errorf("source totals = %d/%d, want 2/1", source.TotalDocuments, source.TotalPDFs)
	}
	if len(source.Reports) != 2 {
		t.Fatalf("reports = %d, want 2", len(source.Reports))
	}
	first := source.Reports[0]
	if len(first.Files) != 1 || first.Files[0].Filename != "101_sitrep3.pdf" {
		t.Errorf("report files = %+v, want only the downloaded pdf", first.Files)
	}
	if first.Files[0].Size != int64(len("%PDF-1.4 sitrep")) {
		t.Errorf("file size = %d", first.Files[0].Size)
	}
	if len(source.Reports[1].Files) != 0 {
		t.Errorf("report without attachments has files: %+v", source.Reports[1].Files)
	}

	// The ZIP holds the PDF plus the metadata JSON.
	archive, err := store.GetArtifact(ctx, summary.Dataset, summary.ZipFilename)
	if err != nil {
		t.Fatalf("stored archive: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(archive.Content), int64(len(archive.Content)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	names := map[string]bool{}
	for _, file := range zr.File {
		names[file.Name] = true
	}
	if !names["101_sitrep3.pdf"] || !names[summary.JSONFilename] {
		t.Errorf("archive entries = %v", names)
	}
	if len(zr.File) != 2 {
		t.Errorf("archive has %d entries, want 2", len(zr.File))
	}

	rc, err := zr.Open("101_sitrep3.pdf")
	if err != nil {
		t.Fatalf("open archive entry: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read archive entry: %v", err)
	}
	if string(data) != "%PDF-1.4 sitrep" {
		t.Errorf("archive pdf content = %q", data)
	}
}

func TestFetchReportsQueryFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	f := NewFetcher(reliefweb.NewClient(server.URL, "test-app"), memory.New(), testLogger())
	_, err := f.Fetch(context.Background(), FetchParams{
		DisasterName: "flood",
		CountryCode:  "NPL",
		CountryName:  "Nepal",
	}, Observer{})
	if err == nil {
		t.Fatal("expected error when the report query fails")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"101_sitrep 3.pdf", "101_sitrep3.pdf"},
		{"202_report(final).pdf", "202_reportfinal.pdf"},
		{"303_ok-name_v2.pdf", "303_ok-name_v2.pdf"},
		{"404_päivitys.pdf", "404_päivitys.pdf"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Stored datasets must look the same regardless of backend, so the
// processor can consume what the fetcher wrote.
func TestFetchThenProcessRoundTrip(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/reports":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{
					{
						"id": 101,
						"fields": map[string]any{
							"title": "Situation Report No. 3",
							"file": []map[string]any{
								{"url": server.URL + "/files/sitrep.pdf", "filename": "sitrep.pdf"},
							},
						},
					},
				},
			})
		case r.URL.Path == "/files/sitrep.pdf":
			_, _ = w.Write([]byte("not a real pdf"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	store := memory.New()
	f := NewFetcher(reliefweb.NewClient(server.URL, "test-app"), store, testLogger())

	fetched, err := f.Fetch(context.Background(), FetchParams{
		DisasterName: "flood",
		CountryCode:  "NPL",
		CountryName:  "Nepal",
	}, Observer{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	p := NewProcessor(store, testLogger(), 1)
	processed, err := p.Process(context.Background(), fetched.Dataset, Observer{})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if processed.TotalArticles != 1 || processed.ArticlesWithPDF != 1 {
		t.Errorf("processed summary = %+v", processed)
	}
	// The fetcher's saved name matches the report exactly.
	if processed.MatchingStatistics.Exact != 1 {
		t.Errorf("stats = %+v, want exact match", processed.MatchingStatistics)
	}

	if _, err := store.GetArtifact(context.Background(), fetched.Dataset, processed.OutputFilename); err != nil {
		t.Errorf("output artifact missing: %v", err)
	}
}
