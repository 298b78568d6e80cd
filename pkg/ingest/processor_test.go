// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/crisislab/reliefweb-ingest/pkg/core/schema"
	"github.com/crisislab/reliefweb-ingest/pkg/filestore"
	"github.com/crisislab/reliefweb-ingest/pkg/filestore/memory"
	"github.com/crisislab/reliefweb-ingest/pkg/observability/logging"
)

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Level: "error", Output: io.Discard})
}

func seedDataset(t *testing.T, store filestore.Store, dataset string, source *schema.SourceDocument, pdfs map[string][]byte) {
	t.Helper()
	ctx := context.Background()

	content, err := json.MarshalIndent(source, "", "  ")
	if err != nil {
		t.Fatalf("marshal source: %v", err)
	}
	err = store.PutArtifact(ctx, &filestore.Artifact{
		Dataset: dataset,
		Name:    dataset + "_reports.json",
		Kind:    filestore.KindMetadata,
		Content: content,
	})
	if err != nil {
		t.Fatalf("put metadata: %v", err)
	}

	for name, data := range pdfs {
		err = store.PutArtifact(ctx, &filestore.Artifact{
			Dataset: dataset,
			Name:    name,
			Kind:    filestore.KindPDF,
			Content: data,
		})
		if err != nil {
			t.Fatalf("put pdf %s: %v", name, err)
		}
	}
}

func TestProcessMatchesAndAppendsUnmatched(t *testing.T) {
	store := memory.New()
	dataset := "hurricane_maria_HTI_20250101_120000"

	source := &schema.SourceDocument{
		Disaster:    "hurricane maria",
		Country:     "Haiti",
		CountryCode: "HTI",
		Reports: []*schema.Report{
			{
				ReliefWebID: "101",
				Title:       "Situation Report No. 3",
				Date:        schema.DateInfo{Created: "2025-01-01T00:00:00+00:00"},
				URL:         "https://reliefweb.int/report/101",
				Sources:     schema.NameList{"OCHA"},
				BodyText:    "Situation overview.",
				Files: []schema.FileDescriptor{
					{Filename: "101_sitrep3.pdf"},
				},
			},
			{
				ReliefWebID: "202",
				Title:       "Flash Update",
				URLAlias:    "https://reliefweb.int/report/202",
				Source:      schema.NameList{"IFRC"},
			},
		},
	}

	// Deliberately not valid PDF bytes: extraction failure must degrade to
	// empty text, not abort the run.
	seedDataset(t, store, dataset, source, map[string][]byte{
		"101_sitrep3.pdf": []byte("not a pdf"),
		"999_orphan.pdf":  []byte("not a pdf"),
	})

	p := NewProcessor(store, testLogger(), 2)
	summary, err := p.Process(context.Background(), dataset, Observer{})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if summary.TotalArticles != 3 {
		t.Errorf("TotalArticles = %d, want 3", summary.TotalArticles)
	}
	if summary.ArticlesWithPDF != 2 || summary.ArticlesWithoutPDF != 1 {
		t.Errorf("with/without = %d/%d, want 2/1", summary.ArticlesWithPDF, summary.ArticlesWithoutPDF)
	}
	if summary.TotalPDFsProcessed != 2 {
		t.Errorf("TotalPDFsProcessed = %d, want 2", summary.TotalPDFsProcessed)
	}
	if summary.MatchingStatistics.Exact != 1 || summary.MatchingStatistics.NoMatch != 1 {
		t.Errorf("stats = %+v, want one exact and one no_match", summary.MatchingStatistics)
	}
	wantOutput := dataset + "_reports_full_text.json"
	if summary.OutputFilename != wantOutput {
		t.Errorf("OutputFilename = %q, want %q", summary.OutputFilename, wantOutput)
	}

	artifact, err := store.GetArtifact(context.Background(), dataset, wantOutput)
	if err != nil {
		t.Fatalf("output artifact: %v", err)
	}
	var output schema.OutputDocument
	if err := json.Unmarshal(artifact.Content, &output); err != nil {
		t.Fatalf("parse output: %v", err)
	}

	if output.NDocuments != 3 || len(output.Articles) != 3 {
		t.Fatalf("NDocuments = %d, articles = %d, want 3", output.NDocuments, len(output.Articles))
	}

	// PDFs first, sorted by filename; unmatched reports after.
	matched := output.Articles[0]
	if matched.PDFFilename != "101_sitrep3.pdf" || !matched.HasPDF {
		t.Errorf("articles[0] = %+v, want matched PDF first", matched)
	}
	if matched.Title != "Situation Report No. 3" || matched.URL != "https://reliefweb.int/report/101" {
		t.Errorf("matched article missing report projection: %+v", matched)
	}

	orphan := output.Articles[1]
	if orphan.PDFFilename != "999_orphan.pdf" || orphan.Title != "" {
		t.Errorf("articles[1] = %+v, want unmatched PDF with empty projection", orphan)
	}
	if orphan.Sources == nil {
		t.Errorf("unmatched article sources must be an empty list, not null")
	}

	noPDF := output.Articles[2]
	if noPDF.HasPDF || noPDF.Title != "Flash Update" {
		t.Errorf("articles[2] = %+v, want text-less report article", noPDF)
	}
	if noPDF.URL != "https://reliefweb.int/report/202" {
		t.Errorf("text-less article url = %q, want alias fallback", noPDF.URL)
	}
	if noPDF.PDFTextLength != 0 || noPDF.PDFText != "" {
		t.Errorf("text-less article carries pdf text: %+v", noPDF)
	}

	if output.DisasterType != "hurricane maria" || output.ISO2 != "HTI" {
		t.Errorf("header fallbacks not applied: %+v", output)
	}
	if output.ProcessingMetadata.TotalReports != 2 || output.ProcessingMetadata.TotalPDFsFound != 2 {
		t.Errorf("processing metadata totals: %+v", output.ProcessingMetadata)
	}
}

func TestProcessEmdatHeaderPreferred(t *testing.T) {
	store := memory.New()
	dataset := "flood_NPL_20250101_120000"

	source := &schema.SourceDocument{
		Disaster:    "flood",
		Country:     "Nepal",
		CountryCode: "NPL",
		EmdatEvent: &schema.EmdatEvent{
			DisNo:        "2025-0042-NPL",
			DisasterType: "Flood",
			Country:      "Nepal",
			ISO2:         "NP",
			Location:     "Koshi Province",
			StartDate:    "2025-06-14",
			Query:        "nepal flood 2025",
		},
		Reports: []*schema.Report{},
	}
	seedDataset(t, store, dataset, source, nil)

	p := NewProcessor(store, testLogger(), 1)
	summary, err := p.Process(context.Background(), dataset, Observer{})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if summary.TotalArticles != 0 {
		t.Errorf("TotalArticles = %d, want 0", summary.TotalArticles)
	}

	artifact, err := store.GetArtifact(context.Background(), dataset, summary.OutputFilename)
	if err != nil {
		t.Fatalf("output artifact: %v", err)
	}
	var output schema.OutputDocument
	if err := json.Unmarshal(artifact.Content, &output); err != nil {
		t.Fatalf("parse output: %v", err)
	}

	if output.DisNo != "2025-0042-NPL" || output.ISO2 != "NP" || output.Location != "Koshi Province" {
		t.Errorf("event header not applied: %+v", output)
	}
	if output.StartDate != "2025-06-14" || output.Query != "nepal flood 2025" {
		t.Errorf("event header not applied: %+v", output)
	}

	// Empty runs still emit arrays, not nulls.
	if !strings.Contains(string(artifact.Content), `"articles": []`) {
		t.Errorf("articles should marshal as an empty array")
	}
	if !strings.Contains(string(artifact.Content), `"pdf_tables": []`) {
		t.Errorf("pdf_tables should marshal as an empty array")
	}
}

func TestProcessMissingMetadata(t *testing.T) {
	store := memory.New()
	dataset := "storm_PHL_20250101_120000"
	err := store.PutArtifact(context.Background(), &filestore.Artifact{
		Dataset: dataset,
		Name:    "1_a.pdf",
		Kind:    filestore.KindPDF,
		Content: []byte("x"),
	})
	if err != nil {
		t.Fatalf("put pdf: %v", err)
	}

	p := NewProcessor(store, testLogger(), 1)
	_, err = p.Process(context.Background(), dataset, Observer{})
	if err == nil || !strings.Contains(err.Error(), "_reports.json") {
		t.Fatalf("expected missing metadata error, got: %v", err)
	}
}

func TestProcessProgressSequence(t *testing.T) {
	store := memory.New()
	dataset := "quake_PAK_20250101_120000"
	source := &schema.SourceDocument{
		Disaster:    "earthquake",
		CountryCode: "PAK",
		Reports:     []*schema.Report{},
	}
	seedDataset(t, store, dataset, source, map[string][]byte{
		"1_a.pdf": []byte("x"),
	})

	var percents []int
	obs := Observer{Progress: func(percent int, _ string) {
		percents = append(percents, percent)
	}}

	p := NewProcessor(store, testLogger(), 1)
	if _, err := p.Process(context.Background(), dataset, obs); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(percents) == 0 || percents[0] != 0 || percents[len(percents)-1] != 100 {
		t.Fatalf("progress sequence = %v, want 0 first and 100 last", percents)
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Errorf("progress went backwards at %d: %v", i, percents)
		}
	}
}
