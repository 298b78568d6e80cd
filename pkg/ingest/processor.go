// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crisislab/reliefweb-ingest/pkg/core/schema"
	"github.com/crisislab/reliefweb-ingest/pkg/extract"
	"github.com/crisislab/reliefweb-ingest/pkg/filestore"
	"github.com/crisislab/reliefweb-ingest/pkg/match"
	"github.com/crisislab/reliefweb-ingest/pkg/observability/logging"
	"github.com/crisislab/reliefweb-ingest/pkg/pdfdoc"
)

// DefaultWorkers bounds how many PDFs are extracted concurrently.
const DefaultWorkers = 4

// ProcessSummary describes what a completed processing run produced.
type ProcessSummary struct {
	Dataset            string
	OutputFilename     string
	TotalArticles      int
	ArticlesWithPDF    int
	ArticlesWithoutPDF int
	TotalPDFsProcessed int
	MatchingStatistics schema.MatchStats
}

// Processor turns a fetched dataset into the merged full-text document.
type Processor struct {
	store   filestore.Store
	logger  *logging.Logger
	workers int
}

// NewProcessor creates a Processor. workers <= 0 means DefaultWorkers.
func NewProcessor(store filestore.Store, logger *logging.Logger, workers int) *Processor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Processor{store: store, logger: logger, workers: workers}
}

// pdfResult is the outcome of extracting and matching one PDF.
type pdfResult struct {
	filename string
	text     string
	tables   []extract.Table
	report   *schema.Report
	pass     int
}

// Process extracts text from every PDF of the dataset, associates each
// PDF with its report, projects articles and writes the output document
// back into the dataset. Reports that never matched a PDF are appended as
// text-less articles.
func (p *Processor) Process(ctx context.Context, dataset string, obs Observer) (*ProcessSummary, error) {
	obs.progress(0, "Loading source JSON...")

	artifacts, err := p.store.ListArtifacts(ctx, dataset)
	if err != nil {
		return nil, fmt.Errorf("list dataset %s: %w", dataset, err)
	}

	metaName := ""
	var pdfNames []string
	for _, a := range artifacts {
		switch {
		case a.Kind == filestore.KindMetadata && metaName == "":
			metaName = a.Name
		case a.Kind == filestore.KindPDF && strings.HasSuffix(strings.ToLower(a.Name), ".pdf"):
			pdfNames = append(pdfNames, a.Name)
		}
	}
	if metaName == "" {
		return nil, fmt.Errorf("no *%s file found in %s", filestore.MetadataSuffix, dataset)
	}

	meta, err := p.store.GetArtifact(ctx, dataset, metaName)
	if err != nil {
		return nil, fmt.Errorf("load source JSON: %w", err)
	}
	var source schema.SourceDocument
	if err := json.Unmarshal(meta.Content, &source); err != nil {
		return nil, fmt.Errorf("parse source JSON: %w", err)
	}
	reports := source.Reports

	output := newOutputDocument(&source)

	obs.progress(5, "Scanning for PDF files...")
	total := len(pdfNames)
	obs.progress(10, fmt.Sprintf("Found %d PDF files", total))

	results, err := p.extractAll(ctx, dataset, pdfNames, reports, obs)
	if err != nil {
		return nil, err
	}

	reportIndex := make(map[*schema.Report]int, len(reports))
	for i, r := range reports {
		reportIndex[r] = i
	}

	var stats schema.MatchStats
	matched := make(map[int]struct{})
	for _, res := range results {
		article := schema.ArticleFromReport(res.report)
		article.PDFFilename = res.filename
		article.HasPDF = true
		article.PDFText = res.text
		article.PDFTextLength = len(res.text)
		output.Articles = append(output.Articles, article)

		if len(res.tables) > 0 {
			output.PDFTables = append(output.PDFTables, schema.PDFTables{
				PDFFilename: res.filename,
				Tables:      res.tables,
			})
		}

		countPass(&stats, res.pass)
		if res.report != nil {
			matched[reportIndex[res.report]] = struct{}{}
		}
	}

	obs.progress(82, "Adding reports without PDFs...")
	for i, report := range reports {
		if _, ok := matched[i]; ok {
			continue
		}
		output.Articles = append(output.Articles, schema.ArticleFromReport(report))
	}

	output.NDocuments = len(output.Articles)
	if output.PDFTables == nil {
		output.PDFTables = []schema.PDFTables{}
	}
	output.ProcessingMetadata = schema.ProcessingMetadata{
		ProcessingDate:     time.Now().Format(time.RFC3339),
		SourceJSON:         dataset + "/" + metaName,
		PDFDirectory:       dataset + "/pdfs",
		TotalPDFsFound:     total,
		TotalReports:       len(reports),
		MatchingStatistics: stats,
	}

	obs.progress(90, "Saving output JSON...")
	outputName := strings.TrimSuffix(metaName, filestore.MetadataSuffix) + "_reports_full_text.json"
	outputJSON, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal output document: %w", err)
	}
	err = p.store.PutArtifact(ctx, &filestore.Artifact{
		Dataset: dataset,
		Name:    outputName,
		Kind:    filestore.KindOutput,
		Content: outputJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("store output document: %w", err)
	}

	withPDF, withoutPDF := 0, 0
	for _, a := range output.Articles {
		if a.HasPDF {
			withPDF++
		} else {
			withoutPDF++
		}
	}

	obs.progress(100, "Processing complete!")
	p.logger.Info("processing completed",
		"dataset", dataset,
		"articles", output.NDocuments,
		"pdfs", total,
		"output", outputName)

	return &ProcessSummary{
		Dataset:            dataset,
		OutputFilename:     outputName,
		TotalArticles:      output.NDocuments,
		ArticlesWithPDF:    withPDF,
		ArticlesWithoutPDF: withoutPDF,
		TotalPDFsProcessed: total,
		MatchingStatistics: stats,
	}, nil
}

// extractAll runs extraction and matching for every PDF with a bounded
// worker pool. Results come back in input order. A PDF that cannot be
// read yields an empty-text result, never an error: one broken file must
// not sink the run.
func (p *Processor) extractAll(ctx context.Context, dataset string, pdfNames []string, reports []*schema.Report, obs Observer) ([]pdfResult, error) {
	total := len(pdfNames)
	results := make([]pdfResult, total)

	var mu sync.Mutex
	done := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, name := range pdfNames {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, tables := p.extractOne(ctx, dataset, name)
			report, pass := match.Match(name, reports)
			results[i] = pdfResult{
				filename: name,
				text:     text,
				tables:   tables,
				report:   report,
				pass:     pass,
			}

			mu.Lock()
			done++
			percent := 10 + int(float64(done)/float64(max(total, 1))*70)
			mu.Unlock()
			obs.progress(percent, fmt.Sprintf("Processing PDF %d/%d: %s...", done, total, truncate(name, 50)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// extractOne reads one PDF from the dataset and returns its filtered body
// text and detected tables.
func (p *Processor) extractOne(ctx context.Context, dataset, name string) (string, []extract.Table) {
	artifact, err := p.store.GetArtifact(ctx, dataset, name)
	if err != nil {
		p.logger.Warn("load pdf failed", "dataset", dataset, "filename", name, "error", err)
		return "", nil
	}

	pages, pageErrs, err := pdfdoc.ExtractPages(artifact.Content)
	if err != nil {
		p.logger.Warn("extract pdf failed", "dataset", dataset, "filename", name, "error", err)
		return "", nil
	}
	for _, pe := range pageErrs {
		p.logger.Warn("pdf page unreadable", "dataset", dataset, "filename", name, "page", pe.Page, "error", pe.Err)
	}

	var filtered [][]string
	var tables []extract.Table
	for _, page := range pages {
		filtered = append(filtered, extract.FilterPage(page.Text, page.Tables))
		tables = append(tables, page.Tables...)
	}
	return extract.BuildDocument(filtered), tables
}

// newOutputDocument builds the output header, preferring the EM-DAT event
// fields and falling back to the fetch-level metadata.
func newOutputDocument(source *schema.SourceDocument) *schema.OutputDocument {
	out := &schema.OutputDocument{
		DisasterType: source.Disaster,
		Country:      source.Country,
		ISO2:         source.CountryCode,
		Query:        source.Disaster,
		Articles:     []schema.Article{},
	}
	if ev := source.EmdatEvent; ev != nil {
		out.DisNo = ev.DisNo
		if ev.DisasterType != "" {
			out.DisasterType = ev.DisasterType
		}
		if ev.Country != "" {
			out.Country = ev.Country
		}
		if ev.ISO2 != "" {
			out.ISO2 = ev.ISO2
		}
		out.Location = ev.Location
		out.StartDate = ev.StartDate
		if ev.Query != "" {
			out.Query = ev.Query
		}
	}
	return out
}

func countPass(stats *schema.MatchStats, pass int) {
	switch pass {
	case match.PassExact:
		stats.Exact++
	case match.PassNoExtension:
		stats.Partial++
	case match.PassIDPrefix:
		stats.IDPrefix++
	case match.PassReliefWebID:
		stats.ReliefWebID++
	case match.PassTitle:
		stats.Title++
	default:
		stats.NoMatch++
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
