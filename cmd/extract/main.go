// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Command extract runs the PDF extraction pipeline once over a dataset
// folder on disk, without starting the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/crisislab/reliefweb-ingest/pkg/filestore/filesystem"
	"github.com/crisislab/reliefweb-ingest/pkg/ingest"
	"github.com/crisislab/reliefweb-ingest/pkg/observability/logging"
)

func main() {
	folder := flag.String("folder", "", "Dataset folder containing a *_reports.json file and a pdfs/ subfolder")
	workers := flag.Int("workers", ingest.DefaultWorkers, "Concurrent PDF extractions")
	level := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	if *folder == "" {
		fmt.Fprintln(os.Stderr, "usage: extract -folder <dataset-dir> [-workers N]")
		os.Exit(2)
	}

	logger := logging.New(logging.Config{Level: *level, Format: "text"})

	abs, err := filepath.Abs(*folder)
	if err != nil {
		logger.Error("Failed to resolve folder", "folder", *folder, "error", err)
		os.Exit(1)
	}
	dataset := filepath.Base(abs)

	store, err := filesystem.New(filepath.Dir(abs))
	if err != nil {
		logger.Error("Failed to open dataset folder", "folder", abs, "error", err)
		os.Exit(1)
	}
	ctx := context.Background()
	defer store.Close(ctx)

	processor := ingest.NewProcessor(store, logger, *workers)
	summary, err := processor.Process(ctx, dataset, ingest.Observer{
		Progress: func(progress int, message string) {
			logger.Info("Progress", "percent", progress, "message", message)
		},
	})
	if err != nil {
		logger.Error("Processing failed", "dataset", dataset, "error", err)
		os.Exit(1)
	}

	fmt.Printf("Output written to %s\n", filepath.Join(abs, summary.OutputFilename))
	fmt.Printf("Articles: %d total, %d with PDF text, %d without\n",
		summary.TotalArticles, summary.ArticlesWithPDF, summary.ArticlesWithoutPDF)
	fmt.Printf("PDFs processed: %d\n", summary.TotalPDFsProcessed)
	stats := summary.MatchingStatistics
	fmt.Printf("Matches: exact=%d partial=%d id_prefix=%d reliefweb_id=%d title=%d no_match=%d\n",
		stats.Exact, stats.Partial, stats.IDPrefix, stats.ReliefWebID, stats.Title, stats.NoMatch)
}
