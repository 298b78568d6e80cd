// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package filestoretest provides a shared conformance test suite for
// filestore.Store implementations. Each backend should call
// RunConformanceTests from its own _test.go file.
package filestoretest

import (
	"context"
	"errors"
	"testing"

	"github.com/crisislab/reliefweb-ingest/pkg/filestore"
)

// RunConformanceTests exercises a Store implementation against the shared
// contract. The newStore function is called once per sub-test to provide an
// isolated store instance.
func RunConformanceTests(t *testing.T, newStore func(t *testing.T) filestore.Store) {
	t.Helper()

	t.Run("PutAndGet", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		a := &filestore.Artifact{
			Dataset: "hurricane_maria_HTI_20250101_120000",
			Name:    "123_report.pdf",
			Kind:    filestore.KindPDF,
			Bytes:   8,
			Content: []byte("%PDF-1.4"),
		}

		if err := store.PutArtifact(ctx, a); err != nil {
			t.Fatalf("PutArtifact: %v", err)
		}

		got, err := store.GetArtifact(ctx, a.Dataset, a.Name)
		if err != nil {
			t.Fatalf("GetArtifact: %v", err)
		}
		if got.Dataset != a.Dataset || got.Name != a.Name || got.Kind != filestore.KindPDF {
			t.Errorf("GetArtifact returned unexpected identity: %+v", got)
		}
		if string(got.Content) != string(a.Content) {
			t.Errorf("content mismatch: got %q, want %q", got.Content, a.Content)
		}
		if got.Bytes != int64(len(a.Content)) {
			t.Errorf("Bytes = %d, want %d", got.Bytes, len(a.Content))
		}
	})

	t.Run("KindLayout", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		dataset := "flood_NPL_20250101_120000"
		put := func(name string, kind filestore.Kind) {
			t.Helper()
			err := store.PutArtifact(ctx, &filestore.Artifact{
				Dataset: dataset,
				Name:    name,
				Kind:    kind,
				Content: []byte(name),
			})
			if err != nil {
				t.Fatalf("PutArtifact(%s): %v", name, err)
			}
		}
		put("1_map.pdf", filestore.KindPDF)
		put(dataset+"_reports.json", filestore.KindMetadata)
		put(dataset+"_reports_full_text.json", filestore.KindOutput)
		put(dataset+"_pdfs.zip", filestore.KindArchive)

		// All four artifacts must be retrievable by name alone.
		for _, name := range []string{
			"1_map.pdf",
			dataset + "_reports.json",
			dataset + "_reports_full_text.json",
			dataset + "_pdfs.zip",
		} {
			got, err := store.GetArtifact(ctx, dataset, name)
			if err != nil {
				t.Fatalf("GetArtifact(%s): %v", name, err)
			}
			if string(got.Content) != name {
				t.Errorf("GetArtifact(%s) content = %q", name, got.Content)
			}
		}
	})

	t.Run("ListArtifacts", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		dataset := "earthquake_PAK_20250101_120000"
		names := []string{"3_c.pdf", "1_a.pdf", "2_b.pdf"}
		for _, name := range names {
			err := store.PutArtifact(ctx, &filestore.Artifact{
				Dataset: dataset,
				Name:    name,
				Kind:    filestore.KindPDF,
				Content: []byte("x"),
			})
			if err != nil {
				t.Fatalf("PutArtifact(%s): %v", name, err)
			}
		}

		artifacts, err := store.ListArtifacts(ctx, dataset)
		if err != nil {
			t.Fatalf("ListArtifacts: %v", err)
		}
		if len(artifacts) != 3 {
			t.Fatalf("expected 3 artifacts, got %d", len(artifacts))
		}
		// Sorted by name.
		for i, want := range []string{"1_a.pdf", "2_b.pdf", "3_c.pdf"} {
			if artifacts[i].Name != want {
				t.Errorf("artifacts[%d].Name = %q, want %q", i, artifacts[i].Name, want)
			}
			if artifacts[i].Content != nil {
				t.Errorf("artifacts[%d].Content should be nil in listings", i)
			}
		}
	})

	t.Run("ListDatasets", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		put := func(dataset, name string, kind filestore.Kind) {
			t.Helper()
			err := store.PutArtifact(ctx, &filestore.Artifact{
				Dataset: dataset,
				Name:    name,
				Kind:    kind,
				Content: []byte("x"),
			})
			if err != nil {
				t.Fatalf("PutArtifact(%s/%s): %v", dataset, name, err)
			}
		}

		// Fetched but not yet processed.
		put("storm_PHL_20250101_120000", "1_a.pdf", filestore.KindPDF)
		put("storm_PHL_20250101_120000", "2_b.pdf", filestore.KindPDF)
		put("storm_PHL_20250101_120000", "storm_PHL_20250101_120000_reports.json", filestore.KindMetadata)
		// Fully processed.
		put("flood_HTI_20250101_120000", "flood_HTI_20250101_120000_reports.json", filestore.KindMetadata)
		put("flood_HTI_20250101_120000", "flood_HTI_20250101_120000_reports_full_text.json", filestore.KindOutput)

		folders, err := store.ListDatasets(ctx)
		if err != nil {
			t.Fatalf("ListDatasets: %v", err)
		}
		if len(folders) != 2 {
			t.Fatalf("expected 2 datasets, got %d", len(folders))
		}

		// Sorted by name: flood first.
		flood, storm := folders[0], folders[1]
		if flood.Name != "flood_HTI_20250101_120000" || storm.Name != "storm_PHL_20250101_120000" {
			t.Fatalf("unexpected dataset order: %q, %q", flood.Name, storm.Name)
		}

		if !storm.HasPDFs || storm.PDFCount != 2 {
			t.Errorf("storm: HasPDFs=%v PDFCount=%d, want true/2", storm.HasPDFs, storm.PDFCount)
		}
		if !storm.HasJSON || storm.JSONFile != "storm_PHL_20250101_120000_reports.json" {
			t.Errorf("storm: HasJSON=%v JSONFile=%q", storm.HasJSON, storm.JSONFile)
		}
		if storm.AlreadyProcessed {
			t.Errorf("storm should not be marked processed")
		}

		if !flood.AlreadyProcessed || flood.FullTextFile != "flood_HTI_20250101_120000_reports_full_text.json" {
			t.Errorf("flood: AlreadyProcessed=%v FullTextFile=%q", flood.AlreadyProcessed, flood.FullTextFile)
		}
		if flood.HasPDFs || flood.PDFCount != 0 {
			t.Errorf("flood: HasPDFs=%v PDFCount=%d, want false/0", flood.HasPDFs, flood.PDFCount)
		}
	})

	t.Run("DeleteDataset", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		dataset := "cyclone_USA_20250101_120000"
		err := store.PutArtifact(ctx, &filestore.Artifact{
			Dataset: dataset,
			Name:    "1_a.pdf",
			Kind:    filestore.KindPDF,
			Content: []byte("x"),
		})
		if err != nil {
			t.Fatalf("PutArtifact: %v", err)
		}

		if err := store.DeleteDataset(ctx, dataset); err != nil {
			t.Fatalf("DeleteDataset: %v", err)
		}

		_, err = store.GetArtifact(ctx, dataset, "1_a.pdf")
		if !errors.Is(err, filestore.ErrArtifactNotFound) {
			t.Errorf("expected ErrArtifactNotFound after delete, got: %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		_, err := store.GetArtifact(ctx, "nope", "missing.pdf")
		if !errors.Is(err, filestore.ErrArtifactNotFound) {
			t.Errorf("GetArtifact expected ErrArtifactNotFound, got: %v", err)
		}

		_, err = store.ListArtifacts(ctx, "nope")
		if !errors.Is(err, filestore.ErrArtifactNotFound) {
			t.Errorf("ListArtifacts expected ErrArtifactNotFound, got: %v", err)
		}

		err = store.DeleteDataset(ctx, "nope")
		if !errors.Is(err, filestore.ErrArtifactNotFound) {
			t.Errorf("DeleteDataset expected ErrArtifactNotFound, got: %v", err)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		dataset := "storm_USA_20250101_120000"
		for _, content := range []string{"first", "second"} {
			err := store.PutArtifact(ctx, &filestore.Artifact{
				Dataset: dataset,
				Name:    "1_a.pdf",
				Kind:    filestore.KindPDF,
				Content: []byte(content),
			})
			if err != nil {
				t.Fatalf("PutArtifact(%s): %v", content, err)
			}
		}

		got, err := store.GetArtifact(ctx, dataset, "1_a.pdf")
		if err != nil {
			t.Fatalf("GetArtifact: %v", err)
		}
		if string(got.Content) != "second" {
			t.Errorf("content = %q, want %q", got.Content, "second")
		}
	})
}
