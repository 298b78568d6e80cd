// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package filesystem_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/crisislab/reliefweb-ingest/pkg/filestore"
	"github.com/crisislab/reliefweb-ingest/pkg/filestore/filestoretest"
	"github.com/crisislab/reliefweb-ingest/pkg/filestore/filesystem"
)

func TestFilesystemConformance(t *testing.T) {
	filestoretest.RunConformanceTests(t, func(t *testing.T) filestore.Store {
		store, err := filesystem.New(t.TempDir())
		if err != nil {
			t.Fatalf("filesystem.New: %v", err)
		}
		return store
	})
}

func TestFilesystemLayout(t *testing.T) {
	base := t.TempDir()
	store, err := filesystem.New(base)
	if err != nil {
		t.Fatalf("filesystem.New: %v", err)
	}
	ctx := context.Background()

	dataset := "flood_HTI_20250101_120000"
	put := func(name string, kind filestore.Kind) {
		t.Helper()
		err := store.PutArtifact(ctx, &filestore.Artifact{
			Dataset: dataset,
			Name:    name,
			Kind:    kind,
			Content: []byte("x"),
		})
		if err != nil {
			t.Fatalf("PutArtifact(%s): %v", name, err)
		}
	}
	put("1_map.pdf", filestore.KindPDF)
	put(dataset+"_reports.json", filestore.KindMetadata)

	// PDFs land in a pdfs/ subdirectory, everything else at the dataset root.
	if _, err := os.Stat(filepath.Join(base, dataset, "pdfs", "1_map.pdf")); err != nil {
		t.Errorf("pdf not at expected path: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, dataset, dataset+"_reports.json")); err != nil {
		t.Errorf("metadata not at expected path: %v", err)
	}
}

// Datasets fetched by earlier tooling may keep PDFs flat in the dataset
// directory. Lookups must still find them.
func TestFilesystemFlatPDFLookup(t *testing.T) {
	base := t.TempDir()
	store, err := filesystem.New(base)
	if err != nil {
		t.Fatalf("filesystem.New: %v", err)
	}

	dataset := "storm_PHL_20250101_120000"
	if err := os.MkdirAll(filepath.Join(base, dataset), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, dataset, "1_flat.pdf"), []byte("flat"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetArtifact(context.Background(), dataset, "1_flat.pdf")
	if err != nil {
		t.Fatalf("GetArtifact: %v", err)
	}
	if string(got.Content) != "flat" {
		t.Errorf("content = %q, want %q", got.Content, "flat")
	}
}
