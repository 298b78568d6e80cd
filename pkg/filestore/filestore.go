// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package filestore stores the files a job produces: downloaded PDFs, the
// reports metadata JSON, the processed full-text JSON and the packaged
// ZIP. Artifacts are grouped into datasets, one dataset per fetch job.
package filestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/crisislab/reliefweb-ingest/pkg/core/schema"
	"github.com/crisislab/reliefweb-ingest/pkg/provider"
)

// ErrArtifactNotFound is returned when an artifact does not exist.
var ErrArtifactNotFound = errors.New("artifact not found")

// Providers is the registry of artifact store backend implementations.
// Import implementation packages with blank imports to register them:
//
//	import _ "github.com/crisislab/reliefweb-ingest/pkg/filestore/memory"
//	import _ "github.com/crisislab/reliefweb-ingest/pkg/filestore/filesystem"
//	import _ "github.com/crisislab/reliefweb-ingest/pkg/filestore/s3"
var Providers = provider.NewRegistry[Store]("artifact_store")

// Kind classifies an artifact within its dataset.
type Kind string

const (
	KindPDF      Kind = "pdf"      // downloaded report attachment
	KindMetadata Kind = "metadata" // <dataset>_reports.json
	KindOutput   Kind = "output"   // <dataset>_reports_full_text.json
	KindArchive  Kind = "archive"  // packaged ZIP of PDFs + metadata
)

// Name suffixes that identify metadata and output documents.
const (
	MetadataSuffix = "_reports.json"
	OutputSuffix   = "_full_text.json"
)

// KindOfName infers an artifact kind from its file name.
func KindOfName(name string) Kind {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, OutputSuffix):
		return KindOutput
	case strings.HasSuffix(lower, MetadataSuffix):
		return KindMetadata
	case strings.HasSuffix(lower, ".zip"):
		return KindArchive
	default:
		return KindPDF
	}
}

// Artifact is one stored file with dataset-scoped identity.
type Artifact struct {
	Dataset   string
	Name      string
	Kind      Kind
	Bytes     int64
	Content   []byte // populated for PutArtifact input and GetArtifact output; nil from ListArtifacts
	CreatedAt time.Time
}

// Store defines the interface for pluggable artifact storage backends.
type Store interface {
	PutArtifact(ctx context.Context, artifact *Artifact) error
	GetArtifact(ctx context.Context, dataset, name string) (*Artifact, error)
	ListArtifacts(ctx context.Context, dataset string) ([]*Artifact, error)
	ListDatasets(ctx context.Context) ([]schema.FolderInfo, error)
	DeleteDataset(ctx context.Context, dataset string) error
	Close(ctx context.Context) error
}

// DatasetInfo summarizes a dataset's artifacts into the folder listing
// shape. path is backend-specific (absolute directory, bucket prefix, or
// the dataset name itself).
func DatasetInfo(name, path string, artifacts []*Artifact) schema.FolderInfo {
	info := schema.FolderInfo{Name: name, Path: path}
	for _, a := range artifacts {
		switch a.Kind {
		case KindPDF:
			info.HasPDFs = true
			if strings.HasSuffix(strings.ToLower(a.Name), ".pdf") {
				info.PDFCount++
			}
		case KindMetadata:
			info.HasJSON = true
			if info.JSONFile == "" {
				info.JSONFile = a.Name
			}
		case KindOutput:
			info.AlreadyProcessed = true
			if info.FullTextFile == "" {
				info.FullTextFile = a.Name
			}
		}
	}
	return info
}
