// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/crisislab/reliefweb-ingest/pkg/core/schema"
	"github.com/crisislab/reliefweb-ingest/pkg/filestore"
)

func init() {
	filestore.Providers.Register("filesystem", func(_ context.Context, params map[string]string) (filestore.Store, error) {
		return New(params["base_dir"])
	})
}

// compile-time check
var _ filestore.Store = (*Store)(nil)

// Store implements filestore.Store backed by a local filesystem.
//
// Layout:
//
//	<baseDir>/<dataset>/pdfs/<name>  — downloaded report attachments
//	<baseDir>/<dataset>/<name>       — metadata, output and archive files
type Store struct {
	baseDir string
}

// New creates a filesystem-backed Store, creating baseDir if it does not exist.
func New(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir %s: %w", baseDir, err)
	}
	return &Store{baseDir: baseDir}, nil
}

// BaseDir returns the root directory artifacts are stored under.
func (s *Store) BaseDir() string {
	return s.baseDir
}

func (s *Store) artifactPath(dataset, name string, kind filestore.Kind) string {
	if kind == filestore.KindPDF {
		return filepath.Join(s.baseDir, dataset, "pdfs", name)
	}
	return filepath.Join(s.baseDir, dataset, name)
}

// PutArtifact writes the artifact content to disk atomically.
func (s *Store) PutArtifact(_ context.Context, artifact *filestore.Artifact) error {
	path := s.artifactPath(artifact.Dataset, artifact.Name, artifact.Kind)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}

	// Write content atomically (temp file + rename)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, artifact.Content, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}

// GetArtifact returns the artifact with its content.
func (s *Store) GetArtifact(_ context.Context, dataset, name string) (*filestore.Artifact, error) {
	kind := filestore.KindOfName(name)
	path := s.artifactPath(dataset, name, kind)
	info, err := os.Stat(path)
	if err != nil {
		// PDFs and flat files share a namespace on input; try the other
		// location before giving up.
		if kind == filestore.KindPDF {
			path = filepath.Join(s.baseDir, dataset, name)
			info, err = os.Stat(path)
		}
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("artifact %s/%s: %w", dataset, name, filestore.ErrArtifactNotFound)
			}
			return nil, fmt.Errorf("stat artifact: %w", err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return &filestore.Artifact{
		Dataset:   dataset,
		Name:      name,
		Kind:      kind,
		Bytes:     info.Size(),
		Content:   data,
		CreatedAt: info.ModTime(),
	}, nil
}

// ListArtifacts lists the artifacts of a dataset, sorted by name. Content
// is not loaded.
func (s *Store) ListArtifacts(_ context.Context, dataset string) ([]*filestore.Artifact, error) {
	dir := filepath.Join(s.baseDir, dataset)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("dataset %s: %w", dataset, filestore.ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("read dataset dir: %w", err)
	}

	var artifacts []*filestore.Artifact
	for _, entry := range entries {
		if entry.IsDir() {
			if entry.Name() != "pdfs" {
				continue
			}
			pdfs, err := os.ReadDir(filepath.Join(dir, "pdfs"))
			if err != nil {
				return nil, fmt.Errorf("read pdfs dir: %w", err)
			}
			for _, pdf := range pdfs {
				if pdf.IsDir() {
					continue
				}
				a, err := artifactEntry(dataset, pdf, filestore.KindPDF)
				if err != nil {
					continue
				}
				artifacts = append(artifacts, a)
			}
			continue
		}
		if strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		a, err := artifactEntry(dataset, entry, filestore.KindOfName(entry.Name()))
		if err != nil {
			continue
		}
		artifacts = append(artifacts, a)
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Name < artifacts[j].Name
	})
	return artifacts, nil
}

// ListDatasets summarizes every dataset directory under the base dir,
// sorted by name.
func (s *Store) ListDatasets(ctx context.Context) ([]schema.FolderInfo, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read base dir: %w", err)
	}

	folders := []schema.FolderInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		artifacts, err := s.ListArtifacts(ctx, entry.Name())
		if err != nil {
			continue // skip unreadable entries
		}
		path := filepath.Join(s.baseDir, entry.Name())
		folders = append(folders, filestore.DatasetInfo(entry.Name(), path, artifacts))
	}

	sort.Slice(folders, func(i, j int) bool {
		return folders[i].Name < folders[j].Name
	})
	return folders, nil
}

// DeleteDataset removes the dataset directory and all its contents.
func (s *Store) DeleteDataset(_ context.Context, dataset string) error {
	dir := filepath.Join(s.baseDir, dataset)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("dataset %s: %w", dataset, filestore.ErrArtifactNotFound)
		}
		return fmt.Errorf("stat dataset dir: %w", err)
	}
	return os.RemoveAll(dir)
}

// Close is a no-op for the filesystem store.
func (s *Store) Close(_ context.Context) error {
	return nil
}

func artifactEntry(dataset string, entry os.DirEntry, kind filestore.Kind) (*filestore.Artifact, error) {
	info, err := entry.Info()
	if err != nil {
		return nil, err
	}
	return &filestore.Artifact{
		Dataset:   dataset,
		Name:      entry.Name(),
		Kind:      kind,
		Bytes:     info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}
