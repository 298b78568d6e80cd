// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory provides an in-memory artifact store for tests and
// ephemeral deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/crisislab/reliefweb-ingest/pkg/core/schema"
	"github.com/crisislab/reliefweb-ingest/pkg/filestore"
)

func init() {
	filestore.Providers.Register("memory", func(_ context.Context, _ map[string]string) (filestore.Store, error) {
		return New(), nil
	})
}

// compile-time check
var _ filestore.Store = (*Store)(nil)

// Store implements filestore.Store backed by process memory.
type Store struct {
	mu       sync.RWMutex
	datasets map[string]map[string]*filestore.Artifact
}

// New creates an empty in-memory Store.
func New() *Store {
	return &Store{datasets: make(map[string]map[string]*filestore.Artifact)}
}

// PutArtifact stores a copy of the artifact.
func (s *Store) PutArtifact(_ context.Context, artifact *filestore.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, ok := s.datasets[artifact.Dataset]
	if !ok {
		ds = make(map[string]*filestore.Artifact)
		s.datasets[artifact.Dataset] = ds
	}
	stored := *artifact
	stored.Content = append([]byte(nil), artifact.Content...)
	stored.Bytes = int64(len(artifact.Content))
	ds[artifact.Name] = &stored
	return nil
}

// GetArtifact returns a copy of the artifact with its content.
func (s *Store) GetArtifact(_ context.Context, dataset, name string) (*filestore.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.datasets[dataset][name]
	if !ok {
		return nil, fmt.Errorf("artifact %s/%s: %w", dataset, name, filestore.ErrArtifactNotFound)
	}
	out := *stored
	out.Content = append([]byte(nil), stored.Content...)
	return &out, nil
}

// ListArtifacts lists the artifacts of a dataset sorted by name, without
// content.
func (s *Store) ListArtifacts(_ context.Context, dataset string) ([]*filestore.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.datasets[dataset]
	if !ok {
		return nil, fmt.Errorf("dataset %s: %w", dataset, filestore.ErrArtifactNotFound)
	}
	var artifacts []*filestore.Artifact
	for _, stored := range ds {
		out := *stored
		out.Content = nil
		artifacts = append(artifacts, &out)
	}
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Name < artifacts[j].Name
	})
	return artifacts, nil
}

// ListDatasets summarizes every dataset, sorted by name.
func (s *Store) ListDatasets(_ context.Context) ([]schema.FolderInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	folders := []schema.FolderInfo{}
	for name, ds := range s.datasets {
		artifacts := make([]*filestore.Artifact, 0, len(ds))
		for _, a := range ds {
			artifacts = append(artifacts, a)
		}
		folders = append(folders, filestore.DatasetInfo(name, name, artifacts))
	}
	sort.Slice(folders, func(i, j int) bool {
		return folders[i].Name < folders[j].Name
	})
	return folders, nil
}

// DeleteDataset removes a dataset and all its artifacts.
func (s *Store) DeleteDataset(_ context.Context, dataset string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.datasets[dataset]; !ok {
		return fmt.Errorf("dataset %s: %w", dataset, filestore.ErrArtifactNotFound)
	}
	delete(s.datasets, dataset)
	return nil
}

// Close is a no-op for the memory store.
func (s *Store) Close(_ context.Context) error {
	return nil
}
