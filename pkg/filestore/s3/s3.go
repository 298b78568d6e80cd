// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/crisislab/reliefweb-ingest/pkg/core/schema"
	"github.com/crisislab/reliefweb-ingest/pkg/filestore"
)

func init() {
	filestore.Providers.Register("s3", func(ctx context.Context, params map[string]string) (filestore.Store, error) {
		return New(ctx, Options{
			Bucket:   params["bucket"],
			Region:   params["region"],
			Prefix:   params["prefix"],
			Endpoint: params["endpoint"],
		})
	})
}

// compile-time check
var _ filestore.Store = (*Store)(nil)

// Options configures the S3 backend.
type Options struct {
	Bucket   string // required
	Region   string // e.g. "us-east-1"
	Prefix   string // key prefix, e.g. "datasets/"
	Endpoint string // custom endpoint for MinIO compatibility
}

// Store implements filestore.Store backed by S3 (or MinIO).
//
// Object layout:
//
//	<prefix><dataset>/pdfs/<name>  — downloaded report attachments
//	<prefix><dataset>/<name>       — metadata, output and archive files
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an S3-backed Store.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 filestore: bucket is required")
	}

	optFns := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if opts.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true // required for MinIO
		})
	}

	client := s3.NewFromConfig(cfg, s3Opts...)

	return &Store{
		client: client,
		bucket: opts.Bucket,
		prefix: opts.Prefix,
	}, nil
}

func (s *Store) artifactKey(dataset, name string, kind filestore.Kind) string {
	if kind == filestore.KindPDF {
		return s.prefix + dataset + "/pdfs/" + name
	}
	return s.prefix + dataset + "/" + name
}

// PutArtifact uploads the artifact content to S3.
func (s *Store) PutArtifact(ctx context.Context, artifact *filestore.Artifact) error {
	contentType := "application/octet-stream"
	switch artifact.Kind {
	case filestore.KindPDF:
		contentType = "application/pdf"
	case filestore.KindMetadata, filestore.KindOutput:
		contentType = "application/json"
	case filestore.KindArchive:
		contentType = "application/zip"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.artifactKey(artifact.Dataset, artifact.Name, artifact.Kind)),
		Body:        bytes.NewReader(artifact.Content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put artifact: %w", err)
	}
	return nil
}

// GetArtifact downloads the artifact with its content.
func (s *Store) GetArtifact(ctx context.Context, dataset, name string) (*filestore.Artifact, error) {
	kind := filestore.KindOfName(name)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.artifactKey(dataset, name, kind)),
	})
	if err != nil {
		if !isNotFound(err) {
			return nil, fmt.Errorf("get artifact: %w", err)
		}
		// PDFs and flat files share a namespace on input; try the other
		// location before giving up.
		if kind != filestore.KindPDF {
			return nil, fmt.Errorf("artifact %s/%s: %w", dataset, name, filestore.ErrArtifactNotFound)
		}
		out, err = s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.prefix + dataset + "/" + name),
		})
		if err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("artifact %s/%s: %w", dataset, name, filestore.ErrArtifactNotFound)
			}
			return nil, fmt.Errorf("get artifact: %w", err)
		}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read artifact body: %w", err)
	}

	artifact := &filestore.Artifact{
		Dataset: dataset,
		Name:    name,
		Kind:    kind,
		Bytes:   int64(len(data)),
		Content: data,
	}
	if out.LastModified != nil {
		artifact.CreatedAt = *out.LastModified
	}
	return artifact, nil
}

// ListArtifacts lists the artifacts of a dataset, sorted by name. Content
// is not loaded.
func (s *Store) ListArtifacts(ctx context.Context, dataset string) ([]*filestore.Artifact, error) {
	artifacts, err := s.listDataset(ctx, dataset)
	if err != nil {
		return nil, err
	}
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("dataset %s: %w", dataset, filestore.ErrArtifactNotFound)
	}
	return artifacts, nil
}

// ListDatasets summarizes every dataset under the key prefix, sorted by
// name. One listing pass over the bucket groups objects by their first
// path segment.
func (s *Store) ListDatasets(ctx context.Context) ([]schema.FolderInfo, error) {
	grouped := map[string][]*filestore.Artifact{}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			dataset, artifact, ok := s.parseKey(obj)
			if !ok {
				continue
			}
			grouped[dataset] = append(grouped[dataset], artifact)
		}
	}

	folders := []schema.FolderInfo{}
	for name, artifacts := range grouped {
		folders = append(folders, filestore.DatasetInfo(name, s.prefix+name, artifacts))
	}
	sort.Slice(folders, func(i, j int) bool {
		return folders[i].Name < folders[j].Name
	})
	return folders, nil
}

// DeleteDataset removes every object under the dataset's prefix.
func (s *Store) DeleteDataset(ctx context.Context, dataset string) error {
	artifacts, err := s.listDataset(ctx, dataset)
	if err != nil {
		return err
	}
	if len(artifacts) == 0 {
		return fmt.Errorf("dataset %s: %w", dataset, filestore.ErrArtifactNotFound)
	}

	objects := make([]s3types.ObjectIdentifier, 0, len(artifacts))
	for _, a := range artifacts {
		objects = append(objects, s3types.ObjectIdentifier{
			Key: aws.String(s.artifactKey(dataset, a.Name, a.Kind)),
		})
	}
	_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &s3types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("delete objects: %w", err)
	}
	return nil
}

// Close is a no-op for the S3 store.
func (s *Store) Close(_ context.Context) error {
	return nil
}

func (s *Store) listDataset(ctx context.Context, dataset string) ([]*filestore.Artifact, error) {
	var artifacts []*filestore.Artifact

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix + dataset + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			ds, artifact, ok := s.parseKey(obj)
			if !ok || ds != dataset {
				continue
			}
			artifacts = append(artifacts, artifact)
		}
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Name < artifacts[j].Name
	})
	return artifacts, nil
}

// parseKey maps an object key back to its dataset and artifact. Keys that
// do not follow the store layout are skipped.
func (s *Store) parseKey(obj s3types.Object) (string, *filestore.Artifact, bool) {
	key := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
	parts := strings.Split(key, "/")

	var dataset, name string
	var kind filestore.Kind
	switch {
	case len(parts) == 2 && parts[1] != "":
		dataset, name = parts[0], parts[1]
		kind = filestore.KindOfName(name)
	case len(parts) == 3 && parts[1] == "pdfs" && parts[2] != "":
		dataset, name = parts[0], parts[2]
		kind = filestore.KindPDF
	default:
		return "", nil, false
	}

	artifact := &filestore.Artifact{
		Dataset: dataset,
		Name:    name,
		Kind:    kind,
		Bytes:   aws.ToInt64(obj.Size),
	}
	if obj.LastModified != nil {
		artifact.CreatedAt = *obj.LastModified
	}
	return dataset, artifact, true
}

// isNotFound checks whether the error indicates a missing S3 object.
func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if ok := errors.As(err, &nsk); ok {
		return true
	}
	// Some S3-compatible services return a generic "NotFound" status.
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound")
}
