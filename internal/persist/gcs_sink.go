package persist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"

	"cloud.google.com/go/storage"
	"github.com/dyluth/quill/pkg/content"
	"google.golang.org/api/googleapi"
)

// GCSSink uploads run outputs to <bucket>/<prefix>/<thread_id>/... Objects are
// written only if absent, so re-saving a run is a no-op.
type GCSSink struct {
	bucket    string
	prefix    string
	opts      Options
	client    *storage.Client
	newWriter func(ctx context.Context, object string) io.WriteCloser
}

// NewGCSSink creates a sink using Application Default Credentials.
func NewGCSSink(ctx context.Context, bucket, prefix string, opts Options) (*GCSSink, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	handle := client.Bucket(bucket)
	return &GCSSink{
		bucket: bucket,
		prefix: prefix,
		opts:   opts,
		client: client,
		newWriter: func(ctx context.Context, object string) io.WriteCloser {
			return handle.Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
		},
	}, nil
}

// Close releases the storage client.
func (s *GCSSink) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Save implements orchestrator.Sink.
func (s *GCSSink) Save(ctx context.Context, run *content.RunRecord) error {
	files, err := BuildFiles(run, s.opts)
	if err != nil {
		return err
	}

	for _, f := range files {
		object := path.Join(s.prefix, run.ThreadID, f.Name)
		if err := s.upload(ctx, object, f.Data); err != nil {
			return err
		}
	}

	log.Printf("[Persist] Uploaded %d object(s) to gs://%s/%s", len(files), s.bucket, path.Join(s.prefix, run.ThreadID))
	return nil
}

func (s *GCSSink) upload(ctx context.Context, object string, data []byte) error {
	w := s.newWriter(ctx, object)

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		if isPreconditionFailed(err) {
			log.Printf("[Persist] Skipping gs://%s/%s: already exists", s.bucket, object)
			return nil
		}
		return fmt.Errorf("failed to write gs://%s/%s: %w", s.bucket, object, err)
	}

	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			log.Printf("[Persist] Skipping gs://%s/%s: already exists", s.bucket, object)
			return nil
		}
		return fmt.Errorf("failed to finalize gs://%s/%s: %w", s.bucket, object, err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
