package persist

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dyluth/quill/pkg/content"
)

// FileSink writes runs under <dir>/<topic>/. Re-running a topic overwrites
// its previous outputs.
type FileSink struct {
	dir  string
	opts Options
}

// NewFileSink returns a sink rooted at dir.
func NewFileSink(dir string, opts Options) *FileSink {
	return &FileSink{dir: dir, opts: opts}
}

// Save implements orchestrator.Sink.
func (s *FileSink) Save(ctx context.Context, run *content.RunRecord) error {
	files, err := BuildFiles(run, s.opts)
	if err != nil {
		return err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		target := filepath.Join(s.dir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := writeFileAtomic(target, f.Data); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
	}

	log.Printf("[Persist] Saved %d file(s) for topic '%s' to %s", len(files), run.TopicName, filepath.Join(s.dir, run.TopicName))
	return nil
}

// writeFileAtomic writes through a temp file and rename so readers never see
// a half-written artifact.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".quill-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
