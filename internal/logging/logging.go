// Package logging points the standard logger at the configured log file and,
// optionally, stderr.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/dyluth/quill/internal/config"
)

// Sink is the active log destination. Close restores the previous logger
// output and releases the file.
type Sink struct {
	file       *os.File
	prevOutput io.Writer
	prevFlags  int
}

// Setup opens cfg.File for append (creating parent directories) and routes
// the standard logger to it, teeing to stderr when cfg.Console is set.
func Setup(cfg *config.LoggingConfig) (*Sink, error) {
	return setup(cfg, os.Stderr)
}

func setup(cfg *config.LoggingConfig, console io.Writer) (*Sink, error) {
	if dir := filepath.Dir(cfg.File); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("logging: ensure log dir: %w", err)
		}
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}

	s := &Sink{file: f, prevOutput: log.Writer(), prevFlags: log.Flags()}

	var out io.Writer = f
	if cfg.Console != nil && *cfg.Console {
		out = io.MultiWriter(f, console)
	}
	log.SetOutput(out)

	flags := log.LstdFlags
	if cfg.Verbose {
		flags |= log.Lmicroseconds | log.Lshortfile
	}
	log.SetFlags(flags)

	return s, nil
}

// Path returns the log file path.
func (s *Sink) Path() string { return s.file.Name() }

// Close restores the previous logger and closes the file.
func (s *Sink) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	log.SetOutput(s.prevOutput)
	log.SetFlags(s.prevFlags)
	return s.file.Close()
}
