// SPDX-License-Identifier: MPL-2.0

// Package workspace owns the two filesystem resources shared by every
// pipeline step: the work directory holding downloaded sources and the
// append-only log sink that captures all subprocess output.
//
// Acquire/Close replace the shell pattern of a trap-based cleanup handler:
// release is an explicit deferred action on every exit path, with CI mode
// opting out of work directory deletion so ephemeral build environments can
// inspect partial artifacts.
package workspace

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Workspace is the acquired pair of work directory and log sink, plus a
// structured logger writing to the sink. Single writer; never rotated.
type Workspace struct {
	// Dir is the work directory holding downloaded and extracted sources.
	Dir string

	// LogPath is the log file capturing subprocess output and progress.
	LogPath string

	logFile *os.File
	logger  *log.Logger
	keep    bool
	closed  bool
}

// Acquire creates the work directory and truncates the log file. With keep
// set (CI mode), Close leaves the work directory in place.
func Acquire(dir, logPath string, keep bool) (*Workspace, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating work directory %s: %w", dir, err)
	}

	// Truncated at every run start; appended to for the rest of the run.
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", logPath, err)
	}

	logger := log.NewWithOptions(logFile, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "magickbuild",
	})

	return &Workspace{
		Dir:     dir,
		LogPath: logPath,
		logFile: logFile,
		logger:  logger,
		keep:    keep,
	}, nil
}

// Sink returns the writer pipeline steps point subprocess output at.
func (w *Workspace) Sink() io.Writer {
	return w.logFile
}

// Logger returns the structured logger backed by the log sink.
func (w *Workspace) Logger() *log.Logger {
	return w.logger
}

// Keep reports whether the work directory survives Close.
func (w *Workspace) Keep() bool {
	return w.keep
}

// Close releases the workspace: the log file is closed and the work
// directory deleted, unless keep was set. Safe to call once; later calls
// are no-ops.
func (w *Workspace) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.logFile.Close(); err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}

	if w.keep {
		return nil
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		return fmt.Errorf("removing work directory %s: %w", w.Dir, err)
	}
	return nil
}
