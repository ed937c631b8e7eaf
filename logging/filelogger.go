// Package logging stores the output of every run on disk
package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/yamf-go/op-marker/reporting"
	"github.com/yamf-go/op-marker/runner"
)

const (
	RunDirectoryPrefix = "markrun-" // Standardized prefix for run directories

	ConsoleFilename = "console.log"
	DetailsFilename = "details.log"
	SummaryFilename = "summary.log"
	ResultsFilename = "results.json"

	// HistoryFilename is kept in the base directory and gains one line per run
	HistoryFilename = "runs.log"
)

// FileLogger writes one directory per run under its base directory
type FileLogger struct {
	baseDir   string
	log       log.Logger
	formatter *reporting.TableFormatter

	mu      sync.Mutex
	history *AsyncFile
}

// AsyncFile provides non-blocking file writing capabilities
type AsyncFile struct {
	file    *os.File
	queue   chan []byte
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
	err     error
}

// NewAsyncFile opens path for appending and starts its background writer
func NewAsyncFile(path string) (*AsyncFile, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	af := &AsyncFile{
		file:  file,
		queue: make(chan []byte, 100), // Buffer channel to reduce blocking
	}

	af.wg.Add(1)
	go af.processQueue()

	return af, nil
}

// Write queues data to be written asynchronously
func (af *AsyncFile) Write(data []byte) error {
	af.mu.Lock()
	defer af.mu.Unlock()

	if af.stopped {
		return fmt.Errorf("async file is closed")
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	af.queue <- dataCopy
	return nil
}

// processQueue processes the write queue in the background, keeping the first error
func (af *AsyncFile) processQueue() {
	defer af.wg.Done()

	for data := range af.queue {
		if _, err := af.file.Write(data); err != nil && af.err == nil {
			af.err = err
		}
	}
}

// Close stops the async writer, waits for queued writes and closes the file.
// It returns the first write error, if any.
func (af *AsyncFile) Close() error {
	af.mu.Lock()
	if !af.stopped {
		af.stopped = true
		close(af.queue)
	}
	af.mu.Unlock()

	af.wg.Wait()
	closeErr := af.file.Close()
	if af.err != nil {
		return af.err
	}
	return closeErr
}

// NewFileLogger creates a FileLogger writing under baseDir
func NewFileLogger(baseDir string, logger log.Logger) (*FileLogger, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}
	if logger == nil {
		logger = log.Root()
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", baseDir, err)
	}
	return &FileLogger{
		baseDir:   baseDir,
		log:       logger,
		formatter: reporting.NewTableFormatter("Marking Results", false),
	}, nil
}

// GetBaseDir returns the base directory
func (l *FileLogger) GetBaseDir() string {
	return l.baseDir
}

// GetDirectoryForRunID returns the directory holding a run's files
func (l *FileLogger) GetDirectoryForRunID(runID string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("runID cannot be empty")
	}
	return filepath.Join(l.baseDir, RunDirectoryPrefix+runID), nil
}

// Report implements reporting.Reporter
func (l *FileLogger) Report(_ context.Context, outcome *runner.Outcome) error {
	dir, err := l.GetDirectoryForRunID(outcome.RunID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(filepath.Join(dir, ConsoleFilename), []byte(outcome.Result.Console), 0644); err != nil {
		return fmt.Errorf("failed to write console file: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, DetailsFilename), []byte(outcome.Result.Details), 0644); err != nil {
		return fmt.Errorf("failed to write details file: %w", err)
	}

	summary := l.formatter.Format(outcome) + outcome.String() + "\n"
	if err := os.WriteFile(filepath.Join(dir, SummaryFilename), []byte(summary), 0644); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}

	data, err := reporting.FormatJSON(outcome)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ResultsFilename), data, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}

	if err := l.appendHistory(outcome); err != nil {
		l.log.Error("Failed to append run history", "run_id", outcome.RunID, "err", err)
	}

	l.log.Info("Run output written", "run_id", outcome.RunID, "dir", dir)
	return nil
}

// appendHistory queues one line for the run on the history file, opening it on first use
func (l *FileLogger) appendHistory(outcome *runner.Outcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.history == nil {
		h, err := NewAsyncFile(filepath.Join(l.baseDir, HistoryFilename))
		if err != nil {
			return err
		}
		l.history = h
	}
	line := fmt.Sprintf("%s %s\n", time.Now().UTC().Format(time.RFC3339), outcome.String())
	return l.history.Write([]byte(line))
}

// Close flushes and closes the history file
func (l *FileLogger) Close() error {
	l.mu.Lock()
	h := l.history
	l.history = nil
	l.mu.Unlock()

	if h == nil {
		return nil
	}
	return h.Close()
}
