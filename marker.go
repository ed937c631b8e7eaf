// Package marker runs a check class through the external runner, marks the outcome
// and reports it, once or on a fixed interval.
package marker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/yamf-go/op-marker/exitcodes"
	"github.com/yamf-go/op-marker/logging"
	"github.com/yamf-go/op-marker/metrics"
	"github.com/yamf-go/op-marker/registry"
	"github.com/yamf-go/op-marker/reporting"
	"github.com/yamf-go/op-marker/runner"
	"github.com/yamf-go/op-marker/service"
	"github.com/yamf-go/op-marker/types"
)

// MarkingRunner carries out one marked run
type MarkingRunner interface {
	Run(ctx context.Context, req types.RunRequest) (*runner.Outcome, error)
}

// marker implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &marker{}

// marker runs the configured check class and reports every outcome.
type marker struct {
	ctx        context.Context
	config     *Config
	version    string
	registry   *registry.Registry
	runner     MarkingRunner
	reporter   reporting.Reporter
	fileLogger *logging.FileLogger
	service    *service.Service
	latest     atomic.Pointer[runner.Outcome]

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*marker, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating marker with config",
		"runner", config.Runner,
		"checkClass", config.CheckClass,
		"dialect", config.Dialect,
		"markingScheme", config.MarkingScheme,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce)

	reg, err := registry.NewRegistry(registry.Config{
		Log:        config.Log,
		SchemeFile: config.MarkingScheme,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}
	if config.MarkingScheme == "" {
		config.Log.Warn("No marking scheme configured, every check will be unmarked")
	}

	executor, err := runner.NewExecutor(runner.ExecutorConfig{
		Log:             config.Log,
		JavaBinary:      config.JavaBinary,
		ReportsRoot:     config.ReportsRoot,
		ClasspathMarker: config.ClasspathIsolate,
		ClasspathCompat: config.WindowsClasspathCompat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create executor: %w", err)
	}

	markingRunner, err := runner.NewRunner(runner.Config{
		Log:      config.Log,
		Marks:    reg,
		Executor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	fileLogger, err := logging.NewFileLogger(config.LogDir, config.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	config.Log.Info("marker.New: created registry, runner and file logger", "checks", len(reg.IDs()), "available", reg.Available())

	m := &marker{
		ctx:              ctx,
		config:           config,
		version:          version,
		registry:         reg,
		runner:           markingRunner,
		fileLogger:       fileLogger,
		done:             make(chan struct{}),
		shutdownCallback: shutdownCallback,
	}
	m.reporter = reporting.Multi{
		reporting.NewTableReporter(os.Stdout, "Marking Results", true),
		fileLogger,
	}
	if config.Serve || config.MetricsConfig.Enabled {
		m.service = service.New(service.Config{
			Log:         config.Log,
			HealthzAddr: config.HealthzAddr,
			MetricsAddr: config.MetricsAddr(),
			Latest:      m.Latest,
		})
	}
	return m, nil
}

// Start runs the check class immediately, then at the configured interval.
// Start implements the cliapp.Lifecycle interface.
func (m *marker) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			m.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	m.ctx = ctx
	m.done = make(chan struct{})
	m.running.Store(true)

	if m.service != nil {
		m.service.Start(ctx)
	}

	if m.config.RunOnce {
		m.config.Log.Info("Starting op-marker in run-once mode", "version", m.version)
	} else {
		m.config.Log.Info("Starting op-marker in continuous mode", "version", m.version, "interval", m.config.RunInterval)
	}

	outcome, err := m.runChecks()
	if err != nil {
		m.config.Log.Error("Runtime error running checks", "error", err)
		return err
	}

	if m.config.RunOnce {
		m.config.Log.Info("Run completed, exiting (run-once mode)")

		if m.config.FailOnFailures && outcome.HasFailures() {
			m.config.Log.Warn("Run-once run completed with failed checks, returning exit code 1")
			return NewTestFailureError(outcome)
		}

		go func() {
			m.shutdownCallback(nil)
		}()
		return nil
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.config.Log.Debug("Starting periodic runner goroutine", "interval", m.config.RunInterval)

		for {
			select {
			case <-time.After(m.config.RunInterval):
				if !m.running.Load() {
					m.config.Log.Debug("Service stopped, exiting periodic runner")
					return
				}

				m.config.Log.Info("Running periodic checks")
				if _, err := m.runChecks(); err != nil {
					m.config.Log.Error("Error running periodic checks", "error", err)
				}

			case <-m.done:
				m.config.Log.Debug("Done signal received, stopping periodic runner")
				return

			case <-ctx.Done():
				m.config.Log.Debug("Context canceled, stopping periodic runner")
				m.running.Store(false)
				return
			}
		}
	}()
	m.config.Log.Debug("op-marker started successfully")
	return nil
}

// runChecks carries out one run and hands its outcome to the reporters.
// Reporting failures are logged; only a failed run is returned as an error.
func (m *marker) runChecks() (*runner.Outcome, error) {
	m.config.Log.Info("Running checks...", "checkClass", m.config.CheckClass)
	outcome, err := m.runner.Run(m.ctx, m.config.Request())
	if err != nil {
		runtimeErr := NewRuntimeError(err)
		m.config.Log.Error("Run failed", "run_id", runtimeErr.RunID, "phase", runtimeErr.Phase, "path", runtimeErr.Path)
		return nil, runtimeErr
	}
	m.latest.Store(outcome)

	if err := m.reporter.Report(m.ctx, outcome); err != nil {
		m.config.Log.Error("Failed to report outcome", "run_id", outcome.RunID, "error", err)
		metrics.RecordErrorDetails("report", err)
	}
	m.config.Log.Info("Run completed", "run_id", outcome.RunID, "marks", outcome.Totals.Marks, "max", outcome.Totals.MaxMarks)
	return outcome, nil
}

// Latest returns the outcome of the most recent successful run, or nil
func (m *marker) Latest() *runner.Outcome {
	return m.latest.Load()
}

// Stop stops the op-marker service.
// Stop implements the cliapp.Lifecycle interface.
func (m *marker) Stop(ctx context.Context) error {
	m.config.Log.Info("Stopping op-marker")

	if !m.running.Load() {
		m.config.Log.Debug("Service already stopped, nothing to do")
		return m.closeOutputs()
	}

	m.running.Store(false)

	m.config.Log.Debug("Sending done signal to goroutines")
	close(m.done)

	err := m.closeOutputs()
	m.config.Log.Info("op-marker stopped successfully")
	return err
}

func (m *marker) closeOutputs() error {
	if m.service != nil {
		m.service.Shutdown()
		m.service = nil
	}
	if m.fileLogger != nil {
		return m.fileLogger.Close()
	}
	return nil
}

// Stopped returns true if the op-marker service is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (m *marker) Stopped() bool {
	return !m.running.Load()
}

// WaitForShutdown blocks until all goroutines have terminated.
func (m *marker) WaitForShutdown(ctx context.Context) error {
	m.config.Log.Debug("Waiting for all goroutines to terminate")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.config.Log.Debug("All goroutines terminated successfully")
		return nil
	case <-ctx.Done():
		m.config.Log.Warn("Timed out waiting for goroutines to terminate", "error", ctx.Err())
		return ctx.Err()
	}
}
