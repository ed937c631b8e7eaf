package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yamf-go/op-marker/attachments"
	"github.com/yamf-go/op-marker/metrics"
	"github.com/yamf-go/op-marker/types"
)

// PreconditionError is returned when a request is rejected before any process is spawned
type PreconditionError struct {
	Err error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("invalid run request: %v", e.Err)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// Phase names used to give fatal run errors context
const (
	PhaseInvoke = "invoke"
	PhaseParse  = "parse"
	PhaseReplay = "replay"
)

// RunError is a fatal failure of one run
type RunError struct {
	RunID string
	Phase string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed during %s: %v", e.RunID, e.Phase, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Outcome is the combined output of one run, handed to reporters
type Outcome struct {
	RunID      string
	Request    types.RunRequest
	ReportDir  string
	ExitCode   int
	Result     types.RunResult
	Records    []types.ResultRecord
	Totals     Totals
	Duplicates []types.CheckID
	Replayed   bool
	Duration   time.Duration
}

// Evidence returns every attachment held by the records, in record order
func (o *Outcome) Evidence() []types.Attachment {
	var out []types.Attachment
	for _, r := range o.Records {
		out = append(out, r.Attachments...)
	}
	return out
}

// HasFailures reports whether the runner or any marked check saw a failure
func (o *Outcome) HasFailures() bool {
	return o.Result.Failed > 0 || o.Result.Errored > 0 || o.Totals.Failed > 0
}

func (o *Outcome) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d tests, %d failed, %d skipped, %d errored; ",
		o.RunID, o.Result.Tests, o.Result.Failed, o.Result.Skipped, o.Result.Errored)
	fmt.Fprintf(&b, "%d records, marks %g/%g, %d need review",
		len(o.Records), o.Totals.Marks, o.Totals.MaxMarks, o.Totals.NeedsReview)
	return b.String()
}

// Config holds configuration for creating a new Runner
type Config struct {
	Log      log.Logger
	Marks    MarkSource
	Evidence *attachments.Registry
	Executor *Executor
	Parser   *ReportParser
}

// Runner orchestrates runs: invoke the runner, mark what it reports, parse its reports.
// Runs are serialized since they share one evidence registry.
type Runner struct {
	log      log.Logger
	marks    MarkSource
	evidence *attachments.Registry
	executor *Executor
	parser   *ReportParser
	tracer   trace.Tracer

	mu sync.Mutex
}

// NewRunner creates a Runner
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Marks == nil {
		return nil, fmt.Errorf("mark source is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Evidence == nil {
		cfg.Evidence = attachments.NewRegistry(cfg.Log)
	}
	if cfg.Parser == nil {
		cfg.Parser = NewReportParser(cfg.Log)
	}
	return &Runner{
		log:      cfg.Log,
		marks:    cfg.Marks,
		evidence: cfg.Evidence,
		executor: cfg.Executor,
		parser:   cfg.Parser,
		tracer:   otel.Tracer("marking runner"),
	}, nil
}

// Evidence returns the registry checks add their evidence to
func (r *Runner) Evidence() *attachments.Registry {
	return r.evidence
}

// Run executes req and returns its outcome
func (r *Runner) Run(ctx context.Context, req types.RunRequest) (*Outcome, error) {
	return r.RunFor(ctx, req, attachments.Handle{})
}

// RunFor executes req on behalf of the check owning caller. The dialect's report file is
// added to caller as evidence when caller is valid. caller must not belong to the Runner's own
// registry, which is reset when the run starts.
func (r *Runner) RunFor(ctx context.Context, req types.RunRequest, caller attachments.Handle) (*Outcome, error) {
	if err := req.Validate(); err != nil {
		metrics.RecordError("precondition")
		return nil, &PreconditionError{Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	runID := uuid.New().String()
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("run %s", req.CheckClass))
	defer span.End()
	span.SetAttributes(attribute.String("run_id", runID), attribute.String("dialect", req.Dialect.String()))

	start := time.Now()
	runLog := r.log.New("run_id", runID)
	runLog.Info("Starting run", "check_class", req.CheckClass, "dialect", req.Dialect, "classpath_entries", len(req.Classpath))

	collector := NewCollector(runLog)
	listener, err := NewListener(ListenerConfig{
		Log:       runLog,
		RunID:     runID,
		Marks:     r.marks,
		Evidence:  r.evidence,
		Collector: collector,
	})
	if err != nil {
		return nil, err
	}

	fail := func(phase string, err error) (*Outcome, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, phase)
		metrics.RecordErrorDetails(phase, err)
		// leave nothing behind for the next run
		r.evidence.Reset()
		return nil, &RunError{RunID: runID, Phase: phase, Err: err}
	}

	inv, err := r.executor.Invoke(ctx, req, listener.Handle)
	if err != nil {
		return fail(PhaseInvoke, err)
	}

	var result types.RunResult
	result.Console = inv.Console
	if err := r.parser.Parse(inv.ReportDir, req.Dialect, &result); err != nil {
		return fail(PhaseParse, err)
	}
	reportPath := filepath.Join(inv.ReportDir, req.Dialect.ReportName())
	if caller.Valid() {
		caller.Add(req.Dialect.ReportName(), reportPath, ReportMediaType)
	}

	replayed := false
	if !listener.Observed() {
		runLog.Warn("Runner emitted no lifecycle events, replaying the report", "report", reportPath)
		cases, err := ReadCases(reportPath)
		if err != nil {
			return fail(PhaseReplay, err)
		}
		Replay(cases, listener.Handle)
		replayed = true
	} else if !listener.Completed() {
		runLog.Warn("Runner exited without finishing the run")
		r.evidence.Reset()
	}

	out := &Outcome{
		RunID:      runID,
		Request:    req,
		ReportDir:  inv.ReportDir,
		ExitCode:   inv.ExitCode,
		Result:     result,
		Records:    collector.Records(),
		Totals:     collector.Totals(),
		Duplicates: collector.Duplicates(),
		Replayed:   replayed,
		Duration:   time.Since(start),
	}

	metrics.RecordRunCounts(runID, result.Counts)
	metrics.RecordMarks(runID, out.Totals.Marks, out.Totals.MaxMarks)
	span.SetAttributes(
		attribute.Int("tests", result.Tests),
		attribute.Int("records", len(out.Records)),
		attribute.Float64("marks", out.Totals.Marks),
	)
	runLog.Info("Run finished", "tests", result.Tests, "failed", result.Failed, "skipped", result.Skipped,
		"errored", result.Errored, "records", len(out.Records), "marks", out.Totals.Marks,
		"max_marks", out.Totals.MaxMarks, "duration", out.Duration)
	return out, nil
}

// IsNoVerifiableOutput reports whether err means the runner left no report to verify
func IsNoVerifiableOutput(err error) bool {
	return errors.Is(err, ErrNoVerifiableOutput)
}
