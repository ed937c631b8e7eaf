package marker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yamf-go/op-marker/runner"
	"github.com/yamf-go/op-marker/types"
)

// RuntimeError is a run that could not be marked (exit code 2): bad configuration,
// a runner that could not be invoked, or a report that is missing or unreadable.
// RunID, Phase and Path are filled in from the wrapped runner errors when present.
type RuntimeError struct {
	RunID string
	Phase string
	Path  string
	Err   error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError wraps err, lifting the run id, phase and report path out of any
// runner.RunError or runner.ExtractionError in its chain.
func NewRuntimeError(err error) *RuntimeError {
	e := &RuntimeError{Err: err}
	var runErr *runner.RunError
	if errors.As(err, &runErr) {
		e.RunID = runErr.RunID
		e.Phase = runErr.Phase
	}
	var extractErr *runner.ExtractionError
	if errors.As(err, &extractErr) {
		e.Path = extractErr.Path
	}
	return e
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError is a completed run with failures (exit code 1).
// Failed holds the marked checks that failed, in record order; the runner may also
// report failures among checks that carry no marking.
type TestFailureError struct {
	RunID        string
	Failed       []types.CheckID
	RunnerFailed int
	Marks        float64
	MaxMarks     float64
}

func (e *TestFailureError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "test failure in run %s: %d marked checks failed", e.RunID, len(e.Failed))
	if len(e.Failed) > 0 {
		ids := make([]string, len(e.Failed))
		for i, id := range e.Failed {
			ids[i] = string(id)
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(ids, ", "))
	}
	fmt.Fprintf(&b, ", %d failed or errored in runner, marks %g/%g", e.RunnerFailed, e.Marks, e.MaxMarks)
	return b.String()
}

// NewTestFailureError summarises the failures of outcome
func NewTestFailureError(outcome *runner.Outcome) *TestFailureError {
	e := &TestFailureError{
		RunID:        outcome.RunID,
		RunnerFailed: outcome.Result.Failed + outcome.Result.Errored,
		Marks:        outcome.Totals.Marks,
		MaxMarks:     outcome.Totals.MaxMarks,
	}
	for _, r := range outcome.Records {
		if r.Status == types.CheckStatusFailure {
			e.Failed = append(e.Failed, r.ID)
		}
	}
	return e
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}
