package types

import (
	"errors"
	"fmt"
	"os"
)

// RunRequest describes one invocation of the external runner
type RunRequest struct {
	Runner     string   // path to the runner jar
	CheckClass string   // fully qualified class holding the checks
	Classpath  []string // optional, ordered
	Dialect    Dialect
}

// Validate checks the request's invariants. It touches the filesystem to confirm the runner exists.
func (r RunRequest) Validate() error {
	if r.Runner == "" {
		return errors.New("runner must be provided (junit-platform-console-standalone-<version>.jar or similar)")
	}
	info, err := os.Stat(r.Runner)
	if err != nil {
		return fmt.Errorf("runner not found: %s: %w", r.Runner, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("runner is not a regular file: %s", r.Runner)
	}
	if r.CheckClass == "" {
		return errors.New("check class cannot be empty")
	}
	if !r.Dialect.IsValid() {
		return fmt.Errorf("invalid check dialect %q", r.Dialect)
	}
	for i, entry := range r.Classpath {
		if entry == "" {
			return fmt.Errorf("classpath entry at index %d cannot be empty", i)
		}
	}
	return nil
}

// Counts holds the counters read from one structured result file
type Counts struct {
	Tests   int
	Failed  int
	Skipped int
	Errored int
}

// RunResult accumulates what one runner invocation produced
type RunResult struct {
	Console string
	Details string
	Counts
}

// Add accumulates counters from another result file of the same run
func (r *RunResult) Add(c Counts) {
	r.Tests += c.Tests
	r.Failed += c.Failed
	r.Skipped += c.Skipped
	r.Errored += c.Errored
}
