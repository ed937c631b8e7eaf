// Package reporting turns run outcomes into human-facing output
package reporting

import (
	"context"
	"errors"

	"github.com/yamf-go/op-marker/runner"
)

// Reporter consumes the outcome of a run: its records in identity order and their evidence
type Reporter interface {
	Report(ctx context.Context, outcome *runner.Outcome) error
}

// ReporterFunc adapts a function to Reporter
type ReporterFunc func(ctx context.Context, outcome *runner.Outcome) error

func (f ReporterFunc) Report(ctx context.Context, outcome *runner.Outcome) error {
	return f(ctx, outcome)
}

// Multi hands every outcome to each reporter in turn. All reporters run even if one fails.
type Multi []Reporter

func (m Multi) Report(ctx context.Context, outcome *runner.Outcome) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Report(ctx, outcome); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
