package reporting

import (
	"encoding/json"
	"time"

	"github.com/yamf-go/op-marker/runner"
	"github.com/yamf-go/op-marker/types"
)

// ResultsJSON is the machine-readable form of an outcome, consumed by grading pipelines
type ResultsJSON struct {
	RunID       string             `json:"runId"`
	CheckClass  string             `json:"checkClass"`
	Dialect     types.Dialect      `json:"dialect"`
	ReportDir   string             `json:"reportDir"`
	ExitCode    int                `json:"exitCode"`
	Duration    time.Duration      `json:"duration"`
	Replayed    bool               `json:"replayed,omitempty"`
	Counts      CountsJSON         `json:"counts"`
	Marks       float64            `json:"marks"`
	MaxMarks    float64            `json:"maxMarks"`
	Labels      map[string]int     `json:"labels"`
	Records     []RecordJSON       `json:"records"`
	Duplicates  []types.CheckID    `json:"duplicates,omitempty"`
	Attachments []types.Attachment `json:"attachments"`
}

// CountsJSON holds the runner's own counters
type CountsJSON struct {
	Tests   int `json:"tests"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Errored int `json:"errored"`
}

// RecordJSON is one result record
type RecordJSON struct {
	ID                 types.CheckID      `json:"id"`
	Name               string             `json:"name"`
	Status             types.CheckStatus  `json:"status"`
	Label              string             `json:"label"`
	Mark               float64            `json:"mark"`
	MaxMark            float64            `json:"maxMark"`
	ManualRequired     bool               `json:"manualRequired,omitempty"`
	ManualInstructions string             `json:"manualInstructions,omitempty"`
	Failure            string             `json:"failure,omitempty"`
	Attachments        []types.Attachment `json:"attachments,omitempty"`
}

// NewResultsJSON converts an outcome
func NewResultsJSON(outcome *runner.Outcome) ResultsJSON {
	out := ResultsJSON{
		RunID:      outcome.RunID,
		CheckClass: outcome.Request.CheckClass,
		Dialect:    outcome.Request.Dialect,
		ReportDir:  outcome.ReportDir,
		ExitCode:   outcome.ExitCode,
		Duration:   outcome.Duration,
		Replayed:   outcome.Replayed,
		Counts: CountsJSON{
			Tests:   outcome.Result.Tests,
			Failed:  outcome.Result.Failed,
			Skipped: outcome.Result.Skipped,
			Errored: outcome.Result.Errored,
		},
		Marks:       outcome.Totals.Marks,
		MaxMarks:    outcome.Totals.MaxMarks,
		Labels:      StatusCounts(outcome.Records),
		Records:     make([]RecordJSON, 0, len(outcome.Records)),
		Duplicates:  outcome.Duplicates,
		Attachments: outcome.Evidence(),
	}
	if out.Attachments == nil {
		out.Attachments = []types.Attachment{}
	}
	for _, r := range outcome.Records {
		rec := RecordJSON{
			ID:          r.ID,
			Name:        r.Name(),
			Status:      r.Status,
			Label:       r.Label(),
			Mark:        r.Mark(),
			MaxMark:     r.MaxMark(),
			Failure:     r.Failure,
			Attachments: r.Attachments,
		}
		if r.Marking != nil {
			rec.ManualRequired = r.Marking.ManualRequired
			rec.ManualInstructions = r.Marking.ManualInstructions
		}
		out.Records = append(out.Records, rec)
	}
	return out
}

// FormatJSON renders the outcome as indented JSON
func FormatJSON(outcome *runner.Outcome) ([]byte, error) {
	return json.MarshalIndent(NewResultsJSON(outcome), "", "  ")
}
