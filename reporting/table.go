package reporting

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/yamf-go/op-marker/runner"
	"github.com/yamf-go/op-marker/types"
)

const (
	maxNotesWidth   = 60
	maxDetailsWidth = 60
)

// TableFormatter renders an outcome as a marking table: one row per record, totals in the footer
type TableFormatter struct {
	title   string
	colored bool
}

// NewTableFormatter creates a formatter. Colored tables are meant for terminals.
func NewTableFormatter(title string, colored bool) *TableFormatter {
	return &TableFormatter{title: title, colored: colored}
}

// Format renders the outcome
func (f *TableFormatter) Format(outcome *runner.Outcome) string {
	t := table.NewWriter()
	if f.title != "" {
		t.SetTitle(fmt.Sprintf("%s (%s)", f.title, outcome.RunID))
	}

	t.AppendHeader(table.Row{"Task", "Check", "Status", "Marks", "Max", "Notes", "Details"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Check", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Marks", Align: text.AlignRight},
		{Name: "Max", Align: text.AlignRight},
		{Name: "Notes", WidthMax: maxNotesWidth, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Details", WidthMax: maxDetailsWidth, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, r := range outcome.Records {
		t.AppendRow(table.Row{
			r.Name(),
			r.ID.String(),
			r.Label(),
			formatMark(r.Mark()),
			formatMark(r.MaxMark()),
			r.Notes(),
			firstLine(r.Failure),
		})
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		fmt.Sprintf("%d tests, %d failed, %d skipped, %d errored",
			outcome.Result.Tests, outcome.Result.Failed, outcome.Result.Skipped, outcome.Result.Errored),
		fmt.Sprintf("%d todo", outcome.Totals.NeedsReview),
		formatMark(outcome.Totals.Marks),
		formatMark(outcome.Totals.MaxMarks),
		"",
		"",
	})

	switch {
	case !f.colored:
		t.SetStyle(table.StyleLight)
	case outcome.HasFailures():
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case outcome.Totals.NeedsReview > 0:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}
	t.Style().Format.Footer = text.FormatDefault

	return t.Render() + "\n"
}

// TableReporter prints the marking table
type TableReporter struct {
	out       io.Writer
	formatter *TableFormatter
}

// NewTableReporter creates a reporter writing to out, or stdout when out is nil
func NewTableReporter(out io.Writer, title string, colored bool) *TableReporter {
	if out == nil {
		out = os.Stdout
	}
	return &TableReporter{
		out:       out,
		formatter: NewTableFormatter(title, colored),
	}
}

// Report implements Reporter
func (r *TableReporter) Report(_ context.Context, outcome *runner.Outcome) error {
	if _, err := io.WriteString(r.out, r.formatter.Format(outcome)); err != nil {
		return fmt.Errorf("writing results table: %w", err)
	}
	_, err := fmt.Fprintln(r.out, outcome.String())
	return err
}

// formatMark prints marks without trailing zeros
func formatMark(m float64) string {
	return strconv.FormatFloat(m, 'f', -1, 64)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

// StatusCounts tallies records by their reporting label
func StatusCounts(records []types.ResultRecord) map[string]int {
	counts := map[string]int{types.LabelOK: 0, types.LabelFail: 0, types.LabelTodo: 0}
	for _, r := range records {
		counts[r.Label()]++
	}
	return counts
}
