package runner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/ethereum/go-ethereum/log"

	"github.com/yamf-go/op-marker/types"
)

// ErrNoVerifiableOutput is returned when the report file for the requested dialect is missing
var ErrNoVerifiableOutput = errors.New("runner produced no verifiable output")

// suiteQuery selects the top-level result elements of a report
const suiteQuery = "/testsuite | /testsuites/testsuite"

// Counter attributes on a result element
const (
	AttrTests    = "tests"
	AttrFailures = "failures"
	AttrSkipped  = "skipped"
	AttrErrors   = "errors"
)

// ExtractionError reports a counter field that is absent or not an integer,
// or a report that is not well-formed XML (Field "document")
type ExtractionError struct {
	Path  string
	Field string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s from %s: %v", e.Field, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

var errMissingField = errors.New("field is missing")

// TestCase is one check as recorded in a report file
type TestCase struct {
	Class   string
	Name    string
	Status  types.CheckStatus
	Message string
}

// ID returns the check identity of the case
func (c TestCase) ID() types.CheckID {
	return types.NewCheckID(c.Class, c.Name)
}

// ReportParser reads the structured result files of one report directory
type ReportParser struct {
	log log.Logger
}

// NewReportParser creates a report parser
func NewReportParser(logger log.Logger) *ReportParser {
	if logger == nil {
		logger = log.Root()
	}
	return &ReportParser{log: logger}
}

// Parse fills result with the details of every visible file in dir and the counters of
// the dialect's report file. Report files of other dialects contribute no counters.
func (p *ReportParser) Parse(dir string, dialect types.Dialect, result *types.RunResult) error {
	details, err := ReadDetails(dir)
	if err != nil {
		return err
	}
	result.Details = details

	path := filepath.Join(dir, dialect.ReportName())
	counts, err := ReadCounts(path)
	if err != nil {
		return err
	}
	result.Add(counts)

	p.log.Debug("Parsed report", "path", path, "tests", counts.Tests, "failed", counts.Failed,
		"skipped", counts.Skipped, "errored", counts.Errored)
	return nil
}

// ReadDetails concatenates the bodies of all non-hidden regular files in dir in name order,
// each preceded by a marker line naming the file.
func ReadDetails(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading report directory %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var b strings.Builder
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") || !entry.Type().IsRegular() {
			continue
		}
		body, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return "", fmt.Errorf("reading report file %s: %w", entry.Name(), err)
		}
		fmt.Fprintf(&b, DetailsSeparatorFormat, entry.Name())
		b.Write(body)
		if len(body) > 0 && body[len(body)-1] != '\n' {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// ReadCounts extracts the tests, failures, skipped and errors counters from the report at
// path, summing them across result elements.
func ReadCounts(path string) (types.Counts, error) {
	doc, err := openReport(path)
	if err != nil {
		return types.Counts{}, err
	}

	suites, err := xmlquery.QueryAll(doc, suiteQuery)
	if err != nil {
		return types.Counts{}, &ExtractionError{Path: path, Field: "testsuite", Err: err}
	}
	if len(suites) == 0 {
		return types.Counts{}, &ExtractionError{Path: path, Field: "testsuite", Err: errMissingField}
	}

	var total types.Counts
	for _, suite := range suites {
		c, err := suiteCounts(path, suite)
		if err != nil {
			return types.Counts{}, err
		}
		total.Tests += c.Tests
		total.Failed += c.Failed
		total.Skipped += c.Skipped
		total.Errored += c.Errored
	}
	return total, nil
}

func suiteCounts(path string, suite *xmlquery.Node) (types.Counts, error) {
	var c types.Counts
	fields := []struct {
		name string
		dst  *int
	}{
		{AttrTests, &c.Tests},
		{AttrFailures, &c.Failed},
		{AttrSkipped, &c.Skipped},
		{AttrErrors, &c.Errored},
	}
	for _, f := range fields {
		raw, ok := attr(suite, f.name)
		if !ok {
			return types.Counts{}, &ExtractionError{Path: path, Field: f.name, Err: errMissingField}
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return types.Counts{}, &ExtractionError{Path: path, Field: f.name, Err: err}
		}
		if n < 0 {
			return types.Counts{}, &ExtractionError{Path: path, Field: f.name, Err: fmt.Errorf("negative counter %d", n)}
		}
		*f.dst = n
	}
	return c, nil
}

// ReadCases lists the test cases recorded in the report at path, in document order
func ReadCases(path string) ([]TestCase, error) {
	doc, err := openReport(path)
	if err != nil {
		return nil, err
	}
	nodes, err := xmlquery.QueryAll(doc, "//testcase")
	if err != nil {
		return nil, &ExtractionError{Path: path, Field: "testcase", Err: err}
	}

	cases := make([]TestCase, 0, len(nodes))
	for _, node := range nodes {
		class, _ := attr(node, "classname")
		name, _ := attr(node, "name")
		tc := TestCase{
			Class:  class,
			Name:   strings.TrimSuffix(name, "()"),
			Status: types.CheckStatusSuccess,
		}
		switch {
		case child(node, "failure") != nil:
			tc.Status = types.CheckStatusFailure
			tc.Message, _ = attr(child(node, "failure"), "message")
		case child(node, "error") != nil:
			tc.Status = types.CheckStatusFailure
			tc.Message, _ = attr(child(node, "error"), "message")
		case child(node, "skipped") != nil:
			tc.Status = types.CheckStatusAborted
			skipped := child(node, "skipped")
			if msg, ok := attr(skipped, "message"); ok {
				tc.Message = msg
			} else {
				tc.Message = strings.TrimSpace(skipped.InnerText())
			}
		}
		cases = append(cases, tc)
	}
	return cases, nil
}

func openReport(path string) (*xmlquery.Node, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s does not exist", ErrNoVerifiableOutput, path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening report %s: %w", path, err)
	}
	defer f.Close()

	doc, err := xmlquery.Parse(f)
	if err != nil {
		return nil, &ExtractionError{Path: path, Field: "document", Err: err}
	}
	return doc, nil
}

// attr distinguishes a missing attribute from an empty one
func attr(n *xmlquery.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func child(n *xmlquery.Node, name string) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == name {
			return c
		}
	}
	return nil
}
